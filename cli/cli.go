// Package cli holds the cobra commands of the asgd binary.
package cli

import (
	"log/slog"

	"github.com/absmach/asgd"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Runtime is everything the commands share: configuration and telemetry.
type Runtime struct {
	Config     asgd.Config
	InstanceID string
	Logger     *slog.Logger
	Tracer     trace.Tracer
	Counter    metrics.Counter
	Latency    metrics.Histogram
}

var rt = Runtime{
	Logger:  slog.Default(),
	Tracer:  noop.NewTracerProvider().Tracer("asgd"),
	Counter: discard.NewCounter(),
	Latency: discard.NewHistogram(),
}

func SetRuntime(r Runtime) {
	if r.Logger == nil {
		r.Logger = rt.Logger
	}
	if r.Tracer == nil {
		r.Tracer = rt.Tracer
	}
	if r.Counter == nil {
		r.Counter = rt.Counter
	}
	if r.Latency == nil {
		r.Latency = rt.Latency
	}
	rt = r
}
