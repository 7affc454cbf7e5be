package middleware

import (
	"context"

	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pserver"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ pserver.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    pserver.Service
}

func Tracing(tracer trace.Tracer, svc pserver.Service) pserver.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Pull(ctx context.Context) (model.Weights, error) {
	ctx, span := tm.tracer.Start(ctx, "pull")
	defer span.End()

	return tm.svc.Pull(ctx)
}

func (tm *tracing) Commit(ctx context.Context, c pserver.Commit) error {
	ctx, span := tm.tracer.Start(ctx, "commit", trace.WithAttributes(
		attribute.Int("worker_id", c.WorkerID),
		attribute.Int("size", len(c.Delta)),
	))
	defer span.End()

	return tm.svc.Commit(ctx, c)
}

func (tm *tracing) Exchange(ctx context.Context, e pserver.Exchange) (model.Weights, error) {
	ctx, span := tm.tracer.Start(ctx, "exchange", trace.WithAttributes(
		attribute.Int("worker_id", e.WorkerID),
		attribute.Int("size", len(e.Weights)),
	))
	defer span.End()

	return tm.svc.Exchange(ctx, e)
}

func (tm *tracing) NumUpdates() uint64 {
	return tm.svc.NumUpdates()
}

func (tm *tracing) Model(ctx context.Context) (model.Model, error) {
	ctx, span := tm.tracer.Start(ctx, "model")
	defer span.End()

	return tm.svc.Model(ctx)
}

func (tm *tracing) Stop(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "stop", trace.WithAttributes(
		attribute.Int64("num_updates", int64(tm.svc.NumUpdates())),
	))
	defer span.End()

	return tm.svc.Stop(ctx)
}

func (tm *tracing) Done() <-chan struct{} {
	return tm.svc.Done()
}
