package middleware

import (
	"context"
	"time"

	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pserver"
	"github.com/go-kit/kit/metrics"
)

var _ pserver.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     pserver.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc pserver.Service) pserver.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Pull(ctx context.Context) (model.Weights, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "pull").Add(1)
		mm.latency.With("method", "pull").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Pull(ctx)
}

func (mm *metricsMiddleware) Commit(ctx context.Context, c pserver.Commit) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "commit").Add(1)
		mm.latency.With("method", "commit").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Commit(ctx, c)
}

func (mm *metricsMiddleware) Exchange(ctx context.Context, e pserver.Exchange) (model.Weights, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "exchange").Add(1)
		mm.latency.With("method", "exchange").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Exchange(ctx, e)
}

func (mm *metricsMiddleware) NumUpdates() uint64 {
	return mm.svc.NumUpdates()
}

func (mm *metricsMiddleware) Model(ctx context.Context) (model.Model, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "model").Add(1)
		mm.latency.With("method", "model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Model(ctx)
}

func (mm *metricsMiddleware) Stop(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "stop").Add(1)
		mm.latency.With("method", "stop").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Stop(ctx)
}

func (mm *metricsMiddleware) Done() <-chan struct{} {
	return mm.svc.Done()
}
