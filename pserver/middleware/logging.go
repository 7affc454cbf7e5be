package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pserver"
)

var _ pserver.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    pserver.Service
}

func Logging(logger *slog.Logger, svc pserver.Service) pserver.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Pull(ctx context.Context) (w model.Weights, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("size", len(w)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.WarnContext(ctx, "Pull center failed", args...)

			return
		}
		lm.logger.DebugContext(ctx, "Pull center completed successfully", args...)
	}(time.Now())

	return lm.svc.Pull(ctx)
}

func (lm *loggingMiddleware) Commit(ctx context.Context, c pserver.Commit) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("commit",
				slog.Int("worker_id", c.WorkerID),
				slog.Int("size", len(c.Delta)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.WarnContext(ctx, "Commit delta failed", args...)

			return
		}
		lm.logger.DebugContext(ctx, "Commit delta completed successfully", args...)
	}(time.Now())

	return lm.svc.Commit(ctx, c)
}

func (lm *loggingMiddleware) Exchange(ctx context.Context, e pserver.Exchange) (w model.Weights, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("exchange",
				slog.Int("worker_id", e.WorkerID),
				slog.Int("size", len(e.Weights)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.WarnContext(ctx, "Elastic exchange failed", args...)

			return
		}
		lm.logger.DebugContext(ctx, "Elastic exchange completed successfully", args...)
	}(time.Now())

	return lm.svc.Exchange(ctx, e)
}

func (lm *loggingMiddleware) NumUpdates() uint64 {
	return lm.svc.NumUpdates()
}

func (lm *loggingMiddleware) Model(ctx context.Context) (m model.Model, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.WarnContext(ctx, "Get master model failed", args...)

			return
		}
		lm.logger.InfoContext(ctx, "Get master model completed successfully", args...)
	}(time.Now())

	return lm.svc.Model(ctx)
}

func (lm *loggingMiddleware) Stop(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("num_updates", lm.svc.NumUpdates()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.WarnContext(ctx, "Stop parameter server failed", args...)

			return
		}
		lm.logger.InfoContext(ctx, "Stop parameter server completed successfully", args...)
	}(time.Now())

	return lm.svc.Stop(ctx)
}

func (lm *loggingMiddleware) Done() <-chan struct{} {
	return lm.svc.Done()
}
