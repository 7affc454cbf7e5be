package pserver

import (
	"context"

	"github.com/absmach/asgd/model"
)

var _ Client = (*local)(nil)

type local struct {
	svc Service
}

// Local adapts an in-process Service to the Client interface.
func Local(svc Service) Client {
	return &local{svc: svc}
}

func (l *local) Pull(ctx context.Context) (model.Weights, error) {
	return l.svc.Pull(ctx)
}

func (l *local) Commit(ctx context.Context, c Commit) error {
	return l.svc.Commit(ctx, c)
}

func (l *local) Exchange(ctx context.Context, e Exchange) (model.Weights, error) {
	return l.svc.Exchange(ctx, e)
}

func (l *local) NumUpdates(_ context.Context) (uint64, error) {
	return l.svc.NumUpdates(), nil
}

func (l *local) Model(ctx context.Context) (model.Model, error) {
	return l.svc.Model(ctx)
}

func (l *local) Stop(ctx context.Context) error {
	return l.svc.Stop(ctx)
}
