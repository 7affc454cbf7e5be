package pserver

import (
	"context"

	"github.com/absmach/asgd/model"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

var _ Service = (*downpour)(nil)

type downpour struct {
	*center
	cfg Config
}

// NewDownpour returns a staleness-bounded averaging server: every committed delta
// is added to the master as is.
func NewDownpour(master model.Model, cfg Config) Service {
	return &downpour{
		center: newCenter(master),
		cfg:    cfg,
	}
}

func (d *downpour) Commit(_ context.Context, c Commit) error {
	return d.update(func(master model.Model) error {
		return master.ApplyDelta(c.Delta)
	})
}

func (d *downpour) Exchange(_ context.Context, _ Exchange) (model.Weights, error) {
	return nil, pkgerrors.ErrUnsupported
}
