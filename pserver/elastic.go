package pserver

import (
	"context"

	"github.com/absmach/asgd/model"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

var _ Service = (*elastic)(nil)

type elastic struct {
	*center
	cfg      Config
	momentum bool
	velocity model.Weights
}

// NewElastic returns an elastic averaging server without momentum.
func NewElastic(master model.Model, cfg Config) Service {
	return &elastic{
		center: newCenter(master),
		cfg:    cfg,
	}
}

// NewElasticMomentum returns an elastic averaging server whose master update
// carries a velocity: v = momentum*v - learning_rate*g, master += v.
func NewElasticMomentum(master model.Model, cfg Config) Service {
	return &elastic{
		center:   newCenter(master),
		cfg:      cfg,
		momentum: true,
		velocity: make(model.Weights, len(master.Weights())),
	}
}

// ElasticGradient returns the gradient g of the elastic penalty at the master for a
// worker at w. A step of -lr*g on the master and +lr*g on the worker shrinks their
// distance by the factor (1 - rho).
func ElasticGradient(master, w model.Weights, rho, lr float64) (model.Weights, error) {
	g, err := master.Sub(w)
	if err != nil {
		return nil, err
	}
	g.Scale(rho / (2 * lr))

	return g, nil
}

func (e *elastic) Commit(_ context.Context, _ Commit) error {
	return pkgerrors.ErrUnsupported
}

func (e *elastic) Exchange(_ context.Context, x Exchange) (model.Weights, error) {
	var reply model.Weights
	err := e.update(func(master model.Model) error {
		g, err := ElasticGradient(master.Weights(), x.Weights, e.cfg.Rho, e.cfg.LearningRate)
		if err != nil {
			return err
		}

		step := g.Clone()
		if e.momentum {
			for i := range e.velocity {
				e.velocity[i] = e.cfg.Momentum*e.velocity[i] - e.cfg.LearningRate*g[i]
			}
			copy(step, e.velocity)
		} else {
			step.Scale(-e.cfg.LearningRate)
		}
		if err := master.ApplyDelta(step); err != nil {
			return err
		}

		g.Scale(e.cfg.LearningRate)
		reply = x.Weights.Clone()

		return reply.Add(g)
	})
	if err != nil {
		return nil, err
	}

	return reply, nil
}
