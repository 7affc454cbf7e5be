// Package optimizer maps a worker optimizer identifier onto the local update rule a
// worker applies after every gradient computation.
package optimizer

import (
	"fmt"
	"math"

	"github.com/absmach/asgd/model"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

const (
	SGD      = "sgd"
	Momentum = "momentum"
	Adagrad  = "adagrad"

	defMomentum = 0.9
	adagradEps  = 1e-8
)

// Optimizer applies one step to w in place. Implementations keep per-worker state
// and are not safe for concurrent use.
type Optimizer interface {
	Step(w, grad model.Weights) error
}

func New(name string, learningRate float64) (Optimizer, error) {
	if learningRate <= 0 {
		return nil, fmt.Errorf("%w: learning rate must be positive", pkgerrors.ErrInvalidConfig)
	}

	switch name {
	case SGD, "":
		return &sgd{lr: learningRate}, nil
	case Momentum:
		return &momentum{lr: learningRate, mu: defMomentum}, nil
	case Adagrad:
		return &adagrad{lr: learningRate}, nil
	default:
		return nil, fmt.Errorf("%w: %q", pkgerrors.ErrUnknownOptimizer, name)
	}
}

type sgd struct {
	lr float64
}

func (o *sgd) Step(w, grad model.Weights) error {
	if len(w) != len(grad) {
		return pkgerrors.ErrDimensionMismatch
	}
	for i := range w {
		w[i] -= o.lr * grad[i]
	}

	return nil
}

type momentum struct {
	lr       float64
	mu       float64
	velocity model.Weights
}

func (o *momentum) Step(w, grad model.Weights) error {
	if len(w) != len(grad) {
		return pkgerrors.ErrDimensionMismatch
	}
	if o.velocity == nil {
		o.velocity = make(model.Weights, len(w))
	}
	for i := range w {
		o.velocity[i] = o.mu*o.velocity[i] - o.lr*grad[i]
		w[i] += o.velocity[i]
	}

	return nil
}

type adagrad struct {
	lr    float64
	cache model.Weights
}

func (o *adagrad) Step(w, grad model.Weights) error {
	if len(w) != len(grad) {
		return pkgerrors.ErrDimensionMismatch
	}
	if o.cache == nil {
		o.cache = make(model.Weights, len(w))
	}
	for i := range w {
		o.cache[i] += grad[i] * grad[i]
		w[i] -= o.lr * grad[i] / (math.Sqrt(o.cache[i]) + adagradEps)
	}

	return nil
}
