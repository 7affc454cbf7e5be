package model

import (
	"fmt"
	"math"

	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

const KindLinear = "linear"

var _ Model = (*Linear)(nil)

// Linear is a dense linear model. The last weight is the bias term.
type Linear struct {
	inputs  int
	weights Weights
}

func NewLinear(inputs int) *Linear {
	return &Linear{
		inputs:  inputs,
		weights: make(Weights, inputs+1),
	}
}

func (l *Linear) Kind() string {
	return KindLinear
}

func (l *Linear) Inputs() int {
	return l.inputs
}

func (l *Linear) Weights() Weights {
	return l.weights.Clone()
}

func (l *Linear) SetWeights(w Weights) error {
	if err := sameLen(l.weights, w); err != nil {
		return err
	}
	copy(l.weights, w)

	return nil
}

func (l *Linear) ApplyDelta(delta Weights) error {
	return l.weights.Add(delta)
}

func (l *Linear) Clone() Model {
	return &Linear{
		inputs:  l.inputs,
		weights: l.weights.Clone(),
	}
}

// Predict returns the raw linear response for x.
func (l *Linear) Predict(x []float64) (float64, error) {
	if len(x) != l.inputs {
		return 0, fmt.Errorf("%w: %d features for %d inputs", pkgerrors.ErrDimensionMismatch, len(x), l.inputs)
	}
	z := l.weights[l.inputs]
	for i, v := range x {
		z += l.weights[i] * v
	}

	return z, nil
}

func (l *Linear) Gradient(loss string, batch []Sample) (Weights, float64, error) {
	grad := make(Weights, len(l.weights))
	if len(batch) == 0 {
		return grad, 0, nil
	}

	var total float64
	for _, s := range batch {
		z, err := l.Predict(s.Features)
		if err != nil {
			return nil, 0, err
		}

		var residual float64
		switch loss {
		case LossMSE:
			residual = z - s.Label
			total += 0.5 * residual * residual
		case LossBinaryCrossentropy:
			p := sigmoid(z)
			residual = p - s.Label
			total -= s.Label*math.Log(clamp(p)) + (1-s.Label)*math.Log(clamp(1-p))
		default:
			return nil, 0, fmt.Errorf("%w: %q", pkgerrors.ErrUnknownLoss, loss)
		}

		for i, v := range s.Features {
			grad[i] += residual * v
		}
		grad[l.inputs] += residual
	}

	n := float64(len(batch))
	grad.Scale(1 / n)

	return grad, total / n, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func clamp(p float64) float64 {
	const eps = 1e-12

	return math.Min(math.Max(p, eps), 1-eps)
}
