package model

import (
	"fmt"
	"math"

	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

type Weights []float64

func (w Weights) Clone() Weights {
	if w == nil {
		return nil
	}
	c := make(Weights, len(w))
	copy(c, w)

	return c
}

// Add adds o to w in place.
func (w Weights) Add(o Weights) error {
	if err := sameLen(w, o); err != nil {
		return err
	}
	for i := range w {
		w[i] += o[i]
	}

	return nil
}

// Sub returns w - o as a new vector.
func (w Weights) Sub(o Weights) (Weights, error) {
	if err := sameLen(w, o); err != nil {
		return nil, err
	}
	d := make(Weights, len(w))
	for i := range w {
		d[i] = w[i] - o[i]
	}

	return d, nil
}

// Scale multiplies w by f in place.
func (w Weights) Scale(f float64) {
	for i := range w {
		w[i] *= f
	}
}

// Distance is the euclidean distance between w and o.
func (w Weights) Distance(o Weights) (float64, error) {
	if err := sameLen(w, o); err != nil {
		return 0, err
	}
	var sum float64
	for i := range w {
		d := w[i] - o[i]
		sum += d * d
	}

	return math.Sqrt(sum), nil
}

func sameLen(a, b Weights) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d != %d", pkgerrors.ErrDimensionMismatch, len(a), len(b))
	}

	return nil
}
