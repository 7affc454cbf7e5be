// Package model defines the model capability the trainers work against: a flat
// weight vector that can be read, replaced, shifted by a delta, differentiated on a
// batch and serialized for the wire.
package model

const (
	LossMSE                = "mse"
	LossBinaryCrossentropy = "binary_crossentropy"
)

type Sample struct {
	Features []float64
	Label    float64
}

type Model interface {
	// Kind names the model family used by Marshal/Unmarshal.
	Kind() string

	// Weights returns a copy of the current weights.
	Weights() Weights

	SetWeights(w Weights) error

	ApplyDelta(delta Weights) error

	Clone() Model

	// Gradient returns the mean gradient of the named loss over batch together with
	// the mean loss value.
	Gradient(loss string, batch []Sample) (Weights, float64, error)
}
