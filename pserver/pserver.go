// Package pserver holds the authoritative master model during a training session
// and applies the update rule of the active asynchronous protocol.
//
// Three variants are provided:
//
//   - Downpour: workers push accumulated deltas that are added to the master.
//   - Elastic: workers exchange their weights with the master; both sides move
//     toward each other by the elasticity force rho.
//   - ElasticMomentum: as Elastic, with a velocity term on the master update.
//
// All variants are safe for concurrent use and correct under any interleaving of
// worker messages.
package pserver

import (
	"context"
	"fmt"

	"github.com/absmach/asgd/model"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

// Config is the hyperparameter bundle of a protocol variant.
type Config struct {
	LearningRate        float64 `json:"learning_rate"`
	CommunicationWindow int     `json:"communication_window"`
	Rho                 float64 `json:"rho"`
	Momentum            float64 `json:"momentum"`
}

func (c Config) Validate() error {
	switch {
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning_rate must be positive, got %v", pkgerrors.ErrInvalidConfig, c.LearningRate)
	case c.CommunicationWindow < 1:
		return fmt.Errorf("%w: communication_window must be at least 1, got %d", pkgerrors.ErrInvalidConfig, c.CommunicationWindow)
	case c.Rho < 0:
		return fmt.Errorf("%w: rho must not be negative, got %v", pkgerrors.ErrInvalidConfig, c.Rho)
	case c.Momentum < 0 || c.Momentum >= 1:
		return fmt.Errorf("%w: momentum must be in [0, 1), got %v", pkgerrors.ErrInvalidConfig, c.Momentum)
	}

	return nil
}

// Commit carries a worker's accumulated delta.
type Commit struct {
	WorkerID int           `cbor:"worker_id"`
	Delta    model.Weights `cbor:"delta"`
}

// Exchange carries a worker's local weights for an elastic coupling step.
type Exchange struct {
	WorkerID int           `cbor:"worker_id"`
	Weights  model.Weights `cbor:"weights"`
}

// Service is the server side of a parameter server.
type Service interface {
	// Pull returns a copy of the current master weights.
	Pull(ctx context.Context) (model.Weights, error)

	// Commit applies a worker delta to the master.
	Commit(ctx context.Context, c Commit) error

	// Exchange couples worker weights with the master and returns the worker's
	// weights after the coupling.
	Exchange(ctx context.Context, e Exchange) (model.Weights, error)

	// NumUpdates returns how many updates were applied. Safe to call at any time.
	NumUpdates() uint64

	// Model returns a snapshot of the master model.
	Model(ctx context.Context) (model.Model, error)

	// Stop rejects further updates and closes Done. Calling it again is a no-op.
	Stop(ctx context.Context) error

	Done() <-chan struct{}
}

// Client is what a worker needs from a parameter server, locally or over the network.
type Client interface {
	Pull(ctx context.Context) (model.Weights, error)
	Commit(ctx context.Context, c Commit) error
	Exchange(ctx context.Context, e Exchange) (model.Weights, error)
	NumUpdates(ctx context.Context) (uint64, error)
	Model(ctx context.Context) (model.Model, error)
	Stop(ctx context.Context) error
}
