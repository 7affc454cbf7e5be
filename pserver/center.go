package pserver

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/absmach/asgd/model"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

// center is the state shared by every variant: the master model, the update
// counter and the stop signal.
type center struct {
	mu      sync.Mutex
	master  model.Model
	updates atomic.Uint64

	stopOnce sync.Once
	stopped  atomic.Bool
	done     chan struct{}
}

func newCenter(master model.Model) *center {
	return &center{
		master: master.Clone(),
		done:   make(chan struct{}),
	}
}

func (c *center) Pull(_ context.Context) (model.Weights, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.master.Weights(), nil
}

func (c *center) NumUpdates() uint64 {
	return c.updates.Load()
}

func (c *center) Model(_ context.Context) (model.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.master.Clone(), nil
}

func (c *center) Stop(_ context.Context) error {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		close(c.done)
	})

	return nil
}

func (c *center) Done() <-chan struct{} {
	return c.done
}

// update runs fn under the master lock and counts it as one applied update.
func (c *center) update(fn func(master model.Model) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped.Load() {
		return pkgerrors.ErrServiceStopped
	}
	if err := fn(c.master); err != nil {
		return err
	}
	c.updates.Add(1)

	return nil
}
