package worker

import (
	"context"
	"iter"
	"log/slog"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pserver"
)

var _ Worker = (*downpour)(nil)

type downpour struct {
	cfg Config
}

// NewDownpour returns a worker that commits its accumulated delta every
// communication window and continues from a fresh copy of the master.
func NewDownpour(cfg Config) (Worker, error) {
	if err := cfg.validate(true); err != nil {
		return nil, err
	}

	return &downpour{cfg: cfg}, nil
}

func (d *downpour) Train(ctx context.Context, index int, rows iter.Seq[dataset.Row]) ([]byte, error) {
	l, err := d.cfg.newLocal()
	if err != nil {
		return nil, err
	}
	client, err := d.cfg.Connect(ctx)
	if err != nil {
		return nil, err
	}

	pulled, err := d.pull(ctx, client, l)
	if err != nil {
		return nil, err
	}

	var steps, syncs int
	for batch, err := range batches(rows, d.cfg.FeaturesCol, d.cfg.LabelCol, d.cfg.BatchSize) {
		if err != nil {
			return nil, err
		}
		if _, err := l.step(batch); err != nil {
			return nil, err
		}
		steps++

		if steps%d.cfg.PS.CommunicationWindow == 0 {
			if err := d.commit(ctx, client, index, l, pulled); err != nil {
				return nil, err
			}
			syncs++
			if pulled, err = d.pull(ctx, client, l); err != nil {
				return nil, err
			}
		}
	}

	if steps%d.cfg.PS.CommunicationWindow != 0 || syncs == 0 {
		if err := d.commit(ctx, client, index, l, pulled); err != nil {
			return nil, err
		}
		syncs++
	}

	loggerOf(d.cfg).Debug("partition trained",
		slog.Int("partition", index),
		slog.Int("steps", steps),
		slog.Int("syncs", syncs),
	)

	return model.Marshal(l.model)
}

// pull replaces the local weights with the master and returns the pulled copy.
func (d *downpour) pull(ctx context.Context, client pserver.Client, l *local) (model.Weights, error) {
	center, err := client.Pull(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.model.SetWeights(center); err != nil {
		return nil, err
	}

	return center, nil
}

func (d *downpour) commit(ctx context.Context, client pserver.Client, index int, l *local, pulled model.Weights) error {
	delta, err := l.model.Weights().Sub(pulled)
	if err != nil {
		return err
	}

	return client.Commit(ctx, pserver.Commit{WorkerID: index, Delta: delta})
}
