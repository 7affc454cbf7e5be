package worker

import (
	"context"
	"iter"
	"log/slog"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pserver"
)

var _ Worker = (*elastic)(nil)

type elastic struct {
	cfg Config
}

// NewElastic returns a worker that exchanges its weights with the master every
// communication window. Both elastic server variants pair with it.
func NewElastic(cfg Config) (Worker, error) {
	if err := cfg.validate(true); err != nil {
		return nil, err
	}

	return &elastic{cfg: cfg}, nil
}

func (e *elastic) Train(ctx context.Context, index int, rows iter.Seq[dataset.Row]) ([]byte, error) {
	l, err := e.cfg.newLocal()
	if err != nil {
		return nil, err
	}
	client, err := e.cfg.Connect(ctx)
	if err != nil {
		return nil, err
	}

	center, err := client.Pull(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.model.SetWeights(center); err != nil {
		return nil, err
	}

	var steps, syncs int
	for batch, err := range batches(rows, e.cfg.FeaturesCol, e.cfg.LabelCol, e.cfg.BatchSize) {
		if err != nil {
			return nil, err
		}
		if _, err := l.step(batch); err != nil {
			return nil, err
		}
		steps++

		if steps%e.cfg.PS.CommunicationWindow == 0 {
			if err := e.exchange(ctx, client, index, l); err != nil {
				return nil, err
			}
			syncs++
		}
	}

	if steps%e.cfg.PS.CommunicationWindow != 0 || syncs == 0 {
		if err := e.exchange(ctx, client, index, l); err != nil {
			return nil, err
		}
		syncs++
	}

	loggerOf(e.cfg).Debug("partition trained",
		slog.Int("partition", index),
		slog.Int("steps", steps),
		slog.Int("syncs", syncs),
	)

	return model.Marshal(l.model)
}

func (e *elastic) exchange(ctx context.Context, client pserver.Client, index int, l *local) error {
	coupled, err := client.Exchange(ctx, pserver.Exchange{WorkerID: index, Weights: l.model.Weights()})
	if err != nil {
		return err
	}

	return l.model.SetWeights(coupled)
}
