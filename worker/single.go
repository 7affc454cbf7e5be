package worker

import (
	"context"
	"iter"
	"log/slog"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/model"
)

var _ Worker = (*single)(nil)

type single struct {
	cfg Config
}

// NewSingle returns a worker that trains locally without a parameter server.
func NewSingle(cfg Config) (Worker, error) {
	if err := cfg.validate(false); err != nil {
		return nil, err
	}

	return &single{cfg: cfg}, nil
}

func (s *single) Train(ctx context.Context, index int, rows iter.Seq[dataset.Row]) ([]byte, error) {
	l, err := s.cfg.newLocal()
	if err != nil {
		return nil, err
	}

	var steps int
	var loss float64
	for batch, err := range batches(rows, s.cfg.FeaturesCol, s.cfg.LabelCol, s.cfg.BatchSize) {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if loss, err = l.step(batch); err != nil {
			return nil, err
		}
		steps++
	}

	loggerOf(s.cfg).Debug("partition trained",
		slog.Int("partition", index),
		slog.Int("steps", steps),
		slog.Float64("loss", loss),
	)

	return model.Marshal(l.model)
}
