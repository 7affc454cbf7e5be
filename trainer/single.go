package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/worker"
)

var _ Trainer = (*SingleTrainer)(nil)

// SingleTrainer trains on one partition without a parameter server. It exists to
// compare the distributed protocols against.
type SingleTrainer struct {
	*base
}

func NewSingle(cfg Config, master model.Model, opts ...Option) (*SingleTrainer, error) {
	cfg.Protocol = Single
	b, err := newBase(cfg, master, opts)
	if err != nil {
		return nil, err
	}

	return &SingleTrainer{base: b}, nil
}

func (s *SingleTrainer) Train(ctx context.Context, ds dataset.Dataset, shuffle bool) (model.Model, error) {
	sess := newSession()
	ctx, span := s.tracer.Start(ctx, "single-train")
	defer span.End()

	state, err := model.Marshal(s.master)
	if err != nil {
		return nil, err
	}

	if shuffle {
		ds = ds.Shuffle()
	}
	ds = ds.Coalesce(1)

	s.logger.Info("training session started", slog.String("session_id", sess.id), slog.String("name", sess.name))
	s.publish(ctx, sessionStartedTopic, sess, map[string]any{"partitions": ds.NumPartitions()})
	s.RecordTrainingStart()

	for epoch := range s.cfg.NumEpoch {
		begin := time.Now()
		w, err := worker.NewSingle(worker.Config{
			Master:      state,
			Optimizer:   s.cfg.Optimizer,
			Loss:        s.cfg.Loss,
			FeaturesCol: s.cfg.FeaturesCol,
			LabelCol:    s.cfg.LabelCol,
			BatchSize:   s.cfg.BatchSize,
			PS:          s.cfg.ps(),
			Logger:      s.logger,
		})
		if err != nil {
			return nil, s.fail(ctx, sess, err)
		}

		results, err := ds.MapPartitionsWithIndex(ctx, w.Train)
		if err != nil {
			return nil, s.fail(ctx, sess, fmt.Errorf("epoch %d: %w", epoch, err))
		}
		state = results[0]

		s.endEpoch(ctx, sess, HistoryRecord{
			SessionID:  sess.id,
			Epoch:      epoch,
			Duration:   time.Since(begin),
			Partitions: ds.NumPartitions(),
		})
	}

	s.RecordTrainingEnd()

	m, err := model.Unmarshal(state)
	if err != nil {
		return nil, s.fail(ctx, sess, err)
	}
	s.complete(ctx, sess, m, 0)

	return m, nil
}
