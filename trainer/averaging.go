package trainer

import (
	"context"
	"fmt"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/model"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

const averagingPartitionsPerWorker = 10

var _ Trainer = (*ModelAveragingTrainer)(nil)

// ModelAveragingTrainer is the synchronous averaging protocol. Only partitioning and
// timing are performed; Train always fails with ErrNotImplemented.
type ModelAveragingTrainer struct {
	*base
}

func NewModelAveraging(cfg Config, master model.Model, opts ...Option) (*ModelAveragingTrainer, error) {
	cfg.Protocol = ModelAveraging
	b, err := newBase(cfg, master, opts)
	if err != nil {
		return nil, err
	}

	return &ModelAveragingTrainer{base: b}, nil
}

func (t *ModelAveragingTrainer) Train(ctx context.Context, ds dataset.Dataset, shuffle bool) (model.Model, error) {
	sess := newSession()

	if shuffle {
		ds = ds.Shuffle()
	}
	ds = ds.Repartition(t.cfg.NumWorkers * averagingPartitionsPerWorker)

	t.RecordTrainingStart()
	t.RecordTrainingEnd()

	return nil, t.fail(ctx, sess, fmt.Errorf("%w: synchronous model averaging over %d partitions", pkgerrors.ErrNotImplemented, ds.NumPartitions()))
}
