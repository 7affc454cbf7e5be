// Package worker implements the per-partition side of each training protocol.
//
// A Worker is handed one partition at a time by the dataset engine. It trains a local
// copy of the model over that partition and, depending on the protocol, synchronizes
// with the parameter server every communication window. The returned bytes are the
// serialized local model at the end of the partition.
package worker

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/optimizer"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/absmach/asgd/pserver"
)

type Worker interface {
	// Train runs over one partition. Its signature matches dataset.PartitionFunc.
	Train(ctx context.Context, index int, rows iter.Seq[dataset.Row]) ([]byte, error)
}

// Config is the template every partition's worker is built from.
type Config struct {
	Master      []byte
	Optimizer   string
	Loss        string
	FeaturesCol string
	LabelCol    string
	BatchSize   int
	PS          pserver.Config
	// Connect returns a parameter server client. Unused by the single worker.
	Connect func(ctx context.Context) (pserver.Client, error)
	Logger  *slog.Logger
}

func (c Config) validate(remote bool) error {
	switch {
	case len(c.Master) == 0:
		return fmt.Errorf("%w: missing master model", pkgerrors.ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be at least 1, got %d", pkgerrors.ErrInvalidConfig, c.BatchSize)
	case c.FeaturesCol == "" || c.LabelCol == "":
		return fmt.Errorf("%w: features and label columns are required", pkgerrors.ErrInvalidConfig)
	case remote && c.Connect == nil:
		return fmt.Errorf("%w: missing parameter server connection", pkgerrors.ErrInvalidConfig)
	}
	if remote {
		return c.PS.Validate()
	}

	return nil
}

// local is the state one partition run owns.
type local struct {
	model model.Model
	opt   optimizer.Optimizer
	loss  string
}

func (c Config) newLocal() (*local, error) {
	m, err := model.Unmarshal(c.Master)
	if err != nil {
		return nil, err
	}
	opt, err := optimizer.New(c.Optimizer, c.PS.LearningRate)
	if err != nil {
		return nil, err
	}

	return &local{model: m, opt: opt, loss: c.Loss}, nil
}

// step runs one optimizer step over batch and returns the batch loss.
func (l *local) step(batch []model.Sample) (float64, error) {
	grad, loss, err := l.model.Gradient(l.loss, batch)
	if err != nil {
		return 0, err
	}
	w := l.model.Weights()
	if err := l.opt.Step(w, grad); err != nil {
		return 0, err
	}
	if err := l.model.SetWeights(w); err != nil {
		return 0, err
	}

	return loss, nil
}

func loggerOf(c Config) *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}

	return c.Logger
}
