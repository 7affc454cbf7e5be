// Package trainer orchestrates a training session.
//
// A Trainer owns the master model snapshot and the hyperparameters of one protocol.
// The distributed trainers allocate a fresh parameter server for every call to Train,
// serve it in the background for the duration of the session, dispatch a worker over
// every partition of the dataset once per epoch and return the master model held by
// the parameter server once it has been stopped.
package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/optimizer"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/absmach/asgd/pserver"
)

type Protocol string

const (
	Single         Protocol = "single"
	ModelAveraging Protocol = "model-averaging"
	Downpour       Protocol = "downpour"
	// AEASGD is asynchronous elastic averaging without momentum.
	AEASGD Protocol = "aeasgd"
	// EAMSGD is asynchronous elastic averaging with momentum on the master.
	EAMSGD Protocol = "eamsgd"
)

func (p Protocol) distributed() bool {
	switch p {
	case Downpour, AEASGD, EAMSGD:
		return true
	default:
		return false
	}
}

// Config is the configuration surface shared by every protocol. Fields a protocol
// does not use are ignored.
type Config struct {
	Protocol            Protocol `env:"PROTOCOL"             envDefault:"downpour" toml:"protocol"`
	NumWorkers          int      `env:"NUM_WORKERS"          envDefault:"2"        toml:"num_workers"`
	BatchSize           int      `env:"BATCH_SIZE"           envDefault:"32"       toml:"batch_size"`
	FeaturesCol         string   `env:"FEATURES_COL"         envDefault:"features" toml:"features_col"`
	LabelCol            string   `env:"LABEL_COL"            envDefault:"label"    toml:"label_col"`
	NumEpoch            int      `env:"NUM_EPOCH"            envDefault:"1"        toml:"num_epoch"`
	Loss                string   `env:"LOSS"                 envDefault:"mse"      toml:"loss"`
	Optimizer           string   `env:"OPTIMIZER"            envDefault:"sgd"      toml:"optimizer"`
	LearningRate        float64  `env:"LEARNING_RATE"        envDefault:"0.01"     toml:"learning_rate"`
	CommunicationWindow int      `env:"COMMUNICATION_WINDOW" envDefault:"3"        toml:"communication_window"`
	Rho                 float64  `env:"RHO"                  envDefault:"0.1"      toml:"rho"`
	Momentum            float64  `env:"MOMENTUM"             envDefault:"0.9"      toml:"momentum"`
	ParallelismFactor   int      `env:"PARALLELISM_FACTOR"   envDefault:"2"        toml:"parallelism_factor"`
	// Host is the address workers use to reach the parameter server. Discovered when empty.
	Host        string `env:"HOST"         envDefault:""     toml:"host"`
	Port        int    `env:"PORT"         envDefault:"5000" toml:"port"`
	ShuffleSeed uint64 `env:"SHUFFLE_SEED" envDefault:"0"    toml:"shuffle_seed"`

	// ShutdownTimeout bounds how long stopping the parameter server waits for open
	// connections before closing them.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s" toml:"shutdown_timeout"`
}

// Validate rejects configurations that could only fail mid-training.
func (c Config) Validate() error {
	switch {
	case c.NumWorkers < 1:
		return fmt.Errorf("%w: num_workers must be at least 1, got %d", pkgerrors.ErrInvalidConfig, c.NumWorkers)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch_size must be at least 1, got %d", pkgerrors.ErrInvalidConfig, c.BatchSize)
	case c.NumEpoch < 1:
		return fmt.Errorf("%w: num_epoch must be at least 1, got %d", pkgerrors.ErrInvalidConfig, c.NumEpoch)
	case c.FeaturesCol == "" || c.LabelCol == "":
		return fmt.Errorf("%w: features_col and label_col are required", pkgerrors.ErrInvalidConfig)
	case c.ParallelismFactor < 1:
		return fmt.Errorf("%w: parallelism_factor must be at least 1, got %d", pkgerrors.ErrInvalidConfig, c.ParallelismFactor)
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("%w: invalid port %d", pkgerrors.ErrInvalidConfig, c.Port)
	case c.ShutdownTimeout < 0:
		return fmt.Errorf("%w: shutdown_timeout must not be negative, got %s", pkgerrors.ErrInvalidConfig, c.ShutdownTimeout)
	}

	switch c.Loss {
	case model.LossMSE, model.LossBinaryCrossentropy:
	default:
		return fmt.Errorf("%w: %q", pkgerrors.ErrUnknownLoss, c.Loss)
	}
	if _, err := optimizer.New(c.Optimizer, c.LearningRate); err != nil {
		return err
	}

	switch {
	case c.Protocol.distributed():
		return c.ps().Validate()
	case c.Protocol == Single, c.Protocol == ModelAveraging:
		return nil
	default:
		return fmt.Errorf("%w: %q", pkgerrors.ErrUnknownProtocol, c.Protocol)
	}
}

func (c Config) ps() pserver.Config {
	ps := pserver.Config{
		LearningRate:        c.LearningRate,
		CommunicationWindow: c.CommunicationWindow,
		Rho:                 c.Rho,
	}
	if c.Protocol == EAMSGD {
		ps.Momentum = c.Momentum
	}

	return ps
}

type Trainer interface {
	// Train fits the master model on ds and returns the trained model. The caller's
	// dataset handle is never modified.
	Train(ctx context.Context, ds dataset.Dataset, shuffle bool) (model.Model, error)

	// TrainingTime returns the duration of the most recently completed session, or
	// ErrNoTrainingTime if no session has completed since the last start.
	TrainingTime() (time.Duration, error)

	History() []HistoryRecord
	AddHistory(rec HistoryRecord)

	RecordTrainingStart()
	RecordTrainingEnd()
}

// New validates cfg and returns the trainer of its protocol, seeded with a copy of master.
func New(cfg Config, master model.Model, opts ...Option) (Trainer, error) {
	switch cfg.Protocol {
	case Single:
		return NewSingle(cfg, master, opts...)
	case ModelAveraging:
		return NewModelAveraging(cfg, master, opts...)
	default:
		return NewDistributed(cfg, master, opts...)
	}
}
