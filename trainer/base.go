package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pkg/checkpoint"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/absmach/asgd/pkg/mqtt"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	sessionStartedTopic   = "%s/sessions/started"
	epochCompletedTopic   = "%s/epochs/completed"
	sessionCompletedTopic = "%s/sessions/completed"
	sessionFailedTopic    = "%s/sessions/failed"
)

var namegen = namegenerator.NewGenerator()

// HistoryRecord describes one completed epoch.
type HistoryRecord struct {
	SessionID  string        `json:"session_id"`
	Epoch      int           `json:"epoch"`
	Duration   time.Duration `json:"duration"`
	NumUpdates uint64        `json:"num_updates"`
	Partitions int           `json:"partitions"`
}

type Option func(*options)

type options struct {
	logger      *slog.Logger
	pubsub      mqtt.PubSub
	baseTopic   string
	checkpoints checkpoint.Storage
	tracer      trace.Tracer
	counter     metrics.Counter
	latency     metrics.Histogram
	httpClient  *http.Client
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNotifier publishes session events under baseTopic.
func WithNotifier(pubsub mqtt.PubSub, baseTopic string) Option {
	return func(o *options) {
		o.pubsub = pubsub
		o.baseTopic = baseTopic
	}
}

// WithCheckpoints saves the trained model of every successful session.
func WithCheckpoints(s checkpoint.Storage) Option {
	return func(o *options) {
		o.checkpoints = s
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithMetrics instruments the parameter server of every session.
func WithMetrics(counter metrics.Counter, latency metrics.Histogram) Option {
	return func(o *options) {
		o.counter = counter
		o.latency = latency
	}
}

// WithHTTPClient sets the client workers use to reach the parameter server.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

type session struct {
	id   string
	name string
}

func newSession() session {
	return session{id: uuid.NewString(), name: namegen.Generate()}
}

// base carries the state every trainer shares: configuration, the master snapshot,
// session timing and history.
type base struct {
	options
	cfg    Config
	master model.Model

	mu      sync.Mutex
	start   time.Time
	end     time.Time
	ended   bool
	history []HistoryRecord
}

func newBase(cfg Config, master model.Model, opts []Option) (*base, error) {
	if master == nil {
		return nil, fmt.Errorf("%w: missing master model", pkgerrors.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:  slog.Default(),
		tracer:  noop.NewTracerProvider().Tracer("trainer"),
		counter: discard.NewCounter(),
		latency: discard.NewHistogram(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &base{
		options: o,
		cfg:     cfg,
		master:  master.Clone(),
	}, nil
}

func (b *base) RecordTrainingStart() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.start = time.Now()
	b.ended = false
}

func (b *base) RecordTrainingEnd() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.start.IsZero() {
		return
	}
	b.end = time.Now()
	b.ended = true
}

func (b *base) TrainingTime() (time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ended {
		return 0, pkgerrors.ErrNoTrainingTime
	}

	return b.end.Sub(b.start), nil
}

func (b *base) History() []HistoryRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.history)
}

func (b *base) AddHistory(rec HistoryRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, rec)
}

func (b *base) publish(ctx context.Context, template string, s session, fields map[string]any) {
	if b.pubsub == nil {
		return
	}

	msg := map[string]any{
		"session_id": s.id,
		"name":       s.name,
		"protocol":   string(b.cfg.Protocol),
		"timestamp":  time.Now().UTC(),
	}
	for k, v := range fields {
		msg[k] = v
	}

	topic := fmt.Sprintf(template, b.baseTopic)
	if err := b.pubsub.Publish(ctx, topic, msg); err != nil {
		b.logger.Warn("failed to publish training event", slog.String("topic", topic), slog.Any("error", err))
	}
}

func (b *base) saveCheckpoint(ctx context.Context, s session, m model.Model, updates uint64) {
	if b.checkpoints == nil {
		return
	}

	data, err := model.Marshal(m)
	if err == nil {
		err = b.checkpoints.Save(ctx, checkpoint.Checkpoint{
			SessionID:  s.id,
			Name:       s.name,
			Protocol:   string(b.cfg.Protocol),
			NumUpdates: updates,
			CreatedAt:  time.Now(),
			Model:      data,
		})
	}
	if err != nil {
		b.logger.Warn("failed to save checkpoint", slog.String("session_id", s.id), slog.Any("error", err))
	}
}

// fail reports a failed session and returns err unchanged.
func (b *base) fail(ctx context.Context, s session, err error) error {
	b.logger.Error("training session failed",
		slog.String("session_id", s.id),
		slog.String("protocol", string(b.cfg.Protocol)),
		slog.Any("error", err),
	)
	b.publish(ctx, sessionFailedTopic, s, map[string]any{"error": err.Error()})

	return err
}

func (b *base) endEpoch(ctx context.Context, s session, rec HistoryRecord) {
	b.AddHistory(rec)
	b.logger.Info("epoch completed",
		slog.String("session_id", s.id),
		slog.Int("epoch", rec.Epoch),
		slog.String("duration", rec.Duration.String()),
		slog.Uint64("num_updates", rec.NumUpdates),
	)
	b.publish(ctx, epochCompletedTopic, s, map[string]any{
		"epoch":       rec.Epoch,
		"duration":    rec.Duration.String(),
		"num_updates": rec.NumUpdates,
		"partitions":  rec.Partitions,
	})
}

func (b *base) complete(ctx context.Context, s session, m model.Model, updates uint64) {
	elapsed, _ := b.TrainingTime()
	b.logger.Info("training session completed",
		slog.String("session_id", s.id),
		slog.String("name", s.name),
		slog.String("training_time", elapsed.String()),
		slog.Uint64("num_updates", updates),
	)
	b.saveCheckpoint(ctx, s, m, updates)
	b.publish(ctx, sessionCompletedTopic, s, map[string]any{
		"training_time": elapsed.String(),
		"num_updates":   updates,
	})
}
