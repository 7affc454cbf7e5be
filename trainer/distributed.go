package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/lifecycle"
	"github.com/absmach/asgd/model"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/absmach/asgd/pkg/netutil"
	"github.com/absmach/asgd/pserver"
	psapi "github.com/absmach/asgd/pserver/api"
	"github.com/absmach/asgd/pserver/middleware"
	"github.com/absmach/asgd/worker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ Trainer = (*Distributed)(nil)

type (
	serverFunc func(master model.Model, cfg pserver.Config) pserver.Service
	workerFunc func(cfg worker.Config) (worker.Worker, error)
)

// Distributed runs one of the asynchronous parameter server protocols. The dataset
// is split into num_workers × parallelism_factor partitions and every partition is
// trained by a worker that synchronizes with the parameter server over HTTP.
type Distributed struct {
	*base
	newServer serverFunc
	newWorker workerFunc
	host      string
	port      int

	lmu    sync.Mutex
	factor int
	server pserver.Service
	handle *lifecycle.Handle
}

func NewDistributed(cfg Config, master model.Model, opts ...Option) (*Distributed, error) {
	b, err := newBase(cfg, master, opts)
	if err != nil {
		return nil, err
	}

	newServer, newWorker, err := protocolPair(cfg.Protocol)
	if err != nil {
		return nil, err
	}

	d := &Distributed{
		base:      b,
		newServer: newServer,
		newWorker: newWorker,
		host:      cfg.Host,
		port:      cfg.Port,
		factor:    cfg.ParallelismFactor,
	}
	if d.host == "" {
		d.host = netutil.HostAddress()
	}

	return d, nil
}

func protocolPair(p Protocol) (serverFunc, workerFunc, error) {
	switch p {
	case Downpour:
		return pserver.NewDownpour, worker.NewDownpour, nil
	case AEASGD:
		return pserver.NewElastic, worker.NewElastic, nil
	case EAMSGD:
		return pserver.NewElasticMomentum, worker.NewElastic, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q is not a distributed protocol", pkgerrors.ErrUnknownProtocol, p)
	}
}

// NewServer returns the parameter server of cfg's protocol seeded with
// master, for serving outside of a trainer.
func NewServer(cfg Config, master model.Model) (pserver.Service, error) {
	if master == nil {
		return nil, fmt.Errorf("%w: missing master model", pkgerrors.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	newServer, _, err := protocolPair(cfg.Protocol)
	if err != nil {
		return nil, err
	}

	return newServer(master, cfg.ps()), nil
}

// SetParallelismFactor changes the partition multiplier used by subsequent sessions.
func (d *Distributed) SetParallelismFactor(factor int) error {
	if factor < 1 {
		return fmt.Errorf("%w: parallelism_factor must be at least 1, got %d", pkgerrors.ErrInvalidConfig, factor)
	}

	d.lmu.Lock()
	defer d.lmu.Unlock()
	d.factor = factor

	return nil
}

func (d *Distributed) ParallelismFactor() int {
	d.lmu.Lock()
	defer d.lmu.Unlock()

	return d.factor
}

// Endpoint returns the host:port workers use to reach the parameter server. While a
// service runs, the port is the one actually bound.
func (d *Distributed) Endpoint() string {
	d.lmu.Lock()
	defer d.lmu.Unlock()

	port := d.port
	if d.handle != nil {
		if addr, ok := d.handle.Addr().(*net.TCPAddr); ok {
			port = addr.Port
		}
	}

	return net.JoinHostPort(d.host, strconv.Itoa(port))
}

// NumUpdates returns the update count of the most recently allocated parameter
// server, or 0 if none has been allocated yet.
func (d *Distributed) NumUpdates() uint64 {
	d.lmu.Lock()
	defer d.lmu.Unlock()

	if d.server == nil {
		return 0
	}

	return d.server.NumUpdates()
}

// StartService allocates a fresh parameter server seeded with the master model and
// serves it in the background. A running service is stopped and joined first.
func (d *Distributed) StartService(ctx context.Context) error {
	d.lmu.Lock()
	defer d.lmu.Unlock()

	if err := d.stopLocked(ctx); err != nil {
		return err
	}

	svc := d.newServer(d.master, d.cfg.ps())
	svc = middleware.Logging(d.logger, svc)
	svc = middleware.Tracing(d.tracer, svc)
	svc = middleware.Metrics(d.counter, d.latency, svc)

	addr := net.JoinHostPort("", strconv.Itoa(d.port))
	h, err := lifecycle.Start(ctx, lifecycle.Config{Address: addr, ShutdownTimeout: d.cfg.ShutdownTimeout}, svc, psapi.MakeHandler(svc, d.logger, d.host), d.logger)
	if err != nil {
		return err
	}
	d.server, d.handle = svc, h

	return nil
}

// StopService stops the running service and waits for it to terminate. It is a no-op
// when no service is running.
func (d *Distributed) StopService(ctx context.Context) error {
	d.lmu.Lock()
	defer d.lmu.Unlock()

	return d.stopLocked(ctx)
}

func (d *Distributed) stopLocked(ctx context.Context) error {
	if d.handle == nil {
		return nil
	}
	err := d.handle.Stop(ctx)
	d.handle = nil

	return err
}

func (d *Distributed) Train(ctx context.Context, ds dataset.Dataset, shuffle bool) (_ model.Model, err error) {
	sess := newSession()
	ctx, span := d.tracer.Start(ctx, "distributed-train", trace.WithAttributes(
		attribute.String("session_id", sess.id),
		attribute.String("protocol", string(d.cfg.Protocol)),
	))
	defer span.End()

	if err := d.StartService(ctx); err != nil {
		return nil, d.fail(ctx, sess, err)
	}
	defer func() {
		if serr := d.StopService(context.Background()); serr != nil {
			err = errors.Join(err, serr)
		}
	}()

	hc := d.workerHTTPClient()
	defer hc.CloseIdleConnections()
	w, err := d.allocateWorker(hc)
	if err != nil {
		return nil, d.fail(ctx, sess, err)
	}

	if shuffle {
		ds = ds.Shuffle()
	}
	ds = fitPartitions(ds, d.cfg.NumWorkers*d.ParallelismFactor())

	d.logger.Info("training session started",
		slog.String("session_id", sess.id),
		slog.String("name", sess.name),
		slog.String("endpoint", d.Endpoint()),
		slog.Int("partitions", ds.NumPartitions()),
	)
	d.publish(ctx, sessionStartedTopic, sess, map[string]any{
		"endpoint":   d.Endpoint(),
		"partitions": ds.NumPartitions(),
	})
	d.RecordTrainingStart()

	for epoch := range d.cfg.NumEpoch {
		begin := time.Now()
		if _, err := ds.MapPartitionsWithIndex(ctx, w.Train); err != nil {
			return nil, d.fail(ctx, sess, fmt.Errorf("epoch %d: %w", epoch, err))
		}
		d.endEpoch(ctx, sess, HistoryRecord{
			SessionID:  sess.id,
			Epoch:      epoch,
			Duration:   time.Since(begin),
			NumUpdates: d.NumUpdates(),
			Partitions: ds.NumPartitions(),
		})
	}

	d.RecordTrainingEnd()

	hc.CloseIdleConnections()
	if err := d.StopService(ctx); err != nil {
		return nil, d.fail(ctx, sess, err)
	}

	d.lmu.Lock()
	svc := d.server
	d.lmu.Unlock()
	m, err := svc.Model(ctx)
	if err != nil {
		return nil, d.fail(ctx, sess, err)
	}
	d.complete(ctx, sess, m, svc.NumUpdates())

	return m, nil
}

// workerHTTPClient returns the configured client, or a fresh instrumented one whose
// connection pool belongs to a single session.
func (d *Distributed) workerHTTPClient() *http.Client {
	if d.httpClient != nil {
		return d.httpClient
	}

	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone())}
}

func (d *Distributed) allocateWorker(hc *http.Client) (worker.Worker, error) {
	client, err := psapi.NewClient("http://"+d.Endpoint(), hc)
	if err != nil {
		return nil, err
	}
	state, err := model.Marshal(d.master)
	if err != nil {
		return nil, err
	}

	return d.newWorker(worker.Config{
		Master:      state,
		Optimizer:   d.cfg.Optimizer,
		Loss:        d.cfg.Loss,
		FeaturesCol: d.cfg.FeaturesCol,
		LabelCol:    d.cfg.LabelCol,
		BatchSize:   d.cfg.BatchSize,
		PS:          d.cfg.ps(),
		Connect: func(context.Context) (pserver.Client, error) {
			return client, nil
		},
		Logger: d.logger,
	})
}

// fitPartitions coalesces ds down to target partitions, or repartitions it up to target.
func fitPartitions(ds dataset.Dataset, target int) dataset.Dataset {
	if ds.NumPartitions() > target {
		return ds.Coalesce(target)
	}

	return ds.Repartition(target)
}
