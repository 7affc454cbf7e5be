// Package lifecycle runs a parameter server's HTTP transport in the background.
//
// Start binds the listener before returning, so an address that cannot be bound is
// reported to the caller immediately. Stop is idempotent and returns only after the
// serving goroutines have exited.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const defShutdownTimeout = 5 * time.Second

// Config describes where and how the server listens.
type Config struct {
	Address         string        `env:"ADDRESS"          envDefault:"0.0.0.0:5000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Stoppable is the part of a service the lifecycle drives.
type Stoppable interface {
	Stop(ctx context.Context) error
	Done() <-chan struct{}
}

// Handle controls one running server.
type Handle struct {
	svc      Stoppable
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
	timeout  time.Duration

	g        *errgroup.Group
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopErr  error
}

// Start binds cfg.Address and serves handler in the background. The server also shuts
// down when svc reports Done or ctx is cancelled.
func Start(ctx context.Context, cfg Config, svc Stoppable, handler http.Handler, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defShutdownTimeout
	}

	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", cfg.Address, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	h := &Handle{
		svc:      svc,
		server:   &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		listener: lis,
		logger:   logger,
		timeout:  cfg.ShutdownTimeout,
		g:        g,
		cancel:   cancel,
	}

	g.Go(func() error {
		logger.Info("parameter server listening", slog.String("address", lis.Addr().String()))
		if err := h.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		select {
		case <-svc.Done():
			logger.Info("parameter server stopped, shutting down transport")
		case <-ctx.Done():
		}

		return h.shutdown()
	})

	return h, nil
}

// Addr returns the bound listener address.
func (h *Handle) Addr() net.Addr {
	return h.listener.Addr()
}

// Stop drains in-flight requests, joins the background goroutines and then stops the
// service, so requests accepted before Stop are applied.
func (h *Handle) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		h.cancel()
		if err := h.g.Wait(); err != nil {
			h.stopErr = err
		}
		if err := h.svc.Stop(ctx); err != nil {
			h.stopErr = errors.Join(h.stopErr, fmt.Errorf("failed to stop service: %w", err))
		}
		h.logger.Info("parameter server shut down", slog.String("address", h.listener.Addr().String()))
	})

	return h.stopErr
}

// Wait blocks until the server has shut down for any reason.
func (h *Handle) Wait() error {
	return h.g.Wait()
}

func (h *Handle) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err := h.server.Shutdown(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		// Connections that never sent a request count as idle only after several
		// seconds, so they are cut here.
		h.logger.Warn("drain timed out, closing remaining connections", slog.String("timeout", h.timeout.String()))
		if err := h.server.Close(); err != nil {
			return fmt.Errorf("failed to close http server: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
}

// StopSignalHandler stops h on SIGINT or SIGTERM, or returns when ctx is done.
func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, svcName string, h *Handle) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		defer cancel()
		err := h.Stop(context.Background())
		if err != nil {
			logger.Error(fmt.Sprintf("%s service error during shutdown: %v", svcName, err))

			return fmt.Errorf("%s service shutdown error: %w", svcName, err)
		}
		logger.Info(fmt.Sprintf("%s service shutdown by signal: %s", svcName, sig))

		return nil
	case <-ctx.Done():
		return nil
	}
}
