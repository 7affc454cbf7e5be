package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/absmach/asgd/lifecycle"
	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pserver"
	psapi "github.com/absmach/asgd/pserver/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.DiscardHandler)

func start(t *testing.T, ctx context.Context) (pserver.Service, *lifecycle.Handle) {
	t.Helper()

	svc := pserver.NewDownpour(model.NewLinear(1), pserver.Config{LearningRate: 0.1, CommunicationWindow: 1})
	h, err := lifecycle.Start(ctx, lifecycle.Config{Address: "127.0.0.1:0"}, svc, psapi.MakeHandler(svc, logger, "test"), logger)
	require.NoError(t, err)

	return svc, h
}

func TestStartServesUntilStop(t *testing.T) {
	ctx := context.Background()
	svc, h := start(t, ctx)

	c, err := psapi.NewClient(fmt.Sprintf("http://%s", h.Addr()), nil)
	require.NoError(t, err)
	require.NoError(t, c.Commit(ctx, pserver.Commit{Delta: model.Weights{1, 1}}))
	assert.Equal(t, uint64(1), svc.NumUpdates())

	require.NoError(t, h.Stop(ctx))
	require.NoError(t, h.Stop(ctx))

	select {
	case <-svc.Done():
	default:
		t.Fatal("service was not stopped")
	}

	_, err = http.Get(fmt.Sprintf("http://%s/health", h.Addr()))
	assert.Error(t, err)
}

func TestStartReportsBindFailure(t *testing.T) {
	_, h := start(t, context.Background())
	t.Cleanup(func() { _ = h.Stop(context.Background()) })

	svc := pserver.NewDownpour(model.NewLinear(1), pserver.Config{LearningRate: 0.1, CommunicationWindow: 1})
	_, err := lifecycle.Start(context.Background(), lifecycle.Config{Address: h.Addr().String()}, svc, http.NotFoundHandler(), logger)
	assert.Error(t, err)
}

func TestAdministrativeStopShutsDownTransport(t *testing.T) {
	ctx := context.Background()
	_, h := start(t, ctx)

	c, err := psapi.NewClient(fmt.Sprintf("http://%s", h.Addr()), nil)
	require.NoError(t, err)
	require.NoError(t, c.Stop(ctx))

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("transport did not shut down after administrative stop")
	}
	assert.NoError(t, h.Stop(ctx))
}

func TestContextCancelShutsDownTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, h := start(t, ctx)

	cancel()
	assert.NoError(t, h.Wait())
}

func TestStopClosesConnectionsThatNeverSentARequest(t *testing.T) {
	svc := pserver.NewDownpour(model.NewLinear(1), pserver.Config{LearningRate: 0.1, CommunicationWindow: 1})
	cfg := lifecycle.Config{Address: "127.0.0.1:0", ShutdownTimeout: 200 * time.Millisecond}
	h, err := lifecycle.Start(context.Background(), cfg, svc, psapi.MakeHandler(svc, logger, "test"), logger)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", h.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	begin := time.Now()
	require.NoError(t, h.Stop(context.Background()))
	assert.Less(t, time.Since(begin), 3*time.Second)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	require.Error(t, err)
	var nerr net.Error
	if errors.As(err, &nerr) {
		assert.False(t, nerr.Timeout(), "server kept the connection open")
	}
}

// gate holds /commit requests until release is closed.
type gate struct {
	next    http.Handler
	arrived chan struct{}
	release chan struct{}
}

func (g gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/commit" {
		close(g.arrived)
		<-g.release
	}
	g.next.ServeHTTP(w, r)
}

func TestStopAppliesInFlightUpdates(t *testing.T) {
	ctx := context.Background()
	svc := pserver.NewDownpour(model.NewLinear(1), pserver.Config{LearningRate: 0.1, CommunicationWindow: 1})
	g := gate{next: psapi.MakeHandler(svc, logger, "test"), arrived: make(chan struct{}), release: make(chan struct{})}
	h, err := lifecycle.Start(ctx, lifecycle.Config{Address: "127.0.0.1:0"}, svc, g, logger)
	require.NoError(t, err)

	c, err := psapi.NewClient(fmt.Sprintf("http://%s", h.Addr()), nil)
	require.NoError(t, err)

	committed := make(chan error, 1)
	go func() {
		committed <- c.Commit(ctx, pserver.Commit{Delta: model.Weights{1, 1}})
	}()
	<-g.arrived

	stopped := make(chan error, 1)
	go func() { stopped <- h.Stop(ctx) }()
	time.Sleep(50 * time.Millisecond)
	close(g.release)

	require.NoError(t, <-committed)
	require.NoError(t, <-stopped)
	assert.Equal(t, uint64(1), svc.NumUpdates())

	select {
	case <-svc.Done():
	default:
		t.Fatal("service was not stopped")
	}
}
