package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/absmach/asgd"
	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pkg/checkpoint"
	"github.com/absmach/asgd/pserver"
	psapi "github.com/absmach/asgd/pserver/api"
	"github.com/absmach/asgd/trainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRuntime(t *testing.T, p trainer.Protocol) {
	t.Helper()

	SetRuntime(Runtime{
		Config: asgd.Config{
			Trainer: trainer.Config{
				Protocol:            p,
				NumWorkers:          2,
				BatchSize:           2,
				FeaturesCol:         "features",
				LabelCol:            "y",
				NumEpoch:            2,
				Loss:                model.LossMSE,
				Optimizer:           "sgd",
				LearningRate:        0.05,
				CommunicationWindow: 2,
				Rho:                 0.1,
				ParallelismFactor:   1,
				Host:                "127.0.0.1",
				Port:                0,
			},
			Checkpoint: checkpoint.Config{Type: checkpoint.TypeBadger, BadgerPath: t.TempDir()},
		},
		InstanceID: "test",
		Logger:     slog.New(slog.DiscardHandler),
	})
}

func writeCSV(t *testing.T, n int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("x1,x2,y\n")
	for i := range n {
		x1, x2 := float64(i%5)/5, float64(i%3)/3
		fmt.Fprintf(&b, "%g,%g,%g\n", x1, x2, 2*x1-x2+0.5)
	}

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	return path
}

func TestTrain(t *testing.T) {
	cases := []struct {
		desc     string
		protocol trainer.Protocol
		updates  bool
	}{
		{desc: "single", protocol: trainer.Single},
		{desc: "downpour", protocol: trainer.Downpour, updates: true},
		{desc: "aeasgd", protocol: trainer.AEASGD, updates: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			testRuntime(t, tc.protocol)

			summary, err := train(context.Background(), writeCSV(t, 20), true)
			require.NoError(t, err)

			assert.Equal(t, tc.protocol, summary.Protocol)
			assert.Equal(t, 20, summary.Rows)
			assert.Len(t, summary.Weights, 3)
			assert.Len(t, summary.History, 2)
			if tc.updates {
				assert.Positive(t, summary.NumUpdates)
			}

			page, err := listCheckpoints(context.Background(), 0, 10)
			require.NoError(t, err)
			require.Equal(t, uint64(1), page.Total)

			v, err := viewCheckpoint(context.Background(), page.Checkpoints[0].SessionID)
			require.NoError(t, err)
			assert.Equal(t, model.KindLinear, v.Kind)
			assert.Equal(t, summary.Weights, v.Weights)
			assert.Equal(t, string(tc.protocol), v.Protocol)
		})
	}
}

func TestTrainErrors(t *testing.T) {
	testRuntime(t, trainer.Downpour)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("x1,y\n"), 0o600))
	noLabel := filepath.Join(t.TempDir(), "nolabel.csv")
	require.NoError(t, os.WriteFile(noLabel, []byte("x1,x2\n1,2\n"), 0o600))

	for _, path := range []string{filepath.Join(t.TempDir(), "absent.csv"), empty, noLabel} {
		_, err := train(context.Background(), path, false)
		assert.Error(t, err, path)
	}
}

func TestTrainCmdPrintsSummary(t *testing.T) {
	testRuntime(t, trainer.Single)

	cmd := NewTrainCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data", writeCSV(t, 10)})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "training_time")
	assert.Contains(t, out.String(), "weights")
}

func TestTrainCmdUsage(t *testing.T) {
	cmd := NewTrainCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "usage")
}

func TestServe(t *testing.T) {
	testRuntime(t, trainer.Downpour)

	addrs := make(chan net.Addr, 1)
	type result struct {
		summary serveSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := serve(context.Background(), 2, func(a net.Addr) { addrs <- a })
		done <- result{s, err}
	}()

	c, err := psapi.NewClient("http://"+(<-addrs).String(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Commit(ctx, pserver.Commit{WorkerID: 1, Delta: model.Weights{1, 2, 3}}))
	require.NoError(t, c.Commit(ctx, pserver.Commit{WorkerID: 2, Delta: model.Weights{1, 0, -1}}))
	require.NoError(t, c.Stop(ctx))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, uint64(2), res.summary.NumUpdates)
	assert.Equal(t, model.Weights{2, 2, 2}, res.summary.Weights)

	v, err := viewCheckpoint(ctx, res.summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v.NumUpdates)
	assert.Equal(t, model.Weights{2, 2, 2}, v.Weights)
}

func TestServeCancelled(t *testing.T) {
	testRuntime(t, trainer.AEASGD)

	ctx, cancel := context.WithCancel(context.Background())
	summary, err := serve(ctx, 1, func(net.Addr) { cancel() })
	require.NoError(t, err)
	assert.Zero(t, summary.NumUpdates)
	assert.Equal(t, model.Weights{0, 0}, summary.Weights)
}
