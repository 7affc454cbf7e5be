package worker

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/model"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/absmach/asgd/pserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	featuresCol = "features"
	labelCol    = "label"
)

func rows(n int) iter.Seq[dataset.Row] {
	rs := make([]dataset.Row, n)
	for i := range n {
		x := float64(i%5) / 5
		rs[i] = dataset.Row{featuresCol: []float64{x}, labelCol: 2*x + 1}
	}

	return slices.Values(rs)
}

func testConfig(t *testing.T, ps pserver.Config) Config {
	t.Helper()

	master, err := model.Marshal(model.NewLinear(1))
	require.NoError(t, err)

	return Config{
		Master:      master,
		Optimizer:   "sgd",
		Loss:        model.LossMSE,
		FeaturesCol: featuresCol,
		LabelCol:    labelCol,
		BatchSize:   1,
		PS:          ps,
	}
}

func TestBatches(t *testing.T) {
	var sizes []int
	for b, err := range batches(rows(5), featuresCol, labelCol, 2) {
		require.NoError(t, err)
		sizes = append(sizes, len(b))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)

	bad := slices.Values([]dataset.Row{{featuresCol: []float64{1}}})
	for _, err := range batches(bad, featuresCol, labelCol, 2) {
		assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
	}
}

func TestConfigValidation(t *testing.T) {
	ps := pserver.Config{LearningRate: 0.1, CommunicationWindow: 1}
	connect := func(context.Context) (pserver.Client, error) { return nil, nil }

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing master", mutate: func(c *Config) { c.Master = nil }},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }},
		{name: "missing label column", mutate: func(c *Config) { c.LabelCol = "" }},
		{name: "missing connect", mutate: func(c *Config) { c.Connect = nil }},
		{name: "zero window", mutate: func(c *Config) { c.PS.CommunicationWindow = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t, ps)
			cfg.Connect = connect
			tc.mutate(&cfg)

			_, err := NewDownpour(cfg)
			assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)
		})
	}
}

func TestSingleReducesLoss(t *testing.T) {
	cfg := testConfig(t, pserver.Config{LearningRate: 0.1})
	w, err := NewSingle(cfg)
	require.NoError(t, err)

	data, err := w.Train(context.Background(), 0, rows(200))
	require.NoError(t, err)
	trained, err := model.Unmarshal(data)
	require.NoError(t, err)

	var batch []model.Sample
	for b, err := range batches(rows(5), featuresCol, labelCol, 5) {
		require.NoError(t, err)
		batch = b
	}
	initial := model.NewLinear(1)
	_, before, err := initial.Gradient(model.LossMSE, batch)
	require.NoError(t, err)
	_, after, err := trained.Gradient(model.LossMSE, batch)
	require.NoError(t, err)
	assert.Less(t, after, before)
}

func TestDownpourSyncCount(t *testing.T) {
	cases := []struct {
		name   string
		rows   int
		window int
		syncs  uint64
	}{
		{name: "full windows", rows: 4, window: 2, syncs: 2},
		{name: "partial last window", rows: 5, window: 2, syncs: 3},
		{name: "window larger than partition", rows: 3, window: 10, syncs: 1},
		{name: "empty partition", rows: 0, window: 2, syncs: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ps := pserver.Config{LearningRate: 0.1, CommunicationWindow: tc.window}
			svc := pserver.NewDownpour(model.NewLinear(1), ps)
			cfg := testConfig(t, ps)
			cfg.Connect = func(context.Context) (pserver.Client, error) { return pserver.Local(svc), nil }

			w, err := NewDownpour(cfg)
			require.NoError(t, err)
			_, err = w.Train(context.Background(), 0, rows(tc.rows))
			require.NoError(t, err)

			assert.Equal(t, tc.syncs, svc.NumUpdates())
		})
	}
}

func TestDownpourMovesMaster(t *testing.T) {
	ps := pserver.Config{LearningRate: 0.1, CommunicationWindow: 3}
	svc := pserver.NewDownpour(model.NewLinear(1), ps)
	cfg := testConfig(t, ps)
	cfg.Connect = func(context.Context) (pserver.Client, error) { return pserver.Local(svc), nil }

	w, err := NewDownpour(cfg)
	require.NoError(t, err)
	data, err := w.Train(context.Background(), 0, rows(9))
	require.NoError(t, err)

	local, err := model.Unmarshal(data)
	require.NoError(t, err)
	center, err := svc.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, center, local.Weights())
	assert.NotEqual(t, model.Weights{0, 0}, center)
}

func TestElasticExchanges(t *testing.T) {
	cases := []struct {
		name     string
		momentum bool
	}{
		{name: "without momentum"},
		{name: "with momentum", momentum: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ps := pserver.Config{LearningRate: 0.1, CommunicationWindow: 2, Rho: 0.1, Momentum: 0.5}
			svc := pserver.NewElastic(model.NewLinear(1), ps)
			if tc.momentum {
				svc = pserver.NewElasticMomentum(model.NewLinear(1), ps)
			}
			cfg := testConfig(t, ps)
			cfg.Connect = func(context.Context) (pserver.Client, error) { return pserver.Local(svc), nil }

			w, err := NewElastic(cfg)
			require.NoError(t, err)
			_, err = w.Train(context.Background(), 0, rows(7))
			require.NoError(t, err)

			assert.Equal(t, uint64(4), svc.NumUpdates())
			center, err := svc.Pull(context.Background())
			require.NoError(t, err)
			assert.NotEqual(t, model.Weights{0, 0}, center)
		})
	}
}

func TestConnectFailurePropagates(t *testing.T) {
	errDial := errors.New("dial failed")
	cfg := testConfig(t, pserver.Config{LearningRate: 0.1, CommunicationWindow: 1})
	cfg.Connect = func(context.Context) (pserver.Client, error) { return nil, errDial }

	for _, newWorker := range []func(Config) (Worker, error){NewDownpour, NewElastic} {
		w, err := newWorker(cfg)
		require.NoError(t, err)
		_, err = w.Train(context.Background(), 0, rows(2))
		assert.ErrorIs(t, err, errDial)
	}
}
