package dataset_test

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/absmach/asgd/dataset"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRows(n int) []dataset.Row {
	rows := make([]dataset.Row, n)
	for i := range rows {
		rows[i] = dataset.Row{"id": i}
	}

	return rows
}

func collectIDs(t *testing.T, ds dataset.Dataset) [][]int {
	t.Helper()

	out := make([][]int, ds.NumPartitions())
	_, err := ds.MapPartitionsWithIndex(context.Background(), func(_ context.Context, index int, rows iter.Seq[dataset.Row]) ([]byte, error) {
		for r := range rows {
			out[index] = append(out[index], r["id"].(int))
		}

		return nil, nil
	})
	require.NoError(t, err)

	return out
}

func TestNewMemorySplit(t *testing.T) {
	ds := dataset.NewMemory(makeRows(10), 3)

	assert.Equal(t, 3, ds.NumPartitions())
	assert.Equal(t, []int{4, 3, 3}, ds.PartitionSizes())
	assert.Equal(t, 10, ds.Count())
}

func TestRepartitionAndCoalesce(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		from      int
		transform func(dataset.Dataset) dataset.Dataset
		want      int
	}{
		{name: "repartition up", from: 2, transform: func(d dataset.Dataset) dataset.Dataset { return d.Repartition(8) }, want: 8},
		{name: "repartition down", from: 10, transform: func(d dataset.Dataset) dataset.Dataset { return d.Repartition(4) }, want: 4},
		{name: "coalesce down", from: 10, transform: func(d dataset.Dataset) dataset.Dataset { return d.Coalesce(4) }, want: 4},
		{name: "coalesce never grows", from: 3, transform: func(d dataset.Dataset) dataset.Dataset { return d.Coalesce(8) }, want: 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			src := dataset.NewMemory(makeRows(40), tc.from)
			got := tc.transform(src)

			assert.Equal(t, tc.want, got.NumPartitions())
			assert.Equal(t, tc.from, src.NumPartitions(), "source must not change")
			assert.Equal(t, 40, got.(*dataset.Memory).Count())
		})
	}
}

func TestCoalesceKeepsAdjacentPartitionsTogether(t *testing.T) {
	ds := dataset.NewMemory(makeRows(10), 10).Coalesce(4)

	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4}, {5, 6, 7}, {8, 9}}, collectIDs(t, ds))
}

func TestShuffleKeepsRowsAndSizes(t *testing.T) {
	src := dataset.NewMemory(makeRows(20), 4, dataset.WithSeed(7))
	shuffled := src.Shuffle()

	assert.Equal(t, src.PartitionSizes(), shuffled.(*dataset.Memory).PartitionSizes())

	seen := make(map[int]bool)
	for _, p := range collectIDs(t, shuffled) {
		for _, id := range p {
			seen[id] = true
		}
	}
	assert.Len(t, seen, 20)
	assert.NotEqual(t, collectIDs(t, src), collectIDs(t, shuffled))
}

func TestMapPartitionsWithIndex(t *testing.T) {
	ds := dataset.NewMemory(makeRows(12), 4)

	results, err := ds.MapPartitionsWithIndex(context.Background(), func(_ context.Context, index int, rows iter.Seq[dataset.Row]) ([]byte, error) {
		n := 0
		for range rows {
			n++
		}

		return []byte{byte(index), byte(n)}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0, 3}, {1, 3}, {2, 3}, {3, 3}}, results)
}

func TestMapPartitionsWithIndexFailure(t *testing.T) {
	errBoom := errors.New("boom")
	var calls atomic.Int32
	ds := dataset.NewMemory(makeRows(8), 4, dataset.WithParallelism(1))

	results, err := ds.MapPartitionsWithIndex(context.Background(), func(ctx context.Context, index int, _ iter.Seq[dataset.Row]) ([]byte, error) {
		calls.Add(1)
		if index == 1 {
			return nil, errBoom
		}

		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Nil(t, results)
	assert.LessOrEqual(t, calls.Load(), int32(4))
}

func TestColumnAccessors(t *testing.T) {
	row := dataset.Row{
		"features": []any{1.0, 2, int64(3)},
		"label":    true,
		"name":     "x",
	}

	f, err := dataset.Float64s(row, "features")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, f)

	l, err := dataset.Float64(row, "label")
	require.NoError(t, err)
	assert.Equal(t, 1.0, l)

	_, err = dataset.Float64(row, "missing")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	_, err = dataset.Float64(row, "name")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidData)
}

func TestLoadCSV(t *testing.T) {
	in := "x1,y,x2\n1,0,2\n3,1,4\n"

	rows, err := dataset.LoadCSV(strings.NewReader(in), "features", "y")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []float64{1, 2}, rows[0]["features"])
	assert.Equal(t, 0.0, rows[0]["y"])
	assert.Equal(t, []float64{3, 4}, rows[1]["features"])
	assert.Equal(t, 1.0, rows[1]["y"])

	_, err = dataset.LoadCSV(strings.NewReader(in), "features", "z")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	_, err = dataset.LoadCSV(strings.NewReader("a,b\n1,x\n"), "features", "a")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidData)
}
