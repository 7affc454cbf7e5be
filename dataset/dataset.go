// Package dataset defines the partitioned dataset the trainers distribute across
// workers, together with an in-memory engine that runs partitions in parallel.
package dataset

import (
	"context"
	"fmt"
	"iter"

	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

// Row is one record, addressed by column name.
type Row map[string]any

// PartitionFunc is run once per partition and returns that partition's result.
type PartitionFunc func(ctx context.Context, index int, rows iter.Seq[Row]) ([]byte, error)

// Dataset transforms never mutate the receiver; they return a new handle.
type Dataset interface {
	NumPartitions() int
	Repartition(n int) Dataset
	Coalesce(n int) Dataset
	Shuffle() Dataset
	// MapPartitionsWithIndex runs fn over every partition concurrently and collects
	// the results in partition order. It fails if any partition fails.
	MapPartitionsWithIndex(ctx context.Context, fn PartitionFunc) ([][]byte, error)
}

func Float64(row Row, col string) (float64, error) {
	v, ok := row[col]
	if !ok {
		return 0, fmt.Errorf("%w: missing column %q", pkgerrors.ErrNotFound, col)
	}

	return toFloat(v, col)
}

func Float64s(row Row, col string) ([]float64, error) {
	v, ok := row[col]
	if !ok {
		return nil, fmt.Errorf("%w: missing column %q", pkgerrors.ErrNotFound, col)
	}

	switch vals := v.(type) {
	case []float64:
		out := make([]float64, len(vals))
		copy(out, vals)

		return out, nil
	case []any:
		out := make([]float64, len(vals))
		for i, e := range vals {
			f, err := toFloat(e, col)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}

		return out, nil
	default:
		f, err := toFloat(v, col)
		if err != nil {
			return nil, err
		}

		return []float64{f}, nil
	}
}

func toFloat(v any, col string) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}

		return 0, nil
	default:
		return 0, fmt.Errorf("%w: column %q holds %T", pkgerrors.ErrInvalidData, col, v)
	}
}
