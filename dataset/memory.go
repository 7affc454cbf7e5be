package dataset

import (
	"context"
	"iter"
	"math/rand/v2"
	"slices"

	"golang.org/x/sync/errgroup"
)

var _ Dataset = (*Memory)(nil)

type Option func(*Memory)

// WithSeed fixes the seed used by Shuffle.
func WithSeed(seed uint64) Option {
	return func(m *Memory) {
		m.seed = seed
	}
}

// WithParallelism bounds how many partitions run at once. Zero means unbounded.
func WithParallelism(limit int) Option {
	return func(m *Memory) {
		m.parallelism = limit
	}
}

// Memory is an in-process dataset. Partitions are immutable once built.
type Memory struct {
	partitions  [][]Row
	seed        uint64
	parallelism int
}

// NewMemory splits rows into n contiguous partitions of near-equal size.
func NewMemory(rows []Row, n int, opts ...Option) *Memory {
	if n < 1 {
		n = 1
	}
	parts := make([][]Row, n)
	size, rem := len(rows)/n, len(rows)%n
	start := 0
	for i := range parts {
		end := start + size
		if i < rem {
			end++
		}
		parts[i] = rows[start:end:end]
		start = end
	}

	return FromPartitions(parts, opts...)
}

func FromPartitions(parts [][]Row, opts ...Option) *Memory {
	m := &Memory{partitions: parts}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Memory) NumPartitions() int {
	return len(m.partitions)
}

// PartitionSizes returns the number of rows held by each partition.
func (m *Memory) PartitionSizes() []int {
	sizes := make([]int, len(m.partitions))
	for i, p := range m.partitions {
		sizes[i] = len(p)
	}

	return sizes
}

func (m *Memory) Count() int {
	var n int
	for _, p := range m.partitions {
		n += len(p)
	}

	return n
}

// Repartition redistributes all rows round-robin over n partitions.
func (m *Memory) Repartition(n int) Dataset {
	if n < 1 {
		n = 1
	}
	parts := make([][]Row, n)
	i := 0
	for _, p := range m.partitions {
		for _, r := range p {
			parts[i%n] = append(parts[i%n], r)
			i++
		}
	}

	return m.derive(parts)
}

// Coalesce merges adjacent partitions down to n without moving rows between
// the merged groups. It never increases the partition count.
func (m *Memory) Coalesce(n int) Dataset {
	if n < 1 {
		n = 1
	}
	if n >= len(m.partitions) {
		return m.derive(slices.Clone(m.partitions))
	}
	parts := make([][]Row, n)
	for i, p := range m.partitions {
		g := i * n / len(m.partitions)
		parts[g] = append(parts[g], p...)
	}

	return m.derive(parts)
}

// Shuffle permutes rows across the whole dataset, keeping the partition sizes.
func (m *Memory) Shuffle() Dataset {
	rows := make([]Row, 0, m.Count())
	for _, p := range m.partitions {
		rows = append(rows, p...)
	}
	rng := rand.New(rand.NewPCG(m.seed, m.seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})

	parts := make([][]Row, len(m.partitions))
	start := 0
	for i, p := range m.partitions {
		end := start + len(p)
		parts[i] = rows[start:end:end]
		start = end
	}
	shuffled := m.derive(parts)
	shuffled.seed = rng.Uint64()

	return shuffled
}

func (m *Memory) MapPartitionsWithIndex(ctx context.Context, fn PartitionFunc) ([][]byte, error) {
	results := make([][]byte, len(m.partitions))
	g, ctx := errgroup.WithContext(ctx)
	if m.parallelism > 0 {
		g.SetLimit(m.parallelism)
	}

	for i, p := range m.partitions {
		g.Go(func() error {
			res, err := fn(ctx, i, rowsOf(p))
			if err != nil {
				return err
			}
			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (m *Memory) derive(parts [][]Row) *Memory {
	return &Memory{
		partitions:  parts,
		seed:        m.seed,
		parallelism: m.parallelism,
	}
}

func rowsOf(p []Row) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, r := range p {
			if !yield(r) {
				return
			}
		}
	}
}
