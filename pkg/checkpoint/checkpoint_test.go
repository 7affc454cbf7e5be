package checkpoint_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/absmach/asgd/pkg/checkpoint"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]checkpoint.Storage {
	t.Helper()

	bdg, err := checkpoint.NewBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdg.Close() })

	disk, err := checkpoint.New(checkpoint.Config{Type: checkpoint.TypeBadger, BadgerPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })

	return map[string]checkpoint.Storage{
		"memory":           checkpoint.NewInMemory(),
		"badger in memory": bdg,
		"badger on disk":   disk,
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	created := time.Now().Truncate(time.Second)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			cp := checkpoint.Checkpoint{
				SessionID:  "b1d10738-c5d7-4ff1-8f4d-b9328ce6f040",
				Name:       "quiet-river",
				Protocol:   "downpour",
				NumUpdates: 12,
				CreatedAt:  created,
				Model:      []byte{0xa1, 0x01, 0x02},
			}
			require.NoError(t, s.Save(ctx, cp))

			got, err := s.Load(ctx, cp.SessionID)
			require.NoError(t, err)
			assert.Equal(t, cp.Name, got.Name)
			assert.Equal(t, cp.Protocol, got.Protocol)
			assert.Equal(t, cp.NumUpdates, got.NumUpdates)
			assert.Equal(t, cp.Model, got.Model)
			assert.True(t, cp.CreatedAt.Equal(got.CreatedAt))

			cp.NumUpdates = 20
			require.NoError(t, s.Save(ctx, cp))
			got, err = s.Load(ctx, cp.SessionID)
			require.NoError(t, err)
			assert.Equal(t, uint64(20), got.NumUpdates)

			_, err = s.Load(ctx, "missing")
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

			_, err = s.Load(ctx, "")
			assert.ErrorIs(t, err, pkgerrors.ErrEmptyKey)
			assert.ErrorIs(t, s.Save(ctx, checkpoint.Checkpoint{}), pkgerrors.ErrEmptyKey)
		})
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		offset, limit uint64
		want          []string
	}{
		{offset: 0, limit: 10, want: []string{"a", "b", "c"}},
		{offset: 1, limit: 1, want: []string{"b"}},
		{offset: 2, limit: 5, want: []string{"c"}},
		{offset: 3, limit: 5, want: nil},
		{offset: 1, limit: math.MaxUint64, want: []string{"b", "c"}},
		{offset: math.MaxUint64, limit: math.MaxUint64, want: nil},
	}

	for name, s := range backends(t) {
		for _, id := range []string{"c", "a", "b"} {
			require.NoError(t, s.Save(ctx, checkpoint.Checkpoint{SessionID: id}))
		}

		for _, tc := range cases {
			cps, total, err := s.List(ctx, tc.offset, tc.limit)
			require.NoError(t, err, name)
			assert.Equal(t, uint64(3), total, name)

			var ids []string
			for _, cp := range cps {
				ids = append(ids, cp.SessionID)
			}
			assert.Equal(t, tc.want, ids, name)
		}
	}
}

func TestNewUnsupportedType(t *testing.T) {
	_, err := checkpoint.New(checkpoint.Config{Type: "postgres"})
	assert.Error(t, err)
}
