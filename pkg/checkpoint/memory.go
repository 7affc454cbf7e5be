package checkpoint

import (
	"context"
	"slices"
	"strings"
	"sync"

	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

type inMemoryStorage struct {
	sync.Mutex

	data map[string]Checkpoint
}

func NewInMemory() Storage {
	return &inMemoryStorage{
		data: make(map[string]Checkpoint),
	}
}

func (s *inMemoryStorage) Save(_ context.Context, cp Checkpoint) error {
	if cp.SessionID == "" {
		return pkgerrors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	cp.Model = slices.Clone(cp.Model)
	s.data[cp.SessionID] = cp

	return nil
}

func (s *inMemoryStorage) Load(_ context.Context, sessionID string) (Checkpoint, error) {
	if sessionID == "" {
		return Checkpoint{}, pkgerrors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	cp, ok := s.data[sessionID]
	if !ok {
		return Checkpoint{}, pkgerrors.ErrNotFound
	}
	cp.Model = slices.Clone(cp.Model)

	return cp, nil
}

func (s *inMemoryStorage) List(_ context.Context, offset, limit uint64) ([]Checkpoint, uint64, error) {
	s.Lock()
	defer s.Unlock()

	cps := make([]Checkpoint, 0, len(s.data))
	for _, cp := range s.data {
		cps = append(cps, cp)
	}
	slices.SortFunc(cps, func(a, b Checkpoint) int {
		return strings.Compare(a.SessionID, b.SessionID)
	})

	return page(cps, offset, limit), uint64(len(cps)), nil
}

func (s *inMemoryStorage) Close() error {
	return nil
}
