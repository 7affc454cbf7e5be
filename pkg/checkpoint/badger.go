package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"

	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

const keyPrefix = "checkpoint/"

type badgerStorage struct {
	db *badger.DB
}

// NewBadger opens a badger database in dataDir. An empty dataDir keeps the
// database in memory.
func NewBadger(dataDir string) (Storage, error) {
	var opts badger.Options
	switch dataDir {
	case "":
		opts = badger.DefaultOptions("").WithInMemory(true)
	default:
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		opts = badger.DefaultOptions(dataDir)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open Badger database: %w", err)
	}

	return &badgerStorage{db: db}, nil
}

func (s *badgerStorage) Save(_ context.Context, cp Checkpoint) error {
	if cp.SessionID == "" {
		return pkgerrors.ErrEmptyKey
	}

	data, err := cbor.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+cp.SessionID), data)
	})
}

func (s *badgerStorage) Load(_ context.Context, sessionID string) (Checkpoint, error) {
	if sessionID == "" {
		return Checkpoint{}, pkgerrors.ErrEmptyKey
	}

	var cp Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + sessionID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return pkgerrors.ErrNotFound
			}

			return fmt.Errorf("failed to get checkpoint: %w", err)
		}

		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &cp)
		})
	})

	return cp, err
}

func (s *badgerStorage) List(_ context.Context, offset, limit uint64) ([]Checkpoint, uint64, error) {
	var cps []Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var cp Checkpoint
			if err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &cp)
			}); err != nil {
				return fmt.Errorf("failed to decode checkpoint %s: %w", it.Item().Key(), err)
			}
			cps = append(cps, cp)
		}

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return page(cps, offset, limit), uint64(len(cps)), nil
}

func (s *badgerStorage) Close() error {
	return s.db.Close()
}
