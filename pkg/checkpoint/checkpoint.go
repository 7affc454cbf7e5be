// Package checkpoint persists serialized master models at the end of a session.
package checkpoint

import (
	"context"
	"fmt"
	"io"
	"time"
)

const (
	TypeMemory = "memory"
	TypeBadger = "badger"
)

// Checkpoint is one saved master model.
type Checkpoint struct {
	SessionID  string    `cbor:"session_id"  json:"session_id"`
	Name       string    `cbor:"name"        json:"name"`
	Protocol   string    `cbor:"protocol"    json:"protocol"`
	NumUpdates uint64    `cbor:"num_updates" json:"num_updates"`
	CreatedAt  time.Time `cbor:"created_at"  json:"created_at"`
	Model      []byte    `cbor:"model"       json:"-"`
}

type Storage interface {
	// Save stores cp under its session ID, replacing an earlier checkpoint of the same session.
	Save(ctx context.Context, cp Checkpoint) error
	Load(ctx context.Context, sessionID string) (Checkpoint, error)
	// List returns checkpoints ordered by session ID and the total count.
	List(ctx context.Context, offset, limit uint64) ([]Checkpoint, uint64, error)
	io.Closer
}

type Config struct {
	Type       string `env:"TYPE"        envDefault:"memory"      toml:"type"`
	BadgerPath string `env:"BADGER_PATH" envDefault:"./data/asgd" toml:"badger_path"`
}

func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return NewInMemory(), nil
	case TypeBadger:
		return NewBadger(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("unsupported checkpoint storage type: %s", cfg.Type)
	}
}

func page(cps []Checkpoint, offset, limit uint64) []Checkpoint {
	total := uint64(len(cps))
	if offset >= total {
		return nil
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}

	return cps[offset:end]
}
