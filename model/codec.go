package model

import (
	"fmt"
	"sync"

	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/fxamacker/cbor/v2"
)

// Envelope is the serialized form of a model.
type Envelope struct {
	Kind    string  `cbor:"kind"`
	Inputs  int     `cbor:"inputs"`
	Weights Weights `cbor:"weights"`
}

type Decoder func(env Envelope) (Model, error)

var (
	decodersMu sync.RWMutex
	decoders   = map[string]Decoder{
		KindLinear: decodeLinear,
	}
)

// Register makes a model kind available to Unmarshal.
func Register(kind string, dec Decoder) {
	decodersMu.Lock()
	defer decodersMu.Unlock()

	decoders[kind] = dec
}

func Marshal(m Model) ([]byte, error) {
	if m == nil {
		return nil, pkgerrors.ErrInvalidData
	}
	env := Envelope{
		Kind:    m.Kind(),
		Weights: m.Weights(),
	}
	if l, ok := m.(*Linear); ok {
		env.Inputs = l.Inputs()
	}

	data, err := cbor.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}

	return data, nil
}

func Unmarshal(data []byte) (Model, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}

	decodersMu.RLock()
	dec, ok := decoders[env.Kind]
	decodersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown model kind %q", pkgerrors.ErrInvalidData, env.Kind)
	}

	return dec(env)
}

func decodeLinear(env Envelope) (Model, error) {
	if env.Inputs < 0 {
		return nil, fmt.Errorf("%w: negative input count %d", pkgerrors.ErrInvalidData, env.Inputs)
	}
	if len(env.Weights) != env.Inputs+1 {
		return nil, fmt.Errorf("%w: %d weights for %d inputs", pkgerrors.ErrInvalidData, len(env.Weights), env.Inputs)
	}
	l := NewLinear(env.Inputs)
	if err := l.SetWeights(env.Weights); err != nil {
		return nil, err
	}

	return l, nil
}
