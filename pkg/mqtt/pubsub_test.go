package mqtt_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/asgd/pkg/mqtt"
	"github.com/stretchr/testify/assert"
)

func TestNewPubSubRequiresID(t *testing.T) {
	ps, err := mqtt.NewPubSub(mqtt.Config{Address: "tcp://localhost:1883"}, "", slog.New(slog.DiscardHandler))
	assert.Error(t, err)
	assert.Nil(t, ps)
}

func TestNewPubSubUnreachableBroker(t *testing.T) {
	ps, err := mqtt.NewPubSub(mqtt.Config{Address: "tcp://127.0.0.1:1", Timeout: 2 * time.Second}, "asgd-test", slog.New(slog.DiscardHandler))
	assert.Error(t, err)
	assert.Nil(t, ps)
}
