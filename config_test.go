package asgd_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/asgd"
	"github.com/absmach/asgd/pkg/mqtt"
	"github.com/absmach/asgd/trainer"
	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[trainer]
protocol = "aeasgd"
num_workers = 4
learning_rate = 0.05
communication_window = 8
rho = 0.5

[mqtt]
address = "tcp://localhost:1883"
timeout = "10s"

[checkpoint]
type = "badger"
badger_path = "/tmp/asgd"

[telemetry]
log_level = "debug"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "asgd.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig(t *testing.T) {
	base := asgd.Config{
		Trainer: trainer.Config{
			Protocol:  trainer.Downpour,
			BatchSize: 32,
			Port:      5000,
		},
		MQTT: mqtt.Config{BaseTopic: "asgd"},
	}

	cfg, err := asgd.LoadConfig(writeConfig(t, sampleConfig), base)
	require.NoError(t, err)

	assert.Equal(t, trainer.AEASGD, cfg.Trainer.Protocol)
	assert.Equal(t, 4, cfg.Trainer.NumWorkers)
	assert.InDelta(t, 0.05, cfg.Trainer.LearningRate, 1e-12)
	assert.Equal(t, 8, cfg.Trainer.CommunicationWindow)
	assert.InDelta(t, 0.5, cfg.Trainer.Rho, 1e-12)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Address)
	assert.Equal(t, 10*time.Second, cfg.MQTT.Timeout)
	assert.Equal(t, "badger", cfg.Checkpoint.Type)
	assert.Equal(t, "debug", cfg.Telemetry.LogLevel)

	assert.Equal(t, 32, cfg.Trainer.BatchSize, "keys absent from the file keep their base value")
	assert.Equal(t, 5000, cfg.Trainer.Port)
	assert.Equal(t, "asgd", cfg.MQTT.BaseTopic)
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		desc string
		path string
	}{
		{desc: "missing file", path: filepath.Join(t.TempDir(), "absent.toml")},
		{desc: "malformed toml", path: writeConfig(t, "[trainer\nprotocol = ")},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := asgd.LoadConfig(tc.path, asgd.Config{})
			assert.Error(t, err)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ASGD_TRAINER_PROTOCOL", "eamsgd")
	t.Setenv("ASGD_TRAINER_MOMENTUM", "0.7")
	t.Setenv("ASGD_MQTT_BASE_TOPIC", "lab")
	t.Setenv("ASGD_CHECKPOINT_TYPE", "badger")
	t.Setenv("ASGD_LOG_LEVEL", "warn")

	var cfg asgd.Config
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Prefix: "ASGD_"}))

	assert.Equal(t, trainer.EAMSGD, cfg.Trainer.Protocol)
	assert.InDelta(t, 0.7, cfg.Trainer.Momentum, 1e-12)
	assert.Equal(t, 5000, cfg.Trainer.Port)
	assert.Equal(t, 2, cfg.Trainer.ParallelismFactor)
	assert.Equal(t, "lab", cfg.MQTT.BaseTopic)
	assert.Equal(t, "badger", cfg.Checkpoint.Type)
	assert.Equal(t, "warn", cfg.Telemetry.LogLevel)
	require.NoError(t, cfg.Trainer.Validate())
}
