package asgd

import (
	"fmt"
	"os"

	"github.com/absmach/asgd/pkg/checkpoint"
	"github.com/absmach/asgd/pkg/mqtt"
	"github.com/absmach/asgd/trainer"
	"github.com/pelletier/go-toml"
)

// Config is the complete runtime configuration. Environment variables are parsed
// first; a TOML file may then override any table.
type Config struct {
	Trainer    trainer.Config    `envPrefix:"TRAINER_"    toml:"trainer"`
	MQTT       mqtt.Config       `envPrefix:"MQTT_"       toml:"mqtt"`
	Checkpoint checkpoint.Config `envPrefix:"CHECKPOINT_" toml:"checkpoint"`
	Telemetry  TelemetryConfig   `toml:"telemetry"`
}

type TelemetryConfig struct {
	LogLevel   string  `env:"LOG_LEVEL"   envDefault:"info" toml:"log_level"`
	OTELURL    string  `env:"OTEL_URL"    envDefault:""     toml:"otel_url"`
	TraceRatio float64 `env:"TRACE_RATIO" envDefault:"0"    toml:"trace_ratio"`
	InstanceID string  `env:"INSTANCE_ID" envDefault:""     toml:"instance_id"`
}

// LoadConfig reads the TOML file at path. Tables and keys missing from the file keep
// the values already present in base.
func LoadConfig(path string, base Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg := base
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
