package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"

	"github.com/absmach/asgd"
	"github.com/absmach/asgd/cli"
	"github.com/absmach/asgd/pkg/jaeger"
	"github.com/absmach/asgd/pkg/prometheus"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	svcName   = "asgd"
	envPrefix = "ASGD_"
	pathEnv   = ".env"
)

func main() {
	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := asgd.Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	var (
		cfgPath string
		sdktp   *sdktrace.TracerProvider
	)

	rootCmd := &cobra.Command{
		Use:   "asgd",
		Short: "Asynchronous distributed training",
		Long:  `asgd trains models with asynchronous parameter server protocols (Downpour, AEASGD, EAMSGD).`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgPath != "" {
				c, err := asgd.LoadConfig(cfgPath, cfg)
				if err != nil {
					return err
				}
				cfg = *c
			}
			if cfg.Telemetry.InstanceID == "" {
				cfg.Telemetry.InstanceID = uuid.NewString()
			}

			var level slog.Level
			if err := level.UnmarshalText([]byte(cfg.Telemetry.LogLevel)); err != nil {
				return err
			}
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: level,
			}))
			slog.SetDefault(logger)

			var tp trace.TracerProvider
			switch cfg.Telemetry.OTELURL {
			case "":
				tp = noop.NewTracerProvider()
			default:
				otelURL, err := url.Parse(cfg.Telemetry.OTELURL)
				if err != nil {
					return err
				}
				sdktp, err = jaeger.NewProvider(cmd.Context(), svcName, *otelURL, cfg.Telemetry.InstanceID, cfg.Telemetry.TraceRatio)
				if err != nil {
					return err
				}
				tp = sdktp
			}

			counter, latency := prometheus.MakeMetrics(svcName, "pserver")
			cli.SetRuntime(cli.Runtime{
				Config:     cfg,
				InstanceID: cfg.Telemetry.InstanceID,
				Logger:     logger,
				Tracer:     tp.Tracer(svcName),
				Counter:    counter,
				Latency:    latency,
			})

			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "TOML configuration file")

	rootCmd.AddCommand(
		cli.NewTrainCmd(),
		cli.NewServeCmd(),
		cli.NewCheckpointsCmd(),
		cli.NewVersionCmd(),
	)

	err := rootCmd.ExecuteContext(context.Background())
	if sdktp != nil {
		if serr := sdktp.Shutdown(context.Background()); serr != nil {
			slog.Error("error shutting down tracer provider", slog.Any("error", serr))
		}
	}
	if err != nil {
		log.Fatal(err)
	}
}
