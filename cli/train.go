package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/absmach/asgd/dataset"
	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pkg/checkpoint"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/absmach/asgd/pkg/mqtt"
	"github.com/absmach/asgd/trainer"
	"github.com/spf13/cobra"
)

type trainSummary struct {
	Protocol     trainer.Protocol        `json:"protocol"`
	Rows         int                     `json:"rows"`
	TrainingTime string                  `json:"training_time"`
	NumUpdates   uint64                  `json:"num_updates"`
	History      []trainer.HistoryRecord `json:"history"`
	Weights      model.Weights           `json:"weights"`
}

func NewTrainCmd() *cobra.Command {
	var (
		dataPath string
		shuffle  bool
	)

	cmd := &cobra.Command{
		Use:   "train --data <file.csv>",
		Short: "Train a model",
		Long: `Train a linear model on a CSV file with the configured protocol.

Workers run in-process, one per dataset partition, and synchronize with a
parameter server served on the configured port.

Examples:
  # Downpour with the defaults
  asgd train --data points.csv

  # Elastic averaging configured from a file
  asgd --config asgd.toml train --data points.csv --shuffle`,
		Run: func(cmd *cobra.Command, _ []string) {
			if dataPath == "" {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			summary, err := train(cmd.Context(), dataPath, shuffle)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, summary)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "CSV file with a header row")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "shuffle the dataset before partitioning")

	return cmd
}

func train(ctx context.Context, path string, shuffle bool) (summary trainSummary, err error) {
	cfg := rt.Config.Trainer

	f, err := os.Open(path)
	if err != nil {
		return summary, err
	}
	defer f.Close()

	rows, err := dataset.LoadCSV(f, cfg.FeaturesCol, cfg.LabelCol)
	if err != nil {
		return summary, err
	}
	if len(rows) == 0 {
		return summary, fmt.Errorf("%w: %s has no rows", pkgerrors.ErrInvalidData, path)
	}
	features, err := dataset.Float64s(rows[0], cfg.FeaturesCol)
	if err != nil {
		return summary, err
	}

	store, err := checkpoint.New(rt.Config.Checkpoint)
	if err != nil {
		return summary, err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	opts := []trainer.Option{
		trainer.WithLogger(rt.Logger),
		trainer.WithTracer(rt.Tracer),
		trainer.WithMetrics(rt.Counter, rt.Latency),
		trainer.WithCheckpoints(store),
	}
	ps, err := openPubSub()
	if err != nil {
		return summary, err
	}
	if ps != nil {
		defer disconnect(ps)
		opts = append(opts, trainer.WithNotifier(ps, rt.Config.MQTT.BaseTopic))
	}

	t, err := trainer.New(cfg, model.NewLinear(len(features)), opts...)
	if err != nil {
		return summary, err
	}

	ds := dataset.NewMemory(rows, cfg.NumWorkers, dataset.WithSeed(cfg.ShuffleSeed))
	m, err := t.Train(ctx, ds, shuffle)
	if err != nil {
		return summary, err
	}

	elapsed, err := t.TrainingTime()
	if err != nil {
		return summary, err
	}
	summary = trainSummary{
		Protocol:     cfg.Protocol,
		Rows:         len(rows),
		TrainingTime: elapsed.String(),
		History:      t.History(),
		Weights:      m.Weights(),
	}
	if d, ok := t.(interface{ NumUpdates() uint64 }); ok {
		summary.NumUpdates = d.NumUpdates()
	}

	return summary, nil
}

// openPubSub connects to the configured broker. It returns nil when no broker is set.
func openPubSub() (mqtt.PubSub, error) {
	if rt.Config.MQTT.Address == "" {
		return nil, nil
	}

	return mqtt.NewPubSub(rt.Config.MQTT, rt.InstanceID, rt.Logger)
}

func disconnect(ps mqtt.PubSub) {
	if err := ps.Disconnect(context.Background()); err != nil {
		rt.Logger.Warn("failed to disconnect from mqtt broker", slog.Any("error", err))
	}
}
