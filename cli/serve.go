package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/absmach/asgd/lifecycle"
	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pkg/checkpoint"
	"github.com/absmach/asgd/pserver/api"
	"github.com/absmach/asgd/pserver/middleware"
	"github.com/absmach/asgd/trainer"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	svcName      = "pserver"
	controlTopic = "%s/control/stop"
)

type serveSummary struct {
	SessionID  string           `json:"session_id"`
	Protocol   trainer.Protocol `json:"protocol"`
	Address    string           `json:"address"`
	NumUpdates uint64           `json:"num_updates"`
	Weights    model.Weights    `json:"weights"`
}

func NewServeCmd() *cobra.Command {
	var inputs int

	cmd := &cobra.Command{
		Use:   "serve --inputs <n>",
		Short: "Serve a parameter server",
		Long: `Serve a standalone parameter server for a linear model with n inputs.

The server runs until SIGINT or SIGTERM, an administrative POST /stop, or a
message on the <base_topic>/control/stop MQTT topic. The final master model is
then checkpointed.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if inputs < 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			summary, err := serve(cmd.Context(), inputs, nil)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, summary)
		},
	}

	cmd.Flags().IntVar(&inputs, "inputs", 0, "number of model inputs")

	return cmd
}

// serve blocks until the parameter server shuts down. onListen, when set, receives
// the bound address.
func serve(ctx context.Context, inputs int, onListen func(net.Addr)) (summary serveSummary, err error) {
	cfg := rt.Config.Trainer

	svc, err := trainer.NewServer(cfg, model.NewLinear(inputs))
	if err != nil {
		return summary, err
	}
	svc = middleware.Logging(rt.Logger, svc)
	svc = middleware.Tracing(rt.Tracer, svc)
	svc = middleware.Metrics(rt.Counter, rt.Latency, svc)

	store, err := checkpoint.New(rt.Config.Checkpoint)
	if err != nil {
		return summary, err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	h, err := lifecycle.Start(ctx, lifecycle.Config{Address: addr, ShutdownTimeout: cfg.ShutdownTimeout}, svc, api.MakeHandler(svc, rt.Logger, rt.InstanceID), rt.Logger)
	if err != nil {
		return summary, err
	}
	if onListen != nil {
		onListen(h.Addr())
	}

	ps, err := openPubSub()
	if err != nil {
		return summary, errors.Join(err, h.Stop(context.Background()))
	}
	if ps != nil {
		defer disconnect(ps)
		topic := fmt.Sprintf(controlTopic, rt.Config.MQTT.BaseTopic)
		if err := ps.Subscribe(ctx, topic, func(string, map[string]any) error {
			rt.Logger.Info("stop requested over mqtt", slog.String("topic", topic))
			cancel()

			return nil
		}); err != nil {
			return summary, errors.Join(err, h.Stop(context.Background()))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return lifecycle.StopSignalHandler(gctx, cancel, rt.Logger, svcName, h)
	})
	g.Go(func() error {
		defer cancel()

		return h.Wait()
	})
	if err := g.Wait(); err != nil {
		rt.Logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
	if err := h.Stop(context.Background()); err != nil {
		return summary, err
	}

	m, err := svc.Model(context.Background())
	if err != nil {
		return summary, err
	}
	data, err := model.Marshal(m)
	if err != nil {
		return summary, err
	}
	summary = serveSummary{
		SessionID:  uuid.NewString(),
		Protocol:   cfg.Protocol,
		Address:    h.Addr().String(),
		NumUpdates: svc.NumUpdates(),
		Weights:    m.Weights(),
	}
	if err := store.Save(context.Background(), checkpoint.Checkpoint{
		SessionID:  summary.SessionID,
		Name:       svcName,
		Protocol:   string(cfg.Protocol),
		NumUpdates: summary.NumUpdates,
		CreatedAt:  time.Now(),
		Model:      data,
	}); err != nil {
		return summary, err
	}

	return summary, nil
}
