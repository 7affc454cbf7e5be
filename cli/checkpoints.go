package cli

import (
	"context"
	"errors"

	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pkg/checkpoint"
	"github.com/spf13/cobra"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10
)

type checkpointPage struct {
	Total       uint64                  `json:"total"`
	Offset      uint64                  `json:"offset"`
	Limit       uint64                  `json:"limit"`
	Checkpoints []checkpoint.Checkpoint `json:"checkpoints"`
}

type checkpointView struct {
	checkpoint.Checkpoint
	Kind    string        `json:"kind"`
	Weights model.Weights `json:"weights"`
}

func NewCheckpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints [list|view]",
		Short: "Checkpoints manager",
		Long:  `List and view saved master models.`,
	}

	var offset, limit uint64

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List checkpoints",
		Long:  `List checkpoints ordered by session ID.`,
		Run: func(cmd *cobra.Command, _ []string) {
			page, err := listCheckpoints(cmd.Context(), offset, limit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}
	listCmd.Flags().Uint64VarP(&offset, "offset", "o", defOffset, "offset")
	listCmd.Flags().Uint64VarP(&limit, "limit", "l", defLimit, "limit")

	viewCmd := &cobra.Command{
		Use:   "view <session_id>",
		Short: "View checkpoint",
		Long:  `View a checkpoint together with its model weights.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			v, err := viewCheckpoint(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, v)
		},
	}

	cmd.AddCommand(listCmd, viewCmd)

	return cmd
}

func listCheckpoints(ctx context.Context, offset, limit uint64) (page checkpointPage, err error) {
	store, err := checkpoint.New(rt.Config.Checkpoint)
	if err != nil {
		return page, err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	cps, total, err := store.List(ctx, offset, limit)
	if err != nil {
		return page, err
	}

	return checkpointPage{Total: total, Offset: offset, Limit: limit, Checkpoints: cps}, nil
}

func viewCheckpoint(ctx context.Context, sessionID string) (v checkpointView, err error) {
	store, err := checkpoint.New(rt.Config.Checkpoint)
	if err != nil {
		return v, err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	cp, err := store.Load(ctx, sessionID)
	if err != nil {
		return v, err
	}
	m, err := model.Unmarshal(cp.Model)
	if err != nil {
		return v, err
	}

	return checkpointView{Checkpoint: cp, Kind: m.Kind(), Weights: m.Weights()}, nil
}
