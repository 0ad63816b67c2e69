package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/feedgraph/pkg/pipeline"
)

func newResumeCommand(opts *options) *cobra.Command {
	var graphName, fromNode string
	var replay bool
	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Continue an interrupted run from its checkpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			store, err := requireStore(cfg.CheckpointPath)
			if err != nil {
				return err
			}
			defer store.Close()

			latest, err := latestCheckpoint(cmd.Context(), store, runID)
			if err != nil {
				return err
			}
			if graphName == "" {
				graphName = latest.Graph
			}
			if fromNode == "" {
				fromNode = latest.NodeID
			}

			flush, err := opts.telemetry(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer flush()
			client, err := pipeline.NewClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			graph, err := pipeline.Build(graphName, cfg, nil)
			if err != nil {
				return err
			}

			ctx := flowgraph.NewContext(cmd.Context(),
				flowgraph.WithLogger(logger),
				flowgraph.WithLLM(client),
				flowgraph.WithCheckpointer(store),
				flowgraph.WithContextRunID(runID),
			)
			resumeOpts := []flowgraph.ResumeOption{
				flowgraph.WithResumeRunOptions(
					flowgraph.WithMaxSteps(cfg.MaxSteps),
					flowgraph.WithGraphName(graphName),
					flowgraph.WithObservabilityLogger(logger),
					flowgraph.WithMetrics(opts.metrics),
					flowgraph.WithTracing(opts.tracing),
				),
			}
			if replay {
				resumeOpts = append(resumeOpts, flowgraph.WithReplayNode())
			}

			logger.Info("resuming run", "run_id", runID, "graph", graphName, "checkpoint", fromNode)
			result, err := graph.ResumeFrom(ctx, store, runID, fromNode, resumeOpts...)
			if err != nil {
				return runFailed(cmd, err, runID, store)
			}
			return writeReport(cmd, cfg.ReportPath, result)
		},
	}
	cmd.Flags().StringVar(&graphName, "graph", "", "pipeline to resume, taken from the checkpoint when empty")
	cmd.Flags().StringVar(&fromNode, "from", "", "checkpointed node to continue after, the latest when empty")
	cmd.Flags().BoolVar(&replay, "replay", false, "run the checkpointed node again")
	return cmd
}

// latestCheckpoint loads the most recent checkpoint of a run.
func latestCheckpoint(ctx context.Context, store checkpoint.Store, runID string) (*checkpoint.Checkpoint, error) {
	infos, err := store.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: %s", flowgraph.ErrNoCheckpoints, runID)
	}
	data, err := store.Load(ctx, runID, infos[len(infos)-1].NodeID)
	if err != nil {
		return nil, err
	}
	return checkpoint.Unmarshal(data)
}

func newCheckpointsCommand(opts *options) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "checkpoints [run-id]",
		Short: "List stored runs, or the checkpoints of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			store, err := requireStore(cfg.CheckpointPath)
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 0 {
				runs, err := store.Runs(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "RUN\tCHECKPOINTS\tLAST NODE\tUPDATED")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.RunID, r.Checkpoints, r.LastNodeID, r.UpdatedAt.Format(time.DateTime))
				}
				return nil
			}

			runID := args[0]
			if remove {
				if err := store.DeleteRun(cmd.Context(), runID); err != nil {
					return err
				}
				fmt.Fprintf(w, "deleted checkpoints of run %s\n", runID)
				return nil
			}
			infos, err := store.List(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				return fmt.Errorf("%w: %s", flowgraph.ErrNoCheckpoints, runID)
			}
			fmt.Fprintln(w, "SEQ\tNODE\tSIZE\tSAVED")
			for _, info := range infos {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", info.Sequence, info.NodeID, info.Size, info.Timestamp.Format(time.DateTime))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "delete the checkpoints of the run")
	return cmd
}
