package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
	"github.com/randalmurphal/feedgraph/pkg/pipeline"
)

func newNewsCommand(opts *options) *cobra.Command {
	var feedURLs, keywords []string
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Fetch, filter, summarize and review RSS articles",
		Example: `  feedgraph news --feed https://hnrss.org/frontpage --keyword AI --keyword robotics
  feedgraph news -c settings.yaml --checkpoint-db runs.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			cfg.RSSURLs = append(cfg.RSSURLs, feedURLs...)
			cfg.Keywords = append(cfg.Keywords, keywords...)
			if err := cfg.ValidateNews(); err != nil {
				return err
			}
			return execute(cmd, opts, cfg, pipeline.GraphNews, pipeline.NewsSeed(cfg, time.Now()))
		},
	}
	cmd.Flags().StringSliceVar(&feedURLs, "feed", nil, "RSS feed URL (repeatable)")
	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "keyword to filter articles by (repeatable)")
	return cmd
}

func newWritingCommand(opts *options) *cobra.Command {
	var knowledgeBase string
	cmd := &cobra.Command{
		Use:   "writing [file]",
		Short: "Assess an IELTS writing task",
		Long:  "Assess an IELTS writing task read from file, or from stdin when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			if knowledgeBase != "" {
				cfg.Writing.KnowledgeBase = knowledgeBase
			}

			text, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("no text to assess")
			}
			return execute(cmd, opts, cfg, pipeline.GraphWriting, pipeline.WritingSeed(text, time.Now()))
		},
	}
	cmd.Flags().StringVar(&knowledgeBase, "knowledge-base", "", "rubric file used as prompt context")
	return cmd
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

// execute runs a fresh pipeline and writes its report.
func execute(cmd *cobra.Command, opts *options, cfg pipeline.Settings, graphName string, seed state.State) error {
	logger, err := opts.logger()
	if err != nil {
		return err
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
	store, err := openStore(cfg.CheckpointPath)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	runID := uuid.New().String()
	ctx := flowgraph.NewContext(cmd.Context(),
		flowgraph.WithLogger(logger),
		flowgraph.WithLLM(client),
		flowgraph.WithCheckpointer(store),
		flowgraph.WithContextRunID(runID),
	)
	runOpts := append(pipeline.RunOptions(cfg, graphName, runID, store),
		flowgraph.WithObservabilityLogger(logger),
		flowgraph.WithMetrics(opts.metrics),
		flowgraph.WithTracing(opts.tracing),
	)

	result, err := graph.Run(ctx, seed, runOpts...)
	if err != nil {
		return runFailed(cmd, err, runID, store)
	}
	return writeReport(cmd, cfg.ReportPath, result)
}

func runFailed(cmd *cobra.Command, err error, runID string, store checkpoint.Store) error {
	if store != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "run %s stopped; continue it with: feedgraph resume %s\n", runID, runID)
	}
	return fmt.Errorf("run %s: %w", runID, err)
}

func writeReport(cmd *cobra.Command, path string, result state.State) error {
	report := result.String(pipeline.FieldReport)
	if report == "" {
		return errors.New("run finished without a report")
	}
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), report)
		return err
	}
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", path)
	return nil
}
