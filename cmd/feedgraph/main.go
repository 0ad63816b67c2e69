// Command feedgraph runs the news and writing pipelines.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "feedgraph",
		Short:         "LLM agent pipelines for news feeds and writing assessment",
		Long:          "feedgraph fetches, filters, summarizes and reviews RSS articles, or assesses an IELTS writing task, with a graph of language-model agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bind(root)

	root.AddCommand(newNewsCommand(opts))
	root.AddCommand(newWritingCommand(opts))
	root.AddCommand(newResumeCommand(opts))
	root.AddCommand(newCheckpointsCommand(opts))
	return root
}
