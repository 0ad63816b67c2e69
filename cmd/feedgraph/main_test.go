package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/checkpoint"
	flowerrors "github.com/randalmurphal/feedgraph/pkg/flowgraph/errors"
	"github.com/randalmurphal/feedgraph/pkg/pipeline"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--env-file", ""))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := checkpoint.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	for i, node := range []string{pipeline.NodeKnowledgeBase, pipeline.NodePreprocessing} {
		data, err := checkpoint.New("run-1", node, i+1, []byte(`{}`), pipeline.NodeTextAnalysis).
			WithGraph(pipeline.GraphWriting).
			Marshal()
		require.NoError(t, err)
		require.NoError(t, store.Save(context.Background(), "run-1", node, data))
	}
	return path
}

func TestCheckpointsCommand(t *testing.T) {
	db := seedStore(t)

	out, err := runCommand(t, "", "checkpoints", "--checkpoint-db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, pipeline.NodePreprocessing)

	out, err = runCommand(t, "", "checkpoints", "run-1", "--checkpoint-db", db)
	require.NoError(t, err)
	assert.Contains(t, out, pipeline.NodeKnowledgeBase)
	assert.Contains(t, out, pipeline.NodePreprocessing)

	_, err = runCommand(t, "", "checkpoints", "run-1", "--delete", "--checkpoint-db", db)
	require.NoError(t, err)
	_, err = runCommand(t, "", "checkpoints", "run-1", "--checkpoint-db", db)
	assert.ErrorIs(t, err, flowgraph.ErrNoCheckpoints)
}

func TestCheckpointsCommand_NoDatabase(t *testing.T) {
	_, err := runCommand(t, "", "checkpoints")
	assert.ErrorContains(t, err, "no checkpoint database")
}

func TestLatestCheckpoint(t *testing.T) {
	store, err := checkpoint.NewSQLiteStore(seedStore(t))
	require.NoError(t, err)
	defer store.Close()

	cp, err := latestCheckpoint(context.Background(), store, "run-1")
	require.NoError(t, err)
	assert.Equal(t, pipeline.NodePreprocessing, cp.NodeID)
	assert.Equal(t, pipeline.GraphWriting, cp.Graph)

	_, err = latestCheckpoint(context.Background(), store, "run-2")
	assert.ErrorIs(t, err, flowgraph.ErrNoCheckpoints)
}

func TestResumeCommand_UnknownRun(t *testing.T) {
	db := seedStore(t)
	_, err := runCommand(t, "", "resume", "missing", "--checkpoint-db", db)
	assert.ErrorIs(t, err, flowgraph.ErrNoCheckpoints)
}

func TestNewsCommand_RequiresFeeds(t *testing.T) {
	_, err := runCommand(t, "", "news", "--keyword", "AI")

	var validation *flowerrors.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "rss_urls", validation.Field)
}

func TestWritingCommand_EmptyInput(t *testing.T) {
	_, err := runCommand(t, "   \n", "writing")
	assert.EqualError(t, err, "no text to assess")
}

func TestOptions_Logger(t *testing.T) {
	o := &options{logLevel: "debug", logFormat: "json"}
	logger, err := o.logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	o.logLevel = "loud"
	_, err = o.logger()
	assert.Error(t, err)

	o = &options{logLevel: "info", logFormat: "xml"}
	_, err = o.logger()
	assert.Error(t, err)
}

func TestOptions_SettingsOverrides(t *testing.T) {
	o := &options{provider: "ollama", model: "llama3.1", maxSteps: 9, checkpointDB: "runs.db", output: "report.txt"}
	cfg, err := o.settings()
	require.NoError(t, err)

	assert.Equal(t, "ollama", string(cfg.LLM.Provider))
	assert.Equal(t, "llama3.1", cfg.LLM.Model)
	assert.Equal(t, 9, cfg.MaxSteps)
	assert.Equal(t, "runs.db", cfg.CheckpointPath)
	assert.Equal(t, "report.txt", cfg.ReportPath)
}
