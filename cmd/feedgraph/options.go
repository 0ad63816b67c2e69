package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
	"github.com/randalmurphal/feedgraph/pkg/pipeline"
)

// options are the flags shared by every command.
type options struct {
	configPath   string
	envFile      string
	logLevel     string
	logFormat    string
	provider     string
	model        string
	maxSteps     int
	checkpointDB string
	output       string
	metrics      bool
	tracing      bool
}

func (o *options) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "settings file (.yaml or .json)")
	f.StringVar(&o.envFile, "env-file", ".env", "dotenv file with API keys, skipped when absent")
	f.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")
	f.StringVar(&o.provider, "provider", "", "model provider ("+strings.Join(providerNames(), ", ")+")")
	f.StringVar(&o.model, "model", "", "model name")
	f.IntVar(&o.maxSteps, "max-steps", 0, "maximum node executions per run")
	f.StringVar(&o.checkpointDB, "checkpoint-db", "", "SQLite checkpoint database")
	f.StringVarP(&o.output, "output", "o", "", "report file, stdout when empty")
	f.BoolVar(&o.metrics, "metrics", false, "export OpenTelemetry metrics to stderr")
	f.BoolVar(&o.tracing, "tracing", false, "export OpenTelemetry spans to stderr")
}

func providerNames() []string {
	providers := llm.Providers()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = string(p)
	}
	return names
}

// settings loads the environment and the settings file, then applies flag
// overrides.
func (o *options) settings() (pipeline.Settings, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return pipeline.Settings{}, fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}

	cfg := pipeline.DefaultSettings()
	if o.configPath != "" {
		var err error
		if cfg, err = pipeline.LoadSettings(o.configPath); err != nil {
			return pipeline.Settings{}, err
		}
	}
	if o.provider != "" {
		cfg.LLM.Provider = llm.Provider(o.provider)
	}
	if o.model != "" {
		cfg.LLM.Model = o.model
	}
	if o.maxSteps > 0 {
		cfg.MaxSteps = o.maxSteps
	}
	if o.checkpointDB != "" {
		cfg.CheckpointPath = o.checkpointDB
	}
	if o.output != "" {
		cfg.ReportPath = o.output
	}
	return cfg, cfg.Validate()
}

func (o *options) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", o.logLevel)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(o.logFormat) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", o.logFormat)
}

// openStore opens the checkpoint database, or returns nil when none is
// configured.
func openStore(path string) (checkpoint.Store, error) {
	if path == "" {
		return nil, nil
	}
	store, err := checkpoint.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}
	return store, nil
}

func requireStore(path string) (checkpoint.Store, error) {
	if path == "" {
		return nil, errors.New("no checkpoint database: set --checkpoint-db or checkpoint_path")
	}
	return openStore(path)
}
