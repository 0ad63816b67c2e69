package pipeline

import (
	"fmt"
	"time"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/config"
	flowerrors "github.com/randalmurphal/feedgraph/pkg/flowgraph/errors"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
)

// Settings configures both pipelines and the model client they share.
type Settings struct {
	LLM      llm.Config `yaml:"llm"`
	RSSURLs  []string   `yaml:"rss_urls"`
	Keywords []string   `yaml:"keywords"`

	Feeds     FeedSettings           `yaml:"feeds"`
	Batch     BatchSettings          `yaml:"batch"`
	Writing   WritingSettings        `yaml:"writing"`
	RateLimit RateLimitSettings      `yaml:"rate_limit"`
	Retry     flowerrors.RetryConfig `yaml:"retry"`

	// MaxSteps caps node executions per run.
	MaxSteps int `yaml:"max_steps"`
	// CheckpointPath is a SQLite file. Empty disables checkpointing.
	CheckpointPath string `yaml:"checkpoint_path"`
	// ReportPath is where the CLI writes the final report.
	ReportPath string `yaml:"report_path"`
}

// FeedSettings configures the fetch and scrape steps.
type FeedSettings struct {
	MaxPerFeed int `yaml:"max_per_feed"`
	// CachePath enables the local article cache.
	CachePath   string        `yaml:"cache_path"`
	CacheMaxAge time.Duration `yaml:"cache_max_age"`
	// ScrapeConcurrency bounds parallel page downloads.
	ScrapeConcurrency int `yaml:"scrape_concurrency"`
	// MaxChars truncates scraped text. Zero keeps everything.
	MaxChars int `yaml:"max_chars"`
}

// BatchSettings configures the paginated agent steps.
type BatchSettings struct {
	SummarizeSize int `yaml:"summarize_size"`
	ReviewSize    int `yaml:"review_size"`
	Concurrency   int `yaml:"concurrency"`
}

// WritingSettings configures the writing assessment pipeline.
type WritingSettings struct {
	// KnowledgeBase is the rubric file. Empty uses the built-in rubric.
	KnowledgeBase string `yaml:"knowledge_base"`
}

// RateLimitSettings configures the model token bucket.
type RateLimitSettings struct {
	// RequestsPerMinute of zero disables limiting.
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

// DefaultSettings returns the settings used when no file overrides them.
func DefaultSettings() Settings {
	return Settings{
		LLM: llm.Config{Provider: llm.ProviderOpenAI},
		Feeds: FeedSettings{
			MaxPerFeed:        10,
			CacheMaxAge:       time.Hour,
			ScrapeConcurrency: 4,
			MaxChars:          8000,
		},
		Batch: BatchSettings{
			SummarizeSize: 5,
			ReviewSize:    5,
			Concurrency:   2,
		},
		RateLimit: RateLimitSettings{RequestsPerMinute: 60, Burst: 1},
		Retry:     flowerrors.DefaultRetry,
		MaxSteps:  flowgraph.DefaultMaxSteps,
	}
}

// LoadSettings reads a YAML or JSON settings file over DefaultSettings.
// ${VAR} references in the file are expanded from the environment.
func LoadSettings(path string, opts ...config.LoadOption) (Settings, error) {
	cfg, err := config.FromFile(path, opts...)
	if err != nil {
		return Settings{}, err
	}
	s := DefaultSettings()
	if err := cfg.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, s.Validate()
}

// Validate checks the values a run cannot do without.
func (s Settings) Validate() error {
	switch {
	case s.LLM.Provider == "":
		return &flowerrors.ValidationError{Field: "llm.provider", Message: "is required"}
	case s.MaxSteps < 1:
		return &flowerrors.ValidationError{Field: "max_steps", Message: "must be at least 1"}
	case s.Batch.SummarizeSize < 0 || s.Batch.ReviewSize < 0:
		return &flowerrors.ValidationError{Field: "batch", Message: "sizes must not be negative"}
	case s.RateLimit.RequestsPerMinute < 0:
		return &flowerrors.ValidationError{Field: "rate_limit.requests_per_minute", Message: "must not be negative"}
	}
	return nil
}

// ValidateNews checks the fields only the news pipeline needs.
func (s Settings) ValidateNews() error {
	if len(s.RSSURLs) == 0 {
		return &flowerrors.ValidationError{Field: "rss_urls", Message: "at least one feed is required"}
	}
	return nil
}
