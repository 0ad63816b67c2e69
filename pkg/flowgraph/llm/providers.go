package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/registry"
)

// Provider names a model backend.
type Provider string

// Built-in providers.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderVLLM      Provider = "vllm"
	ProviderGroq      Provider = "groq"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// Config selects and configures a provider.
type Config struct {
	Provider    Provider `json:"provider" yaml:"provider"`
	Model       string   `json:"model" yaml:"model"`
	BaseURL     string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Temperature float64  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// APIKey overrides the provider's environment variable.
	APIKey string `json:"-" yaml:"-"`
}

// Factory builds a Client from a Config.
type Factory func(ctx context.Context, cfg Config) (Client, error)

type providerInfo struct {
	factory      Factory
	defaultModel string
	defaultURL   string
	apiKeyEnv    string
}

var providers = registry.New[Provider, providerInfo]()

func init() {
	providers.Register(ProviderOpenAI, providerInfo{factory: newOpenAI, defaultModel: "gpt-4o-mini", apiKeyEnv: "OPENAI_API_KEY"})
	providers.Register(ProviderVLLM, providerInfo{factory: newOpenAI, defaultURL: "http://localhost:8000/v1", apiKeyEnv: "VLLM_API_KEY"})
	providers.Register(ProviderGroq, providerInfo{factory: newOpenAI, defaultModel: "llama-3.1-8b-instant", defaultURL: "https://api.groq.com/openai/v1", apiKeyEnv: "GROQ_API_KEY"})
	providers.Register(ProviderOllama, providerInfo{factory: newOllama, defaultModel: "llama3.1", defaultURL: "http://localhost:11434"})
	providers.Register(ProviderAnthropic, providerInfo{factory: newAnthropic, defaultModel: "claude-3-5-sonnet-latest", apiKeyEnv: "ANTHROPIC_API_KEY"})
	providers.Register(ProviderGemini, providerInfo{factory: newGemini, defaultModel: "gemini-1.5-flash", apiKeyEnv: "GOOGLE_API_KEY"})
}

// Register adds or replaces a provider factory.
func Register(p Provider, f Factory) {
	info, _ := providers.Get(p)
	info.factory = f
	providers.Register(p, info)
}

// Providers returns the registered provider names, sorted.
func Providers() []Provider {
	return registry.SortedKeys(providers)
}

// New builds a client for cfg.Provider, filling in the provider's default
// model, base URL and API key from the environment.
func New(ctx context.Context, cfg Config) (Client, error) {
	cfg.Provider = Provider(strings.ToLower(string(cfg.Provider)))
	info, err := providers.Lookup(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownProvider, cfg.Provider, Providers())
	}

	if cfg.Model == "" {
		cfg.Model = info.defaultModel
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("provider %s: model is required", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = info.defaultURL
	}
	if cfg.APIKey == "" && info.apiKeyEnv != "" {
		cfg.APIKey = os.Getenv(info.apiKeyEnv)
	}

	client, err := info.factory(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s client", cfg.Provider)
	}
	return client, nil
}

// newOpenAI serves OpenAI and the OpenAI-compatible servers (vLLM, Groq).
func newOpenAI(_ context.Context, cfg Config) (Client, error) {
	token := cfg.APIKey
	if token == "" {
		if cfg.Provider != ProviderVLLM {
			return nil, fmt.Errorf("missing API key for %s", cfg.Provider)
		}
		// vLLM accepts any token unless started with --api-key.
		token = "EMPTY"
	}

	opts := []openai.Option{openai.WithModel(cfg.Model), openai.WithToken(token)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewLangChainClient(string(cfg.Provider), model, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
}

func newOllama(_ context.Context, cfg Config) (Client, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	model, err := ollama.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewLangChainClient(string(cfg.Provider), model, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
}

func newAnthropic(_ context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing API key for %s", cfg.Provider)
	}
	opts := []anthropic.Option{anthropic.WithModel(cfg.Model), anthropic.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	model, err := anthropic.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewLangChainClient(string(cfg.Provider), model, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
}

func newGemini(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing API key for %s", cfg.Provider)
	}
	model, err := googleai.New(ctx, googleai.WithAPIKey(cfg.APIKey), googleai.WithDefaultModel(cfg.Model))
	if err != nil {
		return nil, err
	}
	return NewLangChainClient(string(cfg.Provider), model, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
}
