package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
)

func TestProviders(t *testing.T) {
	providers := llm.Providers()
	for _, p := range []llm.Provider{
		llm.ProviderAnthropic, llm.ProviderGemini, llm.ProviderGroq,
		llm.ProviderOllama, llm.ProviderOpenAI, llm.ProviderVLLM,
	} {
		assert.Contains(t, providers, p)
	}
}

func TestNew(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	tests := []struct {
		name    string
		cfg     llm.Config
		wantErr string
	}{
		{"openai with key", llm.Config{Provider: llm.ProviderOpenAI, APIKey: "sk-test"}, ""},
		{"provider name is case-insensitive", llm.Config{Provider: "OpenAI", APIKey: "sk-test"}, ""},
		{"openai without key", llm.Config{Provider: llm.ProviderOpenAI}, "missing API key"},
		{"groq", llm.Config{Provider: llm.ProviderGroq, APIKey: "gsk-test"}, ""},
		{"vllm needs no key", llm.Config{Provider: llm.ProviderVLLM, Model: "qwen2.5"}, ""},
		{"vllm needs a model", llm.Config{Provider: llm.ProviderVLLM}, "model is required"},
		{"ollama", llm.Config{Provider: llm.ProviderOllama}, ""},
		{"anthropic without key", llm.Config{Provider: llm.ProviderAnthropic}, "missing API key"},
		{"unknown", llm.Config{Provider: "watson"}, "unknown provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := llm.New(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestNew_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "from-env")

	client, err := llm.New(context.Background(), llm.Config{Provider: llm.ProviderGroq})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestRegister(t *testing.T) {
	mock := llm.NewMockClient("from custom provider")
	var got llm.Config
	llm.Register("custom-test", func(_ context.Context, cfg llm.Config) (llm.Client, error) {
		got = cfg
		return mock, nil
	})

	client, err := llm.New(context.Background(), llm.Config{Provider: "custom-test", Model: "m1"})
	require.NoError(t, err)

	out, err := llm.Invoke(context.Background(), client, "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "from custom provider", out)
	assert.Equal(t, "m1", got.Model)
	assert.Contains(t, llm.Providers(), llm.Provider("custom-test"))
}
