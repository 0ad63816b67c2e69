package llm

import (
	"encoding/json"
	"time"
)

// CompletionRequest configures a model call.
type CompletionRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`

	// Model overrides the client's default model.
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`

	// JSONMode asks the provider for a single JSON document.
	JSONMode bool `json:"json_mode,omitempty"`
	// Schema is an optional JSON schema describing the expected document.
	// Providers without native schema support get it in the system prompt.
	Schema json.RawMessage `json:"schema,omitempty"`
}

// Message is a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// CompletionResponse is the output of a model call.
type CompletionResponse struct {
	Content      string        `json:"content"`
	Usage        TokenUsage    `json:"usage"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason"`
	Duration     time.Duration `json:"duration"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// systemPrompt returns the system prompt with the schema appended when one
// is set.
func (r CompletionRequest) systemPrompt() string {
	if len(r.Schema) == 0 {
		return r.SystemPrompt
	}
	hint := "Respond with a single JSON document matching this schema:\n" + string(r.Schema)
	if r.SystemPrompt == "" {
		return hint
	}
	return r.SystemPrompt + "\n\n" + hint
}
