package llm

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"

	flowerrors "github.com/randalmurphal/feedgraph/pkg/flowgraph/errors"
)

// LangChainClient adapts a langchaingo llms.Model to Client.
type LangChainClient struct {
	provider    string
	model       llms.Model
	modelName   string
	temperature float64
	maxTokens   int
}

// NewLangChainClient wraps model. provider and modelName are reported in
// errors and responses; temperature and maxTokens are request defaults.
func NewLangChainClient(provider string, model llms.Model, modelName string, temperature float64, maxTokens int) *LangChainClient {
	return &LangChainClient{
		provider:    provider,
		model:       model,
		modelName:   modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Complete implements Client.
func (c *LangChainClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.model.GenerateContent(ctx, c.messages(req), c.callOptions(req)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, NewError(c.provider, "complete", ctxErr, false)
		}
		err = classify(err)
		return nil, NewError(c.provider, "complete",
			errors.Wrap(err, "generate content"), flowerrors.IsRetryable(err))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return nil, NewError(c.provider, "complete", ErrEmptyResponse, false)
	}

	choice := resp.Choices[0]
	model := req.Model
	if model == "" {
		model = c.modelName
	}
	return &CompletionResponse{
		Content:      choice.Content,
		Usage:        usageFrom(choice.GenerationInfo),
		Model:        model,
		FinishReason: choice.StopReason,
		Duration:     time.Since(start),
	}, nil
}

func (c *LangChainClient) messages(req CompletionRequest) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if sys := req.systemPrompt(); sys != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, sys))
	}
	for _, m := range req.Messages {
		msgs = append(msgs, llms.TextParts(chatMessageType(m.Role), m.Content))
	}
	return msgs
}

func (c *LangChainClient) callOptions(req CompletionRequest) []llms.CallOption {
	var opts []llms.CallOption
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}

	temperature := c.temperature
	if req.Temperature != 0 {
		temperature = req.Temperature
	}
	opts = append(opts, llms.WithTemperature(temperature))

	maxTokens := c.maxTokens
	if req.MaxTokens != 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}

	if len(req.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(req.Stop))
	}
	if req.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}
	return opts
}

func chatMessageType(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

var statusPattern = regexp.MustCompile(`\b(408|429|5\d\d)\b`)

var transientHints = []string{"rate limit", "overloaded", "timeout", "temporarily unavailable", "connection reset"}

// classify turns provider errors that mention a retryable status into
// *errors.HTTPError so the retry policy can see them. langchaingo does not
// expose status codes uniformly across providers.
func classify(err error) error {
	if flowerrors.IsRetryable(err) {
		return err
	}
	msg := err.Error()
	if m := statusPattern.FindString(msg); m != "" {
		code, _ := strconv.Atoi(m)
		return errors.WithStack(&flowerrors.HTTPError{StatusCode: code, Message: msg})
	}
	lower := strings.ToLower(msg)
	for _, hint := range transientHints {
		if strings.Contains(lower, hint) {
			return flowerrors.Transient(err, hint)
		}
	}
	return err
}

// usageFrom reads token counts from provider generation info. Key names
// differ between providers.
func usageFrom(info map[string]any) TokenUsage {
	u := TokenUsage{
		InputTokens:  intFrom(info, "PromptTokens", "InputTokens", "input_tokens", "prompt_tokens"),
		OutputTokens: intFrom(info, "CompletionTokens", "OutputTokens", "output_tokens", "completion_tokens"),
		TotalTokens:  intFrom(info, "TotalTokens", "total_tokens"),
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

func intFrom(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
