// Package llm is the language-model boundary: a provider-neutral Client,
// provider adapters backed by langchaingo, JSON output parsing, and
// retry and rate-limit decorators.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Client sends completion requests to a language model.
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}

// Invoke sends a system and user prompt and returns the text content.
// An empty response is an error.
func Invoke(ctx context.Context, c Client, system, user string) (string, error) {
	resp, err := complete(ctx, c, NewRequest(system, user))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// InvokeJSON sends the prompts in JSON mode and returns the parsed
// document. Output that is not JSON even after repair yields a
// *ParseError; the raw text is in ParseError.Input.
func InvokeJSON(ctx context.Context, c Client, system, user string, schema json.RawMessage) (json.RawMessage, error) {
	req := NewRequest(system, user)
	req.JSONMode = true
	req.Schema = schema

	resp, err := complete(ctx, c, req)
	if err != nil {
		return nil, err
	}
	return ParseJSON(resp.Content)
}

// complete calls c and rejects blank content.
func complete(ctx context.Context, c Client, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, NewError("", "complete", ErrEmptyResponse, false)
	}
	return resp, nil
}

// NewRequest builds a single-turn request.
func NewRequest(system, user string) CompletionRequest {
	return CompletionRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: RoleUser, Content: user}},
	}
}
