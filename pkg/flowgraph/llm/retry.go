package llm

import (
	"context"

	flowerrors "github.com/randalmurphal/feedgraph/pkg/flowgraph/errors"
)

// WithRetry retries failed calls with bounded exponential backoff.
// Only errors categorized as transient are retried; an *InvocationError is
// transient when its Retryable flag is set. The final error wraps the last
// failure, so errors.As still finds the *InvocationError.
func WithRetry(c Client, cfg flowerrors.RetryConfig) Client {
	return ClientFunc(func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
		result := flowerrors.WithRetryContext(ctx, cfg, func(ctx context.Context) (*CompletionResponse, error) {
			return c.Complete(ctx, req)
		})
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Value, nil
	})
}
