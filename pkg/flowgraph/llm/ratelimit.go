package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter returns a token bucket holding burst tokens and refilling
// perMinute tokens per minute.
func NewLimiter(perMinute float64, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, max(burst, 1))
	}
	return rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/perMinute)), max(burst, 1))
}

// WithRateLimit blocks each call until limiter grants a token. A call whose
// context ends while waiting fails without reaching c.
func WithRateLimit(c Client, limiter *rate.Limiter) Client {
	return ClientFunc(func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, NewError("", "rate_limit", err, false)
		}
		return c.Complete(ctx, req)
	})
}
