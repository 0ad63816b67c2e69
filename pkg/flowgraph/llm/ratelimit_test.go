package llm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
)

func TestWithRateLimit_BlocksWhenBucketEmpty(t *testing.T) {
	mock := llm.NewMockClient("ok")
	// One token, refilled once a minute.
	client := llm.WithRateLimit(mock, llm.NewLimiter(1, 1))

	_, err := client.Complete(context.Background(), llm.NewRequest("", "first"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Complete(ctx, llm.NewRequest("", "second"))

	var invErr *llm.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "rate_limit", invErr.Op)
	assert.Equal(t, 1, mock.CallCount())
}

func TestWithRateLimit_Refills(t *testing.T) {
	mock := llm.NewMockClient("ok")
	// 6000 per minute is one token every 10ms.
	client := llm.WithRateLimit(mock, llm.NewLimiter(6000, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Complete(context.Background(), llm.NewRequest("", "x"))
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	assert.Equal(t, 3, mock.CallCount())
}

func TestNewLimiter_Unlimited(t *testing.T) {
	limiter := llm.NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow())
	}
}
