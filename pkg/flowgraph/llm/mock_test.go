package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
)

func TestMockClient_FixedResponse(t *testing.T) {
	mock := llm.NewMockClient("Hello, world!")

	resp, err := mock.Complete(context.Background(), llm.NewRequest("", "Hi"))

	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestMockClient_SequentialResponses(t *testing.T) {
	mock := llm.NewMockClient("").WithResponses("first", "second")

	for _, want := range []string{"first", "second", "first"} {
		resp, err := mock.Complete(context.Background(), llm.CompletionRequest{})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Content)
	}
}

func TestMockClient_Errors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("every call", func(t *testing.T) {
		mock := llm.NewMockClient("").WithError(boom)
		for i := 0; i < 2; i++ {
			_, err := mock.Complete(context.Background(), llm.CompletionRequest{})
			assert.Equal(t, boom, err)
		}
	})

	t.Run("scripted", func(t *testing.T) {
		mock := llm.NewMockClient("ok").WithErrors(boom, nil)

		_, err := mock.Complete(context.Background(), llm.CompletionRequest{})
		assert.Equal(t, boom, err)

		resp, err := mock.Complete(context.Background(), llm.CompletionRequest{})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Content)

		_, err = mock.Complete(context.Background(), llm.CompletionRequest{})
		require.NoError(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := llm.NewMockClient("ok").Complete(ctx, llm.CompletionRequest{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMockClient_Handler(t *testing.T) {
	mock := llm.NewMockClient("unused").WithHandler(func(req llm.CompletionRequest) (string, error) {
		return "echo: " + req.Messages[0].Content, nil
	})

	resp, err := mock.Complete(context.Background(), llm.NewRequest("", "ping"))
	require.NoError(t, err)
	assert.Equal(t, "echo: ping", resp.Content)
}

func TestMockClient_CallTracking(t *testing.T) {
	mock := llm.NewMockClient("response")
	assert.Empty(t, mock.LastCall().Messages)

	_, _ = mock.Complete(context.Background(), llm.NewRequest("sys", "first"))
	_, _ = mock.Complete(context.Background(), llm.NewRequest("sys", "second"))

	assert.Equal(t, 2, mock.CallCount())
	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "first", calls[0].Messages[0].Content)
	assert.Equal(t, "second", mock.LastCall().Messages[0].Content)
}
