package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
)

func TestTool(t *testing.T) {
	node := Tool("filter", "filter_response", func(_ flowgraph.Context, s state.State) (any, error) {
		return map[string]any{"keywords": s.Strings("keywords")}, nil
	})

	update, err := node(newCtx(nil, nil), state.New(map[string]any{"keywords": []string{"AI"}}))
	require.NoError(t, err)

	msg, ok := update.Latest("filter_response")
	require.True(t, ok)
	assert.Equal(t, "filter", msg.Role)
	assert.JSONEq(t, `{"keywords":["AI"]}`, msg.Content)
}

func TestTool_StringResult(t *testing.T) {
	node := Tool("report", "report_response", func(flowgraph.Context, state.State) (any, error) {
		return "# Report", nil
	})

	update, err := node(newCtx(nil, nil), state.State{})
	require.NoError(t, err)
	assert.Equal(t, "# Report", update.String("report_response"))
}

func TestTool_Error(t *testing.T) {
	boom := errors.New("feed unreachable")
	node := Tool("fetch", "fetch_response", func(flowgraph.Context, state.State) (any, error) {
		return nil, boom
	})

	_, err := node(newCtx(nil, nil), state.State{})
	assert.ErrorIs(t, err, boom)
}
