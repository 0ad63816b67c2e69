package checkpoint_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/checkpoint"
)

func TestCheckpoint_New(t *testing.T) {
	state := []byte(`{"values":{"run_date":"2024-05-01"}}`)
	cp := checkpoint.New("run-1", "fetch", 3, state, "scrape").
		WithGraph("news").
		WithPrevNode("planner").
		WithAttempt(2)

	assert.Equal(t, checkpoint.Version, cp.Version)
	assert.Equal(t, "run-1", cp.RunID)
	assert.Equal(t, "news", cp.Graph)
	assert.Equal(t, "fetch", cp.NodeID)
	assert.Equal(t, "scrape", cp.NextNode)
	assert.Equal(t, "planner", cp.PrevNodeID)
	assert.Equal(t, 3, cp.Sequence)
	assert.Equal(t, 2, cp.Attempt)
	assert.False(t, cp.Timestamp.IsZero())
}

func TestCheckpoint_RoundTripKeepsRawState(t *testing.T) {
	state := []byte(`{"values":{"keywords":["AI","robotics"]}}`)
	data, err := checkpoint.New("run-1", "filter", 4, state, "summarize").Marshal()
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "summarize", wire["next_node"])
	assert.NotContains(t, wire, "graph")

	cp, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, string(state), string(cp.State))
	assert.Equal(t, "filter", cp.NodeID)
}

func TestCheckpoint_UnmarshalInvalid(t *testing.T) {
	_, err := checkpoint.Unmarshal([]byte("{not json"))
	assert.Error(t, err)
}
