package agent

import (
	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
)

// ToolFunc computes a tool step's result from the current state.
type ToolFunc func(ctx flowgraph.Context, s state.State) (any, error)

// Tool builds a node that runs fn and appends its result, encoded as JSON,
// to output with role name. A string result is stored as-is.
func Tool(name, output string, fn ToolFunc) flowgraph.NodeFunc[state.State] {
	return func(ctx flowgraph.Context, s state.State) (state.State, error) {
		result, err := fn(ctx, s)
		if err != nil {
			return state.State{}, err
		}
		if text, ok := result.(string); ok {
			return state.Append(output, state.Message{Role: name, Content: text}), nil
		}
		return state.AppendJSON(output, name, result)
	}
}
