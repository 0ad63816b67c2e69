package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/observability"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/template"
)

// ErrNoClient is returned when neither the Spec nor the Context provides a
// model client.
var ErrNoClient = errors.New("no model client configured")

// Spec describes an agent step.
type Spec struct {
	// Name identifies the step and is the role of the messages it writes.
	Name string
	// Output is the field written. Defaults to Name + "_response".
	Output string

	// System and Prompt are templates over the Inputs' variables and
	// ${datetime}.
	System string
	Prompt string
	Inputs []Input

	// JSON requests a JSON document, optionally matching Schema.
	JSON   bool
	Schema json.RawMessage

	// Batch paginates one list input. Nil sends everything in one call.
	Batch *Batch

	// Client overrides the Context's model client.
	Client llm.Client

	// Now supplies ${datetime}. Defaults to time.Now.
	Now func() time.Time
}

// OutputKey returns the field the step writes.
func (s Spec) OutputKey() string {
	if s.Output != "" {
		return s.Output
	}
	return s.Name + "_response"
}

// New builds the node function for spec. It panics when spec cannot
// work: no name, or a batch variable that is not one of the inputs.
func New(spec Spec) flowgraph.NodeFunc[state.State] {
	if spec.Name == "" {
		panic("agent: spec name is required")
	}
	if spec.Batch != nil && !hasVar(spec.Inputs, spec.Batch.Var) {
		panic(fmt.Sprintf("agent %s: batch variable %q is not an input", spec.Name, spec.Batch.Var))
	}
	now := spec.Now
	if now == nil {
		now = time.Now
	}
	expander := template.NewExpander(
		template.WithMissingAction(template.MissingError),
		template.WithFuncs(template.Funcs{
			"datetime": func() string { return now().Format(time.DateTime) },
		}),
	)

	return func(ctx flowgraph.Context, s state.State) (state.State, error) {
		client := spec.Client
		if client == nil {
			client = ctx.LLM()
		}
		if client == nil {
			return state.State{}, fmt.Errorf("agent %s: %w", spec.Name, ErrNoClient)
		}

		vars, err := resolveInputs(spec.Name, spec.Inputs, s)
		if err != nil {
			return state.State{}, err
		}

		var content string
		if spec.Batch != nil {
			content, err = runBatches(ctx, spec, expander, client, vars)
		} else {
			content, err = invoke(ctx, ctx.Logger(), spec, expander, client, vars)
		}
		if err != nil {
			return state.State{}, err
		}

		return state.Append(spec.OutputKey(), state.Message{Role: spec.Name, Content: content}), nil
	}
}

// invoke renders the prompts and makes one model call. Model failures are
// converted to an error document; only template and cancellation errors
// are returned.
func invoke(ctx context.Context, logger *slog.Logger, spec Spec, expander *template.Expander, client llm.Client, vars map[string]any) (string, error) {
	system, err := expander.Expand(spec.System, vars)
	if err != nil {
		return "", fmt.Errorf("agent %s: render system prompt: %w", spec.Name, err)
	}
	user, err := expander.Expand(spec.Prompt, vars)
	if err != nil {
		return "", fmt.Errorf("agent %s: render prompt: %w", spec.Name, err)
	}

	if !spec.JSON {
		text, err := llm.Invoke(ctx, client, system, user)
		if err != nil {
			return recordFailure(ctx, logger, spec.Name, err)
		}
		return text, nil
	}

	doc, err := llm.InvokeJSON(ctx, client, system, user, spec.Schema)
	if err != nil {
		var parseErr *llm.ParseError
		if errors.As(err, &parseErr) {
			logger.Warn("model output is not JSON, keeping raw text", "error", err)
			return parseErr.Input, nil
		}
		return recordFailure(ctx, logger, spec.Name, err)
	}
	return string(doc), nil
}

func recordFailure(ctx context.Context, logger *slog.Logger, node string, err error) (string, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	observability.LogModelError(logger, node, err)
	return errorDocument(err), nil
}

func errorDocument(err error) string {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(data)
}

func hasVar(inputs []Input, name string) bool {
	for _, in := range inputs {
		if in.Var == name {
			return true
		}
	}
	return false
}
