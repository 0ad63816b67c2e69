package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
)

// Input binds a prompt variable to a state field.
type Input struct {
	// Var is the template variable, used as ${Var}.
	Var string
	// Key is the state field. Defaults to Var.
	Key string
	// Path selects a top-level key of the field's JSON document.
	Path string
	// Optional inputs render as "" when absent instead of failing.
	Optional bool
}

func (in Input) key() string {
	if in.Key != "" {
		return in.Key
	}
	return in.Var
}

// MissingInputError reports a required input that was absent or empty when
// the step ran.
type MissingInputError struct {
	Node  string
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("agent %s: missing required input %q", e.Node, e.Field)
}

// resolveInputs reads every input from s into template variables.
func resolveInputs(node string, inputs []Input, s state.State) (map[string]any, error) {
	vars := make(map[string]any, len(inputs))
	for _, in := range inputs {
		val := ""
		if s.Has(in.key()) {
			val = s.String(in.key())
			if in.Path != "" {
				val = selectPath(val, in.Path)
			}
		}
		if strings.TrimSpace(val) == "" {
			if !in.Optional {
				field := in.key()
				if in.Path != "" {
					field += "." + in.Path
				}
				return nil, &MissingInputError{Node: node, Field: field}
			}
			val = ""
		}
		vars[in.Var] = val
	}
	return vars, nil
}

// selectPath returns the value at key in a JSON object document as text.
// Non-object documents and missing keys yield "".
func selectPath(doc, key string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &obj); err != nil {
		return ""
	}
	raw, ok := obj[key]
	if !ok || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
