package agent

import (
	"encoding/json"
	"strings"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
)

// RouteConfig configures Router.
type RouteConfig struct {
	// Field holds the router step's output.
	Field string
	// DecisionKey is the key naming the next node. Defaults to "next_agent".
	DecisionKey string

	// ReviewField holds the reviewer's verdict.
	ReviewField string
	// PassKey is the boolean verdict key. Defaults to "pass_review".
	PassKey string
	// PassTarget is the node taken when the review passed.
	PassTarget string
}

// Router returns a router that picks the next node from the review verdict
// and the router step's decision. It returns "" to select the edge default
// when there is no review yet or the decision cannot be read.
func Router(cfg RouteConfig) flowgraph.RouterFunc[state.State] {
	if cfg.DecisionKey == "" {
		cfg.DecisionKey = "next_agent"
	}
	if cfg.PassKey == "" {
		cfg.PassKey = "pass_review"
	}

	return func(ctx flowgraph.Context, s state.State) string {
		if cfg.ReviewField != "" {
			if !s.Has(cfg.ReviewField) {
				return ""
			}
			if Passed(s.String(cfg.ReviewField), cfg.PassKey) {
				return cfg.PassTarget
			}
		}

		raw := s.String(cfg.Field)
		doc, err := llm.ParseJSON(raw)
		if err != nil {
			ctx.Logger().Warn("router output is not JSON, using default route",
				"field", cfg.Field, "error", err)
			return ""
		}
		var obj map[string]any
		if err := json.Unmarshal(doc, &obj); err != nil {
			ctx.Logger().Warn("router output is not an object, using default route",
				"field", cfg.Field)
			return ""
		}
		decision, _ := obj[cfg.DecisionKey].(string)
		return strings.TrimSpace(decision)
	}
}

// Passed reports whether a review document has a truthy verdict at key.
// Booleans, "true"/"yes"/"pass" strings, and non-zero numbers count.
func Passed(review, key string) bool {
	doc, err := llm.ParseJSON(review)
	if err != nil {
		return false
	}
	var obj map[string]any
	if err := json.Unmarshal(doc, &obj); err != nil {
		return false
	}
	switch v := obj[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "pass", "passed":
			return true
		}
	case float64:
		return v != 0
	}
	return false
}
