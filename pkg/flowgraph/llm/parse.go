package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var errNoJSON = errors.New("no JSON document found")

// ParseJSON extracts a JSON document from model output.
//
// Code fences and prose around the outermost object or array are dropped.
// Invalid JSON is passed through jsonrepair before giving up with a
// *ParseError. The result is compacted.
func ParseJSON(text string) (json.RawMessage, error) {
	candidate := extractJSON(text)
	if candidate == "" {
		return nil, &ParseError{Input: text, Err: errNoJSON}
	}

	if !json.Valid([]byte(candidate)) {
		repaired, err := jsonrepair.JSONRepair(candidate)
		if err != nil {
			return nil, &ParseError{Input: text, Err: err}
		}
		if !json.Valid([]byte(repaired)) {
			return nil, &ParseError{Input: text, Err: errors.New("repaired output is still invalid")}
		}
		candidate = repaired
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(candidate)); err != nil {
		return nil, &ParseError{Input: text, Err: err}
	}
	return buf.Bytes(), nil
}

// extractJSON trims fences and surrounding prose.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// Drop the language tag line.
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		// Truncated output; let repair close it.
		return s[start:]
	}
	return s[start : end+1]
}
