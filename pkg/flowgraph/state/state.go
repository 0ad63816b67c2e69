// Package state provides State, the key/value document threaded through a
// workflow run.
//
// A field holds either a value (scalar or nested document, replaced on
// update) or an ordered list of messages (appended on update). Steps return
// a partial State built with Set or Append; Merge folds it into the
// current state. Merge never mutates its inputs.
package state

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrorKey is the field holding the error of an aborted run.
const ErrorKey = "error"

// Message is a role-tagged entry in a message field. Role is the name of
// the producing step; Content is text or serialized JSON.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is an immutable key/value document.
type State struct {
	values   map[string]any
	messages map[string][]Message
}

// New creates a state seeded with values.
func New(values map[string]any) State {
	return State{values: maps.Clone(values)}
}

// Set returns a partial state that sets key to v.
func Set(key string, v any) State {
	return State{values: map[string]any{key: v}}
}

// Append returns a partial state that appends msgs to key.
func Append(key string, msgs ...Message) State {
	return State{messages: map[string][]Message{key: msgs}}
}

// AppendJSON returns a partial state appending v, encoded as JSON, to key
// with the given role.
func AppendJSON(key, role string, v any) (State, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return State{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return Append(key, Message{Role: role, Content: string(data)}), nil
}

// Merge applies update to current: values replace, messages append.
// It is the graph reducer for State.
func Merge(current, update State) State {
	out := State{
		values:   maps.Clone(current.values),
		messages: maps.Clone(current.messages),
	}
	if len(update.values) > 0 && out.values == nil {
		out.values = make(map[string]any, len(update.values))
	}
	for k, v := range update.values {
		out.values[k] = v
	}
	if len(update.messages) > 0 && out.messages == nil {
		out.messages = make(map[string][]Message, len(update.messages))
	}
	for k, msgs := range update.messages {
		// Clip so appends never share a backing array with current.
		out.messages[k] = append(slices.Clip(out.messages[k]), msgs...)
	}
	return out
}

// With returns s merged with update.
func (s State) With(update State) State {
	return Merge(s, update)
}

// WithError records err in the error field.
func (s State) WithError(err error) State {
	if err == nil {
		return s
	}
	return Merge(s, Set(ErrorKey, err.Error()))
}

// Err returns the recorded error text, if any.
func (s State) Err() string {
	return s.String(ErrorKey)
}

// Get returns the value stored at key.
func (s State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Messages returns a copy of the messages at key.
func (s State) Messages(key string) []Message {
	return slices.Clone(s.messages[key])
}

// Latest returns the last message at key.
func (s State) Latest(key string) (Message, bool) {
	msgs := s.messages[key]
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// String returns the field as text: the latest message content for a
// message field, the value itself for a string, JSON for other values,
// and "" when the field is absent.
func (s State) String(key string) string {
	if msg, ok := s.Latest(key); ok {
		return msg.Content
	}
	v, ok := s.values[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// Strings returns a string list value. It accepts []string and []any of
// strings, the form a list takes after a JSON round trip.
func (s State) Strings(key string) []string {
	switch v := s.values[key].(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Decode unmarshals the field into out. Message fields decode the latest
// message content; value fields are re-encoded first.
func (s State) Decode(key string, out any) error {
	var data []byte
	if msg, ok := s.Latest(key); ok {
		data = []byte(msg.Content)
	} else if v, ok := s.values[key]; ok {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
	} else {
		return fmt.Errorf("field %s is not set", key)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Has reports whether key holds a non-empty value or at least one message.
func (s State) Has(key string) bool {
	if len(s.messages[key]) > 0 {
		return true
	}
	v, ok := s.values[key]
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val) != ""
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	return true
}

// Keys returns every field name, sorted.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.values)+len(s.messages))
	for k := range s.values {
		keys = append(keys, k)
	}
	for k := range s.messages {
		if _, dup := s.values[k]; !dup {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

type wireState struct {
	Values   map[string]any       `json:"values,omitempty"`
	Messages map[string][]Message `json:"messages,omitempty"`
}

// MarshalJSON encodes the state for checkpoints and output files.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireState{Values: s.values, Messages: s.messages})
}

// UnmarshalJSON decodes a state written by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.values = w.Values
	s.messages = w.Messages
	return nil
}
