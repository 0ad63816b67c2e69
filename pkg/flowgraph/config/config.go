package config

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config wraps a decoded settings document.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// get resolves a dotted path through nested maps.
func (c Config) get(path string) (any, bool) {
	var cur any = c.data
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

// Sub returns the section at path, or an empty Config.
func (c Config) Sub(path string) Config {
	v, ok := c.get(path)
	if !ok {
		return New(nil)
	}
	m, ok := asMap(v)
	if !ok {
		return New(nil)
	}
	return New(m)
}

// String returns the string at path, or defaultVal.
func (c Config) String(path, defaultVal string) string {
	if s, ok := c.lookup(path).(string); ok {
		return s
	}
	return defaultVal
}

// Duration returns the duration at path, or defaultVal. Strings are parsed
// with time.ParseDuration; numbers are seconds.
func (c Config) Duration(path string, defaultVal time.Duration) time.Duration {
	switch val := c.lookup(path).(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case time.Duration:
		return val
	}
	return defaultVal
}

// Bool returns the boolean at path, or defaultVal.
func (c Config) Bool(path string, defaultVal bool) bool {
	if b, ok := c.lookup(path).(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer at path, or defaultVal. Floats convert only when
// they have no fractional part.
func (c Config) Int(path string, defaultVal int) int {
	switch val := c.lookup(path).(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Float returns the number at path, or defaultVal.
func (c Config) Float(path string, defaultVal float64) float64 {
	switch val := c.lookup(path).(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	}
	return defaultVal
}

// StringSlice returns the string list at path, or defaultVal. A list with
// a non-string element yields defaultVal.
func (c Config) StringSlice(path string, defaultVal []string) []string {
	switch val := c.lookup(path).(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			result = append(result, s)
		}
		return result
	}
	return defaultVal
}

// Any returns the raw value at path, or defaultVal.
func (c Config) Any(path string, defaultVal any) any {
	if v, ok := c.get(path); ok {
		return v
	}
	return defaultVal
}

// Has reports whether path exists.
func (c Config) Has(path string) bool {
	_, ok := c.get(path)
	return ok
}

// Raw returns the underlying map. It must not be modified.
func (c Config) Raw() map[string]any {
	return c.data
}

// With returns a copy with the value at path set, creating intermediate
// sections as needed.
func (c Config) With(path string, value any) Config {
	parts := strings.Split(path, ".")
	return New(withValue(c.data, parts, value))
}

func withValue(m map[string]any, parts []string, value any) map[string]any {
	out := maps.Clone(m)
	if out == nil {
		out = make(map[string]any)
	}
	if len(parts) == 1 {
		out[parts[0]] = value
		return out
	}
	child, _ := asMap(out[parts[0]])
	out[parts[0]] = withValue(child, parts[1:], value)
	return out
}

// Decode fills out, a pointer to a struct with yaml tags, from the document.
func (c Config) Decode(out any) error {
	data, err := yaml.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c Config) lookup(path string) any {
	v, _ := c.get(path)
	return v
}
