package config

import (
	"encoding/json"
	"strings"
)

// asMap renders c as a generic nested map via its JSON tags, the
// reflection-free path to dotted-key lookups: marshal once, then walk
// the map instead of reflecting over struct fields directly.
func (c *Config) asMap() map[string]any {
	data, err := json.Marshal(c)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// Get looks up a dotted key (e.g. "telemetry.batch_size") and returns its
// value and whether it was found.
func (c *Config) Get(key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = c.asMap()

	for _, part := range parts {
		m, ok := cur.(map[string]any)
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

// GetBool returns a feature flag at key, defaulting to false whenever the
// key is absent or not boolean-shaped — optional features fail closed
// (spec §4.I).
func (c *Config) GetBool(key string) bool {
	v, ok := c.Get(key)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// GetString returns a string value at key, or "" if absent or not a
// string.
func (c *Config) GetString(key string) string {
	v, ok := c.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetFloat returns a numeric value at key as a float64, or 0 if absent.
// JSON numbers decode to float64 via asMap's map[string]any round trip,
// so this also covers keys backed by an int field.
func (c *Config) GetFloat(key string) float64 {
	v, ok := c.Get(key)
	if !ok {
		return 0
	}
	f, _ := v.(float64)
	return f
}
