// Package payload wraps decoded JSON values returned by the Proxmox
// API. Responses carry no enforced schema; fields may be absent, typed
// differently between versions, or renamed. Every accessor therefore
// takes a default and never panics on shape mismatches.
package payload

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Payload is a single decoded JSON value: an object, an array, a
// scalar, or nothing at all.
type Payload struct {
	v interface{}
}

// Wrap adopts a decoded JSON value.
func Wrap(v interface{}) Payload {
	return Payload{v: v}
}

// Parse decodes raw JSON into a Payload.
func Parse(raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return Payload{}, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return Payload{v: v}, nil
}

// IsNil reports whether the payload holds no value.
func (p Payload) IsNil() bool {
	return p.v == nil
}

// Value returns the underlying decoded value.
func (p Payload) Value() interface{} {
	return p.v
}

// Text returns the payload itself rendered as a string. Used for
// scalar responses such as task UPIDs.
func (p Payload) Text() string {
	return asString(p.v, "")
}

// Has reports whether the key is present on an object payload.
func (p Payload) Has(key string) bool {
	m, ok := p.v.(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = m[key]
	return ok
}

// String returns the named field as a string, or def when absent or
// not representable. Numeric values are formatted without a trailing
// ".0" so vmid-style fields read naturally.
func (p Payload) String(key, def string) string {
	m, ok := p.v.(map[string]interface{})
	if !ok {
		return def
	}
	v, ok := m[key]
	if !ok {
		return def
	}
	return asString(v, def)
}

// Int returns the named field as an int64, or def.
func (p Payload) Int(key string, def int64) int64 {
	m, ok := p.v.(map[string]interface{})
	if !ok {
		return def
	}
	v, ok := m[key]
	if !ok {
		return def
	}
	return asInt(v, def)
}

// Float returns the named field as a float64, or def.
func (p Payload) Float(key string, def float64) float64 {
	m, ok := p.v.(map[string]interface{})
	if !ok {
		return def
	}
	v, ok := m[key]
	if !ok {
		return def
	}
	return asFloat(v, def)
}

// Bool returns the named field as a bool, or def. The Proxmox API
// encodes most flags as 0/1 integers.
func (p Payload) Bool(key string, def bool) bool {
	m, ok := p.v.(map[string]interface{})
	if !ok {
		return def
	}
	switch v := m[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v == "1" || strings.EqualFold(v, "true")
	default:
		return def
	}
}

// Map returns the named field as a nested payload. Absent or
// non-object fields yield an empty payload whose accessors all return
// their defaults.
func (p Payload) Map(key string) Payload {
	m, ok := p.v.(map[string]interface{})
	if !ok {
		return Payload{}
	}
	return Wrap(m[key])
}

// Items returns the elements of an array payload.
func (p Payload) Items() []Payload {
	s, ok := p.v.([]interface{})
	if !ok {
		return nil
	}
	items := make([]Payload, len(s))
	for i, v := range s {
		items[i] = Wrap(v)
	}
	return items
}

// AsMap returns a shallow copy of an object payload. Non-object
// payloads yield an empty map.
func (p Payload) AsMap() map[string]interface{} {
	m, ok := p.v.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the sorted field names of an object payload.
func (p Payload) Keys() []string {
	m, ok := p.v.(map[string]interface{})
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asString(v interface{}, def string) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return def
	}
}

func asInt(v interface{}, def int64) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		return def
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
		return def
	default:
		return def
	}
}

func asFloat(v interface{}, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return def
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
		return def
	default:
		return def
	}
}
