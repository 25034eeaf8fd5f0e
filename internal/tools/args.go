package tools

import (
	"fmt"
	"strconv"
)

// Args holds the validated, defaulted arguments handed to a handler.
// Values keep the loose typing of the decoded request; accessors
// normalize them per use.
type Args map[string]interface{}

// Has reports whether the argument is present with a non-empty value.
func (a Args) Has(name string) bool {
	v, ok := a[name]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// String returns the argument as a string. Numeric values (a vmid sent
// as a JSON number) are formatted without a decimal suffix.
func (a Args) String(name string) string {
	switch v := a[name].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Int returns the argument as an int64, or 0 when absent or not
// numeric.
func (a Args) Int(name string) int64 {
	switch v := a[name].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Bool returns the argument as a bool.
func (a Args) Bool(name string) bool {
	switch v := a[name].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v == "1" || v == "true"
	default:
		return false
	}
}

// Except returns the remaining non-empty arguments as strings, keyed
// by name, excluding the listed ones. Used by the free-form update
// operations that forward caller keys verbatim to the remote API.
func (a Args) Except(exclude ...string) map[string]string {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	extra := make(map[string]string)
	for name := range a {
		if skip[name] || !a.Has(name) {
			continue
		}
		extra[name] = a.String(name)
	}
	return extra
}
