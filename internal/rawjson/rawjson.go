// Package rawjson wraps decoded JSON of unknown shape with safe optional
// accessors. Teams export records carry no guaranteed schema: any field may be
// absent, null, or of an unexpected type, so every access here returns an
// absent Value or a zero result instead of failing.
package rawjson

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Value is one node of a decoded JSON document: an object, array, string,
// number, bool, null, or nothing at all.
type Value struct {
	raw    any
	exists bool
}

// Parse decodes a JSON document into a Value.
func Parse(data []byte) (Value, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	return Value{raw: v, exists: true}, nil
}

// From wraps an already-decoded value. A nil input is treated as absent.
func From(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{raw: v, exists: true}
}

// Exists reports whether the value is present and non-null.
func (v Value) Exists() bool { return v.exists && v.raw != nil }

// Raw returns the underlying decoded value, or nil when absent.
func (v Value) Raw() any {
	if !v.Exists() {
		return nil
	}
	return v.raw
}

// Field returns the named member of an object, or an absent Value.
func (v Value) Field(name string) Value {
	m, ok := v.raw.(map[string]any)
	if !ok {
		return Value{}
	}
	inner, ok := m[name]
	if !ok {
		return Value{}
	}
	return From(inner)
}

// Has reports whether the value is an object containing the named key,
// regardless of the member's type (a null member still counts).
func (v Value) Has(name string) bool {
	m, ok := v.raw.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m[name]
	return ok
}

// Keys returns the sorted member names of an object, nil otherwise.
func (v Value) Keys() []string {
	m, ok := v.raw.(map[string]any)
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

// List returns the elements of an array, nil otherwise.
func (v Value) List() []Value {
	l, ok := v.raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Value, len(l))
	for i, e := range l {
		out[i] = From(e)
	}
	return out
}

// AsList returns the elements of an array, decoding a JSON-encoded string
// first if needed. Several Teams property fields arrive as strings holding
// serialized arrays.
func (v Value) AsList() []Value {
	if l := v.List(); l != nil {
		return l
	}
	s, ok := v.raw.(string)
	if !ok || s == "" {
		return nil
	}
	parsed, err := Parse([]byte(s))
	if err != nil {
		return nil
	}
	return parsed.List()
}

// AsMap returns the value if it is an object, decoding a JSON-encoded string
// first if needed. Anything else, including malformed embedded JSON, yields
// an absent Value.
func (v Value) AsMap() Value {
	if v.IsMap() {
		return v
	}
	s, ok := v.raw.(string)
	if !ok || s == "" {
		return Value{}
	}
	parsed, err := Parse([]byte(s))
	if err != nil || !parsed.IsMap() {
		return Value{}
	}
	return parsed
}

func (v Value) IsMap() bool {
	_, ok := v.raw.(map[string]any)
	return ok
}

func (v Value) IsList() bool {
	_, ok := v.raw.([]any)
	return ok
}

// Text returns the value only if it is a string.
func (v Value) Text() string {
	s, _ := v.raw.(string)
	return s
}

// Str renders the value as a string: strings pass through, numbers and bools
// are formatted, everything else (absent, null, objects, arrays) is empty.
func (v Value) Str() string {
	switch x := v.raw.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// Clean is Str with surrounding whitespace trimmed from string values.
func (v Value) Clean() string {
	if s, ok := v.raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return v.Str()
}

// Float returns the value as a number. Numeric strings are parsed.
func (v Value) Float() (float64, bool) {
	switch x := v.raw.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Bool returns the value if it is a boolean.
func (v Value) Bool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

// Truthy mirrors loose emptiness: absent, null, "", 0, false, and empty
// containers are all false.
func (v Value) Truthy() bool {
	switch x := v.raw.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case bool:
		return x
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return v.exists
	}
}

// JSON renders the value as compact JSON; failures and absent values yield
// an empty object so the result is always embeddable.
func (v Value) JSON() string {
	if !v.Exists() {
		return "{}"
	}
	b, err := json.Marshal(v.raw)
	if err != nil {
		return "{}"
	}
	return string(b)
}
