package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Fields maps field names to values.
type Fields map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge returns a copy of f overlaid field by field with other.
func (f Fields) Merge(other Fields) Fields {
	out := f.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Without returns a copy of f lacking the named fields.
func (f Fields) Without(names ...string) Fields {
	out := f.Clone()
	for _, n := range names {
		delete(out, n)
	}
	return out
}

// Text returns the named field as a string. Missing and nil values are "";
// non-string values use their fmt representation.
func (f Fields) Text(name string) string {
	v, ok := f[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// HasText reports whether the named field holds non-blank text.
func (f Fields) HasText(name string) bool {
	return strings.TrimSpace(f.Text(name)) != ""
}

// Normalize returns the JSON form of f: every value becomes what a JSON
// round trip would produce. Values that cannot be encoded are dropped.
func (f Fields) Normalize() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		var decoded any
		if err := json.Unmarshal(b, &decoded); err != nil {
			continue
		}
		out[k] = decoded
	}
	return out
}

// Equal compares the normalized forms of f and other, so an int and the
// float64 it decodes to are considered equal. The comparison runs on plain
// maps: cmp.Equal on Fields would dispatch back to this method.
func (f Fields) Equal(other Fields) bool {
	return cmp.Equal(map[string]any(f.Normalize()), map[string]any(other.Normalize()))
}
