package model

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// FieldKind distinguishes free-text sections from structured ones.
type FieldKind int

const (
	// FieldText is a free-text section such as a relationship summary.
	FieldText FieldKind = iota
	// FieldStructured maps sub-keys to Values.
	FieldStructured
)

func (k FieldKind) String() string {
	if k == FieldText {
		return "text"
	}
	return "structured"
}

// FieldContent is the content of one section of a Record: either free text
// or a map of sub-keys to Values.
type FieldContent struct {
	kind   FieldKind
	text   string
	values map[string]Value
}

// NewText returns text content.
func NewText(s string) FieldContent {
	return FieldContent{kind: FieldText, text: s}
}

// NewStructured returns structured content. The map is copied.
func NewStructured(values map[string]Value) FieldContent {
	out := make(map[string]Value, len(values))
	maps.Copy(out, values)
	return FieldContent{kind: FieldStructured, values: out}
}

// Kind reports which variant c holds.
func (c FieldContent) Kind() FieldKind { return c.kind }

// Text returns the text variant, or "" for structured content.
func (c FieldContent) Text() string { return c.text }

// Get returns the value stored under key.
func (c FieldContent) Get(key string) (Value, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the structured keys in sorted order.
func (c FieldContent) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Values returns a copy of the structured map.
func (c FieldContent) Values() map[string]Value {
	out := make(map[string]Value, len(c.values))
	maps.Copy(out, c.values)
	return out
}

// Len is the number of structured keys, or the trimmed text length.
func (c FieldContent) Len() int {
	if c.kind == FieldText {
		return len(strings.TrimSpace(c.text))
	}
	return len(c.values)
}

// With returns a copy of c with key set to v.
func (c FieldContent) With(key string, v Value) FieldContent {
	out := c.Values()
	out[key] = v
	return FieldContent{kind: FieldStructured, values: out}
}

// Without returns a copy of c with the given keys removed.
func (c FieldContent) Without(keys ...string) FieldContent {
	if c.kind == FieldText {
		return c
	}
	out := c.Values()
	for _, k := range keys {
		delete(out, k)
	}
	return FieldContent{kind: FieldStructured, values: out}
}

// Equal reports deep equality of two contents.
func (c FieldContent) Equal(o FieldContent) bool {
	if c.kind != o.kind {
		return false
	}
	if c.kind == FieldText {
		return c.text == o.text
	}
	if len(c.values) != len(o.values) {
		return false
	}
	for k, v := range c.values {
		ov, ok := o.values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler. Text marshals as a JSON string,
// structured content as an object with sorted keys.
func (c FieldContent) MarshalJSON() ([]byte, error) {
	if c.kind == FieldText {
		return json.Marshal(c.text)
	}
	if c.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.values)
}

// ParseFieldContent decodes raw section JSON as the given kind. A text
// section must be a JSON string; a structured section must be an object
// whose values are strings, numbers or lists of strings.
func ParseFieldContent(raw json.RawMessage, kind FieldKind) (FieldContent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if kind == FieldText {
			return NewText(""), nil
		}
		return NewStructured(nil), nil
	}

	if kind == FieldText {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return FieldContent{}, eris.Wrap(err, "model: decode text section")
		}
		return NewText(s), nil
	}

	var values map[string]Value
	if err := json.Unmarshal(raw, &values); err != nil {
		return FieldContent{}, eris.Wrap(err, "model: decode structured section")
	}
	return NewStructured(values), nil
}
