package model

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/rotisserie/eris"
)

// ValueKind identifies which variant a Value holds.
type ValueKind int

const (
	// ValueString is a scalar string.
	ValueString ValueKind = iota
	// ValueList is an ordered list of strings.
	ValueList
	// ValueNumber is a JSON number kept in its textual form.
	ValueNumber
	// ValueNull is an explicit JSON null. It round-trips as null and only
	// equals another null.
	ValueNull
)

func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueList:
		return "list"
	case ValueNumber:
		return "number"
	case ValueNull:
		return "null"
	default:
		return "unknown"
	}
}

// Value is a single value inside a structured field section. It is a closed
// sum type: string, list of strings, number, or null.
type Value struct {
	kind  ValueKind
	str   string
	items []string
	num   json.Number
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: ValueString, str: s}
}

// ListValue returns a list Value. The items are copied.
func ListValue(items ...string) Value {
	out := make([]string, len(items))
	copy(out, items)
	return Value{kind: ValueList, items: out}
}

// NumberValue returns a number Value from its JSON text.
func NumberValue(n json.Number) Value {
	return Value{kind: ValueNumber, num: n}
}

// NullValue returns the null Value.
func NullValue() Value {
	return Value{kind: ValueNull}
}

// IsNull reports whether v holds an explicit null.
func (v Value) IsNull() bool { return v.kind == ValueNull }

// Kind reports the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string variant, or "" for other kinds.
func (v Value) Str() string { return v.str }

// Items returns a copy of the list variant, or nil for other kinds.
func (v Value) Items() []string {
	if v.kind != ValueList {
		return nil
	}
	return slices.Clone(v.items)
}

// Num returns the number variant, or "" for other kinds.
func (v Value) Num() json.Number { return v.num }

// Equal reports whether v and o hold the same variant and contents.
// Numbers compare by their float value so "2" and "2.0" are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueString:
		return v.str == o.str
	case ValueList:
		return slices.Equal(v.items, o.items)
	case ValueNumber:
		a, errA := v.num.Float64()
		b, errB := o.num.Float64()
		if errA != nil || errB != nil {
			return v.num == o.num
		}
		return a == b
	case ValueNull:
		return true
	}
	return false
}

// AppendText returns a copy of v with s appended. Strings are joined with a
// single space, lists gain a new item, null becomes the string s. Numbers
// cannot be appended to.
func (v Value) AppendText(s string) (Value, bool) {
	switch v.kind {
	case ValueString:
		if v.str == "" {
			return StringValue(s), true
		}
		return StringValue(v.str + " " + s), true
	case ValueList:
		return ListValue(append(slices.Clone(v.items), s)...), true
	case ValueNull:
		return StringValue(s), true
	default:
		return v, false
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueList:
		if v.items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.items)
	case ValueNumber:
		return []byte(v.num.String()), nil
	case ValueNull:
		return []byte("null"), nil
	default:
		return nil, eris.Errorf("model: unknown value kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Objects, booleans and lists
// holding non-strings are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return eris.New("model: empty value")
	}
	if bytes.Equal(data, []byte("null")) {
		*v = NullValue()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode string value")
		}
		*v = StringValue(s)
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return eris.Wrap(err, "model: decode list value")
		}
		if items == nil {
			items = []string{}
		}
		*v = Value{kind: ValueList, items: items}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var n any
		if err := dec.Decode(&n); err != nil {
			return eris.Wrap(err, "model: decode value")
		}
		num, ok := n.(json.Number)
		if !ok {
			return eris.Errorf("model: unsupported value %s", string(data))
		}
		*v = NumberValue(num)
	}
	return nil
}
