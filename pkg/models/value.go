package models

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Value is the single dynamically-typed sum type used at the edges of the
// core — request/response envelopes, interpreter metadata, step variables —
// per spec.md §9's "stringly-typed cross-boundary JSON" note. Internally,
// precise structs are used throughout; conversion to/from Value happens only
// at those boundaries.
//
// Value wraps raw JSON text and defers parsing to gjson, rather than holding
// a decoded any tree, so that values round-trip byte-for-byte when they are
// only ever passed through (the common case for env, metadata, step_vars).
type Value struct {
	raw string
}

// NewValue wraps an already-encoded JSON document.
func NewValue(raw []byte) Value {
	if len(raw) == 0 {
		return Value{raw: "null"}
	}
	return Value{raw: string(raw)}
}

// ValueOf encodes an arbitrary Go value into a Value.
func ValueOf(v any) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("models: encode value: %w", err)
	}
	return Value{raw: string(raw)}, nil
}

// Raw returns the underlying JSON text.
func (v Value) Raw() []byte {
	if v.raw == "" {
		return []byte("null")
	}
	return []byte(v.raw)
}

// Get resolves a gjson path against the value, e.g. v.Get("user.name").
func (v Value) Get(path string) gjson.Result {
	return gjson.Parse(v.raw).Get(path)
}

// Set returns a copy of v with path set to value, encoded as JSON.
func (v Value) Set(path string, value any) (Value, error) {
	raw, err := sjson.Set(v.raw, path, value)
	if err != nil {
		return Value{}, fmt.Errorf("models: set %q: %w", path, err)
	}
	return Value{raw: raw}, nil
}

// IsNull reports whether the value is JSON null or empty.
func (v Value) IsNull() bool {
	return v.raw == "" || v.raw == "null"
}

func (v Value) String() string {
	return v.raw
}

// MarshalJSON implements json.Marshaler by emitting the raw document as-is.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw == "" {
		return []byte("null"), nil
	}
	return []byte(v.raw), nil
}

// UnmarshalJSON implements json.Unmarshaler by capturing the raw document.
func (v *Value) UnmarshalJSON(data []byte) error {
	v.raw = string(data)
	return nil
}
