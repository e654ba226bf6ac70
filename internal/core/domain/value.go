package domain

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindMap
)

// Value is a tagged scalar-or-map used for route metadata and tool-call
// parameters. It replaces untyped map[string]interface{} bags with a defined
// (de)serialization contract: JSON string, number, bool, or object.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Map  map[string]Value
}

func String(s string) Value          { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value         { return Value{Kind: KindNumber, Num: n} }
func Boolean(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func MapOf(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }

// MarshalJSON encodes the active variant directly, without a wrapper object.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindMap:
		return json.Marshal(v.Map)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.Kind)
}

// UnmarshalJSON decodes a JSON string, number, bool, or object. Other JSON
// types are rejected so callers never receive an untagged value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = String(t)
	case float64:
		*v = Number(t)
	case bool:
		*v = Boolean(t)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k := range t {
			var nested Value
			b, err := json.Marshal(t[k])
			if err != nil {
				return err
			}
			if err := nested.UnmarshalJSON(b); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = nested
		}
		*v = MapOf(m)
	default:
		return fmt.Errorf("unsupported value type %T", raw)
	}
	return nil
}

// GoString renders the value for logs.
func (v Value) GoString() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindMap:
		return fmt.Sprintf("%v", v.Map)
	}
	return ""
}
