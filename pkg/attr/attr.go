// Package attr implements the three-valued attribute state used throughout
// the organization model.
//
// Every attribute is either set to a concrete value, explicitly null, or
// unset. Unset means "inherit / do not touch": the attribute is excluded
// from diffing and validation. Null is an explicit absence and does take
// part in diffing. The distinction survives serialization: unset attributes
// are omitted entirely, null attributes serialize as JSON null.
package attr

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// State enumerates the three attribute states.
type State uint8

const (
	// StateUnset marks an attribute that carries no information.
	StateUnset State = iota
	// StateNull marks an explicitly absent attribute.
	StateNull
	// StateSet marks an attribute with a concrete value.
	StateSet
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateSet:
		return "set"
	default:
		return "unset"
	}
}

// Value is a single attribute value together with its state. The zero value
// is unset.
type Value struct {
	state State
	val   any
}

// Unset is the sentinel attribute value.
var Unset = Value{}

// Set returns a set value.
func Set(v any) Value {
	return Value{state: StateSet, val: v}
}

// Null returns an explicitly absent value.
func Null() Value {
	return Value{state: StateNull}
}

// FromAny converts a plain decoded JSON value into an attribute value,
// mapping nil to null.
func FromAny(v any) Value {
	if v == nil {
		return Null()
	}
	return Set(v)
}

// State returns the state of the value.
func (v Value) State() State {
	return v.state
}

// IsSet reports whether the value holds concrete data.
func (v Value) IsSet() bool {
	return v.state == StateSet
}

// IsNull reports whether the value is explicitly absent.
func (v Value) IsNull() bool {
	return v.state == StateNull
}

// IsUnset reports whether the value carries no information.
func (v Value) IsUnset() bool {
	return v.state == StateUnset
}

// Any returns the underlying value; nil unless the value is set.
func (v Value) Any() any {
	if v.state != StateSet {
		return nil
	}
	return v.val
}

// String returns the value as a string, or "" if it is not a set string.
func (v Value) String() string {
	s, _ := v.val.(string)
	if v.state != StateSet {
		return ""
	}
	return s
}

// Bool returns the value as a bool, or false if it is not a set bool. The
// string forms "True"/"true" count as true: the web transport reports
// booleans as strings on some settings pages.
func (v Value) Bool() bool {
	if v.state != StateSet {
		return false
	}
	switch b := v.val.(type) {
	case bool:
		return b
	case string:
		return b == "True" || b == "true"
	default:
		return false
	}
}

// Int returns the value as an int64, converting from the numeric types JSON
// decoding produces.
func (v Value) Int() int64 {
	if v.state != StateSet {
		return 0
	}
	switch n := v.val.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// Strings returns the value as a string slice. JSON decoding yields []any,
// so both representations are accepted.
func (v Value) Strings() []string {
	if v.state != StateSet {
		return nil
	}
	switch l := v.val.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two values are indistinguishable: same state and,
// when set, structurally equal data. When unordered is true, list values
// compare as multisets.
func (v Value) Equal(other Value, unordered bool) bool {
	if v.state != other.state {
		return false
	}
	if v.state != StateSet {
		return true
	}
	if unordered {
		a, b := v.Strings(), other.Strings()
		if a != nil || b != nil {
			return equalUnordered(a, b)
		}
	}
	return cmp.Equal(normalize(v.val), normalize(other.val))
}

func equalUnordered(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}
	return true
}

// normalize converts scalar values into a canonical representation so that
// declared and provider-shaped data compare structurally: all numbers
// become float64 (matching JSON decoding) and string slices become []any.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case []string:
		out := make([]any, len(n))
		for i, s := range n {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// Format renders the value for plan output.
func (v Value) Format() string {
	switch v.state {
	case StateNull:
		return "null"
	case StateUnset:
		return "<unset>"
	default:
		return fmt.Sprintf("%v", v.val)
	}
}
