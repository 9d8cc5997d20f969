package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing attribute values.
// Only Null, String, Int, Float, and Bool implement this.
//
// Null only has meaning in patterns: the attribute must exist on the
// matched world node, its value is unconstrained.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null attribute value.
type Null struct{}

func (Null) value() {}

// String represents a string attribute value.
type String string

func (String) value() {}

// Int represents an integral attribute value.
type Int int64

func (Int) value() {}

// Float represents a non-integral attribute value.
type Float float64

func (Float) value() {}

// Bool represents a boolean attribute value.
type Bool bool

func (Bool) value() {}

// IsNumber reports whether v is an Int or a Float.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	}
	return false
}

// AsFloat returns the numeric value of v.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}

// Equal compares two values. Numbers compare by magnitude, so Int(10)
// equals Float(10).
func Equal(a, b Value) bool {
	if fa, ok := AsFloat(a); ok {
		fb, ok := AsFloat(b)
		return ok && fa == fb
	}
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	}
	return false
}

// Normalize folds integral floats back to Int so arithmetic on integer
// attributes keeps producing integers.
func Normalize(v Value) Value {
	f, ok := v.(Float)
	if !ok {
		return v
	}
	if float64(f) == math.Trunc(float64(f)) && math.Abs(float64(f)) < 1<<53 {
		return Int(int64(f))
	}
	return v
}

// TypeName returns a short type label used in diagnostics.
func TypeName(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}

// FormatValue renders v for text output.
func FormatValue(v Value) string {
	switch x := v.(type) {
	case Null:
		return "null"
	case String:
		return string(x)
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return formatFloat(float64(x))
	case Bool:
		return strconv.FormatBool(bool(x))
	}
	return "<nil>"
}

// ValueOf converts a decoded Go value (from encoding/json, yaml.v3 or CUE)
// into a Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("number out of int64 range: %d", x)
		}
		return Int(int64(x)), nil
	case float64:
		return Normalize(Float(x)), nil
	case json.Number:
		return numberValue(string(x))
	default:
		return nil, fmt.Errorf("unsupported attribute value type: %T", v)
	}
}

// numberValue parses a JSON number literal. Literals without a fraction or
// exponent become Int; everything else becomes Float.
func numberValue(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return Int(n), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

// UnmarshalValue decodes a single JSON scalar into a Value.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return ValueOf(raw)
}

// MarshalValue marshals a Value to JSON bytes.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for digests.
func MarshalValue(v Value) ([]byte, error) {
	switch x := v.(type) {
	case Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(x))
	case Int:
		return json.Marshal(int64(x))
	case Float:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, fmt.Errorf("non-finite number: %v", float64(x))
		}
		return []byte(formatFloat(float64(x))), nil
	case Bool:
		return json.Marshal(bool(x))
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// formatFloat renders a float the way ECMAScript Number.toString does for
// the magnitudes that occur in attributes.
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Attributes maps attribute names to values.
// Use SortedKeys() for deterministic iteration.
type Attributes map[string]Value

// Clone returns a shallow copy (values are immutable).
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (a Attributes) SortedKeys() []string {
	return sortedKeys(a)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// UnmarshalJSON implements json.Unmarshaler for Attributes.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = make(Attributes, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", k, err)
		}
		(*a)[k] = val
	}
	return nil
}

// MarshalJSON implements json.Marshaler for Attributes with sorted keys.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range a.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(a[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
