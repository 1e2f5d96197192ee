package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Value is a loosely typed cell scalar: null, string, number or boolean.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
}

// NullValue returns the null value.
func NullValue() Value { return Value{Kind: KindNull} }

// NewString wraps a string.
func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

// NewNumber wraps a number.
func NewNumber(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// NewBool wraps a boolean.
func NewBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// FromInterface converts a decoded Go value into a Value. Unknown types
// are rendered with %v and kept as strings.
func FromInterface(x interface{}) Value {
	switch t := x.(type) {
	case nil:
		return NullValue()
	case Value:
		return t
	case string:
		return NewString(t)
	case bool:
		return NewBool(t)
	case float64:
		return NewNumber(t)
	case float32:
		return NewNumber(float64(t))
	case int:
		return NewNumber(float64(t))
	case int32:
		return NewNumber(float64(t))
	case int64:
		return NewNumber(float64(t))
	case uint:
		return NewNumber(float64(t))
	case uint32:
		return NewNumber(float64(t))
	case uint64:
		return NewNumber(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return NewNumber(f)
		}
		return NewString(t.String())
	default:
		return NewString(fmt.Sprintf("%v", t))
	}
}

// IsNull reports whether v holds null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders v the way a browser's String(v) would, which is the text
// search matches against.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return FormatNumber(v.Num)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return "null"
	}
}

// Interface returns the underlying Go value (nil, string, float64 or bool).
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	default:
		return nil
	}
}

// MarshalJSON encodes v as a plain JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindNumber && (math.IsNaN(v.Num) || math.IsInf(v.Num, 0)) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

// FormatNumber formats f as the shortest round-trip decimal, switching to
// exponent notation outside [1e-6, 1e21).
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
