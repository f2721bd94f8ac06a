package vals

import (
	"fmt"
	"math"
	"strconv"
)

// Reprer wraps the Repr method.
type Reprer interface {
	// Repr returns a string that represents a value. For atoms this is a
	// literal like `(Cons 1 Nil)`; for values without a literal syntax it is
	// a string enclosed in "<>" containing the kind and name of the value,
	// like `<fn add>`.
	Repr() string
}

// Repr returns the representation for a value. It is implemented for nil,
// int64, float64 and string, and types satisfying the Reprer interface. For
// other types, it uses fmt.Sprint with the format "<unknown %v>".
func Repr(v any) string {
	switch v := v.(type) {
	case nil:
		return "<nil>"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat64(v)
	case string:
		return strconv.Quote(v)
	case Reprer:
		return v.Repr()
	default:
		return fmt.Sprintf("<unknown %v>", v)
	}
}

// ToText converts a value to text. Text values are returned unchanged, and
// other values use their representation.
func ToText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Repr(v)
}

func formatFloat64(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Always keep a decimal point so that decimals can be told apart from
	// numbers.
	for _, r := range s {
		if r == '.' || r == 'e' {
			return s
		}
	}
	return s + ".0"
}
