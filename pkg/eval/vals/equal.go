package vals

import (
	"reflect"
)

// Equaler wraps the Equal method.
type Equaler interface {
	// Equal compares the receiver to another value. Two equal values must
	// have the same hash code.
	Equal(other any) bool
}

// Equal returns whether two values are equal. Numbers compare by numeric
// value regardless of representation, so 1 and 1.0 are equal. Types
// satisfying the Equaler interface use their Equal method; other values
// fall back to reflect.DeepEqual.
func Equal(x, y any) bool {
	switch x := x.(type) {
	case nil:
		return y == nil
	case int64:
		switch y := y.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := y.(type) {
		case int64:
			return x == float64(y)
		case float64:
			return x == y
		}
		return false
	case string:
		return x == y
	case Equaler:
		return x.Equal(y)
	}
	return reflect.DeepEqual(x, y)
}
