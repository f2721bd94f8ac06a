package vals

import (
	"fmt"
)

// Kinder wraps the Kind method.
type Kinder interface {
	Kind() string
}

// Kind returns the "kind" of the value, the name used for it in error
// messages and by the to_text builtin. It is implemented for nil, int64,
// float64 and string, and types satisfying the Kinder interface. For other
// types, it returns the Go type name of the argument preceded by "!!".
func Kind(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case int64, float64:
		return "number"
	case string:
		return "text"
	case Kinder:
		return v.Kind()
	default:
		return fmt.Sprintf("!!%T", v)
	}
}
