package vals

import (
	"math"

	"github.com/xiaq/persistent/hash"
)

// Hasher wraps the Hash method.
type Hasher interface {
	// Hash computes the hash code of the receiver.
	Hash() uint32
}

// Hash returns the 32-bit hash of a value. It is implemented for nil, int64,
// float64, string and types satisfying the Hasher interface. For other
// values, it returns 0 (which is OK in terms of correctness).
func Hash(v any) uint32 {
	switch v := v.(type) {
	case nil:
		return 0
	case int64:
		return hash.UInt64(uint64(v))
	case float64:
		// Integral floats hash like the equal int64.
		if v >= math.MinInt64 && v < math.MaxInt64 && v == math.Trunc(v) {
			i := int64(v)
			return hash.UInt64(uint64(i))
		}
		return hash.UInt64(math.Float64bits(v))
	case string:
		return hash.String(v)
	case Hasher:
		return v.Hash()
	}
	return 0
}
