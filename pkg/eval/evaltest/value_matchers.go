package evaltest

import (
	"math"

	"src.strand.sh/pkg/eval/vals"
)

// ValueMatcher is a value that can be passed to Case.Evals and has its own
// matching semantics.
type ValueMatcher interface{ matchValue(any) bool }

// Anything matches anything. It is useful when the value contains information
// that is useful when the test fails.
var Anything ValueMatcher = anything{}

type anything struct{}

func (anything) matchValue(any) bool { return true }

// Repr matches any value whose representation is the given string. It is
// mostly used for atoms and functions, whose constructors are only available
// from the Evaler.
func Repr(s string) ValueMatcher { return reprMatcher{s} }

type reprMatcher struct{ repr string }

func (m reprMatcher) matchValue(v any) bool { return vals.Repr(v) == m.repr }

// Kind matches any value of the given kind.
func Kind(k string) ValueMatcher { return kindMatcher{k} }

type kindMatcher struct{ kind string }

func (m kindMatcher) matchValue(v any) bool { return vals.Kind(v) == m.kind }

// ApproximatelyThreshold defines the threshold for matching float64 values when
// using Approximately.
const ApproximatelyThreshold = 1e-15

// Approximately matches a float64 within the threshold defined by
// ApproximatelyThreshold.
func Approximately(f float64) ValueMatcher { return approximately{f} }

type approximately struct{ value float64 }

func (a approximately) matchValue(value any) bool {
	if value, ok := value.(float64); ok {
		return matchFloat64(a.value, value, ApproximatelyThreshold)
	}
	return false
}

func matchFloat64(a, b, threshold float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if math.IsInf(a, 0) && math.IsInf(b, 0) &&
		math.Signbit(a) == math.Signbit(b) {
		return true
	}
	return math.Abs(a-b) <= math.Abs(a)*threshold
}

func normalize(v any) any {
	if i, ok := v.(int); ok {
		return int64(i)
	}
	return v
}

func match(got, want any) bool {
	if m, ok := want.(ValueMatcher); ok {
		return m.matchValue(got)
	}
	if got, ok := got.(float64); ok {
		if want, ok := want.(float64); ok {
			return matchFloat64(got, want, 0)
		}
	}
	return vals.Equal(got, want)
}

func repr(v any) string {
	switch v := v.(type) {
	case reprMatcher:
		return v.repr
	case kindMatcher:
		return "value of kind " + v.kind
	case ValueMatcher:
		return "matching value"
	}
	return vals.Repr(v)
}
