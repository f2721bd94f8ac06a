package eval

import (
	"github.com/google/uuid"
)

// Instrument observes the evaluation of expressions by their identities. All
// methods are called from the goroutine running the evaluation.
type Instrument interface {
	// Interested reports whether the expression with the given identity
	// should be observed. Expressions in tail position that are observed
	// lose tail call elimination.
	Interested(id uuid.UUID) bool
	// Enter is called before an observed expression is evaluated. If it
	// returns true, the expression is not evaluated and the returned value is
	// used as its value.
	Enter(id uuid.UUID) (any, bool)
	// Return is called with the value of an observed expression after it
	// has been evaluated.
	Return(id uuid.UUID, v any)
}
