// Package errs declares the reported error types of the evaluation core.
//
// Each type belongs to one of five categories, returned by CategoryOf:
// arity/shape, resolution, type, non-invokable and match exhaustiveness.
package errs

import (
	"errors"
	"fmt"
	"strconv"
)

// Category classifies a reported error.
type Category int

// Possible values of Category.
const (
	NotReported Category = iota
	Arity
	Resolution
	Type
	NonInvokable
	Exhaustiveness
)

var categoryNames = [...]string{
	NotReported:    "not reported",
	Arity:          "arity",
	Resolution:     "resolution",
	Type:           "type",
	NonInvokable:   "non-invokable",
	Exhaustiveness: "exhaustiveness",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Category(" + strconv.Itoa(int(c)) + ")"
	}
	return categoryNames[c]
}

type categorized interface {
	Category() Category
}

// CategoryOf returns the category of the first error in err's chain that has
// one, or NotReported.
func CategoryOf(err error) Category {
	var c categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	return NotReported
}

// UnknownArgument is returned when a named argument matches no parameter.
type UnknownArgument struct {
	Name string
}

// Error implements the error interface.
func (e UnknownArgument) Error() string {
	return "unknown argument: " + e.Name
}

// Category returns Arity.
func (UnknownArgument) Category() Category { return Arity }

// DuplicateArgument is returned when a named argument targets a parameter that
// has already been filled at the same call site.
type DuplicateArgument struct {
	Name string
}

// Error implements the error interface.
func (e DuplicateArgument) Error() string {
	return "duplicate argument: " + e.Name + " is already supplied"
}

// Category returns Arity.
func (DuplicateArgument) Category() Category { return Arity }

// ArityMismatch encodes an error where the expected number of values is out of
// the valid range.
type ArityMismatch struct {
	What      string
	ValidLow  int
	ValidHigh int
	Actual    int
}

// Error implements the error interface.
func (e ArityMismatch) Error() string {
	if e.ValidHigh == e.ValidLow {
		return fmt.Sprintf("arity mismatch: %v must be %v, but is %v",
			e.What, nValues(e.ValidLow), nValues(e.Actual))
	} else if e.ValidHigh == -1 {
		return fmt.Sprintf("arity mismatch: %v must be %v or more values, but is %v",
			e.What, e.ValidLow, nValues(e.Actual))
	}
	return fmt.Sprintf("arity mismatch: %v must be %v to %v values, but is %v",
		e.What, e.ValidLow, e.ValidHigh, nValues(e.Actual))
}

// Category returns Arity.
func (ArityMismatch) Category() Category { return Arity }

func nValues(n int) string {
	if n == 1 {
		return "1 value"
	}
	return strconv.Itoa(n) + " values"
}

// NoSuchMethod is returned when method resolution exhausts every table.
type NoSuchMethod struct {
	Receiver string
	Method   string
}

// Error implements the error interface.
func (e NoSuchMethod) Error() string {
	return fmt.Sprintf("no such method: %s has no method %s", e.Receiver, e.Method)
}

// Category returns Resolution.
func (NoSuchMethod) Category() Category { return Resolution }

// UnboundVariable is returned when a variable slot is read before it has
// been assigned.
type UnboundVariable struct {
	Name string
}

// Error implements the error interface.
func (e UnboundVariable) Error() string {
	return "unbound variable: " + e.Name
}

// Category returns Resolution.
func (UnboundVariable) Category() Category { return Resolution }

// TypeMismatch is returned when a value of one kind reaches an operation
// requiring another.
type TypeMismatch struct {
	What   string
	Valid  string
	Actual string
}

// Error implements the error interface.
func (e TypeMismatch) Error() string {
	return fmt.Sprintf("type mismatch: %s must be %s, but is %s", e.What, e.Valid, e.Actual)
}

// Category returns Type.
func (TypeMismatch) Category() Category { return Type }

// NotInvokable is returned when a value that is neither a function nor a
// constructor is applied.
type NotInvokable struct {
	Value string
}

// Error implements the error interface.
func (e NotInvokable) Error() string {
	return "not invokable: " + e.Value
}

// Category returns NonInvokable.
func (NotInvokable) Category() Category { return NonInvokable }

// InexhaustiveMatch is returned when no branch of a case expression matches
// and no fallback was written.
type InexhaustiveMatch struct {
	Target string
}

// Error implements the error interface.
func (e InexhaustiveMatch) Error() string {
	return "inexhaustive match: no branch matches " + e.Target
}

// Category returns Exhaustiveness.
func (InexhaustiveMatch) Category() Category { return Exhaustiveness }
