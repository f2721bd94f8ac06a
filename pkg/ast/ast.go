// Package ast defines the resolved expression trees evaluated by the runtime.
//
// Trees are produced by an external loader; this package only describes their
// shape. Every node carries a stable identity, used by instrumentation to
// observe or replace the value of the node, and the source range it was
// loaded from, used in diagnostics.
package ast

import (
	"github.com/google/uuid"

	"src.strand.sh/pkg/diag"
)

// Node is an expression in the tree.
type Node interface {
	diag.Ranger
	// Ident returns the identity of the node. The zero UUID means the node is
	// not identified and can't be instrumented.
	Ident() uuid.UUID
	isNode()
}

// Meta contains the information shared by all nodes. Node types embed it.
type Meta struct {
	ID uuid.UUID
	diag.Ranging
}

// Ident returns m.ID.
func (m Meta) Ident() uuid.UUID { return m.ID }

func (Meta) isNode() {}

// At returns a Meta with a new random identity and the given range.
func At(from, to int) Meta {
	return Meta{uuid.New(), diag.Ranging{From: from, To: to}}
}

// Number is an integer literal.
type Number struct {
	Meta
	Value int64
}

// Decimal is a floating-point literal.
type Decimal struct {
	Meta
	Value float64
}

// Text is a string literal.
type Text struct {
	Meta
	Value string
}

// Var reads a variable. Names not bound lexically are looked up as
// constructors of the enclosing module scope.
type Var struct {
	Meta
	Name string
}

// Here evaluates to the singleton atom of the module's associated type.
type Here struct {
	Meta
}

// Lambda is a function literal.
type Lambda struct {
	Meta
	Params []*Param
	Body   Node
}

// Param is a parameter of a Lambda or a field of a TypeDef. Default is nil
// when the parameter has no default. The argument of a Suspended parameter is
// passed unevaluated and evaluated each time the parameter is read; fields
// can't be suspended.
type Param struct {
	Name      string
	Default   Node
	Suspended bool
}

// Apply applies a function to arguments.
type Apply struct {
	Meta
	Fn   Node
	Args []*Arg
}

// Arg is a call-site argument. An argument with a non-empty Name is named;
// one with Ignore set is the "_" placeholder and has no Value.
type Arg struct {
	Name   string
	Value  Node
	Ignore bool
}

// Method calls a method on a receiver. The receiver is passed as the first
// positional argument, bound to the "this" parameter.
type Method struct {
	Meta
	Name     string
	Receiver Node
	Args     []*Arg
}

// Block evaluates its expressions in order and evaluates to the last one. It
// must not be empty.
type Block struct {
	Meta
	Exprs []Node
}

// Assign binds the value of an expression to a new local variable, visible
// to the rest of the enclosing block. It evaluates to the bound value.
type Assign struct {
	Meta
	Name  string
	Value Node
}

// Case selects the first branch whose pattern matches the target. Fallback
// may be nil.
type Case struct {
	Meta
	Target   Node
	Branches []*Branch
	Fallback Node
}

// Branch is a branch of a Case. Pattern evaluates to a constructor, an atom
// or a number; Handler evaluates to a function that is called with the fields
// of the matched target.
type Branch struct {
	Pattern Node
	Handler Node
}

// Positional returns positional arguments with the given values.
func Positional(values ...Node) []*Arg {
	args := make([]*Arg, len(values))
	for i, v := range values {
		args[i] = &Arg{Value: v}
	}
	return args
}
