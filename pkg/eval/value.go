package eval

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/xiaq/persistent/hash"
	"src.strand.sh/pkg/eval/vals"
)

// World is the token threaded through every call to sequence effects. It is
// never inspected by the core; only the State.get and State.put builtins
// read and replace the cell it carries.
type World struct {
	state any
}

// NewWorld returns a World whose state cell holds the given value.
func NewWorld(state any) World { return World{state} }

// State returns the value of the state cell.
func (w World) State() any { return w.state }

// Atom is a value built by a constructor. Nullary constructors have a single
// shared Atom.
type Atom struct {
	cons   *Constructor
	fields []any
}

// Constructor returns the constructor that built the atom.
func (a *Atom) Constructor() *Constructor { return a.cons }

// Fields returns a copy of the fields of the atom.
func (a *Atom) Fields() []any {
	return append([]any(nil), a.fields...)
}

// Kind returns "atom".
func (a *Atom) Kind() string { return "atom" }

// Repr returns the name of a nullary atom, or the constructor name and the
// field representations enclosed in parentheses.
func (a *Atom) Repr() string {
	if len(a.fields) == 0 {
		return a.cons.name
	}
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(a.cons.name)
	for _, f := range a.fields {
		sb.WriteString(" ")
		sb.WriteString(vals.Repr(f))
	}
	sb.WriteString(")")
	return sb.String()
}

// Equal compares the constructor by identity and the fields structurally.
func (a *Atom) Equal(other any) bool {
	b, ok := other.(*Atom)
	if !ok || a.cons != b.cons || len(a.fields) != len(b.fields) {
		return false
	}
	for i := range a.fields {
		if !vals.Equal(a.fields[i], b.fields[i]) {
			return false
		}
	}
	return true
}

// Hash combines the address of the constructor with the hashes of the
// fields.
func (a *Atom) Hash() uint32 {
	h := hash.DJBCombine(hash.DJBInit, hash.Pointer(unsafe.Pointer(a.cons)))
	for _, f := range a.fields {
		h = hash.DJBCombine(h, vals.Hash(f))
	}
	return h
}

// Constructor is the identity of a kind of atom. Constructors are compared by
// address: two modules may declare constructors with the same name.
type Constructor struct {
	name   string
	fields []Param
	scope  *ModuleScope
	// Compiled when the owning module is linked. A nil entry means the field
	// has no default.
	defaults  []op
	frameSize int

	singleton *Atom

	fnOnce sync.Once
	fn     *Function
}

func newConstructor(name string, fields []Param, scope *ModuleScope) *Constructor {
	c := &Constructor{name: name, fields: fields, scope: scope}
	if len(fields) == 0 {
		c.singleton = &Atom{cons: c}
	}
	return c
}

// Name returns the name of the constructor.
func (c *Constructor) Name() string { return c.name }

// Arity returns the number of fields.
func (c *Constructor) Arity() int { return len(c.fields) }

// Scope returns the module scope that declares the constructor.
func (c *Constructor) Scope() *ModuleScope { return c.scope }

// New builds an atom from field values without evaluating defaults. It
// returns the shared instance for nullary constructors.
func (c *Constructor) New(fields ...any) *Atom {
	if c.singleton != nil {
		return c.singleton
	}
	return &Atom{c, fields}
}

// Function returns the function that builds atoms of this constructor. It is
// built on first use.
func (c *Constructor) Function() *Function {
	c.fnOnce.Do(func() {
		defaults := c.defaults
		if defaults == nil {
			defaults = make([]op, len(c.fields))
		}
		frameSize := c.frameSize
		if frameSize < len(c.fields) {
			frameSize = len(c.fields)
		}
		body := &closureBody{
			strategy:  strategyDirect,
			frameSize: frameSize,
			defaults:  defaults,
			body:      newAtomOp{c},
		}
		c.fn = newFunction(c.name, body, nil, newSchema(c.fields))
	})
	return c.fn
}

// Kind returns "constructor".
func (c *Constructor) Kind() string { return "constructor" }

// Repr returns "<constructor name>".
func (c *Constructor) Repr() string { return "<constructor " + c.name + ">" }

// Equal compares by address.
func (c *Constructor) Equal(other any) bool { return c == other }

// Hash returns the hash of the address.
func (c *Constructor) Hash() uint32 { return hash.Pointer(unsafe.Pointer(c)) }

// ErrorValue is a value representing a failure. It is an ordinary value with
// its own method table category; it does not abort evaluation.
type ErrorValue struct {
	payload any
}

// NewErrorValue wraps a payload in an ErrorValue.
func NewErrorValue(payload any) *ErrorValue { return &ErrorValue{payload} }

// Payload returns the payload.
func (e *ErrorValue) Payload() any { return e.payload }

// Kind returns "error".
func (e *ErrorValue) Kind() string { return "error" }

// Repr returns "(Error payload)".
func (e *ErrorValue) Repr() string { return "(Error " + vals.Repr(e.payload) + ")" }

// Equal compares the payloads.
func (e *ErrorValue) Equal(other any) bool {
	f, ok := other.(*ErrorValue)
	return ok && vals.Equal(e.payload, f.payload)
}

// Hash hashes the payload.
func (e *ErrorValue) Hash() uint32 {
	return hash.DJB(hash.String("error"), vals.Hash(e.payload))
}
