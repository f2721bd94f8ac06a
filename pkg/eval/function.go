package eval

import (
	"unsafe"

	"github.com/xiaq/persistent/hash"
)

// Param describes one parameter of a function. The argument of a suspended
// parameter is not evaluated at the call site; it is evaluated each time the
// parameter is read.
type Param struct {
	Name       string
	HasDefault bool
	Suspended  bool
}

// Schema is the parameter schema of a function together with which
// parameters are already applied. Schemas are compared by address in
// argument matching caches; functions curried at the same call site share
// the same Schema.
type Schema struct {
	params     []Param
	preApplied []bool
	nApplied   int
	// Whether any parameter is suspended.
	suspends bool
}

func newSchema(params []Param) *Schema {
	s := &Schema{params: params, preApplied: make([]bool, len(params))}
	for _, p := range params {
		s.suspends = s.suspends || p.Suspended
	}
	return s
}

// Params returns the parameters of the schema.
func (s *Schema) Params() []Param { return s.params }

// PreApplied returns whether the i-th parameter already has a value.
func (s *Schema) PreApplied(i int) bool { return s.preApplied[i] }

// Remaining returns the number of parameters that have not been applied.
func (s *Schema) Remaining() int { return len(s.params) - s.nApplied }

// Unique sentinel for parameter slots that have not been filled.
type unsetValue struct{}

var unset any = unsetValue{}

type callStrategy int

const (
	// The body is called in the current Go stack frame and never raises tail
	// calls.
	strategyDirect callStrategy = iota
	// The body may raise tail calls and is run inside a trampoline.
	strategyLoop
)

type callTarget interface {
	callStrategy() callStrategy
	invoke(th *Thread, fn *Function, w World, args []any) (World, any, error)
}

// Function is a function value: a body, the captured definition-time frame,
// the schema, pre-applied arguments and oversaturated arguments waiting to
// be forwarded to the result.
type Function struct {
	name     string
	body     callTarget
	captured *Frame
	schema   *Schema
	// One entry per parameter; unset for parameters not applied yet.
	args    []any
	oversat []any
}

func newFunction(name string, body callTarget, captured *Frame, schema *Schema) *Function {
	return &Function{name, body, captured, schema, unsetArgs(len(schema.params)), nil}
}

func unsetArgs(n int) []any {
	if n == 0 {
		return nil
	}
	args := make([]any, n)
	for i := range args {
		args[i] = unset
	}
	return args
}

// Name returns the name of the function. Anonymous functions are named
// "<lambda>".
func (f *Function) Name() string { return f.name }

// Schema returns the schema of the function.
func (f *Function) Schema() *Schema { return f.schema }

// Arity returns the number of parameters not applied yet.
func (f *Function) Arity() int { return f.schema.Remaining() }

// Applied returns the pre-applied arguments in declaration order, with nil
// for parameters not applied yet.
func (f *Function) Applied() []any {
	applied := make([]any, len(f.args))
	for i, arg := range f.args {
		if arg != unset {
			applied[i] = arg
		}
	}
	return applied
}

// Oversaturated returns the arguments to be forwarded to the result.
func (f *Function) Oversaturated() []any {
	return append([]any(nil), f.oversat...)
}

// Kind returns "fn".
func (f *Function) Kind() string { return "fn" }

// Repr returns "<fn name>".
func (f *Function) Repr() string { return "<fn " + f.name + ">" }

// Equal compares by address.
func (f *Function) Equal(other any) bool { return f == other }

// Hash returns the hash of the address.
func (f *Function) Hash() uint32 { return hash.Pointer(unsafe.Pointer(f)) }

// Body of functions compiled from lambdas and of constructors.
type closureBody struct {
	strategy  callStrategy
	frameSize int
	defaults  []op
	// Defaults of suspended parameters are bound as thunks.
	suspended []bool
	body      op
}

func (b *closureBody) callStrategy() callStrategy { return b.strategy }

func (b *closureBody) invoke(th *Thread, fn *Function, w World, args []any) (World, any, error) {
	fm := &Frame{up: fn.captured, slots: make([]any, b.frameSize)}
	copy(fm.slots, args)
	// Defaults are evaluated only for slots that were not supplied, in
	// declaration order, so they can refer to earlier parameters.
	for i, d := range b.defaults {
		if d == nil || fm.slots[i] != unset {
			continue
		}
		if b.suspended != nil && b.suspended[i] {
			fm.slots[i] = &thunk{d, fm}
			continue
		}
		var v any
		var err error
		w, v, err = d.exec(th, fm, w)
		if err != nil {
			return w, nil, err
		}
		fm.slots[i] = v
	}
	return b.body.exec(th, fm, w)
}

// NativeImpl implements a builtin function. The args slice has one element
// per parameter and must not be modified.
type NativeImpl func(th *Thread, w World, args []any) (World, any, error)

type nativeBody struct {
	impl NativeImpl
}

func (nativeBody) callStrategy() callStrategy { return strategyDirect }

func (b nativeBody) invoke(th *Thread, fn *Function, w World, args []any) (World, any, error) {
	return b.impl(th, w, args)
}

// NewNative creates a builtin function with the given required parameters.
func NewNative(name string, params []string, impl NativeImpl) *Function {
	ps := make([]Param, len(params))
	for i, p := range params {
		ps[i] = Param{Name: p}
	}
	return newFunction(name, nativeBody{impl}, nil, newSchema(ps))
}
