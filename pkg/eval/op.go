package eval

import (
	"sync/atomic"

	"github.com/google/uuid"
	"src.strand.sh/pkg/diag"
	"src.strand.sh/pkg/eval/errs"
)

// An op is the result of compiling an expression. It takes the world token
// and returns the updated token along with the value. A TailCall error may
// only be returned by ops compiled in tail position.
type op interface {
	exec(th *Thread, fm *Frame, w World) (World, any, error)
}

type constOp struct{ v any }

func (o constOp) exec(th *Thread, fm *Frame, w World) (World, any, error) {
	return w, o.v, nil
}

type varOp struct {
	ctx  *diag.Context
	up   int
	idx  int
	name string
	// Whether a suspended argument read here is forced in tail position.
	tail bool
}

func (o *varOp) exec(th *Thread, fm *Frame, w World) (World, any, error) {
	v := fm.outer(o.up).slots[o.idx]
	if v == nil || v == unset {
		return w, nil, th.errorp(o.ctx, errs.UnboundVariable{Name: o.name})
	}
	if t, ok := v.(*thunk); ok {
		return th.force(o.ctx, t, w, o.tail)
	}
	return w, v, nil
}

type lambdaOp struct {
	body   *closureBody
	schema *Schema
	// Shared by all functions created by this op; never modified.
	args []any
}

func (o *lambdaOp) exec(th *Thread, fm *Frame, w World) (World, any, error) {
	return w, &Function{"<lambda>", o.body, fm, o.schema, o.args, nil}, nil
}

// The argument expressions of a call site. Each argument has an op for
// evaluating it now and an op in tail form for suspending it; placeholders
// have nil ops.
type argOps struct {
	now     []op
	suspend []op
}

// Evaluates arguments in order, threading the world. Arguments marked in
// suspended become thunks over fm instead. Placeholders leave a nil value.
func (a argOps) exec(th *Thread, fm *Frame, w World, suspended []bool, vs []any) (World, error) {
	for i, o := range a.now {
		if o == nil {
			continue
		}
		if suspended != nil && suspended[i] {
			vs[i] = &thunk{a.suspend[i], fm}
			continue
		}
		var err error
		w, vs[i], err = o.exec(th, fm, w)
		if err != nil {
			return w, err
		}
	}
	return w, nil
}

type applyOp struct {
	ctx  *diag.Context
	fn   op
	args argOps
	site *callSite
}

func (o *applyOp) exec(th *Thread, fm *Frame, w World) (World, any, error) {
	w, fn, err := o.fn.exec(th, fm, w)
	if err != nil {
		return w, nil, err
	}
	var vs []any
	if len(o.args.now) > 0 {
		vs = make([]any, len(o.args.now))
		w, err = o.args.exec(th, fm, w, o.site.suspended(fn), vs)
		if err != nil {
			return w, nil, err
		}
	}
	w, v, err := th.apply(o.site, fn, w, vs)
	return w, v, th.errorp(o.ctx, err)
}

type methodCacheEntry struct {
	shape receiverShape
	fn    *Function
}

type methodCallOp struct {
	ctx   *diag.Context
	name  string
	scope *ModuleScope
	recv  op
	args  argOps
	site  *callSite
	// Last resolution; methods never change after linking, so the entry is
	// valid as long as the shape matches.
	cache atomic.Pointer[methodCacheEntry]
}

func (o *methodCallOp) exec(th *Thread, fm *Frame, w World) (World, any, error) {
	w, recv, err := o.recv.exec(th, fm, w)
	if err != nil {
		return w, nil, err
	}
	// The method is resolved before the arguments are evaluated, since its
	// schema decides which of them are suspended.
	fn, err := o.resolve(recv)
	if err != nil {
		return w, nil, th.errorp(o.ctx, err)
	}
	vs := make([]any, len(o.args.now)+1)
	vs[0] = recv
	suspended := o.site.suspended(fn)
	if suspended != nil {
		suspended = suspended[1:]
	}
	w, err = o.args.exec(th, fm, w, suspended, vs[1:])
	if err != nil {
		return w, nil, err
	}
	w, v, err := th.apply(o.site, fn, w, vs)
	return w, v, th.errorp(o.ctx, err)
}

func (o *methodCallOp) resolve(recv any) (*Function, error) {
	shape := shapeOf(recv)
	if e := o.cache.Load(); e != nil && e.shape == shape {
		return e.fn, nil
	}
	fn, err := o.scope.LookupMethod(recv, o.name)
	if err != nil {
		return nil, err
	}
	o.cache.Store(&methodCacheEntry{shape, fn})
	return fn, nil
}

type blockOp []op

func (o blockOp) exec(th *Thread, fm *Frame, w World) (World, any, error) {
	var v any
	var err error
	for _, e := range o {
		w, v, err = e.exec(th, fm, w)
		if err != nil {
			return w, nil, err
		}
	}
	return w, v, nil
}

type assignOp struct {
	idx   int
	value op
}

func (o *assignOp) exec(th *Thread, fm *Frame, w World) (World, any, error) {
	w, v, err := o.value.exec(th, fm, w)
	if err != nil {
		return w, nil, err
	}
	fm.slots[o.idx] = v
	return w, v, nil
}

// Builds an atom from the parameter slots of a constructor function.
type newAtomOp struct{ cons *Constructor }

func (o newAtomOp) exec(th *Thread, fm *Frame, w World) (World, any, error) {
	n := len(o.cons.fields)
	if n == 0 {
		return w, o.cons.singleton, nil
	}
	fields := make([]any, n)
	copy(fields, fm.slots[:n])
	return w, &Atom{o.cons, fields}, nil
}

// Wraps the op of an expression with an identity, reporting its value to the
// instrument of the thread.
type instrumentedOp struct {
	id    uuid.UUID
	inner op
}

func (o *instrumentedOp) exec(th *Thread, fm *Frame, w World) (World, any, error) {
	ins := th.instrument
	if ins == nil || !ins.Interested(o.id) {
		return o.inner.exec(th, fm, w)
	}
	if v, ok := ins.Enter(o.id); ok {
		return w, v, nil
	}
	w, v, err := o.inner.exec(th, fm, w)
	if tc, ok := err.(*TailCall); ok {
		tc.observe(o.id)
		return w, nil, tc
	}
	if err != nil {
		return w, nil, err
	}
	ins.Return(o.id, v)
	return w, v, nil
}

// Returns a copy of o compiled as if it were in tail position: calls that
// produce its value raise tail calls and suspended arguments read for its
// value are forced in tail position. Only the ops along the result path are
// copied.
func tailForm(o op) op {
	switch o := o.(type) {
	case *applyOp:
		c := *o
		c.site = o.site.inTail()
		return &c
	case *methodCallOp:
		return &methodCallOp{ctx: o.ctx, name: o.name, scope: o.scope,
			recv: o.recv, args: o.args, site: o.site.inTail()}
	case blockOp:
		c := append(blockOp(nil), o...)
		c[len(c)-1] = tailForm(c[len(c)-1])
		return c
	case *caseOp:
		c := &caseOp{ctx: o.ctx, target: o.target, fallback: o.fallback,
			branches: make([]*caseBranch, len(o.branches))}
		for i, b := range o.branches {
			c.branches[i] = &caseBranch{b.pattern, b.handler,
				&arityCallSites{tail: true, ctx: b.sites.ctx, cacheSize: b.sites.cacheSize}}
		}
		if o.fallbackSite != nil {
			c.fallbackSite = o.fallbackSite.inTail()
		}
		return c
	case *varOp:
		c := *o
		c.tail = true
		return &c
	case *instrumentedOp:
		return &instrumentedOp{o.id, tailForm(o.inner)}
	}
	return o
}

// A suspended argument: an expression and the frame it is evaluated in. It
// is evaluated every time the parameter it is bound to is read.
type thunk struct {
	body  op
	frame *Frame
}

// Kind returns "thunk".
func (*thunk) Kind() string { return "thunk" }

// Repr returns "<thunk>".
func (*thunk) Repr() string { return "<thunk>" }

// Evaluates a thunk with the current world. In tail position a call that
// produces the value is deferred to the enclosing trampoline; elsewhere it is
// made now.
func (th *Thread) force(ctx *diag.Context, t *thunk, w World, tail bool) (World, any, error) {
	w, v, err := t.body.exec(th, t.frame, w)
	if tc, ok := err.(*TailCall); ok && !tail {
		return th.finish(ctx, tc)
	}
	return w, v, err
}
