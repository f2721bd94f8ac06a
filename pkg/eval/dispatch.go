package eval

import (
	"sync/atomic"

	"github.com/google/uuid"
	"src.strand.sh/pkg/diag"
	"src.strand.sh/pkg/eval/errs"
	"src.strand.sh/pkg/eval/vals"
)

// TailCall is raised by a call in tail position instead of entering the
// callee. It travels up the Go stack as an error until it reaches the
// nearest trampoline, which then calls the function. It never escapes a
// trampoline and is never wrapped in an Exception.
type TailCall struct {
	fn   *Function
	w    World
	args []any
	// Identities of observed expressions the call passed through. Their
	// value is the value the trampoline eventually produces.
	observed []uuid.UUID
}

// Error implements the error interface.
func (*TailCall) Error() string { return "tail call outside trampoline" }

func (tc *TailCall) observe(id uuid.UUID) {
	tc.observed = addID(tc.observed, id)
}

// Adds an identity to a list unless already present. The lists stay as short
// as the number of distinct expressions in tail position, so a linear scan is
// enough.
func addID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}

// A call site: the shapes of the arguments, whether the call is in tail
// position, and the argument matching cache.
type callSite struct {
	infos []ArgInfo
	tail  bool
	ctx   *diag.Context
	cache argCache
	// Sites for forwarding oversaturated arguments to the result, which
	// inherit the tail flag.
	forward *arityCallSites
}

func newCallSite(infos []ArgInfo, tail bool, ctx *diag.Context, cacheSize int) *callSite {
	return &callSite{
		infos: infos, tail: tail, ctx: ctx, cache: argCache{size: cacheSize},
		forward: &arityCallSites{tail: tail, ctx: ctx, cacheSize: cacheSize}}
}

// Returns a call site with the same arguments in tail position.
func (s *callSite) inTail() *callSite {
	if s.tail {
		return s
	}
	return newCallSite(s.infos, true, s.ctx, s.cache.size)
}

// Returns which arguments of the call site fill suspended parameters of
// callee, or nil if none do. Matching errors are left to apply.
func (s *callSite) suspended(callee any) []bool {
	var fn *Function
	switch callee := callee.(type) {
	case *Function:
		fn = callee
	case *Constructor:
		fn = callee.Function()
	}
	if fn == nil || !fn.schema.suspends {
		return nil
	}
	m, err := s.cache.lookup(fn.schema, s.infos)
	if err != nil {
		return nil
	}
	return m.suspended
}

// Lazily created call sites with only positional arguments, one for each
// number of arguments. Used where the number of arguments is known only at
// runtime: case handlers, forwarding of oversaturated arguments and calls
// from builtins.
type arityCallSites struct {
	tail      bool
	ctx       *diag.Context
	cacheSize int
	sites     [8]atomic.Pointer[callSite]
}

func (a *arityCallSites) get(n int) *callSite {
	if n >= len(a.sites) {
		return a.make(n)
	}
	if site := a.sites[n].Load(); site != nil {
		return site
	}
	site := a.make(n)
	if a.sites[n].CompareAndSwap(nil, site) {
		return site
	}
	return a.sites[n].Load()
}

func (a *arityCallSites) make(n int) *callSite {
	return newCallSite(make([]ArgInfo, n), a.tail, a.ctx, a.cacheSize)
}

// Applies callee to the arguments at a call site. Depending on the schema
// of the callee and the arguments, this either creates a curried function
// or calls the function, forwarding any oversaturated arguments to the
// result.
func (th *Thread) apply(site *callSite, callee any, w World, args []any) (World, any, error) {
	if err := th.poll(); err != nil {
		return w, nil, err
	}
	var fn *Function
	switch callee := callee.(type) {
	case *Function:
		fn = callee
	case *Constructor:
		fn = callee.Function()
	default:
		return w, nil, errs.NotInvokable{Value: vals.Repr(callee)}
	}
	m, err := site.cache.lookup(fn.schema, site.infos)
	if err != nil {
		return w, nil, err
	}
	if len(args) == 0 {
		if !m.full {
			return w, fn, nil
		}
		if len(fn.oversat) == 0 {
			return th.call(site, fn, w, fn.args, site.tail)
		}
	}
	bound, oversat := m.bind(fn, args)
	if !m.full {
		return w, &Function{fn.name, fn.body, fn.captured, m.post, bound, oversat}, nil
	}
	if len(oversat) == 0 {
		return th.call(site, fn, w, bound, site.tail)
	}
	w, v, err := th.call(site, fn, w, bound, false)
	if err != nil {
		return w, nil, err
	}
	return th.apply(site.forward.get(len(oversat)), v, w, oversat)
}

// Calls a fully applied function. Builtins and constructors are always
// called directly. Other functions raise a TailCall when called in tail
// position, and are otherwise run in a new trampoline.
func (th *Thread) call(site *callSite, fn *Function, w World, args []any, tail bool) (World, any, error) {
	if fn.body.callStrategy() == strategyDirect {
		return fn.body.invoke(th, fn, w, args)
	}
	if tail && !th.ev.EagerCalls {
		return w, nil, &TailCall{fn: fn, w: w, args: args}
	}
	th.callers = append(th.callers, site.ctx)
	w, v, err := th.loop(fn, w, args, nil)
	th.callers = th.callers[:len(th.callers)-1]
	return w, v, err
}

// The trampoline. Observed expressions whose tail calls were deferred here
// are reported with the final value, innermost first.
func (th *Thread) loop(fn *Function, w World, args []any, observed []uuid.UUID) (World, any, error) {
	for {
		w2, v, err := fn.body.invoke(th, fn, w, args)
		tc, ok := err.(*TailCall)
		if !ok {
			if err == nil {
				for i := len(observed) - 1; i >= 0; i-- {
					th.instrument.Return(observed[i], v)
				}
			}
			return w2, v, err
		}
		for _, id := range tc.observed {
			observed = addID(observed, id)
		}
		if err := th.poll(); err != nil {
			return tc.w, nil, err
		}
		fn, w, args = tc.fn, tc.w, tc.args
	}
}

// Runs a tail call that reached a place needing its value, keeping ctx on
// the stack of callers.
func (th *Thread) finish(ctx *diag.Context, tc *TailCall) (World, any, error) {
	th.callers = append(th.callers, ctx)
	w, v, err := th.loop(tc.fn, tc.w, tc.args, tc.observed)
	th.callers = th.callers[:len(th.callers)-1]
	return w, v, err
}

// Call applies callee to positional arguments, outside of tail position. It
// is used by builtins that call functions they are given.
func (th *Thread) Call(callee any, w World, args ...any) (World, any, error) {
	return th.apply(th.ev.nativeSites.get(len(args)), callee, w, args)
}
