// Package eval implements the evaluation core of strand.
//
// Trees from package ast are compiled into ops and evaluated with a world
// token threaded through every call. Calls in tail position are deferred to a
// trampoline, so tail-recursive loops run in constant Go stack space.
package eval

import (
	"context"

	"src.strand.sh/pkg/ast"
	"src.strand.sh/pkg/eval/errs"
	"src.strand.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[eval] ")

const (
	// BuiltinsModule is the name of the module imported implicitly by every
	// module.
	BuiltinsModule = "Builtins"

	defaultArgCacheSize = 4
)

// Evaler provides methods for evaluating code, and maintains the state that
// is persistent between evaluations: the loaded modules and the running
// threads. It is safe to call the evaluation methods concurrently.
type Evaler struct {
	// If true, calls in tail position are made directly instead of being
	// deferred to a trampoline. Must be set before any evaluation.
	EagerCalls bool
	// Number of entries of the argument matching cache of each call site,
	// from 1 to 4. Must be set before modules are loaded.
	ArgCacheSize int

	top         *TopScope
	threads     *ThreadManager
	nativeSites *arityCallSites
	builtins    *builtins
}

// NewEvaler creates a new Evaler that loads modules from src. The builtin
// module is always available.
func NewEvaler(src ModuleSource) *Evaler {
	ev := &Evaler{threads: newThreadManager()}
	ev.top = newTopScope(ev, src)
	ev.nativeSites = &arityCallSites{cacheSize: defaultArgCacheSize}
	ev.builtins = installBuiltins(ev.top.addModule(BuiltinsModule))
	return ev
}

func (ev *Evaler) argCacheSize() int {
	if ev.ArgCacheSize < 1 || ev.ArgCacheSize > defaultArgCacheSize {
		return defaultArgCacheSize
	}
	return ev.ArgCacheSize
}

// Top returns the TopScope owning all the modules.
func (ev *Evaler) Top() *TopScope { return ev.top }

// Builtins returns the scope of the builtin module.
func (ev *Evaler) Builtins() *ModuleScope { return ev.builtins.scope }

// Load loads a module and the modules it imports.
func (ev *Evaler) Load(name string) (*ModuleScope, error) { return ev.top.Load(name) }

// Threads returns the ThreadManager of the Evaler.
func (ev *Evaler) Threads() *ThreadManager { return ev.threads }

// Interrupt makes all running evaluations stop with ErrInterrupted at their
// next call boundary.
func (ev *Evaler) Interrupt() { ev.threads.Interrupt() }

// Safepoint pauses all running evaluations at their next call boundary,
// calls f and resumes them.
func (ev *Evaler) Safepoint(f func()) { ev.threads.Safepoint(f) }

// EvalCfg keeps configuration for the evaluation methods of Evaler.
type EvalCfg struct {
	// Source of the tree, used in diagnostics. Defaults to the name "[eval]"
	// with no code.
	Source ast.Source
	// If not nil, notified of the values of expressions.
	Instrument Instrument
	// If not nil, the evaluation is interrupted when the context is done.
	Context context.Context
}

func (ev *Evaler) run(cfg EvalCfg, f func(th *Thread) (World, any, error)) (World, any, error) {
	th := &Thread{ev: ev, ctx: cfg.Context, instrument: cfg.Instrument}
	ev.threads.enter(th)
	defer ev.threads.leave(th)
	w, v, err := f(th)
	return w, v, th.errorp(nil, err)
}

// Eval evaluates a tree in a module scope, which defaults to the builtin
// module. The tree is compiled first; a compilation error is returned as a
// *diag.Error.
func (ev *Evaler) Eval(tree ast.Node, scope *ModuleScope, w World, cfg EvalCfg) (World, any, error) {
	if scope == nil {
		scope = ev.Builtins()
	}
	src := cfg.Source
	if src.Name == "" {
		src.Name = "[eval]"
	}
	o, frameSize, err := compileTree(ev, scope, src, tree)
	if err != nil {
		return w, nil, err
	}
	return ev.run(cfg, func(th *Thread) (World, any, error) {
		return o.exec(th, &Frame{slots: make([]any, frameSize)}, w)
	})
}

// Call applies callee to positional arguments.
func (ev *Evaler) Call(callee any, w World, args []any, cfg EvalCfg) (World, any, error) {
	return ev.run(cfg, func(th *Thread) (World, any, error) {
		return th.Call(callee, w, args...)
	})
}

// Run loads a module and calls one of its methods on the module's own atom,
// the value of `here` in the module.
func (ev *Evaler) Run(module, method string, w World, cfg EvalCfg) (World, any, error) {
	scope, err := ev.Load(module)
	if err != nil {
		return w, nil, err
	}
	fn, err := scope.LookupMethod(scope.Here(), method)
	if err != nil {
		return w, nil, err
	}
	required := 0
	for i, p := range fn.schema.params {
		if i > 0 && !p.HasDefault && !fn.schema.preApplied[i] {
			required++
		}
	}
	if required > 0 {
		return w, nil, errs.ArityMismatch{
			What:     "parameters of entry method " + fn.name,
			ValidLow: 1, ValidHigh: 1, Actual: 1 + required}
	}
	return ev.Call(fn, w, []any{scope.Here()}, cfg)
}
