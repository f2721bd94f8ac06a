package eval

import (
	"fmt"

	"github.com/google/uuid"
	"src.strand.sh/pkg/ast"
	"src.strand.sh/pkg/diag"
)

// compiler maintains the set of states needed when compiling the trees of a
// single module, or a single tree evaluated in a module.
type compiler struct {
	ev    *Evaler
	scope *ModuleScope
	src   ast.Source
	// Static frames, innermost last.
	frames    []*staticFrame
	cacheSize int
}

func newCompiler(ev *Evaler, scope *ModuleScope, src ast.Source) *compiler {
	return &compiler{ev: ev, scope: scope, src: src, cacheSize: ev.argCacheSize()}
}

const compilationErrorType = "compilation error"

func (cp *compiler) errorpf(r diag.Ranger, format string, args ...any) {
	// The panic is caught by recoverCompilationError.
	panic(&diag.Error{
		Type:    compilationErrorType,
		Message: fmt.Sprintf(format, args...),
		Context: *cp.context(r)})
}

// GetCompilationError returns a *diag.Error if the given value is a compilation
// error. Otherwise it returns nil.
func GetCompilationError(e any) *diag.Error {
	if e, ok := e.(*diag.Error); ok && e.Type == compilationErrorType {
		return e
	}
	return nil
}

func recoverCompilationError(err *error) {
	r := recover()
	if r == nil {
		return
	} else if e := GetCompilationError(r); e != nil {
		// Save the compilation error and stop the panic.
		*err = e
	} else {
		// Resume the panic; it is not supposed to be handled here.
		panic(r)
	}
}

func (cp *compiler) context(r diag.Ranger) *diag.Context {
	return diag.NewContext(cp.src.Name, cp.src.Code, r)
}

func (cp *compiler) pushFrame() *staticFrame {
	sf := new(staticFrame)
	cp.frames = append(cp.frames, sf)
	return sf
}

func (cp *compiler) popFrame() {
	cp.frames[len(cp.frames)-1] = nil
	cp.frames = cp.frames[:len(cp.frames)-1]
}

func (cp *compiler) thisFrame() *staticFrame {
	return cp.frames[len(cp.frames)-1]
}

// Compiles a tree to be evaluated in a fresh top-level frame. It returns the
// op and the size of the frame.
func compileTree(ev *Evaler, scope *ModuleScope, src ast.Source, tree ast.Node) (o op, frameSize int, err error) {
	cp := newCompiler(ev, scope, src)
	defer recoverCompilationError(&err)
	sf := cp.pushFrame()
	o = cp.expr(tree, false)
	return o, len(sf.names), nil
}

// Compiles the field defaults and the methods of a module being linked, and
// adds the methods to the method tables.
func compileModule(ev *Evaler, s *ModuleScope) (err error) {
	cp := newCompiler(ev, s, s.source)
	defer recoverCompilationError(&err)
	for _, t := range s.def.Types {
		cp.fieldDefaults(s.constructors[t.Name], t)
	}
	for _, md := range s.def.Methods {
		switch cat, isCat := categoryTargets[md.Target]; {
		case md.Target == ast.TargetModule:
			s.defineMethod(s.assoc, md.Name, cp.method(md, s.name))
		case isCat:
			s.defineCategoryMethod(cat, md.Name, cp.method(md, md.Target))
		default:
			cons, ok := s.Constructor(md.Target)
			if !ok {
				cp.errorpf(md, "type %s not found", md.Target)
			}
			s.defineMethod(cons, md.Name, cp.method(md, md.Target))
		}
	}
	return nil
}

func (cp *compiler) fieldDefaults(c *Constructor, t *ast.TypeDef) {
	sf := cp.pushFrame()
	defer cp.popFrame()
	cp.declareParams(t, t.Fields)
	defaults := make([]op, len(t.Fields))
	for i, f := range t.Fields {
		if f.Suspended {
			cp.errorpf(t, "field %s of type %s cannot be suspended", f.Name, t.Name)
		}
		if f.Default != nil {
			defaults[i] = cp.expr(f.Default, false)
		}
	}
	c.defaults = defaults
	c.frameSize = len(sf.names)
}

// Compiles a method definition. The receiver is passed as the first
// argument, named "this"; it is added if the definition does not declare
// it.
func (cp *compiler) method(md *ast.MethodDef, owner string) *Function {
	ps := md.Fn.Params
	if len(ps) == 0 || ps[0].Name != "this" {
		ps = append([]*ast.Param{{Name: "this"}}, ps...)
	}
	body := cp.closureBody(md.Fn, ps, md.Fn.Body)
	return newFunction(owner+"."+md.Name, body, nil, newSchema(params(ps)))
}

func (cp *compiler) closureBody(r diag.Ranger, ps []*ast.Param, body ast.Node) *closureBody {
	sf := cp.pushFrame()
	defer cp.popFrame()
	cp.declareParams(r, ps)
	defaults := make([]op, len(ps))
	var suspended []bool
	for i, p := range ps {
		if p.Suspended {
			if suspended == nil {
				suspended = make([]bool, len(ps))
			}
			suspended[i] = true
		}
		if p.Default != nil {
			defaults[i] = cp.expr(p.Default, false)
			if p.Suspended {
				defaults[i] = tailForm(defaults[i])
			}
		}
	}
	bodyOp := cp.expr(body, true)
	return &closureBody{
		strategy: strategyLoop, frameSize: len(sf.names),
		defaults: defaults, suspended: suspended, body: bodyOp}
}

func (cp *compiler) declareParams(r diag.Ranger, ps []*ast.Param) {
	sf := cp.thisFrame()
	for _, p := range ps {
		if _, dup := sf.lookup(p.Name); dup {
			cp.errorpf(r, "duplicate parameter %s", p.Name)
		}
		sf.add(p.Name)
	}
}

// Compiles an expression. The tail flag tells whether the value of the
// expression is the value of the enclosing function body.
func (cp *compiler) expr(n ast.Node, tail bool) op {
	var o op
	switch n := n.(type) {
	case *ast.Number:
		o = constOp{n.Value}
	case *ast.Decimal:
		o = constOp{n.Value}
	case *ast.Text:
		o = constOp{n.Value}
	case *ast.Here:
		o = constOp{cp.scope.Here()}
	case *ast.Var:
		o = cp.variable(n, tail)
	case *ast.Lambda:
		o = cp.lambda(n)
	case *ast.Apply:
		o = cp.apply(n, tail)
	case *ast.Method:
		o = cp.methodCall(n, tail)
	case *ast.Block:
		o = cp.block(n, tail)
	case *ast.Assign:
		o = cp.assign(n)
	case *ast.Case:
		o = cp.caseExpr(n, tail)
	default:
		cp.errorpf(n, "unsupported node %T", n)
	}
	if id := n.Ident(); id != uuid.Nil {
		o = &instrumentedOp{id, o}
	}
	return o
}

// Resolves a name to a local slot, searching the static frames from the
// innermost, or to a constructor. A nullary constructor evaluates to its
// atom.
func (cp *compiler) variable(n *ast.Var, tail bool) op {
	for i := len(cp.frames) - 1; i >= 0; i-- {
		if idx, ok := cp.frames[i].lookup(n.Name); ok {
			return &varOp{cp.context(n), len(cp.frames) - 1 - i, idx, n.Name, tail}
		}
	}
	if c, ok := cp.scope.Constructor(n.Name); ok {
		if c.singleton != nil {
			return constOp{c.singleton}
		}
		return constOp{c}
	}
	cp.errorpf(n, "variable %s not found", n.Name)
	return nil
}

func (cp *compiler) lambda(n *ast.Lambda) op {
	body := cp.closureBody(n, n.Params, n.Body)
	schema := newSchema(params(n.Params))
	return &lambdaOp{body, schema, unsetArgs(len(n.Params))}
}

func (cp *compiler) args(args []*ast.Arg) (argOps, []ArgInfo) {
	ops := argOps{make([]op, len(args)), make([]op, len(args))}
	infos := make([]ArgInfo, len(args))
	for i, a := range args {
		infos[i] = ArgInfo{Name: a.Name, Ignore: a.Ignore}
		if !a.Ignore {
			ops.now[i] = cp.expr(a.Value, false)
			ops.suspend[i] = tailForm(ops.now[i])
		}
	}
	return ops, infos
}

func (cp *compiler) apply(n *ast.Apply, tail bool) op {
	fn := cp.expr(n.Fn, false)
	argOps, infos := cp.args(n.Args)
	ctx := cp.context(n)
	return &applyOp{ctx, fn, argOps, newCallSite(infos, tail, ctx, cp.cacheSize)}
}

func (cp *compiler) methodCall(n *ast.Method, tail bool) op {
	recv := cp.expr(n.Receiver, false)
	argOps, infos := cp.args(n.Args)
	ctx := cp.context(n)
	// The receiver is the first positional argument.
	infos = append([]ArgInfo{{}}, infos...)
	return &methodCallOp{
		ctx: ctx, name: n.Name, scope: cp.scope, recv: recv, args: argOps,
		site: newCallSite(infos, tail, ctx, cp.cacheSize)}
}

func (cp *compiler) block(n *ast.Block, tail bool) op {
	if len(n.Exprs) == 0 {
		cp.errorpf(n, "empty block")
	}
	ops := make([]op, len(n.Exprs))
	for i, e := range n.Exprs {
		ops[i] = cp.expr(e, tail && i == len(n.Exprs)-1)
	}
	return blockOp(ops)
}

func (cp *compiler) assign(n *ast.Assign) op {
	// Declared before compiling the value, so that the value can refer to
	// the name recursively.
	idx := cp.thisFrame().add(n.Name)
	return &assignOp{idx, cp.expr(n.Value, false)}
}

func (cp *compiler) caseExpr(n *ast.Case, tail bool) op {
	ctx := cp.context(n)
	o := &caseOp{
		ctx:      ctx,
		target:   cp.expr(n.Target, false),
		branches: make([]*caseBranch, len(n.Branches)),
	}
	for i, b := range n.Branches {
		o.branches[i] = &caseBranch{
			pattern: cp.expr(b.Pattern, false),
			handler: cp.expr(b.Handler, false),
			sites:   &arityCallSites{tail: tail, ctx: ctx, cacheSize: cp.cacheSize},
		}
	}
	if n.Fallback != nil {
		o.fallback = cp.expr(n.Fallback, false)
		o.fallbackSite = newCallSite([]ArgInfo{{}}, tail, ctx, cp.cacheSize)
	}
	return o
}
