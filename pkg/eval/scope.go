package eval

import (
	"fmt"
	"sync"

	"github.com/xiaq/persistent/hashmap"
	"src.strand.sh/pkg/ast"
	"src.strand.sh/pkg/eval/errs"
	"src.strand.sh/pkg/eval/vals"
)

// Categories of method receivers that have their own method table in a
// module scope. Atoms and constructors use per-constructor tables instead.
type category int

const (
	catAny category = iota
	catNumber
	catFunction
	catError
	nCategories

	catConstructor category = -1
)

var categoryTargets = map[string]category{
	ast.TargetAny:      catAny,
	ast.TargetNumber:   catNumber,
	ast.TargetFunction: catFunction,
	ast.TargetError:    catError,
}

// The part of a receiver that method resolution depends on.
type receiverShape struct {
	cat  category
	cons *Constructor
}

func shapeOf(v any) receiverShape {
	switch v := v.(type) {
	case *Atom:
		return receiverShape{catConstructor, v.cons}
	case *Constructor:
		return receiverShape{catConstructor, v}
	case int64, float64:
		return receiverShape{cat: catNumber}
	case *Function:
		return receiverShape{cat: catFunction}
	case *ErrorValue:
		return receiverShape{cat: catError}
	}
	return receiverShape{cat: catAny}
}

// ModuleScope holds the constructors and method tables of one module. It is
// immutable once its module has been linked, and can be shared between
// concurrent evaluations.
type ModuleScope struct {
	name   string
	handle int
	top    *TopScope
	source ast.Source

	// The nullary constructor named after the module; `here` evaluates to its
	// atom.
	assoc        *Constructor
	constructors map[string]*Constructor

	// *Constructor -> (name -> *Function)
	methods    hashmap.Map
	categories [nCategories]hashmap.Map

	// Handles of directly imported modules.
	imports []int
	// Transitive closure of imports, without the module itself. Computed once
	// at link time.
	transitive []*ModuleScope

	def *ast.Module
}

func newModuleScope(top *TopScope, name string, handle int) *ModuleScope {
	s := &ModuleScope{
		name: name, handle: handle, top: top,
		constructors: make(map[string]*Constructor),
		methods:      hashmap.New(vals.Equal, vals.Hash),
	}
	for i := range s.categories {
		s.categories[i] = hashmap.New(vals.Equal, vals.Hash)
	}
	s.assoc = newConstructor(name, nil, s)
	return s
}

// Name returns the name of the module.
func (s *ModuleScope) Name() string { return s.name }

// Handle returns the index of the module in its TopScope.
func (s *ModuleScope) Handle() int { return s.handle }

// Here returns the atom of the constructor associated with the module.
func (s *ModuleScope) Here() *Atom { return s.assoc.singleton }

// Imports returns the names of the transitively imported modules, in
// breadth-first order.
func (s *ModuleScope) Imports() []string {
	names := make([]string, len(s.transitive))
	for i, m := range s.transitive {
		names[i] = m.name
	}
	return names
}

func (s *ModuleScope) addConstructor(name string, fields []Param) (*Constructor, error) {
	if _, exists := s.constructors[name]; exists || name == s.name {
		return nil, fmt.Errorf("module %s: duplicate type %s", s.name, name)
	}
	c := newConstructor(name, fields, s)
	s.constructors[name] = c
	return c, nil
}

// Constructor finds a constructor by name, first among the ones declared in
// the module, then in the transitively imported modules.
func (s *ModuleScope) Constructor(name string) (*Constructor, bool) {
	if c, ok := s.ownConstructor(name); ok {
		return c, true
	}
	for _, m := range s.transitive {
		if c, ok := m.ownConstructor(name); ok {
			return c, true
		}
	}
	return nil, false
}

func (s *ModuleScope) ownConstructor(name string) (*Constructor, bool) {
	if name == s.name {
		return s.assoc, true
	}
	c, ok := s.constructors[name]
	return c, ok
}

func (s *ModuleScope) defineMethod(cons *Constructor, name string, fn *Function) {
	table, ok := s.methods.Index(cons)
	if !ok {
		table = hashmap.New(vals.Equal, vals.Hash)
	}
	s.methods = s.methods.Assoc(cons, table.(hashmap.Map).Assoc(name, fn))
}

func (s *ModuleScope) defineCategoryMethod(cat category, name string, fn *Function) {
	s.categories[cat] = s.categories[cat].Assoc(name, fn)
}

func (s *ModuleScope) constructorMethod(cons *Constructor, name string) (*Function, bool) {
	table, ok := s.methods.Index(cons)
	if !ok {
		return nil, false
	}
	fn, ok := table.(hashmap.Map).Index(name)
	if !ok {
		return nil, false
	}
	return fn.(*Function), true
}

func (s *ModuleScope) categoryMethod(cat category, name string) (*Function, bool) {
	fn, ok := s.categories[cat].Index(name)
	if !ok {
		return nil, false
	}
	return fn.(*Function), true
}

// Full method search from this scope. Constructors are looked up in the
// scope that declares them, then in this scope, then in the imports of this
// scope; other categories are looked up here, then in the imports. Every
// category falls back to the Any tables.
func (s *ModuleScope) resolve(shape receiverShape, name string) (*Function, bool) {
	switch shape.cat {
	case catConstructor:
		if fn, ok := shape.cons.scope.constructorMethod(shape.cons, name); ok {
			return fn, true
		}
		if fn, ok := s.constructorMethod(shape.cons, name); ok {
			return fn, true
		}
		for _, m := range s.transitive {
			if fn, ok := m.constructorMethod(shape.cons, name); ok {
				return fn, true
			}
		}
	case catNumber, catFunction, catError:
		if fn, ok := s.categoryMethod(shape.cat, name); ok {
			return fn, true
		}
		for _, m := range s.transitive {
			if fn, ok := m.categoryMethod(shape.cat, name); ok {
				return fn, true
			}
		}
	}
	if fn, ok := s.categoryMethod(catAny, name); ok {
		return fn, true
	}
	for _, m := range s.transitive {
		if fn, ok := m.categoryMethod(catAny, name); ok {
			return fn, true
		}
	}
	return nil, false
}

// LookupMethod finds the method for a receiver as seen from this scope.
func (s *ModuleScope) LookupMethod(receiver any, name string) (*Function, error) {
	if fn, ok := s.resolve(shapeOf(receiver), name); ok {
		return fn, nil
	}
	return nil, errs.NoSuchMethod{Receiver: vals.Repr(receiver), Method: name}
}

// ModuleSource supplies the trees of modules by name.
type ModuleSource interface {
	Module(name string) (*ast.Module, error)
}

// MapSource is a ModuleSource backed by a map.
type MapSource map[string]*ast.Module

// Module returns the module with the given name.
func (ms MapSource) Module(name string) (*ast.Module, error) {
	if m, ok := ms[name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("no such module: %s", name)
}

// TopScope owns all the module scopes of an Evaler, indexed by handle.
// Modules are loaded on first request; loading is re-entrant so that
// modules can import each other.
type TopScope struct {
	ev  *Evaler
	src ModuleSource

	mu      sync.Mutex
	modules []*ModuleScope
	byName  map[string]int
	// Nesting depth of load and the modules loaded but not linked yet.
	depth   int
	pending []*ModuleScope
}

func newTopScope(ev *Evaler, src ModuleSource) *TopScope {
	return &TopScope{ev: ev, src: src, byName: make(map[string]int)}
}

// Builtins returns the scope of the builtin module.
func (ts *TopScope) Builtins() *ModuleScope {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.modules[0]
}

// Modules returns the names of all loaded modules in the order they were
// loaded.
func (ts *TopScope) Modules() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	names := make([]string, len(ts.modules))
	for i, m := range ts.modules {
		names[i] = m.name
	}
	return names
}

func (ts *TopScope) addModule(name string) *ModuleScope {
	s := newModuleScope(ts, name, len(ts.modules))
	ts.modules = append(ts.modules, s)
	ts.byName[name] = s.handle
	return s
}

// Load returns the scope of a module, loading and linking it and the modules
// it imports if necessary.
func (ts *TopScope) Load(name string) (*ModuleScope, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.load(name)
}

func (ts *TopScope) load(name string) (*ModuleScope, error) {
	if h, ok := ts.byName[name]; ok {
		// This may be a module whose loading is still in progress.
		return ts.modules[h], nil
	}
	if ts.src == nil {
		return nil, fmt.Errorf("no such module: %s", name)
	}
	def, err := ts.src.Module(name)
	if err != nil {
		ts.rollback()
		return nil, err
	}
	logger.Printf("loading module %s", name)
	s := ts.addModule(name)
	s.def = def
	s.source = def.Source
	if s.source.Name == "" {
		s.source.Name = name
	}
	ts.pending = append(ts.pending, s)
	for _, t := range def.Types {
		if _, err := s.addConstructor(t.Name, params(t.Fields)); err != nil {
			ts.rollback()
			return nil, err
		}
	}

	ts.depth++
	for _, imp := range def.Imports {
		is, err := ts.load(imp)
		if err != nil {
			ts.depth--
			ts.rollback()
			return nil, err
		}
		s.imports = append(s.imports, is.handle)
	}
	ts.depth--

	if ts.depth == 0 {
		if err := ts.link(); err != nil {
			ts.rollback()
			return nil, err
		}
	}
	return s, nil
}

// Removes all modules that are loaded but not linked. Only the outermost
// load does anything.
func (ts *TopScope) rollback() {
	if ts.depth > 0 || len(ts.pending) == 0 {
		return
	}
	first := ts.pending[0].handle
	for _, s := range ts.modules[first:] {
		delete(ts.byName, s.name)
	}
	ts.modules = ts.modules[:first]
	ts.pending = nil
}

// Computes the transitive imports of all pending modules and compiles their
// types and methods.
func (ts *TopScope) link() error {
	for _, s := range ts.pending {
		s.transitive = ts.closure(s)
	}
	for _, s := range ts.pending {
		if err := compileModule(ts.ev, s); err != nil {
			return err
		}
	}
	for _, s := range ts.pending {
		logger.Printf("linked module %s, imports %v", s.name, s.Imports())
		s.def = nil
	}
	ts.pending = nil
	return nil
}

func (ts *TopScope) closure(s *ModuleScope) []*ModuleScope {
	seen := map[int]bool{s.handle: true}
	queue := append([]int(nil), s.imports...)
	if s.handle != 0 {
		// The builtin module is imported implicitly.
		queue = append(queue, 0)
	}
	var closure []*ModuleScope
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if seen[h] {
			continue
		}
		seen[h] = true
		m := ts.modules[h]
		closure = append(closure, m)
		queue = append(queue, m.imports...)
	}
	return closure
}

func params(ps []*ast.Param) []Param {
	params := make([]Param, len(ps))
	for i, p := range ps {
		params[i] = Param{Name: p.Name, HasDefault: p.Default != nil, Suspended: p.Suspended}
	}
	return params
}
