// Package evaltest provides a framework for testing the evaluation of trees.
//
// The entry point for the framework is the Test function, which accepts a
// *testing.T and any number of test cases.
//
// Test cases are constructed using the That function, followed by method calls
// that add additional information to it. Trees are written in the YAML format
// of package fixture.
//
// Example:
//
//	Test(t,
//	    That("{.+: [1, 2]}").Evals(3),
//	    That("[1, 2]").Throws(errs.NotInvokable{Value: "1"}))
//
// If some setup is needed, use the TestWithSetup function instead.
package evaltest

import (
	"strings"
	"testing"

	"src.strand.sh/pkg/ast"
	"src.strand.sh/pkg/eval"
	"src.strand.sh/pkg/fixture"
)

// Case is a test case that can be used in Test.
type Case struct {
	code    string
	tree    ast.Node
	modules []string
	scope   string
	world   eval.World
	setup   func(ev *eval.Evaler)
	cfg     func(cfg *eval.EvalCfg)
	verify  func(t *testing.T)
	want    result
}

type result struct {
	value any
	state any

	hasValue bool
	hasState bool

	CompilationError error
	Exception        error
}

// That returns a new Case with the specified YAML expression. Multiple
// arguments are joined with newlines.
//
// When combined with subsequent method calls, a test case reads like English.
// For example, a test for the fact that 1 + 2 is 3 reads:
//
//	That("{.+: [1, 2]}").Evals(3)
func That(lines ...string) Case {
	return Case{code: strings.Join(lines, "\n")}
}

// ThatTree returns a new Case that evaluates the given tree.
func ThatTree(tree ast.Node) Case {
	return Case{tree: tree}
}

// WithModules returns an altered Case that makes the modules in the given YAML
// streams available for loading.
func (c Case) WithModules(code ...string) Case {
	c.modules = append(c.modules, code...)
	return c
}

// In returns an altered Case that evaluates the expression in the scope of
// the given module, loading it first.
func (c Case) In(module string) Case {
	c.scope = module
	return c
}

// InWorld returns an altered Case that starts evaluation with a world whose
// state cell holds the given value.
func (c Case) InWorld(state any) Case {
	c.world = eval.NewWorld(normalize(state))
	return c
}

// WithSetup returns a new Case with the given setup function executed on the
// Evaler before the code is executed.
func (c Case) WithSetup(f func(*eval.Evaler)) Case {
	c.setup = f
	return c
}

// WithConfig returns a new Case with the given function called to modify the
// EvalCfg.
func (c Case) WithConfig(f func(*eval.EvalCfg)) Case {
	c.cfg = f
	return c
}

// Passes returns an altered Case that runs an additional verification function.
func (c Case) Passes(f func(t *testing.T)) Case {
	c.verify = f
	return c
}

// Evals returns an altered Case that requires the expression to evaluate to
// the given value. Go ints are treated as int64. The value may be a
// ValueMatcher.
func (c Case) Evals(v any) Case {
	c.want.value = normalize(v)
	c.want.hasValue = true
	return c
}

// LeavesState returns an altered Case that requires the state cell of the
// final world to hold the given value.
func (c Case) LeavesState(v any) Case {
	c.want.state = normalize(v)
	c.want.hasState = true
	return c
}

// Throws returns an altered Case that requires the evaluation to fail with an
// exception with the given reason. The reason supports special matcher values
// constructed by functions like ErrorWithType.
//
// If at least one stacktrace string is given, the exception must also have a
// stacktrace matching the given source fragments, frame by frame (innermost
// frame first). If no stacktrace string is given, the stack trace of the
// exception is not checked.
func (c Case) Throws(reason error, stacks ...string) Case {
	c.want.Exception = exc{reason, stacks}
	return c
}

// Fails returns an altered Case that requires the evaluation to fail with the
// given error, which is not wrapped in an exception. Use this for control
// signals like eval.ErrInterrupted.
func (c Case) Fails(err error) Case {
	c.want.Exception = err
	return c
}

// DoesNotCompile returns an altered Case that requires the tree to fail
// compilation with the given message.
func (c Case) DoesNotCompile(msg string) Case {
	c.want.CompilationError = compilationError{msg}
	return c
}

// Test runs test cases. For each test case, a new Evaler is created with
// NewEvaler.
func Test(t *testing.T, tests ...Case) {
	t.Helper()
	TestWithSetup(t, func(*eval.Evaler) {}, tests...)
}

// TestWithSetup runs test cases. For each test case, a new Evaler is created
// with NewEvaler and passed to the setup function.
func TestWithSetup(t *testing.T, setup func(*eval.Evaler), tests ...Case) {
	t.Helper()
	for _, tc := range tests {
		name := tc.code
		if tc.tree != nil {
			name = "tree"
		}
		t.Run(name, func(t *testing.T) {
			t.Helper()
			ev := eval.NewEvaler(loadModules(t, tc.modules))
			setup(ev)
			if tc.setup != nil {
				tc.setup(ev)
			}

			r := evalAndCollect(t, ev, tc)

			if tc.verify != nil {
				tc.verify(t)
			}
			if tc.want.hasValue && !match(r.value, tc.want.value) {
				t.Errorf("got value %s, want %s", repr(r.value), repr(tc.want.value))
			}
			if tc.want.hasState && !match(r.state, tc.want.state) {
				t.Errorf("got state %s, want %s", repr(r.state), repr(tc.want.state))
			}
			if !matchErr(tc.want.CompilationError, r.CompilationError) {
				t.Errorf("got compilation error %v, want %v",
					r.CompilationError, tc.want.CompilationError)
			}
			if !matchErr(tc.want.Exception, r.Exception) {
				t.Errorf("unexpected exception")
				if exc, ok := r.Exception.(eval.Exception); ok {
					// For an eval.Exception report the type of the underlying error.
					t.Logf("got: %T: %v", exc.Reason(), exc)
					t.Logf("stack trace: %#v", getStackTexts(exc.StackTrace()))
				} else {
					t.Logf("got: %T: %v", r.Exception, r.Exception)
				}
				t.Errorf("want: %v", tc.want.Exception)
			}
		})
	}
}

func loadModules(t *testing.T, codes []string) eval.MapSource {
	src := eval.MapSource{}
	for i, code := range codes {
		mods, err := fixture.ParseModules(ast.Source{Name: "[modules]", Code: code})
		if err != nil {
			t.Fatalf("ParseModules(#%d) error: %s", i, err)
		}
		for _, m := range mods {
			src[m.Name] = m
		}
	}
	return src
}

func evalAndCollect(t *testing.T, ev *eval.Evaler, tc Case) result {
	var r result
	src := ast.Source{Name: "[test]", Code: tc.code}
	tree := tc.tree
	if tree == nil {
		var err error
		tree, err = fixture.ParseExpr(src)
		if err != nil {
			t.Fatalf("ParseExpr(%q) error: %s", tc.code, err)
		}
	}
	var scope *eval.ModuleScope
	if tc.scope != "" {
		var err error
		scope, err = ev.Load(tc.scope)
		if err != nil {
			t.Fatalf("Load(%q) error: %s", tc.scope, err)
		}
	}
	cfg := eval.EvalCfg{Source: src}
	if tc.cfg != nil {
		tc.cfg(&cfg)
	}
	w, v, err := ev.Eval(tree, scope, tc.world, cfg)
	r.value, r.state = v, w.State()
	if eval.GetCompilationError(err) != nil {
		r.CompilationError = err
	} else if err != nil {
		r.Exception = err
	}
	return r
}
