package eval_test

import (
	"reflect"
	"testing"

	"src.strand.sh/pkg/ast"
	"src.strand.sh/pkg/eval"
	"src.strand.sh/pkg/eval/errs"
	"src.strand.sh/pkg/fixture"
)

func newEvaler(t *testing.T, code string) *eval.Evaler {
	t.Helper()
	mods, err := fixture.ParseModules(ast.Source{Name: "[modules]", Code: code})
	if err != nil {
		t.Fatal(err)
	}
	src := eval.MapSource{}
	for _, m := range mods {
		src[m.Name] = m
	}
	return eval.NewEvaler(src)
}

func TestLoad(t *testing.T) {
	ev := newEvaler(t, transitiveModules)
	a, err := ev.Load("A")
	if err != nil {
		t.Fatal(err)
	}
	if a.Name() != "A" || a.Handle() == 0 {
		t.Errorf("got module %s with handle %d", a.Name(), a.Handle())
	}
	if got, want := a.Imports(), []string{"B", "Builtins", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got imports %v, want %v", got, want)
	}
	if got, want := ev.Top().Modules(), []string{"Builtins", "A", "B", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got modules %v, want %v", got, want)
	}
	// Loading again returns the same scope.
	if again, _ := ev.Load("A"); again != a {
		t.Errorf("module loaded twice")
	}
	if ev.Top().Builtins() != ev.Builtins() {
		t.Errorf("Top().Builtins() != Builtins()")
	}
	if _, ok := a.Constructor("Leaf"); !ok {
		t.Errorf("imported constructor not found")
	}
	if _, ok := a.Constructor("Nope"); ok {
		t.Errorf("unknown constructor found")
	}
}

const brokenModules = `
module: Good
---
module: ImportsMissing
imports: [Good, Missing]
---
module: DuplicateType
types:
  - T: []
  - T: [x]
---
module: BadMethod
imports: [Good]
methods:
  - main: {lambda: [], body: nope}
---
module: BadTarget
methods:
  - Nope.main: 1
---
module: SuspendedField
types:
  - T: [~x]
`

func TestLoad_Errors(t *testing.T) {
	ev := newEvaler(t, brokenModules)
	tests := []struct {
		module  string
		wantMsg string
	}{
		{"Missing", "no such module: Missing"},
		{"ImportsMissing", "no such module: Missing"},
		{"DuplicateType", "module DuplicateType: duplicate type T"},
		{"BadMethod", "variable nope not found"},
		{"BadTarget", "type Nope not found"},
		{"SuspendedField", "field x of type T cannot be suspended"},
	}
	for _, test := range tests {
		_, err := ev.Load(test.module)
		if err == nil {
			t.Errorf("Load(%q) -> no error", test.module)
			continue
		}
		msg := err.Error()
		if ce := eval.GetCompilationError(err); ce != nil {
			msg = ce.Message
		}
		if msg != test.wantMsg {
			t.Errorf("Load(%q) -> %q, want %q", test.module, msg, test.wantMsg)
		}
		// Failed loads leave no modules behind.
		if got := ev.Top().Modules(); !reflect.DeepEqual(got, []string{"Builtins"}) {
			t.Errorf("after Load(%q), modules are %v", test.module, got)
		}
	}
	if _, err := ev.Load("Good"); err != nil {
		t.Errorf("Load(Good) -> %v", err)
	}
}

const runModules = `
module: Main
methods:
  - main: {.answer: [here]}
  - answer: 42
  - needs_arg: {lambda: [x], body: x}
  - with_default: {lambda: [{x: 7}], body: x}
  - put: {.put: [State, "ran"]}
`

func TestRun(t *testing.T) {
	ev := newEvaler(t, runModules)
	tests := []struct {
		method    string
		wantValue any
		wantState any
		wantErr   error
	}{
		{method: "main", wantValue: int64(42)},
		{method: "with_default", wantValue: int64(7)},
		{method: "put", wantValue: "ran", wantState: "ran"},
		{method: "needs_arg", wantErr: errs.ArityMismatch{
			What: "parameters of entry method Main.needs_arg", ValidLow: 1, ValidHigh: 1, Actual: 2}},
		{method: "nope", wantErr: errs.NoSuchMethod{Receiver: "Main", Method: "nope"}},
	}
	for _, test := range tests {
		w, v, err := ev.Run("Main", test.method, eval.World{}, eval.EvalCfg{})
		if !reflect.DeepEqual(err, test.wantErr) {
			t.Errorf("Run(%q) -> error %v, want %v", test.method, err, test.wantErr)
		}
		if v != test.wantValue || w.State() != test.wantState {
			t.Errorf("Run(%q) -> %v with state %v, want %v with state %v",
				test.method, v, w.State(), test.wantValue, test.wantState)
		}
	}
	if _, _, err := ev.Run("Nope", "main", eval.World{}, eval.EvalCfg{}); err == nil {
		t.Errorf("Run of missing module succeeded")
	}
}

func TestLookupMethod(t *testing.T) {
	ev := newEvaler(t, runModules)
	main, err := ev.Load("Main")
	if err != nil {
		t.Fatal(err)
	}
	fn, err := main.LookupMethod(main.Here(), "answer")
	if err != nil {
		t.Fatal(err)
	}
	if fn.Name() != "Main.answer" || fn.Arity() != 1 {
		t.Errorf("got method %s with arity %d", fn.Name(), fn.Arity())
	}
	if _, err := main.LookupMethod(int64(1), "+"); err != nil {
		t.Errorf("builtin number method not found: %v", err)
	}
}
