package eval_test

import (
	"testing"

	"src.strand.sh/pkg/eval/errs"
	. "src.strand.sh/pkg/eval/evaltest"
)

func TestLiterals(t *testing.T) {
	Test(t,
		That("42").Evals(42),
		That("-7").Evals(-7),
		That("1.5").Evals(1.5),
		That(`"foo"`).Evals("foo"),
		That("Unit").Evals(Repr("Unit")),
		That("Cons").Evals(Repr("<constructor Cons>")),
		That("here").Evals(Repr("Builtins")),
	)
}

func TestApplication(t *testing.T) {
	Test(t,
		That("[{lambda: [x], body: x}, 1]").Evals(1),
		That("[Cons, 1, Nil]").Evals(Repr("(Cons 1 Nil)")),
		That("[Cons, {rest: Nil}, {head: 1}]").Evals(Repr("(Cons 1 Nil)")),
		// Arguments are evaluated left to right.
		That("[{lambda: [a, b], body: b}, {.put: [State, 1]}, {.put: [State, 2]}]").
			Evals(2).LeavesState(2),
	)
}

const list3 = "{lambda: [x, y, z], body: [Cons, x, [Cons, y, [Cons, z, Nil]]]}"

func TestCurrying(t *testing.T) {
	Test(t,
		// f(a, b, c) == f(a)(b)(c) == f(a, b)(c)
		That("["+list3+", 1, 2, 3]").Evals(Repr("(Cons 1 (Cons 2 (Cons 3 Nil)))")),
		That("[[["+list3+", 1], 2], 3]").Evals(Repr("(Cons 1 (Cons 2 (Cons 3 Nil)))")),
		That("[["+list3+", 1, 2], 3]").Evals(Repr("(Cons 1 (Cons 2 (Cons 3 Nil)))")),
		That("[["+list3+", {z: 3}], 1, 2]").Evals(Repr("(Cons 1 (Cons 2 (Cons 3 Nil)))")),
		// An under-saturated application is a function.
		That("["+list3+", 1]").Evals(Kind("fn")),
		// Applying a function to nothing returns the function itself.
		That("{do: [{let: {f: "+list3+"}}, {.==: [[f], f]}]}").Evals(Repr("True")),
	)
}

const withDefault = "{lambda: [this, x, {y: 10}], body: [Cons, this, [Cons, x, [Cons, y, Nil]]]}"

func TestDefaults(t *testing.T) {
	Test(t,
		That(`[`+withDefault+`, "t", 7]`).
			Evals(Repr(`(Cons "t" (Cons 7 (Cons 10 Nil)))`)),
		// Naming a later slot leaves x unfilled; the closure remembers y.
		That(`{do: [{let: {g: [`+withDefault+`, "t", {y: 5}]}}, [g, 7]]}`).
			Evals(Repr(`(Cons "t" (Cons 7 (Cons 5 Nil)))`)),
		That(`[`+withDefault+`, "t", {y: 5}]`).Evals(Kind("fn")),
		// A placeholder suppresses the default for that application.
		That(`[`+withDefault+`, "t", 7, _]`).Evals(Kind("fn")),
		That(`[[`+withDefault+`, "t", 7, _], 3]`).
			Evals(Repr(`(Cons "t" (Cons 7 (Cons 3 Nil)))`)),
		That(`[[`+withDefault+`, "t", 7, {y: _}], 3]`).
			Evals(Repr(`(Cons "t" (Cons 7 (Cons 3 Nil)))`)),
		// Defaults may refer to earlier parameters.
		That("[{lambda: [x, {y: {.*: [x, 2]}}], body: {.+: [x, y]}}, 5]").Evals(15),
		// Defaults are evaluated only when needed, once per call.
		That("{do: [",
			"  {let: {f: {lambda: [x, {y: {.put: [State, {.+: [{.get: [State]}, 1]}]}}], body: x}}},",
			"  [f, 1, 2],",
			"  [f, 1],",
			"  [f, 1]]}").InWorld(0).Evals(1).LeavesState(2),
	)
}

func TestOversaturation(t *testing.T) {
	const sub = "{lambda: [a], body: {lambda: [b], body: {.-: [a, b]}}}"
	const g = "{lambda: [a, b], body: {lambda: [c], body: [Cons, a, [Cons, b, [Cons, c, Nil]]]}}"
	Test(t,
		That("["+sub+", 10, 3]").Evals(7),
		That("[["+sub+", 10], 3]").Evals(7),
		// Oversaturated arguments are carried by a curried function.
		That("[["+g+", _, 2, 3], 1]").Evals(Repr("(Cons 1 (Cons 2 (Cons 3 Nil)))")),
		That("[{lambda: [a], body: a}, 1, 2]").
			Throws(errs.NotInvokable{Value: "1"}, "[{lambda: [a], body: a}, 1, 2]"),
	)
}

func TestArgumentErrors(t *testing.T) {
	Test(t,
		That("[{lambda: [x], body: x}, {y: 1}]").
			Throws(errs.UnknownArgument{Name: "y"}),
		That("[{lambda: [x], body: x}, 1, {x: 2}]").
			Throws(errs.DuplicateArgument{Name: "x"}),
		That("[{lambda: [x], body: x}, 1, _]").
			Throws(errs.ArityMismatch{What: "placeholders here", ValidLow: 0, ValidHigh: 1, Actual: 1}),
		That("{lambda: [x, x], body: x}").DoesNotCompile("duplicate parameter x"),
	)
}

func TestBlocksAndAssignments(t *testing.T) {
	Test(t,
		That("{do: [{let: {x: 1}}, {let: {y: {.+: [x, 1]}}}, y]}").Evals(2),
		// A later assignment shadows an earlier one.
		That("{do: [{let: {x: 1}}, {let: {x: {.+: [x, 1]}}}, x]}").Throws(
			errs.UnboundVariable{Name: "x"}),
		That("{do: [{let: {x: 1}}, {let: {x: 5}}, x]}").Evals(5),
		// Assignments can define recursive functions.
		That("{do: [",
			"  {let: {fact: {lambda: [n], body: {case: {.==: [n, 0]},",
			"    of: [[True, {lambda: [], body: 1}]],",
			"    else: {lambda: [_b], body: {.*: [n, [fact, {.-: [n, 1]}]]}}}}}},",
			"  [fact, 10]]}").Evals(3628800),
		That("{do: [{let: {x: x}}]}").Throws(errs.UnboundVariable{Name: "x"}),
		// Names are resolved when the tree is compiled.
		That("{do: [{let: {f: {lambda: [], body: y}}}, {let: {y: 3}}, [f]]}").
			DoesNotCompile("variable y not found"),
		That("{do: [{let: {y: 1}}, {let: {f: {lambda: [], body: y}}}, [f]]}").Evals(1),
	)
}

func TestState(t *testing.T) {
	Test(t,
		That("{.get: [State]}").Evals(Repr("Unit")),
		That("{.get: [State]}").InWorld(5).Evals(5).LeavesState(5),
		That("{do: [{.put: [State, 1]}, {.put: [State, {.+: [{.get: [State]}, 41]}]}, {.get: [State]}]}").
			Evals(42).LeavesState(42),
	)
}

func TestResolutionErrors(t *testing.T) {
	Test(t,
		That("unknown_name").DoesNotCompile("variable unknown_name not found"),
		That("[1, 2]").Throws(errs.NotInvokable{Value: "1"}, "[1, 2]"),
		That(`{.frobnicate: [1]}`).
			Throws(errs.NoSuchMethod{Receiver: "1", Method: "frobnicate"}, "{.frobnicate: [1]}"),
	)
}
