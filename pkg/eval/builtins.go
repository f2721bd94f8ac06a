package eval

import (
	"errors"
	"math"

	"src.strand.sh/pkg/eval/errs"
	"src.strand.sh/pkg/eval/vals"
)

// Constructors and atoms of the builtin module.
type builtins struct {
	scope *ModuleScope

	unit, nilAtom, trueAtom, falseAtom *Atom
	cons                               *Constructor
	state, errorType, thread           *Constructor
}

func installBuiltins(s *ModuleScope) *builtins {
	b := &builtins{scope: s}
	mustAdd := func(name string, fields ...string) *Constructor {
		ps := make([]Param, len(fields))
		for i, f := range fields {
			ps[i] = Param{Name: f}
		}
		c, err := s.addConstructor(name, ps)
		if err != nil {
			panic(err)
		}
		return c
	}
	b.unit = mustAdd("Unit").singleton
	b.nilAtom = mustAdd("Nil").singleton
	b.cons = mustAdd("Cons", "head", "rest")
	b.trueAtom = mustAdd("True").singleton
	b.falseAtom = mustAdd("False").singleton
	b.state = mustAdd("State")
	b.errorType = mustAdd("Error")
	b.thread = mustAdd("Thread")

	b.installNumber()
	b.installAny()
	b.installFunction()
	b.installError()
	b.installState()
	b.installThread()
	return b
}

// Unit returns the Unit atom.
func (ev *Evaler) Unit() *Atom { return ev.builtins.unit }

// Nil returns the Nil atom.
func (ev *Evaler) Nil() *Atom { return ev.builtins.nilAtom }

// Cons builds a Cons atom.
func (ev *Evaler) Cons(head, rest any) *Atom { return ev.builtins.cons.New(head, rest) }

// Bool returns the True or False atom.
func (ev *Evaler) Bool(b bool) *Atom { return ev.builtins.boolAtom(b) }

// List builds a list of Cons atoms ending with Nil.
func (ev *Evaler) List(values ...any) *Atom {
	l := ev.builtins.nilAtom
	for i := len(values) - 1; i >= 0; i-- {
		l = ev.Cons(values[i], l)
	}
	return l
}

func (b *builtins) boolAtom(v bool) *Atom {
	if v {
		return b.trueAtom
	}
	return b.falseAtom
}

func (b *builtins) defineCategory(cat category, prefix, name string, params []string, impl NativeImpl) {
	b.scope.defineCategoryMethod(cat, name, NewNative(prefix+"."+name, params, impl))
}

func (b *builtins) defineFor(cons *Constructor, name string, params []string, impl NativeImpl) {
	b.scope.defineMethod(cons, name, NewNative(cons.name+"."+name, params, impl))
}

var (
	thisThat = []string{"this", "that"}
	thisOnly = []string{"this"}
)

func numberOperand(op string, v any) error {
	if vals.IsNumber(v) {
		return nil
	}
	return errs.TypeMismatch{What: "argument of " + op, Valid: "number", Actual: vals.Kind(v)}
}

func (b *builtins) installNumber() {
	for _, op := range []string{"+", "-", "*", "/", "%"} {
		op := op
		b.defineCategory(catNumber, "Number", op, thisThat,
			func(th *Thread, w World, args []any) (World, any, error) {
				if err := numberOperand(op, args[1]); err != nil {
					return w, nil, err
				}
				v, err := vals.Arith(op, args[0], args[1])
				if errors.Is(err, vals.ErrDivideByZero) {
					return w, NewErrorValue(err.Error()), nil
				}
				return w, v, err
			})
	}
	comparisons := map[string]func(int) bool{
		"<":  func(c int) bool { return c == -1 },
		"<=": func(c int) bool { return c == -1 || c == 0 },
		">":  func(c int) bool { return c == 1 },
		">=": func(c int) bool { return c == 1 || c == 0 },
	}
	for op, test := range comparisons {
		op, test := op, test
		b.defineCategory(catNumber, "Number", op, thisThat,
			func(th *Thread, w World, args []any) (World, any, error) {
				if err := numberOperand(op, args[1]); err != nil {
					return w, nil, err
				}
				return w, b.boolAtom(test(vals.Compare(args[0], args[1]))), nil
			})
	}
	b.defineCategory(catNumber, "Number", "negate", thisOnly,
		func(th *Thread, w World, args []any) (World, any, error) {
			switch x := args[0].(type) {
			case int64:
				if x == math.MinInt64 {
					return w, -float64(x), nil
				}
				return w, -x, nil
			case float64:
				return w, -x, nil
			}
			return w, nil, numberOperand("negate", args[0])
		})
}

func (b *builtins) installAny() {
	b.defineCategory(catAny, "Any", "==", thisThat,
		func(th *Thread, w World, args []any) (World, any, error) {
			return w, b.boolAtom(vals.Equal(args[0], args[1])), nil
		})
	b.defineCategory(catAny, "Any", "!=", thisThat,
		func(th *Thread, w World, args []any) (World, any, error) {
			return w, b.boolAtom(!vals.Equal(args[0], args[1])), nil
		})
	b.defineCategory(catAny, "Any", "to_text", thisOnly,
		func(th *Thread, w World, args []any) (World, any, error) {
			return w, vals.ToText(args[0]), nil
		})
	b.defineCategory(catAny, "Any", "catch", []string{"this", "handler"},
		func(th *Thread, w World, args []any) (World, any, error) {
			return w, args[0], nil
		})
	b.defineCategory(catAny, "Any", "is_error", thisOnly,
		func(th *Thread, w World, args []any) (World, any, error) {
			return w, b.falseAtom, nil
		})
}

func (b *builtins) installFunction() {
	b.defineCategory(catFunction, "Function", "apply", thisOnly,
		func(th *Thread, w World, args []any) (World, any, error) {
			return th.Call(args[0], w)
		})
	b.defineCategory(catFunction, "Function", "arity", thisOnly,
		func(th *Thread, w World, args []any) (World, any, error) {
			return w, int64(args[0].(*Function).Arity()), nil
		})
}

func (b *builtins) installError() {
	b.defineFor(b.errorType, "throw", []string{"this", "payload"},
		func(th *Thread, w World, args []any) (World, any, error) {
			return w, NewErrorValue(args[1]), nil
		})
	b.defineCategory(catError, "Error", "catch", []string{"this", "handler"},
		func(th *Thread, w World, args []any) (World, any, error) {
			return th.Call(args[1], w, args[0].(*ErrorValue).payload)
		})
	b.defineCategory(catError, "Error", "is_error", thisOnly,
		func(th *Thread, w World, args []any) (World, any, error) {
			return w, b.trueAtom, nil
		})
	b.defineCategory(catError, "Error", "payload", thisOnly,
		func(th *Thread, w World, args []any) (World, any, error) {
			return w, args[0].(*ErrorValue).payload, nil
		})
}

// The two primitives that read and replace the state cell of the world.
func (b *builtins) installState() {
	b.defineFor(b.state, "get", thisOnly,
		func(th *Thread, w World, args []any) (World, any, error) {
			if w.state == nil {
				return w, b.unit, nil
			}
			return w, w.state, nil
		})
	b.defineFor(b.state, "put", []string{"this", "value"},
		func(th *Thread, w World, args []any) (World, any, error) {
			return World{args[1]}, args[1], nil
		})
}

func (b *builtins) installThread() {
	b.defineFor(b.thread, "with_interrupt_handler", []string{"this", "action", "handler"},
		func(th *Thread, w World, args []any) (World, any, error) {
			w2, v, err := th.Call(args[1], w)
			if !errors.Is(err, ErrInterrupted) {
				return w2, v, err
			}
			logger.Println("running interrupt handler")
			th.masked++
			_, _, herr := th.Call(args[2], w)
			th.masked--
			if herr != nil {
				return w, nil, herr
			}
			return w, nil, ErrInterrupted
		})
}
