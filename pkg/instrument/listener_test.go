package instrument_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"src.strand.sh/pkg/ast"
	"src.strand.sh/pkg/eval"
	"src.strand.sh/pkg/fixture"
	. "src.strand.sh/pkg/instrument"
)

var (
	sumID  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	bodyID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// The sum increments the state cell each time it is computed.
const code = `{do: [
  {.put: [State, {.+: [{.get: [State]}, 1]}]},
  {.+: [20, 22], id: 00000000-0000-0000-0000-000000000001}]}`

func run(t *testing.T, ev *eval.Evaler, l *Listener, state any) (any, any) {
	t.Helper()
	return runCode(t, ev, l, code, state)
}

func runCode(t *testing.T, ev *eval.Evaler, l *Listener, code string, state any) (any, any) {
	t.Helper()
	src := ast.Source{Name: "[test]", Code: code}
	tree, err := fixture.ParseExpr(src)
	if err != nil {
		t.Fatal(err)
	}
	w, v, err := ev.Eval(tree, nil, eval.NewWorld(state), eval.EvalCfg{Source: src, Instrument: l})
	if err != nil {
		t.Fatal(err)
	}
	return v, w.State()
}

func TestListener_ReportsValues(t *testing.T) {
	ev := eval.NewEvaler(nil)
	l := NewListener(NewCache())
	var got []ExpressionValue
	l.OnValue = func(v ExpressionValue) { got = append(got, v) }
	l.Watch(sumID)

	if v, _ := run(t, ev, l, int64(0)); v != int64(42) {
		t.Errorf("got %v, want 42", v)
	}
	want := []ExpressionValue{{ID: sumID, Type: "number", Value: int64(42)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reported values (-want +got):\n%s", diff)
	}
	// Watching alone does not store values.
	if l.Cache().Len() != 0 {
		t.Errorf("cache has values")
	}
}

func TestListener_Modes(t *testing.T) {
	ev := eval.NewEvaler(nil)
	cache := NewCache()
	cache.SetWeight(sumID, 1)
	l := NewListener(cache)

	// The first evaluation computes the value and stores it.
	if v, st := run(t, ev, l, int64(0)); v != int64(42) || st != int64(1) {
		t.Errorf("first run -> %v, %v", v, st)
	}
	if v, ok := cache.Get(sumID); !ok || v != int64(42) {
		t.Fatalf("value not cached")
	}

	// Default mode serves the cached value; the state effect of the block
	// still happens since only the sum is cached.
	cache.Offer(sumID, int64(100))
	if v, _ := run(t, ev, l, int64(0)); v != int64(100) {
		t.Errorf("Default mode -> %v, want cached 100", v)
	}

	l.SetMode(InvalidateAll)
	if v, _ := run(t, ev, l, int64(0)); v != int64(42) {
		t.Errorf("InvalidateAll mode -> %v, want 42", v)
	}
	if v, _ := cache.Get(sumID); v != int64(42) {
		t.Errorf("recomputed value not stored, cache has %v", v)
	}

	cache.Offer(sumID, int64(100))
	l.SetMode(InvalidateExpressions, bodyID)
	if v, _ := run(t, ev, l, int64(0)); v != int64(100) {
		t.Errorf("InvalidateExpressions of another id -> %v, want cached 100", v)
	}
	l.SetMode(InvalidateExpressions, sumID)
	if v, _ := run(t, ev, l, int64(0)); v != int64(42) {
		t.Errorf("InvalidateExpressions of the sum -> %v, want 42", v)
	}
	if l.Mode() != InvalidateExpressions {
		t.Errorf("Mode() -> %v", l.Mode())
	}
}

func TestListener_CachedExpressionIsNotEvaluated(t *testing.T) {
	ev := eval.NewEvaler(nil)
	cache := NewCache()
	cache.SetWeight(bodyID, 1)
	l := NewListener(cache)
	const code = `{.put: [State, {.+: [{.get: [State]}, 1]}], id: 00000000-0000-0000-0000-000000000002}`

	if _, st := runCode(t, ev, l, code, int64(0)); st != int64(1) {
		t.Errorf("state after first run %v, want 1", st)
	}
	if _, st := runCode(t, ev, l, code, int64(0)); st != int64(0) {
		t.Errorf("cached expression was evaluated, state is %v", st)
	}
}

func TestListener_Override(t *testing.T) {
	ev := eval.NewEvaler(nil)
	l := NewListener(NewCache())
	var got []ExpressionValue
	l.OnValue = func(v ExpressionValue) { got = append(got, v) }

	l.Override(sumID, "overridden")
	if !l.Interested(sumID) {
		t.Errorf("not interested in an overridden expression")
	}
	if v, _ := run(t, ev, l, int64(0)); v != "overridden" {
		t.Errorf("got %v, want overridden value", v)
	}
	want := []ExpressionValue{{ID: sumID, Type: "text", Value: "overridden", Cached: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reported values (-want +got):\n%s", diff)
	}
	// The override is used once.
	if l.Interested(sumID) {
		t.Errorf("still interested after the override is used")
	}
	if v, _ := run(t, ev, l, int64(0)); v != int64(42) {
		t.Errorf("got %v after the override is used, want 42", v)
	}
}

func TestListener_TailPosition(t *testing.T) {
	ev := eval.NewEvaler(nil)
	l := NewListener(NewCache())
	var got []ExpressionValue
	l.OnValue = func(v ExpressionValue) { got = append(got, v) }
	l.Watch(bodyID)
	// The block ends with a call in tail position.
	const code = `[{lambda: [x], body: {do: [[{lambda: [y], body: y}, {.+: [x, 1]}]], id: 00000000-0000-0000-0000-000000000002}}, 1]`
	if v, _ := runCode(t, ev, l, code, nil); v != int64(2) {
		t.Errorf("got %v, want 2", v)
	}
	if len(got) != 1 || got[0].Value != int64(2) {
		t.Errorf("got reports %v", got)
	}
}

type failingSink struct{ recorded []string }

func (s *failingSink) Record(id uuid.UUID, kind, repr string) error {
	s.recorded = append(s.recorded, kind+" "+repr)
	return errors.New("disk full")
}

func TestListener_Sink(t *testing.T) {
	ev := eval.NewEvaler(nil)
	l := NewListener(NewCache())
	sink := &failingSink{}
	l.Sink = sink
	l.WatchAll()
	// Errors of the sink are logged and do not stop the evaluation.
	if v, _ := run(t, ev, l, int64(0)); v != int64(42) {
		t.Errorf("got %v, want 42", v)
	}
	if len(sink.recorded) == 0 || sink.recorded[len(sink.recorded)-1] != "number 42" {
		t.Errorf("got records %v", sink.recorded)
	}
}

func TestTracer(t *testing.T) {
	var sb strings.Builder
	Tracer(&sb)(ExpressionValue{ID: sumID, Type: "number", Value: int64(42), Cached: true})
	want := sumID.String() + " number 42 (cached)\n"
	if sb.String() != want {
		t.Errorf("got %q, want %q", sb.String(), want)
	}
}

func TestMode_String(t *testing.T) {
	if s := InvalidateAll.String(); s != "InvalidateAll" {
		t.Errorf("got %q", s)
	}
	if s := Mode(9).String(); s != "Mode(9)" {
		t.Errorf("got %q", s)
	}
}
