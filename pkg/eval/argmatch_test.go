package eval

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.strand.sh/pkg/eval/errs"
	. "src.strand.sh/pkg/tt"
)

var (
	schemaXYZ      = newSchema([]Param{{Name: "x"}, {Name: "y"}, {Name: "z"}})
	schemaThisXY10 = newSchema([]Param{{Name: "this"}, {Name: "x"}, {Name: "y", HasDefault: true}})
)

func positional(n int) []ArgInfo { return make([]ArgInfo, n) }

func named(names ...string) []ArgInfo {
	infos := make([]ArgInfo, len(names))
	for i, name := range names {
		infos[i] = ArgInfo{Name: name}
	}
	return infos
}

func targets(s *Schema, infos []ArgInfo) ([]int, bool, error) {
	m, err := computeMapping(s, infos)
	if err != nil {
		return nil, false, err
	}
	return m.targets, m.full, nil
}

func TestComputeMapping(t *testing.T) {
	Test(t, Fn("targets", targets), Table{
		// Positional arguments fill slots in declaration order.
		Args(schemaXYZ, positional(3)).Rets([]int{0, 1, 2}, true, nil),
		Args(schemaXYZ, positional(1)).Rets([]int{0}, false, nil),
		// Extra arguments are oversaturated.
		Args(schemaXYZ, positional(5)).Rets(
			[]int{0, 1, 2, targetOversat, targetOversat}, true, nil),
		// Named arguments go to their slots; positional ones fill the rest.
		Args(schemaXYZ, named("z", "x", "y")).Rets([]int{2, 0, 1}, true, nil),
		Args(schemaXYZ, []ArgInfo{{Name: "y"}, {}, {}}).Rets([]int{1, 0, 2}, true, nil),
		// A placeholder consumes a slot without filling it.
		Args(schemaXYZ, []ArgInfo{{Ignore: true}, {}, {}}).Rets(
			[]int{targetIgnore, 1, 2}, false, nil),
		// Defaults make a schema fully applicable, unless ignored.
		Args(schemaThisXY10, positional(2)).Rets([]int{0, 1}, true, nil),
		Args(schemaThisXY10, []ArgInfo{{}, {}, {Ignore: true}}).Rets(
			[]int{0, 1, targetIgnore}, false, nil),
		Args(schemaThisXY10, []ArgInfo{{}, {Name: "y"}}).Rets([]int{0, 2}, false, nil),

		Args(schemaXYZ, []ArgInfo{{}, {Name: "x"}}).Rets(
			[]int(nil), false, errs.DuplicateArgument{Name: "x"}),
		Args(schemaXYZ, named("x", "x")).Rets(
			[]int(nil), false, errs.DuplicateArgument{Name: "x"}),
		Args(schemaXYZ, named("w")).Rets(
			[]int(nil), false, errs.UnknownArgument{Name: "w"}),
		Args(schemaXYZ, []ArgInfo{{}, {}, {}, {Ignore: true}}).Rets(
			[]int(nil), false, errs.ArityMismatch{
				What: "placeholders here", ValidLow: 0, ValidHigh: 3, Actual: 1}),
	})
}

func TestComputeMapping_NamedOrderIndependence(t *testing.T) {
	orders := [][]string{
		{"x", "y", "z"}, {"x", "z", "y"}, {"y", "x", "z"},
		{"y", "z", "x"}, {"z", "x", "y"}, {"z", "y", "x"},
	}
	values := map[string]any{"x": int64(1), "y": int64(2), "z": int64(3)}
	fn := newFunction("f", nil, nil, schemaXYZ)
	for _, order := range orders {
		m, err := computeMapping(schemaXYZ, named(order...))
		if err != nil {
			t.Fatal(err)
		}
		args := make([]any, len(order))
		for i, name := range order {
			args[i] = values[name]
		}
		bound, _ := m.bind(fn, args)
		want := []any{int64(1), int64(2), int64(3)}
		if diff := cmp.Diff(want, bound); diff != "" {
			t.Errorf("order %v (-want +got):\n%s", order, diff)
		}
	}
}

func TestComputeMapping_PreApplied(t *testing.T) {
	m1, err := computeMapping(schemaThisXY10, []ArgInfo{{}, {Name: "y"}})
	if err != nil {
		t.Fatal(err)
	}
	post := m1.post
	if post.Remaining() != 1 || !post.PreApplied(0) || post.PreApplied(1) || !post.PreApplied(2) {
		t.Fatalf("unexpected post schema %+v", post)
	}
	// A positional argument skips pre-applied slots.
	m2, err := computeMapping(post, positional(1))
	if err != nil {
		t.Fatal(err)
	}
	if !m2.full || m2.targets[0] != 1 {
		t.Errorf("got targets %v full %v, want [1] true", m2.targets, m2.full)
	}
	// Naming a pre-applied slot is an error.
	if _, err := computeMapping(post, named("this")); err != (errs.DuplicateArgument{Name: "this"}) {
		t.Errorf("got error %v", err)
	}
}

func TestArgCache(t *testing.T) {
	s1 := newSchema([]Param{{Name: "a"}})
	s2 := newSchema([]Param{{Name: "a"}})
	s3 := newSchema([]Param{{Name: "a"}})
	c := &argCache{size: 2}

	m1, _ := c.lookup(s1, positional(1))
	if again, _ := c.lookup(s1, positional(1)); again != m1 {
		t.Errorf("cache miss for the same schema")
	}
	// Structurally equal schemas are still distinct keys.
	if m2, _ := c.lookup(s2, positional(1)); m2 == m1 {
		t.Errorf("cache hit for a different schema")
	}
	c.lookup(s3, positional(1))
	if n := c.len(); n != 2 {
		t.Errorf("cache has %d entries, want 2", n)
	}
	// s1 was the oldest entry and has been evicted.
	if again, _ := c.lookup(s1, positional(1)); again == m1 {
		t.Errorf("evicted entry is still returned")
	}
}

func TestArgCache_PostSchemaIsStable(t *testing.T) {
	c := &argCache{size: 4}
	m1, _ := c.lookup(schemaXYZ, positional(1))
	m2, _ := c.lookup(schemaXYZ, positional(1))
	if m1.post != m2.post {
		t.Errorf("curried schemas differ between calls at the same site")
	}
}

var schemaThisLazyY = newSchema([]Param{{Name: "this"}, {Name: "lazy", Suspended: true}, {Name: "y"}})

func suspendedArgs(s *Schema, infos []ArgInfo) []bool {
	m, err := computeMapping(s, infos)
	if err != nil {
		return nil
	}
	return m.suspended
}

func TestComputeMapping_Suspended(t *testing.T) {
	Test(t, Fn("suspendedArgs", suspendedArgs), Table{
		Args(schemaXYZ, positional(3)).Rets([]bool(nil)),
		Args(schemaThisLazyY, positional(3)).Rets([]bool{false, true, false}),
		Args(schemaThisLazyY, []ArgInfo{{}, {Name: "y"}, {Name: "lazy"}}).
			Rets([]bool{false, false, true}),
		// Placeholders and oversaturated arguments are never suspended.
		Args(schemaThisLazyY, []ArgInfo{{}, {Ignore: true}, {}, {}}).Rets([]bool(nil)),
	})
	if !schemaThisLazyY.suspends || schemaXYZ.suspends {
		t.Errorf("wrong suspends flags")
	}
	// Curried schemas keep the flag.
	m, _ := computeMapping(schemaThisLazyY, positional(1))
	if m.full || !m.post.suspends {
		t.Errorf("curried schema lost the suspends flag")
	}
}
