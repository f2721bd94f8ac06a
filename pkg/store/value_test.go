package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"src.strand.sh/pkg/store"
)

var (
	id1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	id2 = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

func TestValues(t *testing.T) {
	st, cleanup := store.MustGetTempStore()
	defer cleanup()

	if seq, err := st.NextSeq(); err != nil || seq != 1 {
		t.Errorf("NextSeq() -> %d, %v, want 1, nil", seq, err)
	}
	if _, err := st.Latest(id1); err != store.ErrNoValue {
		t.Errorf("Latest of unknown id -> %v, want ErrNoValue", err)
	}

	adds := []store.Entry{
		{1, id1, "number", "1"},
		{2, id2, "text", `"foo"`},
		{3, id1, "atom", "(Cons 1 Nil)"},
	}
	for _, e := range adds {
		seq, err := st.Add(e.ID, e.Kind, e.Repr)
		if err != nil || seq != e.Seq {
			t.Errorf("Add(%v) -> %d, %v, want %d, nil", e, seq, err, e.Seq)
		}
	}

	latest, err := st.Latest(id1)
	if err != nil || latest != adds[2] {
		t.Errorf("Latest(id1) -> %v, %v, want %v", latest, err, adds[2])
	}
	entries, err := st.Entries(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(adds[1:], entries); diff != "" {
		t.Errorf("Entries(2, 4) (-want +got):\n%s", diff)
	}

	var seen []uint64
	st.Iterate(0, 100, func(e store.Entry) bool {
		seen = append(seen, e.Seq)
		return e.Seq < 2
	})
	if diff := cmp.Diff([]uint64{1, 2}, seen); diff != "" {
		t.Errorf("Iterate stopped wrongly (-want +got):\n%s", diff)
	}

	if err := st.Record(id2, "number", "5"); err != nil {
		t.Errorf("Record -> %v", err)
	}
	if latest, _ := st.Latest(id2); latest.Repr != "5" || latest.Seq != 4 {
		t.Errorf("Latest(id2) -> %v after Record", latest)
	}
}

func TestOpen_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.db")
	st, err := store.Open(path, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	st.Add(id1, "number", "42")
	st.Close()

	st, err = store.Open(path, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if e, err := st.Latest(id1); err != nil || e.Repr != "42" {
		t.Errorf("Latest after reopening -> %v, %v", e, err)
	}
}

func TestOpen_Locked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.db")
	st, err := store.Open(path, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, err := store.Open(path, 50*time.Millisecond); err == nil {
		t.Errorf("opening a locked value log succeeded")
	}
}
