package eval

import (
	"errors"
	"testing"

	"src.strand.sh/pkg/diag"
)

func TestException(t *testing.T) {
	reason := errors.New("boom")
	exc := NewException(reason, nil)
	if Reason(exc) != reason || !errors.Is(exc, reason) {
		t.Errorf("reason is not accessible")
	}
	if Reason(reason) != reason {
		t.Errorf("Reason of a plain error changed it")
	}
	if got, want := exc.Show(""), "Exception: \033[31;1mboom\033[m"; got != want {
		t.Errorf("Show() -> %q, want %q", got, want)
	}
}

func TestErrorp(t *testing.T) {
	th := &Thread{}
	for _, err := range []error{nil, ErrInterrupted, &TailCall{}, &branchSelected{}} {
		if got := th.errorp(nil, err); got != err {
			t.Errorf("errorp(%v) -> %v, want unchanged", err, got)
		}
	}

	outer := diag.NewContext("a", "outer", diag.Ranging{From: 0, To: 5})
	inner := diag.NewContext("a", "inner", diag.Ranging{From: 0, To: 5})
	th.callers = []*diag.Context{outer, nil}
	err := th.errorp(inner, errors.New("x"))
	exc, ok := err.(Exception)
	if !ok {
		t.Fatalf("errorp -> %T, want Exception", err)
	}
	st := exc.StackTrace()
	if st == nil || st.Head != inner || st.Next == nil || st.Next.Head != outer || st.Next.Next != nil {
		t.Errorf("unexpected stack trace")
	}
	// Exceptions are not wrapped again.
	if th.errorp(outer, exc) != exc {
		t.Errorf("exception wrapped twice")
	}
}
