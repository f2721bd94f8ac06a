package tt

import (
	"errors"
	"fmt"
	"testing"
)

// testT implements the T interface and is used to verify the Test function's
// interaction with T.
type testT []string

func (t *testT) Helper() {}

func (t *testT) Errorf(format string, args ...any) {
	*t = append(*t, fmt.Sprintf(format, args...))
}

func add(x, y int) int { return x + y }

func addWithCarry(x, y, carry int) (int, int) {
	ret := x + y + carry
	return ret % 10, ret / 10
}

func failIfNegative(x int) error {
	if x < 0 {
		return errors.New("negative")
	}
	return nil
}

func TestTTPass(t *testing.T) {
	var testT testT
	Test(&testT, Fn("addWithCarry", addWithCarry), Table{
		Args(1, 1, 0).Rets(2, 0),
		Args(1, 9, 1).Rets(1, 1),
		Args(2, 3, 4).Rets(Any, Any),
	})
	Test(&testT, Fn("failIfNegative", failIfNegative), Table{
		Args(1).Rets(nil),
		Args(-1).Rets(ErrorIs(errors.New("negative"))),
	})
	if len(testT) > 0 {
		t.Errorf("Test errors when test should pass: %v", testT)
	}
}

func TestTTFail(t *testing.T) {
	var testT testT
	Test(&testT, Fn("add", add), Table{
		Args(1, 1).Rets(3),
	})
	Test(&testT, Fn("addWithCarry", addWithCarry).ArgsFmt("%d+%d+%d"), Table{
		Args(1, 9, 1).Rets(0, 1),
	})
	want := []string{
		"add(1, 1) -> 2, want 3",
		"addWithCarry(1+9+1) -> (1, 1), want (0, 1)",
	}
	if len(testT) != len(want) {
		t.Fatalf("got %d errors %v, want %d", len(testT), testT, len(want))
	}
	for i := range want {
		if testT[i] != want[i] {
			t.Errorf("error %d = %q, want %q", i, testT[i], want[i])
		}
	}
}
