//go:build unix

package sys

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestNotifySignals(t *testing.T) {
	sigCh, stop := NotifySignals()
	defer stop()
	if err := unix.Kill(unix.Getpid(), unix.SIGQUIT); err != nil {
		t.Fatal(err)
	}
	select {
	case sig := <-sigCh:
		if !IsDump(sig) || IsInterrupt(sig) {
			t.Errorf("got signal %v, want SIGQUIT", sig)
		}
	case <-time.After(time.Second):
		t.Fatal("signal not delivered")
	}
}

func TestIsInterrupt(t *testing.T) {
	if !IsInterrupt(unix.SIGINT) || !IsInterrupt(unix.SIGTERM) || IsInterrupt(unix.SIGHUP) {
		t.Errorf("IsInterrupt classifies signals wrongly")
	}
}

func TestDumpStack(t *testing.T) {
	if s := DumpStack(); !strings.Contains(s, "TestDumpStack") {
		t.Errorf("DumpStack() does not contain the current function:\n%s", s)
	}
}
