package runner

import (
	"fmt"
	"io"

	"src.strand.sh/pkg/eval"
	"src.strand.sh/pkg/sys"
)

// Routes signals to the Evaler until the returned function is called:
// interrupts stop the running program and dump requests print the stacks of
// all goroutines.
func handleSignals(ev *eval.Evaler, stderr io.Writer) func() {
	sigCh, stopNotify := sys.NotifySignals()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch {
				case sys.IsInterrupt(sig):
					logger.Printf("interrupting on %v", sig)
					ev.Interrupt()
				case sys.IsDump(sig):
					fmt.Fprint(stderr, sys.DumpStack())
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		stopNotify()
		close(done)
	}
}
