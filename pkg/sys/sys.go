// Package sys provide system utilities with the same API across OSes.
package sys

import (
	"os"

	"github.com/mattn/go-isatty"
)

const sigsChanBufferSize = 16

// NotifySignals returns a channel on which the signals that should interrupt
// or inspect a running program are delivered, and a function that stops the
// delivery.
func NotifySignals() (chan os.Signal, func()) { return notifySignals() }

// IsInterrupt reports whether a signal asks the program to stop what it is
// doing.
func IsInterrupt(sig os.Signal) bool { return isInterrupt(sig) }

// IsDump reports whether a signal asks the program to dump the stacks of all
// goroutines.
func IsDump(sig os.Signal) bool { return isDump(sig) }

// IsATTY determines whether the given file is a terminal.
func IsATTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
