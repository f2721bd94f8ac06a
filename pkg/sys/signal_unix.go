//go:build unix

package sys

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

func notifySignals() (chan os.Signal, func()) {
	sigCh := make(chan os.Signal, sigsChanBufferSize)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM, unix.SIGQUIT)
	return sigCh, func() { signal.Stop(sigCh) }
}

func isInterrupt(sig os.Signal) bool {
	return sig == unix.SIGINT || sig == unix.SIGTERM
}

func isDump(sig os.Signal) bool { return sig == unix.SIGQUIT }
