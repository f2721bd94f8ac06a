package sys

import (
	"os"
	"os/signal"
)

func notifySignals() (chan os.Signal, func()) {
	sigCh := make(chan os.Signal, sigsChanBufferSize)
	signal.Notify(sigCh, os.Interrupt)
	return sigCh, func() { signal.Stop(sigCh) }
}

func isInterrupt(sig os.Signal) bool { return sig == os.Interrupt }

func isDump(os.Signal) bool { return false }
