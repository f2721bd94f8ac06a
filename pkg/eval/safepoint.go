package eval

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"src.strand.sh/pkg/diag"
)

// ErrInterrupted is returned when an evaluation is interrupted, either by
// Evaler.Interrupt or by the cancellation of its context. It is a control
// signal, not a reported error, and is never wrapped in an Exception.
var ErrInterrupted = errors.New("interrupted")

// Thread is the state of one evaluation. It is confined to a single
// goroutine.
type Thread struct {
	ev         *Evaler
	ctx        context.Context
	instrument Instrument
	// Call sites of the active trampolines, outermost first.
	callers []*diag.Context

	seenEpoch   uint64
	interrupted atomic.Bool
	// Positive while running an interrupt handler.
	masked int
}

// Evaler returns the Evaler the thread belongs to.
func (th *Thread) Evaler() *Evaler { return th.ev }

// Checks for safepoint requests, interrupts and cancellation. Called at
// every call boundary.
func (th *Thread) poll() error {
	mgr := th.ev.threads
	if mgr.epoch.Load() != th.seenEpoch {
		mgr.arrive(th)
	}
	if th.masked > 0 {
		return nil
	}
	if th.interrupted.Load() && th.interrupted.CompareAndSwap(true, false) {
		return ErrInterrupted
	}
	if th.ctx != nil {
		select {
		case <-th.ctx.Done():
			return ErrInterrupted
		default:
		}
	}
	return nil
}

// ThreadManager keeps track of the threads of an Evaler and implements
// safepoints: a controller can make all of them pause at their next call
// boundary and run a function while they are paused.
type ThreadManager struct {
	// Incremented for each safepoint request; threads compare it with the
	// last value they have seen.
	epoch atomic.Uint64

	mu      sync.Mutex
	cond    *sync.Cond
	threads map[*Thread]struct{}
	pending bool
	arrived int
	gen     uint64
}

func newThreadManager() *ThreadManager {
	m := &ThreadManager{threads: make(map[*Thread]struct{})}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *ThreadManager) enter(th *Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.pending {
		m.cond.Wait()
	}
	th.seenEpoch = m.epoch.Load()
	m.threads[th] = struct{}{}
}

func (m *ThreadManager) leave(th *Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, th)
	if m.pending {
		m.cond.Broadcast()
	}
}

func (m *ThreadManager) arrive(th *Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	th.seenEpoch = m.epoch.Load()
	if !m.pending {
		return
	}
	m.arrived++
	m.cond.Broadcast()
	gen := m.gen
	for m.gen == gen {
		m.cond.Wait()
	}
}

// Active returns the number of running evaluations.
func (m *ThreadManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.threads)
}

// Safepoint waits until every running evaluation has paused at a call
// boundary, calls f, and resumes them. Evaluations that start while a
// safepoint is pending wait until it is over. It must not be called from an
// evaluation of the same Evaler.
func (m *ThreadManager) Safepoint(f func()) {
	m.mu.Lock()
	for m.pending {
		m.cond.Wait()
	}
	m.pending = true
	m.arrived = 0
	m.epoch.Add(1)
	for m.arrived < len(m.threads) {
		m.cond.Wait()
	}
	logger.Printf("safepoint reached with %d threads", m.arrived)
	// Paused threads stay paused and new threads wait in enter while f runs.
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.pending = false
		m.gen++
		m.cond.Broadcast()
	}()
	f()
}

// Interrupt requests all running evaluations to stop at their next call
// boundary with ErrInterrupted.
func (m *ThreadManager) Interrupt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	logger.Printf("interrupting %d threads", len(m.threads))
	for th := range m.threads {
		th.interrupted.Store(true)
	}
}
