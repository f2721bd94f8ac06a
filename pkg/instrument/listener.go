package instrument

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"src.strand.sh/pkg/eval"
	"src.strand.sh/pkg/eval/vals"
	"src.strand.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[instrument] ")

// Mode decides how a Listener uses the values in its cache.
type Mode int

// Possible values for Mode.
const (
	// Cached values are used instead of evaluating their expressions.
	Default Mode = iota
	// Every cached value met during evaluation is dropped and its expression
	// evaluated again.
	InvalidateAll
	// Only the cached values of expressions given to SetMode are dropped;
	// other cached values are used.
	InvalidateExpressions
)

func (m Mode) String() string {
	switch m {
	case Default:
		return "Default"
	case InvalidateAll:
		return "InvalidateAll"
	case InvalidateExpressions:
		return "InvalidateExpressions"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ExpressionValue is the value of an identified expression, as reported to
// the OnValue callback.
type ExpressionValue struct {
	ID   uuid.UUID
	Type string
	Value any
	// True when the value was taken from the cache or an override.
	Cached bool
}

// Repr returns the representation of the value.
func (ev ExpressionValue) Repr() string { return vals.Repr(ev.Value) }

// Sink receives the values of observed expressions, for example to persist
// them.
type Sink interface {
	Record(id uuid.UUID, kind, repr string) error
}

// Listener is an eval.Instrument backed by a Cache. One Listener should be
// used by one evaluation at a time, but several Listeners may share a
// Cache.
type Listener struct {
	// Called with the value of each observed expression. May be nil.
	OnValue func(ExpressionValue)
	// Receives the computed values of observed expressions. May be nil.
	Sink Sink

	cache *Cache

	mu          sync.Mutex
	mode        Mode
	invalidated map[uuid.UUID]bool
	// Expressions observed regardless of the cache; all expressions when
	// watchAll is set.
	watched   map[uuid.UUID]bool
	watchAll  bool
	overrides map[uuid.UUID]any
}

var _ eval.Instrument = (*Listener)(nil)

// NewListener returns a Listener using the given cache in Default mode.
func NewListener(cache *Cache) *Listener {
	return &Listener{
		cache:     cache,
		watched:   make(map[uuid.UUID]bool),
		overrides: make(map[uuid.UUID]any),
	}
}

// Cache returns the cache of the Listener.
func (l *Listener) Cache() *Cache { return l.cache }

// SetMode sets the execution mode. The ids are only used with
// InvalidateExpressions.
func (l *Listener) SetMode(mode Mode, ids ...uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = mode
	l.invalidated = nil
	if mode == InvalidateExpressions {
		l.invalidated = make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			l.invalidated[id] = true
		}
	}
}

// Mode returns the execution mode.
func (l *Listener) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Watch makes the Listener observe the given expressions even if they have no
// weight in the cache.
func (l *Listener) Watch(ids ...uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		l.watched[id] = true
	}
}

// WatchAll makes the Listener observe every identified expression.
func (l *Listener) WatchAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watchAll = true
}

// Override makes the next evaluation of an expression yield v instead. The
// override is removed after it is used once.
func (l *Listener) Override(id uuid.UUID, v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[id] = v
}

// Interested implements eval.Instrument.
func (l *Listener) Interested(id uuid.UUID) bool {
	l.mu.Lock()
	_, overridden := l.overrides[id]
	watched := l.watchAll || l.watched[id]
	l.mu.Unlock()
	return overridden || watched || l.cache.interesting(id)
}

// Enter implements eval.Instrument.
func (l *Listener) Enter(id uuid.UUID) (any, bool) {
	l.mu.Lock()
	v, overridden := l.overrides[id]
	if overridden {
		delete(l.overrides, id)
	}
	mode, invalidated := l.mode, l.invalidated[id]
	l.mu.Unlock()
	if overridden {
		l.report(ExpressionValue{ID: id, Type: vals.Kind(v), Value: v, Cached: true})
		return v, true
	}

	switch {
	case mode == InvalidateAll, mode == InvalidateExpressions && invalidated:
		l.cache.Invalidate(id)
		return nil, false
	}
	if v, ok := l.cache.Get(id); ok {
		l.report(ExpressionValue{ID: id, Type: vals.Kind(v), Value: v, Cached: true})
		return v, true
	}
	return nil, false
}

// Return implements eval.Instrument.
func (l *Listener) Return(id uuid.UUID, v any) {
	l.cache.Offer(id, v)
	ev := ExpressionValue{ID: id, Type: vals.Kind(v), Value: v}
	l.report(ev)
	if l.Sink != nil {
		if err := l.Sink.Record(id, ev.Type, ev.Repr()); err != nil {
			logger.Printf("failed to record value of %v: %v", id, err)
		}
	}
}

func (l *Listener) report(ev ExpressionValue) {
	if l.OnValue != nil {
		l.OnValue(ev)
	}
}

// Tracer returns an OnValue callback that writes one line per value to w.
func Tracer(w io.StringWriter) func(ExpressionValue) {
	return func(ev ExpressionValue) {
		var sb strings.Builder
		sb.WriteString(ev.ID.String())
		sb.WriteString(" ")
		sb.WriteString(ev.Type)
		sb.WriteString(" ")
		sb.WriteString(ev.Repr())
		if ev.Cached {
			sb.WriteString(" (cached)")
		}
		sb.WriteString("\n")
		w.WriteString(sb.String())
	}
}
