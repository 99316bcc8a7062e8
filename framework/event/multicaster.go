// Package event provides a typed publish/subscribe multicaster.
//
// Listeners are keyed by the type identity of the event they accept, so a
// single Multicaster can carry any number of unrelated event types:
//
//	m := event.NewMulticaster()
//	event.SubscribeFunc(m, func(ctx context.Context, e UserRegistered) error {
//	    return mailer.Welcome(ctx, e.Email)
//	})
//	err := event.Publish(ctx, m, UserRegistered{Email: "a@b.c"})
//
// Listeners run synchronously in subscription order. By default the first
// failing listener stops the dispatch and its error is returned to the
// publisher; WithIsolation switches to log-and-continue.
package event

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/summer/framework/typeid"
)

// Listener handles events of type E.
type Listener[E any] interface {
	OnEvent(ctx context.Context, event E) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc[E any] func(ctx context.Context, event E) error

// OnEvent calls f.
func (f ListenerFunc[E]) OnEvent(ctx context.Context, event E) error { return f(ctx, event) }

// erasedListener is a Listener with its event type erased so listeners for
// different types can share one map.
type erasedListener interface {
	handle(ctx context.Context, event any) error
	eventType() typeid.ID
}

type typedListener[E any] struct {
	l Listener[E]
}

func (t typedListener[E]) handle(ctx context.Context, event any) error {
	e, ok := event.(E)
	if !ok {
		// Listeners are indexed by typeid.Of[E], so this cannot happen
		// unless the index itself is corrupt.
		panic(fmt.Sprintf("event: listener for %s received %T", typeid.Of[E](), event))
	}
	return t.l.OnEvent(ctx, e)
}

func (t typedListener[E]) eventType() typeid.ID { return typeid.Of[E]() }

// ListenerError is returned by Publish when a listener fails.
type ListenerError struct {
	Event typeid.ID
	Index int
	Err   error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("event: listener %d for %s failed: %v", e.Index, e.Event, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// Observer is told about every Publish call once dispatch finishes.
type Observer func(event typeid.ID, listeners int, err error)

// Multicaster dispatches published events to the listeners subscribed to
// their type.
type Multicaster struct {
	mu        sync.RWMutex
	listeners map[typeid.ID][]erasedListener

	log      *zap.Logger
	isolate  bool
	observer Observer
}

// Option configures a Multicaster.
type Option func(*Multicaster)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(m *Multicaster) {
		if log != nil {
			m.log = log
		}
	}
}

// WithIsolation makes Publish log listener failures and carry on with the
// remaining listeners instead of stopping at the first error.
func WithIsolation() Option {
	return func(m *Multicaster) { m.isolate = true }
}

// WithObserver registers a callback run after each Publish.
func WithObserver(o Observer) Option {
	return func(m *Multicaster) { m.observer = o }
}

// NewMulticaster returns an empty Multicaster.
func NewMulticaster(opts ...Option) *Multicaster {
	m := &Multicaster{
		listeners: make(map[typeid.ID][]erasedListener),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe appends l to the listeners for E and returns its index.
func Subscribe[E any](m *Multicaster, l Listener[E]) int {
	wrapped := typedListener[E]{l: l}
	id := wrapped.eventType()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[id] = append(m.listeners[id], wrapped)
	m.log.Debug("listener subscribed", zap.Stringer("event", id), zap.Int("index", len(m.listeners[id])-1))
	return len(m.listeners[id]) - 1
}

// SubscribeFunc is Subscribe for a plain function.
func SubscribeFunc[E any](m *Multicaster, fn func(ctx context.Context, event E) error) int {
	return Subscribe[E](m, ListenerFunc[E](fn))
}

// Unsubscribe removes the listener for E at index. Later listeners shift
// down by one, so indexes are only stable for the goroutine that owns the
// subscriptions.
func Unsubscribe[E any](m *Multicaster, index int) error {
	id := typeid.Of[E]()

	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.listeners[id]
	if !ok {
		return fmt.Errorf("event: no listeners for %s", id)
	}
	if index < 0 || index >= len(ls) {
		return fmt.Errorf("event: listener index %d out of range for %s (%d listeners)", index, id, len(ls))
	}
	ls = append(ls[:index:index], ls[index+1:]...)
	if len(ls) == 0 {
		delete(m.listeners, id)
	} else {
		m.listeners[id] = ls
	}
	return nil
}

// Publish delivers event to every listener subscribed to E, in subscription
// order. Without isolation the first failure stops the dispatch and is
// returned as a *ListenerError.
func Publish[E any](ctx context.Context, m *Multicaster, event E) error {
	id := typeid.Of[E]()

	m.mu.RLock()
	ls := append([]erasedListener(nil), m.listeners[id]...)
	m.mu.RUnlock()

	err := m.dispatch(ctx, id, ls, event)
	if m.observer != nil {
		m.observer(id, len(ls), err)
	}
	return err
}

func (m *Multicaster) dispatch(ctx context.Context, id typeid.ID, ls []erasedListener, event any) error {
	for i, l := range ls {
		if err := l.handle(ctx, event); err != nil {
			lerr := &ListenerError{Event: id, Index: i, Err: err}
			if !m.isolate {
				return lerr
			}
			m.log.Error("event listener failed", zap.Stringer("event", id), zap.Int("index", i), zap.Error(err))
		}
	}
	return nil
}

// ListenerCount returns the number of listeners subscribed to id.
func (m *Multicaster) ListenerCount(id typeid.ID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.listeners[id])
}
