package event

import (
	"time"

	"github.com/google/uuid"
)

// Base carries the metadata common to application events. Embed it in
// custom event types:
//
//	type OrderPlaced struct {
//	    event.Base
//	    OrderID string
//	}
//
//	event.Publish(ctx, m, OrderPlaced{Base: event.NewBase("order.placed", svc), OrderID: id})
type Base struct {
	ID     uuid.UUID
	Name   string
	Time   time.Time
	Source any
}

// NewBase stamps a new event with a random ID and the current time.
func NewBase(name string, source any) Base {
	return Base{
		ID:     uuid.New(),
		Name:   name,
		Time:   time.Now(),
		Source: source,
	}
}

// EventName returns the event's name.
func (b Base) EventName() string { return b.Name }

// ── Lifecycle events ──────────────────────────────────────────────────────────

// ContextRefreshed is published once a container has built every singleton.
type ContextRefreshed struct{ Base }

// NewContextRefreshed returns a ContextRefreshed event raised by source.
func NewContextRefreshed(source any) ContextRefreshed {
	return ContextRefreshed{NewBase("context.refreshed", source)}
}

// ApplicationStarted is published after the application kernel has booted
// all service providers.
type ApplicationStarted struct{ Base }

// NewApplicationStarted returns an ApplicationStarted event raised by source.
func NewApplicationStarted(source any) ApplicationStarted {
	return ApplicationStarted{NewBase("application.started", source)}
}

// ContextClosed is published when a container starts shutting down, before
// any destroy hook runs.
type ContextClosed struct{ Base }

// NewContextClosed returns a ContextClosed event raised by source.
func NewContextClosed(source any) ContextClosed {
	return ContextClosed{NewBase("context.closed", source)}
}
