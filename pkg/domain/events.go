package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDelineateStart EventType = "delineate_start"
	EventDelineateEnd   EventType = "delineate_end"
	EventWarning        EventType = "warning"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Dataset   string    `json:"dataset"`
}

// DelineationEvent describes one request passing through the engine.
type DelineationEvent struct {
	EventBase
	Kind     Kind          `json:"kind"`
	Window   Window        `json:"window"`             // cells read for the query
	Cells    int           `json:"cells,omitempty"`    // size of the resulting mask
	Outlets  int           `json:"outlets,omitempty"`  // size of the outlet set
	Duration time.Duration `json:"duration,omitempty"` // set on end events
	Cached   bool          `json:"cached,omitempty"`
	Err      error         `json:"-"`
}

// WarningEvent carries a non-fatal condition attached to a result.
type WarningEvent struct {
	EventBase
	Kind    Kind  `json:"kind"`
	Warning error `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnDelineateStart func(context.Context, *DelineationEvent)
	OnDelineateEnd   func(context.Context, *DelineationEvent)
	OnWarning        func(context.Context, *WarningEvent)
}

// Merge chains two hook sets; both are called, h first.
func (h LifecycleHooks) Merge(o LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnDelineateStart: chain(h.OnDelineateStart, o.OnDelineateStart),
		OnDelineateEnd:   chain(h.OnDelineateEnd, o.OnDelineateEnd),
		OnWarning:        chain(h.OnWarning, o.OnWarning),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e T) {
		a(ctx, e)
		b(ctx, e)
	}
}
