// README: Domain events emitted after route, request and broadcast state changes.
package notify

import (
	"context"
	"sync"
	"time"

	"campuspool/internal/types"
)

type EventType string

const (
	RoutePublished   EventType = "route.published"
	RouteCancelled   EventType = "route.cancelled"
	RequestCreated   EventType = "request.created"
	RequestAccepted  EventType = "request.accepted"
	RequestRejected  EventType = "request.rejected"
	BroadcastCreated EventType = "broadcast.created"
)

// Public events are visible to every rider; the rest only to the driver and rider involved.
func (t EventType) Public() bool {
	switch t {
	case RoutePublished, RouteCancelled, BroadcastCreated:
		return true
	}
	return false
}

type Event struct {
	Type        EventType `json:"type"`
	RouteID     types.ID  `json:"route_id,omitempty"`
	RequestID   types.ID  `json:"request_id,omitempty"`
	BroadcastID types.ID  `json:"broadcast_id,omitempty"`
	DriverID    types.ID  `json:"driver_id,omitempty"`
	RiderID     types.ID  `json:"rider_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload,omitempty"`
}

// Key groups events of one route so ordered sinks keep them together.
func (e Event) Key() string {
	if e.RouteID != "" {
		return string(e.RouteID)
	}
	return string(e.RequestID)
}

// Publisher is fire-and-forget: implementations must not block the caller
// and must never report delivery failures back into a mutation.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
