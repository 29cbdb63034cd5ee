// README: Asynchronous event fan-out; a bounded queue drained by one background worker.
package notify

import (
	"context"
	"log/slog"
	"time"

	"campuspool/internal/logging"
	"campuspool/internal/observability"
)

// Sink delivers one event to an external system.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

type Notifier struct {
	queue   chan Event
	sinks   []Sink
	log     *slog.Logger
	timeout time.Duration
}

func NewNotifier(log *slog.Logger, queueSize int, sinks ...Sink) *Notifier {
	if log == nil {
		log = logging.Discard()
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Notifier{
		queue:   make(chan Event, queueSize),
		sinks:   sinks,
		log:     log,
		timeout: 5 * time.Second,
	}
}

// Publish enqueues e, dropping it when the queue is full.
func (n *Notifier) Publish(_ context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	select {
	case n.queue <- e:
	default:
		observability.EventsDropped.Inc()
		n.log.Warn("event queue full; dropping event", "type", e.Type, "route_id", e.RouteID, "request_id", e.RequestID)
	}
}

// Run delivers queued events until ctx is cancelled, then flushes what is already queued.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			n.drain()
			return
		case e := <-n.queue:
			n.deliver(context.Background(), e)
		}
	}
}

func (n *Notifier) drain() {
	for {
		select {
		case e := <-n.queue:
			n.deliver(context.Background(), e)
		default:
			return
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, e Event) {
	for _, s := range n.sinks {
		dctx, cancel := context.WithTimeout(ctx, n.timeout)
		err := s.Deliver(dctx, e)
		cancel()
		if err != nil {
			observability.EventsPublished.WithLabelValues(s.Name(), "error").Inc()
			n.log.Error("event delivery failed", "sink", s.Name(), "type", e.Type, "err", err)
			continue
		}
		observability.EventsPublished.WithLabelValues(s.Name(), "ok").Inc()
	}
}
