// README: Notifier and sink tests.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

type captureSink struct {
	mu     sync.Mutex
	name   string
	err    error
	events []Event
	block  chan struct{}
}

func (s *captureSink) Name() string { return s.name }

func (s *captureSink) Deliver(_ context.Context, e Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestNotifierPublishNeverBlocksWhenQueueFull(t *testing.T) {
	sink := &captureSink{name: "capture"}
	n := NewNotifier(nil, 2, sink)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			n.Publish(context.Background(), Event{Type: RoutePublished})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full queue")
	}
	if got := len(n.queue); got != 2 {
		t.Fatalf("expected 2 queued events, got %d", got)
	}
}

func TestNotifierRunDeliversToEverySinkAndFlushesOnShutdown(t *testing.T) {
	ok := &captureSink{name: "ok"}
	failing := &captureSink{name: "failing", err: errors.New("broker down")}
	n := NewNotifier(nil, 16, failing, ok)

	for i := 0; i < 5; i++ {
		n.Publish(context.Background(), Event{Type: RequestCreated})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Run(ctx)

	if ok.count() != 5 || failing.count() != 5 {
		t.Fatalf("expected 5 deliveries per sink, got ok=%d failing=%d", ok.count(), failing.count())
	}
}

func TestNotifierStampsOccurredAt(t *testing.T) {
	sink := &captureSink{name: "capture"}
	n := NewNotifier(nil, 1, sink)
	n.Publish(context.Background(), Event{Type: RouteCancelled})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Run(ctx)
	if sink.events[0].OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to be set")
	}
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSinkKeysByRoute(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSink{writer: w}
	err := s.Deliver(context.Background(), Event{Type: RequestAccepted, RouteID: "r1", RequestID: "q1"})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "r1" {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}
	var got Event
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != RequestAccepted || got.RequestID != "q1" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

type fakeChannel struct {
	closed bool
	keys   []string
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, _ amqp.Publishing) error {
	c.keys = append(c.keys, key)
	return nil
}

func (c *fakeChannel) IsClosed() bool { return c.closed }
func (c *fakeChannel) Close() error   { c.closed = true; return nil }

type fakeAMQPConn struct{ closed bool }

func (c *fakeAMQPConn) IsClosed() bool { return c.closed }
func (c *fakeAMQPConn) Close() error   { c.closed = true; return nil }

func TestAMQPSinkRoutesByEventTypeAndRedials(t *testing.T) {
	first := &fakeChannel{}
	second := &fakeChannel{}
	oldConn := &fakeAMQPConn{}
	newConn := &fakeAMQPConn{}
	s := &AMQPSink{exchange: "campuspool.events", conn: oldConn, ch: first}
	s.dial = func() (amqpConn, amqpChannel, error) { return newConn, second, nil }

	if err := s.Deliver(context.Background(), Event{Type: BroadcastCreated}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	first.closed = true
	if err := s.Deliver(context.Background(), Event{Type: RouteCancelled}); err != nil {
		t.Fatalf("deliver after close: %v", err)
	}
	if len(first.keys) != 1 || first.keys[0] != "broadcast.created" {
		t.Fatalf("first channel keys %v", first.keys)
	}
	if len(second.keys) != 1 || second.keys[0] != "route.cancelled" {
		t.Fatalf("second channel keys %v", second.keys)
	}
	if !oldConn.closed {
		t.Fatal("redial left the previous connection open")
	}
	if newConn.closed || s.conn != newConn {
		t.Fatal("sink does not hold the redialed connection")
	}
	if err := s.Close(); err != nil || !newConn.closed || !second.closed {
		t.Fatalf("close: %v", err)
	}
}

func TestFCMMessageTopics(t *testing.T) {
	cases := []struct {
		event Event
		topic string
	}{
		{Event{Type: BroadcastCreated, RouteID: "r1"}, RidersTopic},
		{Event{Type: RequestCreated, DriverID: "d1"}, "driver_d1"},
		{Event{Type: RequestAccepted, RiderID: "u1"}, "rider_u1"},
		{Event{Type: RequestRejected, RiderID: "u2", Reason: "route_cancelled"}, "rider_u2"},
	}
	for _, tc := range cases {
		msg := fcmMessage(tc.event)
		if msg == nil || msg.Topic != tc.topic {
			t.Errorf("%s: got %+v, want topic %s", tc.event.Type, msg, tc.topic)
		}
	}
}

type fakeSender struct {
	sent []*messaging.Message
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	return "msg-1", nil
}

func TestFCMSinkSkipsUnknownEvents(t *testing.T) {
	sender := &fakeSender{}
	s := &FCMSink{client: sender}
	if err := s.Deliver(context.Background(), Event{Type: "route.unknown"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := s.Deliver(context.Background(), Event{Type: RequestRejected, RiderID: "u1", Reason: "capacity_exhausted"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Data["reason"] != "capacity_exhausted" {
		t.Fatalf("unexpected messages %+v", sender.sent)
	}
}

type fakeConn struct {
	mu      sync.Mutex
	written []any
	fail    bool
	closed  bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) Close() error                     { c.closed = true; return nil }

func TestHubDeliverFiltersPrivateEvents(t *testing.T) {
	h := NewHub(nil)
	rider := &fakeConn{}
	other := &fakeConn{}
	broken := &fakeConn{fail: true}
	h.add("u1", rider)
	h.add("u2", other)
	h.add("u3", broken)

	_ = h.Deliver(context.Background(), Event{Type: BroadcastCreated, RouteID: "r1"})
	_ = h.Deliver(context.Background(), Event{Type: RequestAccepted, RiderID: "u1", DriverID: "d1"})

	if len(rider.written) != 2 {
		t.Fatalf("rider expected 2 events, got %d", len(rider.written))
	}
	if len(other.written) != 1 {
		t.Fatalf("other rider expected only the public event, got %d", len(other.written))
	}
	if !broken.closed || h.Clients() != 2 {
		t.Fatalf("expected broken client to be dropped, clients=%d", h.Clients())
	}
}
