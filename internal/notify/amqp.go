// README: RabbitMQ sink; publishes to a durable topic exchange with the event type as routing key.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type amqpConn interface {
	IsClosed() bool
	Close() error
}

type AMQPSink struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn amqpConn
	ch   amqpChannel
	dial func() (amqpConn, amqpChannel, error)
}

func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	s := &AMQPSink{url: url, exchange: exchange}
	s.dial = s.connect
	conn, ch, err := s.dial()
	if err != nil {
		return nil, fmt.Errorf("amqp connect: %w", err)
	}
	s.conn, s.ch = conn, ch
	return s, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) connect() (amqpConn, amqpChannel, error) {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, ch, nil
}

func (s *AMQPSink) channel() (amqpChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil && !s.ch.IsClosed() {
		return s.ch, nil
	}
	if s.dial == nil {
		return nil, errors.New("amqp closed")
	}
	// The channel can die while its connection stays open; drop both before redialing.
	if s.conn != nil && !s.conn.IsClosed() {
		_ = s.conn.Close()
	}
	s.conn, s.ch = nil, nil
	conn, ch, err := s.dial()
	if err != nil {
		return nil, fmt.Errorf("amqp reconnect: %w", err)
	}
	s.conn, s.ch = conn, ch
	return ch, nil
}

func (s *AMQPSink) Deliver(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	ch, err := s.channel()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, s.exchange, string(e.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.OccurredAt,
		Body:         body,
	})
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dial = nil
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
