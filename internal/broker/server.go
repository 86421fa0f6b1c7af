package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	amqp "github.com/rabbitmq/amqp091-go"
)

// HandlerFunc processes one command payload and returns the result to reply
// with, or an error. RemoteError values cross the wire verbatim; any other
// error is flattened to a 500 envelope.
type HandlerFunc func(ctx context.Context, data json.RawMessage) (any, error)

// EventHandlerFunc processes one event delivery. Returning an error leaves
// the message unacknowledged so the broker redelivers it; handlers see each
// event at least once and must tolerate duplicates.
type EventHandlerFunc func(ctx context.Context, data json.RawMessage) error

// prefetch bounds how many deliveries a consumer processes concurrently
const prefetch = 16

// Server is the service side of the messaging layer: it consumes one command
// queue, dispatching by pattern, and any number of event subscriptions, each
// on its own channel and goroutine so one blocked handler cannot stall the
// others.
type Server struct {
	conn     *amqp.Connection
	queue    string
	exchange string
	logger   *slog.Logger
	handlers map[string]HandlerFunc
}

type ServerOption func(*Server)

func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithEventsExchange(name string) ServerOption {
	return func(s *Server) {
		s.exchange = name
	}
}

// NewServer connects to the broker and declares the service's command queue
// and the events exchange.
func NewServer(url, queue string, opts ...ServerOption) (*Server, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	server := &Server{
		conn:     conn,
		queue:    queue,
		exchange: "taskhub.events",
		logger:   slog.Default(),
		handlers: make(map[string]HandlerFunc),
	}
	for _, opt := range opts {
		opt(server)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if err := ch.ExchangeDeclare(server.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return server, nil
}

// Handle registers the handler for one command pattern. Must be called
// before Start; the dispatch table is read-only afterwards.
func (s *Server) Handle(pattern string, fn HandlerFunc) {
	s.handlers[pattern] = fn
}

// Start consumes the command queue until ctx is cancelled or the connection
// drops. Each delivery runs in its own goroutine, bounded by the prefetch
// window.
func (s *Server) Start(ctx context.Context) error {
	ch, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", s.queue, err)
	}

	s.logger.Info("command server started", "queue", s.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrUnavailable
			}
			go s.handleCommand(ctx, ch, d)
		}
	}
}

func (s *Server) handleCommand(ctx context.Context, ch *amqp.Channel, d amqp.Delivery) {
	var env Envelope
	var reply Reply

	if err := json.Unmarshal(d.Body, &env); err != nil {
		s.logger.Error("malformed command envelope", "queue", s.queue, "error", err)
		reply = Reply{Err: &ErrorEnvelope{
			StatusCode: http.StatusBadRequest,
			Message:    MessageString("malformed command envelope"),
			Kind:       http.StatusText(http.StatusBadRequest),
		}}
	} else {
		reply = s.dispatch(ctx, env)
	}

	if d.ReplyTo != "" {
		body, err := json.Marshal(reply)
		if err != nil {
			s.logger.Error("failed to marshal reply", "pattern", env.Pattern, "error", err)
			body, _ = json.Marshal(Reply{Err: errorEnvelopeFor(err)})
		}
		err = ch.PublishWithContext(ctx, "", d.ReplyTo, false, false, amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: d.CorrelationId,
			Body:          body,
		})
		if err != nil {
			s.logger.Error("failed to publish reply", "pattern", env.Pattern, "error", err)
		}
	}

	// commands are acked regardless of handler outcome: the error already
	// travelled back in the reply, a redelivery would only repeat it
	if err := d.Ack(false); err != nil {
		s.logger.Error("failed to ack command", "pattern", env.Pattern, "error", err)
	}
}

// dispatch runs the handler registered for the envelope's pattern and folds
// the outcome into a Reply.
func (s *Server) dispatch(ctx context.Context, env Envelope) Reply {
	fn, ok := s.handlers[env.Pattern]
	if !ok {
		s.logger.Warn("no handler for pattern", "pattern", env.Pattern, "queue", s.queue)
		return Reply{Err: &ErrorEnvelope{
			StatusCode: http.StatusNotFound,
			Message:    MessageString(fmt.Sprintf("no handler for command %q", env.Pattern)),
			Kind:       http.StatusText(http.StatusNotFound),
		}}
	}

	result, err := fn(ctx, env.Data)
	if err != nil {
		return Reply{Err: errorEnvelopeFor(err)}
	}

	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to marshal result", "pattern", env.Pattern, "error", err)
		return Reply{Err: errorEnvelopeFor(err)}
	}
	return Reply{Result: data}
}

// Subscribe binds a durable queue for the consumer group to one event topic
// and processes deliveries on a dedicated channel and goroutine. A handler
// error nacks the message: requeued once, dropped if it already came back.
func (s *Server) Subscribe(ctx context.Context, topic, group string, fn EventHandlerFunc) error {
	ch, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	queueName := fmt.Sprintf("%s.%s", group, topic)
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	if err := ch.QueueBind(queueName, topic, s.exchange, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("failed to bind %s to %s: %w", queueName, topic, err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to consume %s: %w", queueName, err)
	}

	go func() {
		defer ch.Close()
		s.logger.Info("subscribed", "topic", topic, "queue", queueName)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					s.logger.Warn("subscription closed", "topic", topic)
					return
				}
				s.handleEvent(ctx, topic, d, fn)
			}
		}
	}()

	return nil
}

func (s *Server) handleEvent(ctx context.Context, topic string, d amqp.Delivery, fn EventHandlerFunc) {
	var env Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		// a malformed event will never parse on redelivery, drop it
		s.logger.Error("malformed event envelope, dropping", "topic", topic, "error", err)
		if err := d.Ack(false); err != nil {
			s.logger.Error("failed to ack event", "topic", topic, "error", err)
		}
		return
	}

	if err := fn(ctx, env.Data); err != nil {
		requeue := !d.Redelivered
		s.logger.Error("event handler failed", "topic", topic, "requeue", requeue, "error", err)
		if err := d.Nack(false, requeue); err != nil {
			s.logger.Error("failed to nack event", "topic", topic, "error", err)
		}
		return
	}

	if err := d.Ack(false); err != nil {
		s.logger.Error("failed to ack event", "topic", topic, "error", err)
	}
}

// Close shuts the broker connection down.
func (s *Server) Close() error {
	return s.conn.Close()
}
