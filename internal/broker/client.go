package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const replyToQueue = "amq.rabbitmq.reply-to"

// Client is the caller side of the messaging layer: request/reply commands
// against a service queue and fire-and-forget events into the topic
// exchange. Safe for concurrent use; each in-flight call owns its reply
// channel, so a slow downstream only blocks its own caller.
type Client struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]chan Reply
	closed  bool
}

type ClientOption func(*Client)

// WithTimeout sets the default per-call reply deadline. A call never waits
// unbounded: absent a caller deadline this one applies.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithExchange sets the topic exchange events are published to.
func WithExchange(name string) ClientOption {
	return func(c *Client) {
		c.exchange = name
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Dial connects to the broker, declares the events exchange and starts the
// reply consumer on the direct reply-to pseudo queue.
func Dial(url string, opts ...ClientOption) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	client := &Client{
		conn:     conn,
		ch:       ch,
		exchange: "taskhub.events",
		timeout:  10 * time.Second,
		logger:   slog.Default(),
		pending:  make(map[string]chan Reply),
	}
	for _, opt := range opts {
		opt(client)
	}

	if err := ch.ExchangeDeclare(client.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Direct reply-to must be consumed with autoAck on the publishing channel
	replies, err := ch.Consume(replyToQueue, "", true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to consume replies: %w", err)
	}
	go client.replyLoop(replies)

	return client, nil
}

func (c *Client) replyLoop(replies <-chan amqp.Delivery) {
	for d := range replies {
		c.dispatch(d.CorrelationId, d.Body)
	}
	// channel closed: connection is gone, wake every waiting caller
	c.failPending()
}

// dispatch routes one reply body to the caller waiting on the correlation
// id. Unknown ids are late replies after a timeout and are dropped.
func (c *Client) dispatch(correlationID string, body []byte) {
	c.mu.Lock()
	ch, ok := c.pending[correlationID]
	if ok {
		delete(c.pending, correlationID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("dropping uncorrelated reply", "correlation_id", correlationID)
		return
	}

	var reply Reply
	if err := json.Unmarshal(body, &reply); err != nil {
		c.logger.Error("failed to decode reply", "correlation_id", correlationID, "error", err)
		reply = Reply{Err: errorEnvelopeFor(err)}
	}
	ch <- reply
}

func (c *Client) failPending() {
	c.mu.Lock()
	c.closed = true
	waiters := c.pending
	c.pending = make(map[string]chan Reply)
	c.mu.Unlock()

	for id, ch := range waiters {
		close(ch)
		c.logger.Warn("failing in-flight call, connection lost", "correlation_id", id)
	}
}

func (c *Client) register(correlationID string) (chan Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrUnavailable
	}
	ch := make(chan Reply, 1)
	c.pending[correlationID] = ch
	return ch, nil
}

func (c *Client) unregister(correlationID string) {
	c.mu.Lock()
	delete(c.pending, correlationID)
	c.mu.Unlock()
}

// Send issues one command against a service queue and waits for its single
// correlated reply. The reply result is unmarshaled into out when out is
// non-nil. Exactly one of the taxonomy errors comes back on failure:
// RemoteError (verbatim from the handler), ErrTimeout or ErrUnavailable.
func (c *Client) Send(ctx context.Context, queue, pattern string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", pattern, err)
	}

	env := NewEnvelope(uuid.NewString(), pattern, data)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	replyCh, err := c.register(env.ID)
	if err != nil {
		return err
	}
	defer c.unregister(env.ID)

	// every call gets a hard deadline, never wait forever
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	err = c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: env.ID,
		ReplyTo:       replyToQueue,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	select {
	case reply, ok := <-replyCh:
		if !ok {
			return ErrUnavailable
		}
		if reply.Err != nil {
			return &RemoteError{
				StatusCode: reply.Err.StatusCode,
				Message:    reply.Err.Message,
				Kind:       reply.Err.Kind,
			}
		}
		if out != nil && len(reply.Result) > 0 {
			if err := json.Unmarshal(reply.Result, out); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", pattern, err)
			}
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s to %s", ErrTimeout, pattern, queue)
		}
		return ctx.Err()
	}
}

// Emit publishes one event to the topic exchange and returns once the
// broker has accepted it, not once anyone consumed it. Events are durable;
// per-publisher per-topic ordering follows publish order.
func (c *Client) Emit(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}

	env := NewEnvelope(uuid.NewString(), topic, data)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = c.ch.PublishWithContext(ctx, c.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close shuts the connection down and fails any in-flight calls.
func (c *Client) Close() error {
	return c.conn.Close()
}
