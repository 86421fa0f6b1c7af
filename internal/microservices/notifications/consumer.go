package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"taskhub/internal/broker"
	ws "taskhub/internal/microservices/websocket"
)

// group names the consumer group; queues are declared per topic under it
const group = "notifications"

// DeliveryGateway is the realtime push surface the consumer fans out to.
// Implemented by websocket.Gateway.
type DeliveryGateway interface {
	SendToUser(userID, event string, data any) bool
}

// EventSubscriber registers an at-least-once handler for one topic.
// Implemented by broker.Server.
type EventSubscriber interface {
	Subscribe(ctx context.Context, topic, group string, fn broker.EventHandlerFunc) error
}

// Consumer wires the event topics to the notification service and pushes a
// realtime message per stored row. Storage always happens; the push is best
// effort and an offline recipient is not an error. A handler error leaves
// the message unacked, so it comes back and produces duplicate rows, which
// is the documented at-least-once behavior.
type Consumer struct {
	svc     *Service
	gateway DeliveryGateway
	logger  *slog.Logger
}

func NewConsumer(svc *Service, gateway DeliveryGateway, logger *slog.Logger) *Consumer {
	return &Consumer{svc: svc, gateway: gateway, logger: logger}
}

// Register subscribes every topic the consumer handles
func (c *Consumer) Register(ctx context.Context, sub EventSubscriber) error {
	if err := sub.Subscribe(ctx, TopicTaskCreated, group, c.handleTaskCreated); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicTaskCreated, err)
	}
	if err := sub.Subscribe(ctx, TopicTaskUpdated, group, c.handleTaskUpdated); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicTaskUpdated, err)
	}
	if err := sub.Subscribe(ctx, TopicCommentCreated, group, c.handleCommentCreated); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicCommentCreated, err)
	}
	return nil
}

func (c *Consumer) handleTaskCreated(ctx context.Context, data json.RawMessage) error {
	var event TaskCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// a payload that does not parse now will not parse on redelivery
		c.logger.Error("dropping malformed task.created event", "error", err)
		return nil
	}

	rows, err := c.svc.HandleTaskCreated(ctx, event)
	if err != nil {
		return err
	}
	for _, row := range rows {
		c.gateway.SendToUser(row.UserID, ws.EventTaskCreated, TaskCreatedPush{
			Message: fmt.Sprintf("New task assigned: %q", event.Title),
			TaskID:  event.TaskID,
		})
	}
	return nil
}

func (c *Consumer) handleTaskUpdated(ctx context.Context, data json.RawMessage) error {
	var event TaskUpdatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Error("dropping malformed task.updated event", "error", err)
		return nil
	}

	rows, err := c.svc.HandleTaskUpdated(ctx, event)
	if err != nil {
		return err
	}
	for _, row := range rows {
		c.gateway.SendToUser(row.UserID, ws.EventTaskUpdated, TaskUpdatedPush{
			Message:   fmt.Sprintf("Task %q status changed to %s", event.Title, event.NewStatus),
			TaskID:    event.TaskID,
			NewStatus: event.NewStatus,
		})
	}
	return nil
}

func (c *Consumer) handleCommentCreated(ctx context.Context, data json.RawMessage) error {
	var event CommentCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Error("dropping malformed task.comment.created event", "error", err)
		return nil
	}

	rows, err := c.svc.HandleCommentCreated(ctx, event)
	if err != nil {
		return err
	}
	for _, row := range rows {
		c.gateway.SendToUser(row.UserID, ws.EventCommentNew, CommentCreatedPush{
			Message:   fmt.Sprintf("New comment on task %q", event.TaskTitle),
			TaskID:    event.TaskID,
			CommentID: event.CommentID,
		})
	}
	return nil
}
