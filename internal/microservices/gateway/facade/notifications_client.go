package facade

import (
	"context"
	"encoding/json"
)

// NotificationsClient forwards notification commands over the command channel
type NotificationsClient struct {
	sender CommandSender
	queue  string
}

func NewNotificationsClient(sender CommandSender, queue string) *NotificationsClient {
	return &NotificationsClient{sender: sender, queue: queue}
}

func (c *NotificationsClient) Find(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.send(ctx, "get-notifications", payload)
}

func (c *NotificationsClient) CountUnread(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.send(ctx, "count-unread", map[string]string{"userId": userID})
}

func (c *NotificationsClient) MarkAsRead(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.send(ctx, "mark-as-read", payload)
}

func (c *NotificationsClient) send(ctx context.Context, pattern string, payload any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.sender.Send(ctx, c.queue, pattern, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}
