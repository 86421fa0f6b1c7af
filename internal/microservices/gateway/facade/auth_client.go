package facade

import (
	"context"
	"encoding/json"
)

// AuthClient forwards auth commands over the command channel. Replies are
// passed through as raw JSON so the gateway never reshapes service answers.
type AuthClient struct {
	sender CommandSender
	queue  string
}

func NewAuthClient(sender CommandSender, queue string) *AuthClient {
	return &AuthClient{sender: sender, queue: queue}
}

func (c *AuthClient) Register(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.send(ctx, "register", payload)
}

func (c *AuthClient) Login(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.send(ctx, "login", payload)
}

func (c *AuthClient) Refresh(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.send(ctx, "refresh", payload)
}

func (c *AuthClient) FindAllUsers(ctx context.Context) (json.RawMessage, error) {
	return c.send(ctx, "find-all-users", struct{}{})
}

func (c *AuthClient) send(ctx context.Context, pattern string, payload any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.sender.Send(ctx, c.queue, pattern, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}
