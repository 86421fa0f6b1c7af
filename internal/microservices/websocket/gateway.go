package websocket

import "log/slog"

// Gateway delivers named payloads to connected users. An offline recipient
// is a normal outcome, not a failure: the notification row already exists
// and the pull API covers the gap.
type Gateway struct {
	registry *Registry
	logger   *slog.Logger
}

func NewGateway(registry *Registry, logger *slog.Logger) *Gateway {
	return &Gateway{registry: registry, logger: logger}
}

// SendToUser delivers one event to the user's connection if present.
// Returns false when the user is offline or too far behind.
func (g *Gateway) SendToUser(userID, event string, data any) bool {
	client, ok := g.registry.Get(userID)
	if !ok {
		g.logger.Debug("recipient offline", "user_id", userID, "event", event)
		return false
	}

	frame, err := NewPushMessage(event, data).ToJSON()
	if err != nil {
		g.logger.Error("failed to marshal push message", "event", event, "error", err)
		return false
	}

	if !client.Send(frame) {
		return false
	}
	g.logger.Debug("event delivered", "user_id", userID, "event", event)
	return true
}

// Broadcast delivers one event to every connected user. Connections that
// join after the snapshot is taken are not included.
func (g *Gateway) Broadcast(event string, data any) {
	frame, err := NewPushMessage(event, data).ToJSON()
	if err != nil {
		g.logger.Error("failed to marshal push message", "event", event, "error", err)
		return
	}

	clients := g.registry.All()
	for _, client := range clients {
		client.Send(frame)
	}
	g.logger.Debug("broadcast sent", "event", event, "recipients", len(clients))
}
