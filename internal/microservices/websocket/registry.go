package websocket

import (
	"log/slog"
	"sync"
)

// Registry is the live mapping of authenticated user to active connection.
// At most one connection per user is retained: a later connect from the
// same user supersedes the earlier one. All access goes through the mutex;
// connection lifecycle callbacks and delivery attempts race freely against
// each other.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client // userID -> client
	logger  *slog.Logger
}

// NewRegistry creates an empty connection registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Add upserts the mapping for the client's user and returns the displaced
// client when the user was already connected, so the caller can close the
// stale socket. Last connect wins.
func (r *Registry) Add(c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.clients[c.UserID]
	r.clients[c.UserID] = c
	if old != nil {
		r.logger.Info("connection superseded", "user_id", c.UserID, "old_client", old.ID, "new_client", c.ID)
	} else {
		r.logger.Info("client registered", "user_id", c.UserID, "client_id", c.ID)
	}
	return old
}

// Remove drops the mapping only while it still points at this exact
// connection. When the user reconnected before the old socket's close
// fired, the newer mapping stays untouched.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.clients[c.UserID]
	if !ok || current != c {
		return false
	}
	delete(r.clients, c.UserID)
	r.logger.Info("client removed", "user_id", c.UserID, "client_id", c.ID)
	return true
}

// Get returns the active connection for a user, if any
func (r *Registry) Get(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[userID]
	return c, ok
}

// All returns a snapshot of every connected client
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// Count returns the number of connected users
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
