package websocket

import (
	"fmt"
	"log/slog"
	"testing"
)

func newTestClientFor(userID, id string) *Client {
	// no live conn: registry and gateway tests only touch the send queue
	return &Client{
		ID:     id,
		UserID: userID,
		send:   make(chan []byte, SendBufferSize),
		logger: slog.Default(),
	}
}

func TestRegistry_AddAndRemove(t *testing.T) {
	r := NewRegistry(slog.Default())

	c := newTestClientFor("user1", "conn1")
	if old := r.Add(c); old != nil {
		t.Errorf("expected no displaced client, got %s", old.ID)
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 client, got %d", r.Count())
	}

	got, ok := r.Get("user1")
	if !ok || got.ID != "conn1" {
		t.Error("expected to find conn1 for user1")
	}

	if !r.Remove(c) {
		t.Error("expected removal of own mapping to succeed")
	}
	if r.Count() != 0 {
		t.Errorf("expected 0 clients after removal, got %d", r.Count())
	}
}

func TestRegistry_LastConnectWins(t *testing.T) {
	r := NewRegistry(slog.Default())

	first := newTestClientFor("user1", "conn1")
	second := newTestClientFor("user1", "conn2")

	r.Add(first)
	old := r.Add(second)

	if old != first {
		t.Fatal("expected the first connection to be displaced")
	}
	got, _ := r.Get("user1")
	if got != second {
		t.Error("registry should point at the newest connection")
	}
}

func TestRegistry_StaleDisconnectDoesNotEvictNewMapping(t *testing.T) {
	// the user reconnects before the old socket's close handler runs;
	// the old close must not remove the new mapping
	r := NewRegistry(slog.Default())

	old := newTestClientFor("user1", "conn1")
	fresh := newTestClientFor("user1", "conn2")

	r.Add(old)
	r.Add(fresh)

	if r.Remove(old) {
		t.Error("stale connection must not evict the new mapping")
	}

	got, ok := r.Get("user1")
	if !ok || got != fresh {
		t.Error("expected user1 to still map to the new connection")
	}
}

func TestRegistry_All(t *testing.T) {
	r := NewRegistry(slog.Default())

	r.Add(newTestClientFor("user1", "c1"))
	r.Add(newTestClientFor("user2", "c2"))

	if got := len(r.All()); got != 2 {
		t.Errorf("expected 2 clients, got %d", got)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry(slog.Default())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(i int) {
			user := fmt.Sprintf("user%d", i)
			c := newTestClientFor(user, fmt.Sprintf("conn%d", i))
			r.Add(c)
			r.Get(user)
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if r.Count() != 10 {
		t.Errorf("expected 10 clients, got %d", r.Count())
	}
}
