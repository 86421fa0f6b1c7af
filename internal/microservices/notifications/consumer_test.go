package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway records pushes and reports configured online users
type fakeGateway struct {
	online map[string]bool
	pushes []gatewayPush
}

type gatewayPush struct {
	userID string
	event  string
	data   any
}

func (f *fakeGateway) SendToUser(userID, event string, data any) bool {
	f.pushes = append(f.pushes, gatewayPush{userID: userID, event: event, data: data})
	return f.online[userID]
}

func newTestConsumer(repo Repository, gateway *fakeGateway) *Consumer {
	svc := NewService(repo, nil, slog.Default())
	return NewConsumer(svc, gateway, slog.Default())
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestConsumerTaskCreated_PushesToStoredRecipientsOnly(t *testing.T) {
	repo := &fakeRepository{}
	gateway := &fakeGateway{online: map[string]bool{"bob": true}}
	consumer := newTestConsumer(repo, gateway)

	payload := mustMarshal(t, TaskCreatedEvent{
		TaskID:          "t1",
		Title:           "ship it",
		CreatedBy:       "alice",
		AssignedUserIDs: []string{"alice", "bob"},
	})

	require.NoError(t, consumer.handleTaskCreated(context.Background(), payload))

	require.Len(t, gateway.pushes, 1)
	assert.Equal(t, "bob", gateway.pushes[0].userID)
	assert.Equal(t, "task:created", gateway.pushes[0].event)
	require.Len(t, repo.created, 1)
}

func TestConsumerTaskCreated_OfflineRecipientStillGetsRow(t *testing.T) {
	repo := &fakeRepository{}
	gateway := &fakeGateway{online: map[string]bool{}} // nobody connected
	consumer := newTestConsumer(repo, gateway)

	payload := mustMarshal(t, TaskCreatedEvent{
		TaskID:          "t1",
		Title:           "ship it",
		CreatedBy:       "alice",
		AssignedUserIDs: []string{"bob"},
	})

	require.NoError(t, consumer.handleTaskCreated(context.Background(), payload))

	// the row exists regardless of the failed push
	require.Len(t, repo.created, 1)
	assert.Equal(t, "bob", repo.created[0].UserID)
}

func TestConsumerTaskUpdated_NoStatusChangeNoPush(t *testing.T) {
	repo := &fakeRepository{}
	gateway := &fakeGateway{online: map[string]bool{"bob": true}}
	consumer := newTestConsumer(repo, gateway)

	payload := mustMarshal(t, TaskUpdatedEvent{
		TaskID:          "t1",
		Title:           "ship it",
		UpdatedBy:       "alice",
		OldStatus:       "TODO",
		NewStatus:       "TODO",
		StatusChanged:   false,
		AssignedUserIDs: []string{"bob"},
	})

	require.NoError(t, consumer.handleTaskUpdated(context.Background(), payload))
	assert.Empty(t, gateway.pushes)
	assert.Empty(t, repo.created)
}

func TestConsumerCommentCreated_PushShape(t *testing.T) {
	repo := &fakeRepository{}
	gateway := &fakeGateway{online: map[string]bool{"carol": true}}
	consumer := newTestConsumer(repo, gateway)

	payload := mustMarshal(t, CommentCreatedEvent{
		CommentID:       "c1",
		TaskID:          "t1",
		TaskTitle:       "ship it",
		Content:         "lgtm",
		UserID:          "bob",
		AssignedUserIDs: []string{"bob", "carol"},
		CreatedBy:       "carol",
	})

	require.NoError(t, consumer.handleCommentCreated(context.Background(), payload))

	require.Len(t, gateway.pushes, 1)
	assert.Equal(t, "comment:new", gateway.pushes[0].event)
	push, ok := gateway.pushes[0].data.(CommentCreatedPush)
	require.True(t, ok)
	assert.Equal(t, "c1", push.CommentID)
	assert.Equal(t, "t1", push.TaskID)
}

func TestConsumerMalformedPayloadIsDropped(t *testing.T) {
	repo := &fakeRepository{}
	gateway := &fakeGateway{}
	consumer := newTestConsumer(repo, gateway)

	// nil error means ack: a payload that cannot parse is not redelivered
	require.NoError(t, consumer.handleTaskCreated(context.Background(), json.RawMessage(`{broken`)))
	assert.Empty(t, repo.created)
	assert.Empty(t, gateway.pushes)
}

func TestConsumerStorageFailurePropagates(t *testing.T) {
	repo := &fakeRepository{err: errors.New("db down")}
	gateway := &fakeGateway{}
	consumer := newTestConsumer(repo, gateway)

	payload := mustMarshal(t, TaskCreatedEvent{
		TaskID:          "t1",
		Title:           "ship it",
		CreatedBy:       "alice",
		AssignedUserIDs: []string{"bob"},
	})

	// the error travels up so the delivery is nacked and retried
	err := consumer.handleTaskCreated(context.Background(), payload)
	require.Error(t, err)
	assert.Empty(t, gateway.pushes)
}
