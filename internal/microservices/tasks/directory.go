package tasks

import (
	"context"

	"taskhub/internal/broker"
	"taskhub/internal/shared"
)

// brokerUserDirectory resolves users by calling the auth service over the
// command channel
type brokerUserDirectory struct {
	client *broker.Client
	queue  string
}

func NewBrokerUserDirectory(client *broker.Client, authQueue string) UserDirectory {
	return &brokerUserDirectory{client: client, queue: authQueue}
}

func (d *brokerUserDirectory) FindByIDs(ctx context.Context, ids []string) ([]shared.User, error) {
	var users []shared.User
	payload := map[string][]string{"userIds": ids}
	if err := d.client.Send(ctx, d.queue, "find-users-by-ids", payload, &users); err != nil {
		return nil, err
	}
	return users, nil
}
