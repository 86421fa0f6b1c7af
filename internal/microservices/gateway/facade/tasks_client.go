package facade

import (
	"context"
	"encoding/json"
)

// TasksClient forwards task commands over the command channel
type TasksClient struct {
	sender CommandSender
	queue  string
}

func NewTasksClient(sender CommandSender, queue string) *TasksClient {
	return &TasksClient{sender: sender, queue: queue}
}

func (c *TasksClient) Create(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.send(ctx, "create-task", payload)
}

func (c *TasksClient) FindAll(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.send(ctx, "find-all-tasks", payload)
}

func (c *TasksClient) FindOne(ctx context.Context, taskID string) (json.RawMessage, error) {
	return c.send(ctx, "find-task", map[string]string{"taskId": taskID})
}

func (c *TasksClient) Update(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.send(ctx, "update-task", payload)
}

func (c *TasksClient) Delete(ctx context.Context, taskID, userID string) (json.RawMessage, error) {
	return c.send(ctx, "delete-task", map[string]string{"taskId": taskID, "userId": userID})
}

func (c *TasksClient) CreateComment(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.send(ctx, "create-comment", payload)
}

func (c *TasksClient) FindComments(ctx context.Context, taskID string) (json.RawMessage, error) {
	return c.send(ctx, "find-comments", map[string]string{"taskId": taskID})
}

func (c *TasksClient) FindHistory(ctx context.Context, taskID string) (json.RawMessage, error) {
	return c.send(ctx, "find-task-history", map[string]string{"taskId": taskID})
}

func (c *TasksClient) send(ctx context.Context, pattern string, payload any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.sender.Send(ctx, c.queue, pattern, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}
