package tasks

import (
	"context"
	"encoding/json"

	"taskhub/internal/broker"
)

type findAllPayload struct {
	Status     TaskStatus   `json:"status"`
	Priority   TaskPriority `json:"priority"`
	AssignedTo string       `json:"assignedTo"`
	Search     string       `json:"search"`
	Page       int          `json:"page"`
	Size       int          `json:"size"`
}

type findTaskPayload struct {
	TaskID string `json:"taskId"`
}

type deleteTaskPayload struct {
	TaskID string `json:"taskId"`
	UserID string `json:"userId"`
}

// RegisterRPC binds every task command pattern to the service
func RegisterRPC(srv *broker.Server, svc *Service) {
	srv.Handle("create-task", func(ctx context.Context, data json.RawMessage) (any, error) {
		var input CreateTaskInput
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.Create(ctx, input)
	})

	srv.Handle("find-all-tasks", func(ctx context.Context, data json.RawMessage) (any, error) {
		var p findAllPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.FindAll(ctx, TaskFilter{
			Status:     p.Status,
			Priority:   p.Priority,
			AssignedTo: p.AssignedTo,
			Search:     p.Search,
			Page:       p.Page,
			Size:       p.Size,
		})
	})

	srv.Handle("find-task", func(ctx context.Context, data json.RawMessage) (any, error) {
		var p findTaskPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.FindByID(ctx, p.TaskID)
	})

	srv.Handle("update-task", func(ctx context.Context, data json.RawMessage) (any, error) {
		var input UpdateTaskInput
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.Update(ctx, input)
	})

	srv.Handle("delete-task", func(ctx context.Context, data json.RawMessage) (any, error) {
		var p deleteTaskPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		if err := svc.Delete(ctx, p.TaskID, p.UserID); err != nil {
			return nil, err
		}
		return map[string]string{"message": "Task deleted"}, nil
	})

	srv.Handle("create-comment", func(ctx context.Context, data json.RawMessage) (any, error) {
		var input CreateCommentInput
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.CreateComment(ctx, input)
	})

	srv.Handle("find-comments", func(ctx context.Context, data json.RawMessage) (any, error) {
		var p findTaskPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.FindComments(ctx, p.TaskID)
	})

	srv.Handle("find-task-history", func(ctx context.Context, data json.RawMessage) (any, error) {
		var p findTaskPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.FindHistory(ctx, p.TaskID)
	})
}
