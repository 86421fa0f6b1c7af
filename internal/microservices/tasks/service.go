package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskhub/internal/broker"
	"taskhub/internal/shared"
)

// UserDirectory resolves user ids to profiles, backed by the auth service
// over the command channel
type UserDirectory interface {
	FindByIDs(ctx context.Context, ids []string) ([]shared.User, error)
}

type CreateTaskInput struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Priority        TaskPriority `json:"priority"`
	Deadline        *time.Time   `json:"deadline"`
	AssignedUserIDs []string     `json:"assignedUserIds"`
	CreatedBy       string       `json:"createdBy"`
}

type UpdateTaskInput struct {
	TaskID          string        `json:"taskId"`
	UpdatedBy       string        `json:"updatedBy"`
	Title           *string       `json:"title"`
	Description     *string       `json:"description"`
	Status          *TaskStatus   `json:"status"`
	Priority        *TaskPriority `json:"priority"`
	Deadline        *time.Time    `json:"deadline"`
	AssignedUserIDs []string      `json:"assignedUserIds"`
}

type CreateCommentInput struct {
	TaskID  string `json:"taskId"`
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

// TaskResponse is a task plus its flattened assignee list
type TaskResponse struct {
	Task
	AssignedUserIDs []string `json:"assignedUserIds"`
}

type TaskListResult struct {
	Data []TaskResponse  `json:"data"`
	Meta shared.PageMeta `json:"meta"`
}

// CommentResponse enriches a comment with the author's profile when the
// auth service can resolve it
type CommentResponse struct {
	Comment
	Username string `json:"username"`
}

type Service struct {
	repo    Repository
	history HistoryRepository
	users   UserDirectory
	emitter *Emitter
	logger  *slog.Logger
}

func NewService(repo Repository, history HistoryRepository, users UserDirectory, emitter *Emitter, logger *slog.Logger) *Service {
	return &Service{repo: repo, history: history, users: users, emitter: emitter, logger: logger}
}

func (s *Service) Create(ctx context.Context, input CreateTaskInput) (*TaskResponse, error) {
	if input.Title == "" {
		return nil, broker.NewBadRequest("Title is required")
	}
	if input.Priority == "" {
		input.Priority = PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, broker.NewBadRequest(fmt.Sprintf("Invalid priority: %s", input.Priority))
	}

	task := &Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      StatusTodo,
		Priority:    input.Priority,
		Deadline:    input.Deadline,
		CreatedBy:   input.CreatedBy,
	}

	if err := s.repo.Create(ctx, task, dedupe(input.AssignedUserIDs)); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.logger.Info("task created", "task_id", task.ID, "created_by", task.CreatedBy)

	// the row is committed; the event is published after and best effort
	s.emitter.TaskCreated(ctx, task)

	return toResponse(task), nil
}

func (s *Service) FindAll(ctx context.Context, filter TaskFilter) (*TaskListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Size < 1 || filter.Size > 100 {
		filter.Size = 10
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, broker.NewBadRequest(fmt.Sprintf("Invalid status: %s", filter.Status))
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, broker.NewBadRequest(fmt.Sprintf("Invalid priority: %s", filter.Priority))
	}

	rows, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	data := make([]TaskResponse, 0, len(rows))
	for i := range rows {
		data = append(data, *toResponse(&rows[i]))
	}
	return &TaskListResult{
		Data: data,
		Meta: shared.NewPageMeta(filter.Page, filter.Size, total),
	}, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (*TaskResponse, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(task), nil
}

func (s *Service) Update(ctx context.Context, input UpdateTaskInput) (*TaskResponse, error) {
	task, err := s.loadTask(ctx, input.TaskID)
	if err != nil {
		return nil, err
	}

	oldStatus := task.Status

	if input.Title != nil {
		if *input.Title == "" {
			return nil, broker.NewBadRequest("Title cannot be empty")
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, broker.NewBadRequest(fmt.Sprintf("Invalid status: %s", *input.Status))
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, broker.NewBadRequest(fmt.Sprintf("Invalid priority: %s", *input.Priority))
		}
		task.Priority = *input.Priority
	}
	if input.Deadline != nil {
		task.Deadline = input.Deadline
	}

	var assigneeIDs []string
	if input.AssignedUserIDs != nil {
		assigneeIDs = dedupe(input.AssignedUserIDs)
	}

	if err := s.repo.Update(ctx, task, assigneeIDs); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if task.Status != oldStatus {
		s.recordHistory(ctx, &HistoryEntry{
			TaskID:   task.ID,
			UserID:   input.UpdatedBy,
			Field:    "status",
			OldValue: string(oldStatus),
			NewValue: string(task.Status),
		})
	}
	s.logger.Info("task updated", "task_id", task.ID, "updated_by", input.UpdatedBy,
		"status_changed", task.Status != oldStatus)

	s.emitter.TaskUpdated(ctx, task, input.UpdatedBy, oldStatus)

	return toResponse(task), nil
}

// Delete removes a task; only its creator may do so
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return err
	}
	if task.CreatedBy != userID {
		return broker.NewForbidden("Only the task creator can delete it")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.logger.Info("task deleted", "task_id", id, "deleted_by", userID)
	return nil
}

func (s *Service) CreateComment(ctx context.Context, input CreateCommentInput) (*Comment, error) {
	if input.Content == "" {
		return nil, broker.NewBadRequest("Content is required")
	}
	task, err := s.loadTask(ctx, input.TaskID)
	if err != nil {
		return nil, err
	}

	comment := &Comment{
		TaskID:  input.TaskID,
		UserID:  input.UserID,
		Content: input.Content,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	s.logger.Info("comment created", "comment_id", comment.ID, "task_id", task.ID)

	s.emitter.CommentCreated(ctx, comment, task)

	return comment, nil
}

// FindComments lists a task's comments with author usernames resolved
// through the auth service; a directory failure degrades to placeholder
// names instead of failing the whole call
func (s *Service) FindComments(ctx context.Context, taskID string) ([]CommentResponse, error) {
	if _, err := s.loadTask(ctx, taskID); err != nil {
		return nil, err
	}
	rows, err := s.repo.FindComments(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	names := s.resolveUsernames(ctx, rows)
	out := make([]CommentResponse, 0, len(rows))
	for _, row := range rows {
		username, ok := names[row.UserID]
		if !ok {
			username = "unknown user"
		}
		out = append(out, CommentResponse{Comment: row, Username: username})
	}
	return out, nil
}

func (s *Service) FindHistory(ctx context.Context, taskID string) ([]HistoryEntry, error) {
	if _, err := s.loadTask(ctx, taskID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}
	return entries, nil
}

func (s *Service) loadTask(ctx context.Context, id string) (*Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err == ErrTaskNotFound {
		return nil, broker.NewNotFound("Task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

func (s *Service) recordHistory(ctx context.Context, entry *HistoryEntry) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, entry); err != nil {
		// the audit trail is secondary to the update itself
		s.logger.Error("failed to record task history", "task_id", entry.TaskID, "error", err)
	}
}

func (s *Service) resolveUsernames(ctx context.Context, rows []Comment) map[string]string {
	if s.users == nil || len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.UserID]; ok {
			continue
		}
		seen[row.UserID] = struct{}{}
		ids = append(ids, row.UserID)
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve comment authors", "error", err)
		return nil
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names
}

func toResponse(task *Task) *TaskResponse {
	return &TaskResponse{Task: *task, AssignedUserIDs: task.AssignedUserIDs()}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
