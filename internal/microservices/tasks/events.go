package tasks

import (
	"context"
	"log/slog"
	"time"
)

// Event topics published on the shared topic exchange
const (
	TopicTaskCreated    = "task.created"
	TopicTaskUpdated    = "task.updated"
	TopicCommentCreated = "task.comment.created"
)

type TaskCreatedEvent struct {
	TaskID          string    `json:"taskId"`
	Title           string    `json:"title"`
	CreatedBy       string    `json:"createdBy"`
	AssignedUserIDs []string  `json:"assignedUserIds"`
	CreatedAt       time.Time `json:"createdAt"`
}

type TaskUpdatedEvent struct {
	TaskID          string    `json:"taskId"`
	Title           string    `json:"title"`
	UpdatedBy       string    `json:"updatedBy"`
	OldStatus       string    `json:"oldStatus"`
	NewStatus       string    `json:"newStatus"`
	StatusChanged   bool      `json:"statusChanged"`
	AssignedUserIDs []string  `json:"assignedUserIds"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type CommentCreatedEvent struct {
	CommentID       string    `json:"commentId"`
	TaskID          string    `json:"taskId"`
	TaskTitle       string    `json:"taskTitle"`
	Content         string    `json:"content"`
	UserID          string    `json:"userId"`
	AssignedUserIDs []string  `json:"assignedUserIds"`
	CreatedBy       string    `json:"createdBy"`
	CreatedAt       time.Time `json:"createdAt"`
}

// EventPublisher is the publish surface of broker.Client
type EventPublisher interface {
	Emit(ctx context.Context, topic string, payload any) error
}

// Emitter publishes domain events after the row is committed. Publishing is
// best effort: a broker outage loses the event but never the write, so a
// failure here is logged and swallowed. A crash between commit and publish
// likewise drops the event; consumers recover through the pull APIs.
type Emitter struct {
	publisher EventPublisher
	logger    *slog.Logger
}

func NewEmitter(publisher EventPublisher, logger *slog.Logger) *Emitter {
	return &Emitter{publisher: publisher, logger: logger}
}

func (e *Emitter) TaskCreated(ctx context.Context, task *Task) {
	e.emit(ctx, TopicTaskCreated, TaskCreatedEvent{
		TaskID:          task.ID,
		Title:           task.Title,
		CreatedBy:       task.CreatedBy,
		AssignedUserIDs: task.AssignedUserIDs(),
		CreatedAt:       task.CreatedAt,
	})
}

// TaskUpdated carries statusChanged computed from the pre-update status so
// consumers never have to guess whether a transition happened
func (e *Emitter) TaskUpdated(ctx context.Context, task *Task, updatedBy string, oldStatus TaskStatus) {
	e.emit(ctx, TopicTaskUpdated, TaskUpdatedEvent{
		TaskID:          task.ID,
		Title:           task.Title,
		UpdatedBy:       updatedBy,
		OldStatus:       string(oldStatus),
		NewStatus:       string(task.Status),
		StatusChanged:   oldStatus != task.Status,
		AssignedUserIDs: task.AssignedUserIDs(),
		UpdatedAt:       task.UpdatedAt,
	})
}

func (e *Emitter) CommentCreated(ctx context.Context, comment *Comment, task *Task) {
	e.emit(ctx, TopicCommentCreated, CommentCreatedEvent{
		CommentID:       comment.ID,
		TaskID:          task.ID,
		TaskTitle:       task.Title,
		Content:         comment.Content,
		UserID:          comment.UserID,
		AssignedUserIDs: task.AssignedUserIDs(),
		CreatedBy:       task.CreatedBy,
		CreatedAt:       comment.CreatedAt,
	})
}

func (e *Emitter) emit(ctx context.Context, topic string, payload any) {
	if err := e.publisher.Emit(ctx, topic, payload); err != nil {
		e.logger.Error("failed to publish event", "topic", topic, "error", err)
	}
}
