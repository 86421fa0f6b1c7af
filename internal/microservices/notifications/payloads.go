package notifications

import "time"

// Closed payload schemas per event topic. The consumer decodes exactly
// these shapes instead of trusting loosely typed fields; anything that does
// not parse is dropped with a log line.

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

// Realtime push payloads, one shape per socket event

type TaskCreatedPush struct {
	Message string `json:"message"`
	TaskID  string `json:"taskId"`
}

type TaskUpdatedPush struct {
	Message   string `json:"message"`
	TaskID    string `json:"taskId"`
	NewStatus string `json:"newStatus"`
}

type CommentCreatedPush struct {
	Message   string `json:"message"`
	TaskID    string `json:"taskId"`
	CommentID string `json:"commentId"`
}
