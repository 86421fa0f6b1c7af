package tasks

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusReview     TaskStatus = "REVIEW"
	StatusDone       TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
	PriorityUrgent TaskPriority = "URGENT"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID          string       `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'TODO';index" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'MEDIUM';index" json:"priority"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	CreatedBy   string       `gorm:"type:uuid;not null;index" json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	Assignments []TaskAssignment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AssignedUserIDs flattens the assignment rows into the id list the API and
// the event payloads carry
func (t *Task) AssignedUserIDs() []string {
	ids := make([]string, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}

type TaskAssignment struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID string `gorm:"type:uuid;not null;uniqueIndex:idx_task_assignments_task_user" json:"taskId"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_task_assignments_task_user;index" json:"userId"`
}

func (TaskAssignment) TableName() string {
	return "task_assignments"
}

func (a *TaskAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type Comment struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    string    `gorm:"type:uuid;not null;index" json:"taskId"`
	UserID    string    `gorm:"type:uuid;not null" json:"userId"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
