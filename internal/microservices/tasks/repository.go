package tasks

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// TaskFilter narrows FindAll; zero values mean no constraint
type TaskFilter struct {
	Status     TaskStatus
	Priority   TaskPriority
	AssignedTo string
	Search     string
	Page       int
	Size       int
}

type Repository interface {
	Create(ctx context.Context, task *Task, assigneeIDs []string) error
	FindAll(ctx context.Context, filter TaskFilter) ([]Task, int64, error)
	FindByID(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, task *Task, assigneeIDs []string) error
	Delete(ctx context.Context, id string) error

	CreateComment(ctx context.Context, comment *Comment) error
	FindComments(ctx context.Context, taskID string) ([]Comment, error)
}

var ErrTaskNotFound = errors.New("task not found")

type taskRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &taskRepository{db: db}
}

// Create stores the task and its assignment rows in one transaction so a
// task.created event is only ever emitted for fully persisted state
func (r *taskRepository) Create(ctx context.Context, task *Task, assigneeIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return replaceAssignments(tx, task, assigneeIDs)
	})
}

func (r *taskRepository) FindAll(ctx context.Context, filter TaskFilter) ([]Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&Task{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.AssignedTo != "" {
		query = query.Where("id IN (?)",
			r.db.Model(&TaskAssignment{}).Select("task_id").Where("user_id = ?", filter.AssignedTo))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Task
	err := query.Preload("Assignments").
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Size).
		Limit(filter.Size).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *taskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	var task Task
	err := r.db.WithContext(ctx).Preload("Assignments").First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Update saves the task and replaces its assignment set atomically
func (r *taskRepository) Update(ctx context.Context, task *Task, assigneeIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(task).Error; err != nil {
			return err
		}
		if assigneeIDs == nil {
			return nil
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&TaskAssignment{}).Error; err != nil {
			return err
		}
		return replaceAssignments(tx, task, assigneeIDs)
	})
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) CreateComment(ctx context.Context, comment *Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *taskRepository) FindComments(ctx context.Context, taskID string) ([]Comment, error) {
	var rows []Comment
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func replaceAssignments(tx *gorm.DB, task *Task, assigneeIDs []string) error {
	task.Assignments = task.Assignments[:0]
	for _, userID := range assigneeIDs {
		if userID == "" {
			continue
		}
		assignment := TaskAssignment{TaskID: task.ID, UserID: userID}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
		task.Assignments = append(task.Assignments, assignment)
	}
	return nil
}
