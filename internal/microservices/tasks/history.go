package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryEntry is one recorded field transition on a task
type HistoryEntry struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	UserID    string    `json:"userId"`
	Field     string    `json:"field"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	CreatedAt time.Time `json:"createdAt"`
}

type HistoryRepository interface {
	Record(ctx context.Context, entry *HistoryEntry) error
	ListByTask(ctx context.Context, taskID string) ([]HistoryEntry, error)
}

// HistoryPostgresRepo handles PostgreSQL operations for the task audit trail.
// It writes append-only rows outside gorm so a slow history insert never
// holds the task transaction open.
type HistoryPostgresRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryPostgresRepo(pool *pgxpool.Pool) *HistoryPostgresRepo {
	return &HistoryPostgresRepo{pool: pool}
}

// EnsureSchema creates the history table if it is missing
func (r *HistoryPostgresRepo) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS task_history (
			id UUID PRIMARY KEY,
			task_id UUID NOT NULL,
			user_id UUID NOT NULL,
			field TEXT NOT NULL,
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_task_history_task_id ON task_history (task_id, created_at);
	`

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure task_history schema: %w", err)
	}
	return nil
}

func (r *HistoryPostgresRepo) Record(ctx context.Context, entry *HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO task_history (id, task_id, user_id, field, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.TaskID,
		entry.UserID,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record task history: %w", err)
	}
	return nil
}

func (r *HistoryPostgresRepo) ListByTask(ctx context.Context, taskID string) ([]HistoryEntry, error) {
	query := `
		SELECT id, task_id, user_id, field, old_value, new_value, created_at
		FROM task_history
		WHERE task_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		err := rows.Scan(&e.ID, &e.TaskID, &e.UserID, &e.Field, &e.OldValue, &e.NewValue, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read task history rows: %w", err)
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}
