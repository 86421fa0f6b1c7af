package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"taskhub/internal/shared"
)

// Service turns domain events into stored notification rows and answers the
// pull-side commands. Rows are written unconditionally per recipient;
// realtime delivery is layered on top by the consumer and never influences
// what gets stored. Redelivered events produce duplicate rows; accepted,
// not silently deduplicated.
type Service struct {
	repo   Repository
	cache  UnreadCounter
	logger *slog.Logger
}

func NewService(repo Repository, cache UnreadCounter, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ListResult is the get-notifications reply shape
type ListResult struct {
	Data []Notification `json:"data"`
	Meta ListMeta       `json:"meta"`
}

type ListMeta struct {
	shared.PageMeta
	UnreadCount int64 `json:"unreadCount"`
}

// HandleTaskCreated stores one row per assignee, excluding the creator.
// Returns the created rows so the caller can attempt realtime delivery.
func (s *Service) HandleTaskCreated(ctx context.Context, event TaskCreatedEvent) ([]*Notification, error) {
	recipients := exclude(event.AssignedUserIDs, event.CreatedBy)
	if len(recipients) == 0 {
		return nil, nil
	}

	rows := make([]*Notification, 0, len(recipients))
	for _, userID := range recipients {
		rows = append(rows, &Notification{
			UserID:  userID,
			Type:    TypeTaskAssigned,
			Title:   "New task assigned",
			Message: fmt.Sprintf("You were assigned to task: %q", event.Title),
			Metadata: Metadata{
				"taskId":    event.TaskID,
				"createdBy": event.CreatedBy,
				"createdAt": event.CreatedAt,
			},
		})
	}

	if err := s.createAndInvalidate(ctx, rows); err != nil {
		return nil, err
	}
	s.logger.Info("notifications created", "type", TypeTaskAssigned, "task_id", event.TaskID, "recipients", len(rows))
	return rows, nil
}

// HandleTaskUpdated stores rows only for real status transitions; a no-op
// update notifies nobody.
func (s *Service) HandleTaskUpdated(ctx context.Context, event TaskUpdatedEvent) ([]*Notification, error) {
	if !event.StatusChanged {
		return nil, nil
	}
	recipients := exclude(event.AssignedUserIDs, event.UpdatedBy)
	if len(recipients) == 0 {
		return nil, nil
	}

	rows := make([]*Notification, 0, len(recipients))
	for _, userID := range recipients {
		rows = append(rows, &Notification{
			UserID:  userID,
			Type:    TypeStatusChanged,
			Title:   "Task status changed",
			Message: fmt.Sprintf("Task %q moved from %s to %s", event.Title, event.OldStatus, event.NewStatus),
			Metadata: Metadata{
				"taskId":    event.TaskID,
				"updatedBy": event.UpdatedBy,
				"oldStatus": event.OldStatus,
				"newStatus": event.NewStatus,
				"updatedAt": event.UpdatedAt,
			},
		})
	}

	if err := s.createAndInvalidate(ctx, rows); err != nil {
		return nil, err
	}
	s.logger.Info("notifications created", "type", TypeStatusChanged, "task_id", event.TaskID, "recipients", len(rows))
	return rows, nil
}

// HandleCommentCreated notifies the assignees and the task creator, minus
// the comment author.
func (s *Service) HandleCommentCreated(ctx context.Context, event CommentCreatedEvent) ([]*Notification, error) {
	audience := event.AssignedUserIDs
	if event.CreatedBy != "" {
		audience = appendUnique(audience, event.CreatedBy)
	}
	recipients := exclude(audience, event.UserID)
	if len(recipients) == 0 {
		return nil, nil
	}

	rows := make([]*Notification, 0, len(recipients))
	for _, userID := range recipients {
		rows = append(rows, &Notification{
			UserID:  userID,
			Type:    TypeCommentCreated,
			Title:   "New comment",
			Message: fmt.Sprintf("New comment on task %q: %s", event.TaskTitle, truncate(event.Content, 100)),
			Metadata: Metadata{
				"commentId": event.CommentID,
				"taskId":    event.TaskID,
				"userId":    event.UserID,
				"createdAt": event.CreatedAt,
			},
		})
	}

	if err := s.createAndInvalidate(ctx, rows); err != nil {
		return nil, err
	}
	s.logger.Info("notifications created", "type", TypeCommentCreated, "task_id", event.TaskID, "recipients", len(rows))
	return rows, nil
}

func (s *Service) createAndInvalidate(ctx context.Context, rows []*Notification) error {
	if err := s.repo.CreateMany(ctx, rows); err != nil {
		return fmt.Errorf("failed to store notifications: %w", err)
	}
	if s.cache != nil {
		for _, row := range rows {
			s.cache.Invalidate(ctx, row.UserID)
		}
	}
	return nil
}

// FindByUser returns one page of a user's notifications plus the unread
// badge count.
func (s *Service) FindByUser(ctx context.Context, userID string, page, size int, read *bool) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10
	}

	rows, total, err := s.repo.FindByUser(ctx, userID, page, size, read)
	if err != nil {
		return nil, err
	}
	unread, err := s.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	if rows == nil {
		rows = []Notification{}
	}
	return &ListResult{
		Data: rows,
		Meta: ListMeta{
			PageMeta:    shared.NewPageMeta(page, size, total),
			UnreadCount: unread,
		},
	}, nil
}

// CountUnread serves the badge count, cache first.
func (s *Service) CountUnread(ctx context.Context, userID string) (int64, error) {
	if s.cache != nil {
		if count, ok := s.cache.Get(ctx, userID); ok {
			return count, nil
		}
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, userID, count)
	}
	return count, nil
}

// MarkAsRead marks the given notifications, or every unread one when no ids
// are passed.
func (s *Service) MarkAsRead(ctx context.Context, userID string, notificationIDs []string) error {
	var err error
	if len(notificationIDs) > 0 {
		err = s.repo.MarkAsRead(ctx, userID, notificationIDs)
	} else {
		err = s.repo.MarkAllAsRead(ctx, userID)
	}
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
	return nil
}

func exclude(userIDs []string, excluded string) []string {
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id != excluded && id != "" {
			out = append(out, id)
		}
	}
	return out
}

func appendUnique(userIDs []string, userID string) []string {
	for _, id := range userIDs {
		if id == userID {
			return userIDs
		}
	}
	return append(append([]string{}, userIDs...), userID)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
