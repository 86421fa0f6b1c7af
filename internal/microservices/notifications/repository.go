package notifications

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	CreateMany(ctx context.Context, notifications []*Notification) error
	FindByUser(ctx context.Context, userID string, page, size int, read *bool) ([]Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID string, notificationIDs []string) error
	MarkAllAsRead(ctx context.Context, userID string) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateMany(ctx context.Context, notifications []*Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(notifications).Error
}

func (r *notificationRepository) FindByUser(ctx context.Context, userID string, page, size int, read *bool) ([]Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID)
	if read != nil {
		query = query.Where("read = ?", *read)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []Notification
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND read = false", userID).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID string, notificationIDs []string) error {
	return r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND id IN ?", userID, notificationIDs).
		Update("read", true).Error
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ?", userID).
		Update("read", true).Error
}
