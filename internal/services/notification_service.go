package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/models"
	apperrors "github.com/tiles-dev/pfm-sim/pkg/errors"
)

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationService reads and manages alert notifications. Rows are created
// exclusively by the alert evaluator; this service only lists, marks and
// deletes them.
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{db: db}, nil
}

// List returns the user's notifications ordered by recency.
func (s *NotificationService) List(ctx context.Context, userID uint, input ListNotificationsInput) ([]models.Notification, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID)
	if input.UnreadOnly {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("notification service: count notifications: %w", err)
	}

	var rows []models.Notification
	err := query.
		Order("created_at DESC").
		Limit(clampLimit(input.Limit, 25, 100)).
		Offset(maxInt(0, input.Offset)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("notification service: list notifications: %w", err)
	}
	return rows, total, nil
}

// Get loads one notification scoped to the user.
func (s *NotificationService) Get(ctx context.Context, userID, notificationID uint) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}
	return &notification, nil
}

// MarkRead sets the read flag on a notification.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	notification, err := s.Get(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if notification.Read {
		return notification, nil
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Model(notification).
		Updates(map[string]any{"read": true, "read_at": now}).Error
	if err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}
	notification.Read = true
	notification.ReadAt = &now
	return notification, nil
}

// Delete soft-deletes a notification owned by the user.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// PurgeOlderThan hard-deletes notifications past the retention horizon. Used
// by the maintenance runner, not exposed over HTTP.
func (s *NotificationService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: purge notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
