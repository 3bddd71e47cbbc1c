package repository

import (
	"fmt"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// NotificationRepository handles notification database operations.
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores one notification.
func (r *NotificationRepository) Create(n *models.Notification) error {
	if err := r.db.Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// CreateBatch stores many notifications.
func (r *NotificationRepository) CreateBatch(ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(ns, 200).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's notifications newest first.
func (r *NotificationRepository) ListByUser(userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := r.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ns []models.Notification
	if err := query.Order("created_at DESC, id DESC").Find(&ns).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return ns, nil
}

// CountUnread returns the number of unread notifications of a user.
func (r *NotificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification of a user as read. It reports whether a row matched.
func (r *NotificationRepository) MarkRead(userID, id uint) (bool, error) {
	result := r.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkAllRead marks every notification of a user as read and returns how many changed.
func (r *NotificationRepository) MarkAllRead(userID uint) (int64, error) {
	result := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes one notification of a user. It reports whether a row matched.
func (r *NotificationRepository) Delete(userID, id uint) (bool, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete notification: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
