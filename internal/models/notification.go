package models

import (
	"time"
)

// NotificationType enumerates user-facing events.
type NotificationType string

const (
	NotificationSubmissionApproved  NotificationType = "submission_approved"
	NotificationSubmissionDeclined  NotificationType = "submission_declined"
	NotificationAchievementUnlocked NotificationType = "achievement_unlocked"
	NotificationLevelUp             NotificationType = "level_up"
	NotificationNewProduct          NotificationType = "new_product"
	// NotificationPromoExpiring is reserved; nothing emits it yet.
	NotificationPromoExpiring NotificationType = "promo_expiring"
)

// Notification is a message shown to one user.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notifications_user_created,priority:1" json:"user_id"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Read      bool             `gorm:"column:is_read;not null;default:false;index" json:"read"`
	CreatedAt time.Time        `gorm:"index:idx_notifications_user_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for Notification model.
func (Notification) TableName() string {
	return "notifications"
}
