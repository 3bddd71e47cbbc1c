// Package notifications emits and manages user-facing notifications.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	prommetrics "github.com/ecoplant/plant-rewards/internal/metrics"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

// DefaultListLimit caps listings when the caller does not pass a limit.
const DefaultListLimit = 50

// NotificationRepository interface for notification persistence.
type NotificationRepository interface {
	Create(n *models.Notification) error
	CreateBatch(ns []models.Notification) error
	ListByUser(userID uint, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(userID uint) (int64, error)
	MarkRead(userID, id uint) (bool, error)
	MarkAllRead(userID uint) (int64, error)
	Delete(userID, id uint) (bool, error)
}

// UserRepository interface for broadcast recipients.
type UserRepository interface {
	ListIDsByRole(role string) ([]uint, error)
}

// Service appends notifications and serves the inbox endpoints.
type Service struct {
	repo     NotificationRepository
	userRepo UserRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates a new notification service.
func NewService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(repo, userRepo, log)
}

// NewServiceWithInterfaces creates a new notification service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(repo NotificationRepository, userRepo UserRepository, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		userRepo: userRepo,
		log:      log,
		now:      time.Now,
	}
}

// Notify appends one unread notification. Failures are logged and counted,
// never returned, so the triggering state change stands.
func (s *Service) Notify(ctx context.Context, userID uint, notificationType models.NotificationType, title, message string) {
	n := &models.Notification{
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(n); err != nil {
		prommetrics.RecordNotification(string(notificationType), "failed")
		s.log.Error().
			Err(err).
			Uint("user_id", userID).
			Str("type", string(notificationType)).
			Msg("Failed to create notification")
		return
	}
	prommetrics.RecordNotification(string(notificationType), "sent")
}

// Broadcast notifies every user holding role. Returns the number of recipients.
func (s *Service) Broadcast(ctx context.Context, role string, notificationType models.NotificationType, title, message string) int {
	ids, err := s.userRepo.ListIDsByRole(role)
	if err != nil {
		prommetrics.RecordNotification(string(notificationType), "failed")
		s.log.Error().Err(err).Str("role", role).Msg("Failed to list broadcast recipients")
		return 0
	}

	now := s.now()
	batch := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, models.Notification{
			UserID:    id,
			Type:      notificationType,
			Title:     title,
			Message:   message,
			CreatedAt: now,
		})
	}

	if err := s.repo.CreateBatch(batch); err != nil {
		prommetrics.RecordNotification(string(notificationType), "failed")
		s.log.Error().Err(err).Int("recipients", len(batch)).Msg("Failed to broadcast notification")
		return 0
	}

	prommetrics.RecordNotification(string(notificationType), "sent")
	s.log.Debug().Str("type", string(notificationType)).Int("recipients", len(batch)).Msg("Broadcast notification")
	return len(batch)
}

// SubmissionApproved notifies the owner of an approval.
func (s *Service) SubmissionApproved(ctx context.Context, sub *models.Submission) {
	s.Notify(ctx, sub.UserID, models.NotificationSubmissionApproved,
		"Submission approved",
		fmt.Sprintf("Your planting %q was approved. You earned %d points.", sub.Title, sub.PointsAwarded))
}

// SubmissionDeclined notifies the owner of a decline, including the admin comment.
func (s *Service) SubmissionDeclined(ctx context.Context, sub *models.Submission) {
	msg := fmt.Sprintf("Your planting %q was declined.", sub.Title)
	if sub.AdminComment != nil && *sub.AdminComment != "" {
		msg += " Reason: " + *sub.AdminComment
	}
	s.Notify(ctx, sub.UserID, models.NotificationSubmissionDeclined, "Submission declined", msg)
}

// AchievementUnlocked notifies a user of a new achievement.
func (s *Service) AchievementUnlocked(ctx context.Context, userID uint, a models.Achievement) {
	s.Notify(ctx, userID, models.NotificationAchievementUnlocked,
		"Achievement unlocked: "+a.Title,
		fmt.Sprintf("%s %s. Bonus: +%d points.", a.Icon, a.Description, a.Points))
}

// LevelUp notifies a user of a new level.
func (s *Service) LevelUp(ctx context.Context, userID uint, level int, levelName string, bonus int) {
	s.Notify(ctx, userID, models.NotificationLevelUp,
		fmt.Sprintf("Level %d reached", level),
		fmt.Sprintf("You are now a %s. Bonus: +%d points.", levelName, bonus))
}

// NewProduct tells every regular user about a catalog addition.
func (s *Service) NewProduct(ctx context.Context, p *models.Product) int {
	return s.Broadcast(ctx, models.RoleUser, models.NotificationNewProduct,
		"New reward available",
		fmt.Sprintf("%s is now available for %d points.", p.Title, p.Price))
}

// Inbox is a page of notifications plus the unread counter.
type Inbox struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

// List returns a user's notifications newest first.
func (s *Service) List(ctx context.Context, userID uint, unreadOnly bool, limit int) (*Inbox, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	list, err := s.repo.ListByUser(userID, unreadOnly, limit)
	if err != nil {
		return nil, apperror.Storage("list notifications", err)
	}
	unread, err := s.repo.CountUnread(userID)
	if err != nil {
		return nil, apperror.Storage("count notifications", err)
	}

	if list == nil {
		list = []models.Notification{}
	}
	return &Inbox{Notifications: list, UnreadCount: unread}, nil
}

// UnreadCount returns the unread counter.
func (s *Service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	count, err := s.repo.CountUnread(userID)
	if err != nil {
		return 0, apperror.Storage("count notifications", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications read.
func (s *Service) MarkRead(ctx context.Context, userID, id uint) error {
	ok, err := s.repo.MarkRead(userID, id)
	if err != nil {
		return apperror.Storage("mark notification read", err)
	}
	if !ok {
		return apperror.NotFound("notification", id)
	}
	return nil
}

// MarkAllRead marks every notification of the user read.
func (s *Service) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	n, err := s.repo.MarkAllRead(userID)
	if err != nil {
		return 0, apperror.Storage("mark notifications read", err)
	}
	return n, nil
}

// Delete removes one of the user's notifications.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	ok, err := s.repo.Delete(userID, id)
	if err != nil {
		return apperror.Storage("delete notification", err)
	}
	if !ok {
		return apperror.NotFound("notification", id)
	}
	return nil
}
