package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// AchievementRepository handles achievement-related database operations.
type AchievementRepository struct {
	db *DB
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(db *DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Upsert inserts catalog entries or refreshes their definition by id.
func (r *AchievementRepository) Upsert(achievements []models.Achievement) error {
	if len(achievements) == 0 {
		return nil
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"icon", "title", "description", "condition_type", "condition_value", "points", "sort_order"}),
	}).Create(&achievements).Error
	if err != nil {
		return fmt.Errorf("failed to upsert achievements: %w", err)
	}
	return nil
}

// GetAll retrieves the catalog in display order.
func (r *AchievementRepository) GetAll() ([]models.Achievement, error) {
	var achievements []models.Achievement
	if err := r.db.Order("sort_order ASC, id ASC").Find(&achievements).Error; err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}

// GetUserAchievements retrieves the achievements earned by a user, most recent first.
func (r *AchievementRepository) GetUserAchievements(userID uint) ([]models.UserAchievement, error) {
	var earned []models.UserAchievement
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Achievement").
		Order("earned_at DESC").
		Find(&earned).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user achievements: %w", err)
	}
	return earned, nil
}

// EarnedIDs returns the set of achievement ids a user holds.
func (r *AchievementRepository) EarnedIDs(userID uint) (map[string]bool, error) {
	var ids []string
	if err := r.db.Model(&models.UserAchievement{}).Where("user_id = ?", userID).Pluck("achievement_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list earned achievement ids: %w", err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// HasUserEarned checks if a user has earned a specific achievement.
func (r *AchievementRepository) HasUserEarned(userID uint, achievementID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserAchievement{}).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check user achievement: %w", err)
	}
	return count > 0, nil
}

// Award records an achievement for a user.
// It returns false without error when the pair already exists.
func (r *AchievementRepository) Award(userID uint, achievementID string, earnedAt time.Time) (bool, error) {
	exists, err := r.HasUserEarned(userID, achievementID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		EarnedAt:      earnedAt,
	})
	if result.Error != nil {
		return false, fmt.Errorf("failed to award achievement: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountHolders returns how many users earned each achievement.
func (r *AchievementRepository) CountHolders() (map[string]int64, error) {
	var rows []struct {
		AchievementID string
		Count         int64
	}
	err := r.db.Model(&models.UserAchievement{}).
		Select("achievement_id, COUNT(*) AS count").
		Group("achievement_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count achievement holders: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.AchievementID] = row.Count
	}
	return counts, nil
}
