package models

import (
	"time"
)

// Achievement condition types.
const (
	ConditionPlantings  = "plantings"
	ConditionTrust      = "trust"
	ConditionSpent      = "spent"
	ConditionPlantTypes = "plant-types"
)

// Achievement is a one-time milestone from the fixed catalog.
type Achievement struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Icon           string    `gorm:"size:32" json:"icon" yaml:"icon"`
	Title          string    `gorm:"size:255;not null" json:"title" yaml:"title"`
	Description    string    `gorm:"type:text" json:"description" yaml:"description"`
	ConditionType  string    `gorm:"size:32;not null" json:"condition_type" yaml:"condition_type"`
	ConditionValue int       `gorm:"not null" json:"condition_value" yaml:"condition_value"`
	Points         int       `gorm:"not null;default:0" json:"points" yaml:"points"`
	SortOrder      int       `gorm:"not null;default:0" json:"-" yaml:"-"`
	CreatedAt      time.Time `json:"-" yaml:"-"`
}

// TableName specifies the table name for Achievement model.
func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement records that a user earned an achievement.
type UserAchievement struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UserID        uint         `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID string       `gorm:"size:64;not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	Achievement   *Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
	EarnedAt      time.Time    `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for UserAchievement model.
func (UserAchievement) TableName() string {
	return "user_achievements"
}

// AchievementStats are the per-user aggregates achievement conditions are checked against.
type AchievementStats struct {
	Plantings   int `json:"plantings"`
	PlantTypes  int `json:"plant_types"`
	TrustRating int `json:"trust_rating"`
	Spent       int `json:"spent"`
}

// Value returns the aggregate matching a condition type.
func (s AchievementStats) Value(conditionType string) (int, bool) {
	switch conditionType {
	case ConditionPlantings:
		return s.Plantings, true
	case ConditionPlantTypes:
		return s.PlantTypes, true
	case ConditionTrust:
		return s.TrustRating, true
	case ConditionSpent:
		return s.Spent, true
	default:
		return 0, false
	}
}
