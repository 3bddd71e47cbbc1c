// Package models defines the persisted domain models of the rewards system.
package models

import (
	"time"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Progression defaults for newly registered users.
const (
	DefaultTrustRating = 5
	MaxTrustRating     = 10
	DefaultCity        = "Unknown"
)

// User is a registered planter or administrator together with its progression state.
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Name              string     `gorm:"size:255;not null" json:"name"`
	Phone             string     `gorm:"uniqueIndex;not null;size:32" json:"phone"`
	PasswordHash      string     `gorm:"column:password_hash;not null" json:"-"`
	Role              string     `gorm:"size:16;not null;default:user;index" json:"role"`
	City              string     `gorm:"size:100;not null;default:Unknown;index" json:"city"`
	Points            int        `gorm:"not null;default:0" json:"points"`
	TrustRating       int        `gorm:"not null;default:5" json:"trust_rating"`
	DeclinedCount     int        `gorm:"not null;default:0" json:"declined_count"`
	Level             int        `gorm:"not null;default:1" json:"level"`
	Experience        int        `gorm:"not null;default:0" json:"experience"`
	CurrentStreak     int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak     int        `gorm:"not null;default:0" json:"longest_streak"`
	LastActivityDate  *time.Time `json:"last_activity_date"`
	LastTrustRecovery time.Time  `json:"last_trust_recovery"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NewUser returns a user with progression defaults applied.
func NewUser(name, phone, passwordHash, city string, now time.Time) *User {
	if city == "" {
		city = DefaultCity
	}
	return &User{
		Name:              name,
		Phone:             phone,
		PasswordHash:      passwordHash,
		Role:              RoleUser,
		City:              city,
		TrustRating:       DefaultTrustRating,
		Level:             1,
		LastTrustRecovery: now,
	}
}

// PublicProfile is the subset of a user visible to other users.
type PublicProfile struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	City          string `json:"city"`
	Role          string `json:"role"`
	Level         int    `json:"level"`
	LevelName     string `json:"level_name"`
	Points        int    `json:"points"`
	TrustRating   int    `json:"trust_rating"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}
