package models

import (
	"time"
)

// Submission statuses.
const (
	SubmissionPending  = "pending"
	SubmissionApproved = "approved"
	SubmissionDeclined = "declined"
)

// Admin actions on a submission.
const (
	ActionApprove = "approve"
	ActionDecline = "decline"
)

// Submission is a plant-growth evidence record awaiting or past moderation.
type Submission struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	User          *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	PlantType     string     `gorm:"size:100;not null;default:Tree;index" json:"plant_type"`
	Description   string     `gorm:"type:text" json:"description"`
	Latitude      *float64   `json:"lat,omitempty"`
	Longitude     *float64   `json:"lng,omitempty"`
	LocationText  string     `gorm:"size:255" json:"location_text,omitempty"`
	BeforeMedia   string     `gorm:"type:text" json:"before_media"`
	AfterMedia    string     `gorm:"type:text" json:"after_media"`
	Status        string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	AdminComment  *string    `gorm:"type:text" json:"admin_comment"`
	AdminID       *uint      `json:"admin_id"`
	PointsAwarded int        `gorm:"not null;default:0" json:"points_awarded"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Submission model.
func (Submission) TableName() string {
	return "submissions"
}

// HasCoordinates reports whether the submission carries a lat/lng pair.
func (s *Submission) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// IsTerminal reports whether moderation already decided the submission.
func (s *Submission) IsTerminal() bool {
	return s.Status == SubmissionApproved || s.Status == SubmissionDeclined
}

// MapPlanting is an approved submission rendered on the public map.
type MapPlanting struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	PlantType string    `json:"plant_type"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}
