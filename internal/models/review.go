package models

import (
	"time"
)

// Review rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a user's rating of a product, tied to the promo code that redeemed it.
type Review struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PromoCodeID uint      `gorm:"uniqueIndex;not null" json:"promo_code_id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	UserName    string    `gorm:"size:255" json:"user_name"`
	Rating      int       `gorm:"not null" json:"rating"`
	Comment     string    `gorm:"type:text" json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for Review model.
func (Review) TableName() string {
	return "reviews"
}
