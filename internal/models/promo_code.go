package models

import (
	"time"
)

// PromoCodeLength is the number of characters in a generated code.
const PromoCodeLength = 12

// PromoCode is the voucher issued when a user redeems a product.
type PromoCode struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"uniqueIndex;size:32;not null" json:"code"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	ProductID    uint      `gorm:"not null;index" json:"product_id"`
	ProductTitle string    `gorm:"size:255;not null" json:"product_title"`
	Organization string    `gorm:"size:255" json:"organization"`
	Price        int       `gorm:"not null" json:"price"`
	CanReview    bool      `gorm:"not null;default:true" json:"can_review"`
	ExpiresAt    time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for PromoCode model.
func (PromoCode) TableName() string {
	return "promo_codes"
}

// IsExpired reports whether the code is past its expiry at now.
func (p *PromoCode) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
