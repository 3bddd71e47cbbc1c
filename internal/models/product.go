package models

import (
	"time"
)

// Product defaults.
const (
	DefaultValidDays       = 30
	DefaultProductCategory = "other"
)

// Product is a catalog item redeemable for points.
type Product struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Price         int       `gorm:"not null" json:"price"`
	Organization  string    `gorm:"size:255" json:"organization"`
	ValidDays     int       `gorm:"not null;default:30" json:"valid_days"`
	Quantity      int       `gorm:"not null;default:0" json:"quantity"`
	Category      string    `gorm:"size:64;not null;default:other;index" json:"category"`
	Icon          string    `gorm:"type:text" json:"icon"`
	AverageRating float64   `gorm:"-" json:"average_rating"`
	ReviewCount   int64     `gorm:"-" json:"review_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Product model.
func (Product) TableName() string {
	return "products"
}

// InStock reports whether at least one unit remains.
func (p *Product) InStock() bool {
	return p.Quantity > 0
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category    string
	InStockOnly bool
	Page        int
	PageSize    int
}
