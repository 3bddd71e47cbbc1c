package repository

import (
	"fmt"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// ReviewRepository handles product review database operations.
type ReviewRepository struct {
	db *DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// RatingSummary is the aggregate rating of a product.
type RatingSummary struct {
	ProductID uint
	Average   float64
	Count     int64
}

// Create stores a review.
func (r *ReviewRepository) Create(review *models.Review) error {
	if err := r.db.Create(review).Error; err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// ExistsForPromo reports whether a promo code has already been reviewed.
func (r *ReviewRepository) ExistsForPromo(promoID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Review{}).Where("promo_code_id = ?", promoID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check review: %w", err)
	}
	return count > 0, nil
}

// ListByProduct retrieves a product's reviews newest first.
func (r *ReviewRepository) ListByProduct(productID uint) ([]models.Review, error) {
	var reviews []models.Review
	if err := r.db.Where("product_id = ?", productID).Order("created_at DESC, id DESC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews for product %d: %w", productID, err)
	}
	return reviews, nil
}

// Summaries returns rating aggregates keyed by product id.
func (r *ReviewRepository) Summaries(productIDs []uint) (map[uint]RatingSummary, error) {
	out := make(map[uint]RatingSummary, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var rows []RatingSummary
	err := r.db.Model(&models.Review{}).
		Select("product_id, AVG(rating) AS average, COUNT(*) AS count").
		Where("product_id IN ?", productIDs).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	for _, row := range rows {
		out[row.ProductID] = row
	}
	return out, nil
}
