package repository

import (
	"fmt"
	"time"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// PromoRepository handles promo code database operations.
type PromoRepository struct {
	db *DB
}

// NewPromoRepository creates a new promo code repository.
func NewPromoRepository(db *DB) *PromoRepository {
	return &PromoRepository{db: db}
}

// Create stores an issued promo code.
func (r *PromoRepository) Create(promo *models.PromoCode) error {
	if err := r.db.Create(promo).Error; err != nil {
		return fmt.Errorf("failed to create promo code: %w", err)
	}
	return nil
}

// ExistsByCode reports whether a code has already been issued.
func (r *PromoRepository) ExistsByCode(code string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.PromoCode{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check promo code: %w", err)
	}
	return count > 0, nil
}

// GetByID retrieves a promo code by ID.
func (r *PromoRepository) GetByID(id uint) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.First(&promo, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get promo code %d: %w", id, err)
	}
	return &promo, nil
}

// GetByIDForUpdate retrieves a promo code and locks the row until the transaction ends.
func (r *PromoRepository) GetByIDForUpdate(id uint) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.forUpdate().First(&promo, id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock promo code %d: %w", id, err)
	}
	return &promo, nil
}

// ListByUser retrieves a user's promo codes newest first.
func (r *PromoRepository) ListByUser(userID uint) ([]models.PromoCode, error) {
	var promos []models.PromoCode
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&promos).Error; err != nil {
		return nil, fmt.Errorf("failed to list promo codes for user %d: %w", userID, err)
	}
	return promos, nil
}

// TotalSpent returns the sum of prices of every promo code issued to a user.
func (r *PromoRepository) TotalSpent(userID uint) (int, error) {
	var total int64
	err := r.db.Model(&models.PromoCode{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(price), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum spent points: %w", err)
	}
	return int(total), nil
}

// CountActive returns the unexpired promo codes of a user at now.
func (r *PromoRepository) CountActive(userID uint, now time.Time) (int, error) {
	var count int64
	err := r.db.Model(&models.PromoCode{}).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active promo codes: %w", err)
	}
	return int(count), nil
}

// MarkReviewed clears the can_review flag.
func (r *PromoRepository) MarkReviewed(id uint) error {
	err := r.db.Model(&models.PromoCode{}).Where("id = ?", id).Update("can_review", false).Error
	if err != nil {
		return fmt.Errorf("failed to mark promo code %d reviewed: %w", id, err)
	}
	return nil
}
