package repository

import (
	"fmt"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByPhone retrieves a user by phone number.
func (r *UserRepository) GetByPhone(phone string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return &user, nil
}

// ExistsByPhone reports whether a phone number is already registered.
func (r *UserRepository) ExistsByPhone(phone string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("phone = ?", phone).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check phone: %w", err)
	}
	return count > 0, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by id %d: %w", id, err)
	}
	return &user, nil
}

// GetByIDForUpdate retrieves a user and locks the row until the transaction ends.
func (r *UserRepository) GetByIDForUpdate(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.forUpdate().First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}
	return &user, nil
}

// Update saves every field of a user.
func (r *UserRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdateTrust writes only the trust columns, and only while the stored rating
// still equals previous. Reports whether the row was updated.
func (r *UserRepository) UpdateTrust(user *models.User, previous int) (bool, error) {
	res := r.db.Model(&models.User{}).
		Where("id = ? AND trust_rating = ?", user.ID, previous).
		UpdateColumns(map[string]interface{}{
			"trust_rating":        user.TrustRating,
			"last_trust_recovery": user.LastTrustRecovery,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update trust for user %d: %w", user.ID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// List retrieves all users with an optional role filter, newest first.
func (r *UserRepository) List(role string) ([]models.User, error) {
	query := r.db.Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListRankable retrieves non-admin users, optionally restricted to a city.
func (r *UserRepository) ListRankable(city string) ([]models.User, error) {
	query := r.db.Model(&models.User{}).Where("role <> ?", models.RoleAdmin)
	if city != "" {
		query = query.Where("city = ?", city)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list rankable users: %w", err)
	}
	return users, nil
}

// ListIDsByRole returns the ids of users with a role.
func (r *UserRepository) ListIDsByRole(role string) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.User{}).Where("role = ?", role).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	return ids, nil
}

// HasAdmin reports whether at least one administrator exists.
func (r *UserRepository) HasAdmin() (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count admins: %w", err)
	}
	return count > 0, nil
}
