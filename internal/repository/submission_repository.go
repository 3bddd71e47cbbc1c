package repository

import (
	"fmt"
	"time"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// SubmissionRepository handles submission-related database operations.
type SubmissionRepository struct {
	db *DB
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// SubmissionFilter narrows the admin submission listing.
type SubmissionFilter struct {
	Status   string
	UserID   uint
	Page     int
	PageSize int
}

// Create creates a new submission.
func (r *SubmissionRepository) Create(submission *models.Submission) error {
	if err := r.db.Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// GetByID retrieves a submission by ID with its author preloaded.
func (r *SubmissionRepository) GetByID(id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.Preload("User").First(&submission, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get submission %d: %w", id, err)
	}
	return &submission, nil
}

// GetByIDForUpdate retrieves a submission and locks the row until the transaction ends.
func (r *SubmissionRepository) GetByIDForUpdate(id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.forUpdate().First(&submission, id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock submission %d: %w", id, err)
	}
	return &submission, nil
}

// Update saves a submission.
func (r *SubmissionRepository) Update(submission *models.Submission) error {
	if err := r.db.Omit("User").Save(submission).Error; err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return nil
}

// List retrieves submissions newest first with the total count for pagination.
func (r *SubmissionRepository) List(filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.Model(&models.Submission{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var submissions []models.Submission
	if err := query.Preload("User").Order("created_at DESC, id DESC").Find(&submissions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, total, nil
}

// ListByUser retrieves a user's submissions newest first.
func (r *SubmissionRepository) ListByUser(userID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions for user %d: %w", userID, err)
	}
	return submissions, nil
}

// CountByStatus returns the number of submissions in a status.
func (r *SubmissionRepository) CountByStatus(status string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Submission{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s submissions: %w", status, err)
	}
	return count, nil
}

// CountByUserAndStatus returns a user's submission counts keyed by status.
func (r *SubmissionRepository) CountByUserAndStatus(userID uint) (map[string]int, error) {
	var rows []struct {
		Status string
		Count  int
	}
	err := r.db.Model(&models.Submission{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions by status: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountApproved returns the number of approved submissions of a user.
func (r *SubmissionRepository) CountApproved(userID uint) (int, error) {
	var count int64
	err := r.db.Model(&models.Submission{}).
		Where("user_id = ? AND status = ?", userID, models.SubmissionApproved).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count approved submissions: %w", err)
	}
	return int(count), nil
}

// CountApprovedSince returns approved submissions of a user created at or after since.
func (r *SubmissionRepository) CountApprovedSince(userID uint, since time.Time) (int, error) {
	var count int64
	err := r.db.Model(&models.Submission{}).
		Where("user_id = ? AND status = ? AND created_at >= ?", userID, models.SubmissionApproved, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count recent submissions: %w", err)
	}
	return int(count), nil
}

// DistinctPlantTypes returns the distinct plant types among a user's approved submissions.
func (r *SubmissionRepository) DistinctPlantTypes(userID uint) ([]string, error) {
	var types []string
	err := r.db.Model(&models.Submission{}).
		Where("user_id = ? AND status = ?", userID, models.SubmissionApproved).
		Distinct().
		Order("plant_type").
		Pluck("plant_type", &types).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list plant types: %w", err)
	}
	return types, nil
}

// SumAwardedPoints returns the points credited to a user by approvals.
func (r *SubmissionRepository) SumAwardedPoints(userID uint) (int, error) {
	var total int64
	err := r.db.Model(&models.Submission{}).
		Where("user_id = ? AND status = ?", userID, models.SubmissionApproved).
		Select("COALESCE(SUM(points_awarded), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum awarded points: %w", err)
	}
	return int(total), nil
}

// ApprovedCreatedSince returns creation timestamps of a user's approved submissions since a time.
// Month bucketing is done by the caller so it works on every dialect.
func (r *SubmissionRepository) ApprovedCreatedSince(userID uint, since time.Time) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.Model(&models.Submission{}).
		Where("user_id = ? AND status = ? AND created_at >= ?", userID, models.SubmissionApproved, since).
		Order("created_at").
		Pluck("created_at", &stamps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list approval dates: %w", err)
	}
	return stamps, nil
}

// ListMapPlantings returns approved submissions that carry coordinates.
func (r *SubmissionRepository) ListMapPlantings(limit int) ([]models.MapPlanting, error) {
	query := r.db.Model(&models.Submission{}).
		Select("submissions.id, submissions.title, submissions.plant_type, submissions.latitude, submissions.longitude, submissions.user_id, users.name AS user_name, submissions.created_at").
		Joins("JOIN users ON users.id = submissions.user_id").
		Where("submissions.status = ? AND submissions.latitude IS NOT NULL AND submissions.longitude IS NOT NULL", models.SubmissionApproved).
		Order("submissions.created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var plantings []models.MapPlanting
	if err := query.Scan(&plantings).Error; err != nil {
		return nil, fmt.Errorf("failed to list map plantings: %w", err)
	}
	return plantings, nil
}

// ListUserIDsWithApprovals returns the ids of users having at least one approved submission.
func (r *SubmissionRepository) ListUserIDsWithApprovals() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Submission{}).
		Where("status = ?", models.SubmissionApproved).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users with approvals: %w", err)
	}
	return ids, nil
}
