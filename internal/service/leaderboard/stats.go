package leaderboard

import (
	"context"
	"time"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/internal/service/leveling"
)

// statsMonths is the number of calendar months in the planting history.
const statsMonths = 6

// MonthlyPlantings is the approved planting count for one calendar month.
type MonthlyPlantings struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// UserStats represents comprehensive statistics for a user.
type UserStats struct {
	UserID              uint               `json:"user_id"`
	Name                string             `json:"name"`
	City                string             `json:"city"`
	TotalSubmissions    int                `json:"total_submissions"`
	ApprovedSubmissions int                `json:"approved_submissions"`
	PendingSubmissions  int                `json:"pending_submissions"`
	DeclinedSubmissions int                `json:"declined_submissions"`
	ThisMonth           int                `json:"this_month"`
	Points              int                `json:"points"`
	PointsEarned        int                `json:"points_earned"`
	PointsSpent         int                `json:"points_spent"`
	ActivePromos        int                `json:"active_promos"`
	TrustRating         int                `json:"trust_rating"`
	CurrentStreak       int                `json:"current_streak"`
	LongestStreak       int                `json:"longest_streak"`
	Level               leveling.Progress  `json:"level"`
	PlantTypes          []string           `json:"plant_types"`
	Monthly             []MonthlyPlantings `json:"monthly"`
	Achievements        int                `json:"achievements"`
	GlobalRank          int                `json:"global_rank"`
	CityRank            int                `json:"city_rank"`
}

// GetUserStats returns comprehensive statistics for a user.
func (s *Service) GetUserStats(ctx context.Context, userID uint) (*UserStats, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("user", userID)
		}
		return nil, apperror.Storage("load user", err)
	}

	now := s.now().In(s.opts.Location)
	stats := &UserStats{
		UserID:        user.ID,
		Name:          user.Name,
		City:          user.City,
		Points:        user.Points,
		TrustRating:   user.TrustRating,
		CurrentStreak: user.CurrentStreak,
		LongestStreak: user.LongestStreak,
		Level:         leveling.ProgressOf(user),
	}

	counts, err := s.submissionRepo.CountByUserAndStatus(userID)
	if err != nil {
		return nil, apperror.Storage("count submissions", err)
	}
	stats.ApprovedSubmissions = counts[models.SubmissionApproved]
	stats.PendingSubmissions = counts[models.SubmissionPending]
	stats.DeclinedSubmissions = counts[models.SubmissionDeclined]
	for _, c := range counts {
		stats.TotalSubmissions += c
	}

	if stats.PointsEarned, err = s.submissionRepo.SumAwardedPoints(userID); err != nil {
		return nil, apperror.Storage("sum awarded points", err)
	}
	if stats.PointsSpent, err = s.promoRepo.TotalSpent(userID); err != nil {
		return nil, apperror.Storage("sum spent points", err)
	}
	if stats.ActivePromos, err = s.promoRepo.CountActive(userID, now); err != nil {
		return nil, apperror.Storage("count active promos", err)
	}
	if stats.PlantTypes, err = s.submissionRepo.DistinctPlantTypes(userID); err != nil {
		return nil, apperror.Storage("list plant types", err)
	}
	if stats.PlantTypes == nil {
		stats.PlantTypes = []string{}
	}

	earned, err := s.achievementRepo.EarnedIDs(userID)
	if err != nil {
		return nil, apperror.Storage("count achievements", err)
	}
	stats.Achievements = len(earned)

	start := monthStart(now, -(statsMonths - 1))
	created, err := s.submissionRepo.ApprovedCreatedSince(userID, start)
	if err != nil {
		return nil, apperror.Storage("load planting history", err)
	}
	stats.Monthly = bucketByMonth(created, start, statsMonths, s.opts.Location)
	stats.ThisMonth = stats.Monthly[len(stats.Monthly)-1].Count

	if !user.IsAdmin() {
		if pos, err := s.GetRank(ctx, userID, ""); err == nil {
			stats.GlobalRank = pos.Rank
		} else if !apperror.IsNotFound(err) {
			return nil, err
		}
		if pos, err := s.GetRank(ctx, userID, user.City); err == nil {
			stats.CityRank = pos.Rank
		} else if !apperror.IsNotFound(err) {
			return nil, err
		}
	}

	return stats, nil
}

// monthStart returns the first instant of the month offset months from t.
func monthStart(t time.Time, offset int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, t.Location())
}

// bucketByMonth counts timestamps per calendar month, oldest first.
func bucketByMonth(times []time.Time, start time.Time, months int, loc *time.Location) []MonthlyPlantings {
	buckets := make([]MonthlyPlantings, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := monthStart(start, i).Format("2006-01")
		buckets[i] = MonthlyPlantings{Month: key}
		index[key] = i
	}
	for _, t := range times {
		if i, ok := index[t.In(loc).Format("2006-01")]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}
