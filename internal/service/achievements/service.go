// Package achievements seeds the achievement catalog and awards milestones.
package achievements

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	prommetrics "github.com/ecoplant/plant-rewards/internal/metrics"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

// AchievementRepository interface for achievement operations.
type AchievementRepository interface {
	GetAll() ([]models.Achievement, error)
	EarnedIDs(userID uint) (map[string]bool, error)
	Award(userID uint, achievementID string, earnedAt time.Time) (bool, error)
}

// SubmissionStats interface for planting aggregates.
type SubmissionStats interface {
	CountApproved(userID uint) (int, error)
	DistinctPlantTypes(userID uint) ([]string, error)
}

// SpendingStats interface for redemption aggregates.
type SpendingStats interface {
	TotalSpent(userID uint) (int, error)
}

// Notifier receives unlocked achievements after commit.
type Notifier interface {
	AchievementUnlocked(ctx context.Context, userID uint, a models.Achievement)
}

// RankingInvalidator drops cached rankings after points change.
type RankingInvalidator interface {
	Invalidate(ctx context.Context)
}

// Evaluator checks one user against the catalog and awards what they now qualify for.
type Evaluator struct {
	achievementRepo AchievementRepository
	submissionRepo  SubmissionStats
	promoRepo       SpendingStats
}

// NewEvaluator builds an evaluator on a connection or transaction.
func NewEvaluator(db *repository.DB) *Evaluator {
	return NewEvaluatorWithInterfaces(
		repository.NewAchievementRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewPromoRepository(db),
	)
}

// NewEvaluatorWithInterfaces creates an evaluator with interface dependencies (useful for testing).
func NewEvaluatorWithInterfaces(achievementRepo AchievementRepository, submissionRepo SubmissionStats, promoRepo SpendingStats) *Evaluator {
	return &Evaluator{
		achievementRepo: achievementRepo,
		submissionRepo:  submissionRepo,
		promoRepo:       promoRepo,
	}
}

// Stats computes the four aggregates conditions are checked against.
func (e *Evaluator) Stats(user *models.User) (models.AchievementStats, error) {
	plantings, err := e.submissionRepo.CountApproved(user.ID)
	if err != nil {
		return models.AchievementStats{}, err
	}
	types, err := e.submissionRepo.DistinctPlantTypes(user.ID)
	if err != nil {
		return models.AchievementStats{}, err
	}
	spent, err := e.promoRepo.TotalSpent(user.ID)
	if err != nil {
		return models.AchievementStats{}, err
	}

	return models.AchievementStats{
		Plantings:   plantings,
		PlantTypes:  len(types),
		TrustRating: user.TrustRating,
		Spent:       spent,
	}, nil
}

// Check awards every newly satisfied achievement and adds its bonus to user.Points.
// The caller persists user. Running it again without new progress returns nothing.
func (e *Evaluator) Check(user *models.User, now time.Time) ([]models.Achievement, error) {
	stats, err := e.Stats(user)
	if err != nil {
		return nil, fmt.Errorf("failed to compute achievement stats: %w", err)
	}

	catalog, err := e.achievementRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}

	earned, err := e.achievementRepo.EarnedIDs(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load earned achievements: %w", err)
	}

	var unlocked []models.Achievement
	for _, a := range Evaluate(catalog, earned, stats) {
		awarded, err := e.achievementRepo.Award(user.ID, a.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to award achievement %s: %w", a.ID, err)
		}
		if !awarded {
			continue
		}
		user.Points += a.Points
		unlocked = append(unlocked, a)
	}
	return unlocked, nil
}

// Service handles catalog seeding, achievement checks and progress reporting.
type Service struct {
	db          *repository.DB
	notifier    Notifier
	invalidator RankingInvalidator
	log         *logger.Logger
	now         func() time.Time
}

// NewService creates a new achievement service. notifier and invalidator may be nil.
func NewService(db *repository.DB, notifier Notifier, invalidator RankingInvalidator, log *logger.Logger) *Service {
	return &Service{
		db:          db,
		notifier:    notifier,
		invalidator: invalidator,
		log:         log,
		now:         time.Now,
	}
}

// Seed upserts the embedded catalog. Returns the number of catalog entries.
func (s *Service) Seed(ctx context.Context) (int, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return 0, err
	}
	if err := repository.NewAchievementRepository(s.db).Upsert(catalog); err != nil {
		return 0, apperror.Storage("seed achievements", err)
	}
	s.log.Info().Int("count", len(catalog)).Msg("Achievement catalog seeded")
	return len(catalog), nil
}

// EvaluateInTx runs the check inside an orchestrator transaction. The caller
// saves user and calls Announce after commit.
func (s *Service) EvaluateInTx(tx *repository.DB, user *models.User) ([]models.Achievement, error) {
	return NewEvaluator(tx).Check(user, s.now())
}

// Announce records metrics and notifies the user for each unlocked achievement.
func (s *Service) Announce(ctx context.Context, userID uint, unlocked []models.Achievement) {
	for _, a := range unlocked {
		prommetrics.RecordAchievementUnlocked(a.ID)
		prommetrics.RecordPointsAwarded("achievement", a.Points)
		s.log.Info().
			Uint("user_id", userID).
			Str("achievement", a.ID).
			Int("points", a.Points).
			Msg("Achievement unlocked")
		if s.notifier != nil {
			s.notifier.AchievementUnlocked(ctx, userID, a)
		}
	}
}

// CheckAchievements evaluates one user in its own transaction and returns the
// newly earned achievements.
func (s *Service) CheckAchievements(ctx context.Context, userID uint) ([]models.Achievement, error) {
	var unlocked []models.Achievement

	err := s.db.Transaction(func(tx *repository.DB) error {
		users := repository.NewUserRepository(tx)
		user, err := users.GetByIDForUpdate(userID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("user", userID)
			}
			return apperror.Storage("load user", err)
		}

		unlocked, err = s.EvaluateInTx(tx, user)
		if err != nil {
			return apperror.Storage("check achievements", err)
		}
		if len(unlocked) == 0 {
			return nil
		}
		if err := users.Update(user); err != nil {
			return apperror.Storage("save user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(unlocked) > 0 {
		s.Announce(ctx, userID, unlocked)
		if s.invalidator != nil {
			s.invalidator.Invalidate(ctx)
		}
	}
	if unlocked == nil {
		unlocked = []models.Achievement{}
	}
	return unlocked, nil
}

// EvaluateAll checks every regular user. This is typically run as a scheduled job.
// Returns the number of achievements awarded.
func (s *Service) EvaluateAll(ctx context.Context) (int, error) {
	s.log.Info().Msg("Starting achievement evaluation for all users")
	start := time.Now()

	ids, err := repository.NewUserRepository(s.db).ListIDsByRole(models.RoleUser)
	if err != nil {
		return 0, apperror.Storage("list users", err)
	}

	awards := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return awards, err
		}
		unlocked, err := s.CheckAchievements(ctx, id)
		if err != nil {
			s.log.Error().Err(err).Uint("user_id", id).Msg("Failed to evaluate achievements for user")
			continue
		}
		awards += len(unlocked)
	}

	s.refreshHolderMetrics()

	s.log.Info().
		Int("users", len(ids)).
		Int("awarded", awards).
		Dur("duration", time.Since(start)).
		Msg("Achievement evaluation completed")
	return awards, nil
}

func (s *Service) refreshHolderMetrics() {
	counts, err := repository.NewAchievementRepository(s.db).CountHolders()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to count achievement holders")
		return
	}
	for id, count := range counts {
		prommetrics.SetAchievementHolders(id, int(count))
	}
}

// Catalog returns every achievement in display order.
func (s *Service) Catalog(ctx context.Context) ([]models.Achievement, error) {
	catalog, err := repository.NewAchievementRepository(s.db).GetAll()
	if err != nil {
		return nil, apperror.Storage("list achievements", err)
	}
	return catalog, nil
}

// GetAchievementsWithProgress returns the catalog annotated with a user's
// earned flags and progress. It never awards anything.
func (s *Service) GetAchievementsWithProgress(ctx context.Context, userID uint) ([]Progress, error) {
	user, err := repository.NewUserRepository(s.db).GetByID(userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("user", userID)
		}
		return nil, apperror.Storage("load user", err)
	}

	stats, err := NewEvaluator(s.db).Stats(user)
	if err != nil {
		return nil, apperror.Storage("compute achievement stats", err)
	}

	achievementRepo := repository.NewAchievementRepository(s.db)
	catalog, err := achievementRepo.GetAll()
	if err != nil {
		return nil, apperror.Storage("list achievements", err)
	}
	earned, err := achievementRepo.GetUserAchievements(userID)
	if err != nil {
		return nil, apperror.Storage("list user achievements", err)
	}
	earnedAt := make(map[string]time.Time, len(earned))
	for _, ua := range earned {
		earnedAt[ua.AchievementID] = ua.EarnedAt
	}

	out := make([]Progress, 0, len(catalog))
	for _, a := range catalog {
		p := ProgressFor(a, stats)
		if at, ok := earnedAt[a.ID]; ok {
			at := at
			p.Earned = true
			p.EarnedAt = &at
		}
		out = append(out, p)
	}
	return out, nil
}
