// Package leaderboard provides rankings and per-user statistics.
package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	"github.com/ecoplant/plant-rewards/internal/cache"
	prommetrics "github.com/ecoplant/plant-rewards/internal/metrics"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

const generationKey = "leaderboard:generation"

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	ListRankable(city string) ([]models.User, error)
}

// SubmissionRepository interface for planting statistics.
type SubmissionRepository interface {
	CountByUserAndStatus(userID uint) (map[string]int, error)
	DistinctPlantTypes(userID uint) ([]string, error)
	SumAwardedPoints(userID uint) (int, error)
	ApprovedCreatedSince(userID uint, since time.Time) ([]time.Time, error)
}

// PromoRepository interface for redemption statistics.
type PromoRepository interface {
	TotalSpent(userID uint) (int, error)
	CountActive(userID uint, now time.Time) (int, error)
}

// AchievementRepository interface for earned achievement counts.
type AchievementRepository interface {
	EarnedIDs(userID uint) (map[string]bool, error)
}

// Options tunes caching and defaults.
type Options struct {
	CacheTTL     time.Duration
	DefaultLimit int
	Location     *time.Location
}

// Service handles leaderboard generation and user statistics.
type Service struct {
	userRepo        UserRepository
	submissionRepo  SubmissionRepository
	promoRepo       PromoRepository
	achievementRepo AchievementRepository
	cache           cache.Cache
	opts            Options
	log             *logger.Logger
	now             func() time.Time
}

// NewService creates a new leaderboard service with concrete repository types.
// c may be nil to disable caching.
func NewService(db *repository.DB, c cache.Cache, opts Options, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(
		repository.NewUserRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewPromoRepository(db),
		repository.NewAchievementRepository(db),
		c, opts, log,
	)
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	userRepo UserRepository,
	submissionRepo SubmissionRepository,
	promoRepo PromoRepository,
	achievementRepo AchievementRepository,
	c cache.Cache,
	opts Options,
	log *logger.Logger,
) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		userRepo:        userRepo,
		submissionRepo:  submissionRepo,
		promoRepo:       promoRepo,
		achievementRepo: achievementRepo,
		cache:           c,
		opts:            opts,
		log:             log,
		now:             time.Now,
	}
}

// GetGlobalRanking returns the top of the global ranking.
func (s *Service) GetGlobalRanking(ctx context.Context, limit int) ([]Entry, error) {
	return s.GetRanking(ctx, "", limit)
}

// GetCityRanking returns the top of one city's ranking.
func (s *Service) GetCityRanking(ctx context.Context, city string, limit int) ([]Entry, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, apperror.Validation("city is required")
	}
	return s.GetRanking(ctx, city, limit)
}

// GetRanking returns ranked entries for a city, or globally when city is empty.
// A non-positive limit falls back to the configured default.
func (s *Service) GetRanking(ctx context.Context, city string, limit int) ([]Entry, error) {
	entries, err := s.snapshot(ctx, city)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// GetRank returns a user's position globally (city empty) or within a city.
func (s *Service) GetRank(ctx context.Context, userID uint, city string) (Position, error) {
	entries, err := s.snapshot(ctx, city)
	if err != nil {
		return Position{}, err
	}
	pos, ok := Find(entries, userID)
	if !ok {
		return pos, apperror.NotFound("ranked user", userID)
	}
	return pos, nil
}

// MyRank is a user's global and city positions.
type MyRank struct {
	UserID uint     `json:"user_id"`
	City   string   `json:"city"`
	Global Position `json:"global"`
	InCity Position `json:"city_rank"`
}

// GetMyRank returns both positions of a user in one call.
func (s *Service) GetMyRank(ctx context.Context, userID uint) (*MyRank, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("user", userID)
		}
		return nil, apperror.Storage("load user", err)
	}
	if user.IsAdmin() {
		return nil, apperror.NotFound("ranked user", userID)
	}

	global, err := s.GetRank(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	inCity, err := s.GetRank(ctx, userID, user.City)
	if err != nil {
		return nil, err
	}
	return &MyRank{UserID: userID, City: user.City, Global: global, InCity: inCity}, nil
}

// Invalidate drops every cached ranking by bumping the generation counter.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, generationKey); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate leaderboard cache")
	}
}

// snapshot returns the full ranking for a scope, from cache when possible.
func (s *Service) snapshot(ctx context.Context, city string) ([]Entry, error) {
	key := ""
	if s.cache != nil && s.opts.CacheTTL > 0 {
		var err error
		key, err = s.cacheKey(ctx, city)
		if err != nil {
			prommetrics.RecordLeaderboardCache("error")
			s.log.Warn().Err(err).Msg("Leaderboard cache unavailable")
		} else {
			var cached []Entry
			hit, err := cache.GetJSON(ctx, s.cache, key, &cached)
			switch {
			case err != nil:
				prommetrics.RecordLeaderboardCache("error")
				s.log.Warn().Err(err).Str("key", key).Msg("Failed to read cached leaderboard")
			case hit:
				prommetrics.RecordLeaderboardCache("hit")
				return cached, nil
			default:
				prommetrics.RecordLeaderboardCache("miss")
			}
		}
	}

	users, err := s.userRepo.ListRankable(city)
	if err != nil {
		return nil, apperror.Storage("list users for ranking", err)
	}
	entries := Rank(users)

	if key != "" {
		if err := cache.SetJSON(ctx, s.cache, key, entries, s.opts.CacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache leaderboard")
		}
	}
	return entries, nil
}

func (s *Service) cacheKey(ctx context.Context, city string) (string, error) {
	gen, err := s.cache.Get(ctx, generationKey)
	if err != nil {
		return "", err
	}
	if gen == "" {
		gen = "0"
	}
	if _, err := strconv.ParseInt(gen, 10, 64); err != nil {
		return "", fmt.Errorf("invalid leaderboard generation %q", gen)
	}

	scope := "global"
	if city != "" {
		scope = "city:" + city
	}
	return "leaderboard:" + gen + ":" + scope, nil
}
