// Package api exposes the rewards services over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	"github.com/ecoplant/plant-rewards/internal/config"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/service/accounts"
	"github.com/ecoplant/plant-rewards/internal/service/achievements"
	"github.com/ecoplant/plant-rewards/internal/service/catalog"
	"github.com/ecoplant/plant-rewards/internal/service/leaderboard"
	"github.com/ecoplant/plant-rewards/internal/service/moderation"
	"github.com/ecoplant/plant-rewards/internal/service/notifications"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

// AccountService handles registration, login and profiles.
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (*models.User, error)
	Login(ctx context.Context, phone, password string) (*accounts.Session, error)
	ParseToken(token string) (accounts.Identity, error)
	Me(ctx context.Context, userID uint) (*models.User, error)
	PublicProfile(ctx context.Context, userID uint) (*models.PublicProfile, error)
	ListUsers(ctx context.Context, role string) ([]models.User, error)
}

// SubmissionService handles plant submissions and moderation.
type SubmissionService interface {
	SubmitPlant(ctx context.Context, userID uint, in moderation.SubmitInput) (*models.Submission, error)
	AdminAction(ctx context.Context, submissionID, adminID uint, in moderation.ActionInput) (*models.Submission, error)
	GetSubmission(ctx context.Context, requester *models.User, id uint) (*models.Submission, error)
	ListSubmissions(ctx context.Context, status string, page, pageSize int) (*moderation.Page, error)
	ListUserSubmissions(ctx context.Context, userID uint) ([]models.Submission, error)
	MapPlantings(ctx context.Context) ([]models.MapPlanting, error)
}

// CatalogService handles products and reviews.
type CatalogService interface {
	CreateProduct(ctx context.Context, in catalog.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uint, in catalog.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) (*catalog.ProductPage, error)
	CreateReview(ctx context.Context, userID, promoID uint, in catalog.ReviewInput) (*models.Review, error)
	ListReviews(ctx context.Context, productID uint) ([]models.Review, error)
}

// RedemptionService handles redeeming products for promo codes.
type RedemptionService interface {
	Redeem(ctx context.Context, userID, productID uint) (*models.PromoCode, error)
	ListPromos(ctx context.Context, userID uint) ([]models.PromoCode, error)
	PromoQR(ctx context.Context, userID, promoID uint) ([]byte, error)
}

// RankingService handles leaderboards and user statistics.
type RankingService interface {
	GetGlobalRanking(ctx context.Context, limit int) ([]leaderboard.Entry, error)
	GetCityRanking(ctx context.Context, city string, limit int) ([]leaderboard.Entry, error)
	GetRank(ctx context.Context, userID uint, city string) (leaderboard.Position, error)
	GetMyRank(ctx context.Context, userID uint) (*leaderboard.MyRank, error)
	GetUserStats(ctx context.Context, userID uint) (*leaderboard.UserStats, error)
}

// AchievementService exposes the achievement catalog with progress.
type AchievementService interface {
	GetAchievementsWithProgress(ctx context.Context, userID uint) ([]achievements.Progress, error)
}

// NotificationService handles a user's inbox.
type NotificationService interface {
	List(ctx context.Context, userID uint, unreadOnly bool, limit int) (*notifications.Inbox, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) error
}

// HealthCheck is a named dependency probe for /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Services groups the handler dependencies.
type Services struct {
	Accounts      AccountService
	Submissions   SubmissionService
	Catalog       CatalogService
	Redemption    RedemptionService
	Ranking       RankingService
	Achievements  AchievementService
	Notifications NotificationService
}

// Handler handles rewards API requests.
type Handler struct {
	accounts      AccountService
	submissions   SubmissionService
	catalog       CatalogService
	redemption    RedemptionService
	ranking       RankingService
	achievements  AchievementService
	notifications NotificationService

	auth         *config.AuthConfig
	defaultLimit int
	checks       []HealthCheck
	log          *logger.Logger
	now          func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(svc Services, auth *config.AuthConfig, defaultLimit int, checks []HealthCheck, log *logger.Logger) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &Handler{
		accounts:      svc.Accounts,
		submissions:   svc.Submissions,
		catalog:       svc.Catalog,
		redemption:    svc.Redemption,
		ranking:       svc.Ranking,
		achievements:  svc.Achievements,
		notifications: svc.Notifications,
		auth:          auth,
		defaultLimit:  defaultLimit,
		checks:        checks,
		log:           log.Component("api"),
		now:           time.Now,
	}
}

// Health reports the state of the service dependencies.
// GET /health.
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(c.Request.Context()); err != nil {
			h.log.Warn().Err(err).Str("dependency", check.Name).Msg("Health check failed")
			deps[check.Name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[check.Name] = "up"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":       state,
		"dependencies": deps,
		"timestamp":    h.now().UTC(),
	})
}

// Helper functions

// parseID extracts a numeric path parameter.
func parseID(c *gin.Context, name string) (uint, error) {
	idStr := c.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid %s: %s", name, idStr)
	}
	return uint(id), nil
}

// parseLimit extracts and validates the limit query parameter.
func parseLimit(c *gin.Context, defaultLimit, maxLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, apperror.Validation("invalid limit parameter: %s", limitStr)
	}
	if limit < 1 {
		return 0, apperror.Validation("limit must be greater than 0")
	}
	if limit > maxLimit {
		return 0, apperror.Validation("limit cannot exceed %d", maxLimit)
	}
	return limit, nil
}

// parseIntQuery reads an optional non-negative integer query parameter.
func parseIntQuery(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperror.Validation("invalid %s parameter: %s", name, v)
	}
	return n, nil
}

// bindJSON decodes the request body or reports a validation error.
func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return apperror.Validation("invalid request body: %v", err)
	}
	return nil
}

// fail maps err to a status code and writes the error response.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("op", op).Str("path", c.FullPath()).Msg("Request failed")
	} else {
		h.log.Debug().Err(err).Str("op", op).Msg("Request rejected")
	}
	h.errorResponse(c, status, kind, apperror.PublicMessage(err))
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, kind apperror.Kind, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"code":      kind,
		"timestamp": h.now().UTC(),
	})
}

