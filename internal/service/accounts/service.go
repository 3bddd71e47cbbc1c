// Package accounts handles registration, login and session tokens.
package accounts

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	"github.com/ecoplant/plant-rewards/internal/config"
	prommetrics "github.com/ecoplant/plant-rewards/internal/metrics"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/internal/service/leveling"
	"github.com/ecoplant/plant-rewards/internal/service/trust"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

const (
	minPasswordLength = 6
	maxNameLength     = 100
)

// UserRepository interface for account persistence.
type UserRepository interface {
	Create(user *models.User) error
	GetByPhone(phone string) (*models.User, error)
	ExistsByPhone(phone string) (bool, error)
	GetByID(id uint) (*models.User, error)
	Update(user *models.User) error
	UpdateTrust(user *models.User, previous int) (bool, error)
	List(role string) ([]models.User, error)
	HasAdmin() (bool, error)
}

// RankingInvalidator drops cached rankings after a user joins or changes score.
type RankingInvalidator interface {
	Invalidate(ctx context.Context)
}

// Claims are the session token claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller extracted from a token.
type Identity struct {
	UserID uint
	Role   string
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// Service handles user accounts.
type Service struct {
	userRepo    UserRepository
	secret      []byte
	tokenTTL    time.Duration
	bcryptCost  int
	recovery    trust.RecoveryPolicy
	invalidator RankingInvalidator
	log         *logger.Logger
	now         func() time.Time
}

// NewService creates a new accounts service with the concrete user repository.
// invalidator may be nil.
func NewService(db *repository.DB, cfg *config.AuthConfig, recovery trust.RecoveryPolicy, invalidator RankingInvalidator, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(repository.NewUserRepository(db), cfg, recovery, invalidator, log)
}

// NewServiceWithInterfaces creates a new accounts service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	userRepo UserRepository,
	cfg *config.AuthConfig,
	recovery trust.RecoveryPolicy,
	invalidator RankingInvalidator,
	log *logger.Logger,
) *Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	ttl := cfg.TokenTTL()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if recovery == nil {
		recovery = trust.DisabledRecovery{}
	}
	return &Service{
		userRepo:    userRepo,
		secret:      []byte(cfg.JWTSecret),
		tokenTTL:    ttl,
		bcryptCost:  cost,
		recovery:    recovery,
		invalidator: invalidator,
		log:         log,
		now:         time.Now,
	}
}

// RegisterInput carries registration fields.
type RegisterInput struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	City     string `json:"city"`
}

// Register creates a regular user account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	phone := NormalizePhone(in.Phone)
	if phone == "" || in.Password == "" {
		return nil, apperror.Validation("phone and password are required")
	}
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return nil, apperror.Validation("name must be at most %d characters", maxNameLength)
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperror.Validation("password must be at least %d characters", minPasswordLength)
	}

	exists, err := s.userRepo.ExistsByPhone(phone)
	if err != nil {
		return nil, apperror.Storage("check phone", err)
	}
	if exists {
		return nil, apperror.Conflict("phone %s is already registered", phone)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperror.Internal("hash password", err)
	}

	user := models.NewUser(name, phone, string(hash), strings.TrimSpace(in.City), s.now())
	if err := s.userRepo.Create(user); err != nil {
		return nil, apperror.Storage("create user", err)
	}

	s.log.Info().Uint("user_id", user.ID).Str("city", user.City).Msg("User registered")
	s.invalidateRankings(ctx)
	return user, nil
}

// Session is a signed token for an authenticated user.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, phone, password string) (*Session, error) {
	phone = NormalizePhone(phone)
	if phone == "" || password == "" {
		return nil, apperror.Validation("phone and password are required")
	}

	user, err := s.userRepo.GetByPhone(phone)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.Unauthorized("invalid phone or password")
		}
		return nil, apperror.Storage("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.Unauthorized("invalid phone or password")
	}

	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// IssueToken signs an HS256 token carrying sub, role and exp.
func (s *Service) IssueToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperror.Internal("sign token", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates a token and returns the caller identity.
func (s *Service) ParseToken(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, apperror.Unauthorized("authentication required")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperror.Unauthorized("session expired")
		}
		return Identity{}, apperror.Unauthorized("invalid token")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return Identity{}, apperror.Unauthorized("invalid token subject")
	}
	return Identity{UserID: uint(id), Role: claims.Role}, nil
}

// Me returns the current user after applying trust recovery.
func (s *Service) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	previous := user.TrustRating
	if !s.recovery.Apply(user, s.now()) {
		return user, nil
	}
	saved, err := s.userRepo.UpdateTrust(user, previous)
	if err != nil {
		return nil, apperror.Storage("save trust recovery", err)
	}
	if !saved {
		// The rating moved underneath us; report what is stored.
		return s.getUser(userID)
	}
	prommetrics.RecordTrustRecovery()
	s.log.Debug().Uint("user_id", user.ID).Int("trust_rating", user.TrustRating).Msg("Trust recovered")
	s.invalidateRankings(ctx)
	return user, nil
}

// PublicProfile returns the publicly visible view of a user.
func (s *Service) PublicProfile(ctx context.Context, userID uint) (*models.PublicProfile, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}
	return &models.PublicProfile{
		ID:            user.ID,
		Name:          user.Name,
		City:          user.City,
		Role:          user.Role,
		Level:         user.Level,
		LevelName:     leveling.Name(user.Level),
		Points:        user.Points,
		TrustRating:   user.TrustRating,
		CurrentStreak: user.CurrentStreak,
		LongestStreak: user.LongestStreak,
	}, nil
}

// ListUsers returns every user, optionally filtered by role.
func (s *Service) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	switch role {
	case "", models.RoleUser, models.RoleAdmin:
	default:
		return nil, apperror.Validation("unknown role %q", role)
	}
	users, err := s.userRepo.List(role)
	if err != nil {
		return nil, apperror.Storage("list users", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// EnsureAdmin creates the bootstrap administrator when no admin exists.
// Reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, phone, password string) (bool, error) {
	phone = NormalizePhone(phone)
	if phone == "" || password == "" {
		return false, nil
	}

	hasAdmin, err := s.userRepo.HasAdmin()
	if err != nil {
		return false, apperror.Storage("check admins", err)
	}
	if hasAdmin {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return false, apperror.Internal("hash password", err)
	}

	existing, err := s.userRepo.GetByPhone(phone)
	switch {
	case err == nil:
		existing.Role = models.RoleAdmin
		existing.PasswordHash = string(hash)
		if err := s.userRepo.Update(existing); err != nil {
			return false, apperror.Storage("promote admin", err)
		}
		s.log.Info().Uint("user_id", existing.ID).Msg("Promoted existing user to admin")
		return true, nil
	case !repository.IsNotFound(err):
		return false, apperror.Storage("load user", err)
	}

	admin := models.NewUser("Administrator", phone, string(hash), "", s.now())
	admin.Role = models.RoleAdmin
	if err := s.userRepo.Create(admin); err != nil {
		return false, apperror.Storage("create admin", err)
	}
	s.log.Info().Uint("user_id", admin.ID).Msg("Bootstrap admin created")
	return true, nil
}

// RecoveryEnabled reports whether a trust recovery policy is active.
func (s *Service) RecoveryEnabled() bool {
	return s.recovery.Enabled()
}

// RecoverTrustAll applies the recovery policy to every regular user.
// Returns the number of users whose trust rating was raised.
func (s *Service) RecoverTrustAll(ctx context.Context) (int, error) {
	if !s.recovery.Enabled() {
		return 0, nil
	}
	users, err := s.userRepo.List(models.RoleUser)
	if err != nil {
		return 0, apperror.Storage("list users", err)
	}

	now := s.now()
	recovered := 0
	for i := range users {
		if err := ctx.Err(); err != nil {
			if recovered > 0 {
				s.invalidateRankings(context.WithoutCancel(ctx))
			}
			return recovered, err
		}
		u := &users[i]
		previous := u.TrustRating
		if !s.recovery.Apply(u, now) {
			continue
		}
		saved, err := s.userRepo.UpdateTrust(u, previous)
		if err != nil {
			s.log.Error().Err(err).Uint("user_id", u.ID).Msg("Failed to save trust recovery")
			continue
		}
		if !saved {
			s.log.Debug().Uint("user_id", u.ID).Msg("Trust changed during sweep, skipping")
			continue
		}
		prommetrics.RecordTrustRecovery()
		recovered++
	}
	if recovered > 0 {
		s.invalidateRankings(ctx)
	}
	return recovered, nil
}

func (s *Service) invalidateRankings(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
}

func (s *Service) getUser(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("user", userID)
		}
		return nil, apperror.Storage("load user", err)
	}
	return user, nil
}

// NormalizePhone strips spaces, dashes and brackets, keeping a leading '+'.
// Values with other characters are returned trimmed but otherwise untouched.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return phone
		}
	}
	return b.String()
}
