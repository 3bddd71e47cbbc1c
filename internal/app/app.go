// Package app wires configuration, storage and services into a runnable server.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecoplant/plant-rewards/internal/api"
	"github.com/ecoplant/plant-rewards/internal/cache"
	"github.com/ecoplant/plant-rewards/internal/config"
	"github.com/ecoplant/plant-rewards/internal/mattermost"
	"github.com/ecoplant/plant-rewards/internal/ratelimit"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/internal/service/accounts"
	"github.com/ecoplant/plant-rewards/internal/service/achievements"
	"github.com/ecoplant/plant-rewards/internal/service/catalog"
	"github.com/ecoplant/plant-rewards/internal/service/leaderboard"
	"github.com/ecoplant/plant-rewards/internal/service/moderation"
	"github.com/ecoplant/plant-rewards/internal/service/notifications"
	"github.com/ecoplant/plant-rewards/internal/service/redemption"
	"github.com/ecoplant/plant-rewards/internal/service/scheduler"
	"github.com/ecoplant/plant-rewards/internal/service/trust"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

// App holds the wired services.
type App struct {
	Config *config.Config
	DB     *repository.DB
	Cache  cache.Cache

	Accounts      *accounts.Service
	Notifications *notifications.Service
	Achievements  *achievements.Service
	Leaderboard   *leaderboard.Service
	Moderation    *moderation.Service
	Redemption    *redemption.Service
	Catalog       *catalog.Service
	Scheduler     *scheduler.Service
	Limiter       *ratelimit.Limiter
	Mattermost    *mattermost.Client

	Router *gin.Engine

	log *logger.Logger
}

// New builds every service on top of an open database. c may be nil to run without Redis.
func New(cfg *config.Config, db *repository.DB, c cache.Cache, log *logger.Logger) (*App, error) {
	loc, err := cfg.Rewards.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid rewards timezone: %w", err)
	}

	a := &App{Config: cfg, DB: db, Cache: c, log: log}

	recovery := trust.NewPolicy(cfg.Rewards.TrustRecovery.Enabled, cfg.Rewards.TrustRecovery.IntervalDays)
	a.Notifications = notifications.NewService(
		repository.NewNotificationRepository(db),
		repository.NewUserRepository(db),
		log.Component("notifications"),
	)
	a.Leaderboard = leaderboard.NewService(db, c, leaderboard.Options{
		CacheTTL:     time.Duration(cfg.Leaderboard.CacheTTL) * time.Second,
		DefaultLimit: cfg.Leaderboard.DefaultLimit,
		Location:     loc,
	}, log.Component("leaderboard"))
	a.Accounts = accounts.NewService(db, &cfg.Auth, recovery, a.Leaderboard, log.Component("accounts"))
	a.Achievements = achievements.NewService(db, a.Notifications, a.Leaderboard, log.Component("achievements"))
	a.Mattermost = mattermost.NewClient(&cfg.Mattermost, log.Component("mattermost"))
	a.Moderation = moderation.NewService(db, a.Notifications, a.Achievements, a.Mattermost, a.Leaderboard, moderation.Options{
		DefaultApprovalPoints: cfg.Rewards.DefaultApprovalPoints,
		ExperiencePerApproval: cfg.Rewards.ExperiencePerApproval,
		Location:              loc,
	}, log.Component("moderation"))
	a.Redemption = redemption.NewService(db, a.Achievements, a.Leaderboard, log.Component("redemption"))
	a.Catalog = catalog.NewService(db, a.Notifications, log.Component("catalog"))

	var reminder scheduler.Reminder
	if a.Mattermost.Enabled() {
		reminder = a.Mattermost
	}
	a.Scheduler = scheduler.NewService(
		&cfg.Scheduler,
		repository.NewSubmissionRepository(db),
		reminder,
		a.Achievements,
		a.Accounts,
		log.Component("scheduler"),
	)

	var limit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		a.Limiter = ratelimit.NewFromConfig(&cfg.RateLimit, log.Component("ratelimit"))
		limit = a.Limiter.Middleware()
	}

	handler := api.NewHandler(api.Services{
		Accounts:      a.Accounts,
		Submissions:   a.Moderation,
		Catalog:       a.Catalog,
		Redemption:    a.Redemption,
		Ranking:       a.Leaderboard,
		Achievements:  a.Achievements,
		Notifications: a.Notifications,
	}, &cfg.Auth, cfg.Leaderboard.DefaultLimit, a.healthChecks(), log)

	a.Router = api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   limit,
	}, log)

	return a, nil
}

func (a *App) healthChecks() []api.HealthCheck {
	checks := []api.HealthCheck{{
		Name:  "database",
		Check: func(context.Context) error { return a.DB.Health() },
	}}
	if a.Cache != nil {
		checks = append(checks, api.HealthCheck{Name: "redis", Check: a.Cache.Health})
	}
	return checks
}

// Bootstrap seeds the achievement catalog and the configured administrator.
func (a *App) Bootstrap(ctx context.Context) error {
	seeded, err := a.Achievements.Seed(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed achievements: %w", err)
	}
	a.log.Info().Int("achievements", seeded).Msg("Achievement catalog seeded")

	if a.Config.Auth.AdminPhone == "" {
		return nil
	}
	created, err := a.Accounts.EnsureAdmin(ctx, a.Config.Auth.AdminPhone, a.Config.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if created {
		a.log.Info().Str("phone", a.Config.Auth.AdminPhone).Msg("Administrator bootstrapped")
	}
	return nil
}

// Start launches the background workers.
func (a *App) Start() error {
	if a.Limiter != nil {
		a.Limiter.Start()
	}
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Stop halts the background workers.
func (a *App) Stop() {
	a.Scheduler.Stop()
	if a.Limiter != nil {
		a.Limiter.Stop()
	}
}
