// Package scheduler runs the periodic moderation reminder and progression sweeps.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ecoplant/plant-rewards/internal/config"
	"github.com/ecoplant/plant-rewards/internal/mattermost"
	prommetrics "github.com/ecoplant/plant-rewards/internal/metrics"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

// Job names used in logs and metrics.
const (
	JobPendingReminder  = "pending_reminder"
	JobAchievementSweep = "achievement_sweep"
	JobTrustRecovery    = "trust_recovery"
)

const (
	// reminderLimit caps the submissions listed in one reminder.
	reminderLimit = 20
	// reminderMinAge skips submissions too fresh to nag about.
	reminderMinAge = 4 * time.Hour
)

// SubmissionLister lists submissions by status.
type SubmissionLister interface {
	List(filter repository.SubmissionFilter) ([]models.Submission, int64, error)
}

// Reminder delivers the pending moderation reminder.
type Reminder interface {
	SendPendingReminder(ctx context.Context, pending []mattermost.PendingSubmission, total int64, now time.Time) error
}

// AchievementSweeper re-evaluates achievements for every user.
type AchievementSweeper interface {
	EvaluateAll(ctx context.Context) (int, error)
}

// TrustSweeper applies trust recovery to every user.
type TrustSweeper interface {
	RecoveryEnabled() bool
	RecoverTrustAll(ctx context.Context) (int, error)
}

// Service handles periodic job scheduling.
type Service struct {
	config       *config.SchedulerConfig
	submissions  SubmissionLister
	reminder     Reminder
	achievements AchievementSweeper
	trust        TrustSweeper
	log          *logger.Logger
	cron         *cron.Cron
	now          func() time.Time
}

// NewService creates a new scheduler service. reminder, achievements and trust may be nil
// to leave the matching job unregistered.
func NewService(
	cfg *config.SchedulerConfig,
	submissions SubmissionLister,
	reminder Reminder,
	achievements AchievementSweeper,
	trust TrustSweeper,
	log *logger.Logger,
) *Service {
	return &Service{
		config:       cfg,
		submissions:  submissions,
		reminder:     reminder,
		achievements: achievements,
		trust:        trust,
		log:          log,
		now:          time.Now,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	tz := s.config.Timezone
	if tz == "" {
		tz = "UTC"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	if s.reminder != nil && s.config.Time != "" {
		cronExpr, err := s.buildCronExpression()
		if err != nil {
			return fmt.Errorf("failed to build cron expression: %w", err)
		}
		if err := s.register(JobPendingReminder, cronExpr, s.RunPendingReminder); err != nil {
			return err
		}
	}

	if s.achievements != nil && s.config.AchievementSweepCron != "" {
		if err := s.register(JobAchievementSweep, s.config.AchievementSweepCron, s.RunAchievementSweep); err != nil {
			return err
		}
	}

	if s.trust != nil && s.trust.RecoveryEnabled() && s.config.TrustRecoveryCron != "" {
		if err := s.register(JobTrustRecovery, s.config.TrustRecoveryCron, s.RunTrustRecovery); err != nil {
			return err
		}
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Int("jobs", len(entries)).
		Str("timezone", tz).
		Str("time", s.config.Time).
		Bool("skip_weekends", s.config.SkipWeekends).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

func (s *Service) register(job, spec string, run func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runJob(context.Background(), job, run)
	})
	if err != nil {
		return fmt.Errorf("failed to register %s job: %w", job, err)
	}
	s.log.Info().Str("job", job).Str("schedule", spec).Msg("Scheduled job registered")
	return nil
}

// runJob executes one job run with duration and outcome metrics.
func (s *Service) runJob(ctx context.Context, job string, run func(context.Context) error) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(job, time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(job)
	}()

	if err := run(ctx); err != nil {
		prommetrics.RecordSchedulerJobRun(job, "error")
		s.log.Error().Err(err).Str("job", job).Dur("duration", time.Since(start)).Msg("Scheduled job failed")
		return
	}
	prommetrics.RecordSchedulerJobRun(job, "success")
}

// buildCronExpression generates the reminder cron expression from config.
func (s *Service) buildCronExpression() (string, error) {
	// Parse time string (format: "HH:MM")
	parts := strings.Split(s.config.Time, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s.config.Time)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	// Format: "minute hour day month weekday"
	if s.config.SkipWeekends {
		return fmt.Sprintf("%d %d * * 1-5", minute, hour), nil
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// RunPendingReminder posts the list of submissions awaiting moderation.
func (s *Service) RunPendingReminder(ctx context.Context) error {
	subs, total, err := s.submissions.List(repository.SubmissionFilter{
		Status:   models.SubmissionPending,
		Page:     1,
		PageSize: reminderLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list pending submissions: %w", err)
	}
	prommetrics.SetPendingSubmissions(int(total))

	now := s.now()
	pending := filterRecent(buildPending(subs), now, reminderMinAge)

	s.log.Info().
		Int64("total", total).
		Int("listed", len(pending)).
		Msg("Found pending submissions")

	if len(pending) == 0 {
		return nil
	}
	if err := s.reminder.SendPendingReminder(ctx, pending, total, now); err != nil {
		return fmt.Errorf("failed to send pending reminder: %w", err)
	}
	return nil
}

// RunAchievementSweep re-checks achievements for every user.
func (s *Service) RunAchievementSweep(ctx context.Context) error {
	awarded, err := s.achievements.EvaluateAll(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Int("awarded", awarded).Msg("Achievement sweep completed")
	return nil
}

// RunTrustRecovery applies trust recovery to every user.
func (s *Service) RunTrustRecovery(ctx context.Context) error {
	recovered, err := s.trust.RecoverTrustAll(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Int("recovered", recovered).Msg("Trust recovery sweep completed")
	return nil
}
