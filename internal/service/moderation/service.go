// Package moderation handles plant submissions and the admin approve/decline flow.
package moderation

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	"github.com/ecoplant/plant-rewards/internal/mattermost"
	prommetrics "github.com/ecoplant/plant-rewards/internal/metrics"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/internal/service/leveling"
	"github.com/ecoplant/plant-rewards/internal/service/streak"
	"github.com/ecoplant/plant-rewards/internal/service/trust"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxPageSize          = 100
	defaultPageSize      = 20
	defaultMapLimit      = 1000
)

// Notifier emits moderation notifications.
type Notifier interface {
	SubmissionApproved(ctx context.Context, sub *models.Submission)
	SubmissionDeclined(ctx context.Context, sub *models.Submission)
	LevelUp(ctx context.Context, userID uint, level int, levelName string, bonus int)
}

// AchievementChecker evaluates achievements inside the approval transaction.
type AchievementChecker interface {
	EvaluateInTx(tx *repository.DB, user *models.User) ([]models.Achievement, error)
	Announce(ctx context.Context, userID uint, unlocked []models.Achievement)
}

// Alerter tells moderators about new submissions.
type Alerter interface {
	SendSubmissionAlert(ctx context.Context, alert mattermost.SubmissionAlert) error
}

// RankingInvalidator drops cached rankings after a score change.
type RankingInvalidator interface {
	Invalidate(ctx context.Context)
}

// Options holds the reward tuning for approvals.
type Options struct {
	DefaultApprovalPoints int
	ExperiencePerApproval int
	Location              *time.Location
}

// Service orchestrates submissions and moderation.
type Service struct {
	db           *repository.DB
	notifier     Notifier
	achievements AchievementChecker
	alerter      Alerter
	invalidator  RankingInvalidator
	opts         Options
	policy       *bluemonday.Policy
	log          *logger.Logger
	now          func() time.Time
}

// NewService creates a moderation service. Every collaborator except db may be nil.
func NewService(
	db *repository.DB,
	notifier Notifier,
	achievements AchievementChecker,
	alerter Alerter,
	invalidator RankingInvalidator,
	opts Options,
	log *logger.Logger,
) *Service {
	if opts.DefaultApprovalPoints <= 0 {
		opts.DefaultApprovalPoints = 1000
	}
	if opts.ExperiencePerApproval <= 0 {
		opts.ExperiencePerApproval = 50
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		db:           db,
		notifier:     notifier,
		achievements: achievements,
		alerter:      alerter,
		invalidator:  invalidator,
		opts:         opts,
		policy:       bluemonday.StrictPolicy(),
		log:          log,
		now:          time.Now,
	}
}

// SubmitInput carries the user-supplied fields of a submission.
// Media values are references produced by the upload layer.
type SubmitInput struct {
	Title        string   `json:"title"`
	PlantType    string   `json:"plant_type"`
	Description  string   `json:"description"`
	Latitude     *float64 `json:"lat"`
	Longitude    *float64 `json:"lng"`
	LocationText string   `json:"location_text"`
	BeforeMedia  string   `json:"before_media"`
	AfterMedia   string   `json:"after_media"`
}

// SubmitPlant records a new pending submission for userID.
func (s *Service) SubmitPlant(ctx context.Context, userID uint, in SubmitInput) (*models.Submission, error) {
	sub, err := s.buildSubmission(userID, in)
	if err != nil {
		return nil, err
	}

	users := repository.NewUserRepository(s.db)
	user, err := users.GetByID(userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("user", userID)
		}
		return nil, apperror.Storage("load user", err)
	}

	if err := repository.NewSubmissionRepository(s.db).Create(sub); err != nil {
		return nil, apperror.Storage("create submission", err)
	}

	prommetrics.RecordSubmissionCreated(sub.PlantType)
	s.refreshPending()
	s.log.Info().
		Uint("submission_id", sub.ID).
		Uint("user_id", userID).
		Str("plant_type", sub.PlantType).
		Msg("Submission created")

	if s.alerter != nil {
		alert := mattermost.SubmissionAlert{
			SubmissionID: sub.ID,
			Title:        sub.Title,
			PlantType:    sub.PlantType,
			UserName:     user.Name,
			City:         user.City,
			Location:     sub.LocationText,
		}
		if err := s.alerter.SendSubmissionAlert(ctx, alert); err != nil {
			s.log.Warn().Err(err).Uint("submission_id", sub.ID).Msg("Failed to send moderation alert")
		}
	}
	return sub, nil
}

func (s *Service) buildSubmission(userID uint, in SubmitInput) (*models.Submission, error) {
	title := s.clean(in.Title)
	if title == "" {
		return nil, apperror.Validation("title is required")
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, apperror.Validation("title must be at most %d characters", maxTitleLength)
	}
	description := s.clean(in.Description)
	if len([]rune(description)) > maxDescriptionLength {
		return nil, apperror.Validation("description must be at most %d characters", maxDescriptionLength)
	}

	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, apperror.Validation("lat and lng must be given together")
	}
	if in.Latitude != nil {
		lat, lng := *in.Latitude, *in.Longitude
		if math.IsNaN(lat) || lat < -90 || lat > 90 {
			return nil, apperror.Validation("lat must be within [-90, 90]")
		}
		if math.IsNaN(lng) || lng < -180 || lng > 180 {
			return nil, apperror.Validation("lng must be within [-180, 180]")
		}
	}

	plantType := s.clean(in.PlantType)
	if plantType == "" {
		plantType = "Tree"
	}

	return &models.Submission{
		UserID:       userID,
		Title:        title,
		PlantType:    plantType,
		Description:  description,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		LocationText: s.clean(in.LocationText),
		BeforeMedia:  strings.TrimSpace(in.BeforeMedia),
		AfterMedia:   strings.TrimSpace(in.AfterMedia),
		Status:       models.SubmissionPending,
	}, nil
}

// clean strips markup and surrounding whitespace from user text.
func (s *Service) clean(v string) string {
	return strings.TrimSpace(s.policy.Sanitize(v))
}

// ActionInput is an admin decision on a submission.
type ActionInput struct {
	Action  string  `json:"action"`
	Comment *string `json:"comment"`
	Points  *int    `json:"points"`
}

// outcome collects side effects to emit once the transaction has committed.
type outcome struct {
	changed  bool
	level    leveling.Result
	streak   streak.Result
	unlocked []models.Achievement
}

// AdminAction applies approve or decline to a pending submission.
// Repeating the action already taken returns the stored submission unchanged.
// Moving between approved and declined is a conflict.
func (s *Service) AdminAction(ctx context.Context, submissionID, adminID uint, in ActionInput) (*models.Submission, error) {
	action := strings.ToLower(strings.TrimSpace(in.Action))
	if action != models.ActionApprove && action != models.ActionDecline {
		return nil, apperror.Validation("action must be %q or %q", models.ActionApprove, models.ActionDecline)
	}
	points := s.opts.DefaultApprovalPoints
	if in.Points != nil {
		if *in.Points < 0 {
			return nil, apperror.Validation("points must not be negative")
		}
		points = *in.Points
	}

	var (
		sub *models.Submission
		out outcome
	)
	err := s.db.Transaction(func(tx *repository.DB) error {
		subs := repository.NewSubmissionRepository(tx)
		users := repository.NewUserRepository(tx)

		var err error
		sub, err = subs.GetByIDForUpdate(submissionID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("submission", submissionID)
			}
			return apperror.Storage("load submission", err)
		}

		target := models.SubmissionApproved
		if action == models.ActionDecline {
			target = models.SubmissionDeclined
		}
		if sub.Status == target {
			return nil
		}
		if sub.IsTerminal() {
			return apperror.Conflict("submission %d is already %s", sub.ID, sub.Status).
				WithDetail("status", sub.Status)
		}

		user, err := users.GetByIDForUpdate(sub.UserID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("user", sub.UserID)
			}
			return apperror.Storage("load submission owner", err)
		}

		now := s.now()
		sub.Status = target
		sub.AdminID = &adminID
		sub.ReviewedAt = &now
		if in.Comment != nil {
			comment := s.clean(*in.Comment)
			sub.AdminComment = &comment
		}

		if action == models.ActionApprove {
			sub.PointsAwarded = points
			user.Points += points
			out.level = leveling.AddExperience(user, s.opts.ExperiencePerApproval)
			out.streak = streak.Update(user, now, s.opts.Location)
			if err := subs.Update(sub); err != nil {
				return apperror.Storage("update submission", err)
			}
			if s.achievements != nil {
				out.unlocked, err = s.achievements.EvaluateInTx(tx, user)
				if err != nil {
					return apperror.Storage("check achievements", err)
				}
			}
		} else {
			trust.ApplyDeclinePenalty(user, now)
			if err := subs.Update(sub); err != nil {
				return apperror.Storage("update submission", err)
			}
		}

		if err := users.Update(user); err != nil {
			return apperror.Storage("update user", err)
		}
		out.changed = true
		return nil
	})
	if err != nil {
		prommetrics.RecordModeration(action, strings.ToLower(string(apperror.KindOf(err))))
		return nil, err
	}
	if !out.changed {
		prommetrics.RecordModeration(action, "noop")
		return sub, nil
	}

	s.afterAction(ctx, action, sub, out)
	return sub, nil
}

// afterAction emits notifications and metrics for a committed decision.
func (s *Service) afterAction(ctx context.Context, action string, sub *models.Submission, out outcome) {
	prommetrics.RecordModeration(action, "success")
	s.refreshPending()

	logEvent := s.log.Info().
		Uint("submission_id", sub.ID).
		Uint("user_id", sub.UserID).
		Str("action", action)

	if action == models.ActionDecline {
		prommetrics.RecordTrustPenalty()
		logEvent.Msg("Submission declined")
		if s.notifier != nil {
			s.notifier.SubmissionDeclined(ctx, sub)
		}
		if s.invalidator != nil {
			s.invalidator.Invalidate(ctx)
		}
		return
	}

	prommetrics.RecordPointsAwarded("approval", sub.PointsAwarded)
	prommetrics.RecordPointsAwarded("level_up", out.level.BonusPoints)
	prommetrics.RecordPointsAwarded("streak", out.streak.BonusPoints)
	if out.level.LeveledUp {
		prommetrics.RecordLevelUp(strconv.Itoa(out.level.NewLevel))
	}
	if out.streak.BonusPoints > 0 {
		prommetrics.RecordStreakMilestone(strconv.Itoa(out.streak.Current))
	}
	logEvent.
		Int("points", sub.PointsAwarded).
		Int("level", out.level.NewLevel).
		Int("streak", out.streak.Current).
		Int("achievements", len(out.unlocked)).
		Msg("Submission approved")

	if s.achievements != nil && len(out.unlocked) > 0 {
		s.achievements.Announce(ctx, sub.UserID, out.unlocked)
	}
	if s.notifier != nil {
		if out.level.LeveledUp {
			s.notifier.LevelUp(ctx, sub.UserID, out.level.NewLevel, leveling.Name(out.level.NewLevel), out.level.BonusPoints)
		}
		s.notifier.SubmissionApproved(ctx, sub)
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
}

func (s *Service) refreshPending() {
	count, err := repository.NewSubmissionRepository(s.db).CountByStatus(models.SubmissionPending)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to count pending submissions")
		return
	}
	prommetrics.SetPendingSubmissions(int(count))
}

// GetSubmission returns a submission visible to the requester: its owner or any admin.
func (s *Service) GetSubmission(ctx context.Context, requester *models.User, id uint) (*models.Submission, error) {
	sub, err := repository.NewSubmissionRepository(s.db).GetByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("submission", id)
		}
		return nil, apperror.Storage("load submission", err)
	}
	if !requester.IsAdmin() && sub.UserID != requester.ID {
		return nil, apperror.Forbidden("submission belongs to another user")
	}
	return sub, nil
}

// Page is one page of submissions.
type Page struct {
	Submissions []models.Submission `json:"submissions"`
	Total       int64               `json:"total"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
}

// ListSubmissions returns submissions for admins, optionally filtered by status.
func (s *Service) ListSubmissions(ctx context.Context, status string, page, pageSize int) (*Page, error) {
	switch status {
	case "", models.SubmissionPending, models.SubmissionApproved, models.SubmissionDeclined:
	default:
		return nil, apperror.Validation("unknown status %q", status)
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	subs, total, err := repository.NewSubmissionRepository(s.db).List(repository.SubmissionFilter{
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, apperror.Storage("list submissions", err)
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	return &Page{Submissions: subs, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListUserSubmissions returns a user's own submissions, newest first.
func (s *Service) ListUserSubmissions(ctx context.Context, userID uint) ([]models.Submission, error) {
	subs, err := repository.NewSubmissionRepository(s.db).ListByUser(userID)
	if err != nil {
		return nil, apperror.Storage("list user submissions", err)
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	return subs, nil
}

// MapPlantings returns approved plantings with coordinates.
func (s *Service) MapPlantings(ctx context.Context) ([]models.MapPlanting, error) {
	plantings, err := repository.NewSubmissionRepository(s.db).ListMapPlantings(defaultMapLimit)
	if err != nil {
		return nil, apperror.Storage("list map plantings", err)
	}
	if plantings == nil {
		plantings = []models.MapPlanting{}
	}
	return plantings, nil
}
