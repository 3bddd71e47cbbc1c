package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ecoplant/plant-rewards/internal/config"
	"github.com/ecoplant/plant-rewards/internal/mattermost"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/pkg/logger"
	"github.com/ecoplant/plant-rewards/test/mocks"
)

func TestBuildCronExpression(t *testing.T) {
	tests := []struct {
		name         string
		time         string
		skipWeekends bool
		want         string
		wantErr      bool
	}{
		{
			name: "daily at 9am",
			time: "09:00",
			want: "0 9 * * *",
		},
		{
			name:         "weekdays at 9am",
			time:         "09:00",
			skipWeekends: true,
			want:         "0 9 * * 1-5",
		},
		{
			name: "daily at 14:30",
			time: "14:30",
			want: "30 14 * * *",
		},
		{
			name:    "invalid format no colon",
			time:    "0900",
			wantErr: true,
		},
		{
			name:    "invalid hour",
			time:    "25:00",
			wantErr: true,
		},
		{
			name:    "invalid minute",
			time:    "09:60",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Service{config: &config.SchedulerConfig{
				Time:         tt.time,
				SkipWeekends: tt.skipWeekends,
			}}

			got, err := s.buildCronExpression()

			if (err != nil) != tt.wantErr {
				t.Errorf("buildCronExpression() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("buildCronExpression() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildPending_AuthorHandling(t *testing.T) {
	created := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	subs := []models.Submission{
		{ID: 1, Title: "Oak", User: &models.User{Name: "Alice"}, CreatedAt: created},
		{ID: 2, Title: "Pine", User: nil, CreatedAt: created},
	}

	got := buildPending(subs)
	if len(got) != 2 {
		t.Fatalf("Expected 2 pending submissions, got %d", len(got))
	}
	if got[0].UserName != "Alice" {
		t.Errorf("Expected author 'Alice', got %q", got[0].UserName)
	}
	if got[1].UserName != "unknown" {
		t.Errorf("Expected author 'unknown' for nil user, got %q", got[1].UserName)
	}
	if !got[0].CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, created)
	}
}

func TestFilterRecent(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	old := mattermost.PendingSubmission{Title: "Old", CreatedAt: now.Add(-6 * time.Hour)}
	recent := mattermost.PendingSubmission{Title: "Recent", CreatedAt: now.Add(-2 * time.Hour)}
	veryOld := mattermost.PendingSubmission{Title: "Very Old", CreatedAt: now.Add(-50 * time.Hour)}

	tests := []struct {
		name      string
		pending   []mattermost.PendingSubmission
		minAge    time.Duration
		wantCount int
	}{
		{"filter 4 hour minimum", []mattermost.PendingSubmission{old, recent, veryOld}, 4 * time.Hour, 2},
		{"no filter with zero min age", []mattermost.PendingSubmission{old, recent, veryOld}, 0, 3},
		{"filter all with high min age", []mattermost.PendingSubmission{old, recent, veryOld}, 100 * time.Hour, 0},
		{"empty input", nil, 4 * time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterRecent(tt.pending, now, tt.minAge)
			if len(got) != tt.wantCount {
				t.Errorf("filterRecent() returned %d, want %d", len(got), tt.wantCount)
			}
		})
	}
}

type stubSubmissions struct {
	subs  []models.Submission
	total int64
	err   error
	last  repository.SubmissionFilter
}

func (s *stubSubmissions) List(filter repository.SubmissionFilter) ([]models.Submission, int64, error) {
	s.last = filter
	return s.subs, s.total, s.err
}

func TestRunPendingReminder(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	lister := &stubSubmissions{
		subs: []models.Submission{
			{ID: 1, Title: "Old", CreatedAt: now.Add(-24 * time.Hour)},
			{ID: 2, Title: "Fresh", CreatedAt: now.Add(-time.Hour)},
		},
		total: 7,
	}
	alerter := mocks.NewMockAlerter()
	s := NewService(&config.SchedulerConfig{}, lister, alerter, nil, nil, logger.Nop())
	s.now = func() time.Time { return now }

	if err := s.RunPendingReminder(context.Background()); err != nil {
		t.Fatalf("RunPendingReminder() failed: %v", err)
	}
	if lister.last.Status != models.SubmissionPending {
		t.Errorf("listed status = %q, want pending", lister.last.Status)
	}
	if alerter.ReminderCount() != 1 {
		t.Fatalf("Expected 1 reminder, got %d", alerter.ReminderCount())
	}
	if len(alerter.Reminders[0]) != 1 || alerter.Reminders[0][0].ID != 1 {
		t.Errorf("Reminder listed %+v, want only submission 1", alerter.Reminders[0])
	}
	if alerter.Totals[0] != 7 {
		t.Errorf("Reminder total = %d, want 7", alerter.Totals[0])
	}

	// Nothing old enough: no message.
	lister.subs = lister.subs[1:]
	if err := s.RunPendingReminder(context.Background()); err != nil {
		t.Fatalf("RunPendingReminder() failed: %v", err)
	}
	if alerter.ReminderCount() != 1 {
		t.Errorf("Expected no new reminder, got %d total", alerter.ReminderCount())
	}

	lister.err = errors.New("db down")
	if err := s.RunPendingReminder(context.Background()); err == nil {
		t.Error("Expected error when listing fails")
	}
}

type stubSweeper struct {
	calls   int
	enabled bool
	err     error
}

func (s *stubSweeper) EvaluateAll(context.Context) (int, error) {
	s.calls++
	return 3, s.err
}

func (s *stubSweeper) RecoveryEnabled() bool { return s.enabled }

func (s *stubSweeper) RecoverTrustAll(context.Context) (int, error) {
	s.calls++
	return 2, s.err
}

func TestSweepJobs(t *testing.T) {
	ach := &stubSweeper{}
	tr := &stubSweeper{enabled: true}
	s := NewService(&config.SchedulerConfig{}, &stubSubmissions{}, nil, ach, tr, logger.Nop())

	if err := s.RunAchievementSweep(context.Background()); err != nil {
		t.Errorf("RunAchievementSweep() failed: %v", err)
	}
	if err := s.RunTrustRecovery(context.Background()); err != nil {
		t.Errorf("RunTrustRecovery() failed: %v", err)
	}
	if ach.calls != 1 || tr.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", ach.calls, tr.calls)
	}

	ach.err = errors.New("boom")
	s.runJob(context.Background(), JobAchievementSweep, s.RunAchievementSweep)
	if ach.calls != 2 {
		t.Errorf("runJob did not invoke the job")
	}
}

func TestStart_RegistersEnabledJobs(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SchedulerConfig
		trustOn  bool
		wantJobs int
		wantErr  bool
	}{
		{
			name:     "disabled",
			cfg:      config.SchedulerConfig{Enabled: false, Time: "09:00"},
			wantJobs: 0,
		},
		{
			name: "all jobs",
			cfg: config.SchedulerConfig{
				Enabled: true, Time: "09:00", Timezone: "UTC",
				AchievementSweepCron: "0 3 * * *", TrustRecoveryCron: "0 4 * * *",
			},
			trustOn:  true,
			wantJobs: 3,
		},
		{
			name: "trust recovery disabled by policy",
			cfg: config.SchedulerConfig{
				Enabled: true, Time: "09:00",
				AchievementSweepCron: "0 3 * * *", TrustRecoveryCron: "0 4 * * *",
			},
			wantJobs: 2,
		},
		{
			name:    "bad timezone",
			cfg:     config.SchedulerConfig{Enabled: true, Time: "09:00", Timezone: "Mars/Olympus"},
			wantErr: true,
		},
		{
			name:    "bad cron",
			cfg:     config.SchedulerConfig{Enabled: true, AchievementSweepCron: "every day"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			s := NewService(&cfg, &stubSubmissions{}, mocks.NewMockAlerter(), &stubSweeper{}, &stubSweeper{enabled: tt.trustOn}, logger.Nop())

			err := s.Start()
			defer s.Stop()

			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got := 0
			if s.cron != nil {
				got = len(s.cron.Entries())
			}
			if got != tt.wantJobs {
				t.Errorf("registered %d jobs, want %d", got, tt.wantJobs)
			}
		})
	}
}
