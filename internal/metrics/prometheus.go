// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the rewards service.
var (
	// Counters.
	SubmissionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plant_submissions_created_total",
			Help: "Total number of plant submissions received",
		},
		[]string{"plant_type"},
	)

	SubmissionsModeratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plant_submissions_moderated_total",
			Help: "Total number of admin actions applied to submissions",
		},
		[]string{"action", "result"},
	)

	PointsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_awarded_total",
			Help: "Total points credited to users",
		},
		[]string{"source"},
	)

	PointsSpentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "points_spent_total",
			Help: "Total points spent on redemptions",
		},
	)

	RedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Total redemption attempts by outcome",
		},
		[]string{"result"},
	)

	AchievementsUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Total number of achievements unlocked",
		},
		[]string{"achievement"},
	)

	LevelUpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Total number of level-ups by reached level",
		},
		[]string{"level"},
	)

	StreakMilestonesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_milestones_total",
			Help: "Total number of streak milestone bonuses paid",
		},
		[]string{"days"},
	)

	TrustPenaltiesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trust_penalties_total",
			Help: "Total number of trust rating decreases caused by declined submissions",
		},
	)

	TrustRecoveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trust_recoveries_total",
			Help: "Total number of periodic trust recoveries applied",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total notifications emitted by type and outcome",
		},
		[]string{"type", "status"},
	)

	LeaderboardCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_cache_total",
			Help: "Leaderboard cache lookups by result",
		},
		[]string{"result"},
	)

	RateLimitedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Total requests rejected by the rate limiter",
		},
	)

	// Gauges.
	PendingSubmissions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_submissions",
			Help: "Number of submissions awaiting moderation at the last check",
		},
	)

	AchievementHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "achievement_holders",
			Help: "Current number of users holding each achievement",
		},
		[]string{"achievement"},
	)

	// Histograms.
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "route", "status"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
		[]string{"job"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute scheduler jobs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
		},
		[]string{"job"},
	)
)

// RecordSubmissionCreated records a new plant submission.
func RecordSubmissionCreated(plantType string) {
	SubmissionsCreatedTotal.WithLabelValues(plantType).Inc()
}

// RecordModeration records an admin action and its outcome (applied, noop, conflict).
func RecordModeration(action, result string) {
	SubmissionsModeratedTotal.WithLabelValues(action, result).Inc()
}

// RecordPointsAwarded adds credited points for a source (approval, achievement, level, streak).
func RecordPointsAwarded(source string, points int) {
	if points <= 0 {
		return
	}
	PointsAwardedTotal.WithLabelValues(source).Add(float64(points))
}

// RecordRedemption records a redemption attempt outcome and the points spent on success.
func RecordRedemption(result string, price int) {
	RedemptionsTotal.WithLabelValues(result).Inc()
	if result == "success" && price > 0 {
		PointsSpentTotal.Add(float64(price))
	}
}

// RecordAchievementUnlocked records an achievement unlock.
func RecordAchievementUnlocked(achievementID string) {
	AchievementsUnlockedTotal.WithLabelValues(achievementID).Inc()
}

// RecordLevelUp records reaching a level.
func RecordLevelUp(level string) {
	LevelUpsTotal.WithLabelValues(level).Inc()
}

// RecordStreakMilestone records a milestone bonus.
func RecordStreakMilestone(days string) {
	StreakMilestonesTotal.WithLabelValues(days).Inc()
}

// RecordTrustPenalty records a trust decrease.
func RecordTrustPenalty() {
	TrustPenaltiesTotal.Inc()
}

// RecordTrustRecovery records a trust recovery step.
func RecordTrustRecovery() {
	TrustRecoveriesTotal.Inc()
}

// RecordNotification records a notification emission outcome (sent, failed).
func RecordNotification(notificationType, status string) {
	NotificationsTotal.WithLabelValues(notificationType, status).Inc()
}

// RecordLeaderboardCache records a cache lookup (hit, miss, error).
func RecordLeaderboardCache(result string) {
	LeaderboardCacheTotal.WithLabelValues(result).Inc()
}

// RecordRateLimited records a throttled request.
func RecordRateLimited() {
	RateLimitedRequestsTotal.Inc()
}

// SetPendingSubmissions sets the number of pending submissions.
func SetPendingSubmissions(count int) {
	PendingSubmissions.Set(float64(count))
}

// SetAchievementHolders sets the number of holders for an achievement.
func SetAchievementHolders(achievementID string, count int) {
	AchievementHolders.WithLabelValues(achievementID).Set(float64(count))
}

// ObserveHTTPRequest observes a request latency.
func ObserveHTTPRequest(method, route, status string, seconds float64) {
	HTTPRequestDurationSeconds.WithLabelValues(method, route, status).Observe(seconds)
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// SetSchedulerLastRun sets the timestamp of the last run of a job.
func SetSchedulerLastRun(job string) {
	SchedulerLastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}
