// Package trust implements trust rating penalties, recovery policies and rank scores.
package trust

import (
	"time"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// Rank score weights.
const (
	pointsWeight = 0.6
	trustWeight  = 0.4
)

// Clamp bounds a trust rating to [0, MaxTrustRating].
func Clamp(rating int) int {
	if rating < 0 {
		return 0
	}
	if rating > models.MaxTrustRating {
		return models.MaxTrustRating
	}
	return rating
}

// ApplyDeclinePenalty lowers trust by one (floored at zero), counts the decline
// and restarts the recovery clock. It reports whether the rating changed.
func ApplyDeclinePenalty(user *models.User, now time.Time) bool {
	before := user.TrustRating
	user.TrustRating = Clamp(user.TrustRating - 1)
	user.DeclinedCount++
	user.LastTrustRecovery = now
	return user.TrustRating != before
}

// RankScore is points*0.6 + (trust/10)*100*0.4.
func RankScore(user *models.User) float64 {
	return RankScoreOf(user.Points, user.TrustRating)
}

// RankScoreOf computes the rank score from raw values.
func RankScoreOf(points, trustRating int) float64 {
	return float64(points)*pointsWeight + (float64(trustRating)/float64(models.MaxTrustRating))*100*trustWeight
}

// RecoveryPolicy decides whether a user regains trust at now and applies it.
type RecoveryPolicy interface {
	Apply(user *models.User, now time.Time) bool
	Enabled() bool
}

// DisabledRecovery never restores trust.
type DisabledRecovery struct{}

// Apply is a no-op.
func (DisabledRecovery) Apply(*models.User, time.Time) bool { return false }

// Enabled reports false.
func (DisabledRecovery) Enabled() bool { return false }

// IntervalRecovery restores one trust point per elapsed Interval since the last
// recovery, capped at MaxTrustRating.
type IntervalRecovery struct {
	Interval time.Duration
}

// Enabled reports true.
func (IntervalRecovery) Enabled() bool { return true }

// Apply restores trust for whole elapsed intervals and advances LastTrustRecovery
// by the consumed intervals.
func (p IntervalRecovery) Apply(user *models.User, now time.Time) bool {
	if p.Interval <= 0 || user.TrustRating >= models.MaxTrustRating {
		return false
	}

	elapsed := now.Sub(user.LastTrustRecovery)
	steps := int(elapsed / p.Interval)
	if steps <= 0 {
		return false
	}

	gain := steps
	if room := models.MaxTrustRating - user.TrustRating; gain > room {
		gain = room
	}
	user.TrustRating += gain
	if user.TrustRating >= models.MaxTrustRating {
		user.LastTrustRecovery = now
	} else {
		user.LastTrustRecovery = user.LastTrustRecovery.Add(time.Duration(steps) * p.Interval)
	}
	return true
}

// NewPolicy returns IntervalRecovery when enabled, otherwise DisabledRecovery.
func NewPolicy(enabled bool, intervalDays int) RecoveryPolicy {
	if !enabled || intervalDays <= 0 {
		return DisabledRecovery{}
	}
	return IntervalRecovery{Interval: time.Duration(intervalDays) * 24 * time.Hour}
}
