// Package streak tracks consecutive calendar days of activity.
package streak

import (
	"time"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// milestones maps an exact streak length to its bonus.
var milestones = map[int]int{
	7:  100,
	14: 250,
	30: 500,
}

// MilestoneBonus returns the bonus for reaching exactly days, or zero.
func MilestoneBonus(days int) int {
	return milestones[days]
}

// Result describes the outcome of Update.
type Result struct {
	SameDay     bool `json:"same_day"`
	Broken      bool `json:"broken"`
	Current     int  `json:"current"`
	Longest     int  `json:"longest"`
	BonusPoints int  `json:"bonus_points"`
}

// Update advances the user's streak for activity at now. Days are compared as
// calendar dates in loc. A milestone bonus is credited to the user's points.
func Update(user *models.User, now time.Time, loc *time.Location) Result {
	if loc == nil {
		loc = time.UTC
	}

	if user.LastActivityDate == nil {
		user.CurrentStreak = 1
		if user.LongestStreak < 1 {
			user.LongestStreak = 1
		}
		stamp(user, now)
		return Result{Current: user.CurrentStreak, Longest: user.LongestStreak}
	}

	gap := DaysBetween(*user.LastActivityDate, now, loc)
	switch {
	case gap <= 0:
		return Result{SameDay: true, Current: user.CurrentStreak, Longest: user.LongestStreak}
	case gap == 1:
		user.CurrentStreak++
		if user.CurrentStreak > user.LongestStreak {
			user.LongestStreak = user.CurrentStreak
		}
		bonus := MilestoneBonus(user.CurrentStreak)
		user.Points += bonus
		stamp(user, now)
		return Result{Current: user.CurrentStreak, Longest: user.LongestStreak, BonusPoints: bonus}
	default:
		user.CurrentStreak = 1
		stamp(user, now)
		return Result{Broken: true, Current: user.CurrentStreak, Longest: user.LongestStreak}
	}
}

func stamp(user *models.User, now time.Time) {
	t := now
	user.LastActivityDate = &t
}

// DaysBetween counts calendar-day boundaries from a to b in loc.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
