package achievements

import (
	"time"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// Qualifies reports whether stats meet an achievement's condition.
func Qualifies(a models.Achievement, stats models.AchievementStats) bool {
	current, ok := stats.Value(a.ConditionType)
	if !ok {
		return false
	}
	return current >= a.ConditionValue
}

// Evaluate returns the catalog entries not yet earned that stats now satisfy,
// in catalog order.
func Evaluate(catalog []models.Achievement, earned map[string]bool, stats models.AchievementStats) []models.Achievement {
	var unlocked []models.Achievement
	for _, a := range catalog {
		if earned[a.ID] {
			continue
		}
		if Qualifies(a, stats) {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}

// Progress is an achievement as seen by one user.
type Progress struct {
	models.Achievement
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
	Current  int        `json:"current"`
	Target   int        `json:"target"`
	Percent  int        `json:"percent"`
}

// ProgressFor computes current/target and a floored percentage capped at 100.
func ProgressFor(a models.Achievement, stats models.AchievementStats) Progress {
	current, _ := stats.Value(a.ConditionType)
	p := Progress{Achievement: a, Current: current, Target: a.ConditionValue}
	if a.ConditionValue > 0 {
		p.Percent = current * 100 / a.ConditionValue
	}
	if p.Percent > 100 {
		p.Percent = 100
	}
	if p.Percent < 0 {
		p.Percent = 0
	}
	return p
}
