// Package leveling converts experience into levels and level-up bonuses.
package leveling

import (
	"strconv"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// MaxLevel is the highest reachable level.
const MaxLevel = 100

// stepAfterTable is the XP between consecutive levels past the table.
const stepAfterTable = 2000

// thresholds[i] is the experience required to reach level i+1.
var thresholds = [...]int{
	0, 500, 1000, 1800, 2800, 4000, 5500, 7500, 10000, 13000,
	16500, 20500, 25000, 30000, 35500, 41500, 48000, 55000, 62500, 70500,
}

var names = [...]string{
	"Seedling",
	"Sprout",
	"Sapling",
	"Young Tree",
	"Growing Tree",
	"Strong Tree",
	"Grove Keeper",
	"Forest Guardian",
	"Forest Elder",
	"Eco Legend",
}

// Threshold returns the experience required to reach level.
func Threshold(level int) int {
	if level <= 1 {
		return 0
	}
	if level <= len(thresholds) {
		return thresholds[level-1]
	}
	return thresholds[len(thresholds)-1] + (level-len(thresholds))*stepAfterTable
}

// LevelFor returns the largest level whose threshold is at most experience.
func LevelFor(experience int) int {
	level := 1
	for level < MaxLevel && experience >= Threshold(level+1) {
		level++
	}
	return level
}

// Name returns the display name of a level.
func Name(level int) string {
	if level < 1 {
		level = 1
	}
	if level <= len(names) {
		return names[level-1]
	}
	return "Master " + strconv.Itoa(level-len(names))
}

// Result describes the outcome of AddExperience.
type Result struct {
	LeveledUp   bool `json:"leveled_up"`
	OldLevel    int  `json:"old_level"`
	NewLevel    int  `json:"new_level"`
	BonusPoints int  `json:"bonus_points"`
}

// AddExperience adds amount XP, raises the level across every crossed threshold
// and credits level*100 points per level reached.
func AddExperience(user *models.User, amount int) Result {
	if user.Level < 1 {
		user.Level = 1
	}
	res := Result{OldLevel: user.Level, NewLevel: user.Level}
	if amount > 0 {
		user.Experience += amount
	}

	for user.Level < MaxLevel && user.Experience >= Threshold(user.Level+1) {
		user.Level++
		res.BonusPoints += user.Level * 100
	}

	res.NewLevel = user.Level
	res.LeveledUp = res.NewLevel > res.OldLevel
	user.Points += res.BonusPoints
	return res
}

// Progress is the experience position within the current level.
type Progress struct {
	Level        int    `json:"level"`
	LevelName    string `json:"level_name"`
	Experience   int    `json:"experience"`
	CurrentFloor int    `json:"current_level_xp"`
	NextLevelXP  int    `json:"next_level_xp"`
	IntoLevel    int    `json:"xp_into_level"`
	NeededXP     int    `json:"xp_needed"`
	Percent      int    `json:"percent"`
}

// ProgressOf reports how far a user is into their current level.
func ProgressOf(user *models.User) Progress {
	level := user.Level
	if level < 1 {
		level = 1
	}
	floor := Threshold(level)
	p := Progress{
		Level:        level,
		LevelName:    Name(level),
		Experience:   user.Experience,
		CurrentFloor: floor,
		IntoLevel:    user.Experience - floor,
	}
	if level >= MaxLevel {
		p.NextLevelXP = floor
		p.Percent = 100
		return p
	}

	next := Threshold(level + 1)
	p.NextLevelXP = next
	p.NeededXP = next - user.Experience
	if span := next - floor; span > 0 {
		p.Percent = p.IntoLevel * 100 / span
	}
	if p.Percent > 100 {
		p.Percent = 100
	}
	if p.Percent < 0 {
		p.Percent = 0
	}
	return p
}
