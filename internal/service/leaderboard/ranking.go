package leaderboard

import (
	"github.com/google/btree"

	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/service/leveling"
	"github.com/ecoplant/plant-rewards/internal/service/trust"
)

// Entry represents a single entry in a leaderboard.
type Entry struct {
	Rank          int     `json:"rank"`
	UserID        uint    `json:"user_id"`
	Name          string  `json:"name"`
	City          string  `json:"city"`
	Points        int     `json:"points"`
	TrustRating   int     `json:"trust_rating"`
	Level         int     `json:"level"`
	LevelName     string  `json:"level_name"`
	CurrentStreak int     `json:"current_streak"`
	Score         float64 `json:"score"`
}

// rankItem orders entries by score descending, then user id ascending.
type rankItem struct {
	entry Entry
}

func (a rankItem) Less(b btree.Item) bool {
	other := b.(rankItem)
	if a.entry.Score != other.entry.Score {
		return a.entry.Score > other.entry.Score
	}
	return a.entry.UserID < other.entry.UserID
}

// Rank scores users and returns them ordered with 1-based ranks.
func Rank(users []models.User) []Entry {
	tree := btree.New(2)
	for i := range users {
		u := &users[i]
		tree.ReplaceOrInsert(rankItem{entry: Entry{
			UserID:        u.ID,
			Name:          u.Name,
			City:          u.City,
			Points:        u.Points,
			TrustRating:   u.TrustRating,
			Level:         u.Level,
			LevelName:     leveling.Name(u.Level),
			CurrentStreak: u.CurrentStreak,
			Score:         trust.RankScore(u),
		}})
	}

	entries := make([]Entry, 0, tree.Len())
	tree.Ascend(func(it btree.Item) bool {
		e := it.(rankItem).entry
		e.Rank = len(entries) + 1
		entries = append(entries, e)
		return true
	})
	return entries
}

// Position is a user's place within a ranking.
type Position struct {
	Rank  int     `json:"rank"`
	Total int     `json:"total"`
	Score float64 `json:"score"`
}

// Find returns the position of userID in ranked entries.
func Find(entries []Entry, userID uint) (Position, bool) {
	for _, e := range entries {
		if e.UserID == userID {
			return Position{Rank: e.Rank, Total: len(entries), Score: e.Score}, true
		}
	}
	return Position{Total: len(entries)}, false
}
