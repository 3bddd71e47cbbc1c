package scheduler

import (
	"time"

	"github.com/ecoplant/plant-rewards/internal/mattermost"
	"github.com/ecoplant/plant-rewards/internal/models"
)

// buildPending transforms submissions into the Mattermost reminder format.
func buildPending(subs []models.Submission) []mattermost.PendingSubmission {
	pending := make([]mattermost.PendingSubmission, 0, len(subs))
	for _, sub := range subs {
		author := "unknown"
		if sub.User != nil {
			author = sub.User.Name
		}
		pending = append(pending, mattermost.PendingSubmission{
			ID:        sub.ID,
			Title:     sub.Title,
			UserName:  author,
			CreatedAt: sub.CreatedAt,
		})
	}
	return pending
}

// filterRecent drops submissions younger than minAge.
func filterRecent(pending []mattermost.PendingSubmission, now time.Time, minAge time.Duration) []mattermost.PendingSubmission {
	var filtered []mattermost.PendingSubmission
	for _, p := range pending {
		if now.Sub(p.CreatedAt) >= minAge {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
