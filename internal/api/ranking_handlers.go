package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxRankingLimit = 1000

// GetGlobalRanking returns the global leaderboard.
// GET /api/ranking/global?limit=10.
func (h *Handler) GetGlobalRanking(c *gin.Context) {
	limit, err := parseLimit(c, h.defaultLimit, maxRankingLimit)
	if err != nil {
		h.fail(c, "global ranking", err)
		return
	}

	entries, err := h.ranking.GetGlobalRanking(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "global ranking", err)
		return
	}

	h.log.Debug().Int("limit", limit).Int("entries", len(entries)).Msg("Retrieved global ranking")

	c.JSON(http.StatusOK, gin.H{
		"ranking":       entries,
		"total_entries": len(entries),
		"generated_at":  h.now().UTC(),
	})
}

// GetCityRanking returns the leaderboard of one city.
// GET /api/ranking/city/:city?limit=10.
func (h *Handler) GetCityRanking(c *gin.Context) {
	city := c.Param("city")
	limit, err := parseLimit(c, h.defaultLimit, maxRankingLimit)
	if err != nil {
		h.fail(c, "city ranking", err)
		return
	}

	entries, err := h.ranking.GetCityRanking(c.Request.Context(), city, limit)
	if err != nil {
		h.fail(c, "city ranking", err)
		return
	}

	h.log.Debug().Str("city", city).Int("limit", limit).Int("entries", len(entries)).Msg("Retrieved city ranking")

	c.JSON(http.StatusOK, gin.H{
		"city":          city,
		"ranking":       entries,
		"total_entries": len(entries),
		"generated_at":  h.now().UTC(),
	})
}

// GetMyRank returns the caller's global and city positions.
// GET /api/my-rank.
func (h *Handler) GetMyRank(c *gin.Context) {
	identity, _ := currentIdentity(c)
	rank, err := h.ranking.GetMyRank(c.Request.Context(), identity.UserID)
	if err != nil {
		h.fail(c, "my rank", err)
		return
	}
	c.JSON(http.StatusOK, rank)
}

// GetUserRank returns a user's position, globally or within ?city=.
// GET /api/users/:id/rank.
func (h *Handler) GetUserRank(c *gin.Context) {
	userID, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "user rank", err)
		return
	}

	city := c.Query("city")
	pos, err := h.ranking.GetRank(c.Request.Context(), userID, city)
	if err != nil {
		h.fail(c, "user rank", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"city":     city,
		"position": pos,
	})
}

// GetMyStats returns the caller's dashboard statistics.
// GET /api/my-stats.
func (h *Handler) GetMyStats(c *gin.Context) {
	identity, _ := currentIdentity(c)
	stats, err := h.ranking.GetUserStats(c.Request.Context(), identity.UserID)
	if err != nil {
		h.fail(c, "my stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": h.now().UTC(),
	})
}

// GetAchievements returns the achievement catalog with the caller's progress.
// GET /api/achievements.
func (h *Handler) GetAchievements(c *gin.Context) {
	identity, _ := currentIdentity(c)
	progress, err := h.achievements.GetAchievementsWithProgress(c.Request.Context(), identity.UserID)
	if err != nil {
		h.fail(c, "achievements", err)
		return
	}

	earned := 0
	for _, p := range progress {
		if p.Earned {
			earned++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"achievements": progress,
		"earned":       earned,
		"total":        len(progress),
	})
}
