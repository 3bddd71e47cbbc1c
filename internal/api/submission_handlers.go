package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecoplant/plant-rewards/internal/service/moderation"
)

// CreateSubmission records a new planting for review.
// POST /api/submissions.
func (h *Handler) CreateSubmission(c *gin.Context) {
	var req moderation.SubmitInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "submit plant", err)
		return
	}

	identity, _ := currentIdentity(c)
	sub, err := h.submissions.SubmitPlant(c.Request.Context(), identity.UserID, req)
	if err != nil {
		h.fail(c, "submit plant", err)
		return
	}

	h.log.Info().
		Uint("user_id", identity.UserID).
		Uint("submission_id", sub.ID).
		Msg("Submission created")

	c.JSON(http.StatusCreated, gin.H{"submission": sub})
}

// ListSubmissions returns submissions for moderators.
// GET /api/submissions?status=pending&page=1&page_size=20.
func (h *Handler) ListSubmissions(c *gin.Context) {
	page, err := parseIntQuery(c, "page")
	if err != nil {
		h.fail(c, "list submissions", err)
		return
	}
	pageSize, err := parseIntQuery(c, "page_size")
	if err != nil {
		h.fail(c, "list submissions", err)
		return
	}

	result, err := h.submissions.ListSubmissions(c.Request.Context(), c.Query("status"), page, pageSize)
	if err != nil {
		h.fail(c, "list submissions", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMySubmissions returns the caller's submissions.
// GET /api/submissions/mine.
func (h *Handler) ListMySubmissions(c *gin.Context) {
	identity, _ := currentIdentity(c)
	subs, err := h.submissions.ListUserSubmissions(c.Request.Context(), identity.UserID)
	if err != nil {
		h.fail(c, "list my submissions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"total":       len(subs),
	})
}

// GetSubmission returns one submission to its owner or an admin.
// GET /api/submissions/:id.
func (h *Handler) GetSubmission(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "get submission", err)
		return
	}

	identity, _ := currentIdentity(c)
	sub, err := h.submissions.GetSubmission(c.Request.Context(), requester(identity), id)
	if err != nil {
		h.fail(c, "get submission", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission": sub})
}

// SubmissionAction approves or declines a submission.
// POST /api/submissions/:id/action.
func (h *Handler) SubmissionAction(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "submission action", err)
		return
	}

	var req moderation.ActionInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "submission action", err)
		return
	}

	identity, _ := currentIdentity(c)
	sub, err := h.submissions.AdminAction(c.Request.Context(), id, identity.UserID, req)
	if err != nil {
		h.fail(c, "submission action", err)
		return
	}

	h.log.Info().
		Uint("submission_id", id).
		Uint("admin_id", identity.UserID).
		Str("action", req.Action).
		Str("status", sub.Status).
		Msg("Submission moderated")

	c.JSON(http.StatusOK, gin.H{"submission": sub})
}

// MapPlantings returns approved plantings with coordinates.
// GET /api/map/plantings.
func (h *Handler) MapPlantings(c *gin.Context) {
	plantings, err := h.submissions.MapPlantings(c.Request.Context())
	if err != nil {
		h.fail(c, "map plantings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plantings": plantings,
		"total":     len(plantings),
	})
}
