package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxNotificationLimit = 200

// ListNotifications returns the caller's inbox.
// GET /api/notifications?unread=true&limit=50.
func (h *Handler) ListNotifications(c *gin.Context) {
	limit, err := parseLimit(c, 0, maxNotificationLimit)
	if err != nil {
		h.fail(c, "list notifications", err)
		return
	}

	identity, _ := currentIdentity(c)
	inbox, err := h.notifications.List(c.Request.Context(), identity.UserID, c.Query("unread") == "true", limit)
	if err != nil {
		h.fail(c, "list notifications", err)
		return
	}
	c.JSON(http.StatusOK, inbox)
}

// MarkNotificationRead marks one notification as read.
// POST /api/notifications/:id/read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "mark notification read", err)
		return
	}

	identity, _ := currentIdentity(c)
	if err := h.notifications.MarkRead(c.Request.Context(), identity.UserID, id); err != nil {
		h.fail(c, "mark notification read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}

// MarkAllNotificationsRead marks the caller's inbox as read.
// POST /api/notifications/read-all.
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	identity, _ := currentIdentity(c)
	updated, err := h.notifications.MarkAllRead(c.Request.Context(), identity.UserID)
	if err != nil {
		h.fail(c, "mark all notifications read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteNotification removes one notification.
// DELETE /api/notifications/:id.
func (h *Handler) DeleteNotification(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "delete notification", err)
		return
	}

	identity, _ := currentIdentity(c)
	if err := h.notifications.Delete(c.Request.Context(), identity.UserID, id); err != nil {
		h.fail(c, "delete notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}
