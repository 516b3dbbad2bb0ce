package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.respondError(c, "List notifications", err)
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

	notifications, err := h.services.Notifications.ListForUser(c.Request.Context(), actorFrom(c).ID, unreadOnly, limit)
	if err != nil {
		h.respondError(c, "List notifications", err)
		return
	}

	respondOK(c, http.StatusOK, notifications)
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.services.Notifications.MarkRead(c.Request.Context(), actorFrom(c).ID, c.Param("id")); err != nil {
		h.respondError(c, "Mark notification read", err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"id": c.Param("id"), "read": true})
}
