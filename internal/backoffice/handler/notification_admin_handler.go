package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/repository"
)

// NotificationAdminHandler lets operators inspect what the closer told a user,
// the first thing support asks for when a winner disputes a settlement.
type NotificationAdminHandler struct {
	notifications *repository.NotificationRepository
}

// NewNotificationAdminHandler creates a NotificationAdminHandler.
func NewNotificationAdminHandler(notifications *repository.NotificationRepository) *NotificationAdminHandler {
	return &NotificationAdminHandler{notifications: notifications}
}

// ListByUser godoc
// GET /admin/users/:id/notifications?page=1&limit=50
func (h *NotificationAdminHandler) ListByUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	notes, err := h.notifications.ListByRecipient(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, notes, len(notes), page, limit)
}
