package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/dto"
	"github.com/ignatzorin/citesignal-backend/internal/http/handlers/common"
	"github.com/ignatzorin/citesignal-backend/internal/http/response"
	"github.com/ignatzorin/citesignal-backend/internal/service"
)

// Inbox операции почтового ящика уведомлений.
type Inbox interface {
	List(ctx context.Context, userID uuid.UUID, page repository.Page, unreadOnly bool) (*service.NotificationList, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
}

// NotificationHandler обслуживает маршруты уведомлений.
type NotificationHandler struct {
	notifications Inbox
}

func NewNotificationHandler(notifications Inbox) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List обрабатывает GET /api/notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}
	page := common.GetPagination(c)
	unreadOnly := c.Query("unread_only") == "true"

	list, err := h.notifications.List(c.Request.Context(), userID, page, unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Paginated(c, dto.NewNotificationResponses(list.Notifications), list.Total, page.Limit, page.Offset)
}

// UnreadCount обрабатывает GET /api/notifications/unread/count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	count, err := h.notifications.CountUnread(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dto.UnreadCountResponse{Count: count})
}

// MarkAsRead обрабатывает PUT /api/notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllAsRead обрабатывает PUT /api/notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	if err := h.notifications.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	response.NoContent(c)
}
