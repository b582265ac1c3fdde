package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avkuzmin/logistics-backend/internal/middleware"
	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	notifications service.NotificationService
}

func NewNotificationHandler(notifications service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

type NotificationResponse struct {
	ID        uint64  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	OrderID   *uint64 `json:"order_id,omitempty"`
	TicketID  *uint64 `json:"ticket_id,omitempty"`
	ReadAt    *string `json:"read_at,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func toNotificationResponse(n *model.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		OrderID:   n.OrderID,
		TicketID:  n.TicketID,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		at := n.ReadAt.Format(time.RFC3339)
		resp.ReadAt = &at
	}
	return resp
}

func (h *NotificationHandler) List(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	unreadOnly := c.QueryParam("unread") == "true"
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, unread, err := h.notifications.List(c.Request().Context(), actor.ID, unreadOnly, limit)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]NotificationResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toNotificationResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": resp,
		"unread":        unread,
	})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	if err := h.notifications.MarkAllRead(c.Request().Context(), actor.ID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
