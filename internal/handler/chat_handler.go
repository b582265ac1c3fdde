package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avkuzmin/logistics-backend/internal/middleware"
	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/labstack/echo/v4"

	"github.com/avkuzmin/logistics-backend/internal/service"
)

type ChatHandler struct {
	chat service.ChatService
}

func NewChatHandler(chat service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type ChatMessageResponse struct {
	ID         uint64 `json:"id"`
	OrderID    uint64 `json:"order_id"`
	SenderID   uint64 `json:"sender_id"`
	SenderRole string `json:"sender_role"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
}

func toChatMessageResponse(msg *model.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:         msg.ID,
		OrderID:    msg.OrderID,
		SenderID:   msg.SenderID,
		SenderRole: string(msg.SenderRole),
		Message:    msg.Message,
		CreatedAt:  msg.CreatedAt.Format(time.RFC3339),
	}
}

// List supports incremental polling: ?since=<last seen message id> returns
// only newer messages.
func (h *ChatHandler) List(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}
	var sinceID uint64
	if raw := c.QueryParam("since"); raw != "" {
		sinceID, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid since cursor"})
		}
	}
	list, err := h.chat.List(c.Request().Context(), actor, id, sinceID)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]ChatMessageResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toChatMessageResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": resp})
}

func (h *ChatHandler) Send(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	msg, err := h.chat.Post(c.Request().Context(), actor, id, body.Message)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"message": toChatMessageResponse(msg)})
}
