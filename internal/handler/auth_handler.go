package handler

import (
	"net/http"

	"github.com/avkuzmin/logistics-backend/internal/service"
	"github.com/avkuzmin/logistics-backend/internal/telegram"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	botToken string
	users    service.UserService
}

func NewAuthHandler(botToken string, users service.UserService) *AuthHandler {
	return &AuthHandler{botToken: botToken, users: users}
}

// Auth verifies the Mini-App initData and upserts the Telegram user. The same
// initData is then carried on every API request in the Authorization header.
func (h *AuthHandler) Auth(c echo.Context) error {
	var body struct {
		InitData string `json:"initData"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	tgUser, err := telegram.Verify(body.InitData, h.botToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid telegram data"})
	}
	u, err := h.users.GetOrCreate(c.Request().Context(), tgUser.ID, tgUser.Username, tgUser.FirstName, tgUser.LastName)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"user": map[string]interface{}{
			"id":   u.ID,
			"name": u.FirstName,
			"role": u.Role,
		},
	})
}
