package middleware

import (
	"net/http"
	"strings"

	"github.com/avkuzmin/logistics-backend/internal/service"
	"github.com/avkuzmin/logistics-backend/internal/telegram"
	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

type AuthMiddleware struct {
	botToken string
	users    service.UserService
}

func NewAuthMiddleware(botToken string, users service.UserService) *AuthMiddleware {
	return &AuthMiddleware{botToken: botToken, users: users}
}

// RequireAuth expects "Authorization: tma <initData>" (the Telegram Mini-App
// convention), verifies the signature on every request and stashes the
// {id, role} principal in the echo context.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get("Authorization")
		scheme, initData, ok := strings.Cut(authz, " ")
		if !ok || !strings.EqualFold(scheme, "tma") || initData == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		tgUser, err := telegram.Verify(initData, m.botToken)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid telegram data"})
		}
		u, err := m.users.GetOrCreate(c.Request().Context(), tgUser.ID, tgUser.Username, tgUser.FirstName, tgUser.LastName)
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "unavailable"})
		}
		c.Set(principalKey, service.Actor{ID: u.ID, Role: u.Role})
		return next(c)
	}
}

// Principal returns the authenticated actor set by RequireAuth.
func Principal(c echo.Context) (service.Actor, bool) {
	actor, ok := c.Get(principalKey).(service.Actor)
	return actor, ok
}
