package handler

import (
	"net/http"

	"github.com/avkuzmin/logistics-backend/internal/middleware"
	"github.com/avkuzmin/logistics-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type StatsHandler struct {
	stats service.StatsService
}

func NewStatsHandler(stats service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) Stats(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	stats, err := h.stats.Stats(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"stats": stats})
}
