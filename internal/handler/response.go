package handler

import (
	"errors"
	"net/http"

	"github.com/avkuzmin/logistics-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the failure envelope the front end expects: a flat
// {"error": "..."} with a non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidState):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrAlreadyAssigned):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, ErrorResponse{Error: err.Error()})
}
