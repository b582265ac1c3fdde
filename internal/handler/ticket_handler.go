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

type TicketHandler struct {
	tickets service.TicketService
}

func NewTicketHandler(tickets service.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

type TicketResponse struct {
	ID         uint64  `json:"id"`
	OrderID    uint64  `json:"order_id"`
	ClientID   uint64  `json:"client_id"`
	ManagerID  *uint64 `json:"manager_id"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	AcceptedAt *string `json:"accepted_at,omitempty"`
}

func toTicketResponse(t *model.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:        t.ID,
		OrderID:   t.OrderID,
		ClientID:  t.ClientID,
		ManagerID: t.ManagerID,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
	if t.AcceptedAt != nil {
		at := t.AcceptedAt.Format(time.RFC3339)
		resp.AcceptedAt = &at
	}
	return resp
}

// ContactLogist opens a support ticket on the order ("contact logist" button
// in the client UI).
func (h *TicketHandler) ContactLogist(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}
	t, err := h.tickets.Create(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"ticket": toTicketResponse(t)})
}

func (h *TicketHandler) List(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	list, err := h.tickets.List(c.Request().Context(), actor, model.TicketStatus(c.QueryParam("status")))
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]TicketResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toTicketResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tickets": resp})
}

func (h *TicketHandler) Accept(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ticket id"})
	}
	t, err := h.tickets.Accept(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ticket": toTicketResponse(t)})
}

func (h *TicketHandler) Close(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ticket id"})
	}
	t, err := h.tickets.Close(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ticket": toTicketResponse(t)})
}
