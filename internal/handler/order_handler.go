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

type OrderHandler struct {
	orders service.OrderService
	offers service.OfferService
}

func NewOrderHandler(orders service.OrderService, offers service.OfferService) *OrderHandler {
	return &OrderHandler{orders: orders, offers: offers}
}

type OrderResponse struct {
	ID                uint64  `json:"id"`
	ClientID          uint64  `json:"client_id"`
	ManagerID         *uint64 `json:"manager_id"`
	Status            string  `json:"status"`
	Description       string  `json:"description"`
	FromAddress       string  `json:"from_address"`
	ToAddress         string  `json:"to_address"`
	FromContact       string  `json:"from_contact"`
	ToContact         string  `json:"to_contact"`
	Weight            float64 `json:"weight"`
	Price             float64 `json:"price"`
	OfferStatus       string  `json:"offer_status"`
	OfferPrice        float64 `json:"offer_price,omitempty"`
	OfferCurrency     string  `json:"offer_currency,omitempty"`
	OfferDeliveryDays int     `json:"offer_delivery_days,omitempty"`
	OfferComment      string  `json:"offer_comment,omitempty"`
	TrackingNumber    string  `json:"tracking_number,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func toOrderResponse(o *model.Order) OrderResponse {
	resp := OrderResponse{
		ID:             o.ID,
		ClientID:       o.ClientID,
		ManagerID:      o.ManagerID,
		Status:         string(o.Status),
		Description:    o.Description,
		FromAddress:    o.FromAddress,
		ToAddress:      o.ToAddress,
		FromContact:    o.FromContact,
		ToContact:      o.ToContact,
		Weight:         o.Weight,
		Price:          o.Price,
		OfferStatus:    string(o.OfferStatus),
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      o.UpdatedAt.Format(time.RFC3339),
	}
	// offer fields are meaningful only once a manager owns the order
	if o.ManagerID != nil {
		resp.OfferPrice = o.OfferPrice
		resp.OfferCurrency = o.OfferCurrency
		resp.OfferDeliveryDays = o.OfferDeliveryDays
		resp.OfferComment = o.OfferComment
	}
	return resp
}

type TrackingEventResponse struct {
	Status      string `json:"status"`
	Location    string `json:"location"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

func toTrackingResponse(list []model.TrackingEvent) []TrackingEventResponse {
	resp := make([]TrackingEventResponse, 0, len(list))
	for _, ev := range list {
		resp = append(resp, TrackingEventResponse{
			Status:      string(ev.Status),
			Location:    ev.Location,
			Description: ev.Description,
			CreatedAt:   ev.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

func orderID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func (h *OrderHandler) List(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	list, err := h.orders.List(c.Request().Context(), actor, c.QueryParam("type"))
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]OrderResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toOrderResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"orders": resp})
}

func (h *OrderHandler) Create(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	var body struct {
		Description string  `json:"description"`
		FromAddress string  `json:"from_address"`
		ToAddress   string  `json:"to_address"`
		FromContact string  `json:"from_contact"`
		ToContact   string  `json:"to_contact"`
		Weight      float64 `json:"weight"`
		Price       float64 `json:"price"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	o, err := h.orders.Create(c.Request().Context(), actor, service.CreateOrderInput{
		Description: body.Description,
		FromAddress: body.FromAddress,
		ToAddress:   body.ToAddress,
		FromContact: body.FromContact,
		ToContact:   body.ToContact,
		Weight:      body.Weight,
		Price:       body.Price,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"order": toOrderResponse(o)})
}

func (h *OrderHandler) Get(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}
	o, err := h.orders.Get(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	tracking, err := h.orders.Tracking(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"order":    toOrderResponse(o),
		"tracking": toTrackingResponse(tracking),
	})
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	o, err := h.orders.UpdateStatus(c.Request().Context(), actor, id, model.OrderStatus(body.Status))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"order": toOrderResponse(o)})
}

func (h *OrderHandler) Assign(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}
	o, err := h.orders.Claim(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"order": toOrderResponse(o)})
}

func (h *OrderHandler) SendOffer(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}
	var body struct {
		OfferPrice        float64 `json:"offer_price"`
		OfferCurrency     string  `json:"offer_currency"`
		OfferDeliveryDays int     `json:"offer_delivery_days"`
		OfferComment      string  `json:"offer_comment"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	o, err := h.offers.Send(c.Request().Context(), actor, id, service.OfferInput{
		Price:        body.OfferPrice,
		Currency:     body.OfferCurrency,
		DeliveryDays: body.OfferDeliveryDays,
		Comment:      body.OfferComment,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"order": toOrderResponse(o)})
}

func (h *OrderHandler) RespondOffer(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}
	var body struct {
		Decision string `json:"decision"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	o, err := h.offers.Respond(c.Request().Context(), actor, id, body.Decision)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"order": toOrderResponse(o)})
}

func (h *OrderHandler) Tracking(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}
	list, err := h.orders.Tracking(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tracking": toTrackingResponse(list)})
}
