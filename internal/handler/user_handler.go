package handler

import (
	"net/http"
	"strconv"

	"github.com/avkuzmin/logistics-backend/internal/middleware"
	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	users service.UserService
}

func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type UserResponse struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
	}
}

func (h *UserHandler) Me(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	u, err := h.users.Get(c.Request().Context(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	var body struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	u, err := h.users.UpdateProfile(c.Request().Context(), actor, service.ProfileInput{
		Username:  body.Username,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) List(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	list, err := h.users.List(c.Request().Context(), actor, model.Role(c.QueryParam("role")))
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]UserResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toUserResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": resp})
}

func (h *UserHandler) SetRole(c echo.Context) error {
	actor, _ := middleware.Principal(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	u, err := h.users.SetRole(c.Request().Context(), actor, id, model.Role(body.Role))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}
