package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/avkuzmin/logistics-backend/internal/config"
	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/repository"
	"github.com/avkuzmin/logistics-backend/internal/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "12345:test-bot-token"

type testServer struct {
	srv   *Server
	store *repository.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemory()
	cfg := &config.Config{Port: "0", BotToken: testBotToken}
	return &testServer{srv: New(cfg, MemoryRepositories(store), nil), store: store}
}

// authHeader mints a valid "tma <initData>" header for the given Telegram id.
func authHeader(t *testing.T, id uint64) string {
	t.Helper()
	values := url.Values{}
	values.Set("auth_date", "1714000000")
	values.Set("user", fmt.Sprintf(`{"id":%d,"username":"u%d","first_name":"User"}`, id, id))
	values.Set("hash", telegram.Sign(values, testBotToken))
	return "tma " + values.Encode()
}

func (ts *testServer) do(t *testing.T, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	ts.srv.Echo().ServeHTTP(rec, req)
	return rec
}

// promote authenticates the user once (which upserts it) and then flips its role.
func (ts *testServer) promote(t *testing.T, id uint64, role model.Role) {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/api/user", authHeader(t, id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ok, err := ts.store.Users().SetRole(context.Background(), id, role)
	require.NoError(t, err)
	require.True(t, ok)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/orders", "tma user=%7B%22id%22%3A1%7D&hash=deadbeef", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/orders", "Bearer sometoken", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	clientAuth := authHeader(t, 42)
	managerAuth := authHeader(t, 77)
	rivalAuth := authHeader(t, 88)
	ts.promote(t, 77, model.RoleManager)
	ts.promote(t, 88, model.RoleManager)

	// client creates an order
	rec := ts.do(t, http.MethodPost, "/api/orders", clientAuth, map[string]any{
		"description":  "fragile glassware",
		"from_address": "Pier 9",
		"to_address":   "Hill St 3",
		"weight":       4.2,
		"price":        150,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode(t, rec)["order"].(map[string]any)
	orderID := uint64(order["id"].(float64))
	assert.Equal(t, "pending", order["status"])

	// manager claims it; the rival gets a conflict
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/assign", orderID), managerAuth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	claimed := decode(t, rec)["order"].(map[string]any)
	assert.Equal(t, "accepted", claimed["status"])
	assert.Len(t, claimed["tracking_number"], 10)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/assign", orderID), rivalAuth, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// offer round-trip
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/offer", orderID), managerAuth, map[string]any{
		"offer_price": 100, "offer_currency": "USD", "offer_delivery_days": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/accept-offer", orderID), clientAuth, map[string]any{
		"decision": "accept",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accepted", decode(t, rec)["order"].(map[string]any)["offer_status"])

	// drive to completion
	for _, status := range []string{"in_transit", "out_for_delivery", "delivered", "completed"} {
		rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d/status", orderID), managerAuth, map[string]any{
			"status": status,
		})
		require.Equal(t, http.StatusOK, rec.Code, "advancing to %s", status)
	}

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), clientAuth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.Equal(t, "completed", payload["order"].(map[string]any)["status"])
	assert.Len(t, payload["tracking"].([]any), 5)

	// terminal order refuses further moves
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d/status", orderID), managerAuth, map[string]any{
		"status": "cancelled",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	clientAuth := authHeader(t, 42)

	// validation error
	rec := ts.do(t, http.MethodPost, "/api/orders", clientAuth, map[string]any{"description": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])

	// missing order
	rec = ts.do(t, http.MethodGet, "/api/orders/9999", clientAuth, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// role gate
	rec = ts.do(t, http.MethodGet, "/api/users", clientAuth, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContactLogistAndChat(t *testing.T) {
	ts := newTestServer(t)
	clientAuth := authHeader(t, 42)
	managerAuth := authHeader(t, 77)
	ts.promote(t, 77, model.RoleManager)

	rec := ts.do(t, http.MethodPost, "/api/orders", clientAuth, map[string]any{
		"description":  "pallet",
		"from_address": "A",
		"to_address":   "B",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := uint64(decode(t, rec)["order"].(map[string]any)["id"].(float64))

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/contact-logist", orderID), clientAuth, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	ticketID := uint64(decode(t, rec)["ticket"].(map[string]any)["id"].(float64))

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/tickets/%d/accept", ticketID), managerAuth, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// accepting the ticket bound the manager, so chat is open both ways
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/chat/%d/send", orderID), clientAuth, map[string]any{
		"message": "where is my cargo",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/chat/%d/send", orderID), managerAuth, map[string]any{
		"message": "on its way",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/chat/%d", orderID), clientAuth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decode(t, rec)["messages"].([]any)
	require.Len(t, messages, 2)

	// chat responses use the same snake_case contract as the rest of the API
	first := messages[0].(map[string]any)
	assert.Equal(t, "client", first["sender_role"])
	assert.Contains(t, first, "order_id")
	assert.Contains(t, first, "created_at")
	assert.NotContains(t, first, "senderRole")

	since := uint64(first["id"].(float64))
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/chat/%d?since=%d", orderID, since), clientAuth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["messages"].([]any), 1)

	// the ticket flow left notifications behind, also snake_case
	rec = ts.do(t, http.MethodGet, "/api/notifications", clientAuth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notifications := decode(t, rec)["notifications"].([]any)
	require.NotEmpty(t, notifications)
	notification := notifications[0].(map[string]any)
	assert.Contains(t, notification, "order_id")
	assert.Contains(t, notification, "created_at")
	assert.NotContains(t, notification, "orderId")
}
