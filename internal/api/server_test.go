package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"brigade/internal/config"
	"brigade/internal/database"
	"brigade/internal/kds"
	"brigade/internal/models"
	"brigade/internal/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, secret string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.InitDB(config.DatabaseConfig{Dialect: config.DialectSQLite, Path: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	monitor := monitoring.NewMonitor()
	return NewServer(kds.NewStore(db, kds.WithMonitor(monitor)), nil, monitor, secret)
}

func do(s *Server, method, path string, body interface{}, header ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func createTestOrder(t *testing.T, s *Server, pos string) uint {
	t.Helper()
	w := do(s, http.MethodPost, "/api/kds-order", gin.H{
		"pos_order_id": pos,
		"order_number": "7",
		"items": []gin.H{
			{"item_name": "Burger", "quantity": 2, "station": "grill"},
			{"item_name": "Fries", "quantity": 1, "station": "fryer", "special_instructions": "no salt, extra crispy"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Success        bool `json:"success"`
		KitchenOrderID uint `json:"kitchen_order_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	return resp.KitchenOrderID
}

func listOrders(t *testing.T, s *Server, query string) []models.KitchenOrder {
	t.Helper()
	w := do(s, http.MethodGet, "/api/kds-orders"+query, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.KitchenOrder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	return orders
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t, "")
	w := do(s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Contains(t, resp, "uptime")
}

func TestCreateAndListOrders(t *testing.T) {
	s := setupTestServer(t, "")
	id := createTestOrder(t, s, "pos-1")

	orders := listOrders(t, s, "?status=pending")
	require.Len(t, orders, 1)
	assert.Equal(t, id, orders[0].ID)
	assert.Equal(t, models.StatusPending, orders[0].Status)
	require.Len(t, orders[0].Items, 2)
	assert.Equal(t, []string{"no salt", "extra crispy"}, orders[0].Items[1].Instructions())

	assert.Empty(t, listOrders(t, s, "?status=ready"))
	assert.Len(t, listOrders(t, s, "?status=ready&status2=pending"), 1)
}

func TestCreateOrderValidation(t *testing.T) {
	s := setupTestServer(t, "")

	tests := []struct {
		name string
		body interface{}
	}{
		{"malformed json", "not an order"},
		{"missing items", gin.H{"pos_order_id": "p", "order_number": "1"}},
		{"unknown status", gin.H{"pos_order_id": "p", "order_number": "1", "items": []gin.H{}, "status": "cooking"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/api/kds-order", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUpdateItemStatus(t *testing.T) {
	s := setupTestServer(t, "")
	createTestOrder(t, s, "pos-1")
	item := listOrders(t, s, "")[0].Items[0]

	w := do(s, http.MethodPost, fmt.Sprintf("/api/kds-items/%d/mark-prepared", item.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                    `json:"success"`
		Item    models.KitchenOrderItem `json:"item"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Item.PreparedQuantity)
	assert.Equal(t, models.StatusReady, resp.Item.Status())

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, fmt.Sprintf("/api/kds-items/%d/mark-cooked", item.ID), nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/kds-items/abc/unmark", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodPost, "/api/kds-items/9999/unmark", nil).Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	s := setupTestServer(t, "")
	id := createTestOrder(t, s, "pos-1")

	w := do(s, http.MethodPost, fmt.Sprintf("/api/kds-orders/%d/mark-ready", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool                `json:"success"`
		Order   models.KitchenOrder `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusReady, resp.Order.Status)
	assert.True(t, resp.Order.AllPrepared())

	w = do(s, http.MethodPost, "/api/kds-orders/pos-1/mark-fulfilled?skipItemUpdate=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusFulfilled, resp.Order.Status)
	assert.False(t, resp.Order.AllFulfilled())
}

func TestUpdateOrderStatusErrors(t *testing.T) {
	s := setupTestServer(t, "")
	id := createTestOrder(t, s, "pos-1")

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, fmt.Sprintf("/api/kds-orders/%d/mark-cooking", id), nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, fmt.Sprintf("/api/kds-orders/%d/ready", id), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodPost, "/api/kds-orders/missing/mark-ready", nil).Code)
}

type failingOrders struct {
	err error
}

func (f failingOrders) ListOrders(context.Context, models.ListQuery) ([]models.KitchenOrder, error) {
	return nil, f.err
}

func (f failingOrders) CreateOrder(context.Context, models.CreateOrderRequest) (uint, error) {
	return 0, f.err
}

func (f failingOrders) UpdateItemStatus(context.Context, uint, models.ItemAction) (*models.KitchenOrderItem, error) {
	return nil, f.err
}

func (f failingOrders) UpdateOrderStatus(context.Context, string, models.OrderStatus, bool) (*models.KitchenOrder, error) {
	return nil, f.err
}

func TestErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid payload", fmt.Errorf("%w: missing items", kds.ErrInvalidPayload), http.StatusBadRequest},
		{"invalid status", kds.ErrInvalidStatus, http.StatusBadRequest},
		{"item not found", kds.ErrItemNotFound, http.StatusNotFound},
		{"order not found", kds.ErrOrderNotFound, http.StatusNotFound},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"infrastructure", &kds.InfrastructureError{Op: "list orders", Err: errors.New("connection refused")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(failingOrders{err: tt.err}, nil, nil, "")
			w := do(s, http.MethodGet, "/api/kds-orders", nil)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection refused")
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := setupTestServer(t, "kitchen-secret")

	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/api/kds-orders", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/api/kds-orders", nil, "Authorization", "Bearer nonsense").Code)

	forged, err := SignToken("other-secret", "pos")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/api/kds-orders", nil, "Authorization", "Bearer "+forged).Code)

	token, err := SignToken("kitchen-secret", "pos")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/kds-orders", nil, "Authorization", "Bearer "+token).Code)

	// Health stays open for load balancers.
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health", nil).Code)
}
