// Package client talks to the brigade server from a display terminal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"brigade/internal/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client handles API requests to the brigade server.
type Client struct {
	httpClient *http.Client
	BaseURL    string
	Token      string

	// Reconnect backoff for Listen.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// New creates a client for baseURL. token is sent as a bearer token when set.
func New(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    baseURL,
		Token:      token,
		MinBackoff: time.Second,
		MaxBackoff: 10 * time.Second,
	}
}

// CheckHealth checks if the server is up and running.
func (c *Client) CheckHealth(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ListOrders fetches orders matching q.
func (c *Client) ListOrders(ctx context.Context, q models.ListQuery) ([]models.KitchenOrder, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Status2 != "" {
		params.Set("status2", q.Status2)
	}
	if q.OrderBy != "" {
		params.Set("order_by", q.OrderBy)
	}
	path := "/api/kds-orders"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var orders []models.KitchenOrder
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder submits a new kitchen order and returns its id.
func (c *Client) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (uint, error) {
	var resp struct {
		KitchenOrderID uint `json:"kitchen_order_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/kds-order", req, &resp); err != nil {
		return 0, err
	}
	return resp.KitchenOrderID, nil
}

// UpdateItemStatus applies an item action.
func (c *Client) UpdateItemStatus(ctx context.Context, itemID uint, action models.ItemAction) (*models.KitchenOrderItem, error) {
	var resp struct {
		Item models.KitchenOrderItem `json:"item"`
	}
	path := fmt.Sprintf("/api/kds-items/%d/%s", itemID, url.PathEscape(string(action)))
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Item, nil
}

// UpdateOrderStatus moves an order, addressed by internal or POS id, to status.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, skipItemUpdate bool) (*models.KitchenOrder, error) {
	var resp struct {
		Order models.KitchenOrder `json:"order"`
	}
	path := fmt.Sprintf("/api/kds-orders/%s/mark-%s?skipItemUpdate=%s",
		url.PathEscape(orderID), url.PathEscape(string(status)), strconv.FormatBool(skipItemUpdate))
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
