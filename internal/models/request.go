package models

import "strings"

// ListAll disables status filtering when passed as ListQuery.Status.
const ListAll = "all"

// MaxListedOrders caps the number of orders a single list call returns.
const MaxListedOrders = 100

// ListQuery selects orders for a display.
type ListQuery struct {
	Status  string `form:"status" json:"status,omitempty"`
	Status2 string `form:"status2" json:"status2,omitempty"`
	OrderBy string `form:"order_by" json:"order_by,omitempty"`
}

// Filtered reports whether the query restricts orders by status.
func (q ListQuery) Filtered() bool {
	return q.Status != "" && !strings.EqualFold(q.Status, ListAll)
}

// SortColumn returns the allow-listed sort column, or "" for the default id ordering.
func (q ListQuery) SortColumn() string {
	switch q.OrderBy {
	case "id", "created_at", "updated_at":
		return q.OrderBy
	}
	return ""
}

// CreateOrderRequest is the payload upstream order placement sends to the store.
type CreateOrderRequest struct {
	PosOrderID  string              `json:"pos_order_id"`
	OrderNumber string              `json:"order_number"`
	Items       []CreateItemRequest `json:"items"`
	Status      OrderStatus         `json:"status"`
	Name        *string             `json:"name,omitempty"`
}

// CreateItemRequest is one line of a CreateOrderRequest.
type CreateItemRequest struct {
	ItemName            string  `json:"item_name"`
	Quantity            int     `json:"quantity"`
	Station             string  `json:"station"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
	PreparedQuantity    *int    `json:"prepared_quantity,omitempty"`
	FulfilledQuantity   *int    `json:"fulfilled_quantity,omitempty"`
}
