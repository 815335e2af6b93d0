package models

import (
	"strings"
	"time"
)

// KitchenOrder is the kitchen-side record derived from a point-of-sale order.
// Orders are never hard-deleted; Status only changes through the Order Store.
type KitchenOrder struct {
	ID            uint               `gorm:"primary_key" json:"id"`
	PosOrderID    string             `gorm:"index;not null" json:"pos_order_id"`
	OrderNumber   string             `gorm:"not null" json:"order_number"`
	Status        OrderStatus        `gorm:"type:varchar(16);index;not null" json:"status"`
	Name          *string            `json:"name"`
	FrontReleased bool               `gorm:"not null;default:false" json:"front_released"`
	IsFulfilled   bool               `gorm:"not null;default:false" json:"is_fulfilled"`
	Items         []KitchenOrderItem `gorm:"foreignkey:KitchenOrderID" json:"items"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// KitchenOrderItem is one line of a kitchen order.
type KitchenOrderItem struct {
	ID                  uint      `gorm:"primary_key" json:"id"`
	KitchenOrderID      uint      `gorm:"index;not null" json:"kitchen_order_id"`
	ItemName            string    `gorm:"not null" json:"item_name"`
	Quantity            int       `gorm:"not null" json:"quantity"`
	PreparedQuantity    int       `gorm:"not null;default:0" json:"prepared_quantity"`
	FulfilledQuantity   int       `gorm:"not null;default:0" json:"fulfilled_quantity"`
	Station             string    `json:"station"`
	SpecialInstructions *string   `json:"special_instructions"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName pins the table names shared with the NOTIFY triggers.
func (KitchenOrder) TableName() string { return "kitchen_orders" }

// TableName pins the table names shared with the NOTIFY triggers.
func (KitchenOrderItem) TableName() string { return "kitchen_order_items" }

// OrderStatus is the status of a kitchen order, and also the derived status of an item.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusReady     OrderStatus = "ready"
	StatusFulfilled OrderStatus = "fulfilled"
)

// Valid reports whether s is one of the order transition targets.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReady, StatusFulfilled:
		return true
	}
	return false
}

// Next is the status an order advances to when no explicit target is given.
func (s OrderStatus) Next() OrderStatus {
	switch s {
	case StatusPending:
		return StatusReady
	case StatusReady:
		return StatusFulfilled
	default:
		return StatusPending
	}
}

// ItemAction is an item-level transition understood by the Order Store.
type ItemAction string

const (
	ActionMarkPrepared  ItemAction = "mark-prepared"
	ActionMarkFulfilled ItemAction = "mark-fulfilled"
	ActionUnmark        ItemAction = "unmark"
	ActionMarkPending   ItemAction = "mark-pending"
)

// Valid reports whether a is an accepted item action.
func (a ItemAction) Valid() bool {
	switch a {
	case ActionMarkPrepared, ActionMarkFulfilled, ActionUnmark, ActionMarkPending:
		return true
	}
	return false
}

// ActionFor maps a desired item status to the action that produces it.
func ActionFor(target OrderStatus) ItemAction {
	switch target {
	case StatusFulfilled:
		return ActionMarkFulfilled
	case StatusReady:
		return ActionMarkPrepared
	default:
		return ActionUnmark
	}
}

// Apply sets the item's counters exactly as the store does for the action.
func (i *KitchenOrderItem) Apply(action ItemAction) {
	switch action {
	case ActionMarkPrepared:
		i.PreparedQuantity = i.Quantity
		i.FulfilledQuantity = 0
	case ActionMarkFulfilled:
		i.PreparedQuantity = i.Quantity
		i.FulfilledQuantity = i.Quantity
	case ActionUnmark, ActionMarkPending:
		i.PreparedQuantity = 0
		i.FulfilledQuantity = 0
	}
}

// Status derives the item status from its counters.
func (i KitchenOrderItem) Status() OrderStatus {
	switch {
	case i.PreparedQuantity < i.Quantity:
		return StatusPending
	case i.FulfilledQuantity < i.Quantity:
		return StatusReady
	default:
		return StatusFulfilled
	}
}

// Consistent reports whether 0 <= fulfilled <= prepared <= quantity.
func (i KitchenOrderItem) Consistent() bool {
	return i.FulfilledQuantity >= 0 &&
		i.FulfilledQuantity <= i.PreparedQuantity &&
		i.PreparedQuantity <= i.Quantity
}

// Instructions splits the comma-delimited special instructions into notes.
func (i KitchenOrderItem) Instructions() []string {
	if i.SpecialInstructions == nil || *i.SpecialInstructions == "" {
		return nil
	}
	parts := strings.Split(*i.SpecialInstructions, ",")
	for n := range parts {
		parts[n] = strings.TrimSpace(parts[n])
	}
	return parts
}

// Clone returns a copy of the order whose item slice can be mutated independently.
func (o KitchenOrder) Clone() KitchenOrder {
	c := o
	if o.Items != nil {
		c.Items = make([]KitchenOrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return c
}

// AllPrepared reports whether every item has prepared_quantity == quantity.
func (o KitchenOrder) AllPrepared() bool {
	for _, item := range o.Items {
		if item.PreparedQuantity != item.Quantity {
			return false
		}
	}
	return true
}

// AllFulfilled reports whether every item has fulfilled_quantity == quantity.
func (o KitchenOrder) AllFulfilled() bool {
	for _, item := range o.Items {
		if item.FulfilledQuantity != item.Quantity {
			return false
		}
	}
	return true
}
