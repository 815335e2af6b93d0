package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestItemStatusDerivation(t *testing.T) {
	tests := []struct {
		name      string
		prepared  int
		fulfilled int
		want      OrderStatus
	}{
		{"nothing done", 0, 0, StatusPending},
		{"partially prepared", 1, 0, StatusPending},
		{"prepared", 2, 0, StatusReady},
		{"partially fulfilled", 2, 1, StatusReady},
		{"fulfilled", 2, 2, StatusFulfilled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := KitchenOrderItem{Quantity: 2, PreparedQuantity: tt.prepared, FulfilledQuantity: tt.fulfilled}
			assert.Equal(t, tt.want, item.Status())
		})
	}
}

func TestApplyKeepsCountersConsistent(t *testing.T) {
	actions := []ItemAction{ActionMarkPrepared, ActionMarkFulfilled, ActionUnmark, ActionMarkPending, ActionMarkFulfilled, ActionMarkPrepared}
	item := KitchenOrderItem{Quantity: 3}

	for _, action := range actions {
		item.Apply(action)
		assert.True(t, item.Consistent(), "after %s: %+v", action, item)
	}

	item.Apply(ActionMarkFulfilled)
	once := item
	item.Apply(ActionMarkFulfilled)
	assert.Equal(t, once, item)
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, ActionMarkPrepared, ActionFor(StatusReady))
	assert.Equal(t, ActionMarkFulfilled, ActionFor(StatusFulfilled))
	assert.Equal(t, ActionUnmark, ActionFor(StatusPending))
}

func TestOrderStatusNext(t *testing.T) {
	assert.Equal(t, StatusReady, StatusPending.Next())
	assert.Equal(t, StatusFulfilled, StatusReady.Next())
	assert.Equal(t, StatusPending, StatusFulfilled.Next())
}

func TestInstructions(t *testing.T) {
	item := KitchenOrderItem{SpecialInstructions: strPtr("no onions, extra cheese,well done")}
	assert.Equal(t, []string{"no onions", "extra cheese", "well done"}, item.Instructions())

	assert.Nil(t, KitchenOrderItem{}.Instructions())
	assert.Nil(t, KitchenOrderItem{SpecialInstructions: strPtr("")}.Instructions())
}

func TestCloneDetachesItems(t *testing.T) {
	order := KitchenOrder{ID: 1, Items: []KitchenOrderItem{{ID: 1, Quantity: 1}}}
	c := order.Clone()
	c.Items[0].PreparedQuantity = 1

	assert.Equal(t, 0, order.Items[0].PreparedQuantity)
}

func TestListQuery(t *testing.T) {
	assert.False(t, ListQuery{}.Filtered())
	assert.False(t, ListQuery{Status: "ALL"}.Filtered())
	assert.True(t, ListQuery{Status: "pending"}.Filtered())

	assert.Equal(t, "updated_at", ListQuery{OrderBy: "updated_at"}.SortColumn())
	assert.Equal(t, "", ListQuery{OrderBy: "name; DROP TABLE kitchen_orders"}.SortColumn())
}
