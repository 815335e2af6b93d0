package kds

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"brigade/internal/database"
	"brigade/internal/models"
	"brigade/internal/monitoring"

	"github.com/jinzhu/gorm"
)

// Notifier is told about committed changes when the database itself does not
// raise notifications (sqlite, tests).
type Notifier interface {
	OrdersChanged()
}

// Store is the sole authority for persisted kitchen order state.
type Store struct {
	db       *gorm.DB
	monitor  *monitoring.Monitor
	notifier Notifier
}

// Option configures a Store.
type Option func(*Store)

// WithMonitor reports operation outcomes and transitions to m.
func WithMonitor(m *monitoring.Monitor) Option {
	return func(s *Store) { s.monitor = m }
}

// WithNotifier signals n after every committed mutation.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// NewStore creates a store over an already migrated database.
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func itemsByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// ListOrders returns up to 100 orders matching status OR status2, with items in id order.
// An empty status or "all" disables filtering. Recognised sort columns order newest first;
// anything else falls back to ascending id.
func (s *Store) ListOrders(ctx context.Context, q models.ListQuery) (orders []models.KitchenOrder, err error) {
	defer s.observe("list_orders", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := s.db.Preload("Items", itemsByID)
	if q.Filtered() {
		if q.Status2 != "" {
			query = query.Where("status = ? OR status = ?", q.Status, q.Status2)
		} else {
			query = query.Where("status = ?", q.Status)
		}
	}
	if col := q.SortColumn(); col != "" {
		query = query.Order(col + " DESC").Order("id DESC")
	} else {
		query = query.Order("id ASC")
	}

	orders = []models.KitchenOrder{}
	if err := query.Limit(models.MaxListedOrders).Find(&orders).Error; err != nil {
		return nil, infra("list orders", err)
	}
	for i := range orders {
		if orders[i].Items == nil {
			orders[i].Items = []models.KitchenOrderItem{}
		}
	}
	return orders, nil
}

// CreateOrder inserts an order and its items in one transaction and returns the new id.
func (s *Store) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (id uint, err error) {
	defer s.observe("create_order", time.Now(), &err)

	if req.PosOrderID == "" || req.OrderNumber == "" || req.Items == nil {
		return 0, fmt.Errorf("%w: pos_order_id, order_number, and items are required", ErrInvalidPayload)
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if !req.Status.Valid() {
		return 0, fmt.Errorf("%w: order status %q", ErrInvalidStatus, req.Status)
	}

	items := make([]models.KitchenOrderItem, len(req.Items))
	for n, in := range req.Items {
		item := models.KitchenOrderItem{
			ItemName:            in.ItemName,
			Quantity:            in.Quantity,
			Station:             in.Station,
			SpecialInstructions: in.SpecialInstructions,
		}
		if in.PreparedQuantity != nil {
			item.PreparedQuantity = *in.PreparedQuantity
		}
		if in.FulfilledQuantity != nil {
			item.FulfilledQuantity = *in.FulfilledQuantity
		}
		if !item.Consistent() {
			return 0, fmt.Errorf("%w: item %d counters must satisfy 0 <= fulfilled <= prepared <= quantity", ErrInvalidPayload, n)
		}
		items[n] = item
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	order := models.KitchenOrder{
		PosOrderID:  req.PosOrderID,
		OrderNumber: req.OrderNumber,
		Status:      req.Status,
		Name:        req.Name,
	}
	err = database.WithTx(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return infra("create order", err)
		}
		for i := range items {
			items[i].KitchenOrderID = order.ID
			if err := tx.Create(&items[i]).Error; err != nil {
				return infra("create order item", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.changed()
	return order.ID, nil
}

// UpdateItemStatus applies an item action in a single UPDATE.
func (s *Store) UpdateItemStatus(ctx context.Context, itemID uint, action models.ItemAction) (item *models.KitchenOrderItem, err error) {
	defer s.observe("update_item_status", time.Now(), &err)

	var updates map[string]interface{}
	switch action {
	case models.ActionMarkPrepared:
		updates = map[string]interface{}{"prepared_quantity": gorm.Expr("quantity"), "fulfilled_quantity": 0}
	case models.ActionMarkFulfilled:
		updates = map[string]interface{}{"prepared_quantity": gorm.Expr("quantity"), "fulfilled_quantity": gorm.Expr("quantity")}
	case models.ActionUnmark, models.ActionMarkPending:
		updates = map[string]interface{}{"prepared_quantity": 0, "fulfilled_quantity": 0}
	default:
		return nil, fmt.Errorf("%w: must be one of: mark-prepared, mark-fulfilled, unmark, mark-pending", ErrInvalidStatus)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := s.db.Model(&models.KitchenOrderItem{}).Where("id = ?", itemID).Updates(updates)
	if res.Error != nil {
		return nil, infra("update item status", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}

	item = &models.KitchenOrderItem{}
	if err := s.db.Where("id = ?", itemID).First(item).Error; err != nil {
		return nil, infra("load item", err)
	}

	s.changed()
	return item, nil
}

// UpdateOrderStatus moves an order to status inside one transaction. Unless
// skipItemUpdate is set, the order's items are bulk-updated first. orderID may be
// the internal id or the POS order id.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, skipItemUpdate bool) (order *models.KitchenOrder, err error) {
	defer s.observe("update_order_status", time.Now(), &err)

	if !status.Valid() {
		return nil, fmt.Errorf("%w: must be one of: ready, fulfilled, pending", ErrInvalidStatus)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Non-numeric ids can only match pos_order_id; ids start at 1.
	internalID, _ := strconv.ParseUint(orderID, 10, 64)
	const match = "id = ? OR pos_order_id = ?"

	order = &models.KitchenOrder{}
	err = database.WithTx(s.db, func(tx *gorm.DB) error {
		if !skipItemUpdate {
			items := tx.Model(&models.KitchenOrderItem{}).
				Where("kitchen_order_id IN (SELECT id FROM kitchen_orders WHERE "+match+")", internalID, orderID)

			var updates map[string]interface{}
			switch status {
			case models.StatusReady:
				items = items.Where("prepared_quantity = 0")
				updates = map[string]interface{}{"prepared_quantity": gorm.Expr("quantity")}
			case models.StatusFulfilled:
				updates = map[string]interface{}{"prepared_quantity": gorm.Expr("quantity"), "fulfilled_quantity": gorm.Expr("quantity")}
			case models.StatusPending:
				updates = map[string]interface{}{"prepared_quantity": 0, "fulfilled_quantity": 0}
			}
			if err := items.Updates(updates).Error; err != nil {
				return infra("update order items", err)
			}
		}

		res := tx.Model(&models.KitchenOrder{}).Where(match, internalID, orderID).
			Updates(map[string]interface{}{"status": status})
		if res.Error != nil {
			return infra("update order", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotFound
		}

		if err := tx.Preload("Items", itemsByID).Where(match, internalID, orderID).Order("id ASC").First(order).Error; err != nil {
			return infra("load order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.monitor != nil {
		s.monitor.OrderTransitions.WithLabelValues(string(status)).Inc()
	}
	s.changed()
	return order, nil
}

func (s *Store) changed() {
	if s.notifier != nil {
		s.notifier.OrdersChanged()
	}
}

func (s *Store) observe(op string, started time.Time, errp *error) {
	s.monitor.ObserveStore(op, started, *errp)
}
