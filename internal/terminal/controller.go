package terminal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"brigade/internal/models"
)

const (
	DefaultDebounce       = 200 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

// ErrUnknownOrder is returned when an action names an order or item that is not on screen.
var ErrUnknownOrder = errors.New("order not on this display")

// OrderClient is the order store as seen from a terminal. Both the store itself
// and the HTTP client satisfy it.
type OrderClient interface {
	ListOrders(ctx context.Context, q models.ListQuery) ([]models.KitchenOrder, error)
	UpdateItemStatus(ctx context.Context, itemID uint, action models.ItemAction) (*models.KitchenOrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, skipItemUpdate bool) (*models.KitchenOrder, error)
}

// Controller owns one terminal's working copy of the orders. Actions are
// applied locally at once and sent to the store in the background. The copy is
// only replaced by a fetch that completes while nothing else is in flight; any
// change signal or failure seen while work is outstanding is remembered and
// answered with a single debounced refresh once the terminal goes idle.
type Controller struct {
	client  OrderClient
	role    Role
	profile profile

	debounce time.Duration
	timeout  time.Duration
	onRender func([]models.KitchenOrder)
	onNotice func(string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	orders   []models.KitchenOrder
	inflight int
	missed   bool
	timer    *time.Timer
	version  uint64
	closed   bool

	renderMu sync.Mutex
	rendered uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the refresh coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithRequestTimeout bounds every store round trip.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithRenderer is called with a fresh copy of the orders after every local change.
// Calls are serialised and never go backwards.
func WithRenderer(fn func([]models.KitchenOrder)) Option {
	return func(c *Controller) { c.onRender = fn }
}

// WithNotices receives operator-facing, non-blocking failure messages.
func WithNotices(fn func(string)) Option {
	return func(c *Controller) { c.onNotice = fn }
}

// New creates a controller for role.
func New(client OrderClient, role Role, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		client:   client,
		role:     role,
		profile:  profiles[role],
		debounce: DefaultDebounce,
		timeout:  DefaultRequestTimeout,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Role returns the terminal role.
func (c *Controller) Role() Role { return c.role }

// Orders returns a copy of the working set.
func (c *Controller) Orders() []models.KitchenOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() []models.KitchenOrder {
	out := make([]models.KitchenOrder, len(c.orders))
	for i, o := range c.orders {
		out[i] = o.Clone()
	}
	return out
}

// Refresh fetches the role's orders now. The result is applied only if no
// other operation is in flight when it returns.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	orders, err := c.client.ListOrders(ctx, c.profile.query)
	cancel()

	c.mu.Lock()
	c.inflight--
	if c.inflight > 0 {
		// Something changed underneath this read; fetch again once idle.
		c.missed = true
		c.mu.Unlock()
		if err != nil {
			c.notice(fmt.Sprintf("Failed to fetch %s orders: %v", c.profile.name, err))
		}
		return err
	}
	if err != nil {
		reschedule := c.missed
		c.mu.Unlock()
		c.notice(fmt.Sprintf("Failed to fetch %s orders: %v", c.profile.name, err))
		if reschedule {
			c.ScheduleRefresh()
		}
		return err
	}
	c.orders = orders
	reschedule := c.missed
	snapshot, version := c.commitLocked()
	c.mu.Unlock()

	c.render(snapshot, version)
	if reschedule {
		c.ScheduleRefresh()
	}
	return nil
}

// Notify handles an "orders changed" signal from the server.
func (c *Controller) Notify() {
	c.mu.Lock()
	if c.inflight > 0 {
		c.missed = true
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.ScheduleRefresh()
}

// ScheduleRefresh (re)starts the debounce window; one fetch runs when it closes.
func (c *Controller) ScheduleRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil && c.timer.Stop() {
		c.wg.Done()
	}
	c.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(c.debounce, func() {
		defer c.wg.Done()
		c.mu.Lock()
		if c.timer == t {
			c.timer = nil
		}
		closed := c.closed
		c.missed = false
		c.mu.Unlock()
		if !closed {
			c.Refresh(c.ctx)
		}
	})
	c.timer = t
}

// Tap performs an item's forward action for this role.
func (c *Controller) Tap(orderID, itemID uint) error {
	item, err := c.findItem(orderID, itemID)
	if err != nil {
		return err
	}
	switch item.Status() {
	case models.StatusPending:
		return c.ToggleItem(orderID, itemID, models.StatusReady)
	case models.StatusReady:
		if c.profile.readyTap == "" {
			return nil
		}
		return c.ToggleItem(orderID, itemID, c.profile.readyTap)
	default:
		return nil
	}
}

// LongPress reverses an item: fulfilled items go back to ready, anything else to pending.
func (c *Controller) LongPress(orderID, itemID uint) error {
	item, err := c.findItem(orderID, itemID)
	if err != nil {
		return err
	}
	if item.Status() == models.StatusFulfilled {
		return c.ToggleItem(orderID, itemID, models.StatusReady)
	}
	return c.ToggleItem(orderID, itemID, models.StatusPending)
}

func (c *Controller) findItem(orderID, itemID uint) (models.KitchenOrderItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexLocked(orderID); idx >= 0 {
		for _, item := range c.orders[idx].Items {
			if item.ID == itemID {
				return item, nil
			}
		}
	}
	return models.KitchenOrderItem{}, fmt.Errorf("%w: order %d item %d", ErrUnknownOrder, orderID, itemID)
}

// ToggleItem moves one item to target and cascades the order status if the
// item change completes or breaks the order.
func (c *Controller) ToggleItem(orderID, itemID uint, target models.OrderStatus) error {
	action := models.ActionFor(target)

	c.mu.Lock()
	idx := c.indexLocked(orderID)
	if idx < 0 {
		c.mu.Unlock()
		c.notice(fmt.Sprintf("Order with id %d not found, can't update item status to %s", orderID, target))
		return fmt.Errorf("%w: order %d", ErrUnknownOrder, orderID)
	}
	order := c.orders[idx].Clone()
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			order.Items[i].Apply(action)
		}
	}
	c.orders[idx] = order
	c.inflight++
	snapshot, version := c.commitLocked()
	c.mu.Unlock()
	c.render(snapshot, version)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		_, err := c.client.UpdateItemStatus(ctx, itemID, action)
		cancel()
		if err != nil {
			c.notice(fmt.Sprintf("Error updating item status: %v", err))
			c.finish(true)
			return
		}

		// The cascade starts before this operation is released so the
		// terminal never looks idle between the two.
		if next, ok := cascade(order); ok {
			c.setOrderStatus(order, next, true)
		}
		c.finish(false)
	}()
	return nil
}

// cascade decides the order-level transition implied by the order's items,
// judged against the status the order had on this display.
func cascade(order models.KitchenOrder) (models.OrderStatus, bool) {
	switch order.Status {
	case models.StatusReady:
		if !order.AllPrepared() {
			return models.StatusPending, true
		}
		if order.AllFulfilled() {
			return models.StatusFulfilled, true
		}
	case models.StatusPending:
		if order.AllPrepared() {
			return models.StatusReady, true
		}
	case models.StatusFulfilled:
		if !order.AllPrepared() {
			return models.StatusPending, true
		}
		if !order.AllFulfilled() {
			return models.StatusReady, true
		}
	}
	return "", false
}

// SetOrderStatus moves a whole order, items included, to status.
func (c *Controller) SetOrderStatus(orderID uint, status models.OrderStatus) error {
	order, err := c.order(orderID)
	if err != nil {
		c.notice(fmt.Sprintf("Order with id %d not found, can't update status to %s", orderID, status))
		return err
	}
	c.setOrderStatus(order, status, false)
	return nil
}

// AdvanceOrder cycles an order pending -> ready -> fulfilled -> pending.
func (c *Controller) AdvanceOrder(orderID uint) error {
	order, err := c.order(orderID)
	if err != nil {
		return err
	}
	c.setOrderStatus(order, order.Status.Next(), false)
	return nil
}

// RestoreOrder sends a finished order back to pending with its items reset.
// Pending orders are left alone.
func (c *Controller) RestoreOrder(orderID uint) error {
	order, err := c.order(orderID)
	if err != nil {
		return err
	}
	if order.Status == models.StatusPending {
		return nil
	}
	c.setOrderStatus(order, models.StatusPending, false)
	return nil
}

func (c *Controller) order(orderID uint) (models.KitchenOrder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexLocked(orderID)
	if idx < 0 {
		return models.KitchenOrder{}, fmt.Errorf("%w: order %d", ErrUnknownOrder, orderID)
	}
	return c.orders[idx].Clone(), nil
}

func (c *Controller) setOrderStatus(order models.KitchenOrder, status models.OrderStatus, skipItemUpdate bool) {
	c.mu.Lock()
	if idx := c.indexLocked(order.ID); idx >= 0 {
		switch {
		case status == c.profile.dropOn:
			c.orders = append(c.orders[:idx:idx], c.orders[idx+1:]...)
		case skipItemUpdate:
			// Items keep any local edits made since the cascade was decided.
			c.orders[idx].Status = status
		default:
			updated := c.orders[idx].Clone()
			updated.Status = status
			action := models.ActionFor(status)
			for i := range updated.Items {
				updated.Items[i].Apply(action)
			}
			c.orders[idx] = updated
		}
	}
	c.inflight++
	snapshot, version := c.commitLocked()
	c.mu.Unlock()
	c.render(snapshot, version)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		_, err := c.client.UpdateOrderStatus(ctx, strconv.FormatUint(uint64(order.ID), 10), status, skipItemUpdate)
		cancel()
		if err != nil {
			c.notice(fmt.Sprintf("Error marking order %s: %v", status, err))
		}
		c.finish(err != nil)
	}()
}

// finish releases one in-flight operation. The last one out triggers the
// refresh that was deferred while work was outstanding.
func (c *Controller) finish(failed bool) {
	c.mu.Lock()
	c.inflight--
	if failed {
		c.missed = true
	}
	due := c.inflight == 0 && c.missed
	c.mu.Unlock()

	if due {
		c.ScheduleRefresh()
	}
}

func (c *Controller) indexLocked(orderID uint) int {
	for i := range c.orders {
		if c.orders[i].ID == orderID {
			return i
		}
	}
	return -1
}

func (c *Controller) commitLocked() ([]models.KitchenOrder, uint64) {
	c.version++
	return c.snapshotLocked(), c.version
}

func (c *Controller) render(snapshot []models.KitchenOrder, version uint64) {
	if c.onRender == nil {
		return
	}
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if version <= c.rendered {
		return
	}
	c.rendered = version
	c.onRender(snapshot)
}

func (c *Controller) notice(msg string) {
	log.Printf("[%s] %s", c.profile.name, msg)
	if c.onNotice != nil {
		c.onNotice(msg)
	}
}

// Wait blocks until every in-flight operation and pending refresh has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels outstanding requests and waits for them to unwind.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil && c.timer.Stop() {
		c.wg.Done()
	}
	c.timer = nil
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
