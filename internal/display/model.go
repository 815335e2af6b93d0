// Package display is the terminal UI of a kitchen display.
package display

import (
	"context"
	"time"

	"brigade/internal/layout"
	"brigade/internal/models"
	"brigade/internal/terminal"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RowMetrics size cards in terminal rows: a bordered card with a two-line
// header, one row per item and one per instruction.
var RowMetrics = layout.Metrics{Header: 2, Item: 1, Instruction: 1, Padding: 2, FillRatio: 1}

const cardWidth = 32

// OrdersMsg carries a new working copy from the controller.
type OrdersMsg []models.KitchenOrder

// NoticeMsg is a non-blocking message for the operator.
type NoticeMsg string

// LinkMsg reports whether the realtime link is up.
type LinkMsg bool

type tickMsg time.Time

type clearNoticeMsg struct{ seq int }

// Model is the bubbletea model of one display.
type Model struct {
	ctrl    *terminal.Controller
	role    terminal.Role
	metrics layout.Metrics
	keys    keyMap
	spinner spinner.Model

	orders []models.KitchenOrder
	cards  []layout.Card
	loaded bool
	linkUp bool

	cursor int
	item   int
	offset int

	width  int
	height int
	now    time.Time

	notice    string
	noticeSeq int
}

// New creates a display model backed by ctrl.
func New(ctrl *terminal.Controller) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		ctrl:    ctrl,
		role:    ctrl.Role(),
		metrics: RowMetrics,
		keys:    defaultKeys(),
		spinner: s,
		now:     time.Now(),
	}
}

// Init starts the clock and the first fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick(), m.refresh())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if err := ctrl.Refresh(context.Background()); err != nil {
			return NoticeMsg("Failed to fetch orders: " + err.Error())
		}
		return OrdersMsg(ctrl.Orders())
	}
}

// Update handles UI updates.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.repack()
		return m, nil

	case OrdersMsg:
		m.orders = msg
		m.loaded = true
		m.repack()
		return m, nil

	case NoticeMsg:
		m.noticeSeq++
		m.notice = string(msg)
		seq := m.noticeSeq
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg { return clearNoticeMsg{seq} })

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case LinkMsg:
		m.linkUp = bool(msg)
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.Left):
		m.moveCard(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveCard(1)
	case key.Matches(msg, m.keys.Up):
		m.moveItem(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveItem(1)
	case key.Matches(msg, m.keys.Tap):
		if order, item, ok := m.selectedItem(); ok {
			return m, m.act(func() error { return m.ctrl.Tap(order, item) })
		}
	case key.Matches(msg, m.keys.LongPress):
		if order, item, ok := m.selectedItem(); ok {
			return m, m.act(func() error { return m.ctrl.LongPress(order, item) })
		}
	case key.Matches(msg, m.keys.Advance):
		if order, ok := m.selectedOrder(); ok {
			return m, m.act(func() error { return m.ctrl.AdvanceOrder(order) })
		}
	case key.Matches(msg, m.keys.Restore):
		if order, ok := m.selectedOrder(); ok {
			return m, m.act(func() error { return m.ctrl.RestoreOrder(order) })
		}
	}
	return m, nil
}

// act runs a controller action off the event loop, since the controller's
// renderer and notices send back into the program. The action is applied
// locally before fn returns, so the fresh working copy is rendered straight away.
func (m Model) act(fn func() error) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if err := fn(); err != nil {
			return NoticeMsg(err.Error())
		}
		return OrdersMsg(ctrl.Orders())
	}
}

func (m *Model) cardHeight() int {
	h := m.height - m.chromeHeight()
	if h < m.metrics.Header+m.metrics.Padding+m.metrics.Item {
		h = m.metrics.Header + m.metrics.Padding + m.metrics.Item
	}
	return h
}

// repack recomputes every card from the full order list and keeps the
// selection on the same item where possible.
func (m *Model) repack() {
	var selOrder, selItem uint
	if order, item, ok := m.selectedItem(); ok {
		selOrder, selItem = order, item
	} else if order, ok := m.selectedOrder(); ok {
		selOrder = order
	}

	m.cards = m.metrics.PackAll(m.orders, m.cardHeight())
	m.cursor, m.item = 0, 0

	found := false
	for ci, c := range m.cards {
		if c.Order.ID != selOrder {
			continue
		}
		if !found {
			m.cursor, found = ci, true
		}
		for ii, it := range c.Order.Items {
			if it.ID == selItem {
				m.cursor, m.item = ci, ii
			}
		}
	}
	m.clampScroll()
}

func (m *Model) moveCard(delta int) {
	if len(m.cards) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.cards) {
		m.cursor = len(m.cards) - 1
	}
	m.item = 0
	m.clampScroll()
}

func (m *Model) moveItem(delta int) {
	if len(m.cards) == 0 {
		return
	}
	n := len(m.cards[m.cursor].Order.Items)
	m.item += delta
	switch {
	case m.item < 0 && m.cursor > 0 && m.cards[m.cursor-1].Order.ID == m.cards[m.cursor].Order.ID:
		m.cursor--
		m.item = len(m.cards[m.cursor].Order.Items) - 1
	case m.item >= n && m.cursor+1 < len(m.cards) && m.cards[m.cursor+1].Order.ID == m.cards[m.cursor].Order.ID:
		m.cursor++
		m.item = 0
	case m.item < 0:
		m.item = 0
	case m.item >= n:
		m.item = n - 1
	}
	if m.item < 0 {
		m.item = 0
	}
	m.clampScroll()
}

func (m *Model) visibleCards() int {
	n := m.width / cardWidth
	if n < 1 {
		n = 1
	}
	return n
}

func (m *Model) clampScroll() {
	visible := m.visibleCards()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if last := len(m.cards) - visible; m.offset > last {
		m.offset = last
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) selectedOrder() (uint, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cards) {
		return 0, false
	}
	return m.cards[m.cursor].Order.ID, true
}

func (m Model) selectedItem() (uint, uint, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cards) {
		return 0, 0, false
	}
	c := m.cards[m.cursor]
	if m.item < 0 || m.item >= len(c.Order.Items) {
		return 0, 0, false
	}
	return c.Order.ID, c.Order.Items[m.item].ID, true
}

// Cards returns the current packing.
func (m Model) Cards() []layout.Card {
	return m.cards
}
