// Package layout splits orders into fixed-height display cards and derives the
// secondary figures a display shows around them.
package layout

import "brigade/internal/models"

// Metrics are the estimated rendered heights used for packing. Units are
// whatever the display measures its viewport in.
type Metrics struct {
	Header      int
	Item        int
	Instruction int
	Padding     int
	// FillRatio is the share of the available height a card may use.
	FillRatio float64
}

// DefaultMetrics are pixel heights for the browser-style card.
func DefaultMetrics() Metrics {
	return Metrics{Header: 32, Item: 45, Instruction: 30, Padding: 24, FillRatio: 0.95}
}

// Card is one rendered slice of an order. Order.Items holds only the items on
// this card.
type Card struct {
	Order     models.KitchenOrder
	First     bool
	Last      bool
	Continued bool
}

// ItemHeight estimates an item's height: one line plus one per instruction.
func (m Metrics) ItemHeight(item models.KitchenOrderItem) int {
	return m.Item + len(item.Instructions())*m.Instruction
}

// Pack greedily fills cards in item order. A card is closed when the next item
// would push it past the fill limit, unless the card is still empty, so an
// oversized item gets a card of its own instead of splitting forever. An order
// always yields at least one card.
func (m Metrics) Pack(order models.KitchenOrder, maxHeight int) []Card {
	limit := float64(maxHeight) * m.FillRatio
	base := m.Header + m.Padding

	var cards []Card
	var current []models.KitchenOrderItem
	height := base

	for _, item := range order.Items {
		h := m.ItemHeight(item)
		if float64(height+h) > limit && len(current) > 0 {
			cards = append(cards, card(order, current, true))
			current = nil
			height = base
		}
		current = append(current, item)
		height += h
	}
	if current == nil {
		current = []models.KitchenOrderItem{}
	}
	cards = append(cards, card(order, current, false))

	cards[0].First = true
	cards[len(cards)-1].Last = true
	return cards
}

func card(order models.KitchenOrder, items []models.KitchenOrderItem, continued bool) Card {
	o := order
	o.Items = items
	return Card{Order: o, Continued: continued}
}

// PackAll packs every order and concatenates the cards in order.
func (m Metrics) PackAll(orders []models.KitchenOrder, maxHeight int) []Card {
	var cards []Card
	for _, o := range orders {
		cards = append(cards, m.Pack(o, maxHeight)...)
	}
	return cards
}
