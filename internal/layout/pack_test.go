package layout

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"brigade/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(instructionCounts ...int) models.KitchenOrder {
	o := models.KitchenOrder{ID: 1, Status: models.StatusPending}
	for n, count := range instructionCounts {
		item := models.KitchenOrderItem{ID: uint(n + 1), ItemName: "item", Quantity: 1}
		if count > 0 {
			notes := strings.TrimSuffix(strings.Repeat("note,", count), ",")
			item.SpecialInstructions = &notes
		}
		o.Items = append(o.Items, item)
	}
	return o
}

func itemIDs(cards []Card) [][]uint {
	var out [][]uint
	for _, c := range cards {
		var ids []uint
		for _, item := range c.Order.Items {
			ids = append(ids, item.ID)
		}
		out = append(out, ids)
	}
	return out
}

func TestItemHeight(t *testing.T) {
	m := DefaultMetrics()
	assert.Equal(t, 45, m.ItemHeight(order(0).Items[0]))
	assert.Equal(t, 45+3*30, m.ItemHeight(order(3).Items[0]))
}

func TestPackFitsOneCard(t *testing.T) {
	cards := DefaultMetrics().Pack(order(0, 0, 1), 1000)

	require.Len(t, cards, 1)
	assert.True(t, cards[0].First)
	assert.True(t, cards[0].Last)
	assert.False(t, cards[0].Continued)
	assert.Len(t, cards[0].Order.Items, 3)
}

func TestPackSplits(t *testing.T) {
	// limit = 200 * 0.95 = 190; base = 56; each plain item is 45.
	// 56+45+45 = 146 fits, +45 = 191 does not.
	cards := DefaultMetrics().Pack(order(0, 0, 0, 0, 0), 200)

	assert.Equal(t, [][]uint{{1, 2}, {3, 4}, {5}}, itemIDs(cards))
	assert.True(t, cards[0].First)
	assert.True(t, cards[0].Continued)
	assert.False(t, cards[1].First)
	assert.False(t, cards[1].Last)
	assert.True(t, cards[1].Continued)
	assert.True(t, cards[2].Last)
	assert.False(t, cards[2].Continued)
}

func TestPackOversizedItemGetsOwnCard(t *testing.T) {
	cards := DefaultMetrics().Pack(order(10, 0), 100)

	assert.Equal(t, [][]uint{{1}, {2}}, itemIDs(cards))
}

func TestPackEmptyOrder(t *testing.T) {
	cards := DefaultMetrics().Pack(order(), 500)

	require.Len(t, cards, 1)
	assert.True(t, cards[0].First)
	assert.True(t, cards[0].Last)
	assert.NotNil(t, cards[0].Order.Items)
	assert.Empty(t, cards[0].Order.Items)
}

func TestPackRecomputesOnResize(t *testing.T) {
	m := DefaultMetrics()
	o := order(0, 2, 0, 1, 0)

	small := m.Pack(o, 150)
	large := m.Pack(o, 2000)

	assert.Greater(t, len(small), len(large))
	require.Len(t, large, 1)
	assert.Equal(t, itemIDs(m.Pack(o, 150)), itemIDs(small))
	assert.Len(t, o.Items, 5, "packing never mutates the source order")
}

func TestPackProperties(t *testing.T) {
	m := DefaultMetrics()
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 500; run++ {
		counts := make([]int, rng.Intn(12))
		for i := range counts {
			counts[i] = rng.Intn(4)
		}
		o := order(counts...)
		height := 1 + rng.Intn(800)

		cards := m.Pack(o, height)
		require.NotEmpty(t, cards)

		first, last := 0, 0
		var seen []uint
		for i, c := range cards {
			if c.First {
				first++
				assert.Equal(t, 0, i)
			}
			if c.Last {
				last++
				assert.Equal(t, len(cards)-1, i)
			}
			assert.Equal(t, i < len(cards)-1, c.Continued)
			if len(cards) > 1 {
				assert.NotEmpty(t, c.Order.Items)
			}
			for _, item := range c.Order.Items {
				seen = append(seen, item.ID)
			}
		}
		assert.Equal(t, 1, first)
		assert.Equal(t, 1, last)

		var want []uint
		for _, item := range o.Items {
			want = append(want, item.ID)
		}
		assert.Equal(t, want, seen, "every item exactly once, in order")
	}
}

func TestPackAll(t *testing.T) {
	a := order(0, 0, 0, 0, 0)
	b := order(0)
	b.ID = 2

	cards := DefaultMetrics().PackAll([]models.KitchenOrder{a, b}, 200)
	require.Len(t, cards, 4)
	assert.Equal(t, uint(2), cards[3].Order.ID)
	assert.True(t, cards[3].First)
	assert.True(t, cards[3].Last)
}

func TestSummarize(t *testing.T) {
	burger := models.KitchenOrderItem{ItemName: "Burger", Quantity: 2, Station: "grill"}
	fries := models.KitchenOrderItem{ItemName: "Fries", Quantity: 1, Station: "fryer"}
	donePrep := models.KitchenOrderItem{ItemName: "Salad", Quantity: 1, PreparedQuantity: 1, Station: "cold"}
	halfBurger := models.KitchenOrderItem{ItemName: "Burger", Quantity: 3, PreparedQuantity: 1, Station: "grill"}

	lines := Summarize([]models.KitchenOrder{
		{Items: []models.KitchenOrderItem{burger, fries, donePrep}},
		{Items: []models.KitchenOrderItem{halfBurger}},
	})

	assert.Equal(t, []SummaryLine{
		{Name: "Burger", Count: 4, Station: "grill"},
		{Name: "Fries", Count: 1, Station: "fryer"},
		{Name: TotalOrdersLabel, Count: 2},
	}, lines)

	assert.Equal(t, []SummaryLine{{Name: TotalOrdersLabel}}, Summarize(nil))
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "--"},
		{-time.Minute, "--"},
		{900 * time.Millisecond, "--"},
		{7 * time.Second, "07s"},
		{59 * time.Second, "59s"},
		{time.Minute, "01:00"},
		{12*time.Minute + 5*time.Second, "12:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{26 * time.Hour, "26:00:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatElapsed(tt.d), tt.d.String())
	}
}

func TestElapsed(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := created.Add(90 * time.Second)

	pending := models.KitchenOrder{Status: models.StatusPending, CreatedAt: created, UpdatedAt: created.Add(time.Second)}
	assert.Equal(t, 90*time.Second, Elapsed(pending, now))

	ready := models.KitchenOrder{Status: models.StatusReady, CreatedAt: created, UpdatedAt: created.Add(45 * time.Second)}
	assert.Equal(t, 45*time.Second, Elapsed(ready, now))
}
