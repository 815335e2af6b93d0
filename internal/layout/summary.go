package layout

import (
	"fmt"
	"time"

	"brigade/internal/models"
)

// TotalOrdersLabel names the summary line counting visible orders.
const TotalOrdersLabel = "Total Orders"

// SummaryLine is one entry of the kitchen footer.
type SummaryLine struct {
	Name    string
	Count   int
	Station string
}

// Summarize counts units still to prepare per item name, in first-seen order,
// followed by the number of orders.
func Summarize(orders []models.KitchenOrder) []SummaryLine {
	var lines []SummaryLine
	index := make(map[string]int)

	for _, o := range orders {
		for _, item := range o.Items {
			remaining := item.Quantity - item.PreparedQuantity
			if remaining <= 0 {
				continue
			}
			i, ok := index[item.ItemName]
			if !ok {
				i = len(lines)
				index[item.ItemName] = i
				lines = append(lines, SummaryLine{Name: item.ItemName, Station: item.Station})
			}
			lines[i].Count += remaining
		}
	}

	return append(lines, SummaryLine{Name: TotalOrdersLabel, Count: len(orders)})
}

// Elapsed is how long a pending order has been waiting, or how long a finished
// one took.
func Elapsed(order models.KitchenOrder, now time.Time) time.Duration {
	if order.Status == models.StatusPending {
		return now.Sub(order.CreatedAt)
	}
	return order.UpdatedAt.Sub(order.CreatedAt)
}

// FormatElapsed renders d as "--", "SSs", "MM:SS" or "HH:MM:SS".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	switch {
	case total == 0:
		return "--"
	case hours == 0 && minutes == 0:
		return fmt.Sprintf("%02ds", seconds)
	case hours == 0:
		return fmt.Sprintf("%02d:%02d", minutes, seconds)
	default:
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
}
