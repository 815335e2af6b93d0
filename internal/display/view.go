package display

import (
	"fmt"
	"hash/fnv"
	"strings"

	"brigade/internal/layout"
	"brigade/internal/models"
	"brigade/internal/terminal"

	"github.com/charmbracelet/lipgloss"
)

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Width(cardWidth - 2)

	statusColors = map[models.OrderStatus]lipgloss.Color{
		models.StatusPending:   lipgloss.Color("#ff9f0a"),
		models.StatusReady:     lipgloss.Color("#30d158"),
		models.StatusFulfilled: lipgloss.Color("#8e8e93"),
	}

	readyItemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#30d158"))
	fulfilledItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8e8e93")).Strikethrough(true)
	selectedStyle      = lipgloss.NewStyle().Reverse(true)
	noteStyle          = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#ffd60a"))

	stationPalette = []lipgloss.Color{"#64d2ff", "#ff375f", "#bf5af2", "#ffd60a", "#30d158", "#ff9f0a"}
)

func (m Model) chromeHeight() int {
	h := 2 // title and help
	if m.role == terminal.RoleKitchen {
		h++
	}
	return h
}

// View renders the display.
func (m Model) View() string {
	var b strings.Builder

	title := titleStyle.Render(fmt.Sprintf("Brigade KDS · %s", m.role))
	if !m.linkUp {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, " ", offlineStyle.Render("offline"))
	}
	if m.notice != "" {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, " ", noticeStyle.Render(m.notice))
	}
	b.WriteString(title)
	b.WriteString("\n")

	switch {
	case !m.loaded:
		b.WriteString(m.spinner.View() + " Loading orders...")
	case len(m.cards) == 0:
		b.WriteString(helpStyle.Render("No orders"))
	default:
		end := m.offset + m.visibleCards()
		if end > len(m.cards) {
			end = len(m.cards)
		}
		rendered := make([]string, 0, end-m.offset)
		for i := m.offset; i < end; i++ {
			selected := -1
			if i == m.cursor {
				selected = m.item
			}
			rendered = append(rendered, m.renderCard(m.cards[i], selected))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}
	b.WriteString("\n")

	if m.role == terminal.RoleKitchen {
		b.WriteString(renderSummary(layout.Summarize(m.orders)))
		b.WriteString("\n")
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderCard(c layout.Card, selected int) string {
	o := c.Order
	inner := cardWidth - 4

	var lines []string
	if c.First {
		name := ""
		if o.Name != nil {
			name = " " + *o.Name
		}
		elapsed := layout.FormatElapsed(layout.Elapsed(o, m.now))
		head := truncate("#"+o.OrderNumber+name, inner-len(elapsed)-1)
		lines = append(lines, lipgloss.NewStyle().Bold(true).Render(head)+
			strings.Repeat(" ", max(1, inner-lipgloss.Width(head)-len(elapsed)))+elapsed)
	} else {
		lines = append(lines, lipgloss.NewStyle().Bold(true).Render(truncate("#"+o.OrderNumber+" (cont.)", inner)))
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(statusColors[o.Status]).Render(string(o.Status)))

	for i, item := range o.Items {
		label := item.ItemName
		if item.Quantity != 1 {
			label = fmt.Sprintf("%d X %s", item.Quantity, item.ItemName)
		}
		label = truncate(label, inner)

		style := lipgloss.NewStyle()
		switch item.Status() {
		case models.StatusReady:
			style = readyItemStyle
		case models.StatusFulfilled:
			style = fulfilledItemStyle
		}
		if i == selected {
			style = style.Copy().Inherit(selectedStyle)
		}
		lines = append(lines, style.Render(label))

		for _, note := range item.Instructions() {
			lines = append(lines, noteStyle.Render(truncate("  "+noteText(note), inner)))
		}
	}
	if c.Continued {
		lines = append(lines, helpStyle.Render("continued →"))
	}

	border := lipgloss.Color("#3a3a3c")
	if selected >= 0 {
		border = lipgloss.Color("#7D56F4")
	} else if col, ok := statusColors[o.Status]; ok {
		border = col
	}
	return cardStyle.Copy().
		BorderForeground(border).
		Height(m.cardHeight() - m.metrics.Padding).
		Render(strings.Join(lines, "\n"))
}

// noteText drops a "Modifier:" style prefix from an instruction.
func noteText(note string) string {
	if _, after, ok := strings.Cut(note, ":"); ok {
		if after = strings.TrimSpace(after); after != "" {
			return after
		}
	}
	return note
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func stationColor(station string) lipgloss.Color {
	if station == "" {
		return lipgloss.Color("#AAAAAA")
	}
	h := fnv.New32a()
	h.Write([]byte(station))
	return stationPalette[int(h.Sum32()%uint32(len(stationPalette)))]
}

func renderSummary(lines []layout.SummaryLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		color := lipgloss.Color("#AAAAAA")
		if l.Name != layout.TotalOrdersLabel {
			color = stationColor(l.Station)
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%s: %d", l.Name, l.Count)))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderHelp() string {
	var parts []string
	for _, k := range m.keys.help() {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}
