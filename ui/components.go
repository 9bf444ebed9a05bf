package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/xwake/model"
)

const keyWidth = 16

type kv struct {
	Key string
	Val string
}

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)
	keyStyle = dimStyle.Width(keyWidth)
)

// panel renders titled key/value rows inside a rounded border that is
// innerW cells wide between the padding.
func panel(title string, rows []kv, innerW int) string {
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, headerStyle.Render(title), dimStyle.Render(strings.Repeat("─", innerW)))
	for _, r := range rows {
		lines = append(lines, keyStyle.Render(r.Key+":")+" "+r.Val)
	}
	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return lipgloss.NewStyle().MarginLeft(1).Render(panelStyle.Width(innerW+2).Render(body)) + "\n"
}

// closureBar shows how far the closed-eye counter has advanced toward
// the alarm. It turns yellow past half way and red at the alarm.
func closureBar(pct float64, width int) string {
	if width < 1 {
		width = 10
	}
	pct = clampPct(pct)
	filled := int(pct / 100 * float64(width))
	b := strings.Repeat("■", filled) + strings.Repeat("·", width-filled)
	switch {
	case pct >= 100:
		return critStyle.Render(b)
	case pct >= 50:
		return warnStyle.Render(b)
	}
	return okStyle.Render(b)
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func fmtPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// truncate cuts s to width runes, marking the cut with "~".
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width < 2 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "~"
}

// panelWidth is the inner panel width for a terminal of termWidth cells.
func panelWidth(termWidth int) int {
	if w := termWidth - 6; w > 60 {
		return w
	}
	return 60
}

func levelBadge(l model.AlertLevel) string {
	return levelStyle(l).Render(strings.ToUpper(l.String()))
}
