package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/xwake/model"
)

var (
	// Colors
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorOrange  = lipgloss.Color("#FFB86C")
	colorWhite   = lipgloss.Color("#F8F8F2")
	colorGray    = lipgloss.Color("#6272A4")
	colorPanel   = lipgloss.Color("#44475A")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	valueStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	headerStyle   = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	selectedStyle = lipgloss.NewStyle().Background(colorPanel).Foreground(colorWhite)
	helpStyle     = lipgloss.NewStyle().Foreground(colorGray)
	dimStyle      = lipgloss.NewStyle().Foreground(colorGray)
	orangeStyle   = lipgloss.NewStyle().Foreground(colorOrange)

	alarmBannerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorWhite).
				Background(colorRed).
				Padding(0, 2)
)

func levelStyle(l model.AlertLevel) lipgloss.Style {
	switch l {
	case model.LevelAlarm:
		return critStyle
	case model.LevelRising:
		return warnStyle
	default:
		return okStyle
	}
}

// earStyle colors an EAR sample relative to the closure threshold.
func earStyle(ear, threshold float64) lipgloss.Style {
	switch {
	case ear < threshold:
		return critStyle
	case ear < threshold*1.2:
		return warnStyle
	default:
		return okStyle
	}
}

func drowsyPctStyle(pct float64) lipgloss.Style {
	switch {
	case pct >= 25:
		return critStyle
	case pct >= 10:
		return warnStyle
	default:
		return okStyle
	}
}
