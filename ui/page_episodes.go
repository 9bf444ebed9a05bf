package ui

import (
	"fmt"
	"strings"

	"github.com/ftahirops/xwake/model"
)

func renderEpisodesPage(active *model.Episode, completed []model.Episode, selected int, width, height int) string {
	var sb strings.Builder

	total := len(completed)
	if active != nil {
		total++
	}
	sb.WriteString(titleStyle.Render(fmt.Sprintf("ALARM EPISODES  (%d)", total)))
	sb.WriteString("\n\n")

	if active != nil {
		sb.WriteString(critStyle.Render("  ACTIVE ALARM"))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("  Started: %s  Frames: %s  Min EAR: %s\n\n",
			valueStyle.Render(active.StartTime.Format("15:04:05")),
			valueStyle.Render(fmt.Sprintf("%d", active.Frames)),
			valueStyle.Render(fmt.Sprintf("%.3f", active.MinEAR)),
		))
	}

	if len(completed) == 0 {
		if active == nil {
			sb.WriteString(okStyle.Render("  No alarm episodes yet"))
			sb.WriteString("\n")
			sb.WriteString(dimStyle.Render("  An episode starts when the eyes stay closed for the configured number of frames"))
		}
		return sb.String()
	}

	hdr := fmt.Sprintf("  %-10s %-17s %9s %8s %8s  %s",
		"STATUS", "TIME RANGE", "DURATION", "FRAMES", "MIN EAR", "SESSION")
	sb.WriteString(headerStyle.Render(hdr))
	sb.WriteString("\n")
	ruleW := width - 4
	if ruleW < 10 {
		ruleW = 10
	}
	sb.WriteString(dimStyle.Render("  " + strings.Repeat("─", ruleW)))
	sb.WriteString("\n")

	for i, ep := range completed {
		timeRange := ep.StartTime.Format("15:04:05")
		if !ep.EndTime.IsZero() {
			timeRange += "-" + ep.EndTime.Format("15:04:05")
		}
		dur := episodeDuration(ep.Duration)

		line := fmt.Sprintf("  %-10s %-17s %9s %8d %8.3f  %s",
			"CLEARED", timeRange, dur, ep.Frames, ep.MinEAR, truncate(ep.SessionID, 12))

		if i == selected {
			sb.WriteString(selectedStyle.Render(line))
		} else {
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("  j/k: navigate"))
	return sb.String()
}
