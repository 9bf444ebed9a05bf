package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ftahirops/xwake/engine"
	"github.com/ftahirops/xwake/model"
	"github.com/ftahirops/xwake/util"
)

func renderOverview(r *model.Reading, cfg model.DetectionConfig, hist *engine.History,
	active *model.Episode, width, height int) string {

	var sb strings.Builder
	innerW := panelWidth(width)

	id := r.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	sb.WriteString(titleStyle.Render("XWAKE") + dimStyle.Render("  session "+id))
	sb.WriteString("\n\n")

	sb.WriteString(" " + statusBanner(r))
	sb.WriteString("\n\n")

	// Eyes
	earVal := dimStyle.Render("--")
	switch {
	case r.EARValid:
		earVal = earStyle(r.EAR, cfg.EARThreshold).Render(fmt.Sprintf("%.3f", r.EAR))
	case r.Degenerate:
		earVal = orangeStyle.Render("degenerate")
	case !r.HasFace:
		earVal = dimStyle.Render("no face")
	}
	barW := innerW - keyWidth - 16
	if barW > 40 {
		barW = 40
	}
	eyes := []kv{
		{"EAR", earVal},
		{"Threshold", valueStyle.Render(fmt.Sprintf("%.2f", cfg.EARThreshold))},
		{"Closure", closureBar(r.ProgressPct, barW) + " " +
			valueStyle.Render(fmt.Sprintf("%d/%d", r.Counter, cfg.ConsecutiveFrames))},
		{"Level", levelBadge(r.Level)},
	}
	sb.WriteString(panel("EYES", eyes, innerW))

	// Session
	alerts := valueStyle.Render(humanize.Comma(int64(r.AlertCount)))
	if r.AlertCount > 0 {
		alerts = critStyle.Render(humanize.Comma(int64(r.AlertCount)))
	}
	session := []kv{
		{"Time", valueStyle.Render(util.Clock(r.Elapsed))},
		{"Blinks", valueStyle.Render(humanize.Comma(int64(r.BlinkCount)))},
		{"Alerts", alerts},
		{"Frames", valueStyle.Render(humanize.Comma(int64(r.TotalFrames)))},
		{"FPS", valueStyle.Render(fmt.Sprintf("%.0f", r.FPS))},
		{"Drowsiness", drowsyPctStyle(r.DrowsinessPct).Render(fmtPct(r.DrowsinessPct))},
		{"Face present", valueStyle.Render(fmtPct(r.FacePct))},
	}
	if active != nil {
		session = append(session, kv{"Episode", critStyle.Render(fmt.Sprintf("since %s, %d frames",
			active.StartTime.Format("15:04:05"), active.Frames))})
	}
	sb.WriteString(panel("SESSION", session, innerW))

	// EAR history
	if hist != nil && hist.Len() > 1 {
		chartH := height - 26
		if chartH < 4 {
			chartH = 4
		}
		if chartH > 10 {
			chartH = 10
		}
		series := hist.EARSeries(0)
		var start, end model.Reading
		if p := hist.Get(0); p != nil {
			start = *p
		}
		if p := hist.Latest(); p != nil {
			end = *p
		}
		sb.WriteString("\n")
		sb.WriteString(earChart(earPlot{
			Series:    series,
			Threshold: cfg.EARThreshold,
			Ceiling:   0.5,
			Width:     width - 2,
			Height:    chartH,
			From:      start.Timestamp,
			To:        end.Timestamp,
		}))
		sb.WriteString("\n")
	}

	return sb.String()
}

// statusBanner summarizes the current state in one line.
func statusBanner(r *model.Reading) string {
	switch {
	case r.AlarmActive:
		return alarmBannerStyle.Render("DROWSINESS ALERT")
	case r.Level == model.LevelRising:
		return warnStyle.Render("EYES CLOSING")
	case !r.HasFace:
		return orangeStyle.Render("NO FACE DETECTED")
	case r.Degenerate:
		return orangeStyle.Render("NO SIGNAL")
	}
	return okStyle.Render("AWAKE")
}
