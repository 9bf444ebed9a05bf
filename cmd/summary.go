package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ftahirops/xwake/model"
	"github.com/ftahirops/xwake/util"
)

func printSummary(sum model.SessionSummary, det model.DetectionConfig) {
	renderSummaryCLI(os.Stdout, sum, det)
}

func renderSummaryCLI(w io.Writer, sum model.SessionSummary, det model.DetectionConfig) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleLine("SESSION "+shortSession(sum.ID)))
	fmt.Fprintf(w, " %sStarted%s      %s\n", B, R, sum.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, " %sDuration%s     %s\n", B, R, util.Clock(sum.Duration()))
	fmt.Fprintf(w, " %sConfig%s       EAR < %.2f for %d frames\n", B, R, det.EARThreshold, det.ConsecutiveFrames)
	fmt.Fprintf(w, " %sFrames%s       %s (face %s, avg %.1f fps)\n", B, R,
		humanize.Comma(int64(sum.TotalFrames)), fmtPct(sum.FacePct), sum.AvgFPS)
	fmt.Fprintf(w, " %sBlinks%s       %s\n", B, R, humanize.Comma(int64(sum.BlinkCount)))

	alerts := fmt.Sprintf("%s%d%s", FBGrn, sum.AlertCount, R)
	if sum.AlertCount > 0 {
		alerts = fmt.Sprintf("%s%s%d%s", B, FBRed, sum.AlertCount, R)
	}
	fmt.Fprintf(w, " %sAlerts%s       %s\n", B, R, alerts)
	fmt.Fprintf(w, " %sDrowsiness%s   %s %s\n", B, R, bar(sum.DrowsinessPct, 20), fmtPct(sum.DrowsinessPct))
	fmt.Fprintln(w, hr())
}

func renderSummaryMarkdown(sum model.SessionSummary, episodes []model.Episode) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# xwake Session %s\n\n", sum.ID))
	sb.WriteString(fmt.Sprintf("**Started:** %s  \n", sum.StartedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("**Duration:** %s\n\n", util.Clock(sum.Duration())))

	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| EAR threshold | %.2f |\n", sum.Config.EARThreshold))
	sb.WriteString(fmt.Sprintf("| Consecutive frames | %d |\n", sum.Config.ConsecutiveFrames))
	sb.WriteString(fmt.Sprintf("| Frames | %d |\n", sum.TotalFrames))
	sb.WriteString(fmt.Sprintf("| Frames with face | %d |\n", sum.FaceFrames))
	sb.WriteString(fmt.Sprintf("| Drowsy frames | %d |\n", sum.DrowsyFrames))
	sb.WriteString(fmt.Sprintf("| Drowsiness | %.1f%% |\n", sum.DrowsinessPct))
	sb.WriteString(fmt.Sprintf("| Blinks | %d |\n", sum.BlinkCount))
	sb.WriteString(fmt.Sprintf("| Alerts | %d |\n", sum.AlertCount))
	sb.WriteString(fmt.Sprintf("| Avg FPS | %.1f |\n", sum.AvgFPS))

	if len(episodes) > 0 {
		sb.WriteString("\n## Alarm episodes\n\n")
		sb.WriteString("| ID | Start | Duration | Frames | Min EAR |\n")
		sb.WriteString("|----|-------|----------|--------|---------|\n")
		for _, ep := range episodes {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.1fs | %d | %.3f |\n",
				ep.ID, ep.StartTime.Format("15:04:05"), ep.Duration, ep.Frames, ep.MinEAR))
		}
	}
	return sb.String()
}

func fmtPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
