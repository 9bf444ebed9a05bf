package ui

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// earPlot describes one EAR trace for earChart.
type earPlot struct {
	Series    []float64 // NaN marks ticks without a valid sample
	Threshold float64
	Ceiling   float64
	Width     int
	Height    int
	From, To  time.Time
}

var eighths = []rune(" ▁▂▃▄▅▆▇█")

// earChart draws the EAR trace as filled columns with the closure
// threshold as a dotted rule. Columns below the threshold are red, gaps
// without a face are drawn as a dim dot on the baseline.
//
//	EAR  thr 0.25  now 0.31
//	0.50┤
//	0.38┤ ▆█▇  ▇█████ █▇▆█████      ██████████
//	0.25┤·█████·█████·██████·▁·▁·▁··██████████·
//	0.13┤ █████ █████ ██████ ▄ ▃ ▂  ██████████
//	    └─────────────────────────────────────
//	    16:30:00                       16:35:00
func earChart(p earPlot) string {
	height := p.Height
	if height < 3 {
		height = 3
	}
	ceiling := p.Ceiling
	if ceiling <= 0 {
		ceiling = 0.5
	}
	cols := p.Width - 6
	if cols < 10 {
		cols = 10
	}
	samples := columnMinima(p.Series, cols)

	// Row whose band contains the threshold gets the dotted rule.
	thrRow := int(p.Threshold / ceiling * float64(height))
	if thrRow >= height {
		thrRow = height - 1
	}

	var sb strings.Builder
	now := dimStyle.Render("no signal")
	if n := len(samples); n > 0 && !math.IsNaN(samples[n-1]) {
		now = earStyle(samples[n-1], p.Threshold).Render(fmt.Sprintf("%.2f", samples[n-1]))
	}
	sb.WriteString(titleStyle.Render("EAR") + dimStyle.Render(fmt.Sprintf("  thr %.2f  now ", p.Threshold)) + now + "\n")

	for row := height - 1; row >= 0; row-- {
		label := ceiling * float64(row+1) / float64(height)
		sb.WriteString(dimStyle.Render(fmt.Sprintf("%4.2f┤", label)))
		for _, v := range samples {
			sb.WriteString(earCell(v, row, height, ceiling, p.Threshold, row == thrRow))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("    └" + strings.Repeat("─", len(samples))))

	if !p.From.IsZero() && !p.To.IsZero() {
		left, right := p.From.Format("15:04:05"), p.To.Format("15:04:05")
		gap := len(samples) + 1 - len(left) - len(right)
		if gap < 1 {
			gap = 1
		}
		sb.WriteString("\n" + dimStyle.Render("    "+left+strings.Repeat(" ", gap)+right))
	}
	return sb.String()
}

func earCell(v float64, row, height int, ceiling, threshold float64, onRule bool) string {
	if math.IsNaN(v) {
		if row == 0 || onRule {
			return dimStyle.Render("·")
		}
		return " "
	}
	level := v / ceiling * float64(height)
	fill := level - float64(row)
	switch {
	case fill >= 1:
		return earStyle(v, threshold).Render("█")
	case fill > 0:
		idx := int(fill * 8)
		if idx < 1 {
			idx = 1
		}
		return earStyle(v, threshold).Render(string(eighths[idx]))
	case onRule:
		return dimStyle.Render("·")
	}
	return " "
}

// columnMinima folds the series into at most n columns keeping the lowest
// valid EAR of each bucket, so short closures survive downsampling. A
// bucket with no valid sample stays NaN.
func columnMinima(series []float64, n int) []float64 {
	if len(series) <= n {
		return series
	}
	out := make([]float64, n)
	for i := range out {
		lo := i * len(series) / n
		hi := (i + 1) * len(series) / n
		if hi <= lo {
			hi = lo + 1
		}
		out[i] = math.NaN()
		for _, v := range series[lo:hi] {
			if !math.IsNaN(v) && (math.IsNaN(out[i]) || v < out[i]) {
				out[i] = v
			}
		}
	}
	return out
}

// episodeDuration formats an episode length: tenths below ten seconds,
// whole minutes and seconds above.
func episodeDuration(seconds float64) string {
	if seconds < 10 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
