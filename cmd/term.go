package cmd

import (
	"fmt"
	"strings"

	"github.com/ftahirops/xwake/model"
)

// ANSI color/style codes for the plain-text commands.
const (
	R = "\033[0m" // reset
	B = "\033[1m" // bold
	D = "\033[2m" // dim

	FCyn = "\033[36m"

	FBRed = "\033[91m"
	FBGrn = "\033[92m"
	FBYel = "\033[93m"
	FBWht = "\033[97m"

	BRed = "\033[41m"
	BBlu = "\033[44m"
)

func titleLine(t string) string {
	pad := 78 - len(t) - 2
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("%s%s== %s %s%s", B, FCyn, t, strings.Repeat("=", pad), R)
}

func hr() string {
	return fmt.Sprintf("%s%s%s", D, strings.Repeat("-", 78), R)
}

// bar renders a fixed-width progress bar for pct in [0,100].
func bar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	color := FBGrn
	switch {
	case pct >= 100:
		color = FBRed
	case pct >= 50:
		color = FBYel
	}
	return fmt.Sprintf("%s%s%s%s%s", color, strings.Repeat("█", filled), D, strings.Repeat("░", width-filled), R)
}

// levelTag colors an alert level for terminal output.
func levelTag(l model.AlertLevel) string {
	switch l {
	case model.LevelAlarm:
		return fmt.Sprintf("%s%s%s %-6s %s", B, BRed, FBWht, l, R)
	case model.LevelRising:
		return fmt.Sprintf("%s%-6s%s", FBYel, l, R)
	case model.LevelIdle:
		return fmt.Sprintf("%s%-6s%s", FBGrn, l, R)
	}
	return fmt.Sprintf("%s%-6s%s", D, l, R)
}

// earText colors an EAR value against the threshold.
func earText(r model.Reading, threshold float64) string {
	switch {
	case !r.HasFace:
		return fmt.Sprintf("%s no face%s", D, R)
	case !r.EARValid:
		return fmt.Sprintf("%s   n/a %s", D, R)
	case r.EAR < threshold:
		return fmt.Sprintf("%s%6.3f%s", FBRed, r.EAR, R)
	}
	return fmt.Sprintf("%s%6.3f%s", FBGrn, r.EAR, R)
}
