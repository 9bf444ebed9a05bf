package engine

import (
	"math"

	"github.com/ftahirops/xwake/model"
)

// DebounceOutcome is the debouncer's view of one tick.
type DebounceOutcome struct {
	Counter     int
	ProgressPct float64
	Below       bool // a valid sample strictly below threshold
}

// Debouncer counts consecutive below-threshold samples.
type Debouncer struct {
	consecutiveLow int
}

// Update feeds one sample. ok=false means no signal this tick (no face or
// degenerate geometry); it resets the counter rather than being read as
// closure. A sample equal to the threshold counts as open.
func (d *Debouncer) Update(ear float64, ok bool, cfg model.DetectionConfig) DebounceOutcome {
	below := ok && ear < cfg.EARThreshold
	if below {
		d.consecutiveLow++
	} else {
		d.consecutiveLow = 0
	}

	var progress float64
	if cfg.ConsecutiveFrames > 0 {
		progress = math.Min(100, float64(d.consecutiveLow)/float64(cfg.ConsecutiveFrames)*100)
	}
	return DebounceOutcome{
		Counter:     d.consecutiveLow,
		ProgressPct: progress,
		Below:       below,
	}
}

// Counter returns the current consecutive-low count.
func (d *Debouncer) Counter() int {
	return d.consecutiveLow
}
