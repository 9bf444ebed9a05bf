package engine

import (
	"time"

	"github.com/ftahirops/xwake/util"
)

// fpsWindow counts ticks over rolling one-second windows. The published
// value changes only when a window closes.
type fpsWindow struct {
	start time.Time
	count int
	value float64
}

func (w *fpsWindow) observe(now time.Time) {
	if w.start.IsZero() {
		w.start = now
	}
	w.count++
	if now.Sub(w.start) >= time.Second {
		w.value = float64(w.count)
		w.count = 0
		w.start = now
	}
}

// SessionMetrics aggregates per-session frame statistics.
type SessionMetrics struct {
	start  time.Time
	last   time.Time
	total  uint64
	drowsy uint64
	faces  uint64
	fps    fpsWindow
}

// NewSessionMetrics starts the session clock at start.
func NewSessionMetrics(start time.Time) *SessionMetrics {
	return &SessionMetrics{start: start, last: start, fps: fpsWindow{start: start}}
}

// Tick records one processed frame.
// A first frame stamped before the session start (replayed input) moves
// the start back to that frame.
func (m *SessionMetrics) Tick(hasFace, below bool, now time.Time) {
	if m.total == 0 && now.Before(m.start) {
		*m = SessionMetrics{start: now, last: now, fps: fpsWindow{start: now}}
	}
	m.total++
	if below {
		m.drowsy++
	}
	if hasFace {
		m.faces++
	}
	if now.After(m.last) {
		m.last = now
	}
	m.fps.observe(now)
}

// TotalFrames is the number of ticks processed.
func (m *SessionMetrics) TotalFrames() uint64 { return m.total }

// DrowsyFrames is the number of ticks with EAR below the threshold.
func (m *SessionMetrics) DrowsyFrames() uint64 { return m.drowsy }

// FaceFrames is the number of ticks that carried a face.
func (m *SessionMetrics) FaceFrames() uint64 { return m.faces }

// StartedAt is the session start, moved back for replayed input.
func (m *SessionMetrics) StartedAt() time.Time { return m.start }

// DrowsinessPct is the share of frames that were below threshold.
func (m *SessionMetrics) DrowsinessPct() float64 {
	return util.Pct(m.drowsy, m.total)
}

// FacePct is the share of frames that carried a face.
func (m *SessionMetrics) FacePct() float64 {
	return util.Pct(m.faces, m.total)
}

// FPS returns ticks counted in the last completed one-second window.
func (m *SessionMetrics) FPS() float64 {
	return m.fps.value
}

// Elapsed returns session wall time up to the latest tick.
func (m *SessionMetrics) Elapsed() time.Duration {
	return m.last.Sub(m.start)
}

// AvgFPS is the mean tick rate over the whole session.
func (m *SessionMetrics) AvgFPS() float64 {
	return util.Rate(0, m.total, m.Elapsed())
}
