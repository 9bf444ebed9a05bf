package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ftahirops/xwake/model"
)

// Session orchestrates the EAR, debounce, alert, and metrics stages for one
// monitoring stream.
type Session struct {
	ID      string
	History *History

	cfg        model.DetectionConfig
	debounce   Debouncer
	alert      *AlertState
	metrics    *SessionMetrics
	dispatcher Dispatcher
	clock      func() time.Time

	seq    uint64
	last   model.Reading
	ended  bool
	tickMu sync.Mutex // serializes Tick() calls, one logical stream per session
}

// Option configures a Session.
type Option func(*Session)

// WithDispatcher routes AlarmRaised events to d.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Session) { s.dispatcher = d }
}

// WithClock overrides the time source used for frames without a timestamp.
func WithClock(fn func() time.Time) Option {
	return func(s *Session) { s.clock = fn }
}

// WithHistorySize sets the reading ring buffer capacity.
func WithHistorySize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.History = NewHistory(n)
		}
	}
}

// WithID sets the session ID instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// ValidateConfig rejects out-of-range detection thresholds.
func ValidateConfig(cfg model.DetectionConfig) error {
	if cfg.EARThreshold < 0.1 || cfg.EARThreshold > 0.4 {
		return fmt.Errorf("%w: ear_threshold %.3f outside [0.1, 0.4]", ErrInvalidConfig, cfg.EARThreshold)
	}
	if cfg.ConsecutiveFrames < 1 {
		return fmt.Errorf("%w: consecutive_frames %d must be >= 1", ErrInvalidConfig, cfg.ConsecutiveFrames)
	}
	return nil
}

// Begin starts a new session with a fixed detection config.
func Begin(cfg model.DetectionConfig, opts ...Option) (*Session, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	s := &Session{
		ID:      uuid.NewString(),
		History: NewHistory(600),
		cfg:     cfg,
		alert:   NewAlertState(cfg.ConsecutiveFrames),
		clock:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.metrics = NewSessionMetrics(s.clock())
	return s, nil
}

// Config returns the session's detection config.
func (s *Session) Config() model.DetectionConfig {
	return s.cfg
}

// Tick processes one frame and returns the resulting reading.
// Serialized via tickMu; the dispatcher is called without blocking.
func (s *Session) Tick(f model.Frame) model.Reading {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	now := f.Timestamp
	if now.IsZero() {
		now = s.clock()
	}
	s.seq++

	r := model.Reading{
		SessionID: s.ID,
		Seq:       s.seq,
		Timestamp: now,
		HasFace:   f.HasFace(),
	}

	if r.HasFace {
		ear, err := MeanEAR(f.Face.Left, f.Face.Right)
		if err != nil {
			r.Degenerate = true
		} else {
			r.EAR = ear
			r.EARValid = true
		}
	}

	out := s.debounce.Update(r.EAR, r.EARValid, s.cfg)
	tr := s.alert.Update(out.Counter)
	s.metrics.Tick(r.HasFace, out.Below, now)

	r.Counter = out.Counter
	r.ProgressPct = out.ProgressPct
	r.Below = out.Below
	r.Level = tr.To
	r.AlarmActive = s.alert.AlarmActive()
	r.BlinkCount = s.alert.Blinks()
	r.AlertCount = s.alert.Alerts()
	r.TotalFrames = s.metrics.TotalFrames()
	r.DrowsyFrames = s.metrics.DrowsyFrames()
	r.FaceFrames = s.metrics.FaceFrames()
	r.FPS = s.metrics.FPS()
	r.DrowsinessPct = s.metrics.DrowsinessPct()
	r.FacePct = s.metrics.FacePct()
	r.Elapsed = s.metrics.Elapsed()

	if tr.Raised {
		evt := model.AlarmRaised{
			SessionID:         s.ID,
			Seq:               r.Seq,
			Timestamp:         now,
			EAR:               r.EAR,
			Counter:           r.Counter,
			AlertCount:        r.AlertCount,
			EARThreshold:      s.cfg.EARThreshold,
			ConsecutiveFrames: s.cfg.ConsecutiveFrames,
		}
		r.Alarm = &evt
		if s.dispatcher != nil {
			s.dispatcher.Dispatch(evt)
		}
	}

	s.last = r
	s.History.Push(r)
	return r
}

// Last returns the most recent reading.
func (s *Session) Last() model.Reading {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.last
}

// Summary returns the session totals so far.
func (s *Session) Summary() model.SessionSummary {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.summaryLocked()
}

// End finalizes the session and returns its summary. Ticks after End are
// still accepted but the summary end time is fixed.
func (s *Session) End() model.SessionSummary {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.ended = true
	return s.summaryLocked()
}

// Ended reports whether End has been called.
func (s *Session) Ended() bool {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.ended
}

func (s *Session) summaryLocked() model.SessionSummary {
	m := s.metrics
	return model.SessionSummary{
		ID:            s.ID,
		StartedAt:     m.StartedAt(),
		EndedAt:       m.StartedAt().Add(m.Elapsed()),
		Config:        s.cfg,
		TotalFrames:   m.TotalFrames(),
		DrowsyFrames:  m.DrowsyFrames(),
		FaceFrames:    m.FaceFrames(),
		BlinkCount:    s.alert.Blinks(),
		AlertCount:    s.alert.Alerts(),
		DrowsinessPct: m.DrowsinessPct(),
		FacePct:       m.FacePct(),
		AvgFPS:        m.AvgFPS(),
	}
}
