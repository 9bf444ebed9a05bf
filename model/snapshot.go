package model

import "time"

// AlertLevel is the state of the closure alert machine.
type AlertLevel int

const (
	LevelIdle   AlertLevel = 0
	LevelRising AlertLevel = 1
	LevelAlarm  AlertLevel = 2
)

func (l AlertLevel) String() string {
	switch l {
	case LevelIdle:
		return "IDLE"
	case LevelRising:
		return "RISING"
	case LevelAlarm:
		return "ALARM"
	}
	return "UNKNOWN"
}

// DetectionConfig holds the per-session detection thresholds.
// It is immutable for the lifetime of a session.
type DetectionConfig struct {
	EARThreshold      float64 `yaml:"ear_threshold" json:"ear_threshold"`
	ConsecutiveFrames int     `yaml:"consecutive_frames" json:"consecutive_frames"`
}

// Reading is the output record of one tick. UIs and exporters bind to it,
// never to session internals.
type Reading struct {
	SessionID string    `json:"session_id"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`

	HasFace    bool    `json:"has_face"`
	Degenerate bool    `json:"degenerate,omitempty"`
	EAR        float64 `json:"ear"`
	EARValid   bool    `json:"ear_valid"` // false = no signal this tick

	Counter     int        `json:"counter"`
	ProgressPct float64    `json:"progress_pct"`
	Below       bool       `json:"below"`
	Level       AlertLevel `json:"level"`
	AlarmActive bool       `json:"alarm_active"`

	BlinkCount    uint64        `json:"blink_count"`
	AlertCount    uint64        `json:"alert_count"`
	TotalFrames   uint64        `json:"total_frames"`
	DrowsyFrames  uint64        `json:"drowsy_frames"`
	FaceFrames    uint64        `json:"face_frames"`
	FPS           float64       `json:"fps"`
	DrowsinessPct float64       `json:"drowsiness_pct"`
	FacePct       float64       `json:"face_pct"`
	Elapsed       time.Duration `json:"elapsed_ns"`

	// Alarm is set only on the tick where the Alarm state was entered.
	Alarm *AlarmRaised `json:"alarm,omitempty"`
}

// AlarmRaised is the immutable event handed to the alert dispatcher.
type AlarmRaised struct {
	SessionID         string    `json:"session_id"`
	Seq               uint64    `json:"seq"`
	Timestamp         time.Time `json:"ts"`
	EAR               float64   `json:"ear"`
	Counter           int       `json:"counter"`
	AlertCount        uint64    `json:"alert_count"`
	EARThreshold      float64   `json:"ear_threshold"`
	ConsecutiveFrames int       `json:"consecutive_frames"`
}

// SessionSummary is the final state of a monitoring session.
type SessionSummary struct {
	ID            string          `json:"id"`
	StartedAt     time.Time       `json:"started_at"`
	EndedAt       time.Time       `json:"ended_at"`
	Config        DetectionConfig `json:"config"`
	TotalFrames   uint64          `json:"total_frames"`
	DrowsyFrames  uint64          `json:"drowsy_frames"`
	FaceFrames    uint64          `json:"face_frames"`
	BlinkCount    uint64          `json:"blink_count"`
	AlertCount    uint64          `json:"alert_count"`
	DrowsinessPct float64         `json:"drowsiness_pct"`
	FacePct       float64         `json:"face_pct"`
	AvgFPS        float64         `json:"avg_fps"`
}

// Duration returns the wall time covered by the session.
func (s SessionSummary) Duration() time.Duration {
	if s.EndedAt.Before(s.StartedAt) {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
