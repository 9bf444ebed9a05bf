package model

import "time"

// Episode is one alarm episode: from the tick the Alarm state is entered
// until the debounce counter next resets.
type Episode struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitzero"`
	Duration  float64   `json:"duration_sec,omitempty"`
	Frames    uint64    `json:"frames"`
	MinEAR    float64   `json:"min_ear"`
	Active    bool      `json:"active"`
}
