package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Point is a 2-D landmark coordinate in image pixels.
// On the wire it is encoded as a two-element array: [x, y].
type Point struct {
	X, Y float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("point: want [x, y], got %d values", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// EyePoints is the six-point contour of one eye in landmark order P1..P6.
// P1 and P4 are the horizontal corners; (P2,P6) and (P3,P5) are the
// vertical lid pairs.
type EyePoints [6]Point

// UnmarshalJSON requires exactly six points.
func (e *EyePoints) UnmarshalJSON(data []byte) error {
	var pts []Point
	if err := json.Unmarshal(data, &pts); err != nil {
		return fmt.Errorf("eye: %w", err)
	}
	if len(pts) != len(e) {
		return fmt.Errorf("eye: want %d points, got %d", len(e), len(pts))
	}
	copy(e[:], pts)
	return nil
}

// Scale returns a copy with every coordinate multiplied by k.
func (e EyePoints) Scale(k float64) EyePoints {
	var out EyePoints
	for i, p := range e {
		out[i] = Point{X: p.X * k, Y: p.Y * k}
	}
	return out
}

// Rect is a face bounding box in pixels.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X, r.Y, r.W, r.H})
}

func (r *Rect) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	if len(v) != 4 {
		return fmt.Errorf("bbox: want [x, y, w, h], got %d values", len(v))
	}
	r.X, r.Y, r.W, r.H = v[0], v[1], v[2], v[3]
	return nil
}

// Observation is one detected face's eye geometry for a single frame.
type Observation struct {
	Left  EyePoints `json:"left"`
	Right EyePoints `json:"right"`
	Face  Rect      `json:"bbox"`
}

// Frame is the per-tick input. A nil Face means no face was detected.
// A zero Timestamp means "use the session clock".
type Frame struct {
	Timestamp time.Time    `json:"ts,omitzero"`
	Face      *Observation `json:"face,omitempty"`
}

// HasFace reports whether the frame carries eye geometry.
func (f Frame) HasFace() bool {
	return f.Face != nil
}
