package engine

import (
	"context"
	"io"
	"time"

	"github.com/ftahirops/xwake/model"
)

var testCfg = model.DetectionConfig{EARThreshold: 0.25, ConsecutiveFrames: 20}

// eyeWithEAR returns a symmetric 30px-wide eye whose EAR is exactly ear.
func eyeWithEAR(ear float64) model.EyePoints {
	const w = 30.0
	h := ear * w / 2
	return model.EyePoints{
		{X: 0, Y: 0},
		{X: w / 3, Y: h},
		{X: 2 * w / 3, Y: h},
		{X: w, Y: 0},
		{X: 2 * w / 3, Y: -h},
		{X: w / 3, Y: -h},
	}
}

// frameAt builds a frame with both eyes at ear, n ticks after base at 30 fps.
func frameAt(base time.Time, n int, ear float64) model.Frame {
	eye := eyeWithEAR(ear)
	return model.Frame{
		Timestamp: base.Add(time.Duration(n) * time.Second / 30),
		Face:      &model.Observation{Left: eye, Right: eye, Face: model.Rect{W: 120, H: 120}},
	}
}

func noFaceAt(base time.Time, n int) model.Frame {
	return model.Frame{Timestamp: base.Add(time.Duration(n) * time.Second / 30)}
}

// captureDispatcher records every dispatched alarm.
type captureDispatcher struct {
	events []model.AlarmRaised
}

func (c *captureDispatcher) Dispatch(evt model.AlarmRaised) {
	c.events = append(c.events, evt)
}

// sliceSource replays frames, then reports io.EOF.
type sliceSource struct {
	frames []model.Frame
	i      int
}

func (s *sliceSource) Next(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}
	if s.i >= len(s.frames) {
		return model.Frame{}, io.EOF
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}
