package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateGeometry is returned when an eye box has zero width,
	// so no aspect ratio can be computed. The tick is treated as no signal.
	ErrDegenerateGeometry = errors.New("degenerate eye geometry")

	// ErrInvalidConfig is returned by Begin when detection thresholds are
	// out of range. Values are rejected, never clamped.
	ErrInvalidConfig = errors.New("invalid detection config")
)

// DispatchError reports a notification sink that failed to deliver an alarm.
// It is reported out of band and never retried.
type DispatchError struct {
	Sink string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch via %s: %v", e.Sink, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
