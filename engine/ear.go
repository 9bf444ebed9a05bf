package engine

import (
	"math"

	"github.com/ftahirops/xwake/model"
)

// EAR computes the eye aspect ratio of one eye:
//
//	A = |P2-P6|, B = |P3-P5|, C = |P1-P4|
//	EAR = (A + B) / (2C)
//
// A zero-width eye (C == 0) or a non-finite result yields ErrDegenerateGeometry.
func EAR(p model.EyePoints) (float64, error) {
	a := dist(p[1], p[5])
	b := dist(p[2], p[4])
	c := dist(p[0], p[3])
	if c == 0 {
		return 0, ErrDegenerateGeometry
	}
	ear := (a + b) / (2 * c)
	if math.IsNaN(ear) || math.IsInf(ear, 0) {
		return 0, ErrDegenerateGeometry
	}
	return ear, nil
}

// MeanEAR averages the EAR of both eyes. Either eye being degenerate
// makes the whole sample invalid.
func MeanEAR(left, right model.EyePoints) (float64, error) {
	l, err := EAR(left)
	if err != nil {
		return 0, err
	}
	r, err := EAR(right)
	if err != nil {
		return 0, err
	}
	return (l + r) / 2, nil
}

func dist(a, b model.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
