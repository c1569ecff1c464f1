package engine

import (
	"math"

	"github.com/roach88/choreo/internal/ir"
)

// Linear maps every fraction to itself.
func Linear(f float64) float64 { return f }

// Accelerate starts slow and speeds up.
func Accelerate(f float64) float64 { return f * f }

// Decelerate starts fast and slows down.
func Decelerate(f float64) float64 { return 1 - (1-f)*(1-f) }

// AccelerateDecelerate starts and ends slowly with a faster middle.
func AccelerateDecelerate(f float64) float64 {
	return math.Cos((f+1)*math.Pi)/2 + 0.5
}

// Easing returns the interpolator for a definition easing name. The empty
// name returns nil, which keeps the playable's current interpolator.
func Easing(name string) ir.Interpolator {
	switch name {
	case ir.EasingLinear:
		return Linear
	case ir.EasingAccelerate:
		return Accelerate
	case ir.EasingDecelerate:
		return Decelerate
	case ir.EasingAccelerateDecelerate:
		return AccelerateDecelerate
	}
	return nil
}
