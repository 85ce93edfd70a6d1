package dsp

import "math"

// Stage is one per-sample processing step.
type Stage interface {
	// Process runs one sample through the stage.
	Process(x float32) float32

	// GetName returns a human-readable name for logs.
	GetName() string
}

// Chain applies stages in order. Each channel owns its own chain so stateful
// stages never see samples of another channel.
type Chain []Stage

// Process runs one sample through every stage.
func (c Chain) Process(x float32) float32 {
	for _, stage := range c {
		x = stage.Process(x)
	}
	return x
}

// Names returns the stage names in processing order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, stage := range c {
		names[i] = stage.GetName()
	}
	return names
}

// Sanitize maps NaN and ±Inf to 0 and reports whether it did.
func Sanitize(x float32) (float32, bool) {
	if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
		return 0, true
	}
	return x, false
}

// Clamp limits x to [-1, 1] and reports whether it changed. NaN maps to 0.
func Clamp(x float32) (float32, bool) {
	switch {
	case x > 1:
		return 1, true
	case x < -1:
		return -1, true
	case math.IsNaN(float64(x)):
		return 0, true
	}
	return x, false
}
