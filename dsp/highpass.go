package dsp

import (
	"math"

	"github.com/sirupsen/logrus"
)

// HighPassCutoffHz is the fixed corner frequency of the high-pass stage.
const HighPassCutoffHz = 120.0

// HighPassFilter implements a one-pole high-pass filter.
//
//	y[n] = b·(x[n] - x[n-1]) + a·y[n-1]
//	a = exp(-2π·fc/fs), b = (1+a)/2
//
// The filter memory survives across calls. While the filter is disabled the
// memory is frozen rather than reset, so re-enabling resumes from the last
// active state.
type HighPassFilter struct {
	a, b    float64 // Coefficients derived from the sample rate
	x1, y1  float64 // Previous input and previous output
	enabled bool
}

// NewHighPassFilter creates an enabled filter tuned for sampleRate.
func NewHighPassFilter(sampleRate int) *HighPassFilter {
	f := &HighPassFilter{enabled: true}
	f.SetSampleRate(sampleRate)
	return f
}

// SetSampleRate recomputes the coefficients for a new sample rate.
// The filter memory is left untouched.
func (f *HighPassFilter) SetSampleRate(sampleRate int) {
	alpha := math.Exp(-2.0 * math.Pi * HighPassCutoffHz / float64(sampleRate))
	f.a = alpha
	f.b = (1.0 + alpha) / 2.0

	logrus.WithFields(logrus.Fields{
		"function":    "HighPassFilter.SetSampleRate",
		"sample_rate": sampleRate,
		"a":           f.a,
		"b":           f.b,
	}).Debug("High-pass coefficients recomputed")
}

// Filter runs one sample through the filter.
func (f *HighPassFilter) Filter(x float32) float32 {
	if !f.enabled {
		return x
	}

	in := float64(x)
	y := f.b*(in-f.x1) + f.a*f.y1
	f.x1 = in
	f.y1 = y

	return float32(y)
}

// Process implements Stage.
func (f *HighPassFilter) Process(x float32) float32 {
	return f.Filter(x)
}

// GetName implements Stage.
func (f *HighPassFilter) GetName() string {
	return "high_pass_filter"
}

// SetEnabled turns the filter on or off without touching its memory.
func (f *HighPassFilter) SetEnabled(enabled bool) {
	f.enabled = enabled
}

// Enabled reports whether the filter is active.
func (f *HighPassFilter) Enabled() bool {
	return f.enabled
}

// Coefficients returns the feedback (a) and feed-forward (b) coefficients.
func (f *HighPassFilter) Coefficients() (a, b float64) {
	return f.a, f.b
}

// State returns the filter memory (previous input, previous output).
func (f *HighPassFilter) State() (x1, y1 float64) {
	return f.x1, f.y1
}
