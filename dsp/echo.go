package dsp

import (
	"github.com/sirupsen/logrus"
)

// Echo suppression constants.
const (
	EchoReferenceThreshold = 0.1 // Reference magnitude above which the forward signal is ducked
	EchoDuckingFactor      = 0.3 // Multiplier applied to ducked forward samples
	ReferenceWindowDivisor = 10  // Capacity is sampleRate/10, i.e. 100 ms
)

// ReferenceBuffer is a fixed-size circular record of the reverse stream.
//
// The write cursor always stays in [0, capacity). Changing the sample rate
// reallocates the buffer and resets the cursor.
type ReferenceBuffer struct {
	samples []float32
	cursor  int
}

// NewReferenceBuffer creates a buffer holding 100 ms at sampleRate.
func NewReferenceBuffer(sampleRate int) *ReferenceBuffer {
	b := &ReferenceBuffer{}
	b.Resize(sampleRate)
	return b
}

// ReferenceCapacity returns the buffer capacity for sampleRate.
func ReferenceCapacity(sampleRate int) int {
	capacity := sampleRate / ReferenceWindowDivisor
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

// Resize reallocates the buffer for sampleRate and resets the cursor.
func (b *ReferenceBuffer) Resize(sampleRate int) {
	capacity := ReferenceCapacity(sampleRate)
	b.samples = make([]float32, capacity)
	b.cursor = 0

	logrus.WithFields(logrus.Fields{
		"function":    "ReferenceBuffer.Resize",
		"sample_rate": sampleRate,
		"capacity":    capacity,
	}).Debug("Echo reference buffer resized")
}

// Write records one reference sample and advances the cursor.
func (b *ReferenceBuffer) Write(sample float32) {
	b.samples[b.cursor] = sample
	b.cursor = (b.cursor + 1) % len(b.samples)
}

// At returns the sample written lag writes before the most recent one
// (lag 0 is the latest). Lags outside the buffer read as silence.
func (b *ReferenceBuffer) At(lag int) float32 {
	if lag < 0 || lag >= len(b.samples) {
		return 0
	}
	idx := b.cursor - 1 - lag
	if idx < 0 {
		idx += len(b.samples)
	}
	return b.samples[idx]
}

// Cursor returns the index the next write goes to.
func (b *ReferenceBuffer) Cursor() int {
	return b.cursor
}

// Capacity returns the number of samples the buffer holds.
func (b *ReferenceBuffer) Capacity() int {
	return len(b.samples)
}

// EchoSuppressor ducks the forward signal while the reference is loud.
type EchoSuppressor struct {
	enabled bool
}

// NewEchoSuppressor creates an enabled suppressor.
func NewEchoSuppressor() *EchoSuppressor {
	return &EchoSuppressor{enabled: true}
}

// Suppress returns forward·EchoDuckingFactor when the suppressor is enabled
// and |reference| exceeds EchoReferenceThreshold, otherwise forward.
func (e *EchoSuppressor) Suppress(forward, reference float32) float32 {
	if e.Triggered(reference) {
		return forward * EchoDuckingFactor
	}
	return forward
}

// Triggered reports whether reference is loud enough to duck the forward
// signal while the suppressor is enabled.
func (e *EchoSuppressor) Triggered(reference float32) bool {
	if !e.enabled {
		return false
	}
	if reference < 0 {
		reference = -reference
	}
	return reference > EchoReferenceThreshold
}

// SetEnabled turns suppression on or off.
func (e *EchoSuppressor) SetEnabled(enabled bool) {
	e.enabled = enabled
}

// Enabled reports whether suppression is active.
func (e *EchoSuppressor) Enabled() bool {
	return e.enabled
}
