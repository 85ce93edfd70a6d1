package webrtc

import (
	"errors"
	"fmt"

	"github.com/opd-ai/apm"
	"github.com/opd-ai/apm/dsp"
)

// Stream constraints of the native echo canceller.
const (
	SampleRate = apm.SampleRate48000
	Channels   = 1
	FrameSize  = SampleRate / 100 // 10 ms
)

// ErrUnavailable is returned by New when the package was built without the
// webrtc tag.
var ErrUnavailable = errors.New("webrtc engine not compiled in (build with -tags webrtc)")

// checkFormat rejects streams the native library cannot process.
func checkFormat(samples int, format apm.StreamFormat) error {
	if format.SampleRate != SampleRate {
		return fmt.Errorf("%w: webrtc engine requires %d Hz, got %d", apm.ErrOutOfRangeConfig, SampleRate, format.SampleRate)
	}
	if format.Channels != Channels {
		return fmt.Errorf("%w: webrtc engine requires %d channel, got %d", apm.ErrOutOfRangeConfig, Channels, format.Channels)
	}
	if samples%FrameSize != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-sample frames", apm.ErrInvalidShape, samples, FrameSize)
	}
	return nil
}

// clampFrame limits native output to [-1, 1] in place and returns how many
// samples it changed.
func clampFrame(out []float32) int {
	var clipped int
	for i, y := range out {
		y, changed := dsp.Clamp(y)
		if changed {
			clipped++
		}
		out[i] = y
	}
	return clipped
}

// echoDetected reports whether the native canceller removed echo energy.
func echoDetected(erle float64) bool {
	return erle > 0
}

// engineVersion is the version reported by the native engine.
const engineVersion = apm.Version + "-webrtc"
