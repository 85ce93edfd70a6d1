// Package limits provides the centralized domains of every caller-supplied
// value accepted by the audio processing pipeline.
//
// # Domains
//
//   - Sample rate: 8000, 12000, 16000, 24000, 32000, 44100 or 48000 Hz
//   - Channels: 1 to MaxChannels (8)
//   - Noise suppression level: 0 (low) to 3 (very high)
//   - Analog level: 0 to 255, 128 being unity gain
//   - Stream delay: 0 to MaxStreamDelayMs (500 ms)
//
// # Validation Functions
//
// Each function returns nil for an in-domain value and otherwise an error
// wrapping ErrOutOfRange with the offending value and the accepted domain:
//
//	if err := limits.ValidateSampleRate(rate); err != nil {
//	    // errors.Is(err, limits.ErrOutOfRange) == true
//	}
//
// Values the pipeline derives internally, such as the AGC gain, are clamped
// by the stage that computes them and never pass through this package.
package limits
