// Package dsp provides the per-sample signal processing stages used by the
// audio enhancement pipeline.
//
// Every stage owns its own state and processes one sample at a time so that
// the orchestrating processor can keep one instance per channel:
//
//	Forward:  x → HighPassFilter → NoiseGate → GainController → EchoSuppressor → clamp
//	Reverse:  x → ReferenceBuffer (recorded, passed through unchanged)
//
// # Stages
//
//   - HighPassFilter: one-pole high-pass at 120 Hz, state frozen while disabled
//   - NoiseGate: threshold/ratio attenuation selected by a level from 0 to 3
//   - GainController: envelope follower AGC with attack/release time constants
//   - ReferenceBuffer: 100 ms circular record of the reverse stream
//   - EchoSuppressor: ducks the forward signal while the reference is loud
//
// Coefficients that depend on the sample rate are computed by SetSampleRate
// and never per sample.
//
// # Thread Safety
//
// None of the stages lock. They are owned by exactly one processor and must
// be driven from one goroutine at a time.
package dsp
