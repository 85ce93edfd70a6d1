// Package apm implements a real-time streaming audio enhancement pipeline.
//
// Each call takes a buffer of float32 PCM samples in [-1, 1] and runs every
// sample through a fixed chain of stages before returning a buffer of the
// same shape:
//
//	Forward: high-pass filter → noise gate → automatic gain control → echo suppressor → clamp
//	Reverse: recorded into the echo reference buffer, returned unchanged
//
// # Getting Started
//
// Create a processor, configure it and push frames through it:
//
//	proc := apm.New()
//	proc.SetHighPassFilterEnabled(true)
//	if err := proc.SetNoiseSuppressionLevel(apm.NSLevelHigh); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Speaker audio first, microphone audio second.
//	if _, err := proc.ProcessReverseStream(apm.MonoBuffer(speaker), 16000, 1); err != nil {
//	    log.Fatal(err)
//	}
//	clean, err := proc.ProcessStream(apm.MonoBuffer(mic), 16000, 1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stats := proc.Statistics()
//	fmt.Println(stats.Map()["agc_envelope"])
//
// # Core Types
//
//   - [Processor]: the handle callers hold; validates input and delegates to an [Engine]
//   - [Engine]: the capability set a processing backend provides
//   - [StreamProcessor]: the built-in engine implementing the chain above
//   - [Buffer]: sample data plus a rank 1 ([n]) or rank 2 ([frames, channels]) shape
//   - [Statistics]: immutable snapshot returned by [Processor.Statistics]
//   - [Config]: sectioned feature configuration applied with [Config.ApplyTo]
//
// # Reconfiguration
//
// The sample rate and channel count travel with every call. When either
// differs from the previous call the filter and AGC coefficients are
// recomputed and the echo reference buffer is reallocated before the first
// sample of that same call is processed.
//
// # Channel State
//
// By default each interleaved channel owns its own high-pass memory and AGC
// envelope. [ChannelStateShared] restores the single shared state of the
// legacy implementation for compatibility testing.
//
// # Echo Reference
//
// With [EchoReferenceWired] (the default) the forward path reads the reverse
// stream back from the reference buffer, aligned by the stream delay, and
// ducks the microphone while the speaker is loud. [EchoReferenceDetached]
// keeps the legacy behaviour where the buffer is recorded but never read.
//
// # Errors
//
// Invalid input never mutates the processor:
//
//   - [ErrInvalidShape]: rank other than 1 or 2, or extents that do not match the data
//   - [ErrOutOfRangeConfig]: a caller-supplied value outside its documented domain
//   - [ErrComputationFailure]: a backend reported a processing failure
//
// # Thread Safety
//
// A Processor does no locking. All calls on one instance must be serialized
// by the caller. Nothing runs in the background.
package apm
