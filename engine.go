package apm

import "fmt"

// Feature identifies one switchable processing stage.
type Feature int

const (
	// FeatureEchoCancellation ducks the forward stream while the reference is loud.
	FeatureEchoCancellation Feature = iota
	// FeatureNoiseSuppression gates low-level noise.
	FeatureNoiseSuppression
	// FeatureGainControl enables the automatic gain controller.
	FeatureGainControl
	// FeatureHighPassFilter removes content below 120 Hz.
	FeatureHighPassFilter
)

// Features lists every feature in pipeline order of the legacy API.
var Features = []Feature{
	FeatureEchoCancellation,
	FeatureNoiseSuppression,
	FeatureGainControl,
	FeatureHighPassFilter,
}

// String returns the feature name used in logs and metrics.
func (f Feature) String() string {
	switch f {
	case FeatureEchoCancellation:
		return "echo_cancellation"
	case FeatureNoiseSuppression:
		return "noise_suppression"
	case FeatureGainControl:
		return "gain_control"
	case FeatureHighPassFilter:
		return "high_pass_filter"
	default:
		return fmt.Sprintf("feature(%d)", int(f))
	}
}

// StreamFormat is the sample rate and interleaved channel count of a stream.
type StreamFormat struct {
	SampleRate int
	Channels   int
}

// FrameReport describes what happened while an engine processed a frame.
type FrameReport struct {
	Reconfigured bool         // The format differed from the previous call
	Format       StreamFormat // Format the engine runs at after the call
	Clipped      int          // Samples clamped into [-1, 1]
	NonFinite    int          // NaN or infinite input samples replaced by 0
}

// Engine is the capability set a processing backend provides.
//
// A Processor validates every value before it reaches an Engine, so
// implementations may assume in-domain arguments and a data length that is a
// whole number of frames. Engines are not safe for concurrent use.
type Engine interface {
	// Name identifies the engine in logs and metrics.
	Name() string
	// Version returns the engine version string.
	Version() string

	SetFeatureEnabled(feature Feature, enabled bool)
	FeatureEnabled(feature Feature) bool

	// SetNoiseSuppressionLevel selects the suppression level and enables
	// noise suppression.
	SetNoiseSuppressionLevel(level int) error
	NoiseSuppressionLevel() int

	// SetEchoMobileMode selects the mobile echo canceller variant.
	SetEchoMobileMode(enabled bool)
	EchoMobileMode() bool

	// SetGainControlMode selects one of the AGCMode constants.
	SetGainControlMode(mode int)
	GainControlMode() int

	// StreamHasEcho reports whether echo was detected in the last forward
	// buffer.
	StreamHasEcho() bool

	SetStreamDelayMs(delayMs int)
	SetStreamAnalogLevel(level int)
	RecommendedStreamAnalogLevel() int

	// ProcessStream processes in into out, which has the same length.
	ProcessStream(in, out []float32, format StreamFormat) (FrameReport, error)
	// ProcessReverseStream records in as the echo reference.
	ProcessReverseStream(in []float32, format StreamFormat) (FrameReport, error)

	// Statistics returns a snapshot; it never mutates engine state.
	Statistics() Statistics
}

// ChannelStatePolicy selects how filter and AGC state map onto channels.
type ChannelStatePolicy int

const (
	// ChannelStatePerChannel keeps one filter and AGC state per channel.
	ChannelStatePerChannel ChannelStatePolicy = iota
	// ChannelStateShared runs every interleaved sample through a single state,
	// reproducing the legacy behaviour.
	ChannelStateShared
)

// String returns the policy name used in configuration files.
func (p ChannelStatePolicy) String() string {
	if p == ChannelStateShared {
		return "shared"
	}
	return "per-channel"
}

// EchoReferencePolicy selects whether the forward path reads the reference buffer.
type EchoReferencePolicy int

const (
	// EchoReferenceWired aligns the reference buffer by the stream delay and
	// feeds it to the echo suppressor.
	EchoReferenceWired EchoReferencePolicy = iota
	// EchoReferenceDetached records the reverse stream without ever reading it,
	// reproducing the legacy behaviour.
	EchoReferenceDetached
)

// String returns the policy name used in configuration files.
func (p EchoReferencePolicy) String() string {
	if p == EchoReferenceDetached {
		return "detached"
	}
	return "wired"
}

// ParseChannelStatePolicy parses the names produced by ChannelStatePolicy.String.
func ParseChannelStatePolicy(name string) (ChannelStatePolicy, error) {
	switch name {
	case "per-channel", "":
		return ChannelStatePerChannel, nil
	case "shared":
		return ChannelStateShared, nil
	default:
		return 0, fmt.Errorf("%w: unknown channel state policy %q", ErrOutOfRangeConfig, name)
	}
}

// ParseEchoReferencePolicy parses the names produced by EchoReferencePolicy.String.
func ParseEchoReferencePolicy(name string) (EchoReferencePolicy, error) {
	switch name {
	case "wired", "":
		return EchoReferenceWired, nil
	case "detached":
		return EchoReferenceDetached, nil
	default:
		return 0, fmt.Errorf("%w: unknown echo reference policy %q", ErrOutOfRangeConfig, name)
	}
}
