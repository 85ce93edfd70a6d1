package apm

import (
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/apm/limits"
	"github.com/sirupsen/logrus"
)

// Processor is the public handle of an audio processing pipeline.
//
// It validates every caller-supplied value, rejecting out-of-domain input
// without touching processor state, and forwards valid calls to its Engine.
// A Processor is not safe for concurrent use; callers must serialize access.
type Processor struct {
	engine   Engine
	observer Observer

	delayMs     int
	analogLevel int
}

// Option configures a Processor at construction.
type Option func(*processorOptions)

type processorOptions struct {
	engine        Engine
	observer      Observer
	channelPolicy ChannelStatePolicy
	echoPolicy    EchoReferencePolicy
}

// WithEngine replaces the built-in StreamProcessor with another Engine.
// Channel state and echo reference policies only apply to the built-in engine.
func WithEngine(engine Engine) Option {
	return func(o *processorOptions) {
		o.engine = engine
	}
}

// WithObserver registers an Observer for processing events.
func WithObserver(observer Observer) Option {
	return func(o *processorOptions) {
		o.observer = observer
	}
}

// WithChannelStatePolicy selects per-channel or shared filter and AGC state.
func WithChannelStatePolicy(policy ChannelStatePolicy) Option {
	return func(o *processorOptions) {
		o.channelPolicy = policy
	}
}

// WithEchoReferencePolicy selects whether the forward path reads the echo reference.
func WithEchoReferencePolicy(policy EchoReferencePolicy) Option {
	return func(o *processorOptions) {
		o.echoPolicy = policy
	}
}

// New creates a Processor with the default configuration: 16 kHz mono, every
// feature enabled, noise suppression level 2 and analog level 128.
func New(opts ...Option) *Processor {
	o := processorOptions{observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine == nil {
		o.engine = NewStreamProcessor(
			WithStreamChannelState(o.channelPolicy),
			WithStreamEchoReference(o.echoPolicy),
		)
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}

	p := &Processor{
		engine:      o.engine,
		observer:    o.observer,
		delayMs:     defaultDelayMedianMs,
		analogLevel: DefaultAnalogLevel,
	}

	logrus.WithFields(logrus.Fields{
		"function": "New",
		"engine":   p.engine.Name(),
		"version":  p.engine.Version(),
	}).Info("Audio processor created")

	return p
}

// Engine returns the engine behind the processor.
func (p *Processor) Engine() Engine {
	return p.engine
}

// Version returns the engine version string, "2.1.0-standalone" for the
// built-in engine.
func (p *Processor) Version() string {
	return p.engine.Version()
}

func (p *Processor) setFeature(feature Feature, enabled bool) {
	p.engine.SetFeatureEnabled(feature, enabled)

	logrus.WithFields(logrus.Fields{
		"function": "Processor.setFeature",
		"feature":  feature.String(),
		"enabled":  enabled,
	}).Info("Feature toggled")
}

// SetEchoCancellationEnabled switches echo suppression on or off.
func (p *Processor) SetEchoCancellationEnabled(enabled bool) {
	p.setFeature(FeatureEchoCancellation, enabled)
}

// SetNoiseSuppressionEnabled switches the noise gate on or off.
func (p *Processor) SetNoiseSuppressionEnabled(enabled bool) {
	p.setFeature(FeatureNoiseSuppression, enabled)
}

// SetGainControlEnabled switches the automatic gain controller on or off.
func (p *Processor) SetGainControlEnabled(enabled bool) {
	p.setFeature(FeatureGainControl, enabled)
}

// SetHighPassFilterEnabled switches the high-pass filter on or off.
func (p *Processor) SetHighPassFilterEnabled(enabled bool) {
	p.setFeature(FeatureHighPassFilter, enabled)
}

// EchoCancellationEnabled reports whether echo suppression is on.
func (p *Processor) EchoCancellationEnabled() bool {
	return p.engine.FeatureEnabled(FeatureEchoCancellation)
}

// NoiseSuppressionEnabled reports whether the noise gate is on.
func (p *Processor) NoiseSuppressionEnabled() bool {
	return p.engine.FeatureEnabled(FeatureNoiseSuppression)
}

// GainControlEnabled reports whether the gain controller is on.
func (p *Processor) GainControlEnabled() bool {
	return p.engine.FeatureEnabled(FeatureGainControl)
}

// HighPassFilterEnabled reports whether the high-pass filter is on.
func (p *Processor) HighPassFilterEnabled() bool {
	return p.engine.FeatureEnabled(FeatureHighPassFilter)
}

// SetNoiseSuppressionLevel selects gate level 0..3 and enables noise
// suppression. Out-of-range levels are rejected with ErrOutOfRangeConfig.
func (p *Processor) SetNoiseSuppressionLevel(level int) error {
	if err := limits.ValidateNoiseSuppressionLevel(level); err != nil {
		return p.reject("SetNoiseSuppressionLevel", err)
	}
	if err := p.engine.SetNoiseSuppressionLevel(level); err != nil {
		return p.reject("SetNoiseSuppressionLevel", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Processor.SetNoiseSuppressionLevel",
		"level":    level,
	}).Info("Noise suppression level set")

	return nil
}

// NoiseSuppressionLevel returns the current gate level.
func (p *Processor) NoiseSuppressionLevel() int {
	return p.engine.NoiseSuppressionLevel()
}

// SetEchoMobileMode selects the mobile echo canceller variant.
func (p *Processor) SetEchoMobileMode(enabled bool) {
	p.engine.SetEchoMobileMode(enabled)

	logrus.WithFields(logrus.Fields{
		"function": "Processor.SetEchoMobileMode",
		"enabled":  enabled,
	}).Info("Echo canceller mode set")
}

// EchoMobileMode reports whether the mobile echo canceller variant is selected.
func (p *Processor) EchoMobileMode() bool {
	return p.engine.EchoMobileMode()
}

// SetGainControlMode selects one of the AGCMode constants. Unknown modes are
// rejected with ErrOutOfRangeConfig.
func (p *Processor) SetGainControlMode(mode int) error {
	if err := limits.ValidateAGCMode(mode); err != nil {
		return p.reject("SetGainControlMode", err)
	}
	p.engine.SetGainControlMode(mode)

	logrus.WithFields(logrus.Fields{
		"function": "Processor.SetGainControlMode",
		"mode":     mode,
	}).Info("Gain control mode set")

	return nil
}

// GainControlMode returns the current AGC mode.
func (p *Processor) GainControlMode() int {
	return p.engine.GainControlMode()
}

// StreamHasEcho reports whether the engine detected echo in the last
// ProcessStream call.
func (p *Processor) StreamHasEcho() bool {
	return p.engine.StreamHasEcho()
}

// SetStreamDelayMs records the render-to-capture delay, 0..500 ms.
func (p *Processor) SetStreamDelayMs(delayMs int) error {
	if err := limits.ValidateStreamDelay(delayMs); err != nil {
		return p.reject("SetStreamDelayMs", err)
	}
	p.engine.SetStreamDelayMs(delayMs)
	p.delayMs = delayMs

	logrus.WithFields(logrus.Fields{
		"function": "Processor.SetStreamDelayMs",
		"delay_ms": delayMs,
	}).Debug("Stream delay set")

	return nil
}

// StreamDelayMs returns the last accepted stream delay.
func (p *Processor) StreamDelayMs() int {
	return p.delayMs
}

// SetStreamAnalogLevel sets the analog level, 0..255. The reported current
// gain becomes level/128.
func (p *Processor) SetStreamAnalogLevel(level int) error {
	if err := limits.ValidateAnalogLevel(level); err != nil {
		return p.reject("SetStreamAnalogLevel", err)
	}
	p.engine.SetStreamAnalogLevel(level)
	p.analogLevel = level

	logrus.WithFields(logrus.Fields{
		"function": "Processor.SetStreamAnalogLevel",
		"level":    level,
	}).Debug("Stream analog level set")

	return nil
}

// StreamAnalogLevel returns the last accepted analog level.
func (p *Processor) StreamAnalogLevel() int {
	return p.analogLevel
}

// RecommendedStreamAnalogLevel returns the engine's suggested analog level.
func (p *Processor) RecommendedStreamAnalogLevel() int {
	return p.engine.RecommendedStreamAnalogLevel()
}

// Statistics returns a snapshot of the processor statistics.
func (p *Processor) Statistics() Statistics {
	return p.engine.Statistics()
}

// ProcessStream runs a near-end capture buffer through the enabled stages and
// returns a new buffer with the same shape. A change of sampleRate or
// channels reconfigures the processor before the first sample of this call.
func (p *Processor) ProcessStream(in Buffer, sampleRate, channels int) (Buffer, error) {
	format, err := p.validate("ProcessStream", in, sampleRate, channels)
	if err != nil {
		return Buffer{}, err
	}

	out := make([]float32, len(in.Data))
	start := time.Now()
	report, err := p.engine.ProcessStream(in.Data, out, format)
	if err != nil {
		return Buffer{}, p.reject("ProcessStream", computationError(err))
	}
	p.complete(DirectionForward, format, len(in.Data), report, time.Since(start))

	return in.withData(out), nil
}

// ProcessReverseStream records a far-end render buffer as the echo reference
// and returns an unmodified copy with the same shape.
func (p *Processor) ProcessReverseStream(in Buffer, sampleRate, channels int) (Buffer, error) {
	format, err := p.validate("ProcessReverseStream", in, sampleRate, channels)
	if err != nil {
		return Buffer{}, err
	}

	start := time.Now()
	report, err := p.engine.ProcessReverseStream(in.Data, format)
	if err != nil {
		return Buffer{}, p.reject("ProcessReverseStream", computationError(err))
	}
	p.complete(DirectionReverse, format, len(in.Data), report, time.Since(start))

	out := make([]float32, len(in.Data))
	copy(out, in.Data)
	return in.withData(out), nil
}

// ProcessStreamInt16 processes interleaved 16-bit PCM. Samples are scaled by
// 1/32768 on the way in and by 32767 on the way out, then clamped.
func (p *Processor) ProcessStreamInt16(samples []int16, sampleRate, channels int) ([]int16, error) {
	out, err := p.ProcessStream(MonoBuffer(Int16ToFloat32(samples)), sampleRate, channels)
	if err != nil {
		return nil, err
	}
	return Float32ToInt16(out.Data), nil
}

// ProcessReverseStreamInt16 records interleaved 16-bit PCM as the echo
// reference and returns a copy.
func (p *Processor) ProcessReverseStreamInt16(samples []int16, sampleRate, channels int) ([]int16, error) {
	if _, err := p.ProcessReverseStream(MonoBuffer(Int16ToFloat32(samples)), sampleRate, channels); err != nil {
		return nil, err
	}
	out := make([]int16, len(samples))
	copy(out, samples)
	return out, nil
}

// validate checks the stream format before the buffer shape; the shape check
// needs a valid channel count.
func (p *Processor) validate(operation string, in Buffer, sampleRate, channels int) (StreamFormat, error) {
	if err := limits.ValidateStreamFormat(sampleRate, channels); err != nil {
		return StreamFormat{}, p.reject(operation, err)
	}
	if err := in.validate(channels); err != nil {
		return StreamFormat{}, p.reject(operation, err)
	}
	return StreamFormat{SampleRate: sampleRate, Channels: channels}, nil
}

// complete publishes the outcome of a successful call. Reconfigurations are
// reported with the format the engine now runs at, which for the reverse
// direction may differ from the call's format.
func (p *Processor) complete(direction Direction, format StreamFormat, samples int, report FrameReport, elapsed time.Duration) {
	if report.Reconfigured {
		applied := report.Format
		if applied == (StreamFormat{}) {
			applied = format
		}
		p.observer.ObserveReconfigure(applied)
	}
	if report.Clipped > 0 {
		logrus.WithFields(logrus.Fields{
			"function":  "Processor.complete",
			"direction": string(direction),
			"clipped":   report.Clipped,
			"samples":   samples,
		}).Warn("Output samples clipped")
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Processor.complete",
		"direction":   string(direction),
		"sample_rate": format.SampleRate,
		"channels":    format.Channels,
		"samples":     samples,
		"elapsed":     elapsed,
	}).Debug("Frame processed")

	p.observer.ObserveFrame(direction, samples, report.Clipped, elapsed)
	p.observer.ObserveStatistics(p.engine.Statistics())
}

// reject logs and reports a failed call and returns err unchanged.
func (p *Processor) reject(operation string, err error) error {
	logrus.WithFields(logrus.Fields{
		"function": "Processor." + operation,
		"error":    err.Error(),
	}).Error("Call rejected")

	p.observer.ObserveRejected(operation, err)
	return err
}

func computationError(err error) error {
	if errors.Is(err, ErrComputationFailure) || errors.Is(err, ErrOutOfRangeConfig) || errors.Is(err, ErrInvalidShape) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrComputationFailure, err)
}
