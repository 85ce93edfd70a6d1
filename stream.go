package apm

import (
	"github.com/opd-ai/apm/dsp"
	"github.com/sirupsen/logrus"
)

// Default stream settings of a new processor.
const (
	DefaultSampleRate  = 16000
	DefaultChannels    = 1
	DefaultAnalogLevel = 128 // Unity target gain
	analogUnity        = 128.0

	standaloneVersion = Version + "-standalone"
)

// StreamProcessor is the built-in Engine.
//
// It owns the configuration and every piece of DSP state: one high-pass
// filter and one gain controller per channel (or a single shared pair under
// ChannelStateShared), one stateless noise gate, the echo reference buffer and
// the echo suppressor. Each state slot runs its samples through a dsp.Chain of
// filter, gate and gain controller. Sample-rate dependent coefficients are
// recomputed only when the stream format changes.
type StreamProcessor struct {
	format StreamFormat

	channelPolicy ChannelStatePolicy
	echoPolicy    EchoReferencePolicy

	// Per-channel state, indexed by channel (length 1 when shared)
	filters []*dsp.HighPassFilter
	agcs    []*dsp.GainController
	chains  []dsp.Chain

	gate       *dsp.NoiseGate
	reference  *dsp.ReferenceBuffer
	suppressor *dsp.EchoSuppressor

	highPassEnabled bool
	gainEnabled     bool
	echoMobileMode  bool
	gainMode        int
	hasEcho         bool

	analogLevel int
	targetGain  float64 // analogLevel/128, independent of the AGC target level
	stats       Statistics
}

// StreamProcessorOption configures a StreamProcessor at construction.
type StreamProcessorOption func(*StreamProcessor)

// WithStreamChannelState selects the channel state policy.
func WithStreamChannelState(policy ChannelStatePolicy) StreamProcessorOption {
	return func(p *StreamProcessor) {
		p.channelPolicy = policy
	}
}

// WithStreamEchoReference selects the echo reference policy.
func WithStreamEchoReference(policy EchoReferencePolicy) StreamProcessorOption {
	return func(p *StreamProcessor) {
		p.echoPolicy = policy
	}
}

// NewStreamProcessor creates an engine with the default configuration:
// 16 kHz mono, every feature enabled, noise suppression level 2 and analog
// level 128.
func NewStreamProcessor(opts ...StreamProcessorOption) *StreamProcessor {
	p := &StreamProcessor{
		format:          StreamFormat{SampleRate: DefaultSampleRate, Channels: DefaultChannels},
		gate:            dsp.NewNoiseGate(),
		reference:       dsp.NewReferenceBuffer(DefaultSampleRate),
		suppressor:      dsp.NewEchoSuppressor(),
		highPassEnabled: true,
		gainEnabled:     true,
		analogLevel:     DefaultAnalogLevel,
		gainMode:        AGCModeAdaptiveAnalog,
		targetGain:      DefaultAnalogLevel / analogUnity,
		stats:           defaultStatistics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.resizeChannelState()

	logrus.WithFields(logrus.Fields{
		"function":       "NewStreamProcessor",
		"sample_rate":    p.format.SampleRate,
		"channels":       p.format.Channels,
		"channel_policy": p.channelPolicy.String(),
		"echo_policy":    p.echoPolicy.String(),
	}).Info("Stream processor created")

	return p
}

// Name identifies the engine.
func (p *StreamProcessor) Name() string {
	return "standalone"
}

// Version returns the engine version string.
func (p *StreamProcessor) Version() string {
	return standaloneVersion
}

// Format returns the stream format of the most recent call.
func (p *StreamProcessor) Format() StreamFormat {
	return p.format
}

// ChannelStatePolicy returns the configured channel state policy.
func (p *StreamProcessor) ChannelStatePolicy() ChannelStatePolicy {
	return p.channelPolicy
}

// EchoReferencePolicy returns the configured echo reference policy.
func (p *StreamProcessor) EchoReferencePolicy() EchoReferencePolicy {
	return p.echoPolicy
}

// stateCount returns how many filter/AGC instances the policy needs.
func (p *StreamProcessor) stateCount() int {
	if p.channelPolicy == ChannelStateShared {
		return 1
	}
	return p.format.Channels
}

// resizeChannelState grows or shrinks the per-channel state to the current
// format. Surviving channels keep their memory and get fresh coefficients.
func (p *StreamProcessor) resizeChannelState() {
	n := p.stateCount()

	if len(p.filters) > n {
		p.filters = p.filters[:n]
		p.agcs = p.agcs[:n]
		p.chains = p.chains[:n]
	}
	for _, f := range p.filters {
		f.SetSampleRate(p.format.SampleRate)
	}
	for _, a := range p.agcs {
		a.SetSampleRate(p.format.SampleRate)
	}

	for len(p.filters) < n {
		f := dsp.NewHighPassFilter(p.format.SampleRate)
		f.SetEnabled(p.highPassEnabled)
		p.filters = append(p.filters, f)

		a := dsp.NewGainController(p.format.SampleRate)
		a.SetEnabled(p.gainEnabled)
		p.agcs = append(p.agcs, a)

		p.chains = append(p.chains, dsp.Chain{f, p.gate, a})
	}
}

// reconfigure applies a new stream format when it differs from the current
// one and reports whether anything changed.
func (p *StreamProcessor) reconfigure(format StreamFormat) bool {
	if format == p.format {
		return false
	}

	old := p.format
	p.format = format
	p.resizeChannelState()
	if old.SampleRate != format.SampleRate {
		p.reference.Resize(format.SampleRate)
	}

	logrus.WithFields(logrus.Fields{
		"function":        "StreamProcessor.reconfigure",
		"old_sample_rate": old.SampleRate,
		"new_sample_rate": format.SampleRate,
		"old_channels":    old.Channels,
		"new_channels":    format.Channels,
	}).Info("Stream format changed, coefficients recomputed")

	return true
}

// SetFeatureEnabled switches one stage on or off.
func (p *StreamProcessor) SetFeatureEnabled(feature Feature, enabled bool) {
	switch feature {
	case FeatureEchoCancellation:
		p.suppressor.SetEnabled(enabled)
	case FeatureNoiseSuppression:
		p.gate.SetEnabled(enabled)
	case FeatureGainControl:
		p.gainEnabled = enabled
		for _, a := range p.agcs {
			a.SetEnabled(enabled)
		}
	case FeatureHighPassFilter:
		p.highPassEnabled = enabled
		for _, f := range p.filters {
			f.SetEnabled(enabled)
		}
	}
}

// FeatureEnabled reports whether a stage is on.
func (p *StreamProcessor) FeatureEnabled(feature Feature) bool {
	switch feature {
	case FeatureEchoCancellation:
		return p.suppressor.Enabled()
	case FeatureNoiseSuppression:
		return p.gate.Enabled()
	case FeatureGainControl:
		return p.gainEnabled
	case FeatureHighPassFilter:
		return p.highPassEnabled
	default:
		return false
	}
}

// SetNoiseSuppressionLevel selects the gate level and enables the gate.
func (p *StreamProcessor) SetNoiseSuppressionLevel(level int) error {
	return p.gate.SetLevel(level)
}

// NoiseSuppressionLevel returns the gate level.
func (p *StreamProcessor) NoiseSuppressionLevel() int {
	return p.gate.Level()
}

// SetEchoMobileMode records the echo canceller mobile mode. The built-in
// suppressor has a single mode, so the flag is stored and reported only.
func (p *StreamProcessor) SetEchoMobileMode(enabled bool) {
	p.echoMobileMode = enabled
}

// EchoMobileMode returns the echo canceller mobile mode.
func (p *StreamProcessor) EchoMobileMode() bool {
	return p.echoMobileMode
}

// SetGainControlMode records the AGC mode. The built-in gain controller always
// adapts digitally, so the mode is stored and reported only.
func (p *StreamProcessor) SetGainControlMode(mode int) {
	p.gainMode = mode
}

// GainControlMode returns the AGC mode.
func (p *StreamProcessor) GainControlMode() int {
	return p.gainMode
}

// StreamHasEcho reports whether the echo suppressor ducked any sample of the
// last forward buffer.
func (p *StreamProcessor) StreamHasEcho() bool {
	return p.hasEcho
}

// SetStreamDelayMs records the render-to-capture delay. It is reported in the
// statistics and aligns the echo reference in wired mode.
func (p *StreamProcessor) SetStreamDelayMs(delayMs int) {
	p.stats.DelayMedianMs = delayMs
}

// SetStreamAnalogLevel sets the analog level and the target gain level/128.
func (p *StreamProcessor) SetStreamAnalogLevel(level int) {
	p.analogLevel = level
	p.targetGain = float64(level) / analogUnity
}

// AnalogLevel returns the last analog level set.
func (p *StreamProcessor) AnalogLevel() int {
	return p.analogLevel
}

// RecommendedStreamAnalogLevel suggests an analog input level derived from
// the AGC envelope, limited to [0, 255].
func (p *StreamProcessor) RecommendedStreamAnalogLevel() int {
	level := int(p.envelope() * 255.0)
	if level > 255 {
		return 255
	}
	if level < 0 {
		return 0
	}
	return level
}

// envelope returns the largest AGC envelope across channels.
func (p *StreamProcessor) envelope() float64 {
	var env float64
	for _, a := range p.agcs {
		if a.Envelope() > env {
			env = a.Envelope()
		}
	}
	return env
}

// delayFrames converts the stream delay to frames at the current rate.
func (p *StreamProcessor) delayFrames() int {
	return p.stats.DelayMedianMs * p.format.SampleRate / 1000
}

// ProcessStream runs in through the forward chain into out.
func (p *StreamProcessor) ProcessStream(in, out []float32, format StreamFormat) (FrameReport, error) {
	report := FrameReport{Reconfigured: p.reconfigure(format)}
	report.Format = p.format

	channels := format.Channels
	frames := len(in) / channels
	shared := len(p.chains) == 1
	wired := p.echoPolicy == EchoReferenceWired && p.suppressor.Enabled()
	delay := p.delayFrames()
	p.hasEcho = false

	for i, x := range in {
		state := 0
		if !shared {
			state = i % channels
		}

		x, bad := dsp.Sanitize(x)
		if bad {
			report.NonFinite++
		}
		y := p.chains[state].Process(x)

		if wired {
			ref := p.reference.At(frames - 1 - i/channels + delay)
			if p.suppressor.Triggered(ref) {
				p.hasEcho = true
			}
			y = p.suppressor.Suppress(y, ref)
		}

		y, clipped := dsp.Clamp(y)
		if clipped {
			report.Clipped++
		}
		out[i] = y
	}

	if report.NonFinite > 0 {
		logrus.WithFields(logrus.Fields{
			"function":   "StreamProcessor.ProcessStream",
			"non_finite": report.NonFinite,
		}).Warn("Non-finite input samples replaced with silence")
	}

	return report, nil
}

// ProcessReverseStream records one reference value per frame: the channel
// sample with the largest magnitude. A sample-rate change reconfigures the
// processor; the reverse channel count does not affect the forward format, so
// the reported format keeps the forward channel count.
func (p *StreamProcessor) ProcessReverseStream(in []float32, format StreamFormat) (FrameReport, error) {
	var report FrameReport
	if format.SampleRate != p.format.SampleRate {
		report.Reconfigured = p.reconfigure(StreamFormat{SampleRate: format.SampleRate, Channels: p.format.Channels})
	}
	report.Format = p.format

	channels := format.Channels
	for start := 0; start+channels <= len(in); start += channels {
		ref, bad := loudest(in[start : start+channels])
		report.NonFinite += bad
		p.reference.Write(ref)
	}

	return report, nil
}

// loudest returns the finite sample with the largest magnitude and the number
// of non-finite samples it treated as silence.
func loudest(frame []float32) (float32, int) {
	var best float32
	var bad int
	for _, s := range frame {
		s, nonFinite := dsp.Sanitize(s)
		if nonFinite {
			bad++
		}
		if abs32(s) > abs32(best) {
			best = s
		}
	}
	return best, bad
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// Statistics returns a snapshot with the derived fields filled in.
func (p *StreamProcessor) Statistics() Statistics {
	s := p.stats
	s.AGCEnvelope = p.envelope()
	s.CurrentGain = p.targetGain
	return s
}

// HighPassCoefficients returns the filter coefficients of channel 0.
func (p *StreamProcessor) HighPassCoefficients() (a, b float64) {
	return p.filters[0].Coefficients()
}

// GainCoefficients returns the AGC attack and release coefficients of channel 0.
func (p *StreamProcessor) GainCoefficients() (attack, release float64) {
	return p.agcs[0].Coefficients()
}

// ReferenceCapacity returns the capacity of the echo reference buffer.
func (p *StreamProcessor) ReferenceCapacity() int {
	return p.reference.Capacity()
}

// ReferenceCursor returns the write cursor of the echo reference buffer.
func (p *StreamProcessor) ReferenceCursor() int {
	return p.reference.Cursor()
}

// ChannelEnvelope returns the AGC envelope of one state slot.
func (p *StreamProcessor) ChannelEnvelope(channel int) float64 {
	if channel < 0 || channel >= len(p.agcs) {
		return 0
	}
	return p.agcs[channel].Envelope()
}
