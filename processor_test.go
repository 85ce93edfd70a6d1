package apm

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/opd-ai/apm/dsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	frames       []Direction
	clipped      int
	reconfigured []StreamFormat
	rejected     []string
	stats        []Statistics
}

func (r *recordingObserver) ObserveFrame(direction Direction, samples, clipped int, elapsed time.Duration) {
	r.frames = append(r.frames, direction)
	r.clipped += clipped
}

func (r *recordingObserver) ObserveReconfigure(format StreamFormat) {
	r.reconfigured = append(r.reconfigured, format)
}

func (r *recordingObserver) ObserveRejected(operation string, err error) {
	r.rejected = append(r.rejected, operation)
}

func (r *recordingObserver) ObserveStatistics(stats Statistics) {
	r.stats = append(r.stats, stats)
}

func constant(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func disableAll(p *Processor) {
	p.SetEchoCancellationEnabled(false)
	p.SetNoiseSuppressionEnabled(false)
	p.SetGainControlEnabled(false)
	p.SetHighPassFilterEnabled(false)
}

func TestNewDefaults(t *testing.T) {
	p := New()

	assert.True(t, p.EchoCancellationEnabled())
	assert.True(t, p.NoiseSuppressionEnabled())
	assert.True(t, p.GainControlEnabled())
	assert.True(t, p.HighPassFilterEnabled())
	assert.Equal(t, NSLevelHigh, p.NoiseSuppressionLevel())
	assert.Equal(t, "2.1.0-standalone", p.Version())
	assert.Equal(t, DefaultAnalogLevel, p.StreamAnalogLevel())
	assert.Equal(t, 50, p.StreamDelayMs())

	sp, ok := p.Engine().(*StreamProcessor)
	require.True(t, ok)
	assert.Equal(t, StreamFormat{SampleRate: 16000, Channels: 1}, sp.Format())
	assert.Equal(t, ChannelStatePerChannel, sp.ChannelStatePolicy())
	assert.Equal(t, EchoReferenceWired, sp.EchoReferencePolicy())
}

func TestDefaultStatistics(t *testing.T) {
	stats := New().Statistics().Map()

	assert.Equal(t, map[string]float64{
		"echo_return_loss":             -20.0,
		"echo_return_loss_enhancement": 15.0,
		"delay_median_ms":              50.0,
		"residual_echo_likelihood":     0.2,
		"agc_envelope":                 0.0,
		"current_gain":                 1.0,
	}, stats)
}

func TestScenarioSilence(t *testing.T) {
	p := New()

	out, err := p.ProcessStream(MonoBuffer(make([]float32, 160)), SampleRate16000, 1)
	require.NoError(t, err)

	assert.Equal(t, []int{160}, out.Shape)
	assert.Equal(t, make([]float32, 160), out.Data)
	assert.Equal(t, 0.0, p.Statistics().AGCEnvelope)
}

func TestScenarioAllDisabledPassthrough(t *testing.T) {
	p := New()
	disableAll(p)

	in := constant(100, 0.5)
	out, err := p.ProcessStream(MonoBuffer(in), SampleRate16000, 1)
	require.NoError(t, err)

	assert.Equal(t, in, out.Data)
}

func TestScenarioVeryHighGate(t *testing.T) {
	p := New()
	disableAll(p)
	require.NoError(t, p.SetNoiseSuppressionLevel(NSLevelVeryHigh))
	assert.True(t, p.NoiseSuppressionEnabled())

	out, err := p.ProcessStream(MonoBuffer([]float32{0.005, 0.05}), SampleRate16000, 1)
	require.NoError(t, err)

	assert.InDelta(t, 0.001, out.Data[0], 1e-7)
	assert.Equal(t, float32(0.05), out.Data[1])
}

func TestScenarioReconfiguration(t *testing.T) {
	obs := &recordingObserver{}
	p := New(WithObserver(obs))
	disableAll(p)
	p.SetHighPassFilterEnabled(true)

	_, err := p.ProcessStream(MonoBuffer([]float32{0.5}), SampleRate16000, 1)
	require.NoError(t, err)
	out, err := p.ProcessStream(MonoBuffer([]float32{0.25}), SampleRate48000, 1)
	require.NoError(t, err)

	ref := dsp.NewHighPassFilter(16000)
	ref.Filter(0.5)
	ref.SetSampleRate(48000)
	assert.Equal(t, ref.Filter(0.25), out.Data[0])

	sp := p.Engine().(*StreamProcessor)
	a, b := sp.HighPassCoefficients()
	alpha := math.Exp(-2 * math.Pi * 120 / 48000)
	assert.InDelta(t, alpha, a, 1e-12)
	assert.InDelta(t, (1+alpha)/2, b, 1e-12)
	assert.Equal(t, 4800, sp.ReferenceCapacity())
	assert.Equal(t, []StreamFormat{{SampleRate: 48000, Channels: 1}}, obs.reconfigured)
}

func TestSilenceAfterHistoryWithoutFilter(t *testing.T) {
	p := New()
	p.SetHighPassFilterEnabled(false)

	noise := make([]float32, 1600)
	rng := rand.New(rand.NewSource(7))
	for i := range noise {
		noise[i] = rng.Float32()*2 - 1
	}
	_, err := p.ProcessStream(MonoBuffer(noise), SampleRate16000, 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		out, err := p.ProcessStream(MonoBuffer(make([]float32, 160)), SampleRate16000, 1)
		require.NoError(t, err)
		assert.Equal(t, make([]float32, 160), out.Data)
	}
}

func TestOutputRangeAndClipping(t *testing.T) {
	obs := &recordingObserver{}
	p := New(WithObserver(obs))

	in := make([]float32, 480)
	rng := rand.New(rand.NewSource(11))
	for i := range in {
		in[i] = rng.Float32()*8 - 4
	}
	out, err := p.ProcessStream(InterleavedBuffer(in, 2), SampleRate32000, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{240, 2}, out.Shape)
	require.Len(t, out.Data, len(in))
	for _, s := range out.Data {
		assert.LessOrEqual(t, s, float32(1))
		assert.GreaterOrEqual(t, s, float32(-1))
	}
	assert.Greater(t, obs.clipped, 0)
	assert.Equal(t, []Direction{DirectionForward}, obs.frames)
	require.Len(t, obs.stats, 1)
}

func TestProcessStreamDoesNotModifyInput(t *testing.T) {
	p := New()
	in := constant(160, 0.8)
	shape := []int{160}

	out, err := p.ProcessStream(Buffer{Data: in, Shape: shape}, SampleRate16000, 1)
	require.NoError(t, err)

	assert.Equal(t, constant(160, 0.8), in)
	out.Shape[0] = 0
	assert.Equal(t, []int{160}, shape)
}

func TestShapeValidation(t *testing.T) {
	tests := []struct {
		name     string
		buf      Buffer
		channels int
	}{
		{"rank 0", Buffer{Data: []float32{}, Shape: []int{}}, 1},
		{"rank 3", Buffer{Data: make([]float32, 8), Shape: []int{2, 2, 2}}, 2},
		{"extent mismatch", Buffer{Data: make([]float32, 4), Shape: []int{3}}, 1},
		{"negative extent", Buffer{Data: []float32{}, Shape: []int{-2, 0}}, 1},
		{"ragged interleaved", MonoBuffer(make([]float32, 5)), 2},
		{"channel extent disagrees", InterleavedBuffer(make([]float32, 4), 2), 1},
		{"ragged 2-D", InterleavedBuffer(make([]float32, 5), 2), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			p := New(WithObserver(obs))

			_, err := p.ProcessStream(tt.buf, SampleRate16000, tt.channels)
			assert.True(t, errors.Is(err, ErrInvalidShape), "got %v", err)

			_, err = p.ProcessReverseStream(tt.buf, SampleRate16000, tt.channels)
			assert.True(t, errors.Is(err, ErrInvalidShape), "got %v", err)

			assert.Equal(t, []string{"ProcessStream", "ProcessReverseStream"}, obs.rejected)
			assert.Empty(t, obs.frames)
		})
	}
}

func TestFormatValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		channels   int
	}{
		{"unsupported rate", 11025, 1},
		{"zero rate", 0, 1},
		{"zero channels", SampleRate16000, 0},
		{"too many channels", SampleRate16000, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			sp := p.Engine().(*StreamProcessor)

			_, err := p.ProcessStream(MonoBuffer(make([]float32, 16)), tt.sampleRate, tt.channels)
			assert.True(t, errors.Is(err, ErrOutOfRangeConfig), "got %v", err)

			_, err = p.ProcessReverseStream(MonoBuffer(make([]float32, 16)), tt.sampleRate, tt.channels)
			assert.True(t, errors.Is(err, ErrOutOfRangeConfig), "got %v", err)

			assert.Equal(t, StreamFormat{SampleRate: 16000, Channels: 1}, sp.Format())
		})
	}
}

func TestRejectedSettersLeaveStateUnchanged(t *testing.T) {
	p := New()
	before := p.Statistics()

	assert.True(t, errors.Is(p.SetNoiseSuppressionLevel(4), ErrOutOfRangeConfig))
	assert.True(t, errors.Is(p.SetNoiseSuppressionLevel(-1), ErrOutOfRangeConfig))
	assert.True(t, errors.Is(p.SetStreamAnalogLevel(256), ErrOutOfRangeConfig))
	assert.True(t, errors.Is(p.SetStreamAnalogLevel(-1), ErrOutOfRangeConfig))
	assert.True(t, errors.Is(p.SetStreamDelayMs(501), ErrOutOfRangeConfig))
	assert.True(t, errors.Is(p.SetStreamDelayMs(-5), ErrOutOfRangeConfig))

	assert.Equal(t, NSLevelHigh, p.NoiseSuppressionLevel())
	assert.Equal(t, DefaultAnalogLevel, p.StreamAnalogLevel())
	assert.Equal(t, before, p.Statistics())
}

func TestNoiseSuppressionLevelEnables(t *testing.T) {
	p := New()
	p.SetNoiseSuppressionEnabled(false)

	require.NoError(t, p.SetNoiseSuppressionLevel(NSLevelLow))

	assert.True(t, p.NoiseSuppressionEnabled())
	assert.Equal(t, NSLevelLow, p.NoiseSuppressionLevel())
}

func TestStatisticsReflectSetters(t *testing.T) {
	p := New()

	require.NoError(t, p.SetStreamAnalogLevel(64))
	require.NoError(t, p.SetStreamDelayMs(120))

	stats := p.Statistics()
	assert.Equal(t, 0.5, stats.CurrentGain)
	assert.Equal(t, 120, stats.DelayMedianMs)
	assert.Equal(t, stats, p.Statistics())
}

func TestRecommendedStreamAnalogLevel(t *testing.T) {
	p := New()
	assert.Equal(t, 0, p.RecommendedStreamAnalogLevel())

	_, err := p.ProcessStream(MonoBuffer(constant(1600, 0.6)), SampleRate16000, 1)
	require.NoError(t, err)

	level := p.RecommendedStreamAnalogLevel()
	env := p.Statistics().AGCEnvelope
	assert.Greater(t, env, 0.0)
	assert.Equal(t, int(env*255), level)
	assert.LessOrEqual(t, level, 255)
}

func TestReverseStreamPassthrough(t *testing.T) {
	obs := &recordingObserver{}
	p := New(WithObserver(obs))
	in := []float32{0.1, -0.2, 0.3, -0.4}

	out, err := p.ProcessReverseStream(InterleavedBuffer(in, 2), SampleRate16000, 2)
	require.NoError(t, err)

	assert.Equal(t, in, out.Data)
	assert.Equal(t, []int{2, 2}, out.Shape)
	out.Data[0] = 9
	assert.Equal(t, float32(0.1), in[0])

	sp := p.Engine().(*StreamProcessor)
	assert.Equal(t, 2, sp.ReferenceCursor())
	assert.Equal(t, StreamFormat{SampleRate: 16000, Channels: 1}, sp.Format())
	assert.Equal(t, []Direction{DirectionReverse}, obs.frames)
}

func TestReverseStreamReconfiguresSampleRate(t *testing.T) {
	p := New()
	sp := p.Engine().(*StreamProcessor)

	_, err := p.ProcessReverseStream(MonoBuffer(constant(80, 0.2)), SampleRate8000, 1)
	require.NoError(t, err)

	assert.Equal(t, StreamFormat{SampleRate: 8000, Channels: 1}, sp.Format())
	assert.Equal(t, 800, sp.ReferenceCapacity())
	assert.Equal(t, 80, sp.ReferenceCursor())
}

func echoOnly(opts ...Option) *Processor {
	p := New(opts...)
	disableAll(p)
	p.SetEchoCancellationEnabled(true)
	return p
}

func TestEchoSuppressionWired(t *testing.T) {
	tests := []struct {
		name    string
		delayMs int
		want    float32
	}{
		{"aligned reference is loud", 0, 0.12},
		{"delay beyond the buffer reads no reference", 500, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := echoOnly()
			require.NoError(t, p.SetStreamDelayMs(tt.delayMs))

			_, err := p.ProcessReverseStream(MonoBuffer(constant(160, 0.5)), SampleRate16000, 1)
			require.NoError(t, err)
			out, err := p.ProcessStream(MonoBuffer(constant(160, 0.4)), SampleRate16000, 1)
			require.NoError(t, err)

			for _, s := range out.Data {
				assert.InDelta(t, tt.want, s, 1e-7)
			}
		})
	}
}

func TestEchoSuppressionDelayAlignment(t *testing.T) {
	p := echoOnly()

	// Loud block followed by a silent block of 10 ms each.
	_, err := p.ProcessReverseStream(MonoBuffer(constant(160, 0.5)), SampleRate16000, 1)
	require.NoError(t, err)
	_, err = p.ProcessReverseStream(MonoBuffer(make([]float32, 160)), SampleRate16000, 1)
	require.NoError(t, err)

	require.NoError(t, p.SetStreamDelayMs(0))
	out, err := p.ProcessStream(MonoBuffer(constant(160, 0.4)), SampleRate16000, 1)
	require.NoError(t, err)
	assert.Equal(t, constant(160, 0.4), out.Data)

	require.NoError(t, p.SetStreamDelayMs(10))
	out, err = p.ProcessStream(MonoBuffer(constant(160, 0.4)), SampleRate16000, 1)
	require.NoError(t, err)
	for _, s := range out.Data {
		assert.InDelta(t, 0.12, s, 1e-7)
	}
}

func TestEchoReferenceUsesLoudestChannel(t *testing.T) {
	p := echoOnly()
	require.NoError(t, p.SetStreamDelayMs(0))

	_, err := p.ProcessReverseStream(InterleavedBuffer([]float32{0.05, -0.5}, 2), SampleRate16000, 2)
	require.NoError(t, err)
	out, err := p.ProcessStream(MonoBuffer([]float32{0.4}), SampleRate16000, 1)
	require.NoError(t, err)

	assert.InDelta(t, 0.12, out.Data[0], 1e-7)
}

func TestEchoSuppressionDetached(t *testing.T) {
	p := echoOnly(WithEchoReferencePolicy(EchoReferenceDetached))
	require.NoError(t, p.SetStreamDelayMs(0))

	_, err := p.ProcessReverseStream(MonoBuffer(constant(160, 0.5)), SampleRate16000, 1)
	require.NoError(t, err)
	out, err := p.ProcessStream(MonoBuffer(constant(160, 0.4)), SampleRate16000, 1)
	require.NoError(t, err)

	assert.Equal(t, constant(160, 0.4), out.Data)
	assert.Equal(t, 160, p.Engine().(*StreamProcessor).ReferenceCursor())
}

func TestEchoDisabledStillRecords(t *testing.T) {
	p := echoOnly()
	p.SetEchoCancellationEnabled(false)
	require.NoError(t, p.SetStreamDelayMs(0))

	_, err := p.ProcessReverseStream(MonoBuffer(constant(160, 0.5)), SampleRate16000, 1)
	require.NoError(t, err)
	out, err := p.ProcessStream(MonoBuffer(constant(160, 0.4)), SampleRate16000, 1)
	require.NoError(t, err)

	assert.Equal(t, constant(160, 0.4), out.Data)
	assert.Equal(t, 160, p.Engine().(*StreamProcessor).ReferenceCursor())
}

func TestPerChannelStateMatchesMono(t *testing.T) {
	mono := New()
	stereo := New()

	x := make([]float32, 320)
	for i := range x {
		x[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	interleaved := make([]float32, 0, 2*len(x))
	for _, s := range x {
		interleaved = append(interleaved, s, s)
	}

	want, err := mono.ProcessStream(MonoBuffer(x), SampleRate16000, 1)
	require.NoError(t, err)
	got, err := stereo.ProcessStream(InterleavedBuffer(interleaved, 2), SampleRate16000, 2)
	require.NoError(t, err)

	for i, s := range want.Data {
		assert.Equal(t, s, got.Data[2*i], "left frame %d", i)
		assert.Equal(t, s, got.Data[2*i+1], "right frame %d", i)
	}
}

func TestChannelStatePolicies(t *testing.T) {
	in := make([]float32, 0, 320)
	for i := 0; i < 160; i++ {
		in = append(in, 0.5, 0)
	}

	perChannel := New()
	_, err := perChannel.ProcessStream(InterleavedBuffer(in, 2), SampleRate16000, 2)
	require.NoError(t, err)
	sp := perChannel.Engine().(*StreamProcessor)
	assert.Greater(t, sp.ChannelEnvelope(0), 0.0)
	assert.Equal(t, 0.0, sp.ChannelEnvelope(1))
	assert.Equal(t, sp.ChannelEnvelope(0), perChannel.Statistics().AGCEnvelope)

	shared := New(WithChannelStatePolicy(ChannelStateShared))
	_, err = shared.ProcessStream(InterleavedBuffer(in, 2), SampleRate16000, 2)
	require.NoError(t, err)
	ss := shared.Engine().(*StreamProcessor)
	assert.Greater(t, ss.ChannelEnvelope(0), 0.0)
	assert.Equal(t, 0.0, ss.ChannelEnvelope(1))
	assert.NotEqual(t, sp.ChannelEnvelope(0), ss.ChannelEnvelope(0))
}

func TestChannelCountChangeKeepsSurvivingState(t *testing.T) {
	p := New()
	sp := p.Engine().(*StreamProcessor)

	_, err := p.ProcessStream(InterleavedBuffer(constant(320, 0.5), 2), SampleRate16000, 2)
	require.NoError(t, err)
	env := sp.ChannelEnvelope(0)

	_, err = p.ProcessStream(MonoBuffer([]float32{}), SampleRate16000, 1)
	require.NoError(t, err)

	assert.Equal(t, env, sp.ChannelEnvelope(0))
	assert.Equal(t, 0.0, sp.ChannelEnvelope(1))
	assert.Equal(t, StreamFormat{SampleRate: 16000, Channels: 1}, sp.Format())
}

func TestInt16Path(t *testing.T) {
	p := New()
	disableAll(p)

	out, err := p.ProcessStreamInt16([]int16{16384, -32768, 0, 32767}, SampleRate16000, 2)
	require.NoError(t, err)
	assert.Equal(t, []int16{16383, -32767, 0, 32766}, out)

	in := []int16{100, -100}
	rev, err := p.ProcessReverseStreamInt16(in, SampleRate16000, 1)
	require.NoError(t, err)
	assert.Equal(t, in, rev)

	_, err = p.ProcessStreamInt16([]int16{1, 2, 3}, SampleRate16000, 2)
	assert.True(t, errors.Is(err, ErrInvalidShape))
}

func TestFloat32ToInt16Clamps(t *testing.T) {
	assert.Equal(t, []int16{32767, -32768, 0}, Float32ToInt16([]float32{2, -2, 0}))
}

type failingEngine struct {
	*StreamProcessor
}

func (failingEngine) ProcessStream(in, out []float32, format StreamFormat) (FrameReport, error) {
	return FrameReport{}, errors.New("backend exploded")
}

func TestEngineFailureIsComputationFailure(t *testing.T) {
	obs := &recordingObserver{}
	p := New(WithEngine(failingEngine{NewStreamProcessor()}), WithObserver(obs))

	_, err := p.ProcessStream(MonoBuffer(make([]float32, 160)), SampleRate16000, 1)

	assert.True(t, errors.Is(err, ErrComputationFailure))
	assert.Equal(t, []string{"ProcessStream"}, obs.rejected)
}

func TestNonFiniteInputTreatedAsSilence(t *testing.T) {
	p := New()
	require.NoError(t, p.SetStreamDelayMs(0))
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	out, err := p.ProcessStream(MonoBuffer([]float32{nan, inf, -inf, 0}), SampleRate16000, 1)
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 4), out.Data)

	out, err = p.ProcessStream(MonoBuffer(make([]float32, 160)), SampleRate16000, 1)
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 160), out.Data)

	stats := p.Statistics()
	assert.False(t, math.IsNaN(stats.AGCEnvelope))
	assert.Zero(t, stats.AGCEnvelope)
	assert.Equal(t, 0, p.RecommendedStreamAnalogLevel())

	// Later audio is processed as if the bad samples had been zeros.
	clean := New()
	require.NoError(t, clean.SetStreamDelayMs(0))
	_, err = clean.ProcessStream(MonoBuffer(make([]float32, 164)), SampleRate16000, 1)
	require.NoError(t, err)

	tone := make([]float32, 160)
	for i := range tone {
		tone[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	got, err := p.ProcessStream(MonoBuffer(tone), SampleRate16000, 1)
	require.NoError(t, err)
	want, err := clean.ProcessStream(MonoBuffer(tone), SampleRate16000, 1)
	require.NoError(t, err)
	assert.Equal(t, want.Data, got.Data)
}

func TestNonFiniteReverseSamplesRecordedAsSilence(t *testing.T) {
	p := echoOnly()
	require.NoError(t, p.SetStreamDelayMs(0))
	nan := float32(math.NaN())

	_, err := p.ProcessReverseStream(InterleavedBuffer([]float32{nan, 0.05, float32(math.Inf(-1)), nan}, 2), SampleRate16000, 2)
	require.NoError(t, err)
	out, err := p.ProcessStream(MonoBuffer([]float32{0.4, 0.4}), SampleRate16000, 1)
	require.NoError(t, err)

	assert.Equal(t, []float32{0.4, 0.4}, out.Data)
	assert.False(t, p.StreamHasEcho())
}

func TestStreamProcessorCountsNonFinite(t *testing.T) {
	sp := NewStreamProcessor()
	out := make([]float32, 3)

	report, err := sp.ProcessStream([]float32{float32(math.NaN()), 0.1, float32(math.Inf(1))}, out, StreamFormat{SampleRate: 16000, Channels: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, report.NonFinite)
	for _, s := range out {
		assert.False(t, math.IsNaN(float64(s)))
		assert.LessOrEqual(t, s, float32(1))
		assert.GreaterOrEqual(t, s, float32(-1))
	}
}

func TestReverseReconfigurePublishesAppliedFormat(t *testing.T) {
	obs := &recordingObserver{}
	p := New(WithObserver(obs))

	_, err := p.ProcessStream(InterleavedBuffer(make([]float32, 320), 2), SampleRate16000, 2)
	require.NoError(t, err)
	_, err = p.ProcessReverseStream(MonoBuffer(make([]float32, 480)), SampleRate48000, 1)
	require.NoError(t, err)

	want := []StreamFormat{
		{SampleRate: 16000, Channels: 2},
		{SampleRate: 48000, Channels: 2},
	}
	assert.Equal(t, want, obs.reconfigured)
	assert.Equal(t, want[1], p.Engine().(*StreamProcessor).Format())
}

func TestFrameReportCarriesFormat(t *testing.T) {
	sp := NewStreamProcessor()

	report, err := sp.ProcessReverseStream(make([]float32, 80), StreamFormat{SampleRate: 8000, Channels: 1})
	require.NoError(t, err)
	assert.True(t, report.Reconfigured)
	assert.Equal(t, StreamFormat{SampleRate: 8000, Channels: 1}, report.Format)

	report, err = sp.ProcessStream(make([]float32, 4), make([]float32, 4), StreamFormat{SampleRate: 8000, Channels: 2})
	require.NoError(t, err)
	assert.Equal(t, StreamFormat{SampleRate: 8000, Channels: 2}, report.Format)
}

func TestStreamHasEcho(t *testing.T) {
	p := echoOnly()
	require.NoError(t, p.SetStreamDelayMs(0))
	assert.False(t, p.StreamHasEcho())

	_, err := p.ProcessReverseStream(MonoBuffer(constant(160, 0.5)), SampleRate16000, 1)
	require.NoError(t, err)
	_, err = p.ProcessStream(MonoBuffer(constant(160, 0.4)), SampleRate16000, 1)
	require.NoError(t, err)
	assert.True(t, p.StreamHasEcho())

	_, err = p.ProcessReverseStream(MonoBuffer(make([]float32, 160)), SampleRate16000, 1)
	require.NoError(t, err)
	_, err = p.ProcessStream(MonoBuffer(constant(160, 0.4)), SampleRate16000, 1)
	require.NoError(t, err)
	assert.False(t, p.StreamHasEcho())
}

func TestStreamHasEchoRequiresWiredSuppressor(t *testing.T) {
	tests := []struct {
		name  string
		setup func() *Processor
	}{
		{"detached reference", func() *Processor {
			return echoOnly(WithEchoReferencePolicy(EchoReferenceDetached))
		}},
		{"echo cancellation off", func() *Processor {
			p := echoOnly()
			p.SetEchoCancellationEnabled(false)
			return p
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.setup()
			require.NoError(t, p.SetStreamDelayMs(0))

			_, err := p.ProcessReverseStream(MonoBuffer(constant(160, 0.5)), SampleRate16000, 1)
			require.NoError(t, err)
			_, err = p.ProcessStream(MonoBuffer(constant(160, 0.4)), SampleRate16000, 1)
			require.NoError(t, err)

			assert.False(t, p.StreamHasEcho())
		})
	}
}

func TestEchoMobileMode(t *testing.T) {
	p := New()
	assert.False(t, p.EchoMobileMode())

	p.SetEchoMobileMode(true)
	assert.True(t, p.EchoMobileMode())
	assert.True(t, p.Config().EchoCanceller.MobileMode)
}

func TestGainControlMode(t *testing.T) {
	obs := &recordingObserver{}
	p := New(WithObserver(obs))
	assert.Equal(t, AGCModeAdaptiveAnalog, p.GainControlMode())

	for _, mode := range []int{AGCModeAdaptiveDigital, AGCModeFixedDigital, AGCModeAdaptiveAnalog} {
		require.NoError(t, p.SetGainControlMode(mode))
		assert.Equal(t, mode, p.GainControlMode())
	}

	require.NoError(t, p.SetGainControlMode(AGCModeFixedDigital))
	for _, mode := range []int{-1, 3} {
		err := p.SetGainControlMode(mode)
		assert.True(t, errors.Is(err, ErrOutOfRangeConfig), "mode %d: %v", mode, err)
	}
	assert.Equal(t, AGCModeFixedDigital, p.GainControlMode())
	assert.Equal(t, []string{"SetGainControlMode", "SetGainControlMode"}, obs.rejected)
}

func TestChannelChains(t *testing.T) {
	sp := NewStreamProcessor()
	out := make([]float32, 4)
	_, err := sp.ProcessStream(make([]float32, 4), out, StreamFormat{SampleRate: 16000, Channels: 2})
	require.NoError(t, err)

	require.Len(t, sp.chains, 2)
	for _, chain := range sp.chains {
		assert.Equal(t, []string{"high_pass_filter", "noise_gate", "gain_controller"}, chain.Names())
	}
	assert.NotSame(t, sp.chains[0][0], sp.chains[1][0])
	assert.Same(t, sp.chains[0][1], sp.chains[1][1])

	_, err = sp.ProcessStream(make([]float32, 1), out[:1], StreamFormat{SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	assert.Len(t, sp.chains, 1)

	shared := NewStreamProcessor(WithStreamChannelState(ChannelStateShared))
	_, err = shared.ProcessStream(make([]float32, 4), out, StreamFormat{SampleRate: 16000, Channels: 2})
	require.NoError(t, err)
	assert.Len(t, shared.chains, 1)
}
