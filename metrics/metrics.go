// Package metrics exports audio processor activity as Prometheus metrics.
//
// ProcessorMetrics implements apm.Observer. Register it on a processor with
// apm.WithObserver; every update is pushed from the processing thread, so a
// scrape never reads processor state directly.
package metrics

import (
	"errors"
	"time"

	"github.com/opd-ai/apm"
	"github.com/prometheus/client_golang/prometheus"
)

// Rejection kinds used as the "kind" label of apm_rejected_calls_total.
const (
	KindInvalidShape       = "invalid_shape"
	KindOutOfRange         = "out_of_range"
	KindComputationFailure = "computation_failure"
	KindOther              = "other"
)

// Histogram buckets for per-buffer processing time: 10µs to ~41ms.
const (
	bucketStart10us = 0.00001
	bucketFactor2   = 2
	bucketCount13   = 13
)

// ProcessorMetrics contains Prometheus metrics for one audio processor.
type ProcessorMetrics struct {
	registry *prometheus.Registry

	framesTotal     *prometheus.CounterVec
	samplesTotal    *prometheus.CounterVec
	clippedTotal    prometheus.Counter
	reconfigTotal   prometheus.Counter
	rejectedTotal   *prometheus.CounterVec
	processDuration *prometheus.HistogramVec

	sampleRateGauge   prometheus.Gauge
	channelsGauge     prometheus.Gauge
	erlGauge          prometheus.Gauge
	erleGauge         prometheus.Gauge
	delayGauge        prometheus.Gauge
	residualEchoGauge prometheus.Gauge
	envelopeGauge     prometheus.Gauge
	gainGauge         prometheus.Gauge
}

var _ apm.Observer = (*ProcessorMetrics)(nil)

// NewProcessorMetrics creates and registers processor metrics.
func NewProcessorMetrics(registry *prometheus.Registry) (*ProcessorMetrics, error) {
	m := &ProcessorMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *ProcessorMetrics) initMetrics() {
	m.framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apm_buffers_total",
			Help: "Total number of buffers processed",
		},
		[]string{"direction"}, // direction: forward, reverse
	)

	m.samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apm_samples_total",
			Help: "Total number of interleaved samples processed",
		},
		[]string{"direction"},
	)

	m.clippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apm_clipped_samples_total",
		Help: "Total number of output samples clamped into [-1, 1]",
	})

	m.reconfigTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apm_reconfigurations_total",
		Help: "Total number of stream format changes",
	})

	m.rejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apm_rejected_calls_total",
			Help: "Total number of calls rejected by validation or the engine",
		},
		[]string{"operation", "kind"},
	)

	m.processDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "apm_process_duration_seconds",
			Help: "Time taken to process one buffer",
			// Exponential buckets: 10µs, 20µs, ... ~41ms
			Buckets: prometheus.ExponentialBuckets(bucketStart10us, bucketFactor2, bucketCount13),
		},
		[]string{"direction"},
	)

	m.sampleRateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apm_stream_sample_rate_hertz",
		Help: "Sample rate of the most recent stream format change",
	})

	m.channelsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apm_stream_channels",
		Help: "Channel count of the most recent stream format change",
	})

	m.erlGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apm_echo_return_loss_db",
		Help: "Echo return loss in dB",
	})

	m.erleGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apm_echo_return_loss_enhancement_db",
		Help: "Echo return loss enhancement in dB",
	})

	m.delayGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apm_delay_median_milliseconds",
		Help: "Render-to-capture delay in milliseconds",
	})

	m.residualEchoGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apm_residual_echo_likelihood",
		Help: "Residual echo likelihood between 0 and 1",
	})

	m.envelopeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apm_agc_envelope",
		Help: "Largest per-channel AGC envelope",
	})

	m.gainGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apm_current_gain",
		Help: "Target gain derived from the analog level",
	})
}

// Describe implements the Collector interface
func (m *ProcessorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.framesTotal.Describe(ch)
	m.samplesTotal.Describe(ch)
	m.clippedTotal.Describe(ch)
	m.reconfigTotal.Describe(ch)
	m.rejectedTotal.Describe(ch)
	m.processDuration.Describe(ch)
	m.sampleRateGauge.Describe(ch)
	m.channelsGauge.Describe(ch)
	m.erlGauge.Describe(ch)
	m.erleGauge.Describe(ch)
	m.delayGauge.Describe(ch)
	m.residualEchoGauge.Describe(ch)
	m.envelopeGauge.Describe(ch)
	m.gainGauge.Describe(ch)
}

// Collect implements the Collector interface
func (m *ProcessorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.framesTotal.Collect(ch)
	m.samplesTotal.Collect(ch)
	m.clippedTotal.Collect(ch)
	m.reconfigTotal.Collect(ch)
	m.rejectedTotal.Collect(ch)
	m.processDuration.Collect(ch)
	m.sampleRateGauge.Collect(ch)
	m.channelsGauge.Collect(ch)
	m.erlGauge.Collect(ch)
	m.erleGauge.Collect(ch)
	m.delayGauge.Collect(ch)
	m.residualEchoGauge.Collect(ch)
	m.envelopeGauge.Collect(ch)
	m.gainGauge.Collect(ch)
}

// ObserveFrame records one processed buffer.
func (m *ProcessorMetrics) ObserveFrame(direction apm.Direction, samples, clipped int, elapsed time.Duration) {
	d := string(direction)
	m.framesTotal.WithLabelValues(d).Inc()
	m.samplesTotal.WithLabelValues(d).Add(float64(samples))
	m.processDuration.WithLabelValues(d).Observe(elapsed.Seconds())
	if clipped > 0 {
		m.clippedTotal.Add(float64(clipped))
	}
}

// ObserveReconfigure records a stream format change.
func (m *ProcessorMetrics) ObserveReconfigure(format apm.StreamFormat) {
	m.reconfigTotal.Inc()
	m.sampleRateGauge.Set(float64(format.SampleRate))
	m.channelsGauge.Set(float64(format.Channels))
}

// ObserveRejected records a rejected call, classified by sentinel error.
func (m *ProcessorMetrics) ObserveRejected(operation string, err error) {
	m.rejectedTotal.WithLabelValues(operation, ErrorKind(err)).Inc()
}

// ObserveStatistics mirrors a statistics snapshot into the gauges.
func (m *ProcessorMetrics) ObserveStatistics(stats apm.Statistics) {
	m.erlGauge.Set(stats.EchoReturnLoss)
	m.erleGauge.Set(stats.EchoReturnLossEnhancement)
	m.delayGauge.Set(float64(stats.DelayMedianMs))
	m.residualEchoGauge.Set(stats.ResidualEchoLikelihood)
	m.envelopeGauge.Set(stats.AGCEnvelope)
	m.gainGauge.Set(stats.CurrentGain)
}

// ErrorKind maps an error to its rejection kind label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, apm.ErrInvalidShape):
		return KindInvalidShape
	case errors.Is(err, apm.ErrOutOfRangeConfig):
		return KindOutOfRange
	case errors.Is(err, apm.ErrComputationFailure):
		return KindComputationFailure
	default:
		return KindOther
	}
}
