//go:build webrtc

package webrtc

import (
	"fmt"

	webrtcapm "github.com/CoyAce/apm"
	"github.com/opd-ai/apm"
	"github.com/sirupsen/logrus"
)

// Engine runs echo cancellation in the WebRTC APM and every other stage in
// the embedded StreamProcessor.
type Engine struct {
	*apm.StreamProcessor

	native      *webrtcapm.Processor
	echoEnabled bool
	erle        float64
	hasEcho     bool
}

var _ apm.Engine = (*Engine)(nil)

// New creates and initializes a native echo canceller.
func New() (*Engine, error) {
	native, err := webrtcapm.New(webrtcapm.Config{
		CaptureChannels:  Channels,
		RenderChannels:   Channels,
		EchoCancellation: webrtcapm.EchoCancellationConfig{Enabled: true},
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "webrtc.New",
			"error":    err.Error(),
		}).Error("Failed to create WebRTC processor")
		return nil, fmt.Errorf("%w: %v", apm.ErrComputationFailure, err)
	}
	native.Initialize()

	e := &Engine{
		StreamProcessor: apm.NewStreamProcessor(),
		native:          native,
		echoEnabled:     true,
	}
	// Echo is handled natively; the embedded engine must not duck as well.
	e.StreamProcessor.SetFeatureEnabled(apm.FeatureEchoCancellation, false)

	logrus.WithFields(logrus.Fields{
		"function":    "webrtc.New",
		"sample_rate": SampleRate,
		"frame_size":  FrameSize,
	}).Info("WebRTC engine created")

	return e, nil
}

// Name identifies the engine.
func (e *Engine) Name() string {
	return "webrtc"
}

// Version returns the engine version string.
func (e *Engine) Version() string {
	return engineVersion
}

// SetFeatureEnabled routes echo cancellation to the native processor.
func (e *Engine) SetFeatureEnabled(feature apm.Feature, enabled bool) {
	if feature == apm.FeatureEchoCancellation {
		e.echoEnabled = enabled
		return
	}
	e.StreamProcessor.SetFeatureEnabled(feature, enabled)
}

// FeatureEnabled reports whether a stage is on.
func (e *Engine) FeatureEnabled(feature apm.Feature) bool {
	if feature == apm.FeatureEchoCancellation {
		return e.echoEnabled
	}
	return e.StreamProcessor.FeatureEnabled(feature)
}

// ProcessStream runs the embedded chain, then cancels echo frame by frame.
func (e *Engine) ProcessStream(in, out []float32, format apm.StreamFormat) (apm.FrameReport, error) {
	if err := checkFormat(len(in), format); err != nil {
		return apm.FrameReport{}, err
	}

	e.hasEcho = false
	report, err := e.StreamProcessor.ProcessStream(in, out, format)
	if err != nil || !e.echoEnabled {
		return report, err
	}

	for start := 0; start < len(out); start += FrameSize {
		frame := out[start : start+FrameSize]
		cleaned, err := e.native.ProcessCapture(frame)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.ProcessStream",
				"offset":   start,
				"error":    err.Error(),
			}).Error("Native capture processing failed")
			return report, fmt.Errorf("%w: capture frame at %d: %v", apm.ErrComputationFailure, start, err)
		}
		copy(frame, cleaned)
	}
	report.Clipped += clampFrame(out)

	e.erle = float64(e.native.GetStats().EchoReturnLossEnhancement)
	e.hasEcho = echoDetected(e.erle)
	return report, nil
}

// StreamHasEcho reports echo from the native ERLE of the last forward buffer.
// The mobile and AGC modes stay on the embedded engine: the native config
// only exposes the echo canceller switch.
func (e *Engine) StreamHasEcho() bool {
	return e.hasEcho
}

// ProcessReverseStream feeds the render stream to the native processor and
// records it in the embedded reference buffer.
func (e *Engine) ProcessReverseStream(in []float32, format apm.StreamFormat) (apm.FrameReport, error) {
	if err := checkFormat(len(in), format); err != nil {
		return apm.FrameReport{}, err
	}

	pcm := apm.Float32ToInt16(in)
	for start := 0; start < len(pcm); start += FrameSize {
		if err := e.native.ProcessRenderInt16(pcm[start : start+FrameSize]); err != nil {
			return apm.FrameReport{}, fmt.Errorf("%w: render frame at %d: %v", apm.ErrComputationFailure, start, err)
		}
	}

	return e.StreamProcessor.ProcessReverseStream(in, format)
}

// Statistics reports the measured ERLE while echo cancellation is on.
func (e *Engine) Statistics() apm.Statistics {
	s := e.StreamProcessor.Statistics()
	if e.echoEnabled {
		s.EchoReturnLossEnhancement = e.erle
	}
	return s
}
