// Package webrtc provides an apm.Engine backed by the WebRTC audio
// processing module.
//
// The echo canceller runs in the native library through github.com/CoyAce/apm.
// High-pass filtering, noise gating and gain control are delegated to an
// embedded apm.StreamProcessor with its own echo suppression switched off, so
// the capability set is the same as the built-in engine.
//
// The native engine is only compiled with the webrtc build tag (it needs cgo
// and the WebRTC APM library):
//
//	go build -tags webrtc ./...
//
// Without the tag New returns ErrUnavailable.
//
// The engine accepts 48 kHz mono streams in whole 10 ms frames:
//
//	engine, err := webrtc.New()
//	if err != nil {
//		return err
//	}
//	p := apm.New(apm.WithEngine(engine))
//	out, err := p.ProcessStream(apm.MonoBuffer(capture), webrtc.SampleRate, 1)
package webrtc
