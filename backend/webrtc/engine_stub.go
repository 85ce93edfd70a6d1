//go:build !webrtc

package webrtc

import "github.com/opd-ai/apm"

// Engine is unavailable without the webrtc build tag.
type Engine struct {
	*apm.StreamProcessor
}

// New always fails with ErrUnavailable.
func New() (*Engine, error) {
	return nil, ErrUnavailable
}
