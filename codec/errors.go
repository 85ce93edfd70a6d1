package codec

import "errors"

// Sentinel errors for far-end decoding.
var (
	// ErrEmptyPacket indicates a zero-length packet.
	ErrEmptyPacket = errors.New("empty opus packet")

	// ErrMalformedPacket indicates a TOC header that cannot describe a valid packet.
	ErrMalformedPacket = errors.New("malformed opus packet")

	// ErrDecodeFailed indicates the Opus decoder rejected the packet.
	ErrDecodeFailed = errors.New("opus decode failed")
)
