package apm

import (
	"fmt"
)

// Buffer holds float32 PCM samples together with their logical shape.
//
// A rank 1 buffer has shape [n]. A rank 2 buffer has shape [frames, channels]
// and stores its samples row-major, i.e. interleaved by channel.
type Buffer struct {
	Data  []float32
	Shape []int
}

// MonoBuffer wraps samples as a rank 1 buffer.
func MonoBuffer(samples []float32) Buffer {
	return Buffer{Data: samples, Shape: []int{len(samples)}}
}

// InterleavedBuffer wraps interleaved samples as a rank 2 [frames, channels]
// buffer. A length that is not a multiple of channels yields a shape that
// fails validation.
func InterleavedBuffer(samples []float32, channels int) Buffer {
	frames := 0
	if channels > 0 {
		frames = len(samples) / channels
	}
	return Buffer{Data: samples, Shape: []int{frames, channels}}
}

// Rank returns the number of dimensions.
func (b Buffer) Rank() int {
	return len(b.Shape)
}

// Frames returns the number of frames for channels interleaved channels.
func (b Buffer) Frames(channels int) int {
	if channels <= 0 {
		return 0
	}
	return len(b.Data) / channels
}

// validate checks the shape against the data and the declared channel count.
func (b Buffer) validate(channels int) error {
	if b.Rank() != 1 && b.Rank() != 2 {
		return fmt.Errorf("%w: rank %d, want 1 or 2", ErrInvalidShape, b.Rank())
	}

	elements := 1
	for i, extent := range b.Shape {
		if extent < 0 {
			return fmt.Errorf("%w: negative extent %d in dimension %d", ErrInvalidShape, extent, i)
		}
		elements *= extent
	}
	if elements != len(b.Data) {
		return fmt.Errorf("%w: shape %v describes %d samples, data has %d", ErrInvalidShape, b.Shape, elements, len(b.Data))
	}

	if b.Rank() == 2 && b.Shape[1] != channels {
		return fmt.Errorf("%w: shape %v has %d channels, stream declares %d", ErrInvalidShape, b.Shape, b.Shape[1], channels)
	}
	if b.Rank() == 1 && len(b.Data)%channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames", ErrInvalidShape, len(b.Data), channels)
	}

	return nil
}

// withData returns a buffer sharing b's shape (copied) around data.
func (b Buffer) withData(data []float32) Buffer {
	shape := make([]int, len(b.Shape))
	copy(shape, b.Shape)
	return Buffer{Data: data, Shape: shape}
}
