package apm

import (
	"errors"

	"github.com/opd-ai/apm/limits"
)

// Sentinel errors for processor operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrInvalidShape indicates a buffer whose rank or extents cannot be processed.
	ErrInvalidShape = errors.New("invalid buffer shape")

	// ErrOutOfRangeConfig indicates a caller-supplied value outside its documented domain.
	ErrOutOfRangeConfig = limits.ErrOutOfRange

	// ErrComputationFailure indicates a processing backend failed on a frame.
	ErrComputationFailure = errors.New("audio processing failed")
)
