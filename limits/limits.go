// Package limits provides centralized domains for caller-supplied values.
// This ensures one validation policy across the processor and its backends.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MinChannels and MaxChannels bound the interleaved channel count.
	MinChannels = 1
	MaxChannels = 8

	// MinNoiseSuppressionLevel and MaxNoiseSuppressionLevel bound the gate level.
	MinNoiseSuppressionLevel = 0
	MaxNoiseSuppressionLevel = 3

	// MinAnalogLevel and MaxAnalogLevel bound the external analog gain stage.
	MinAnalogLevel = 0
	MaxAnalogLevel = 255

	// MinAGCMode and MaxAGCMode bound the gain controller mode.
	MinAGCMode = 0
	MaxAGCMode = 2

	// MinStreamDelayMs and MaxStreamDelayMs bound the render-to-capture delay.
	MinStreamDelayMs = 0
	MaxStreamDelayMs = 500
)

// supportedSampleRates covers the Opus bandwidths plus the usual capture rates.
var supportedSampleRates = []int{8000, 12000, 16000, 24000, 32000, 44100, 48000}

// ErrOutOfRange indicates a value outside its documented domain.
var ErrOutOfRange = errors.New("value out of range")

// SupportedSampleRates returns a copy of the accepted sample rates.
func SupportedSampleRates() []int {
	rates := make([]int, len(supportedSampleRates))
	copy(rates, supportedSampleRates)
	return rates
}

// ValidateSampleRate checks rate against the supported sample rates.
func ValidateSampleRate(rate int) error {
	for _, r := range supportedSampleRates {
		if r == rate {
			return nil
		}
	}
	return fmt.Errorf("%w: sample rate %d Hz is not one of %v", ErrOutOfRange, rate, supportedSampleRates)
}

// ValidateChannels checks the interleaved channel count.
func ValidateChannels(channels int) error {
	return validateRange("channel count", channels, MinChannels, MaxChannels)
}

// ValidateNoiseSuppressionLevel checks a noise gate level.
func ValidateNoiseSuppressionLevel(level int) error {
	return validateRange("noise suppression level", level, MinNoiseSuppressionLevel, MaxNoiseSuppressionLevel)
}

// ValidateAnalogLevel checks an analog input level.
func ValidateAnalogLevel(level int) error {
	return validateRange("analog level", level, MinAnalogLevel, MaxAnalogLevel)
}

// ValidateAGCMode checks a gain controller mode.
func ValidateAGCMode(mode int) error {
	return validateRange("AGC mode", mode, MinAGCMode, MaxAGCMode)
}

// ValidateStreamDelay checks a stream delay in milliseconds.
func ValidateStreamDelay(delayMs int) error {
	return validateRange("stream delay (ms)", delayMs, MinStreamDelayMs, MaxStreamDelayMs)
}

// ValidateStreamFormat checks a sample rate and channel count together.
func ValidateStreamFormat(sampleRate, channels int) error {
	if err := ValidateSampleRate(sampleRate); err != nil {
		return err
	}
	return ValidateChannels(channels)
}

func validateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%w: %s %d outside [%d, %d]", ErrOutOfRange, name, value, min, max)
	}
	return nil
}
