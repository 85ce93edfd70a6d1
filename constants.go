package apm

import "github.com/opd-ai/apm/dsp"

// Version is the library version.
const Version = "2.1.0"

// Sample rates of the legacy API. Any rate in limits.SupportedSampleRates is
// accepted.
const (
	SampleRate8000  = 8000
	SampleRate16000 = 16000
	SampleRate32000 = 32000
	SampleRate48000 = 48000
)

// Noise suppression levels.
const (
	NSLevelLow      = dsp.LevelLow
	NSLevelModerate = dsp.LevelModerate
	NSLevelHigh     = dsp.LevelHigh
	NSLevelVeryHigh = dsp.LevelVeryHigh
)

// Gain controller modes.
const (
	AGCModeAdaptiveAnalog  = 0
	AGCModeAdaptiveDigital = 1
	AGCModeFixedDigital    = 2
)
