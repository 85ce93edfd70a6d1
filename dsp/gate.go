package dsp

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Noise suppression levels accepted by NoiseGate.SetLevel.
const (
	LevelLow      = 0
	LevelModerate = 1
	LevelHigh     = 2
	LevelVeryHigh = 3
)

// GateSetting is the threshold/ratio pair selected by a suppression level.
type GateSetting struct {
	Threshold float32 // Absolute amplitude below which the gate attenuates
	Ratio     float32 // Multiplier applied to samples under the threshold
}

var gateTable = [...]GateSetting{
	LevelLow:      {Threshold: 0.05, Ratio: 0.8},
	LevelModerate: {Threshold: 0.03, Ratio: 0.6},
	LevelHigh:     {Threshold: 0.02, Ratio: 0.4},
	LevelVeryHigh: {Threshold: 0.01, Ratio: 0.2},
}

// GateSettingForLevel returns the table entry for level.
func GateSettingForLevel(level int) (GateSetting, error) {
	if level < LevelLow || level > LevelVeryHigh {
		return GateSetting{}, fmt.Errorf("noise suppression level must be between %d and %d: %d", LevelLow, LevelVeryHigh, level)
	}
	return gateTable[level], nil
}

// NoiseGate attenuates samples whose magnitude falls below a threshold.
//
// The gate is stateless between samples; the comparison is done in float32 so
// a sample exactly equal to the threshold passes unchanged.
type NoiseGate struct {
	level   int
	setting GateSetting
	enabled bool
}

// NewNoiseGate creates an enabled gate at LevelHigh.
func NewNoiseGate() *NoiseGate {
	return &NoiseGate{
		level:   LevelHigh,
		setting: gateTable[LevelHigh],
		enabled: true,
	}
}

// SetLevel selects the threshold/ratio pair for level and enables the gate.
func (g *NoiseGate) SetLevel(level int) error {
	setting, err := GateSettingForLevel(level)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NoiseGate.SetLevel",
			"level":    level,
			"error":    err.Error(),
		}).Error("Noise gate level validation failed")
		return err
	}

	g.level = level
	g.setting = setting
	g.enabled = true

	logrus.WithFields(logrus.Fields{
		"function":  "NoiseGate.SetLevel",
		"level":     level,
		"threshold": setting.Threshold,
		"ratio":     setting.Ratio,
	}).Debug("Noise gate level updated")

	return nil
}

// Suppress gates one sample.
func (g *NoiseGate) Suppress(x float32) float32 {
	if !g.enabled {
		return x
	}

	abs := x
	if abs < 0 {
		abs = -abs
	}
	if abs < g.setting.Threshold {
		return x * g.setting.Ratio
	}
	return x
}

// Process implements Stage.
func (g *NoiseGate) Process(x float32) float32 {
	return g.Suppress(x)
}

// GetName implements Stage.
func (g *NoiseGate) GetName() string {
	return "noise_gate"
}

// SetEnabled turns the gate on or off.
func (g *NoiseGate) SetEnabled(enabled bool) {
	g.enabled = enabled
}

// Enabled reports whether the gate is active.
func (g *NoiseGate) Enabled() bool {
	return g.enabled
}

// Level returns the active suppression level.
func (g *NoiseGate) Level() int {
	return g.level
}

// Setting returns the active threshold/ratio pair.
func (g *NoiseGate) Setting() GateSetting {
	return g.setting
}
