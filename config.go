package apm

import (
	"github.com/opd-ai/apm/limits"
	"github.com/sirupsen/logrus"
)

// EchoCancellerConfig configures echo suppression.
type EchoCancellerConfig struct {
	Enabled    bool
	MobileMode bool
}

// NoiseSuppressionConfig configures the noise gate.
type NoiseSuppressionConfig struct {
	Enabled bool
	Level   int
}

// GainControllerConfig configures the gain controller and analog level.
type GainControllerConfig struct {
	Enabled     bool
	Mode        int // One of the AGCMode constants
	AnalogLevel int
}

// HighPassFilterConfig configures the high-pass filter.
type HighPassFilterConfig struct {
	Enabled bool
}

// Config is a complete processor configuration that can be applied in one
// step.
type Config struct {
	EchoCanceller    EchoCancellerConfig
	NoiseSuppression NoiseSuppressionConfig
	GainController   GainControllerConfig
	HighPassFilter   HighPassFilterConfig
	StreamDelayMs    int
}

// DefaultConfig returns the configuration of a freshly created Processor.
func DefaultConfig() Config {
	return Config{
		EchoCanceller:    EchoCancellerConfig{Enabled: true},
		NoiseSuppression: NoiseSuppressionConfig{Enabled: true, Level: NSLevelHigh},
		GainController:   GainControllerConfig{Enabled: true, Mode: AGCModeAdaptiveAnalog, AnalogLevel: DefaultAnalogLevel},
		HighPassFilter:   HighPassFilterConfig{Enabled: true},
		StreamDelayMs:    defaultDelayMedianMs,
	}
}

// Validate checks every numeric field against its documented domain.
func (c Config) Validate() error {
	if err := limits.ValidateNoiseSuppressionLevel(c.NoiseSuppression.Level); err != nil {
		return err
	}
	if err := limits.ValidateAGCMode(c.GainController.Mode); err != nil {
		return err
	}
	if err := limits.ValidateAnalogLevel(c.GainController.AnalogLevel); err != nil {
		return err
	}
	return limits.ValidateStreamDelay(c.StreamDelayMs)
}

// ApplyTo validates c and applies it to p. An invalid configuration leaves p
// unchanged.
func (c Config) ApplyTo(p *Processor) error {
	if err := c.Validate(); err != nil {
		return p.reject("Config.ApplyTo", err)
	}

	// The level setter enables the gate, so the flag is applied after it.
	if err := p.SetNoiseSuppressionLevel(c.NoiseSuppression.Level); err != nil {
		return err
	}
	p.SetNoiseSuppressionEnabled(c.NoiseSuppression.Enabled)
	p.SetEchoCancellationEnabled(c.EchoCanceller.Enabled)
	p.SetEchoMobileMode(c.EchoCanceller.MobileMode)
	p.SetGainControlEnabled(c.GainController.Enabled)
	if err := p.SetGainControlMode(c.GainController.Mode); err != nil {
		return err
	}
	p.SetHighPassFilterEnabled(c.HighPassFilter.Enabled)

	if err := p.SetStreamAnalogLevel(c.GainController.AnalogLevel); err != nil {
		return err
	}
	if err := p.SetStreamDelayMs(c.StreamDelayMs); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Config.ApplyTo",
		"ns_level": c.NoiseSuppression.Level,
		"agc_mode": c.GainController.Mode,
		"analog":   c.GainController.AnalogLevel,
		"delay_ms": c.StreamDelayMs,
		"engine":   p.engine.Name(),
	}).Info("Configuration applied")

	return nil
}

// Config returns the processor's current configuration.
func (p *Processor) Config() Config {
	return Config{
		EchoCanceller:    EchoCancellerConfig{Enabled: p.EchoCancellationEnabled(), MobileMode: p.EchoMobileMode()},
		NoiseSuppression: NoiseSuppressionConfig{Enabled: p.NoiseSuppressionEnabled(), Level: p.NoiseSuppressionLevel()},
		GainController:   GainControllerConfig{Enabled: p.GainControlEnabled(), Mode: p.GainControlMode(), AnalogLevel: p.analogLevel},
		HighPassFilter:   HighPassFilterConfig{Enabled: p.HighPassFilterEnabled()},
		StreamDelayMs:    p.delayMs,
	}
}
