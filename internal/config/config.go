// Package config loads apmctl settings from a YAML file and APM_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/apm"
	"github.com/opd-ai/apm/limits"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// APM_PROCESSOR_NOISE_SUPPRESSION_LEVEL=3.
const EnvPrefix = "APM"

// Engine names accepted by processor.engine.
const (
	EngineStandalone = "standalone"
	EngineWebRTC     = "webrtc"
)

// ErrInvalidSettings indicates a settings value outside its domain.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the complete apmctl configuration.
type Settings struct {
	Processor ProcessorSettings `yaml:"processor" mapstructure:"processor"`
	Stream    StreamSettings    `yaml:"stream" mapstructure:"stream"`
	Log       LogSettings       `yaml:"log" mapstructure:"log"`
}

// ProcessorSettings mirrors apm.Config plus the construction policies.
type ProcessorSettings struct {
	Engine           string                   `yaml:"engine" mapstructure:"engine"` // standalone, webrtc
	EchoCancellation bool                     `yaml:"echo_cancellation" mapstructure:"echo_cancellation"`
	EchoMobileMode   bool                     `yaml:"echo_mobile_mode" mapstructure:"echo_mobile_mode"`
	NoiseSuppression NoiseSuppressionSettings `yaml:"noise_suppression" mapstructure:"noise_suppression"`
	GainControl      GainControlSettings      `yaml:"gain_control" mapstructure:"gain_control"`
	HighPassFilter   bool                     `yaml:"high_pass_filter" mapstructure:"high_pass_filter"`
	StreamDelayMs    int                      `yaml:"stream_delay_ms" mapstructure:"stream_delay_ms"`
	ChannelState     string                   `yaml:"channel_state" mapstructure:"channel_state"`   // per-channel, shared
	EchoReference    string                   `yaml:"echo_reference" mapstructure:"echo_reference"` // wired, detached
}

// NoiseSuppressionSettings configures the noise gate.
type NoiseSuppressionSettings struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Level   int  `yaml:"level" mapstructure:"level"`
}

// GainControlSettings configures the gain controller.
type GainControlSettings struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	Mode        int  `yaml:"mode" mapstructure:"mode"` // 0 adaptive analog, 1 adaptive digital, 2 fixed digital
	AnalogLevel int  `yaml:"analog_level" mapstructure:"analog_level"`
}

// StreamSettings describes how apmctl frames its input.
type StreamSettings struct {
	FrameMs int `yaml:"frame_ms" mapstructure:"frame_ms"`
}

// LogSettings configures logrus.
type LogSettings struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// setDefaults registers the default of every key. Keys without a default are
// invisible to environment overrides during Unmarshal.
func setDefaults(v *viper.Viper) {
	def := apm.DefaultConfig()

	v.SetDefault("processor.engine", EngineStandalone)
	v.SetDefault("processor.echo_cancellation", def.EchoCanceller.Enabled)
	v.SetDefault("processor.echo_mobile_mode", def.EchoCanceller.MobileMode)
	v.SetDefault("processor.noise_suppression.enabled", def.NoiseSuppression.Enabled)
	v.SetDefault("processor.noise_suppression.level", def.NoiseSuppression.Level)
	v.SetDefault("processor.gain_control.enabled", def.GainController.Enabled)
	v.SetDefault("processor.gain_control.mode", def.GainController.Mode)
	v.SetDefault("processor.gain_control.analog_level", def.GainController.AnalogLevel)
	v.SetDefault("processor.high_pass_filter", def.HighPassFilter.Enabled)
	v.SetDefault("processor.stream_delay_ms", def.StreamDelayMs)
	v.SetDefault("processor.channel_state", apm.ChannelStatePerChannel.String())
	v.SetDefault("processor.echo_reference", apm.EchoReferenceWired.String())

	v.SetDefault("stream.frame_ms", 10)

	v.SetDefault("log.level", logrus.InfoLevel.String())
}

// New returns a viper instance with defaults and environment overrides
// registered. When path is empty, apm.yaml is searched for in the working
// directory and is optional.
func New(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("apm")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return v
}

// Load reads settings from path (or the optional default file), applies
// environment overrides and validates the result.
func Load(path string) (*Settings, error) {
	return LoadFrom(New(path), path != "")
}

// LoadFrom reads the configuration file registered on v. A missing file is
// an error only when required is set.
func LoadFrom(v *viper.Viper, required bool) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if required || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "config.LoadFrom",
		"config_file": v.ConfigFileUsed(),
	}).Debug("Settings loaded")

	return settings, nil
}

// Validate checks every field against its domain.
func (s *Settings) Validate() error {
	if err := s.APMConfig().Validate(); err != nil {
		return err
	}
	if _, err := apm.ParseChannelStatePolicy(s.Processor.ChannelState); err != nil {
		return err
	}
	if _, err := apm.ParseEchoReferencePolicy(s.Processor.EchoReference); err != nil {
		return err
	}
	if s.Processor.Engine != EngineStandalone && s.Processor.Engine != EngineWebRTC {
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidSettings, s.Processor.Engine)
	}
	if s.Stream.FrameMs <= 0 || s.Stream.FrameMs > 100 {
		return fmt.Errorf("%w: frame_ms %d outside [1, 100]", ErrInvalidSettings, s.Stream.FrameMs)
	}
	if _, err := logrus.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// APMConfig converts the processor section to an apm.Config.
func (s *Settings) APMConfig() apm.Config {
	p := s.Processor
	return apm.Config{
		EchoCanceller:    apm.EchoCancellerConfig{Enabled: p.EchoCancellation, MobileMode: p.EchoMobileMode},
		NoiseSuppression: apm.NoiseSuppressionConfig{Enabled: p.NoiseSuppression.Enabled, Level: p.NoiseSuppression.Level},
		GainController:   apm.GainControllerConfig{Enabled: p.GainControl.Enabled, Mode: p.GainControl.Mode, AnalogLevel: p.GainControl.AnalogLevel},
		HighPassFilter:   apm.HighPassFilterConfig{Enabled: p.HighPassFilter},
		StreamDelayMs:    p.StreamDelayMs,
	}
}

// Options returns the construction options selected by the settings.
func (s *Settings) Options() ([]apm.Option, error) {
	channelState, err := apm.ParseChannelStatePolicy(s.Processor.ChannelState)
	if err != nil {
		return nil, err
	}
	echoReference, err := apm.ParseEchoReferencePolicy(s.Processor.EchoReference)
	if err != nil {
		return nil, err
	}
	return []apm.Option{
		apm.WithChannelStatePolicy(channelState),
		apm.WithEchoReferencePolicy(echoReference),
	}, nil
}

// FrameSamples returns the number of frames per processing block at
// sampleRate.
func (s *Settings) FrameSamples(sampleRate int) (int, error) {
	if err := limits.ValidateSampleRate(sampleRate); err != nil {
		return 0, err
	}
	frames := sampleRate * s.Stream.FrameMs / 1000
	if frames*1000 != sampleRate*s.Stream.FrameMs {
		return 0, fmt.Errorf("%w: %d ms is not a whole number of frames at %d Hz", ErrInvalidSettings, s.Stream.FrameMs, sampleRate)
	}
	return frames, nil
}

// YAML renders the settings as a YAML document.
func (s *Settings) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}
