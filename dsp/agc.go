package dsp

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Fixed AGC parameters.
const (
	AGCTargetLevel = 0.3   // Envelope level the controller steers toward
	AGCAttackTime  = 0.1   // Seconds
	AGCReleaseTime = 0.5   // Seconds
	AGCMinGain     = 0.1   // -20 dB
	AGCMaxGain     = 10.0  // +20 dB
	agcFloor       = 0.001 // Envelope below which unity gain is used
)

// GainController implements envelope-follower automatic gain control.
//
// The envelope rises with the attack coefficient and falls with the release
// coefficient. The gain that drives the envelope to the target level is
// always limited to [AGCMinGain, AGCMaxGain]. While disabled the controller is
// completely inert: samples pass through and the envelope does not move.
type GainController struct {
	targetLevel  float64
	attackCoeff  float64
	releaseCoeff float64
	envelope     float64 // Smoothed magnitude of the input
	gain         float64 // Gain applied to the most recent sample
	enabled      bool
}

// NewGainController creates an enabled controller tuned for sampleRate.
func NewGainController(sampleRate int) *GainController {
	agc := &GainController{
		targetLevel: AGCTargetLevel,
		gain:        1.0,
		enabled:     true,
	}
	agc.SetSampleRate(sampleRate)
	return agc
}

// TimeConstantCoeff converts a time constant in seconds to a one-pole
// smoothing coefficient at sampleRate.
func TimeConstantCoeff(seconds float64, sampleRate int) float64 {
	return math.Exp(-1.0 / (seconds * float64(sampleRate)))
}

// SetSampleRate recomputes the attack and release coefficients.
// The envelope carries over.
func (a *GainController) SetSampleRate(sampleRate int) {
	a.attackCoeff = TimeConstantCoeff(AGCAttackTime, sampleRate)
	a.releaseCoeff = TimeConstantCoeff(AGCReleaseTime, sampleRate)

	logrus.WithFields(logrus.Fields{
		"function":      "GainController.SetSampleRate",
		"sample_rate":   sampleRate,
		"attack_coeff":  a.attackCoeff,
		"release_coeff": a.releaseCoeff,
	}).Debug("AGC coefficients recomputed")
}

// ApplyGain runs one sample through the controller.
func (a *GainController) ApplyGain(x float32) float32 {
	if !a.enabled {
		return x
	}

	a.followEnvelope(math.Abs(float64(x)))
	a.gain = a.desiredGain()

	return float32(float64(x) * a.gain)
}

// Process implements Stage.
func (a *GainController) Process(x float32) float32 {
	return a.ApplyGain(x)
}

// GetName implements Stage.
func (a *GainController) GetName() string {
	return "gain_controller"
}

// followEnvelope moves the envelope toward level using attack when rising and
// release when falling.
func (a *GainController) followEnvelope(level float64) {
	coeff := a.releaseCoeff
	if level > a.envelope {
		coeff = a.attackCoeff
	}
	a.envelope = coeff*a.envelope + (1.0-coeff)*level
}

// desiredGain returns the gain for the current envelope, limited to the safe range.
func (a *GainController) desiredGain() float64 {
	if a.envelope <= agcFloor {
		return 1.0
	}
	return ClampGain(a.targetLevel / a.envelope)
}

// ClampGain limits gain to [AGCMinGain, AGCMaxGain].
func ClampGain(gain float64) float64 {
	if gain < AGCMinGain {
		return AGCMinGain
	}
	if gain > AGCMaxGain {
		return AGCMaxGain
	}
	return gain
}

// SetEnabled turns the controller on or off. The envelope is kept.
func (a *GainController) SetEnabled(enabled bool) {
	a.enabled = enabled
}

// Enabled reports whether the controller is active.
func (a *GainController) Enabled() bool {
	return a.enabled
}

// Envelope returns the current envelope value.
func (a *GainController) Envelope() float64 {
	return a.envelope
}

// Gain returns the gain applied to the most recent sample.
func (a *GainController) Gain() float64 {
	return a.gain
}

// TargetLevel returns the internal AGC target level.
func (a *GainController) TargetLevel() float64 {
	return a.targetLevel
}

// Coefficients returns the attack and release smoothing coefficients.
func (a *GainController) Coefficients() (attack, release float64) {
	return a.attackCoeff, a.releaseCoeff
}
