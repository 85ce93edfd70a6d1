package apm

// Statistics keys returned by Statistics.Map.
const (
	StatEchoReturnLoss            = "echo_return_loss"
	StatEchoReturnLossEnhancement = "echo_return_loss_enhancement"
	StatDelayMedianMs             = "delay_median_ms"
	StatResidualEchoLikelihood    = "residual_echo_likelihood"
	StatAGCEnvelope               = "agc_envelope"
	StatCurrentGain               = "current_gain"
)

// Default statistics reported before any backend measurement.
const (
	defaultEchoReturnLoss            = -20.0
	defaultEchoReturnLossEnhancement = 15.0
	defaultDelayMedianMs             = 50
	defaultResidualEchoLikelihood    = 0.2
)

// Statistics is an immutable snapshot of processor statistics.
type Statistics struct {
	EchoReturnLoss            float64 // dB
	EchoReturnLossEnhancement float64 // dB
	DelayMedianMs             int     // Last value passed to SetStreamDelayMs
	ResidualEchoLikelihood    float64 // 0..1
	AGCEnvelope               float64 // Largest per-channel AGC envelope
	CurrentGain               float64 // Analog level / 128
}

// defaultStatistics returns the snapshot of a freshly created processor.
func defaultStatistics() Statistics {
	return Statistics{
		EchoReturnLoss:            defaultEchoReturnLoss,
		EchoReturnLossEnhancement: defaultEchoReturnLossEnhancement,
		DelayMedianMs:             defaultDelayMedianMs,
		ResidualEchoLikelihood:    defaultResidualEchoLikelihood,
		CurrentGain:               1.0,
	}
}

// Map returns the statistics keyed by their legacy names.
func (s Statistics) Map() map[string]float64 {
	return map[string]float64{
		StatEchoReturnLoss:            s.EchoReturnLoss,
		StatEchoReturnLossEnhancement: s.EchoReturnLossEnhancement,
		StatDelayMedianMs:             float64(s.DelayMedianMs),
		StatResidualEchoLikelihood:    s.ResidualEchoLikelihood,
		StatAGCEnvelope:               s.AGCEnvelope,
		StatCurrentGain:               s.CurrentGain,
	}
}
