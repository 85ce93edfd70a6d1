package apm

// Int16ToFloat32 converts 16-bit PCM to float32 samples in [-1, 1).
func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Float32ToInt16 converts float32 samples to 16-bit PCM, clamping to the
// int16 range.
func Float32ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		scaled := s * 32767.0
		switch {
		case scaled > 32767.0:
			out[i] = 32767
		case scaled < -32768.0:
			out[i] = -32768
		default:
			out[i] = int16(scaled)
		}
	}
	return out
}
