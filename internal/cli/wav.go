package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/opd-ai/apm"
)

// pcmStream is a decoded WAV file as interleaved float32 samples.
type pcmStream struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of interleaved frames.
func (s *pcmStream) Frames() int {
	return len(s.Samples) / s.Channels
}

// Block returns frames [start, start+count) clipped to the stream length.
func (s *pcmStream) Block(start, count int) []float32 {
	if start >= s.Frames() {
		return nil
	}
	end := start + count
	if end > s.Frames() {
		end = s.Frames()
	}
	return s.Samples[start*s.Channels : end*s.Channels]
}

// getAudioDivisor returns the full-scale value for a PCM bit depth.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

// readWAV decodes a whole PCM WAV file.
func readWAV(path string) (*pcmStream, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.New("input is not a valid WAV audio file")
	}

	divisor, err := getAudioDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / divisor
	}

	return &pcmStream{
		Samples:    samples,
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
	}, nil
}

// wavFile is the destination of an encoded WAV stream. The encoder seeks back
// to patch the header sizes.
type wavFile interface {
	io.WriteSeeker
	io.Closer
}

// writeWAV encodes interleaved float32 samples as a 16-bit PCM WAV file.
func writeWAV(path string, s *pcmStream) error {
	outFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return encodeWAV(outFile, s)
}

// encodeWAV writes s to out and closes it. A close failure is returned when
// encoding itself succeeded.
func encodeWAV(out wavFile, s *pcmStream) (err error) {
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close WAV file: %w", cerr)
		}
	}()

	enc := wav.NewEncoder(out, s.SampleRate, 16, s.Channels, 1)

	pcm := apm.Float32ToInt16(s.Samples)
	data := make([]int, len(pcm))
	for i, v := range pcm {
		data[i] = int(v)
	}

	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: s.SampleRate, NumChannels: s.Channels},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}

	return enc.Close()
}
