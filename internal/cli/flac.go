package cli

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/flac"
)

// readAudio decodes path as FLAC when it has a .flac extension and as WAV
// otherwise.
func readAudio(path string) (*pcmStream, error) {
	if strings.EqualFold(filepath.Ext(path), ".flac") {
		return readFLAC(path)
	}
	return readWAV(path)
}

// readFLAC decodes a whole FLAC file.
func readFLAC(path string) (*pcmStream, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read FLAC header of %s: %w", path, err)
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, err
	}

	var samples []float32
	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		samples = append(samples, flacSamples(frame, decoder.BitsPerSample, divisor)...)
	}

	return &pcmStream{
		Samples:    samples,
		SampleRate: decoder.SampleRate,
		Channels:   decoder.NChannels,
	}, nil
}

// flacSamples converts one decoded frame of interleaved little-endian PCM to
// float32. A trailing partial sample is dropped.
func flacSamples(frame []byte, bitsPerSample int, divisor float32) []float32 {
	width := bitsPerSample / 8
	out := make([]float32, 0, len(frame)/width)
	for i := 0; i+width <= len(frame); i += width {
		var sample int32
		switch bitsPerSample {
		case 16:
			sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
		case 24:
			sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(int8(frame[i+2]))<<16
		case 32:
			sample = int32(binary.LittleEndian.Uint32(frame[i:]))
		}
		out = append(out, float32(sample)/divisor)
	}
	return out
}
