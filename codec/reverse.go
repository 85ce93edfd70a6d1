// Package codec decodes far-end Opus audio into the processor's reverse path.
//
// In a VoIP call the render stream arrives as Opus packets. ReverseDecoder
// decodes each packet with the pure Go pion/opus decoder and records the
// result as the echo reference:
//
//	p := apm.New()
//	rd := codec.NewReverseDecoder(p)
//	for packet := range incoming {
//		if _, err := rd.Feed(packet); err != nil {
//			log.Printf("dropping packet: %v", err)
//		}
//	}
package codec

import (
	"fmt"
	"time"

	"github.com/opd-ai/apm"
	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// DecodedSampleRate is the rate of the PCM produced by the decoder.
const DecodedSampleRate = apm.SampleRate48000

// maxPacketDuration is the longest duration a single Opus packet may carry.
const maxPacketDuration = 120 * time.Millisecond

// ReverseDecoder decodes Opus packets and feeds them to a Processor's
// reverse stream. It is not safe for concurrent use.
type ReverseDecoder struct {
	decoder   *opus.Decoder
	processor *apm.Processor
	output    []byte
}

// NewReverseDecoder creates a decoder feeding p.
func NewReverseDecoder(p *apm.Processor) *ReverseDecoder {
	dec := opus.NewDecoder()
	d := &ReverseDecoder{
		decoder:   &dec,
		processor: p,
		output:    make([]byte, samplesFor(maxPacketDuration)*2),
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewReverseDecoder",
		"sample_rate": DecodedSampleRate,
		"buffer_size": len(d.output),
	}).Info("Reverse decoder created")

	return d
}

// Decode decodes one packet into mono float32 PCM at DecodedSampleRate.
func (d *ReverseDecoder) Decode(packet []byte) ([]float32, error) {
	duration, err := PacketDuration(packet)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "ReverseDecoder.Decode",
			"data_size": len(packet),
			"error":     err.Error(),
		}).Error("Packet validation failed")
		return nil, err
	}

	bandwidth, isStereo, err := d.decoder.Decode(packet, d.output)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ReverseDecoder.Decode",
			"error":    err.Error(),
		}).Error("Opus decode failed")
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	count := samplesFor(duration)
	pcm := make([]int16, count)
	for i := range pcm {
		pcm[i] = int16(d.output[i*2]) | int16(d.output[i*2+1])<<8
	}

	logrus.WithFields(logrus.Fields{
		"function":  "ReverseDecoder.Decode",
		"bandwidth": bandwidth.String(),
		"is_stereo": isStereo,
		"duration":  duration,
		"samples":   count,
	}).Debug("Opus packet decoded")

	return apm.Int16ToFloat32(pcm), nil
}

// Feed decodes one packet and records it on the processor's reverse stream.
// It returns the number of samples recorded.
func (d *ReverseDecoder) Feed(packet []byte) (int, error) {
	samples, err := d.Decode(packet)
	if err != nil {
		return 0, err
	}
	if _, err := d.processor.ProcessReverseStream(apm.MonoBuffer(samples), DecodedSampleRate, 1); err != nil {
		return 0, err
	}
	return len(samples), nil
}

// samplesFor returns the number of samples in duration at DecodedSampleRate.
func samplesFor(duration time.Duration) int {
	return int(duration * DecodedSampleRate / time.Second)
}

// PacketDuration returns the audio duration carried by an Opus packet, read
// from its TOC byte and, for code 3 packets, its frame count byte.
func PacketDuration(packet []byte) (time.Duration, error) {
	if len(packet) == 0 {
		return 0, ErrEmptyPacket
	}

	toc := packet[0]
	frame := frameDuration(toc >> 3)

	var frames int
	switch toc & 0x03 {
	case 0:
		frames = 1
	case 1, 2:
		frames = 2
	case 3:
		if len(packet) < 2 {
			return 0, fmt.Errorf("%w: code 3 packet without frame count", ErrMalformedPacket)
		}
		frames = int(packet[1] & 0x3F)
		if frames == 0 {
			return 0, fmt.Errorf("%w: zero frame count", ErrMalformedPacket)
		}
	}

	total := time.Duration(frames) * frame
	if total > maxPacketDuration {
		return 0, fmt.Errorf("%w: %v exceeds %v", ErrMalformedPacket, total, maxPacketDuration)
	}
	return total, nil
}

// frameDuration maps a TOC configuration number to its frame duration.
func frameDuration(config byte) time.Duration {
	switch {
	case config < 12: // SILK-only
		return [...]time.Duration{10, 20, 40, 60}[config%4] * time.Millisecond
	case config < 16: // Hybrid
		return [...]time.Duration{10, 20}[config%2] * time.Millisecond
	default: // CELT-only
		return [...]time.Duration{2500, 5000, 10000, 20000}[config%4] * time.Microsecond
	}
}
