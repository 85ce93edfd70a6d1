package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/opd-ai/apm"
	"github.com/opd-ai/apm/backend/webrtc"
	"github.com/opd-ai/apm/internal/config"
	"github.com/opd-ai/apm/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ErrFormatMismatch indicates a reverse file whose sample rate differs from
// the capture file.
var ErrFormatMismatch = errors.New("reverse stream sample rate differs from capture stream")

type processFlags struct {
	in          string
	out         string
	reverse     string
	showMetrics bool
}

// processCommand creates the process command.
func processCommand(st *state) *cobra.Command {
	flags := &processFlags{}

	cmd := &cobra.Command{
		Use:   "process --in capture.wav --out clean.wav",
		Short: "Process a capture WAV file",
		Long: `Process a capture WAV or FLAC file in fixed-size blocks and write the result as
16-bit PCM. When --reverse is given, the matching block of the far-end file is
fed to the reverse stream before each capture block.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.OutOrStdout(), st.settings, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.in, "in", "i", "", "Capture (near-end) WAV or FLAC file")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Output WAV file")
	cmd.Flags().StringVarP(&flags.reverse, "reverse", "r", "", "Render (far-end) WAV or FLAC file used as the echo reference")
	cmd.Flags().BoolVar(&flags.showMetrics, "metrics", false, "Print a metrics summary after processing")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// newProcessor builds a processor for the configured engine.
func newProcessor(settings *config.Settings, observer apm.Observer) (*apm.Processor, error) {
	opts, err := settings.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, apm.WithObserver(observer))

	if settings.Processor.Engine == config.EngineWebRTC {
		engine, err := webrtc.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, apm.WithEngine(engine))
	}

	p := apm.New(opts...)
	if err := settings.APMConfig().ApplyTo(p); err != nil {
		return nil, err
	}
	return p, nil
}

func runProcess(w io.Writer, settings *config.Settings, flags *processFlags) error {
	capture, err := readAudio(flags.in)
	if err != nil {
		return err
	}

	var render *pcmStream
	if flags.reverse != "" {
		render, err = readAudio(flags.reverse)
		if err != nil {
			return err
		}
		if render.SampleRate != capture.SampleRate {
			return fmt.Errorf("%w: %d Hz vs %d Hz", ErrFormatMismatch, render.SampleRate, capture.SampleRate)
		}
	}

	blockFrames, err := settings.FrameSamples(capture.SampleRate)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.NewProcessorMetrics(registry)
	if err != nil {
		return err
	}
	p, err := newProcessor(settings, m)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":     "runProcess",
		"input":        flags.in,
		"sample_rate":  capture.SampleRate,
		"channels":     capture.Channels,
		"frames":       capture.Frames(),
		"block_frames": blockFrames,
		"engine":       p.Engine().Name(),
	}).Info("Processing capture file")

	output := make([]float32, 0, len(capture.Samples))
	for start := 0; start < capture.Frames(); start += blockFrames {
		if render != nil {
			if block := render.Block(start, blockFrames); len(block) > 0 {
				if _, err := p.ProcessReverseStream(apm.InterleavedBuffer(block, render.Channels), render.SampleRate, render.Channels); err != nil {
					return fmt.Errorf("reverse block at frame %d: %w", start, err)
				}
			}
		}

		block := capture.Block(start, blockFrames)
		out, err := p.ProcessStream(apm.InterleavedBuffer(block, capture.Channels), capture.SampleRate, capture.Channels)
		if err != nil {
			return fmt.Errorf("capture block at frame %d: %w", start, err)
		}
		output = append(output, out.Data...)
	}

	if err := writeWAV(flags.out, &pcmStream{Samples: output, SampleRate: capture.SampleRate, Channels: capture.Channels}); err != nil {
		return err
	}

	printStatistics(w, p.Statistics())
	if flags.showMetrics {
		lines, err := metrics.Summary(registry)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "metrics:")
		for _, l := range lines {
			fmt.Fprintf(w, "  %s %g\n", l.Name, l.Value)
		}
	}

	return nil
}

func printStatistics(w io.Writer, stats apm.Statistics) {
	values := stats.Map()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, "statistics:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %g\n", k, values[k])
	}
}
