package apm

import "time"

// Direction distinguishes the capture and render paths.
type Direction string

const (
	// DirectionForward is the near-end capture stream passed to ProcessStream.
	DirectionForward Direction = "forward"
	// DirectionReverse is the far-end render stream passed to ProcessReverseStream.
	DirectionReverse Direction = "reverse"
)

// Observer receives processing events from a Processor.
//
// Callbacks run synchronously on the caller's thread, after the call has
// finished mutating processor state. Implementations must not call back into
// the Processor.
type Observer interface {
	// ObserveFrame reports one processed buffer.
	ObserveFrame(direction Direction, samples, clipped int, elapsed time.Duration)
	// ObserveReconfigure reports a stream format change.
	ObserveReconfigure(format StreamFormat)
	// ObserveRejected reports a call that failed validation or processing.
	ObserveRejected(operation string, err error)
	// ObserveStatistics reports the statistics snapshot after each frame.
	ObserveStatistics(stats Statistics)
}

// nopObserver discards every event.
type nopObserver struct{}

func (nopObserver) ObserveFrame(Direction, int, int, time.Duration) {}
func (nopObserver) ObserveReconfigure(StreamFormat)                 {}
func (nopObserver) ObserveRejected(string, error)                   {}
func (nopObserver) ObserveStatistics(Statistics)                    {}
