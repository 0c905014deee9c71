// Package coordinator drives decoded audio through an af.Chain and out
// to an audio output device: sync-sample computation, skip/duplicate
// correction against a video clock, gapless transitions and state
// machine bookkeeping (spec.md §4.F).
package coordinator

import (
	"context"

	"github.com/linuxmatters/afchain/internal/af"
)

// Decoder supplies decoded audio frames with presentation timestamps.
// NextFrame returns (nil, 0, true, nil) at end of stream.
type Decoder interface {
	NextFrame(ctx context.Context) (frame *af.Frame, pts float64, eof bool, err error)
	// Seek discards any buffered state and resumes decoding at pts.
	Seek(ctx context.Context, pts float64) error
}

// Output is an audio device sink. Write accepts exactly the chain's
// negotiated output config; GetSpace reports how many sample frames
// can be written without blocking; GetDelay reports the device's
// internal buffering latency in seconds (spec.md §4.F).
type Output interface {
	Configure(cfg af.AudioConfig) error
	GetSpace() int
	Write(data af.PlanarBuffers, samples int) (int, error)
	GetDelay() float64
	Pause()
	Resume()
	Drain()
	Close() error
}
