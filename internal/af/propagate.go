package af

import "fmt"

// hasOutputFrame reports whether f has a queued output frame.
func (f *FilterInstance) hasOutputFrame() bool {
	return len(f.OutQueue) > 0
}

// dequeueOutputFrame pops and returns the oldest queued frame, or nil.
func (f *FilterInstance) dequeueOutputFrame() *Frame {
	if len(f.OutQueue) == 0 {
		return nil
	}
	fr := f.OutQueue[0]
	f.OutQueue[0] = nil
	f.OutQueue = f.OutQueue[1:]
	return fr
}

// readRemaining drains a filter's FilterOut callback until it stops
// producing frames or errors. Used once a filter has seen EOF and may
// still be holding buffered samples (spec.md §4.D).
func (f *FilterInstance) readRemaining() error {
	for {
		before := len(f.OutQueue)
		if err := f.doFilterOut(); err != nil {
			return &FilterRuntimeError{Name: filterTag(f), Err: err}
		}
		if len(f.OutQueue) == before {
			return nil
		}
	}
	return nil
}

// OutputFrame is the chain's pull primitive: it asks the tail sentinel
// for its next frame, recursively pulling from upstream filters as
// needed. eof signals that no more new source data will ever arrive —
// filters must flush buffered state and emit trailing frames instead
// of waiting for more input (spec.md §4.D). Returns (nil, nil) once the
// chain is fully drained.
func (c *Chain) OutputFrame(eof bool) (*Frame, error) {
	return c.outputFrameFrom(c.last, eof)
}

func (c *Chain) outputFrameFrom(f *FilterInstance, eof bool) (*Frame, error) {
	if fr := f.dequeueOutputFrame(); fr != nil {
		return fr, nil
	}
	if f == c.first {
		if !eof {
			return nil, nil
		}
		// Head sentinel has nothing left and we're draining: there is
		// no more source data to pull from above it.
		return nil, nil
	}

	upstream, err := c.outputFrameFrom(f.prev, eof)
	if err != nil {
		return nil, err
	}

	if upstream == nil {
		if !eof {
			return nil, nil
		}
		if err := f.readRemaining(); err != nil {
			return nil, err
		}
		if err := f.doFilterFrame(nil); err != nil {
			return nil, &FilterRuntimeError{Name: filterTag(f), Err: err}
		}
		return f.dequeueOutputFrame(), nil
	}

	if err := f.doFilterFrame(upstream); err != nil {
		return nil, &FilterRuntimeError{Name: filterTag(f), Err: err}
	}
	if fr := f.dequeueOutputFrame(); fr != nil {
		return fr, nil
	}
	// Filter consumed the frame without producing output yet (e.g. it's
	// buffering for a larger block); ask again.
	return c.outputFrameFrom(f, eof)
}

// FilterFrameIntoChain is the push primitive: it hands frame to the
// head sentinel, which enqueues it directly as the sentinel's own
// output (spec.md §4.D). Use OutputFrame afterwards to pull results.
func (c *Chain) FilterFrameIntoChain(frame *Frame) error {
	if !frame.Config.Equals(c.Input) {
		return fmt.Errorf("af: frame pushed into chain has config %s, chain expects input %s", frame.Config, c.Input)
	}
	return c.first.doFilterFrame(frame)
}

// UnreadOutputFrame pushes frame back onto the tail's output queue, to
// be returned again by the next OutputFrame call. Used by the
// coordinator when it pulled more data than it could write in one go
// (spec.md §4.F "partial AO write").
func (c *Chain) UnreadOutputFrame(frame *Frame) {
	if frame == nil {
		return
	}
	c.last.OutQueue = append([]*Frame{frame}, c.last.OutQueue...)
}

// CalcDelay sums the buffering delay (in seconds) contributed by every
// filter currently in the chain: each filter's own reported Delay plus
// the playback time represented by whatever it currently has queued,
// used by the coordinator to compute audio-output latency (spec.md
// §4.D, §4.F).
func (c *Chain) CalcDelay() float64 {
	var total float64
	for f := c.first; f != nil; f = f.next {
		total += f.Delay
		if f.FmtOut.Rate > 0 {
			var queued uint32
			for _, fr := range f.OutQueue {
				queued += fr.Samples
			}
			total += float64(queued) / float64(f.FmtOut.Rate)
		}
	}
	return total
}
