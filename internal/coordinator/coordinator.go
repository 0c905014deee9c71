package coordinator

import (
	"context"
	"fmt"

	"github.com/linuxmatters/afchain/internal/af"
)

// Coordinator drives a Decoder through an af.Chain to an Output device,
// the single-threaded cooperative loop described by spec.md §4.F/§5:
// every call either makes progress or returns, there is no internal
// suspension point.
type Coordinator struct {
	chain *af.Chain
	dec   Decoder
	out   Output
	opts  Options
	log   af.Logger

	status Status

	// decoderRateScale implements the SpeedResample mechanism: it's
	// folded into the chain's declared Input.Rate so the auto-inserted
	// converter does the actual pitch-shifting resample.
	decoderRateScale float64

	nativeInput af.AudioConfig // the decoder's own, unscaled format

	writtenPTS float64 // pts of the next sample this coordinator will write
	predictedPTS float64
	eofFromDecoder bool
	eofFromChain   bool

	// skippedSamples and duplicatedSamples accumulate sync-correction
	// activity for status-line diagnostics (internal/logging.StatusLine).
	skippedSamples    int
	duplicatedSamples int

	// secondChanceAvailable records whether this track's one
	// second-chance resync after a drift past PTSJumpResetThreshold is
	// still unused (spec.md §9 supplemented feature, "second-chance
	// refresh seek"). It only selects which message is logged: both the
	// second-chance and every later resync seek to the external clock.
	// Reset on Start/SwitchTrack, not on every SeekTo.
	secondChanceAvailable bool
}

// WrittenPTS reports the presentation timestamp of the next sample this
// coordinator will hand to the output device.
func (c *Coordinator) WrittenPTS() float64 { return c.writtenPTS }

// Delay reports the total buffered playback latency: samples still
// queued inside the filter chain plus whatever the output device
// itself hasn't played yet (spec.md §4.D "delay accounting").
func (c *Coordinator) Delay() float64 {
	return c.chain.CalcDelay() + c.out.GetDelay()
}

// SyncCounters reports the cumulative sample counts this coordinator
// has skipped or duplicated for A/V sync correction since the last
// SeekTo (spec.md §4.F steps 7-8).
func (c *Coordinator) SyncCounters() (skipped, duplicated int) {
	return c.skippedSamples, c.duplicatedSamples
}

// Chain exposes the negotiated filter chain for diagnostics (e.g. a
// chain dump printed after a negotiation failure).
func (c *Coordinator) Chain() *af.Chain { return c.chain }

// New builds a Coordinator. nativeInput is the decoder's own audio
// format; the chain negotiates from there down to opts.Output.
func New(reg *af.Registry, dec Decoder, out Output, nativeInput af.AudioConfig, opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = af.NopLogger{}
	}
	return &Coordinator{
		chain:            af.New(reg, log),
		dec:              dec,
		out:              out,
		opts:             opts,
		log:              log,
		status:                StatusSyncing,
		decoderRateScale:      1.0,
		nativeInput:           nativeInput,
		secondChanceAvailable: true,
	}
}

// Status reports the coordinator's current state machine position.
func (c *Coordinator) Status() Status { return c.status }

// Start negotiates the chain for the first time and configures the
// output device, applying the initial volume/balance/speed from opts
// (spec.md §4.F lifecycle).
func (c *Coordinator) Start(ctx context.Context) error {
	c.chain.Input = scaledInput(c.nativeInput, c.decoderRateScale)
	c.chain.Output = c.opts.Output

	if err := c.chain.Init(nil); err != nil {
		return fmt.Errorf("coordinator: initial filter chain negotiation failed: %w", err)
	}
	if err := c.openOutput(); err != nil {
		return err
	}
	c.secondChanceAvailable = true

	// Speed goes first: under SpeedResample applySpeed rebuilds the chain
	// from scratch, which would drop filters installed before it.
	if c.opts.Speed != 1.0 {
		if err := c.applySpeed(c.opts.Speed); err != nil {
			return err
		}
	}
	if c.opts.Volume != 1.0 {
		if err := c.applyVolume(c.opts.Volume); err != nil {
			return err
		}
	}
	if c.opts.Balance != 0 {
		if err := c.applyBalance(c.opts.Balance); err != nil {
			return err
		}
	}
	if c.opts.HumNotch {
		if err := c.applyHumNotch(true); err != nil {
			return err
		}
	}

	c.status = StatusFilling
	return nil
}

func scaledInput(native af.AudioConfig, scale float64) af.AudioConfig {
	if scale == 1.0 {
		return native
	}
	scaled := native
	scaled.Rate = int(float64(native.Rate) * scale)
	return scaled
}

// reinitFiltersAndOutput tears the chain down and renegotiates it from
// scratch, used after a speed-via-resample change or a format-changing
// gapless track switch (spec.md §4.F, §4.G).
func (c *Coordinator) reinitFiltersAndOutput() error {
	c.chain.Uninit()
	c.chain.Input = scaledInput(c.nativeInput, c.decoderRateScale)
	if err := c.chain.Init(nil); err != nil {
		return fmt.Errorf("coordinator: filter chain re-negotiation failed: %w", err)
	}
	return c.openOutput()
}

// openOutput configures the output device for the chain's negotiated
// format, falling back to interleaved float PCM once if the device
// refuses an spdif passthrough format (spec.md §7 "AO open failure",
// §9 supplemented feature).
func (c *Coordinator) openOutput() error {
	fmtOut := c.chain.Last().FmtIn
	if err := c.out.Configure(fmtOut); err != nil {
		if !fmtOut.Format.IsSPDIF() || c.opts.Output.Format == af.FormatFloat {
			return fmt.Errorf("coordinator: output device refused negotiated format: %w", err)
		}
		c.log.Logf("coordinator: spdif output device open failed (%v), falling back to pcm", err)
		c.opts.Output.Format = af.FormatFloat
		c.chain.Uninit()
		c.chain.Input = scaledInput(c.nativeInput, c.decoderRateScale)
		c.chain.Output = c.opts.Output
		if err := c.chain.Init(nil); err != nil {
			return fmt.Errorf("coordinator: pcm fallback negotiation failed: %w", err)
		}
		if err := c.out.Configure(c.chain.Last().FmtIn); err != nil {
			return fmt.Errorf("coordinator: output device refused pcm fallback format: %w", err)
		}
	}
	return nil
}

// SwitchTrack reconfigures the coordinator for a new track's native
// decoder format, honouring opts.Gapless (spec.md §9 supplemented
// feature, GLOSSARY "Gapless"): GaplessNo always tears the chain down;
// GaplessWeak keeps it open and lets negotiation absorb any format
// difference; GaplessAuto (the default) only reinitialises when the
// new track's format actually differs from the previous one.
func (c *Coordinator) SwitchTrack(ctx context.Context, nativeInput af.AudioConfig) error {
	sameFormat := nativeInput.Equals(c.nativeInput)
	c.nativeInput = nativeInput
	c.secondChanceAvailable = true

	switch c.opts.Gapless {
	case GaplessNo:
		return c.reinitFiltersAndOutput()
	case GaplessWeak:
		if sameFormat {
			return nil
		}
		c.chain.Input = scaledInput(c.nativeInput, c.decoderRateScale)
		return c.chain.Reinit()
	default: // GaplessAuto
		if sameFormat {
			return nil
		}
		return c.reinitFiltersAndOutput()
	}
}

// SeekTo discards all buffered decoder/chain state and resumes decoding
// at pts, returning the coordinator to StatusSyncing (spec.md §4.F).
func (c *Coordinator) SeekTo(ctx context.Context, pts float64) error {
	if err := c.dec.Seek(ctx, pts); err != nil {
		return fmt.Errorf("coordinator: seek failed: %w", err)
	}
	c.chain.SeekReset()
	c.writtenPTS = pts
	c.predictedPTS = pts
	c.eofFromDecoder = false
	c.eofFromChain = false
	c.skippedSamples = 0
	c.duplicatedSamples = 0
	c.status = StatusSyncing
	return nil
}

// FillAudioOutBuffers is the coordinator's main loop (spec.md §4.F
// "fill_audio_out_buffers"): it tops up the output device until either
// the device has no more free space or the chain has nothing left to
// give, applying sync correction (skip/duplicate) against
// externalClockPTS along the way. Call it repeatedly from whatever
// drives the player's event loop; each call returns promptly.
func (c *Coordinator) FillAudioOutBuffers(ctx context.Context, externalClockPTS float64) error {
	if c.status == StatusEOF {
		return nil
	}

	space := c.out.GetSpace()
	wroteAny := false

	for space > 0 {
		frame, err := c.pullFrame(ctx)
		if err != nil {
			return err
		}
		if frame == nil {
			break
		}

		decision := getSyncSamples(c.writtenPTS, externalClockPTS, frame.Config.Rate)
		if decision.Resync {
			if c.secondChanceAvailable {
				c.secondChanceAvailable = false
				c.log.Logf("coordinator: audio/clock drift exceeded reset threshold, attempting second-chance seek")
			} else {
				c.log.Logf("coordinator: audio/clock drift exceeded reset threshold, hard resync")
			}
			if err := c.SeekTo(ctx, externalClockPTS); err != nil {
				return err
			}
			return nil
		}
		c.skippedSamples += min(decision.SkipSamples, int(frame.Samples))
		c.duplicatedSamples += decision.DuplicateSamples
		frame = applySyncCorrection(frame, decision)
		if frame.Samples == 0 {
			continue
		}

		n, err := c.out.Write(frame.Data, int(frame.Samples))
		if err != nil {
			return fmt.Errorf("coordinator: output write failed: %w", err)
		}
		wroteAny = true
		c.writtenPTS += float64(n) / float64(frame.Config.Rate)

		if n < int(frame.Samples) {
			// Partial write: requeue the remainder for next call.
			remainder := sliceFrame(frame, n)
			c.chain.UnreadOutputFrame(remainder)
			break
		}
		space = c.out.GetSpace()
	}

	c.advanceStatus(wroteAny)
	return nil
}

// pullFrame pulls one frame from the chain, decoding and pushing new
// source data as needed until the chain produces output or both the
// decoder and chain report EOF.
func (c *Coordinator) pullFrame(ctx context.Context) (*af.Frame, error) {
	for {
		frame, err := c.chain.OutputFrame(c.eofFromDecoder)
		if err != nil {
			return nil, fmt.Errorf("coordinator: %w", err)
		}
		if frame != nil {
			return frame, nil
		}
		if c.eofFromDecoder {
			c.eofFromChain = true
			return nil, nil
		}
		if err := c.decodeAndPush(ctx); err != nil {
			return nil, err
		}
	}
}

func (c *Coordinator) decodeAndPush(ctx context.Context) error {
	in, pts, eof, err := c.dec.NextFrame(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: decode failed: %w", err)
	}
	if eof {
		c.eofFromDecoder = true
		return nil
	}

	if kind := classifyPTSJump(c.predictedPTS, pts); kind == ptsJumpReset {
		c.log.Logf("coordinator: decoder pts jumped from %.3f to %.3f, resetting prediction", c.predictedPTS, pts)
	}
	c.predictedPTS = pts + in.Duration()

	// Re-tag the frame to the chain's declared input rate. Under
	// SpeedResample these differ by decoderRateScale; the auto-inserted
	// converter does the actual pitch-shifting resample by treating
	// these samples as though they arrived at the scaled rate (spec.md
	// §4.G SET_PLAYBACK_SPEED_RESAMPLE). FilterFrameIntoChain requires an
	// exact match against chain.Input, so this must happen before the
	// push, not after.
	in.Config.Rate = c.chain.Input.Rate

	return c.chain.FilterFrameIntoChain(in)
}

func applySyncCorrection(frame *af.Frame, d syncDecision) *af.Frame {
	if d.SkipSamples > 0 {
		return sliceFrame(frame, min(d.SkipSamples, int(frame.Samples)))
	}
	if d.DuplicateSamples > 0 {
		return duplicateTail(frame, d.DuplicateSamples)
	}
	return frame
}

// sliceFrame drops the first n sample frames worth of data from every
// plane, used both for sync-skip and for partial-write remainders.
func sliceFrame(frame *af.Frame, n int) *af.Frame {
	if n <= 0 {
		return frame
	}
	bytesPerSample := bytesPerSample(frame.Config)
	out := *frame
	out.Samples = frame.Samples - uint32(n)
	out.Data = make(af.PlanarBuffers, len(frame.Data))
	for i, plane := range frame.Data {
		off := n * bytesPerSample
		if off > len(plane) {
			off = len(plane)
		}
		out.Data[i] = plane[off:]
	}
	if frame.PTS != nil {
		shifted := *frame.PTS + float64(n)/float64(frame.Config.Rate)
		out.PTS = &shifted
	}
	return &out
}

// duplicateTail repeats the frame's last sample n times, appended, to
// stretch output when audio is lagging the external clock.
func duplicateTail(frame *af.Frame, n int) *af.Frame {
	if frame.Samples == 0 {
		return frame
	}
	bytesPerSample := bytesPerSample(frame.Config)
	out := *frame
	out.Samples = frame.Samples + uint32(n)
	out.Data = make(af.PlanarBuffers, len(frame.Data))
	for i, plane := range frame.Data {
		tail := plane[len(plane)-bytesPerSample:]
		grown := make([]byte, len(plane)+n*bytesPerSample)
		copy(grown, plane)
		for s := 0; s < n; s++ {
			copy(grown[len(plane)+s*bytesPerSample:], tail)
		}
		out.Data[i] = grown
	}
	return &out
}

func bytesPerSample(cfg af.AudioConfig) int {
	per := 1
	switch cfg.Format {
	case af.FormatU8:
		per = 1
	case af.FormatS16, af.FormatS16Planar:
		per = 2
	case af.FormatS32, af.FormatFloat, af.FormatS32Planar, af.FormatFloatPlanar:
		per = 4
	case af.FormatDouble, af.FormatDoublePlanar:
		per = 8
	}
	if !cfg.Format.IsPlanar() {
		per *= cfg.Channels.NumChannels()
	}
	return per
}

func (c *Coordinator) advanceStatus(wroteAny bool) {
	if c.eofFromChain {
		if c.status == StatusDraining && c.out.GetDelay() <= 0 {
			c.status = StatusEOF
		} else if c.status != StatusEOF {
			c.status = StatusDraining
		}
		return
	}

	switch c.status {
	case StatusSyncing:
		if wroteAny {
			c.status = StatusFilling
		}
	case StatusFilling:
		if c.out.GetSpace() == 0 {
			c.status = StatusReady
		}
	case StatusReady:
		c.status = StatusPlaying
	}
}
