package coordinator

import "math"

// PTSJumpWarnThreshold and PTSJumpResetThreshold are the two drift
// bounds. getSyncSamples applies no correction to an audio/clock drift
// up to the warn threshold and requests a resync (a seek to the clock)
// beyond the reset threshold. classifyPTSJump applies the same bounds
// to a decoded frame's timestamp against the coordinator's running
// prediction; decodeAndPush logs a jump past the reset threshold and
// carries on without resetting playback, and does not log a warn-level
// jump (spec.md §9 supplemented feature, grounded on the original's
// audio.c pts-jump handling).
const (
	PTSJumpWarnThreshold  = 0.1 // seconds
	PTSJumpResetThreshold = 5.0 // seconds
)

// syncDecision is the outcome of comparing the audio clock to the
// external (video/system) clock at a fill boundary.
type syncDecision struct {
	// SkipSamples are silently dropped (we are ahead of sync).
	SkipSamples int
	// DuplicateSamples are re-emitted to stretch output (we are behind).
	DuplicateSamples int
	// Resync requests a hard seek-like resync because the drift
	// exceeds PTSJumpResetThreshold.
	Resync bool
}

// getSyncSamples computes the skip/duplicate correction needed to
// align audioPTS (the timestamp the next written sample will carry)
// with the external clock's externalPTS, at the chain's current output
// sample rate (spec.md §4.F "sync-sample computation").
func getSyncSamples(audioPTS, externalPTS float64, sampleRate int) syncDecision {
	drift := audioPTS - externalPTS
	adrift := math.Abs(drift)

	if adrift > PTSJumpResetThreshold {
		return syncDecision{Resync: true}
	}
	if adrift <= PTSJumpWarnThreshold || sampleRate <= 0 {
		return syncDecision{}
	}

	samples := int(math.Round(adrift * float64(sampleRate)))
	if drift > 0 {
		// Audio is ahead: drop samples to catch the clock up to it.
		return syncDecision{SkipSamples: samples}
	}
	return syncDecision{DuplicateSamples: samples}
}

// ptsJumpKind classifies a decoder-reported timestamp discontinuity
// against the coordinator's predicted next PTS (spec.md §9).
type ptsJumpKind int

const (
	ptsJumpNone ptsJumpKind = iota
	ptsJumpWarn
	ptsJumpReset
)

func classifyPTSJump(predicted, actual float64) ptsJumpKind {
	d := math.Abs(actual - predicted)
	switch {
	case d > PTSJumpResetThreshold:
		return ptsJumpReset
	case d > PTSJumpWarnThreshold:
		return ptsJumpWarn
	default:
		return ptsJumpNone
	}
}
