package coordinator

import "testing"

func TestGetSyncSamplesNoCorrectionWithinWarnThreshold(t *testing.T) {
	d := getSyncSamples(10.0, 10.1, 48000)
	if d.SkipSamples != 0 || d.DuplicateSamples != 0 || d.Resync {
		t.Fatalf("expected no correction for drift inside the warn threshold, got %+v", d)
	}
}

func TestGetSyncSamplesSkipsWhenAudioAhead(t *testing.T) {
	d := getSyncSamples(11.0, 10.0, 48000)
	if d.SkipSamples <= 0 {
		t.Fatalf("expected a positive skip count when audio leads the clock, got %+v", d)
	}
	if d.DuplicateSamples != 0 || d.Resync {
		t.Fatalf("did not expect duplicate/resync alongside a skip, got %+v", d)
	}
}

func TestGetSyncSamplesDuplicatesWhenAudioBehind(t *testing.T) {
	d := getSyncSamples(9.0, 10.0, 48000)
	if d.DuplicateSamples <= 0 {
		t.Fatalf("expected a positive duplicate count when audio lags the clock, got %+v", d)
	}
}

func TestGetSyncSamplesResyncsPastResetThreshold(t *testing.T) {
	d := getSyncSamples(100.0, 10.0, 48000)
	if !d.Resync {
		t.Fatalf("expected Resync for drift far beyond the reset threshold")
	}
	if d.SkipSamples != 0 || d.DuplicateSamples != 0 {
		t.Fatalf("Resync should not also request skip/duplicate, got %+v", d)
	}
}

func TestClassifyPTSJump(t *testing.T) {
	if classifyPTSJump(10.0, 10.1) != ptsJumpNone {
		t.Fatalf("small drift should classify as none")
	}
	if classifyPTSJump(10.0, 11.0) != ptsJumpWarn {
		t.Fatalf("moderate drift should classify as warn")
	}
	if classifyPTSJump(10.0, 20.0) != ptsJumpReset {
		t.Fatalf("large drift should classify as reset")
	}
}
