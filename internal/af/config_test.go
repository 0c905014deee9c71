package af

import "testing"

func TestAudioConfigValid(t *testing.T) {
	cases := []struct {
		name string
		cfg  AudioConfig
		want bool
	}{
		{"zero value", AudioConfig{}, false},
		{"missing channels", AudioConfig{Format: FormatS16, Rate: 44100}, false},
		{"missing rate", AudioConfig{Format: FormatS16, Channels: Stereo}, false},
		{"fully specified", AudioConfig{Format: FormatS16, Channels: Stereo, Rate: 44100}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Valid(); got != tc.want {
				t.Fatalf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCopyUnsetFieldsFromOnlyFillsZeroFields(t *testing.T) {
	dst := AudioConfig{Format: FormatS16}
	src := AudioConfig{Format: FormatFloat, Channels: Stereo, Rate: 48000}
	dst.CopyUnsetFieldsFrom(src)

	if dst.Format != FormatS16 {
		t.Fatalf("already-set Format must not be overwritten, got %v", dst.Format)
	}
	if !dst.Channels.Equals(Stereo) {
		t.Fatalf("unset Channels should be copied from src")
	}
	if dst.Rate != 48000 {
		t.Fatalf("unset Rate should be copied from src, got %d", dst.Rate)
	}
}

func TestCopyUnsetFieldsFromIsIdempotent(t *testing.T) {
	dst := AudioConfig{Format: FormatS16, Channels: Stereo, Rate: 44100}
	before := dst
	dst.CopyUnsetFieldsFrom(AudioConfig{Format: FormatFloat, Channels: Mono, Rate: 48000})
	if dst != before {
		t.Fatalf("CopyUnsetFieldsFrom must be a no-op when every field is already set")
	}
}

func TestEqualsReorderedIgnoresChannelOrder(t *testing.T) {
	lr := NewChannelLayout(ChFL, ChFR)
	rl := NewChannelLayout(ChFR, ChFL)
	if lr.Equals(rl) {
		t.Fatalf("strict Equals should distinguish channel order")
	}
	if !lr.EqualsReordered(rl) {
		t.Fatalf("EqualsReordered should treat a pure reorder as equal")
	}
}

func TestSampleFormatSPDIFClassification(t *testing.T) {
	for _, f := range []SampleFormat{FormatSPDIFAC3, FormatSPDIFDTS, FormatSPDIFEAC3, FormatSPDIFTrueHD} {
		if !f.IsSPDIF() {
			t.Fatalf("%v should be classified as spdif", f)
		}
		if f.IsPCM() {
			t.Fatalf("%v should not be classified as PCM", f)
		}
	}
	if !FormatS16.IsPCM() || FormatS16.IsSPDIF() {
		t.Fatalf("s16 should be PCM, not spdif")
	}
}

func TestSampleAlignmentForPassthroughFormats(t *testing.T) {
	if SampleAlignment(FormatS16) != 1 {
		t.Fatalf("PCM formats should need no special alignment")
	}
	if SampleAlignment(FormatSPDIFDTS) != 512 {
		t.Fatalf("spdif-dts should require 512-sample alignment")
	}
}
