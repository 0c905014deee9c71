// Package af implements the audio filter chain engine: a bidirectionally
// linked pipeline of processing stages that negotiates a common sample
// format, channel layout and rate from source to sink.
package af

import "fmt"

// SampleFormat enumerates the sample representations a Frame can carry.
// It distinguishes PCM variants, planar vs. interleaved layout, and the
// compressed passthrough ("spdif") family, which must flow through the
// chain bit-exact.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatU8
	FormatS16
	FormatS32
	FormatFloat
	FormatDouble
	FormatS16Planar
	FormatS32Planar
	FormatFloatPlanar
	FormatDoublePlanar
	// FormatSPDIFAC3 and friends are compressed passthrough formats: no
	// filter may transform them, they only flow bit-exact to the AO.
	FormatSPDIFAC3
	FormatSPDIFDTS
	FormatSPDIFEAC3
	FormatSPDIFTrueHD
)

func (f SampleFormat) String() string {
	switch f {
	case FormatUnknown:
		return "unknown"
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16"
	case FormatS32:
		return "s32"
	case FormatFloat:
		return "flt"
	case FormatDouble:
		return "dbl"
	case FormatS16Planar:
		return "s16p"
	case FormatS32Planar:
		return "s32p"
	case FormatFloatPlanar:
		return "fltp"
	case FormatDoublePlanar:
		return "dblp"
	case FormatSPDIFAC3:
		return "spdif-ac3"
	case FormatSPDIFDTS:
		return "spdif-dts"
	case FormatSPDIFEAC3:
		return "spdif-eac3"
	case FormatSPDIFTrueHD:
		return "spdif-truehd"
	default:
		return "invalid"
	}
}

// IsSPDIF reports whether fmt is a compressed passthrough format. Total
// over the declared enum; unknown values are not spdif.
func (f SampleFormat) IsSPDIF() bool {
	switch f {
	case FormatSPDIFAC3, FormatSPDIFDTS, FormatSPDIFEAC3, FormatSPDIFTrueHD:
		return true
	default:
		return false
	}
}

// IsPCM reports whether fmt is an uncompressed PCM format.
func (f SampleFormat) IsPCM() bool {
	return f != FormatUnknown && !f.IsSPDIF()
}

// IsPlanar reports whether samples of this format are stored one buffer
// per channel, rather than interleaved.
func (f SampleFormat) IsPlanar() bool {
	switch f {
	case FormatS16Planar, FormatS32Planar, FormatFloatPlanar, FormatDoublePlanar:
		return true
	default:
		return false
	}
}

// SampleAlignment returns the sample-count alignment an AO write must
// respect for fmt. Compressed formats generally require a larger block
// alignment than PCM; PCM formats need none.
func SampleAlignment(f SampleFormat) int {
	switch f {
	case FormatSPDIFAC3, FormatSPDIFEAC3:
		return 1536
	case FormatSPDIFDTS:
		return 512
	case FormatSPDIFTrueHD:
		return 61440
	default:
		return 1
	}
}

// ChannelLayout identifies a fixed arrangement of audio channels. It is
// stored as a small comparable value (not a slice) so AudioConfig stays
// usable with ==.
type ChannelLayout struct {
	// n is the channel count; ids holds up to maxChannels channel
	// identifiers, interned in layout order.
	n   int
	ids [maxChannels]ChannelID
}

// maxChannels bounds the channel layouts this engine negotiates over;
// it comfortably covers anything beyond 7.1 surround.
const maxChannels = 16

// ChannelID names one loudspeaker position.
type ChannelID int

const (
	ChUnknown ChannelID = iota
	ChFL
	ChFR
	ChFC
	ChLFE
	ChBL
	ChBR
	ChSL
	ChSR
)

// NewChannelLayout builds a layout from an ordered list of channel IDs.
func NewChannelLayout(ids ...ChannelID) ChannelLayout {
	var l ChannelLayout
	l.n = len(ids)
	if l.n > maxChannels {
		l.n = maxChannels
	}
	copy(l.ids[:l.n], ids)
	return l
}

// Mono, Stereo and Surround51 are the layouts this engine's built-in
// filters and tests reach for most often.
var (
	Mono      = NewChannelLayout(ChFC)
	Stereo    = NewChannelLayout(ChFL, ChFR)
	Surround51 = NewChannelLayout(ChFL, ChFR, ChFC, ChLFE, ChBL, ChBR)
)

// NumChannels reports the channel count of the layout.
func (l ChannelLayout) NumChannels() int { return l.n }

// Empty reports whether the layout carries no channels.
func (l ChannelLayout) Empty() bool { return l.n == 0 }

// Equals is strict, order-sensitive equality (== already gives this for
// the comparable struct, but the method documents intent at call sites).
func (l ChannelLayout) Equals(o ChannelLayout) bool { return l == o }

// EqualsReordered reports whether l and o contain the same multiset of
// channel IDs regardless of order — used to detect "this is just a
// channel-order conversion, not a downmix/upmix" (spec.md §3).
func (l ChannelLayout) EqualsReordered(o ChannelLayout) bool {
	if l.n != o.n {
		return false
	}
	var used [maxChannels]bool
	for i := 0; i < l.n; i++ {
		found := false
		for j := 0; j < o.n; j++ {
			if !used[j] && l.ids[i] == o.ids[j] {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (l ChannelLayout) String() string {
	if l.n == 0 {
		return "none"
	}
	s := ""
	for i := 0; i < l.n; i++ {
		if i > 0 {
			s += "+"
		}
		s += fmt.Sprintf("%d", l.ids[i])
	}
	return s
}

// AudioConfig is the immutable description of a PCM or passthrough
// audio buffer: the format+channels+rate triple every filter negotiates
// over (spec.md §3).
type AudioConfig struct {
	Format   SampleFormat
	Channels ChannelLayout
	Rate     int
}

// Valid is the validity predicate from spec.md §3.
func (c AudioConfig) Valid() bool {
	return c.Format != FormatUnknown && !c.Channels.Empty() && c.Rate > 0
}

// Equals is strict equality: format, channel order and rate must all
// match exactly.
func (c AudioConfig) Equals(o AudioConfig) bool {
	return c.Format == o.Format && c.Channels.Equals(o.Channels) && c.Rate == o.Rate
}

// EqualsReordered relaxes Channels to multiset equality; used by the
// negotiation heuristic that detects a pure channel-reorder filter.
func (c AudioConfig) EqualsReordered(o AudioConfig) bool {
	return c.Format == o.Format && c.Channels.EqualsReordered(o.Channels) && c.Rate == o.Rate
}

// CopyUnsetFieldsFrom fills any UNKNOWN/zero field of c from src, leaving
// already-set fields untouched. This is the mechanism by which a caller
// says "I don't care about this axis" (spec.md §4.C).
func (c *AudioConfig) CopyUnsetFieldsFrom(src AudioConfig) {
	if c.Format == FormatUnknown {
		c.Format = src.Format
	}
	if c.Channels.Empty() {
		c.Channels = src.Channels
	}
	if c.Rate == 0 {
		c.Rate = src.Rate
	}
}

// String renders a short human-readable form, e.g. "48000Hz 2ch s16",
// for chain-dump diagnostics.
func (c AudioConfig) String() string {
	return fmt.Sprintf("%dHz %dch %s", c.Rate, c.Channels.NumChannels(), c.Format)
}
