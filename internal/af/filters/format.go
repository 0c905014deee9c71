// Package filters supplies the built-in catalogue of audio filters: the
// pure-Go stages (format, volume, pan), the FFmpeg-graph-backed
// scaletempo (atempo) and automatic resampler (aresample), plus the
// lavfi bridge that routes anything else into an FFmpeg filter graph.
package filters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/linuxmatters/afchain/internal/af"
)

// formatPriv holds the user-requested axes for the "format" filter. A
// zero field on an axis means "don't care, inherit from upstream",
// exactly like AudioConfig.CopyUnsetFieldsFrom (spec.md §4.A, §6).
type formatPriv struct {
	format   af.SampleFormat
	channels af.ChannelLayout
	rate     int
}

// Format returns the descriptor for the "format" filter, aliased as
// "force" (spec.md §4.A, §6): it forces sample representation, channel
// layout and/or rate onto the chain at the point it's inserted.
func Format() *af.Descriptor {
	return &af.Descriptor{
		Name:        "format",
		Description: "force a sample format, channel layout or sample rate",
		NewPrivate:  func() any { return &formatPriv{} },
		ParseArgs:   parseFormatArgs,
		Factory: func() af.Callbacks {
			return af.Callbacks{
				Control:     formatControl,
				FilterFrame: passthroughFilterFrame,
			}
		},
	}
}

func parseFormatArgs(priv any, args []af.KV) error {
	p := priv.(*formatPriv)
	for _, kv := range args {
		switch kv.Key {
		case "format":
			f, err := ParseSampleFormat(kv.Value)
			if err != nil {
				return err
			}
			p.format = f
		case "channels":
			ch, err := ParseChannelLayout(kv.Value)
			if err != nil {
				return err
			}
			p.channels = ch
		case "srate":
			rate, err := strconv.Atoi(kv.Value)
			if err != nil {
				return fmt.Errorf("invalid srate %q: %w", kv.Value, err)
			}
			p.rate = rate
		default:
			return fmt.Errorf("format: unknown option %q", kv.Key)
		}
	}
	return nil
}

// formatControl is a pure assertion filter: it forces whichever axes
// (format/channels/rate) were given as filter args, demanding that
// exact combination as its input and leaving the actual conversion
// work to whatever auto-inserted converter negotiation interposes
// upstream of it (spec.md §4.C).
func formatControl(f *af.FilterInstance, cmd af.ControlCommand, arg any) af.Result {
	if cmd != af.CmdReinit {
		return af.ResultUnknown
	}
	p := f.Priv.(*formatPriv)
	in := arg.(*af.AudioConfig)

	want := af.AudioConfig{Format: p.format, Channels: p.channels, Rate: p.rate}
	want.CopyUnsetFieldsFrom(*in)

	if want.Equals(*in) {
		return af.ResultOK
	}

	*in = want
	return af.ResultFalse
}

// passthroughFilterFrame re-tags a frame with f.FmtOut without touching
// its sample data; used by filters whose negotiation phase is the only
// thing that ever does work (format).
func passthroughFilterFrame(f *af.FilterInstance, frame *af.Frame) error {
	if frame == nil {
		return nil
	}
	out := *frame
	out.Config = f.FmtOut
	f.AddOutputFrame(&out)
	return nil
}

// ParseSampleFormat maps filter-syntax format names (spec.md §6) to
// SampleFormat.
func ParseSampleFormat(s string) (af.SampleFormat, error) {
	switch strings.ToLower(s) {
	case "u8":
		return af.FormatU8, nil
	case "s16":
		return af.FormatS16, nil
	case "s32":
		return af.FormatS32, nil
	case "float", "flt":
		return af.FormatFloat, nil
	case "double", "dbl":
		return af.FormatDouble, nil
	case "s16p":
		return af.FormatS16Planar, nil
	case "s32p":
		return af.FormatS32Planar, nil
	case "floatp", "fltp":
		return af.FormatFloatPlanar, nil
	case "doublep", "dblp":
		return af.FormatDoublePlanar, nil
	default:
		return af.FormatUnknown, fmt.Errorf("unknown sample format %q", s)
	}
}

// ParseChannelLayout maps filter-syntax channel layout names (spec.md
// §6) to a ChannelLayout. Only the small set of layouts this engine's
// built-ins care about is recognised; any other name is rejected with
// an error.
func ParseChannelLayout(s string) (af.ChannelLayout, error) {
	switch strings.ToLower(s) {
	case "mono", "1", "1c":
		return af.Mono, nil
	case "stereo", "2", "2c":
		return af.Stereo, nil
	case "5.1", "6c", "surround51":
		return af.Surround51, nil
	default:
		return af.ChannelLayout{}, fmt.Errorf("unknown channel layout %q", s)
	}
}
