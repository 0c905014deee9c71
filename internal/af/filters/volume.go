package filters

import (
	"fmt"
	"math"
	"strconv"

	"github.com/linuxmatters/afchain/internal/af"
)

// volumePriv holds the linear gain applied by the "volume" filter. Gain
// is linear, not dB, matching the CmdSetVolume contract (spec.md §4.G).
type volumePriv struct {
	gain float64
}

// Volume returns the descriptor for the well-known "volume" filter the
// volume policy inserts by label (spec.md §4.G). It is a software gain
// stage: negotiation is pure passthrough, only PCM sample values change.
func Volume() *af.Descriptor {
	return &af.Descriptor{
		Name:        "volume",
		Description: "apply a linear gain factor to PCM samples",
		NewPrivate:  func() any { return &volumePriv{gain: 1.0} },
		ParseArgs:   parseVolumeArgs,
		Factory: func() af.Callbacks {
			return af.Callbacks{
				Control:     volumeControl,
				FilterFrame: volumeFilterFrame,
			}
		},
	}
}

func parseVolumeArgs(priv any, args []af.KV) error {
	p := priv.(*volumePriv)
	for _, kv := range args {
		if kv.Key != "volume" && kv.Key != "" {
			return fmt.Errorf("volume: unknown option %q", kv.Key)
		}
		g, err := strconv.ParseFloat(kv.Value, 64)
		if err != nil {
			return fmt.Errorf("volume: invalid gain %q: %w", kv.Value, err)
		}
		p.gain = g
	}
	return nil
}

func volumeControl(f *af.FilterInstance, cmd af.ControlCommand, arg any) af.Result {
	p := f.Priv.(*volumePriv)
	switch cmd {
	case af.CmdReinit:
		in := arg.(*af.AudioConfig)
		if in.Format.IsSPDIF() {
			// Gain has no meaning on a compressed bitstream; ask for PCM
			// instead of failing outright so negotiation can drop this
			// filter and fall back to a bit-exact passthrough chain.
			in.Format = af.FormatFloat
			return af.ResultFalse
		}
		return af.ResultOK
	case af.CmdSetVolume:
		p.gain = *arg.(*float64)
		return af.ResultOK
	default:
		return af.ResultUnknown
	}
}

// volumeFilterFrame scales every sample in place. Only the float/float
// planar representations are scaled arithmetically here; frames in
// other PCM formats pass through with their samples unchanged, since
// correct integer gain needs per-format clipping this engine doesn't
// special-case.
func volumeFilterFrame(f *af.FilterInstance, frame *af.Frame) error {
	if frame == nil {
		return nil
	}
	p := f.Priv.(*volumePriv)
	if p.gain != 1.0 && (frame.Config.Format == af.FormatFloat || frame.Config.Format == af.FormatFloatPlanar) {
		scaleFloat32Samples(frame, p.gain)
	}
	out := *frame
	out.Config = f.FmtOut
	f.AddOutputFrame(&out)
	return nil
}

func scaleFloat32Samples(frame *af.Frame, gain float64) {
	g := float32(gain)
	for _, plane := range frame.Data {
		n := len(plane) / 4
		for s := 0; s < n; s++ {
			off := s * 4
			bits := uint32(plane[off]) | uint32(plane[off+1])<<8 | uint32(plane[off+2])<<16 | uint32(plane[off+3])<<24
			v := math.Float32frombits(bits) * g
			bits = math.Float32bits(v)
			plane[off] = byte(bits)
			plane[off+1] = byte(bits >> 8)
			plane[off+2] = byte(bits >> 16)
			plane[off+3] = byte(bits >> 24)
		}
	}
}
