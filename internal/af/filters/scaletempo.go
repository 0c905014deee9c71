package filters

import (
	"strconv"

	"github.com/linuxmatters/afchain/internal/af"
)

// scaletempoPriv backs the "scaletempo" filter, the well-known filter
// the speed policy inserts by label for the tempo-preserving-pitch path
// (spec.md §4.G): CmdSetPlaybackSpeed changes tempo without retuning
// pitch, as opposed to CmdSetPlaybackSpeedResample; the speed policy
// realises the resample path by scaling the chain's declared input
// rate and never touches this filter.
type scaletempoPriv struct {
	speed float64
	graph *lavfiGraph
}

// Scaletempo returns the descriptor for "scaletempo". It is a thin
// wrapper over FFmpeg's "atempo" lavfi filter, rebuilt whenever speed
// changes since atempo's ratio is fixed for the life of a filter graph.
func Scaletempo() *af.Descriptor {
	return &af.Descriptor{
		Name:        "scaletempo",
		Description: "change playback tempo without changing pitch",
		NewPrivate:  func() any { return &scaletempoPriv{speed: 1.0} },
		ParseArgs:   parseScaletempoArgs,
		Factory: func() af.Callbacks {
			return af.Callbacks{
				Control:     scaletempoControl,
				FilterFrame: scaletempoFilterFrame,
				FilterOut:   scaletempoFilterOut,
				Uninit:      scaletempoUninit,
			}
		},
	}
}

func parseScaletempoArgs(priv any, args []af.KV) error {
	p := priv.(*scaletempoPriv)
	for _, kv := range args {
		if kv.Key == "speed" || kv.Key == "" {
			if v, err := strconv.ParseFloat(kv.Value, 64); err == nil {
				p.speed = v
			}
		}
	}
	return nil
}

func scaletempoControl(f *af.FilterInstance, cmd af.ControlCommand, arg any) af.Result {
	p := f.Priv.(*scaletempoPriv)
	switch cmd {
	case af.CmdReinit:
		in := arg.(*af.AudioConfig)
		if in.Format.IsSPDIF() {
			// atempo cannot run on a compressed bitstream; ask for PCM
			// instead of failing outright so negotiation can drop this
			// filter and fall back to a bit-exact passthrough chain.
			in.Format = af.FormatFloat
			return af.ResultFalse
		}
		if p.graph != nil {
			p.graph.close()
			p.graph = nil
		}
		return af.ResultOK
	case af.CmdSetPlaybackSpeed:
		speed := *arg.(*float64)
		if speed != p.speed {
			p.speed = speed
			if p.graph != nil {
				p.graph.close()
				p.graph = nil
			}
		}
		return af.ResultOK
	case af.CmdReset:
		if p.graph != nil {
			p.graph.close()
			p.graph = nil
		}
		return af.ResultOK
	default:
		return af.ResultUnknown
	}
}

func scaletempoFilterFrame(f *af.FilterInstance, frame *af.Frame) error {
	p := f.Priv.(*scaletempoPriv)
	if p.speed == 1.0 {
		if frame == nil {
			return nil
		}
		out := *frame
		out.Config = f.FmtOut
		f.AddOutputFrame(&out)
		return nil
	}
	if p.graph == nil {
		g, err := newLavfiGraph(f.FmtIn, "atempo="+strconv.FormatFloat(clampAtempo(p.speed), 'f', -1, 64))
		if err != nil {
			return err
		}
		p.graph = g
	}
	if err := p.graph.push(frame); err != nil {
		return err
	}
	return drainGraph(f, p.graph)
}

// clampAtempo keeps the ratio within atempo's single-stage range;
// speeds further out would need atempo chained with itself, which this
// engine doesn't bother composing since playback speed controls rarely
// go past 2x or below 0.5x in practice.
func clampAtempo(speed float64) float64 {
	if speed < 0.5 {
		return 0.5
	}
	if speed > 2.0 {
		return 2.0
	}
	return speed
}

func scaletempoFilterOut(f *af.FilterInstance) error {
	p := f.Priv.(*scaletempoPriv)
	if p.graph == nil {
		return nil
	}
	return drainGraph(f, p.graph)
}

func scaletempoUninit(f *af.FilterInstance) {
	p := f.Priv.(*scaletempoPriv)
	if p.graph != nil {
		p.graph.close()
		p.graph = nil
	}
}
