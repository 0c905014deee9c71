package filters

import (
	"fmt"
	"strings"

	"github.com/linuxmatters/afchain/internal/af"
)

// bridgePriv backs "lavfi-bridge": af.BridgePrivate carries the wrapped
// filter's name/args (installed by Registry.Create), this struct adds
// the runtime graph state.
type bridgePriv struct {
	af.BridgePrivate
	graph *lavfiGraph
}

// Bridge returns the descriptor for the catch-all filter every
// unrecognised name routes to (spec.md §4.A, §6): it builds a one-stage
// FFmpeg filter graph out of whatever lavfi filter name was requested,
// e.g. a prefixed "lavfi-volume" (prefix stripped) or a bare "highpass",
// with the spec's args appended as "name=key=value:...". Because
// FFmpeg's own audio filters cover this engine's reformatting duties
// far more completely than a hand-written equivalent could, routing
// unknown names here rather than rejecting them keeps the same filter
// syntax usable for both built-ins and arbitrary FFmpeg filters.
func Bridge() *af.Descriptor {
	return &af.Descriptor{
		Name:        af.BridgeFilterName,
		Description: "route to an arbitrary FFmpeg (lavfi) audio filter",
		NewPrivate:  func() any { return &bridgePriv{} },
		Factory: func() af.Callbacks {
			return af.Callbacks{
				Control:     bridgeControl,
				FilterFrame: bridgeFilterFrame,
				FilterOut:   bridgeFilterOut,
				Uninit:      bridgeUninit,
			}
		},
	}
}

func bridgeControl(f *af.FilterInstance, cmd af.ControlCommand, arg any) af.Result {
	p := f.Priv.(*bridgePriv)
	switch cmd {
	case af.CmdReinit:
		in := arg.(*af.AudioConfig)
		if in.Format.IsSPDIF() {
			// FFmpeg's lavfi graphs operate on PCM; ask for PCM instead of
			// failing outright so negotiation can drop this filter and
			// fall back to a bit-exact passthrough chain.
			in.Format = af.FormatFloat
			return af.ResultFalse
		}
		// lavfi filters are free to change the format/layout/rate
		// themselves; without a probing dry-run through the real graph
		// this engine takes the conservative position that a bridge
		// filter passes its input config straight through, and leaves
		// resampling duties to an explicit "format"/aresample filter
		// placed after it by the user (spec.md §9 Open Question).
		if p.graph != nil {
			p.graph.close()
			p.graph = nil
		}
		return af.ResultOK
	case af.CmdReset:
		if p.graph != nil {
			p.graph.close()
			p.graph = nil
		}
		return af.ResultOK
	case af.CmdCommand:
		return af.ResultUnknown
	default:
		return af.ResultUnknown
	}
}

func (p *bridgePriv) filterSpec() string {
	if len(p.Opts) == 0 {
		return p.Name
	}
	parts := make([]string, 0, len(p.Opts))
	for _, kv := range p.Opts {
		parts = append(parts, kv.Key+"="+kv.Value)
	}
	return p.Name + "=" + strings.Join(parts, ":")
}

func bridgeFilterFrame(f *af.FilterInstance, frame *af.Frame) error {
	p := f.Priv.(*bridgePriv)
	if p.graph == nil {
		g, err := newLavfiGraph(f.FmtIn, p.filterSpec())
		if err != nil {
			return fmt.Errorf("lavfi-bridge(%s): %w", p.Name, err)
		}
		p.graph = g
	}
	if err := p.graph.push(frame); err != nil {
		return fmt.Errorf("lavfi-bridge(%s): %w", p.Name, err)
	}
	return drainGraph(f, p.graph)
}

func bridgeFilterOut(f *af.FilterInstance) error {
	p := f.Priv.(*bridgePriv)
	if p.graph == nil {
		return nil
	}
	return drainGraph(f, p.graph)
}

func bridgeUninit(f *af.FilterInstance) {
	p := f.Priv.(*bridgePriv)
	if p.graph != nil {
		p.graph.close()
		p.graph = nil
	}
}
