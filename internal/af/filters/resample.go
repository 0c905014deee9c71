package filters

import (
	"strconv"

	"github.com/linuxmatters/afchain/internal/af"
)

// resamplePriv backs the "lavrresample" filter: the one and only
// filter negotiation ever auto-inserts (spec.md §4.C). Its target
// output config is set by Chain negotiation via SetTarget before the
// filter's first REINIT, never by user filter-spec args.
type resamplePriv struct {
	target af.AudioConfig
	graph  *lavfiGraph
}

// SetTarget implements the target-setter interface negotiation uses to
// tell a freshly created converter what to produce.
func (p *resamplePriv) SetTarget(cfg af.AudioConfig) { p.target = cfg }

// Resample returns the descriptor for "lavrresample": the internal
// sample-rate/format/channel converter auto-inserted between two
// filters that can't otherwise agree (spec.md §4.C). It is not meant to
// be instantiated directly from a filter spec string, though nothing
// stops it.
func Resample() *af.Descriptor {
	return &af.Descriptor{
		Name:        af.AutoResamplerName,
		Description: "automatic sample rate/format/channel layout converter",
		NewPrivate:  func() any { return &resamplePriv{} },
		Factory: func() af.Callbacks {
			return af.Callbacks{
				Control:     resampleControl,
				FilterFrame: resampleFilterFrame,
				FilterOut:   resampleFilterOut,
				Uninit:      resampleUninit,
			}
		},
	}
}

func resampleControl(f *af.FilterInstance, cmd af.ControlCommand, arg any) af.Result {
	p := f.Priv.(*resamplePriv)
	switch cmd {
	case af.CmdReinit:
		in := arg.(*af.AudioConfig)
		want := p.target
		want.CopyUnsetFieldsFrom(*in)
		if !want.Valid() {
			return af.ResultError
		}
		p.target = want
		*in = want
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

func (p *resamplePriv) spec(fmtIn af.AudioConfig) string {
	return "aresample=" + ffmpegSampleFmtName(p.target.Format) +
		":osr=" + strconv.Itoa(p.target.Rate) +
		":ocl=" + ffmpegChannelLayoutName(p.target.Channels)
}

func resampleFilterFrame(f *af.FilterInstance, frame *af.Frame) error {
	p := f.Priv.(*resamplePriv)
	if p.graph == nil {
		g, err := newLavfiGraph(f.FmtIn, p.spec(f.FmtIn))
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

func resampleFilterOut(f *af.FilterInstance) error {
	p := f.Priv.(*resamplePriv)
	if p.graph == nil {
		return nil
	}
	return drainGraph(f, p.graph)
}

func drainGraph(f *af.FilterInstance, g *lavfiGraph) error {
	for {
		out, err := g.pull(f.FmtOut)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		f.AddOutputFrame(out)
	}
}

func resampleUninit(f *af.FilterInstance) {
	p := f.Priv.(*resamplePriv)
	if p.graph != nil {
		p.graph.close()
		p.graph = nil
	}
}
