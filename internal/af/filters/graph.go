package filters

import (
	"errors"
	"fmt"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/afchain/internal/af"
)

// lavfiGraph wraps a single-input, single-output FFmpeg filter graph:
// an abuffer source, an arbitrary filter spec, and an abuffersink.
// Both the lavfi bridge filter and the auto-inserted resampler are
// thin adapters around this, grounded on the teacher's
// setupFilterGraph/createBufferSource/createBufferSink trio (see
// internal/processor/filters.go in the reference build).
type lavfiGraph struct {
	graph     *ffmpeg.AVFilterGraph
	srcCtx    *ffmpeg.AVFilterContext
	sinkCtx   *ffmpeg.AVFilterContext
	in        af.AudioConfig
	scratch   *ffmpeg.AVFrame
}

// newLavfiGraph builds a filter graph accepting in and running
// filterSpec, e.g. "volume=2.0" or "aresample=48000,aformat=..." The
// caller owns the returned graph's lifetime and must call close.
func newLavfiGraph(in af.AudioConfig, filterSpec string) (*lavfiGraph, error) {
	graph := ffmpeg.AVFilterGraphAlloc()
	if graph == nil {
		return nil, fmt.Errorf("lavfi: failed to allocate filter graph")
	}

	srcCtx, err := createBufferSourceFromConfig(graph, in)
	if err != nil {
		ffmpeg.AVFilterGraphFree(&graph)
		return nil, err
	}

	sinkCtx, err := createBufferSink(graph)
	if err != nil {
		ffmpeg.AVFilterGraphFree(&graph)
		return nil, err
	}

	outputs := ffmpeg.AVFilterInoutAlloc()
	inputs := ffmpeg.AVFilterInoutAlloc()
	defer ffmpeg.AVFilterInoutFree(&outputs)
	defer ffmpeg.AVFilterInoutFree(&inputs)

	outputs.SetName(ffmpeg.ToCStr("in"))
	outputs.SetFilterCtx(srcCtx)
	outputs.SetPadIdx(0)
	outputs.SetNext(nil)

	inputs.SetName(ffmpeg.ToCStr("out"))
	inputs.SetFilterCtx(sinkCtx)
	inputs.SetPadIdx(0)
	inputs.SetNext(nil)

	specC := ffmpeg.ToCStr(filterSpec)
	defer specC.Free()

	if _, err := ffmpeg.AVFilterGraphParsePtr(graph, specC, &inputs, &outputs, nil); err != nil {
		ffmpeg.AVFilterGraphFree(&graph)
		return nil, fmt.Errorf("lavfi: failed to parse filter graph %q: %w", filterSpec, err)
	}
	if _, err := ffmpeg.AVFilterGraphConfig(graph, nil); err != nil {
		ffmpeg.AVFilterGraphFree(&graph)
		return nil, fmt.Errorf("lavfi: failed to configure filter graph %q: %w", filterSpec, err)
	}

	return &lavfiGraph{
		graph:   graph,
		srcCtx:  srcCtx,
		sinkCtx: sinkCtx,
		in:      in,
		scratch: ffmpeg.AVFrameAlloc(),
	}, nil
}

func createBufferSourceFromConfig(graph *ffmpeg.AVFilterGraph, cfg af.AudioConfig) (*ffmpeg.AVFilterContext, error) {
	bufferSrc := ffmpeg.AVFilterGetByName(ffmpeg.GlobalCStr("abuffer"))
	if bufferSrc == nil {
		return nil, fmt.Errorf("lavfi: abuffer filter not found")
	}

	args := fmt.Sprintf(
		"time_base=1/%d:sample_rate=%d:sample_fmt=%s:channel_layout=%s",
		cfg.Rate, cfg.Rate, ffmpegSampleFmtName(cfg.Format), ffmpegChannelLayoutName(cfg.Channels),
	)
	argsC := ffmpeg.ToCStr(args)
	defer argsC.Free()

	var srcCtx *ffmpeg.AVFilterContext
	if _, err := ffmpeg.AVFilterGraphCreateFilter(&srcCtx, bufferSrc, ffmpeg.GlobalCStr("in"), argsC, nil, graph); err != nil {
		return nil, fmt.Errorf("lavfi: failed to create abuffer: %w", err)
	}
	return srcCtx, nil
}

func createBufferSink(graph *ffmpeg.AVFilterGraph) (*ffmpeg.AVFilterContext, error) {
	bufferSink := ffmpeg.AVFilterGetByName(ffmpeg.GlobalCStr("abuffersink"))
	if bufferSink == nil {
		return nil, fmt.Errorf("lavfi: abuffersink filter not found")
	}

	var sinkCtx *ffmpeg.AVFilterContext
	if _, err := ffmpeg.AVFilterGraphCreateFilter(&sinkCtx, bufferSink, ffmpeg.GlobalCStr("out"), nil, nil, graph); err != nil {
		return nil, fmt.Errorf("lavfi: failed to create abuffersink: %w", err)
	}
	return sinkCtx, nil
}

// push feeds one decoded frame (nil means flush/EOF) into the graph.
func (g *lavfiGraph) push(frame *af.Frame) error {
	if frame == nil {
		if _, err := ffmpeg.AVBuffersrcAddFrameFlags(g.srcCtx, nil, 0); err != nil {
			return fmt.Errorf("lavfi: flush failed: %w", err)
		}
		return nil
	}

	avFrame, err := newAVFrameFromAudioFrame(frame)
	if err != nil {
		return err
	}
	defer ffmpeg.AVFrameFree(&avFrame)

	if _, err := ffmpeg.AVBuffersrcAddFrameFlags(g.srcCtx, avFrame, 0); err != nil {
		return fmt.Errorf("lavfi: failed to push frame: %w", err)
	}
	return nil
}

// pull retrieves at most one output frame, returning (nil, nil) if the
// graph needs more input before it can produce one.
func (g *lavfiGraph) pull(outCfg af.AudioConfig) (*af.Frame, error) {
	ffmpeg.AVFrameUnref(g.scratch)
	if _, err := ffmpeg.AVBuffersinkGetFrame(g.sinkCtx, g.scratch); err != nil {
		if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("lavfi: failed to pull frame: %w", err)
	}
	return audioFrameFromAVFrame(g.scratch, outCfg)
}

func (g *lavfiGraph) close() {
	if g.scratch != nil {
		ffmpeg.AVFrameFree(&g.scratch)
	}
	if g.graph != nil {
		ffmpeg.AVFilterGraphFree(&g.graph)
	}
}

func ffmpegSampleFmtName(f af.SampleFormat) string {
	switch f {
	case af.FormatU8:
		return "u8"
	case af.FormatS16:
		return "s16"
	case af.FormatS32:
		return "s32"
	case af.FormatFloat:
		return "flt"
	case af.FormatDouble:
		return "dbl"
	case af.FormatS16Planar:
		return "s16p"
	case af.FormatS32Planar:
		return "s32p"
	case af.FormatFloatPlanar:
		return "fltp"
	case af.FormatDoublePlanar:
		return "dblp"
	default:
		return "s16"
	}
}

func ffmpegChannelLayoutName(l af.ChannelLayout) string {
	switch l.NumChannels() {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 6:
		return "5.1"
	default:
		return fmt.Sprintf("%dc", l.NumChannels())
	}
}

// newAVFrameFromAudioFrame copies frame's planar byte data into a
// freshly allocated AVFrame with a matching sample format, layout and
// rate, ready to be pushed into an abuffer source.
func newAVFrameFromAudioFrame(frame *af.Frame) (*ffmpeg.AVFrame, error) {
	avFrame := ffmpeg.AVFrameAlloc()
	if avFrame == nil {
		return nil, fmt.Errorf("lavfi: failed to allocate frame")
	}

	avFrame.SetNbSamples(int32(frame.Samples))
	avFrame.SetSampleRate(int32(frame.Config.Rate))
	avFrame.SetFormat(int32(ffmpegSampleFmt(frame.Config.Format)))
	ffmpeg.AVChannelLayoutDefault(avFrame.ChLayout(), int32(frame.Config.Channels.NumChannels()))

	if _, err := ffmpeg.AVFrameGetBuffer(avFrame, 0); err != nil {
		ffmpeg.AVFrameFree(&avFrame)
		return nil, fmt.Errorf("lavfi: failed to allocate frame buffer: %w", err)
	}

	for plane, data := range frame.Data {
		dst := avFrame.ExtendedData(plane)
		copy(dst, data)
	}
	if frame.PTS != nil {
		avFrame.SetPts(int64(*frame.PTS * float64(frame.Config.Rate)))
	} else {
		avFrame.SetPts(ffmpeg.AVNoptsValue)
	}
	return avFrame, nil
}

// audioFrameFromAVFrame copies an AVFrame produced by abuffersink back
// into an af.Frame tagged with outCfg.
func audioFrameFromAVFrame(avFrame *ffmpeg.AVFrame, outCfg af.AudioConfig) (*af.Frame, error) {
	samples := avFrame.NbSamples()
	out := af.NewFrame(outCfg, uint32(samples))

	planes := 1
	if outCfg.Format.IsPlanar() {
		planes = outCfg.Channels.NumChannels()
	}
	out.Data = make(af.PlanarBuffers, planes)
	for p := 0; p < planes; p++ {
		src := avFrame.ExtendedData(p)
		buf := make([]byte, len(src))
		copy(buf, src)
		out.Data[p] = buf
	}

	if pts := avFrame.Pts(); pts != ffmpeg.AVNoptsValue && outCfg.Rate > 0 {
		ptsSec := float64(pts) / float64(outCfg.Rate)
		out.PTS = &ptsSec
	}
	ffmpeg.AVFrameUnref(avFrame)
	return out, nil
}

func ffmpegSampleFmt(f af.SampleFormat) ffmpeg.AVSampleFormat {
	switch f {
	case af.FormatU8:
		return ffmpeg.AVSampleFmtU8
	case af.FormatS16:
		return ffmpeg.AVSampleFmtS16
	case af.FormatS32:
		return ffmpeg.AVSampleFmtS32
	case af.FormatFloat:
		return ffmpeg.AVSampleFmtFlt
	case af.FormatDouble:
		return ffmpeg.AVSampleFmtDbl
	case af.FormatS16Planar:
		return ffmpeg.AVSampleFmtS16P
	case af.FormatS32Planar:
		return ffmpeg.AVSampleFmtS32P
	case af.FormatFloatPlanar:
		return ffmpeg.AVSampleFmtFltp
	case af.FormatDoublePlanar:
		return ffmpeg.AVSampleFmtDblp
	default:
		return ffmpeg.AVSampleFmtS16
	}
}
