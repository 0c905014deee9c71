// Package decio adapts FFmpeg-based file decoding and a system audio
// output device to the coordinator package's Decoder/Output interfaces
// (spec.md §4.F ambient I/O layer), grounded on the teacher's
// internal/audio.Reader.
package decio

import (
	"context"
	"errors"
	"fmt"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/afchain/internal/af"
)

// FileDecoder demuxes and decodes one audio stream from a media file,
// implementing coordinator.Decoder. It is a straight generalisation of
// the teacher's audio.Reader: the same demux/decode loop, but handing
// back af.Frame values instead of raw *ffmpeg.AVFrame, and adding Seek.
type FileDecoder struct {
	fmtCtx    *ffmpeg.AVFormatContext
	decCtx    *ffmpeg.AVCodecContext
	streamIdx int
	avFrame   *ffmpeg.AVFrame
	packet    *ffmpeg.AVPacket

	cfg af.AudioConfig
}

// OpenFile opens filename's first audio stream for decoding.
func OpenFile(filename string) (*FileDecoder, error) {
	var fmtCtx *ffmpeg.AVFormatContext

	filenameC := ffmpeg.ToCStr(filename)
	defer filenameC.Free()

	if _, err := ffmpeg.AVFormatOpenInput(&fmtCtx, filenameC, nil, nil); err != nil {
		return nil, fmt.Errorf("decio: failed to open %q: %w", filename, err)
	}
	if _, err := ffmpeg.AVFormatFindStreamInfo(fmtCtx, nil); err != nil {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("decio: failed to find stream info in %q: %w", filename, err)
	}

	streamIdx := -1
	streams := fmtCtx.Streams()
	for i := 0; i < int(fmtCtx.NbStreams()); i++ {
		stream := streams.Get(uintptr(i))
		if stream.Codecpar().CodecType() == ffmpeg.AVMediaTypeAudio {
			streamIdx = i
			break
		}
	}
	if streamIdx == -1 {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("decio: no audio stream found in %q", filename)
	}

	codecPar := streams.Get(uintptr(streamIdx)).Codecpar()
	decoder := ffmpeg.AVCodecFindDecoder(codecPar.CodecId())
	if decoder == nil {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("decio: no decoder for codec id %d in %q", codecPar.CodecId(), filename)
	}

	decCtx := ffmpeg.AVCodecAllocContext3(decoder)
	if decCtx == nil {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("decio: failed to allocate decoder context for %q", filename)
	}
	if _, err := ffmpeg.AVCodecParametersToContext(decCtx, codecPar); err != nil {
		ffmpeg.AVCodecFreeContext(&decCtx)
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("decio: failed to copy codec parameters: %w", err)
	}
	if _, err := ffmpeg.AVCodecOpen2(decCtx, decoder, nil); err != nil {
		ffmpeg.AVCodecFreeContext(&decCtx)
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, fmt.Errorf("decio: failed to open decoder: %w", err)
	}

	cfg := af.AudioConfig{
		Format: afSampleFormat(decCtx.SampleFmt()),
		Channels: af.NewChannelLayout(defaultChannelIDs(decCtx.ChLayout().NbChannels())...),
		Rate:   decCtx.SampleRate(),
	}

	return &FileDecoder{
		fmtCtx:    fmtCtx,
		decCtx:    decCtx,
		streamIdx: streamIdx,
		avFrame:   ffmpeg.AVFrameAlloc(),
		packet:    ffmpeg.AVPacketAlloc(),
		cfg:       cfg,
	}, nil
}

// Config reports the native format this decoder produces frames in.
func (d *FileDecoder) Config() af.AudioConfig { return d.cfg }

// NextFrame implements coordinator.Decoder.
func (d *FileDecoder) NextFrame(ctx context.Context) (*af.Frame, float64, bool, error) {
	for {
		if ctx.Err() != nil {
			return nil, 0, false, ctx.Err()
		}

		if _, err := ffmpeg.AVCodecReceiveFrame(d.decCtx, d.avFrame); err == nil {
			d.avFrame.SetPts(d.avFrame.BestEffortTimestamp())
			frame, pts, convErr := d.toAudioFrame()
			ffmpeg.AVFrameUnref(d.avFrame)
			if convErr != nil {
				return nil, 0, false, convErr
			}
			return frame, pts, false, nil
		} else if !errors.Is(err, ffmpeg.EAgain) {
			if errors.Is(err, ffmpeg.AVErrorEOF) {
				return nil, 0, true, nil
			}
			return nil, 0, false, fmt.Errorf("decio: receive frame failed: %w", err)
		}

		if _, err := ffmpeg.AVReadFrame(d.fmtCtx, d.packet); err != nil {
			if errors.Is(err, ffmpeg.AVErrorEOF) {
				if _, err := ffmpeg.AVCodecSendPacket(d.decCtx, nil); err != nil {
					return nil, 0, false, fmt.Errorf("decio: flush failed: %w", err)
				}
				continue
			}
			return nil, 0, false, fmt.Errorf("decio: read frame failed: %w", err)
		}

		if d.packet.StreamIndex() != d.streamIdx {
			ffmpeg.AVPacketUnref(d.packet)
			continue
		}
		if _, err := ffmpeg.AVCodecSendPacket(d.decCtx, d.packet); err != nil {
			ffmpeg.AVPacketUnref(d.packet)
			return nil, 0, false, fmt.Errorf("decio: send packet failed: %w", err)
		}
		ffmpeg.AVPacketUnref(d.packet)
	}
}

// Seek implements coordinator.Decoder: it flushes the decoder and seeks
// the demuxer to the nearest keyframe at or before pts, relying on the
// coordinator's own sync correction to trim the small remaining drift
// (spec.md §4.F, grounded on the original's "second-chance" refresh
// seek idiom).
func (d *FileDecoder) Seek(ctx context.Context, pts float64) error {
	ts := int64(pts * float64(ffmpeg.AVTimeBase))
	if _, err := ffmpeg.AVSeekFrame(d.fmtCtx, -1, ts, ffmpeg.AVSeekFlagBackward); err != nil {
		return fmt.Errorf("decio: seek failed: %w", err)
	}
	ffmpeg.AVCodecFlushBuffers(d.decCtx)
	return nil
}

func (d *FileDecoder) toAudioFrame() (*af.Frame, float64, error) {
	samples := d.avFrame.NbSamples()
	out := af.NewFrame(d.cfg, uint32(samples))

	planes := 1
	if d.cfg.Format.IsPlanar() {
		planes = d.cfg.Channels.NumChannels()
	}
	out.Data = make(af.PlanarBuffers, planes)
	for p := 0; p < planes; p++ {
		src := d.avFrame.ExtendedData(p)
		buf := make([]byte, len(src))
		copy(buf, src)
		out.Data[p] = buf
	}

	var pts float64
	if p := d.avFrame.Pts(); p != ffmpeg.AVNoptsValue {
		tb := d.fmtCtx.Streams().Get(uintptr(d.streamIdx)).TimeBase()
		pts = float64(p) * float64(tb.Num()) / float64(tb.Den())
		ptsCopy := pts
		out.PTS = &ptsCopy
	}
	return out, pts, nil
}

// Close releases every FFmpeg resource this decoder holds.
func (d *FileDecoder) Close() {
	if d.avFrame != nil {
		ffmpeg.AVFrameFree(&d.avFrame)
	}
	if d.packet != nil {
		ffmpeg.AVPacketFree(&d.packet)
	}
	if d.decCtx != nil {
		ffmpeg.AVCodecFreeContext(&d.decCtx)
	}
	if d.fmtCtx != nil {
		ffmpeg.AVFormatCloseInput(&d.fmtCtx)
	}
}

func afSampleFormat(f ffmpeg.AVSampleFormat) af.SampleFormat {
	switch f {
	case ffmpeg.AVSampleFmtU8:
		return af.FormatU8
	case ffmpeg.AVSampleFmtS16:
		return af.FormatS16
	case ffmpeg.AVSampleFmtS32:
		return af.FormatS32
	case ffmpeg.AVSampleFmtFlt:
		return af.FormatFloat
	case ffmpeg.AVSampleFmtDbl:
		return af.FormatDouble
	case ffmpeg.AVSampleFmtS16P:
		return af.FormatS16Planar
	case ffmpeg.AVSampleFmtS32P:
		return af.FormatS32Planar
	case ffmpeg.AVSampleFmtFltp:
		return af.FormatFloatPlanar
	case ffmpeg.AVSampleFmtDblp:
		return af.FormatDoublePlanar
	default:
		return af.FormatUnknown
	}
}

func defaultChannelIDs(n int) []af.ChannelID {
	switch n {
	case 1:
		return []af.ChannelID{af.ChFC}
	case 2:
		return []af.ChannelID{af.ChFL, af.ChFR}
	case 6:
		return []af.ChannelID{af.ChFL, af.ChFR, af.ChFC, af.ChLFE, af.ChBL, af.ChBR}
	default:
		ids := make([]af.ChannelID, n)
		for i := range ids {
			ids[i] = af.ChUnknown
		}
		return ids
	}
}
