package coordinator

import (
	"context"
	"testing"

	"github.com/linuxmatters/afchain/internal/af"
)

func testConfig() af.AudioConfig {
	return af.AudioConfig{Format: af.FormatFloat, Channels: af.Stereo, Rate: 48000}
}

// identityRegistry is a minimal, pure-Go filter catalogue covering just
// enough of the well-known filters (volume/pan/scaletempo) and the
// auto-converter for the coordinator's own tests to run without a
// cgo/FFmpeg dependency.
func identityRegistry() *af.Registry {
	r := af.NewRegistry()
	r.Register(&af.Descriptor{
		Name:       af.AutoResamplerName,
		NewPrivate: func() any { return &fakeTarget{} },
		Factory: func() af.Callbacks {
			return af.Callbacks{
				Control: func(f *af.FilterInstance, cmd af.ControlCommand, arg any) af.Result {
					if cmd != af.CmdReinit {
						return af.ResultUnknown
					}
					in := arg.(*af.AudioConfig)
					p := f.Priv.(*fakeTarget)
					want := p.cfg
					want.CopyUnsetFieldsFrom(*in)
					p.cfg = want
					*in = want
					return af.ResultOK
				},
				FilterFrame: passthrough,
			}
		},
	})
	r.Register(&af.Descriptor{
		Name:       "volume",
		NewPrivate: func() any { return &fakeGain{gain: 1} },
		Factory: func() af.Callbacks {
			return af.Callbacks{
				Control: func(f *af.FilterInstance, cmd af.ControlCommand, arg any) af.Result {
					switch cmd {
					case af.CmdReinit:
						return af.ResultOK
					case af.CmdSetVolume:
						f.Priv.(*fakeGain).gain = *arg.(*float64)
						return af.ResultOK
					default:
						return af.ResultUnknown
					}
				},
				FilterFrame: passthrough,
			}
		},
	})
	r.Register(&af.Descriptor{
		Name:       "pan",
		NewPrivate: func() any { return &fakeGain{} },
		Factory: func() af.Callbacks {
			return af.Callbacks{
				Control: func(f *af.FilterInstance, cmd af.ControlCommand, arg any) af.Result {
					switch cmd {
					case af.CmdReinit:
						return af.ResultOK
					case af.CmdSetPanBalance:
						f.Priv.(*fakeGain).gain = *arg.(*float64)
						return af.ResultOK
					default:
						return af.ResultUnknown
					}
				},
				FilterFrame: passthrough,
			}
		},
	})
	r.Register(&af.Descriptor{
		Name:       "scaletempo",
		NewPrivate: func() any { return &fakeGain{gain: 1} },
		Factory: func() af.Callbacks {
			return af.Callbacks{
				Control: func(f *af.FilterInstance, cmd af.ControlCommand, arg any) af.Result {
					switch cmd {
					case af.CmdReinit:
						return af.ResultOK
					case af.CmdSetPlaybackSpeed:
						f.Priv.(*fakeGain).gain = *arg.(*float64)
						return af.ResultOK
					default:
						return af.ResultUnknown
					}
				},
				FilterFrame: passthrough,
			}
		},
	})
	return r
}

type fakeTarget struct{ cfg af.AudioConfig }

func (p *fakeTarget) SetTarget(cfg af.AudioConfig) { p.cfg = cfg }

type fakeGain struct{ gain float64 }

func passthrough(f *af.FilterInstance, frame *af.Frame) error {
	if frame == nil {
		return nil
	}
	out := *frame
	out.Config = f.FmtOut
	f.AddOutputFrame(&out)
	return nil
}

// fakeDecoder yields n identical frames of framesPerCall samples, then EOF.
type fakeDecoder struct {
	cfg          af.AudioConfig
	framesLeft   int
	samplesEach  uint32
	pts          float64
}

func (d *fakeDecoder) NextFrame(ctx context.Context) (*af.Frame, float64, bool, error) {
	if d.framesLeft <= 0 {
		return nil, 0, true, nil
	}
	d.framesLeft--
	fr := af.NewFrame(d.cfg, d.samplesEach)
	fr.Data = af.PlanarBuffers{make([]byte, int(d.samplesEach)*4*d.cfg.Channels.NumChannels())}
	pts := d.pts
	fr.PTS = &pts
	d.pts += fr.Duration()
	return fr, pts, false, nil
}

func (d *fakeDecoder) Seek(ctx context.Context, pts float64) error {
	d.pts = pts
	return nil
}

// fakeOutput accepts everything immediately, unbounded space.
type fakeOutput struct {
	written int
	cfg     af.AudioConfig
}

func (o *fakeOutput) Configure(cfg af.AudioConfig) error { o.cfg = cfg; return nil }
func (o *fakeOutput) GetSpace() int {
	if o.written > 100000 {
		return 0
	}
	return 4096
}
func (o *fakeOutput) Write(data af.PlanarBuffers, samples int) (int, error) {
	o.written += samples
	return samples, nil
}
func (o *fakeOutput) GetDelay() float64 { return 0 }
func (o *fakeOutput) Pause()            {}
func (o *fakeOutput) Resume()           {}
func (o *fakeOutput) Drain()            {}
func (o *fakeOutput) Close() error      { return nil }

func TestCoordinatorStartNegotiatesAndConfiguresOutput(t *testing.T) {
	cfg := testConfig()
	dec := &fakeDecoder{cfg: cfg, framesLeft: 5, samplesEach: 1024}
	out := &fakeOutput{}
	opts := DefaultOptions()
	opts.Output = cfg

	c := New(identityRegistry(), dec, out, cfg, opts)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if out.cfg.Rate != cfg.Rate {
		t.Fatalf("expected output device configured with negotiated rate, got %v", out.cfg)
	}
	if c.Status() != StatusFilling {
		t.Fatalf("expected StatusFilling right after Start, got %v", c.Status())
	}
}

func TestFillAudioOutBuffersWritesDecodedFramesAndReachesEOF(t *testing.T) {
	cfg := testConfig()
	dec := &fakeDecoder{cfg: cfg, framesLeft: 3, samplesEach: 1024}
	out := &fakeOutput{}
	opts := DefaultOptions()
	opts.Output = cfg

	c := New(identityRegistry(), dec, out, cfg, opts)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 10 && c.Status() != StatusEOF; i++ {
		if err := c.FillAudioOutBuffers(context.Background(), c.writtenPTS); err != nil {
			t.Fatalf("FillAudioOutBuffers: %v", err)
		}
	}
	if out.written == 0 {
		t.Fatalf("expected some samples written to the output device")
	}
	if c.Status() != StatusEOF {
		t.Fatalf("expected StatusEOF once the decoder and chain ran dry, got %v", c.Status())
	}
}

func TestApplyVolumeInsertsFilterOnce(t *testing.T) {
	cfg := testConfig()
	dec := &fakeDecoder{cfg: cfg, framesLeft: 1, samplesEach: 256}
	out := &fakeOutput{}
	opts := DefaultOptions()
	opts.Output = cfg

	c := New(identityRegistry(), dec, out, cfg, opts)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.applyVolume(0.5); err != nil {
		t.Fatalf("applyVolume: %v", err)
	}
	if c.chain.FindByLabel(volumeLabel) == nil {
		t.Fatalf("expected volume filter to be present after applyVolume")
	}
	if err := c.applyVolume(0.25); err != nil {
		t.Fatalf("second applyVolume: %v", err)
	}
	count := 0
	for f := c.chain.First().Next(); f != c.chain.Last(); f = f.Next() {
		if f.Label == volumeLabel {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one volume filter after repeated applyVolume calls, got %d", count)
	}
}

func TestSeekToResetsCoordinatorState(t *testing.T) {
	cfg := testConfig()
	dec := &fakeDecoder{cfg: cfg, framesLeft: 2, samplesEach: 1024}
	out := &fakeOutput{}
	opts := DefaultOptions()
	opts.Output = cfg

	c := New(identityRegistry(), dec, out, cfg, opts)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.SeekTo(context.Background(), 5.0); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	if c.Status() != StatusSyncing {
		t.Fatalf("expected StatusSyncing right after a seek, got %v", c.Status())
	}
	if c.writtenPTS != 5.0 {
		t.Fatalf("expected writtenPTS reset to the seek target, got %v", c.writtenPTS)
	}
}

func TestFillAudioOutBuffersPushesFramesUnderSpeedResample(t *testing.T) {
	cfg := testConfig()
	dec := &fakeDecoder{cfg: cfg, framesLeft: 3, samplesEach: 1024}
	out := &fakeOutput{}
	opts := DefaultOptions()
	opts.Output = cfg
	opts.Speed = 1.5
	opts.SpeedMode = SpeedResample

	c := New(identityRegistry(), dec, out, cfg, opts)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.chain.Input.Rate == c.nativeInput.Rate {
		t.Fatalf("expected chain.Input.Rate scaled away from the native decoder rate")
	}

	for i := 0; i < 10 && c.Status() != StatusEOF; i++ {
		if err := c.FillAudioOutBuffers(context.Background(), c.writtenPTS); err != nil {
			t.Fatalf("FillAudioOutBuffers under SpeedResample: %v", err)
		}
	}
	if out.written == 0 {
		t.Fatalf("expected some samples written to the output device")
	}
}

func TestSwitchTrackGaplessAutoReinitialisesOnlyOnFormatChange(t *testing.T) {
	cfg := testConfig()
	dec := &fakeDecoder{cfg: cfg, framesLeft: 1, samplesEach: 256}
	out := &fakeOutput{}
	opts := DefaultOptions()
	opts.Output = cfg

	c := New(identityRegistry(), dec, out, cfg, opts)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := c.SwitchTrack(context.Background(), cfg); err != nil {
		t.Fatalf("SwitchTrack (same format): %v", err)
	}
	if c.chain.Initialized() != af.StateOK {
		t.Fatalf("expected chain to remain negotiated across a same-format track switch")
	}

	mono := cfg
	mono.Channels = af.Mono
	if err := c.SwitchTrack(context.Background(), mono); err != nil {
		t.Fatalf("SwitchTrack (format change): %v", err)
	}
	if c.nativeInput.Channels != af.Mono {
		t.Fatalf("expected nativeInput updated to the new track's format")
	}
}

func TestSwitchTrackGaplessNoAlwaysReinitialises(t *testing.T) {
	cfg := testConfig()
	dec := &fakeDecoder{cfg: cfg, framesLeft: 1, samplesEach: 256}
	out := &fakeOutput{}
	opts := DefaultOptions()
	opts.Output = cfg
	opts.Gapless = GaplessNo

	c := New(identityRegistry(), dec, out, cfg, opts)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.SwitchTrack(context.Background(), cfg); err != nil {
		t.Fatalf("SwitchTrack: %v", err)
	}
	if c.chain.Initialized() != af.StateOK {
		t.Fatalf("expected chain renegotiated successfully even with an identical format under GaplessNo")
	}
}

func TestSecondChanceSeekConsumedOnceThenHardResync(t *testing.T) {
	cfg := testConfig()
	dec := &fakeDecoder{cfg: cfg, framesLeft: 1, samplesEach: 1024}
	out := &fakeOutput{}
	opts := DefaultOptions()
	opts.Output = cfg

	c := New(identityRegistry(), dec, out, cfg, opts)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.secondChanceAvailable {
		t.Fatalf("expected second-chance seek to be available right after Start")
	}

	if err := c.FillAudioOutBuffers(context.Background(), c.writtenPTS+100); err != nil {
		t.Fatalf("FillAudioOutBuffers: %v", err)
	}
	if c.secondChanceAvailable {
		t.Fatalf("expected the first large-drift resync to consume the second-chance flag")
	}
	if c.Status() != StatusSyncing {
		t.Fatalf("expected a resync to return the coordinator to StatusSyncing, got %v", c.Status())
	}
}
