package decio

import (
	"fmt"
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/linuxmatters/afchain/internal/af"
)

// PortAudioOutput implements coordinator.Output over a PortAudio output
// stream, adapted from the pack's portaudio capture devices (same
// Initialize/OpenStream/Start/Close lifecycle, run in reverse: we feed
// samples to the device instead of reading them from it).
type PortAudioOutput struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	cfg     af.AudioConfig
	ring    []float32
	ringCap int
	paused  bool
}

// NewPortAudioOutput initializes the PortAudio library. Call Close to
// release it.
func NewPortAudioOutput() (*PortAudioOutput, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("decio: failed to initialize portaudio: %w", err)
	}
	return &PortAudioOutput{ringCap: 1 << 16}, nil
}

// Configure implements coordinator.Output: it (re)opens the playback
// stream for the negotiated output format. afchain's filter chain
// always negotiates down to interleaved float samples for the output
// end (af.FormatFloat), so the device callback only ever deals with
// one representation.
func (o *PortAudioOutput) Configure(cfg af.AudioConfig) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stream != nil {
		_ = o.stream.Close()
		o.stream = nil
	}

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return fmt.Errorf("decio: no default host api: %w", err)
	}
	params := portaudio.HighLatencyParameters(nil, host.DefaultOutputDevice)
	params.Output.Channels = cfg.Channels.NumChannels()
	params.SampleRate = float64(cfg.Rate)

	o.cfg = cfg
	o.ring = make([]float32, 0, o.ringCap)

	stream, err := portaudio.OpenStream(params, o.callback)
	if err != nil {
		return fmt.Errorf("decio: failed to open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		return fmt.Errorf("decio: failed to start output stream: %w", err)
	}
	o.stream = stream
	return nil
}

// callback is PortAudio's pull model: it asks us to fill out, and we
// hand back whatever is queued, zero-padding the rest as silence.
func (o *PortAudioOutput) callback(out []float32) {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := copy(out, o.ring)
	o.ring = o.ring[n:]
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}

// GetSpace reports free capacity in the device ring buffer, in sample
// frames (spec.md §4.F).
func (o *PortAudioOutput) GetSpace() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	channels := max(o.cfg.Channels.NumChannels(), 1)
	free := o.ringCap - len(o.ring)
	return free / channels
}

// Write appends samples sample-frames of interleaved float32 data from
// data[0] to the ring buffer, returning the number of sample frames
// actually accepted.
func (o *PortAudioOutput) Write(data af.PlanarBuffers, samples int) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	channels := max(o.cfg.Channels.NumChannels(), 1)
	floats := bytesToFloat32(data[0])

	free := (o.ringCap - len(o.ring)) / channels
	n := min(samples, free)
	o.ring = append(o.ring, floats[:n*channels]...)
	return n, nil
}

// GetDelay reports queued-but-unplayed audio, in seconds.
func (o *PortAudioOutput) GetDelay() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	channels := max(o.cfg.Channels.NumChannels(), 1)
	if o.cfg.Rate == 0 {
		return 0
	}
	return float64(len(o.ring)/channels) / float64(o.cfg.Rate)
}

// Pause stops pulling the device without releasing it.
func (o *PortAudioOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stream != nil && !o.paused {
		_ = o.stream.Stop()
		o.paused = true
	}
}

// Resume restarts a paused stream.
func (o *PortAudioOutput) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stream != nil && o.paused {
		_ = o.stream.Start()
		o.paused = false
	}
}

// Drain is a no-op kept to satisfy the Output interface; the
// coordinator never calls it and instead waits for GetDelay to reach
// zero before moving to EOF.
func (o *PortAudioOutput) Drain() {}

// Close tears the stream down and releases PortAudio.
func (o *PortAudioOutput) Close() error {
	o.mu.Lock()
	stream := o.stream
	o.stream = nil
	o.mu.Unlock()

	if stream != nil {
		if err := stream.Close(); err != nil {
			_ = portaudio.Terminate()
			return fmt.Errorf("decio: failed to close output stream: %w", err)
		}
	}
	return portaudio.Terminate()
}

func bytesToFloat32(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
