package af

import "fmt"

// State is the chain's negotiation status (spec.md §3).
type State int

const (
	StateUninit State = 0
	StateOK     State = 1
	StateError  State = -1
)

// ReplayGainData carries track/album loudness metadata sourced from the
// decoder, consulted by the volume policy (spec.md §4.G).
type ReplayGainData struct {
	TrackGain, TrackPeak float64
	AlbumGain, AlbumPeak float64
}

// Logger is the minimal logging seam the chain and coordinator accept.
// Satisfied by a closure-backed debug logger, matching the teacher's
// package-level debug-log-to-file convention without a global variable.
type Logger interface {
	Logf(format string, args ...any)
}

// NopLogger discards everything. Used when no logger is supplied.
type NopLogger struct{}

func (NopLogger) Logf(string, ...any) {}

// AutoResamplerName is the filter name auto-inserted by negotiation
// whenever two adjacent filters disagree on format (spec.md §4.C).
const AutoResamplerName = "lavrresample"

// Chain is a doubly linked list of FilterInstances with sentinel head
// ("in") and tail ("out"); it owns its chain-wide input/output configs
// (spec.md §3).
type Chain struct {
	registry *Registry
	log      Logger

	first, last *FilterInstance

	Input         AudioConfig
	Output        AudioConfig
	FilterOutput  AudioConfig
	initialized   State
	ReplayGain    *ReplayGainData
}

// New creates a chain with both sentinels linked and nothing else. reg
// supplies the filter catalogue; log may be nil (treated as NopLogger).
func New(reg *Registry, log Logger) *Chain {
	if log == nil {
		log = NopLogger{}
	}
	c := &Chain{registry: reg, log: log}

	in := &FilterInstance{Name: "in", chain: c}
	in.callbacks = Callbacks{
		Control:     c.inputControl,
		FilterFrame: dummyFilterFrame,
	}
	out := &FilterInstance{Name: "out", chain: c}
	out.callbacks = Callbacks{
		Control:     c.outputControl,
		FilterFrame: dummyFilterFrame,
	}

	in.next = out
	out.prev = in
	c.first = in
	c.last = out
	return c
}

// dummyFilterFrame is the trivial enqueue used by both sentinels: it
// just moves the frame onto the filter's own output queue.
func dummyFilterFrame(f *FilterInstance, frame *Frame) error {
	f.AddOutputFrame(frame)
	return nil
}

// First returns the head sentinel ("in").
func (c *Chain) First() *FilterInstance { return c.first }

// Last returns the tail sentinel ("out").
func (c *Chain) Last() *FilterInstance { return c.last }

// Initialized reports the chain's current negotiation state.
func (c *Chain) Initialized() State { return c.initialized }

func (c *Chain) inputControl(f *FilterInstance, cmd ControlCommand, arg any) Result {
	if cmd == CmdReinit {
		cfg, ok := arg.(*AudioConfig)
		if !ok || *cfg != c.Input {
			panic("af: head sentinel REINIT called with a config other than chain.Input")
		}
		return ResultOK
	}
	return ResultUnknown
}

// outputControl pins the chain's output: any unset field of
// chain.FilterOutput is assigned from in, *in is overwritten with the
// pinned result, and the result is OK only if that didn't change in
// (spec.md §4.E).
func (c *Chain) outputControl(f *FilterInstance, cmd ControlCommand, arg any) Result {
	if cmd != CmdReinit {
		return ResultUnknown
	}
	in := arg.(*AudioConfig)
	orig := *in

	c.FilterOutput = c.Output
	c.FilterOutput.CopyUnsetFieldsFrom(*in)
	*in = c.FilterOutput

	if *in == orig {
		return ResultOK
	}
	return ResultFalse
}

// forEach walks the chain head to tail, including sentinels.
func (c *Chain) forEach(fn func(*FilterInstance)) {
	for f := c.first; f != nil; f = f.next {
		fn(f)
	}
}

func (c *Chain) forgetAllFrames() {
	c.forEach(func(f *FilterInstance) { f.forgetFrames() })
}

// create builds a filter instance via the registry, without linking it
// into the chain.
func (c *Chain) create(name string, args []KV) (*FilterInstance, error) {
	if c.registry == nil {
		return nil, fmt.Errorf("af: chain has no filter registry")
	}
	fi, err := c.registry.Create(name, args)
	if err != nil {
		return nil, err
	}
	fi.chain = c
	return fi, nil
}

// Prepend inserts a new filter immediately before "before". If before
// is nil, it uses Last(); if before == First(), the new filter is
// inserted after First() instead — it is never placed before the head
// sentinel (spec.md §4.B).
func (c *Chain) Prepend(before *FilterInstance, name string, args []KV) (*FilterInstance, error) {
	if before == nil {
		before = c.last
	}
	if before == c.first {
		before = c.first.next
	}
	fi, err := c.create(name, args)
	if err != nil {
		return nil, err
	}
	fi.next = before
	fi.prev = before.prev
	before.prev = fi
	fi.prev.next = fi
	return fi, nil
}

// Remove uninits and unlinks f. No-op if f is a sentinel (spec.md §4.B).
func (c *Chain) Remove(f *FilterInstance) {
	if f == nil || f == c.first || f == c.last {
		return
	}
	c.log.Logf("af: removing filter %s", f.Name)
	f.prev.next = f.next
	f.next.prev = f.prev
	if f.callbacks.Uninit != nil {
		f.callbacks.Uninit(f)
	}
	f.forgetFrames()
}

func (c *Chain) removeAutoInserted() {
repeat:
	for f := c.first; f != nil; f = f.next {
		if f.AutoInserted {
			c.Remove(f)
			goto repeat
		}
	}
}

// Add creates filter "name", labels it, inserts it just before the tail,
// and triggers renegotiation. On failure the added filter is removed and
// the chain's prior successfully-negotiated state is left intact where
// possible (spec.md §4.B).
func (c *Chain) Add(name, label string, args []KV) (*FilterInstance, error) {
	if label == "" {
		return nil, fmt.Errorf("af: Add requires a non-empty label")
	}
	if c.FindByLabel(label) != nil {
		return nil, &labelExistsError{Label: label}
	}
	fi, err := c.Prepend(c.last, name, args)
	if err != nil {
		return nil, err
	}
	fi.Label = label

	if err := c.Reinit(); err != nil {
		c.RemoveByLabel(label)
		return nil, err
	}
	return c.FindByLabel(label), nil
}

// FindByLabel does a linear scan for the first filter with the given
// label (spec.md §4.B).
func (c *Chain) FindByLabel(label string) *FilterInstance {
	if label == "" {
		return nil
	}
	for f := c.first; f != nil; f = f.next {
		if f.Label == label {
			return f
		}
	}
	return nil
}

// RemoveByLabel removes the first filter matching label and
// renegotiates. On renegotiation failure, the chain is fully uninited
// and reinitialised from scratch, and a distinct error (as opposed to
// "not found") is returned (spec.md §4.B).
func (c *Chain) RemoveByLabel(label string) error {
	f := c.FindByLabel(label)
	if f == nil {
		return nil // not found: not an error, matches original's "0 removed"
	}
	c.Remove(f)
	if err := c.Reinit(); err != nil {
		c.Uninit()
		if initErr := c.Init(nil); initErr != nil {
			return fmt.Errorf("af: reinit after removing label %q failed (%w), and full re-init also failed: %v", label, err, initErr)
		}
		return fmt.Errorf("af: reinit after removing label %q failed, chain was rebuilt: %w", label, err)
	}
	return nil
}

// Uninit uninits and removes every non-sentinel filter, in order, and
// resets negotiation state (spec.md §3 lifecycle).
func (c *Chain) Uninit() {
	for c.first.next != nil && c.first.next != c.last {
		c.Remove(c.first.next)
	}
	c.forgetAllFrames()
	c.initialized = StateUninit
}

// Destroy is an alias for Uninit kept for symmetry with the original's
// af_destroy; in Go there is no separate allocation to free.
func (c *Chain) Destroy() { c.Uninit() }

// FilterSpec describes one user-configured filter to install during
// Init's first call (name/label/args, spec.md §6).
type FilterSpec struct {
	Name  string
	Label string
	Args  []KV
}

// Init negotiates the chain. On the very first call it installs the
// user-configured filters from specs (ignored on subsequent calls, like
// the original's "is this the first call?" guard), then reinitialises
// (spec.md §4.B "Lifecycle").
func (c *Chain) Init(specs []FilterSpec) error {
	c.Input = nilData(c.Input)
	c.Output = nilData(c.Output)

	if c.first.next == c.last {
		for _, spec := range specs {
			fi, err := c.Prepend(c.last, spec.Name, spec.Args)
			if err != nil {
				c.Uninit()
				c.initialized = StateError
				return err
			}
			fi.Label = spec.Label
		}
	}

	if err := c.Reinit(); err != nil {
		return fmt.Errorf("af: could not create audio filter chain: %w", err)
	}
	return nil
}

// nilData clears a config's sample buffers worth of state; AudioConfig
// carries no buffer pointers in this Go port, so this is a no-op kept
// for symmetry with the original's mp_audio_set_null_data precaution.
func nilData(c AudioConfig) AudioConfig { return c }
