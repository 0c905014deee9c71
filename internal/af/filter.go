package af

// ControlCommand is the (open) tagged-message set filters respond to.
// Commands may be added by individual filters; UNKNOWN is always the
// safe default response (spec.md §9 design note: "do not use
// inheritance").
type ControlCommand int

const (
	// CmdReinit negotiates the input config. On ResultFalse the filter
	// mutates the passed-in *AudioConfig to the input it actually wants;
	// on ResultOK whatever the config holds afterwards is recorded by
	// negotiation as the filter's FmtOut (the filter itself does not set
	// FmtOut).
	CmdReinit ControlCommand = iota
	// CmdReset flushes internal filter state (seek).
	CmdReset
	// CmdSetVolume carries a *float64 gain.
	CmdSetVolume
	// CmdSetPlaybackSpeed carries a *float64 speed, tempo-scaler path.
	CmdSetPlaybackSpeed
	// CmdSetPlaybackSpeedResample carries a *float64 speed, resampler path.
	CmdSetPlaybackSpeedResample
	// CmdSetPanBalance carries a *float64 in [-1, 1].
	CmdSetPanBalance
	// CmdSetPanLevel carries a *PanLevelArg.
	CmdSetPanLevel
	// CmdCommand carries a *CommandArg for label-addressed runtime control.
	CmdCommand
)

// PanLevelArg is the argument for CmdSetPanLevel: set the output level
// of input channel Channel across all output channels to Levels.
type PanLevelArg struct {
	Channel int
	Levels  []float32
}

// CommandArg is the argument for CmdCommand.
type CommandArg struct {
	Cmd string
	Arg string
}

// Result is the outcome of a filter's Control call.
type Result int

const (
	// ResultOK: accepted current input and produced its FmtOut.
	ResultOK Result = iota
	// ResultFalse: input needs conversion.
	ResultFalse
	// ResultDetach: filter wants itself removed, it is redundant.
	ResultDetach
	// ResultError: hard failure.
	ResultError
	// ResultUnknown: command not handled by this filter.
	ResultUnknown
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultFalse:
		return "FALSE"
	case ResultDetach:
		return "DETACH"
	case ResultError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Callbacks is the filter descriptor contract (spec.md §6). Open is
// called once at creation time; FilterFrame is mandatory, the rest are
// optional (nil means "not supported").
type Callbacks struct {
	// Open initialises the filter instance's private state.
	Open func(f *FilterInstance) error
	// Control dispatches a command. Must default to ResultUnknown for
	// anything it doesn't recognise.
	Control func(f *FilterInstance, cmd ControlCommand, arg any) Result
	// FilterFrame consumes one frame (ownership transferred) or nil to
	// signal EOF drain. It may append zero or more frames to f.OutQueue
	// via f.AddOutputFrame. Mandatory.
	FilterFrame func(f *FilterInstance, frame *Frame) error
	// FilterOut optionally produces more output without new input
	// (buffered/pull-side filters).
	FilterOut func(f *FilterInstance) error
	// Uninit releases any resources Open acquired.
	Uninit func(f *FilterInstance)
}

// Descriptor is the static catalogue entry for one filter kind
// (spec.md §4.A).
type Descriptor struct {
	Name        string
	Description string
	// NewPrivate returns a fresh, defaulted options value for this
	// filter kind; Create passes it (after arg parsing) to the instance.
	NewPrivate func() any
	// ParseArgs applies a filter spec's KV args onto a private options
	// value created by NewPrivate. Returns an error on an unrecognised
	// or malformed option.
	ParseArgs func(priv any, args []KV) error
	// Factory builds the callback set for one instance of this filter.
	Factory func() Callbacks
}

// KV is one key/value pair from a filter spec's argument list.
type KV struct {
	Key, Value string
}

// FilterInstance is one stage in the chain (spec.md §3). Sentinels
// ("in"/"out") are also represented as a FilterInstance with fixed
// callbacks, no descriptor (Info is nil) and no auto-insertion.
type FilterInstance struct {
	Name         string
	Label        string
	Info         *Descriptor
	Priv         any
	FmtIn        AudioConfig
	FmtOut       AudioConfig
	Delay        float64 // seconds
	OutQueue     []*Frame
	AutoInserted bool

	callbacks Callbacks

	prev, next *FilterInstance
	chain      *Chain
}

// Prev returns the predecessor in the chain, or nil only when called on
// the head sentinel.
func (f *FilterInstance) Prev() *FilterInstance { return f.prev }

// Next returns the successor in the chain, or nil only when called on
// the tail sentinel.
func (f *FilterInstance) Next() *FilterInstance { return f.next }

// IsSentinel reports whether f is the chain's head or tail marker.
func (f *FilterInstance) IsSentinel() bool {
	return f.chain != nil && (f == f.chain.first || f == f.chain.last)
}

// AddOutputFrame appends frame to the filter's output queue. Ownership
// of frame transfers to the chain. Panics if frame's config does not
// match f.FmtOut — this is an invariant violation by the filter
// implementation, not a runtime/user error (spec.md §3 invariant 5).
func (f *FilterInstance) AddOutputFrame(frame *Frame) {
	if frame == nil {
		return
	}
	if !frame.Config.Equals(f.FmtOut) {
		panic("af: filter " + f.Name + " queued a frame with mismatched config")
	}
	f.OutQueue = append(f.OutQueue, frame)
}

func (f *FilterInstance) forgetFrames() {
	f.OutQueue = nil
}

func (f *FilterInstance) control(cmd ControlCommand, arg any) Result {
	if f.callbacks.Control == nil {
		return ResultUnknown
	}
	return f.callbacks.Control(f, cmd, arg)
}

func (f *FilterInstance) doFilterFrame(frame *Frame) error {
	if f.callbacks.FilterFrame == nil {
		return nil
	}
	return f.callbacks.FilterFrame(f, frame)
}

func (f *FilterInstance) doFilterOut() error {
	if f.callbacks.FilterOut == nil {
		return nil
	}
	return f.callbacks.FilterOut(f)
}
