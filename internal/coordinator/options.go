package coordinator

import "github.com/linuxmatters/afchain/internal/af"

// SpeedMechanism selects how the speed policy realises a playback
// speed change (spec.md §4.G).
type SpeedMechanism int

const (
	// SpeedScaletempo preserves pitch via the "scaletempo" filter.
	SpeedScaletempo SpeedMechanism = iota
	// SpeedResample changes pitch along with tempo by scaling the
	// chain's declared input rate, which the auto-inserted resampler
	// then converts to the unchanged output rate.
	SpeedResample
)

// Options configures a Coordinator at construction time (spec.md §4.F,
// ambient configuration layer).
type Options struct {
	Output       af.AudioConfig
	DeviceBuffer int // sample frames the output device should buffer
	Speed        float64
	SpeedMode    SpeedMechanism
	Volume       float64
	Balance      float64
	Gapless      GaplessMode
	HumNotch     bool // insert a mains-hum notch filter via the lavfi bridge
	HumNotchHz   int  // 0 means "detect from system timezone" (internal/mains)
	Logger       af.Logger
}

// GaplessMode controls how track boundaries are handled (spec.md §9
// supplemented feature).
type GaplessMode int

const (
	// GaplessAuto keeps the chain open across a track change only when
	// the new track's format matches; otherwise it reinitialises.
	GaplessAuto GaplessMode = iota
	// GaplessWeak never tears the chain down or reconfigures the output:
	// a format change is absorbed by renegotiating the existing chain.
	GaplessWeak
	// GaplessNo always tears the chain down between tracks.
	GaplessNo
)

// DefaultOptions returns sensible defaults matching an unmodified
// filter chain at unity gain, full speed, centred balance.
func DefaultOptions() Options {
	return Options{
		DeviceBuffer: 8192,
		Speed:        1.0,
		SpeedMode:    SpeedScaletempo,
		Volume:       1.0,
		Balance:      0,
		Gapless:      GaplessAuto,
		Logger:       af.NopLogger{},
	}
}
