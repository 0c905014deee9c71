package coordinator

import (
	"math"

	"github.com/linuxmatters/afchain/internal/af"
)

// volumeLabel is the well-known label the volume policy installs its
// filter under, so later calls can find it again without the caller
// tracking a *af.FilterInstance itself (spec.md §4.G).
const volumeLabel = "afchain-volume"

// applyVolume pushes gain to the chain's volume filter, inserting one
// labeled volumeLabel on first use (spec.md §4.G, grounded on the
// original's audio_update_volume). gain is applied as given: its one
// caller, Start, passes opts.Volume unchanged, so no replaygain
// adjustment (effectiveGain) is folded in on this path.
func (c *Coordinator) applyVolume(gain float64) error {
	if f := c.chain.FindByLabel(volumeLabel); f != nil {
		res, _ := c.chain.ControlByLabel(volumeLabel, af.CmdSetVolume, &gain)
		if res == af.ResultOK {
			return nil
		}
	}
	_, err := c.chain.Add("volume", volumeLabel, []af.KV{})
	if err != nil {
		return err
	}
	_, ok := c.chain.ControlByLabel(volumeLabel, af.CmdSetVolume, &gain)
	if !ok {
		return errNoVolumeFilter
	}
	return nil
}

// effectiveGain combines the user-facing volume slider with any
// replaygain adjustment the decoder supplied, exactly as the original
// folds replaygain into the single gain value handed to the filter
// (spec.md §9 supplemented feature).
func effectiveGain(userVolume float64, rg *af.ReplayGainData, rgEnabled bool) float64 {
	if !rgEnabled || rg == nil || rg.TrackGain == 0 {
		return userVolume
	}
	return userVolume * math.Pow(10, rg.TrackGain/20)
}

var errNoVolumeFilter = volumeFilterMissingError{}

type volumeFilterMissingError struct{}

func (volumeFilterMissingError) Error() string {
	return "coordinator: volume filter control rejected after insertion"
}
