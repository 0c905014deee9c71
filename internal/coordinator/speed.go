package coordinator

import "github.com/linuxmatters/afchain/internal/af"

// speedLabel is the well-known label of the chain's tempo-preserving
// speed filter, used only by the SpeedScaletempo mechanism (spec.md
// §4.G).
const speedLabel = "afchain-speed"

// applySpeed realises a playback speed change via whichever mechanism
// c.opts.SpeedMode selects. SpeedResample removes any speedLabel
// filter, sets c.decoderRateScale and calls reinitFiltersAndOutput,
// which rebuilds the chain from scratch with the scale folded into the
// chain's declared Input.Rate, so the auto-inserted resampler does the
// rate change (spec.md §4.G,
// grounded on the original's recreate_speed_filters/update speed split
// between "scaletempo" and "resample" mechanisms).
func (c *Coordinator) applySpeed(speed float64) error {
	switch c.opts.SpeedMode {
	case SpeedResample:
		if f := c.chain.FindByLabel(speedLabel); f != nil {
			c.chain.RemoveByLabel(speedLabel)
		}
		c.decoderRateScale = speed
		return c.reinitFiltersAndOutput()
	default:
		if c.decoderRateScale != 1.0 {
			c.decoderRateScale = 1.0
			if err := c.reinitFiltersAndOutput(); err != nil {
				return err
			}
		}
		if c.chain.FindByLabel(speedLabel) == nil {
			if _, err := c.chain.Add("scaletempo", speedLabel, nil); err != nil {
				return err
			}
		}
		if _, ok := c.chain.ControlByLabel(speedLabel, af.CmdSetPlaybackSpeed, &speed); !ok {
			return errSpeedFilterMissing
		}
		return nil
	}
}

var errSpeedFilterMissing = speedFilterMissingError{}

type speedFilterMissingError struct{}

func (speedFilterMissingError) Error() string {
	return "coordinator: speed filter control rejected after insertion"
}
