package coordinator

import (
	"strconv"

	"github.com/linuxmatters/afchain/internal/af"
	"github.com/linuxmatters/afchain/internal/mains"
)

// humNotchLabel is the well-known label of the optional mains-hum notch
// filter, routed through the lavfi bridge as "bandreject" (spec.md §4
// domain stack: internal/mains wiring).
const humNotchLabel = "afchain-hum-notch"

// applyHumNotch inserts (or removes) a narrow band-reject filter tuned
// to the local mains frequency, ahead of the rest of the chain. The
// frequency defaults to whatever internal/mains.Frequency detects from
// the system timezone when opts.HumNotchHz is zero.
func (c *Coordinator) applyHumNotch(enable bool) error {
	if !enable {
		if c.chain.FindByLabel(humNotchLabel) != nil {
			return c.chain.RemoveByLabel(humNotchLabel)
		}
		return nil
	}
	if c.chain.FindByLabel(humNotchLabel) != nil {
		return nil
	}

	hz := c.opts.HumNotchHz
	if hz == 0 {
		hz = mains.Frequency()
	}

	args := []af.KV{
		{Key: "f", Value: strconv.Itoa(hz)},
		{Key: "width_type", Value: "h"},
		{Key: "w", Value: "4"},
	}
	fi, err := c.chain.Prepend(c.chain.First(), "lavfi-bandreject", args)
	if err != nil {
		return err
	}
	fi.Label = humNotchLabel
	if err := c.chain.Reinit(); err != nil {
		c.chain.RemoveByLabel(humNotchLabel)
		return err
	}
	return nil
}
