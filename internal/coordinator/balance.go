package coordinator

import "github.com/linuxmatters/afchain/internal/af"

// balanceLabel is the well-known label of the chain's stereo-balance
// filter (spec.md §4.G).
const balanceLabel = "afchain-balance"

// applyBalance pushes a new stereo balance to the chain, inserting the
// "pan" filter labeled balanceLabel on first use.
//
// The original mpv implementation this engine is modeled on has a
// long-standing quirk where balance is computed against the *current*
// pan matrix rather than a fixed identity, so repeated balance changes
// compound instead of each one being absolute. This engine deliberately
// does not reproduce that: applyBalance always sets balance from a
// centred baseline (spec.md §9 Open Question, REDESIGN FLAG).
func (c *Coordinator) applyBalance(balance float64) error {
	if c.chain.FindByLabel(balanceLabel) == nil {
		if _, err := c.chain.Add("pan", balanceLabel, nil); err != nil {
			return err
		}
	}
	if _, ok := c.chain.ControlByLabel(balanceLabel, af.CmdSetPanBalance, &balance); !ok {
		return errBalanceFilterMissing
	}
	return nil
}

var errBalanceFilterMissing = balanceFilterMissingError{}

type balanceFilterMissingError struct{}

func (balanceFilterMissingError) Error() string {
	return "coordinator: balance filter control rejected after insertion"
}
