// Package logging renders diagnostic dumps of the filter chain and the
// playback coordinator's status line, adapted from the teacher's
// internal/logging aligned-column table formatting (originally built
// for LUFS measurement comparison tables) onto this engine's own data:
// filter stages instead of loudness metrics.
package logging

import (
	"fmt"
	"strings"

	"github.com/linuxmatters/afchain/internal/af"
)

// FilterRow is one rendered line of a chain dump: one filter instance's
// name, label, negotiated input/output configs and delay.
type FilterRow struct {
	Name     string
	Label    string
	FmtIn    string
	FmtOut   string
	Delay    float64
	Auto     bool
	Failing  bool
}

// ChainTable holds the rows for one chain dump render.
type ChainTable struct {
	Rows []FilterRow
}

// DumpChain walks chain head to tail and builds a ChainTable, marking
// failingLabel (if non-empty, matched against each filter's label or
// else its name) so String can annotate the filter negotiation gave up
// at — mirrors the original's af_print_filter_chain, which prints the
// whole chain with a "<-" marker at the failing stage (spec.md §7).
func DumpChain(chain *af.Chain, failingLabel string) *ChainTable {
	t := &ChainTable{}
	for f := chain.First(); f != nil; f = f.Next() {
		tag := f.Label
		if tag == "" {
			tag = f.Name
		}
		t.Rows = append(t.Rows, FilterRow{
			Name:    f.Name,
			Label:   f.Label,
			FmtIn:   f.FmtIn.String(),
			FmtOut:  f.FmtOut.String(),
			Delay:   f.Delay,
			Auto:    f.AutoInserted,
			Failing: failingLabel != "" && tag == failingLabel,
		})
	}
	return t
}

// String renders the table with aligned columns: a "<-" marker trails
// the failing filter's row, "*" marks auto-inserted converters.
func (t *ChainTable) String() string {
	if len(t.Rows) == 0 {
		return "(empty chain)"
	}

	nameWidth, inWidth, outWidth := len("filter"), len("in"), len("out")
	for _, r := range t.Rows {
		if w := len(rowName(r)); w > nameWidth {
			nameWidth = w
		}
		if w := len(r.FmtIn); w > inWidth {
			inWidth = w
		}
		if w := len(r.FmtOut); w > outWidth {
			outWidth = w
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-*s  %-*s  %-*s  %8s\n", nameWidth, "filter", inWidth, "in", outWidth, "out", "delay")
	for _, r := range t.Rows {
		fmt.Fprintf(&sb, "%-*s  %-*s  %-*s  %7.3fs%s\n",
			nameWidth, rowName(r), inWidth, r.FmtIn, outWidth, r.FmtOut, r.Delay, marker(r))
	}
	return sb.String()
}

func rowName(r FilterRow) string {
	name := r.Name
	if r.Label != "" {
		name = fmt.Sprintf("%s (%s)", name, r.Label)
	}
	if r.Auto {
		name += " *"
	}
	return name
}

func marker(r FilterRow) string {
	if r.Failing {
		return "  <- negotiation failed here"
	}
	return ""
}
