package logging

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	statusLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	statusValueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	statusStateStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AA00"))
)

// StatusLine renders the coordinator's periodic one-line status
// (state, written PTS, chain delay, skip/duplicate counters), adapted
// from the teacher's lipgloss-styled key/value printing in
// internal/cli/styles.go (PrintInfo) onto the playback coordinator's
// own fields instead of loudness metrics (spec.md §4.F diagnostics).
func StatusLine(state string, writtenPTS, delaySeconds float64, skipSamples, duplicateSamples int) string {
	return fmt.Sprintf("%s  %s=%s  %s=%s  %s=%s  %s=%s",
		statusStateStyle.Render(state),
		statusLabelStyle.Render("pts"), statusValueStyle.Render(fmt.Sprintf("%.3f", writtenPTS)),
		statusLabelStyle.Render("delay"), statusValueStyle.Render(fmt.Sprintf("%.3fs", delaySeconds)),
		statusLabelStyle.Render("skip"), statusValueStyle.Render(fmt.Sprintf("%d", skipSamples)),
		statusLabelStyle.Render("dup"), statusValueStyle.Render(fmt.Sprintf("%d", duplicateSamples)),
	)
}
