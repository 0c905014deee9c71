package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/afchain/internal/af"
	"github.com/linuxmatters/afchain/internal/af/filters"
	"github.com/linuxmatters/afchain/internal/cli"
	"github.com/linuxmatters/afchain/internal/coordinator"
	"github.com/linuxmatters/afchain/internal/decio"
	"github.com/linuxmatters/afchain/internal/logging"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "0.1.0")
var version = "dev"

// CLI defines the command-line interface
type CLI struct {
	Version     bool    `short:"v" help:"Show version information"`
	Debug       bool    `short:"d" help:"Enable debug logging to afchain-debug.log"`
	Volume      float64 `help:"Linear playback gain" default:"1.0"`
	Balance     float64 `help:"Stereo balance, -1 (left) to 1 (right)" default:"0"`
	Speed       float64 `help:"Playback speed multiplier" default:"1.0"`
	PreservePitch bool  `help:"Preserve pitch when changing speed (scaletempo); otherwise speed is realised by resampling" default:"true" negatable:""`
	HumNotch    bool    `help:"Insert a mains-hum notch filter ahead of the rest of the chain"`
	File        string  `arg:"" name:"file" help:"Audio file to play" type:"existingfile"`
}

func main() {
	ffmpeg.AVLogSetLevel(ffmpeg.AVLogError)

	cliArgs := &CLI{}
	kong.Parse(cliArgs,
		kong.Name("afchain"),
		kong.Description("Audio filter chain engine and playback coordinator"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	var debugLog *os.File
	if cliArgs.Debug {
		debugLog, _ = os.Create("afchain-debug.log")
		defer debugLog.Close()
	}
	logger := debugLogger{f: debugLog}

	if err := run(cliArgs, logger); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// debugLogger satisfies af.Logger by writing to an optional debug file,
// matching the teacher's package-level debug-log-to-file convention
// (cmd/jivetalking/main.go's closure-backed log) but as an injected
// value instead of a global (spec.md §3 "never global mutable state").
type debugLogger struct{ f *os.File }

func (l debugLogger) Logf(format string, args ...any) {
	if l.f != nil {
		fmt.Fprintf(l.f, format+"\n", args...)
	}
}

func run(cliArgs *CLI, logger debugLogger) error {
	dec, err := decio.OpenFile(cliArgs.File)
	if err != nil {
		return fmt.Errorf("afchain: %w", err)
	}
	defer dec.Close()

	out, err := decio.NewPortAudioOutput()
	if err != nil {
		return fmt.Errorf("afchain: %w", err)
	}
	defer out.Close()

	reg := filters.Builtins()

	opts := coordinator.DefaultOptions()
	opts.Output = af.AudioConfig{Format: af.FormatFloat}
	opts.Volume = cliArgs.Volume
	opts.Balance = cliArgs.Balance
	opts.Speed = cliArgs.Speed
	opts.HumNotch = cliArgs.HumNotch
	opts.Logger = logger
	if cliArgs.PreservePitch {
		opts.SpeedMode = coordinator.SpeedScaletempo
	} else {
		opts.SpeedMode = coordinator.SpeedResample
	}

	coord := coordinator.New(reg, dec, out, dec.Config(), opts)

	ctx := context.Background()
	if err := coord.Start(ctx); err != nil {
		if failingLabel, ok := negotiationFailure(err); ok {
			dump := logging.DumpChain(coord.Chain(), failingLabel)
			logger.Logf("afchain: negotiation failed, chain dump:\n%s", dump)
		}
		return fmt.Errorf("afchain: %w", err)
	}

	startWall := time.Now()
	startedAt := coord.WrittenPTS()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for coord.Status() != coordinator.StatusEOF {
		externalClockPTS := startedAt + time.Since(startWall).Seconds()
		if err := coord.FillAudioOutBuffers(ctx, externalClockPTS); err != nil {
			return fmt.Errorf("afchain: %w", err)
		}
		skipped, duplicated := coord.SyncCounters()
		logger.Logf("%s", logging.StatusLine(coord.Status().String(), coord.WrittenPTS(), coord.Delay(), skipped, duplicated))
		<-ticker.C
	}

	skipped, duplicated := coord.SyncCounters()
	cli.PrintPlaybackSummary(
		cliArgs.File,
		cli.FormatDuration(time.Since(startWall)),
		coord.Chain().Output.String(),
		skipped, duplicated,
	)
	return nil
}

// negotiationFailure returns the label or name of the failing filter
// when err wraps an *af.NegotiationError, so the caller can mark it in
// the verbose chain dump the error-handling design calls for
// (spec.md §7 "descriptive log including a printed chain with a marker
// at the failing filter").
func negotiationFailure(err error) (string, bool) {
	var negErr *af.NegotiationError
	if !asNegotiationError(err, &negErr) {
		return "", false
	}
	return negErr.FailingFilter, true
}

func asNegotiationError(err error, target **af.NegotiationError) bool {
	for err != nil {
		if ne, ok := err.(*af.NegotiationError); ok {
			*target = ne
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
