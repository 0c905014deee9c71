package coordinator

// Status is the playback coordinator's state machine (spec.md §4.F):
//
//	SYNCING -> FILLING -> READY -> PLAYING -> DRAINING -> EOF
//
// New and SeekTo enter SYNCING, which becomes FILLING at the end of
// the first fill call that writes samples (Start moves straight to
// FILLING); FILLING tops up the output device until it reports no free
// space; READY lasts one fill call and then becomes PLAYING. A fill
// call that sees the chain report EOF ends in DRAINING, whatever the
// state was, and a later one ends in EOF once the device reports no
// delay left. Nothing moves DRAINING back to PLAYING; only SeekTo
// leaves DRAINING or EOF, back to SYNCING.
type Status int

const (
	StatusSyncing Status = iota
	StatusFilling
	StatusReady
	StatusPlaying
	StatusDraining
	StatusEOF
)

func (s Status) String() string {
	switch s {
	case StatusSyncing:
		return "syncing"
	case StatusFilling:
		return "filling"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusDraining:
		return "draining"
	case StatusEOF:
		return "eof"
	default:
		return "unknown"
	}
}
