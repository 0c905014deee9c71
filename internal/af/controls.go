package af

// ControlAll sends cmd/arg to every real (non-sentinel) filter, head to
// tail, regardless of individual results. Used for broadcast commands
// like CmdReset where every filter must see the command (spec.md §4.E).
func (c *Chain) ControlAll(cmd ControlCommand, arg any) {
	for f := c.first.next; f != c.last; f = f.next {
		f.control(cmd, arg)
	}
}

// ControlAnyRev sends cmd/arg to filters from tail to head, stopping
// and returning true as soon as one of them answers ResultOK. Used for
// commands with a single intended recipient discovered by capability
// rather than by label, e.g. "whichever filter understands playback
// speed" (spec.md §4.E).
func (c *Chain) ControlAnyRev(cmd ControlCommand, arg any) bool {
	for f := c.last.prev; f != c.first; f = f.prev {
		if f.control(cmd, arg) == ResultOK {
			return true
		}
	}
	return false
}

// ControlByLabel sends cmd/arg to the single filter carrying label,
// returning ResultError (via ok=false) if no such filter exists (spec.md
// §4.E).
func (c *Chain) ControlByLabel(label string, cmd ControlCommand, arg any) (Result, bool) {
	f := c.FindByLabel(label)
	if f == nil {
		return ResultError, false
	}
	return f.control(cmd, arg), true
}

// SendCommand delivers an arbitrary named command/argument pair to the
// filter labeled label, used by runtime filter-specific controls that
// don't warrant a dedicated ControlCommand constant (spec.md §4.E, §6).
func (c *Chain) SendCommand(label, cmdName, argStr string) (Result, bool) {
	return c.ControlByLabel(label, CmdCommand, &CommandArg{Cmd: cmdName, Arg: argStr})
}

// SeekReset broadcasts CmdReset to every filter and discards any
// queued output frames chain-wide, for use right after a seek (spec.md
// §4.E, §4.F).
func (c *Chain) SeekReset() {
	c.ControlAll(CmdReset, nil)
	c.forgetAllFrames()
}
