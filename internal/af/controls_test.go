package af

import "testing"

func TestControlByLabelReachesNamedFilter(t *testing.T) {
	c := newTestChain(t)
	if _, err := c.Add("wantStereo", "ws", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	res, ok := c.ControlByLabel("ws", CmdReinit, &AudioConfig{})
	if !ok {
		t.Fatalf("expected ControlByLabel to find the filter")
	}
	_ = res
	if _, ok := c.ControlByLabel("missing", CmdReset, nil); ok {
		t.Fatalf("expected ControlByLabel on an unknown label to report !ok")
	}
}

func TestControlAllReachesEveryRealFilter(t *testing.T) {
	c := newTestChain(t)
	c.Add("identity", "a", nil)
	c.Add("identity", "b", nil)

	var seen int
	for f := c.First().Next(); f != c.Last(); f = f.Next() {
		seen++
	}
	if seen != 2 {
		t.Fatalf("expected 2 real filters in the chain, counted %d", seen)
	}
	// ControlAll must not panic or error for commands neither filter
	// understands.
	c.ControlAll(CmdReset, nil)
}

func TestControlAnyRevStopsAtFirstOK(t *testing.T) {
	c := newTestChain(t)
	c.Add("identity", "a", nil)
	ok := c.ControlAnyRev(CmdReinit, &AudioConfig{})
	if !ok {
		t.Fatalf("expected at least one filter to answer OK to CmdReinit")
	}
}

func TestSeekResetClearsQueuedFrames(t *testing.T) {
	c := newTestChain(t)
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	in := NewFrame(c.Input, 256)
	in.Data = PlanarBuffers{make([]byte, 256*8)}
	if err := c.FilterFrameIntoChain(in); err != nil {
		t.Fatalf("FilterFrameIntoChain: %v", err)
	}
	if !c.First().hasOutputFrame() {
		t.Fatalf("expected a queued frame before SeekReset")
	}
	c.SeekReset()
	if c.First().hasOutputFrame() {
		t.Fatalf("expected SeekReset to clear queued frames")
	}
}
