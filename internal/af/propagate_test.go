package af

import "testing"

func TestFilterFrameIntoChainThenOutputFrameRoundTrips(t *testing.T) {
	c := newTestChain(t)
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}

	in := NewFrame(c.Input, 1024)
	in.Data = PlanarBuffers{make([]byte, 1024*8)}
	if err := c.FilterFrameIntoChain(in); err != nil {
		t.Fatalf("FilterFrameIntoChain: %v", err)
	}

	out, err := c.OutputFrame(false)
	if err != nil {
		t.Fatalf("OutputFrame: %v", err)
	}
	if out == nil {
		t.Fatalf("expected a frame back from a trivial chain")
	}
	if out.Samples != 1024 {
		t.Fatalf("expected sample count preserved, got %d", out.Samples)
	}
	if !out.Config.Equals(c.Last().FmtIn) {
		t.Fatalf("expected returned frame's config to match the chain's negotiated output")
	}
}

func TestOutputFrameReturnsNilWhenNothingQueuedAndNotEOF(t *testing.T) {
	c := newTestChain(t)
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	out, err := c.OutputFrame(false)
	if err != nil {
		t.Fatalf("OutputFrame: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil frame from an empty, non-EOF chain")
	}
}

func TestUnreadOutputFrameIsReturnedAgain(t *testing.T) {
	c := newTestChain(t)
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	in := NewFrame(c.Input, 512)
	in.Data = PlanarBuffers{make([]byte, 512*8)}
	if err := c.FilterFrameIntoChain(in); err != nil {
		t.Fatalf("FilterFrameIntoChain: %v", err)
	}
	out, err := c.OutputFrame(false)
	if err != nil || out == nil {
		t.Fatalf("OutputFrame: %v, %v", out, err)
	}
	c.UnreadOutputFrame(out)

	again, err := c.OutputFrame(false)
	if err != nil {
		t.Fatalf("OutputFrame after unread: %v", err)
	}
	if again != out {
		t.Fatalf("expected UnreadOutputFrame's frame to come back first")
	}
}

func TestFilterFrameIntoChainRejectsMismatchedConfig(t *testing.T) {
	c := newTestChain(t)
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	wrong := NewFrame(mono44(), 100)
	if err := c.FilterFrameIntoChain(wrong); err == nil {
		t.Fatalf("expected an error pushing a frame with the wrong config")
	}
}

func TestCalcDelaySumsPerFilterDelay(t *testing.T) {
	c := newTestChain(t)
	a, err := c.Add("identity", "a", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	b, err := c.Add("identity", "b", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	a.Delay = 0.01
	b.Delay = 0.02
	if got := c.CalcDelay(); got < 0.0299 || got > 0.0301 {
		t.Fatalf("expected CalcDelay to sum per-filter delays, got %v", got)
	}
}
