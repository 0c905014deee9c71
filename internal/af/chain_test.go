package af

import "testing"

func stereo48() AudioConfig {
	return AudioConfig{Format: FormatFloat, Channels: Stereo, Rate: 48000}
}

func mono44() AudioConfig {
	return AudioConfig{Format: FormatFloat, Channels: Mono, Rate: 44100}
}

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	c := New(fakeReg(), nil)
	c.Input = stereo48()
	c.Output = stereo48()
	return c
}

func TestNewChainHasLinkedSentinels(t *testing.T) {
	c := New(fakeReg(), nil)
	if c.First().Next() != c.Last() {
		t.Fatalf("expected empty chain's head to point directly at tail")
	}
	if c.Last().Prev() != c.First() {
		t.Fatalf("expected empty chain's tail to point directly at head")
	}
	if !c.First().IsSentinel() || !c.Last().IsSentinel() {
		t.Fatalf("sentinels should report IsSentinel() true")
	}
}

func TestPrependInsertsBeforeGivenFilter(t *testing.T) {
	c := newTestChain(t)
	a, err := c.Prepend(c.Last(), "identity", nil)
	if err != nil {
		t.Fatalf("Prepend a: %v", err)
	}
	b, err := c.Prepend(a, "identity", nil)
	if err != nil {
		t.Fatalf("Prepend b: %v", err)
	}
	if c.First().Next() != b || b.Next() != a || a.Next() != c.Last() {
		t.Fatalf("expected order in,b,a,out; got in,%p,%p,out", b, a)
	}
}

func TestPrependNeverPlacesBeforeHeadSentinel(t *testing.T) {
	c := newTestChain(t)
	f, err := c.Prepend(c.First(), "identity", nil)
	if err != nil {
		t.Fatalf("Prepend: %v", err)
	}
	if c.First().Next() != f {
		t.Fatalf("expected filter right after head sentinel, not before it")
	}
}

func TestRemoveIsNoOpOnSentinels(t *testing.T) {
	c := newTestChain(t)
	c.Remove(c.First())
	c.Remove(c.Last())
	if c.First().Next() != c.Last() {
		t.Fatalf("removing a sentinel must not mutate the chain")
	}
}

func TestAddAndFindByLabel(t *testing.T) {
	c := newTestChain(t)
	fi, err := c.Add("identity", "myfilter", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if fi.Label != "myfilter" {
		t.Fatalf("expected label to stick")
	}
	if got := c.FindByLabel("myfilter"); got != fi {
		t.Fatalf("FindByLabel did not return the added filter")
	}
	if c.FindByLabel("nope") != nil {
		t.Fatalf("FindByLabel should return nil for an unknown label")
	}
}

func TestAddRejectsDuplicateLabel(t *testing.T) {
	c := newTestChain(t)
	if _, err := c.Add("identity", "dup", nil); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if _, err := c.Add("identity", "dup", nil); err == nil {
		t.Fatalf("expected duplicate label to be rejected")
	}
}

func TestRemoveByLabelRenegotiates(t *testing.T) {
	c := newTestChain(t)
	if _, err := c.Add("identity", "a", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := c.RemoveByLabel("a"); err != nil {
		t.Fatalf("RemoveByLabel: %v", err)
	}
	if c.FindByLabel("a") != nil {
		t.Fatalf("filter should be gone after RemoveByLabel")
	}
	if c.Initialized() != StateOK {
		t.Fatalf("chain should still be negotiated OK after removing a trivial filter")
	}
}

func TestRemoveByLabelOnMissingLabelIsNotAnError(t *testing.T) {
	c := newTestChain(t)
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := c.RemoveByLabel("missing"); err != nil {
		t.Fatalf("removing a label that was never added should be a no-op, got %v", err)
	}
}

func TestUninitRemovesEveryRealFilter(t *testing.T) {
	c := newTestChain(t)
	c.Add("identity", "a", nil)
	c.Add("identity", "b", nil)
	c.Uninit()
	if c.First().Next() != c.Last() {
		t.Fatalf("expected every non-sentinel filter removed after Uninit")
	}
	if c.Initialized() != StateUninit {
		t.Fatalf("expected StateUninit after Uninit")
	}
}
