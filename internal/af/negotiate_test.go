package af

import "testing"

func TestReinitTrivialChainPassesConfigThrough(t *testing.T) {
	c := newTestChain(t)
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if c.Initialized() != StateOK {
		t.Fatalf("expected StateOK")
	}
	if !c.Last().FmtIn.Equals(c.Input) {
		t.Fatalf("with no filters, chain output config should equal chain input")
	}
}

func TestReinitInsertsConverterWhenFilterDemandsDifferentInput(t *testing.T) {
	c := New(fakeReg(), nil)
	c.Input = mono44()
	c.Output = AudioConfig{} // no forced output axes

	spec := []FilterSpec{{Name: "wantStereo", Label: "ws"}}
	if err := c.Init(spec); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if c.Initialized() != StateOK {
		t.Fatalf("expected StateOK after inserting a converter")
	}

	ws := c.FindByLabel("ws")
	if ws == nil {
		t.Fatalf("expected to find the wantStereo filter")
	}
	if ws.FmtIn.Channels.NumChannels() != 2 {
		t.Fatalf("expected an auto-inserted converter to hand wantStereo a stereo input, got %v", ws.FmtIn)
	}
	if ws.Prev().Name != AutoResamplerName {
		t.Fatalf("expected the filter immediately before wantStereo to be the auto-inserted converter, got %q", ws.Prev().Name)
	}
	if !ws.Prev().AutoInserted {
		t.Fatalf("expected the inserted converter to be marked AutoInserted")
	}
}

func TestReinitFailsWithNegotiationErrorWhenNoFilterAccepts(t *testing.T) {
	c := newTestChain(t)
	spec := []FilterSpec{{Name: "refuse", Label: "r"}}
	err := c.Init(spec)
	if err == nil {
		t.Fatalf("expected negotiation to fail")
	}
	var negErr *NegotiationError
	if !asNegotiationError(err, &negErr) {
		t.Fatalf("expected a NegotiationError in the chain, got %v", err)
	}
	if c.Initialized() != StateError {
		t.Fatalf("expected StateError after failed negotiation")
	}
}

func TestAutoInsertedConvertersAreStrippedBeforeEachReinit(t *testing.T) {
	c := New(fakeReg(), nil)
	c.Input = mono44()
	spec := []FilterSpec{{Name: "wantStereo", Label: "ws"}}
	if err := c.Init(spec); err != nil {
		t.Fatalf("Init: %v", err)
	}
	firstConverter := c.FindByLabel("ws").Prev()

	if err := c.Reinit(); err != nil {
		t.Fatalf("second Reinit: %v", err)
	}
	secondConverter := c.FindByLabel("ws").Prev()
	if firstConverter == secondConverter {
		t.Fatalf("expected Reinit to rebuild (not reuse) the auto-inserted converter")
	}
	if secondConverter.Name != AutoResamplerName {
		t.Fatalf("expected a fresh converter still in place after re-negotiation")
	}
}

func spdifAC3() AudioConfig {
	return AudioConfig{Format: FormatSPDIFAC3, Channels: Stereo, Rate: 48000}
}

func TestReinitDropsPCMOnlyFilterOnSPDIFInput(t *testing.T) {
	c := New(fakeReg(), nil)
	c.Input = spdifAC3()
	c.Output = AudioConfig{}

	spec := []FilterSpec{{Name: "pcmOnly", Label: "po"}}
	if err := c.Init(spec); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if c.Initialized() != StateOK {
		t.Fatalf("expected a pcm-only filter to be dropped rather than abort negotiation")
	}
	if c.FindByLabel("po") != nil {
		t.Fatalf("expected the pcm-only filter to be removed from the chain")
	}
	if !c.Last().FmtIn.Equals(spdifAC3()) {
		t.Fatalf("expected the passthrough format to survive bit-exact, got %v", c.Last().FmtIn)
	}
}

func TestReinitPinsOutputFromNegotiatedResult(t *testing.T) {
	c := New(fakeReg(), nil)
	c.Input = mono44()
	c.Output = AudioConfig{} // no forced output axes; left to negotiation

	spec := []FilterSpec{{Name: "wantStereo", Label: "ws"}}
	if err := c.Init(spec); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if c.Output != c.FilterOutput {
		t.Fatalf("expected chain.Output pinned to the negotiated filter_output, got Output=%v FilterOutput=%v", c.Output, c.FilterOutput)
	}
	if c.Output.Channels.NumChannels() != 2 {
		t.Fatalf("expected the unset output channel axis to be pinned from negotiation, got %v", c.Output)
	}
}

// asNegotiationError is a small helper so tests don't need errors.As
// boilerplate repeated everywhere; like the real call site in
// cmd/afchain, it walks the Unwrap chain.
func asNegotiationError(err error, target **NegotiationError) bool {
	for err != nil {
		if ne, ok := err.(*NegotiationError); ok {
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
