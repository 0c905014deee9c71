package af

import "fmt"

// maxReinitPasses is the iteration bound of filterReinitWithConversion's
// loop. Every branch of that loop returns on its first pass, so the
// bound is never reached; re-negotiating f after a converter has been
// inserted happens in doReinit's walk, which has no bound of its own.
const maxReinitPasses = 2

// filterReinit negotiates a single filter against the config in offers
// as its input. On ResultOK, f.FmtIn/f.FmtOut are updated and in is left
// untouched. On ResultFalse, in is mutated by the filter to describe the
// input it actually wants (copy-unset-fields already applied by the
// filter itself, mirroring the sentinel's outputControl), and the
// caller is expected to insert a conversion. Any other result is an
// error (spec.md §4.C).
func filterReinit(f *FilterInstance, in AudioConfig) (Result, AudioConfig, error) {
	cfg := in
	res := f.control(CmdReinit, &cfg)
	switch res {
	case ResultOK:
		f.FmtIn = in
		f.FmtOut = cfg
		return ResultOK, cfg, nil
	case ResultFalse:
		return ResultFalse, cfg, nil
	case ResultDetach:
		return ResultDetach, cfg, nil
	default:
		return ResultError, cfg, &NegotiationError{
			FailingFilter: filterTag(f),
			Reason:        fmt.Sprintf("REINIT returned %s", res),
		}
	}
}

func filterTag(f *FilterInstance) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// insertConversion inserts an AutoResamplerName filter immediately
// before f, configured to accept upstream's actual output and to
// produce wanted (the config f asked for via ResultFalse). The new
// filter is marked AutoInserted so a later full Reinit removes it
// before renegotiating from scratch (spec.md §4.C).
func (c *Chain) insertConversion(f *FilterInstance, wanted AudioConfig) (*FilterInstance, error) {
	conv, err := c.registry.Create(AutoResamplerName, nil)
	if err != nil {
		return nil, fmt.Errorf("af: could not insert automatic converter before %q: %w", filterTag(f), err)
	}
	conv.chain = c
	conv.AutoInserted = true
	if setter, ok := conv.Priv.(interface{ SetTarget(AudioConfig) }); ok {
		setter.SetTarget(wanted)
	}

	conv.next = f
	conv.prev = f.prev
	f.prev.next = conv
	conv.prev.next = conv
	f.prev = conv

	return conv, nil
}

// filterReinitWithConversion negotiates f against in; if f demands a
// different input, it inserts a conversion filter upstream of f,
// negotiates the conversion filter against in, and returns the
// conversion filter so the caller's walk continues from there (spec.md
// §4.C "reinit-with-conversion-insertion").
func (c *Chain) filterReinitWithConversion(f *FilterInstance, in AudioConfig) (*FilterInstance, AudioConfig, error) {
	for pass := 0; pass < maxReinitPasses; pass++ {
		res, out, err := filterReinit(f, in)
		if err != nil {
			return nil, AudioConfig{}, err
		}
		switch res {
		case ResultOK:
			return f, out, nil
		case ResultDetach:
			return nil, in, nil
		case ResultFalse:
			if in.Format.IsSPDIF() != out.Format.IsSPDIF() {
				// f can't handle the passthrough format it was offered
				// (or vice versa): no converter may be interposed across
				// an spdif boundary, so f is dropped instead and the
				// walk retries its successor against the unchanged
				// input, leaving a bit-exact passthrough chain (spec.md
				// §4.C spdif exception, §8 boundary property).
				return nil, in, nil
			}
			if in.Format.IsSPDIF() || out.Format.IsSPDIF() {
				// Both sides are spdif but disagree on some other axis;
				// passthrough formats flow bit-exact or not at all, so
				// no converter may be interposed here either.
				return nil, AudioConfig{}, &NegotiationError{
					FailingFilter: filterTag(f),
					Reason:        "cannot convert between incompatible passthrough (spdif) formats",
				}
			}
			conv, err := c.insertConversion(f, out)
			if err != nil {
				return nil, AudioConfig{}, err
			}
			convRes, convOut, err := filterReinit(conv, in)
			if err != nil {
				return nil, AudioConfig{}, err
			}
			if convRes != ResultOK {
				return nil, AudioConfig{}, &NegotiationError{
					FailingFilter: filterTag(conv),
					Reason:        fmt.Sprintf("automatic converter itself returned %s", convRes),
				}
			}
			return conv, convOut, nil
		default:
			return nil, AudioConfig{}, &NegotiationError{FailingFilter: filterTag(f), Reason: "unexpected REINIT result"}
		}
	}
	return nil, AudioConfig{}, &NegotiationError{FailingFilter: filterTag(f), Reason: "gave up after repeated conversion insertion"}
}

// doReinit walks the whole chain once, head to tail, negotiating each
// filter against the previous filter's accepted output. A filter that
// answers ResultDetach (or is dropped at an spdif boundary) is removed
// on the spot and the walk continues at its successor with the same
// input (spec.md §4.C).
func (c *Chain) doReinit() error {
	cur := c.first
	in := c.Input
	// Drive the head sentinel first so it sees (and validates) c.Input.
	if _, _, err := filterReinit(cur, in); err != nil {
		return err
	}
	in = cur.FmtOut
	cur = cur.next

	for cur != nil {
		next, out, err := c.filterReinitWithConversion(cur, in)
		if err != nil {
			return err
		}
		if next == nil {
			// Detach: drop cur and retry the same input against its
			// successor.
			succ := cur.next
			c.Remove(cur)
			cur = succ
			continue
		}
		in = out
		cur = next.next
	}
	return nil
}

// findOutputConversion returns the real filter immediately upstream of
// the auto-inserted converter conv when that filter only reorders
// channels (its FmtIn and FmtOut are equal up to channel order but not
// strictly equal), and nil otherwise, including when conv directly
// follows the head sentinel. Reinit uses it as the trigger for its
// second pass (spec.md §4.C).
func findOutputConversion(conv *FilterInstance) *FilterInstance {
	if conv == nil || conv.prev == nil || conv.prev.IsSentinel() {
		return nil
	}
	upstream := conv.prev
	if upstream.FmtIn.EqualsReordered(upstream.FmtOut) && !upstream.FmtIn.Equals(upstream.FmtOut) {
		return upstream
	}
	return nil
}

// Reinit renegotiates the whole chain from c.Input to c.Output. It
// first strips any previously auto-inserted converters and runs a first
// negotiation pass. If that pass inserted a converter directly after a
// pure channel-reorder filter, the two are swapped and a second pass
// runs; because the converter is auto-inserted it is stripped again
// before that pass, so the second pass negotiates the same order of
// real filters as the first and the reorder filter does not end up
// after a converter. On failure the chain's Initialized() becomes
// StateError and any partially inserted converters are stripped again
// (spec.md §7).
func (c *Chain) Reinit() error {
	c.removeAutoInserted()
	c.forgetAllFrames()

	if err := c.doReinit(); err != nil {
		c.removeAutoInserted()
		c.initialized = StateError
		return err
	}

	moved := false
	for f := c.first; f != nil; f = f.next {
		if !f.AutoInserted {
			continue
		}
		if up := findOutputConversion(f); up != nil {
			c.log.Logf("af: moving filter %s ahead of auto-inserted converter", filterTag(up))
			c.swapWithNext(up)
			moved = true
		}
	}

	if moved {
		c.removeAutoInserted()
		c.forgetAllFrames()
		if err := c.doReinit(); err != nil {
			c.removeAutoInserted()
			c.initialized = StateError
			return err
		}
	}

	// Pin the chain's output: any axis chain.Output left unset takes
	// whatever the negotiated filter_output settled on, for the lifetime
	// of the chain, so a later Reinit (seek, speed change, track switch)
	// can't silently renegotiate a different output config out from
	// under the AO (spec.md §4.C step 5, §8 invariant 4).
	c.Output.CopyUnsetFieldsFrom(c.FilterOutput)
	if c.Output != c.FilterOutput {
		c.initialized = StateError
		return &NegotiationError{FailingFilter: filterTag(c.last), Reason: "negotiated output does not match the chain's pinned output"}
	}

	c.initialized = StateOK
	return nil
}

// swapWithNext exchanges the positions of a and a.next (= b) in the
// list. a is always a real filter preceding a converter, never the
// head sentinel.
func (c *Chain) swapWithNext(a *FilterInstance) {
	b := a.next
	if b == nil {
		return
	}
	p := a.prev
	n := b.next

	p.next = b
	b.prev = p
	b.next = a
	a.prev = b
	a.next = n
	if n != nil {
		n.prev = a
	}
}
