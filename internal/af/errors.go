package af

import "fmt"

// NegotiationError means no arrangement of auto-conversions satisfies
// adjacent configs; the chain becomes Chain.Initialized() == StateError
// (spec.md §7).
type NegotiationError struct {
	// FailingFilter is the label or name of the filter where negotiation
	// gave up, for diagnostics.
	FailingFilter string
	Reason        string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("af: negotiation failed at filter %q: %s", e.FailingFilter, e.Reason)
}

// OpenError means a filter factory failed; the filter is discarded and
// the calling operation fails without mutating prior chain state.
type OpenError struct {
	Name string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("af: couldn't create or open audio filter %q: %v", e.Name, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// FilterRuntimeError wraps a negative return from FilterFrame/FilterOut.
// Runtime filter errors do not remove the filter (spec.md §7).
type FilterRuntimeError struct {
	Name string
	Err  error
}

func (e *FilterRuntimeError) Error() string {
	return fmt.Sprintf("af: error filtering frame in %q: %v", e.Name, e.Err)
}

func (e *FilterRuntimeError) Unwrap() error { return e.Err }

// labelExistsError is returned by Chain.Add when the requested label is
// already in use.
type labelExistsError struct{ Label string }

func (e *labelExistsError) Error() string {
	return fmt.Sprintf("af: label %q already in use", e.Label)
}
