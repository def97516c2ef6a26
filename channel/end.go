package channel

import "github.com/ardnew/flowrt/internal/rterr"

// End is one side of a Channel (source = producer, sink = consumer). All
// fields are protected by the owning Channel's mutex; End itself holds no
// lock (spec.md §4.1 "Mutual exclusion": a single per-channel mutex
// protects all FIFO state, both end states, and error fields).
type End struct {
	state  State
	err    rterr.Code
	access uint64 // number of operations attempted through this end
}

// State returns the end's current state.
func (e *End) State() State { return e.state }

// Err returns the end's current error code.
func (e *End) Err() rterr.Code { return e.err }

// Access returns the number of operations attempted through this end.
func (e *End) Access() uint64 { return e.access }

// setState moves the end's state forward, respecting the End-is-absorbing
// invariant (spec.md §3 "once a state transitions to END it never leaves
// END").
func (e *End) setState(next State) {
	e.state = advance(e.state, next)
}

// setErr records the last error observed at this end. It does not imply a
// state transition; callers set state separately.
func (e *End) setErr(code rterr.Code) {
	e.err = code
}
