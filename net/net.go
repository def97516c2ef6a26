// Package net implements a dataflow graph vertex: its identity and typed
// port signature (spec.md §3 "Net"), and the driver that wraps a user box
// implementation through the init/barrier/loop/terminate/cleanup lifecycle
// (spec.md §4.5).
package net

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ardnew/flowrt/channel"
	"github.com/ardnew/flowrt/internal/rtlog"
)

// StepResult is a box's verdict at the end of one Step call (spec.md §4.5
// step 5).
type StepResult int

const (
	// StepContinue runs the loop again.
	StepContinue StepResult = iota
	// StepEnd forces termination regardless of port states.
	StepEnd
	// StepReturn defers the decision to the driver's state-update rule.
	StepReturn
)

// String returns the lower-case result name.
func (r StepResult) String() string {
	switch r {
	case StepContinue:
		return "continue"
	case StepEnd:
		return "end"
	case StepReturn:
		return "return"
	default:
		return "unknown"
	}
}

// ProfilerEventKind distinguishes the tick events a net's driver can emit
// on its profiler port (SPEC_FULL.md §3; spec.md §4.5 step 5 requires only
// EventStart, the rest are additive).
type ProfilerEventKind int

const (
	// EventStart marks the beginning of one main-loop iteration.
	EventStart ProfilerEventKind = iota
	// EventReady marks a box observing new input data before stepping.
	EventReady
	// EventEnd marks the net's terminal iteration.
	EventEnd
	// EventOverrun marks an output write that overwrote a queued message.
	EventOverrun
)

// String returns the lower-case event name.
func (k ProfilerEventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventReady:
		return "ready"
	case EventEnd:
		return "end"
	case EventOverrun:
		return "overrun"
	default:
		return "unknown"
	}
}

// Box is the opaque user implementation a net drives (spec.md §4.5). The
// runtime never inspects state; it only stores and forwards whatever Init
// returns.
type Box interface {
	// Init performs box-local setup and returns opaque state passed to Step
	// and Cleanup. An error is terminal for this net only (spec.md §7).
	Init(ctx context.Context, sig *Signature) (state any, err error)

	// Step performs one unit of work and reports whether the driver should
	// keep looping.
	Step(ctx context.Context, sig *Signature, state any) (StepResult, error)

	// Cleanup releases box-local resources. Called exactly once, even if
	// Init failed (with the state Init managed to return, which may be nil).
	Cleanup(ctx context.Context, sig *Signature, state any)
}

// Net is one dataflow graph vertex: identity, port signature, optional
// profiler output, optional config attributes, and the barrier it
// rendezvous on during startup (spec.md §3 "Net").
type Net struct {
	id   int
	name string
	uuid uuid.UUID

	sig      *Signature
	profiler *channel.Channel
	config   map[string]any
	barrier  *Barrier

	log zerolog.Logger
}

// New creates a Net with the given runtime index and name and an empty
// signature sized for maxPorts ports per direction.
func New(id int, name string, maxPorts int) *Net {
	return &Net{
		id:   id,
		name: name,
		uuid: uuid.New(),
		sig:  NewSignature(maxPorts),
		log:  rtlog.For(rtlog.ComponentNet, name),
	}
}

// ID returns the net's small-integer runtime index, its authoritative
// identity (spec.md §3 "Net").
func (n *Net) ID() int { return n.id }

// Name returns the net's configured name.
func (n *Net) Name() string { return n.name }

// UUID returns the net's debugging-correlation identifier (SPEC_FULL.md §2).
func (n *Net) UUID() uuid.UUID { return n.uuid }

// Signature returns the net's port signature.
func (n *Net) Signature() *Signature { return n.sig }

// SetProfiler attaches the net's profiler output channel.
func (n *Net) SetProfiler(ch *channel.Channel) { n.profiler = ch }

// Profiler returns the net's profiler output channel, or nil if disabled or
// never attached.
func (n *Net) Profiler() *channel.Channel { return n.profiler }

// ClearProfiler detaches the profiler port without touching the channel's
// own state (the driver ends the channel's source side itself).
func (n *Net) ClearProfiler() { n.profiler = nil }

// SetConfig attaches the net's configuration sub-tree, an opaque
// attribute map passed through from config.Document (spec.md §6
// "Configuration document").
func (n *Net) SetConfig(cfg map[string]any) { n.config = cfg }

// Config returns the net's configuration attributes, or nil if none were
// set.
func (n *Net) Config() map[string]any { return n.config }

// SetBarrier attaches the process-wide initialization barrier this net
// rendezvous on.
func (n *Net) SetBarrier(b *Barrier) { n.barrier = b }

// ProfilerEnabled reports false when the net's config explicitly disables
// profiling via a "profiler" attribute of "off", "0" (spec.md §6) or the
// boolean false; any other value, or the attribute's absence, means enabled.
func (n *Net) ProfilerEnabled() bool {
	if n.config == nil {
		return true
	}
	v, ok := n.config["profiler"]
	if !ok {
		return true
	}
	switch s := v.(type) {
	case string:
		return s != "off" && s != "0"
	case bool:
		return s
	default:
		return true
	}
}

// Log returns the net's per-net log category (spec.md §7 "User-visible
// behavior").
func (n *Net) Log() zerolog.Logger { return n.log }
