// Package routing implements the built-in non-deterministic fair-merge box
// (spec.md §4.2): read from whichever of N collector-backed inputs has data,
// round-robin across ties, and fan the message out to every connected
// output. The same box drives both the generic "routing node" (many
// outputs) and the profiler collector (exactly one output) — spec.md §2
// lists them as one pattern with two uses.
package routing

import (
	"context"

	"github.com/ardnew/flowrt/channel"
	"github.com/ardnew/flowrt/internal/rtlog"
	"github.com/ardnew/flowrt/message"
	netpkg "github.com/ardnew/flowrt/net"
)

// Node is a net.Box implementing spec.md §4.2's collector merge contract.
// It holds no state beyond the round-robin cursor; the input/output port
// lists come from the net.Signature passed to each lifecycle call, keeping
// Node itself signature-agnostic (the same Node drives any net whose inputs
// share one Collector).
type Node struct {
	collector *channel.Collector
	lastIdx   int
	name      string
}

// New creates a routing Node merging from the given Collector.
func New(name string, collector *channel.Collector) *Node {
	return &Node{collector: collector, name: name, lastIdx: -1}
}

// Init performs no box-local setup; the collector is supplied at
// construction, not discovered from the signature.
func (n *Node) Init(ctx context.Context, sig *netpkg.Signature) (any, error) {
	return nil, nil
}

// Step implements spec.md §4.2 steps 1-4: acquire the collector, scan inputs
// starting just past the last chosen index for the first one with data,
// read it, and write the message to every connected output.
func (n *Node) Step(ctx context.Context, sig *netpkg.Signature, state any) (netpkg.StepResult, error) {
	log := rtlog.For(rtlog.ComponentRouting, n.name)

	_, ended := n.collector.Acquire()
	if ended {
		return netpkg.StepReturn, nil
	}

	inputs := sig.Inputs()
	count := len(inputs)
	if count == 0 {
		return netpkg.StepReturn, nil
	}

	var chosen *channel.Channel
	chosenIdx := -1
	for step := 1; step <= count; step++ {
		idx := (n.lastIdx + step) % count
		if inputs[idx].Ch.ReadyToRead() > 0 {
			chosen = inputs[idx].Ch
			chosenIdx = idx
			break
		}
	}
	if chosen == nil {
		// Collector said a message was ready but the scan found none: a
		// benign race with a concurrent drain of the same input. Retry on
		// the next step rather than treating it as an error.
		log.Debug().Msg("collector signaled readiness but no input had data")
		return netpkg.StepContinue, nil
	}
	n.lastIdx = chosenIdx

	m, err := chosen.Read(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("read failed after collector acquire")
		return netpkg.StepContinue, nil
	}

	if err := fanOut(ctx, sig.Outputs(), m); err != nil {
		return netpkg.StepContinue, err
	}
	return netpkg.StepContinue, nil
}

// Cleanup does nothing; Node owns no resources beyond the Collector, which
// outlives the Node and is torn down by the channels that reference it.
func (n *Node) Cleanup(ctx context.Context, sig *netpkg.Signature, state any) {}

// fanOut writes m to every output, handing the original to the last output
// and an independent copy to every other so no two outputs share ownership
// of the same Message.
func fanOut(ctx context.Context, outputs []netpkg.Port, m *message.Message) error {
	if len(outputs) == 0 {
		m.Destroy(false)
		return nil
	}
	for i, out := range outputs {
		payload := m
		if i < len(outputs)-1 {
			payload = m.Copy()
		}
		if err := out.Ch.Write(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}
