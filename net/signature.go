package net

import (
	"fmt"

	"github.com/ardnew/flowrt/channel"
	"github.com/ardnew/flowrt/internal/rterr"
)

// DefaultMaxPorts bounds the number of input or output ports a single
// Signature accepts, mirroring the teacher's fixed-size port arrays
// (device/stack.go's MaxEndpointAddresses) rather than an unbounded slice.
const DefaultMaxPorts = 64

// Port is one named, connected edge of a net's signature.
type Port struct {
	Name string
	Ch   *channel.Channel
}

// Signature is a net's typed port arrays: the per-box struct spec.md §3
// "Net" calls an "opaque signature," generalized here to named input and
// output port lists common to every box rather than per-box generated
// field layouts (spec.md §9 "Opaque handles").
type Signature struct {
	maxPorts int
	inputs   []Port
	outputs  []Port
}

// NewSignature creates an empty Signature with room for maxPorts inputs and
// maxPorts outputs. A non-positive maxPorts falls back to DefaultMaxPorts.
func NewSignature(maxPorts int) *Signature {
	if maxPorts <= 0 {
		maxPorts = DefaultMaxPorts
	}
	return &Signature{maxPorts: maxPorts}
}

// AddInput connects ch as an input port named name. Returns ErrDuplicateName
// if the name is already taken on either side, or ErrPortLimit if the
// signature has no room for another input.
func (s *Signature) AddInput(name string, ch *channel.Channel) error {
	if s.findPort(name) {
		return fmt.Errorf("input %q: %w", name, rterr.ErrDuplicateName)
	}
	if len(s.inputs) >= s.maxPorts {
		return fmt.Errorf("input %q: %w", name, rterr.ErrPortLimit)
	}
	s.inputs = append(s.inputs, Port{Name: name, Ch: ch})
	return nil
}

// AddOutput connects ch as an output port named name. Returns
// ErrDuplicateName if the name is already taken on either side, or
// ErrPortLimit if the signature has no room for another output.
func (s *Signature) AddOutput(name string, ch *channel.Channel) error {
	if s.findPort(name) {
		return fmt.Errorf("output %q: %w", name, rterr.ErrDuplicateName)
	}
	if len(s.outputs) >= s.maxPorts {
		return fmt.Errorf("output %q: %w", name, rterr.ErrPortLimit)
	}
	s.outputs = append(s.outputs, Port{Name: name, Ch: ch})
	return nil
}

func (s *Signature) findPort(name string) bool {
	for _, p := range s.inputs {
		if p.Name == name {
			return true
		}
	}
	for _, p := range s.outputs {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Input returns the named input port's channel, or false if not connected.
func (s *Signature) Input(name string) (*channel.Channel, bool) {
	for _, p := range s.inputs {
		if p.Name == name {
			return p.Ch, true
		}
	}
	return nil, false
}

// Output returns the named output port's channel, or false if not connected.
func (s *Signature) Output(name string) (*channel.Channel, bool) {
	for _, p := range s.outputs {
		if p.Name == name {
			return p.Ch, true
		}
	}
	return nil, false
}

// Inputs returns the signature's input ports in connection order.
func (s *Signature) Inputs() []Port { return s.inputs }

// Outputs returns the signature's output ports in connection order.
func (s *Signature) Outputs() []Port { return s.outputs }

// InDegree returns the number of connected input ports (spec.md §3 "Net"
// invariant: signature's in.count equals the number of successfully
// connected ports at the moment the thread starts).
func (s *Signature) InDegree() int { return len(s.inputs) }

// OutDegree returns the number of connected output ports.
func (s *Signature) OutDegree() int { return len(s.outputs) }
