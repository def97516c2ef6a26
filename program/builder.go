// Package program implements the graph construction surface and runtime
// lifecycle of spec.md §6: a builder that plays the role of the generated
// top-level program (one call per edge, per vertex, per connect), and a
// Runtime that spawns, runs, and joins every net.
package program

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ardnew/flowrt/channel"
	"github.com/ardnew/flowrt/firewall"
	"github.com/ardnew/flowrt/internal/rterr"
	netpkg "github.com/ardnew/flowrt/net"
	"github.com/ardnew/flowrt/routing"
)

// Default channel/net arena bounds, mirroring spec.md §3 "Runtime" (arrays
// bounded by MAX_CHS and MAX_NETS).
const (
	DefaultMaxChannels = 256
	DefaultMaxNets     = 128
)

// Direction selects which side of a net's signature a Connect call wires a
// channel to (spec.md §6 "connect(net, channel, port_name, direction)").
type Direction int

const (
	Input Direction = iota
	Output
)

type netEntry struct {
	net      *netpkg.Net
	box      netpkg.Box
	priority int
}

// Builder assembles an immutable dataflow graph before any net's goroutine
// is spawned (spec.md §9 "Generated top level": "the builder commits to an
// immutable graph before any thread is spawned"). Every method takes the
// builder's mutex, so calls from several goroutines are serialized; like
// the original's single-threaded generated top level, construction
// normally happens once on the calling goroutine.
type Builder struct {
	mu sync.Mutex

	maxChannels int
	maxNets     int

	channels   map[string]*channel.Channel
	nets       map[string]*netEntry
	collectors map[string]*channel.Collector

	built bool
}

// NewBuilder creates an empty Builder bounded by the given channel and net
// arena sizes. Non-positive values fall back to the package defaults.
func NewBuilder(maxChannels, maxNets int) *Builder {
	if maxChannels <= 0 {
		maxChannels = DefaultMaxChannels
	}
	if maxNets <= 0 {
		maxNets = DefaultMaxNets
	}
	return &Builder{
		maxChannels: maxChannels,
		maxNets:     maxNets,
		channels:    make(map[string]*channel.Channel),
		nets:        make(map[string]*netEntry),
		collectors:  make(map[string]*channel.Collector),
	}
}

func (b *Builder) checkMutable() error {
	if b.built {
		return rterr.ErrGraphFrozen
	}
	return nil
}

// CreateChannel creates and registers a named channel (spec.md §6
// "channel_create(len, variant, id, name)").
func (b *Builder) CreateChannel(name string, length int, variant channel.Variant) (*channel.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkMutable(); err != nil {
		return nil, err
	}
	if _, exists := b.channels[name]; exists {
		return nil, errors.Wrapf(rterr.ErrDuplicateName, "channel %q", name)
	}
	if len(b.channels) >= b.maxChannels {
		return nil, rterr.ErrTooManyChannels
	}

	ch := channel.New(name, length, variant)
	b.channels[name] = ch
	return ch, nil
}

// Channel looks up a previously created channel by name.
func (b *Builder) Channel(name string) (*channel.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[name]
	if !ok {
		return nil, errors.Wrapf(rterr.ErrUnknownChannel, "channel %q", name)
	}
	return ch, nil
}

// CreateCollector creates and registers a named Collector fed by the given
// number of producer channels.
func (b *Builder) CreateCollector(name string, producers int) (*channel.Collector, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkMutable(); err != nil {
		return nil, err
	}
	if _, exists := b.collectors[name]; exists {
		return nil, errors.Wrapf(rterr.ErrDuplicateName, "collector %q", name)
	}
	col := channel.NewCollector(producers)
	b.collectors[name] = col
	return col, nil
}

// CreateNet creates and registers a named net with an empty signature
// (spec.md §6 "net_create" + "net_init"). Its box must be attached with
// AttachBox before Build, unless it was created via AddRoutingNode or
// AddFirewall.
func (b *Builder) CreateNet(name string, maxPorts int) (*netpkg.Net, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createNetLocked(name, maxPorts)
}

func (b *Builder) createNetLocked(name string, maxPorts int) (*netpkg.Net, error) {
	if err := b.checkMutable(); err != nil {
		return nil, err
	}
	if _, exists := b.nets[name]; exists {
		return nil, errors.Wrapf(rterr.ErrDuplicateName, "net %q", name)
	}
	if len(b.nets) >= b.maxNets {
		return nil, rterr.ErrTooManyNets
	}

	n := netpkg.New(len(b.nets), name, maxPorts)
	b.nets[name] = &netEntry{net: n, priority: netpkg.MinPriority}
	return n, nil
}

// AttachBox installs the box implementation a previously created net
// drives. Required for every net not created via AddRoutingNode or
// AddFirewall.
func (b *Builder) AttachBox(name string, box netpkg.Box) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkMutable(); err != nil {
		return err
	}
	e, ok := b.nets[name]
	if !ok {
		return errors.Wrapf(rterr.ErrUnknownNet, "net %q", name)
	}
	e.box = box
	return nil
}

// SetPriority records the real-time priority a net runs with (spec.md §6
// "net_run(net, priority)"); validated eagerly here rather than deferred to
// Runtime.Run.
func (b *Builder) SetPriority(name string, priority int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkMutable(); err != nil {
		return err
	}
	if err := netpkg.ValidatePriority(priority); err != nil {
		return err
	}
	e, ok := b.nets[name]
	if !ok {
		return errors.Wrapf(rterr.ErrUnknownNet, "net %q", name)
	}
	e.priority = priority
	return nil
}

// SetNetConfig attaches a net's configuration attribute sub-tree (spec.md
// §6 "Configuration document").
func (b *Builder) SetNetConfig(name string, cfg map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkMutable(); err != nil {
		return err
	}
	e, ok := b.nets[name]
	if !ok {
		return errors.Wrapf(rterr.ErrUnknownNet, "net %q", name)
	}
	e.net.SetConfig(cfg)
	return nil
}

// Connect wires a previously created channel to a net's named input or
// output port (spec.md §6 "connect(net, channel, port_name, direction)").
func (b *Builder) Connect(netName, portName string, ch *channel.Channel, dir Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkMutable(); err != nil {
		return err
	}
	e, ok := b.nets[netName]
	if !ok {
		return errors.Wrapf(rterr.ErrUnknownNet, "net %q", netName)
	}
	switch dir {
	case Input:
		return e.net.Signature().AddInput(portName, ch)
	case Output:
		return e.net.Signature().AddOutput(portName, ch)
	default:
		return rterr.ErrInvalidParameter
	}
}

// ConnectGuard attaches a minimum-inter-arrival-time Guard to a channel
// (spec.md §6 "connect_guard").
func (b *Builder) ConnectGuard(channelName string, iat time.Duration, blocking bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkMutable(); err != nil {
		return err
	}
	ch, ok := b.channels[channelName]
	if !ok {
		return errors.Wrapf(rterr.ErrUnknownChannel, "channel %q", channelName)
	}
	ch.AttachGuard(channel.NewGuard(iat, blocking))
	return nil
}

// ConnectCollector attaches a shared Collector to a channel's sink end
// (spec.md §6 "connect_rn": the fan-in side of a routing node or profiler
// collector).
func (b *Builder) ConnectCollector(channelName, collectorName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkMutable(); err != nil {
		return err
	}
	ch, ok := b.channels[channelName]
	if !ok {
		return errors.Wrapf(rterr.ErrUnknownChannel, "channel %q", channelName)
	}
	col, ok := b.collectors[collectorName]
	if !ok {
		return errors.Wrapf(rterr.ErrUnknownChannel, "collector %q", collectorName)
	}
	ch.AttachCollector(col)
	return nil
}

// SetProfiler attaches a net's profiler output channel (spec.md §6's
// profiler port, resolved against the "profiler" config attribute at
// net_run time by net.Driver).
func (b *Builder) SetProfiler(netName string, ch *channel.Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkMutable(); err != nil {
		return err
	}
	e, ok := b.nets[netName]
	if !ok {
		return errors.Wrapf(rterr.ErrUnknownNet, "net %q", netName)
	}
	e.net.SetProfiler(ch)
	return nil
}

// AddRoutingNode creates a net driven by the built-in fair-merge box of the
// routing package, backed by the given Collector (spec.md §6 "connect_rn" /
// §4.2 "routing node"). Its inputs and outputs are wired with the usual
// Connect calls once this returns.
func (b *Builder) AddRoutingNode(name string, collector *channel.Collector, maxPorts int) (*netpkg.Net, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.createNetLocked(name, maxPorts)
	if err != nil {
		return nil, err
	}
	b.nets[name].box = routing.New(name, collector)
	return n, nil
}

// AddFirewall creates a net driven by the built-in temporal firewall box of
// the firewall package, ticking at the given period (spec.md §6
// "connect_tf" / §4.3 "temporal firewall"). Its paired inputs and outputs
// are wired with the usual Connect calls, in matching order, once this
// returns.
func (b *Builder) AddFirewall(name string, period time.Duration, maxPorts int) (*netpkg.Net, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.createNetLocked(name, maxPorts)
	if err != nil {
		return nil, err
	}
	b.nets[name].box = firewall.New(name, period)
	return n, nil
}

// Build freezes the graph and returns a Runtime ready to spawn every net.
// No further Create*/Connect*/Attach* call succeeds after Build returns.
// Every net must have a box attached, or Build fails.
func (b *Builder) Build() (*Runtime, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkMutable(); err != nil {
		return nil, err
	}

	entries := make([]*netEntry, 0, len(b.nets))
	for name, e := range b.nets {
		if e.box == nil {
			return nil, errors.Wrapf(rterr.ErrInvalidParameter, "net %q has no box attached", name)
		}
		entries = append(entries, e)
	}

	barrier := netpkg.NewBarrier(len(entries))
	for _, e := range entries {
		e.net.SetBarrier(barrier)
	}

	b.built = true

	channels := make(map[string]*channel.Channel, len(b.channels))
	for k, v := range b.channels {
		channels[k] = v
	}

	return &Runtime{channels: channels, nets: entries, barrier: barrier}, nil
}
