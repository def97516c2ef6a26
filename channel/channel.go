// Package channel implements the bounded, single-producer/single-consumer
// point-to-point edges of a flowrt graph: the ring-buffered FIFO, its
// blocking/decoupling variants, the two channel ends and their state
// machine, the optional rate Guard, and the Collector that lets a fan-in
// net block on one condition instead of many (spec.md §3, §4.1, §4.2).
package channel

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ardnew/flowrt/internal/rterr"
	"github.com/ardnew/flowrt/internal/rtlog"
	"github.com/ardnew/flowrt/message"
)

// Channel is one point-to-point edge: a FIFO plus two ends (source =
// producer side, sink = consumer side), an optional rate Guard, and an
// optional back-pointer to a Collector (spec.md §3 "Channel").
type Channel struct {
	name    string
	id      uuid.UUID
	variant Variant

	mu sync.Mutex
	// writerCond wakes a goroutine blocked writing on a full FIFO;
	// signaled when a read frees a slot or the sink end reaches End.
	writerCond *sync.Cond
	// readerCond wakes a goroutine blocked reading an empty FIFO;
	// signaled when a write adds data or the source end reaches End.
	readerCond *sync.Cond

	ring   *ring
	source End
	sink   End

	guard     *Guard
	collector *Collector

	log zerolog.Logger
}

// New creates a Channel with the given name, ring length, and variant.
func New(name string, length int, variant Variant) *Channel {
	c := &Channel{
		name:    name,
		id:      uuid.New(),
		variant: variant,
		ring:    newRing(length),
		log:     rtlog.For(rtlog.ComponentChannel, name),
	}
	c.writerCond = sync.NewCond(&c.mu)
	c.readerCond = sync.NewCond(&c.mu)
	return c
}

// Name returns the channel's configured name.
func (c *Channel) Name() string { return c.name }

// ID returns the channel's debugging-correlation UUID (spec.md's per-channel
// identity is its small-integer runtime index, assigned by the program
// builder; this UUID is purely a log/profiler correlation aid).
func (c *Channel) ID() uuid.UUID { return c.id }

// Variant returns the channel's fixed discipline.
func (c *Channel) Variant() Variant { return c.variant }

// AttachGuard installs a rate Guard, enforced on every Write.
func (c *Channel) AttachGuard(g *Guard) { c.guard = g }

// AttachCollector wires this channel's sink end to a shared Collector
// (spec.md's connect_rn / the routing-node fan-in construction call).
func (c *Channel) AttachCollector(col *Collector) { c.collector = col }

// Source returns the channel's source (producer) end, read-only.
func (c *Channel) Source() *End {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.source
	return &e
}

// Sink returns the channel's sink (consumer) end, read-only.
func (c *Channel) Sink() *End {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.sink
	return &e
}

// Stats is a point-in-time snapshot of the FIFO's operation counters
// (spec.md §8's testable overwrite/copy properties).
type Stats struct {
	Count     int
	Length    int
	Overwrite uint64
	Copy      uint64
}

// Stats returns a snapshot of the channel's FIFO counters.
func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Count:     c.ring.count,
		Length:    c.ring.length(),
		Overwrite: c.ring.overwrite,
		Copy:      c.ring.copy,
	}
}

// Write transfers ownership of m into the channel (spec.md §4.1 "write").
// Behavior depends on the channel's variant: an overwriting variant never
// blocks, destroying the displaced tail message instead; a blocking
// variant waits for space, giving up with ErrNoTarget if the sink has
// already ended, or ErrNoSpace if the sink ends while the wait is in
// progress.
//
// If the channel carries a Guard, the write is gated by it first: a
// blocking guard may wait out the remaining inter-arrival time (honoring
// ctx cancellation); a non-blocking (decoupled) guard instead reports
// ErrGuardDiscarded and destroys m without ever touching the FIFO.
func (c *Channel) Write(ctx context.Context, m *message.Message) error {
	if c.guard != nil {
		discard, err := c.guard.gate(ctx)
		if err != nil || discard {
			c.mu.Lock()
			c.source.access++
			c.mu.Unlock()
		}
		if err != nil {
			return err
		}
		if discard {
			m.Destroy(false)
			c.log.Debug().Msg("write discarded by guard")
			return rterr.ErrGuardDiscarded
		}
	}

	c.mu.Lock()

	// Every Write call counts as one attempted operation through the
	// source end, regardless of how it resolves (spec.md §4.1 End.access:
	// "operations attempted through this end"); a write the Guard rejects
	// is counted in the guard branch above.
	c.source.access++

	if c.ring.full() && !c.variant.overwrites() {
		if c.sink.state == StateEnd {
			c.mu.Unlock()
			return rterr.ErrNoTarget
		}
		for c.ring.full() {
			c.writerCond.Wait()
			if c.ring.full() && c.sink.state == StateEnd {
				c.sink.setErr(rterr.CodeNoSpace)
				c.mu.Unlock()
				return rterr.ErrNoSpace
			}
		}
	}

	if c.ring.full() {
		// overwriting variant, ring still full after the check above
		displaced := c.ring.overwriteTail(m)
		displaced.Destroy(false)
	} else {
		c.ring.pushBack(m)
	}

	c.source.setState(StateReady)
	c.readerCond.Signal()
	needCollector := c.collector != nil
	c.mu.Unlock()

	if needCollector {
		c.collector.Signal()
	}
	return nil
}

// Read transfers ownership of one message out of the channel (spec.md
// §4.1 "read"). A duplicating variant (FIFO_D, D_FIFO_D) never blocks: it
// pops a real message when one is queued, or hands back a copy of the
// last value written when the FIFO is empty, or ErrUninitialised if
// nothing has ever been written. A blocking variant waits while the FIFO
// is empty, returning ErrNoData once the source has ended.
func (c *Channel) Read(ctx context.Context) (*message.Message, error) {
	c.mu.Lock()

	if c.variant.duplicates() {
		c.sink.access++
		if c.ring.empty() {
			dup := c.ring.duplicateBackup()
			c.mu.Unlock()
			if dup == nil {
				return nil, rterr.ErrUninitialised
			}
			return dup, nil
		}
		m := c.ring.popFront()
		if c.ring.empty() && c.source.state != StateEnd {
			c.sink.setState(StatePending)
		}
		c.writerCond.Signal()
		c.mu.Unlock()
		return m, nil
	}

	if c.ring.empty() {
		if c.source.state == StateEnd {
			c.sink.access++
			c.sink.setErr(rterr.CodeNoData)
			c.mu.Unlock()
			return nil, rterr.ErrNoData
		}
		for c.ring.empty() {
			select {
			case <-ctx.Done():
				c.mu.Unlock()
				return nil, ctx.Err()
			default:
			}
			c.readerCond.Wait()
			if c.ring.empty() && c.source.state == StateEnd {
				c.sink.access++
				c.sink.setErr(rterr.CodeNoData)
				c.mu.Unlock()
				return nil, rterr.ErrNoData
			}
		}
	}

	c.sink.access++
	m := c.ring.popFront()
	if c.ring.empty() && c.source.state != StateEnd {
		c.sink.setState(StatePending)
	}
	c.writerCond.Signal()
	c.mu.Unlock()
	return m, nil
}

// DDRead is the non-blocking, never-duplicating decoupled-output read used
// exclusively by temporal firewalls (spec.md §4.1 "dd_read", the FIFO_DD
// case): it returns nil, without error, when the FIFO is empty, and a real
// popped message — never a duplicate — otherwise.
func (c *Channel) DDRead() *message.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sink.access++
	if c.ring.empty() {
		return nil
	}
	m := c.ring.popFront()
	if c.ring.empty() && c.source.state != StateEnd {
		c.sink.setState(StatePending)
	}
	c.writerCond.Signal()
	return m
}

// EndSource marks the channel's source end terminated (spec.md §4.6,
// called by the net that owns the producer role when it exits its loop).
// It wakes any reader blocked on empty so they observe ErrNoData, and — if
// this channel feeds a Collector — tells the collector one of its
// producers has ended.
func (c *Channel) EndSource() {
	c.mu.Lock()
	c.source.setState(StateEnd)
	c.readerCond.Broadcast()
	col := c.collector
	c.mu.Unlock()

	if col != nil {
		col.ProducerEnded()
	}
}

// EndSink marks the channel's sink end terminated (spec.md §4.6, called by
// the net that owns the consumer role when it exits its loop). It wakes
// any writer blocked on full so they observe ErrNoSpace.
func (c *Channel) EndSink() {
	c.mu.Lock()
	c.sink.setState(StateEnd)
	c.writerCond.Broadcast()
	c.mu.Unlock()
}

// ReadyToRead reports the number of messages currently available to a
// blocking read, used by the routing node's round-robin scan (spec.md
// §4.2 step 3) and by the net driver's ready-event and termination checks.
func (c *Channel) ReadyToRead() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ring.count
}
