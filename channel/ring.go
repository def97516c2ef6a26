package channel

import "github.com/ardnew/flowrt/message"

// ring is the bounded slot list backing a Channel's FIFO (spec.md §3 "FIFO
// slot list" / §4.1). It is a fixed-length circular buffer addressed by a
// head (next write position) and tail (next read position) cursor, plus one
// extra "backup" slot used by decoupled variants — the teacher's fixed-size,
// zero-allocation arrays (device/stack.go's pendingTransfers, device/
// endpoint.go's descriptor arrays) are the model for preferring a flat slice
// over a pointer-chased list here.
//
// ring is not safe for concurrent use; callers serialize access through the
// owning Channel's mutex.
type ring struct {
	slots []*message.Message
	head  int // next write position
	tail  int // next read position
	count int

	// backup holds a copy of the last message written, whether it was
	// appended or overwrote the tail; duplicating reads hand out copies of
	// it once the ring is empty.
	backup *message.Message

	overwrite uint64 // count of writes that overwrote the tail
	copy      uint64 // count of reads that duplicated rather than advanced
}

func newRing(length int) *ring {
	if length <= 0 {
		length = 1
	}
	return &ring{slots: make([]*message.Message, length)}
}

func (r *ring) length() int { return len(r.slots) }

func (r *ring) full() bool  { return r.count == len(r.slots) }
func (r *ring) empty() bool { return r.count == 0 }

// pushBack appends m at head. Caller must ensure !full(). backup is kept as
// an independent copy of m rather than a shared reference: it must outlive
// m being popped and handed to a reader, and a later duplicating read must
// hand out a message with its own id (spec.md §3 "exactly one owner at a
// time").
func (r *ring) pushBack(m *message.Message) {
	r.slots[r.head] = m
	r.head = (r.head + 1) % len(r.slots)
	r.count++
	r.backup = m.Copy()
}

// overwriteTail removes the current tail slot's message, returning it for
// the caller to destroy, and writes m in its place, counted in overwrite.
// Caller must ensure full().
func (r *ring) overwriteTail(m *message.Message) *message.Message {
	displaced := r.slots[r.tail]
	r.slots[r.tail] = m
	r.tail = (r.tail + 1) % len(r.slots)
	r.head = r.tail
	r.overwrite++
	r.backup = m.Copy()
	return displaced
}

// popFront removes and returns the tail slot. Caller must ensure !empty().
func (r *ring) popFront() *message.Message {
	m := r.slots[r.tail]
	r.slots[r.tail] = nil
	r.tail = (r.tail + 1) % len(r.slots)
	r.count--
	return m
}

// duplicateBackup returns a copy of the last value written, counted in
// copy, or nil if nothing has ever been written (spec.md §4.1 FIFO_D).
func (r *ring) duplicateBackup() *message.Message {
	if r.backup == nil {
		return nil
	}
	r.copy++
	return r.backup.Copy()
}

// reachable counts the non-nil slots across the whole ring — used by tests
// to check the §8 invariant "the number of reachable nodes from head equals
// length" (interpreted as: the number of live slots equals count, and the
// ring never holds more than length live slots).
func (r *ring) reachable() int {
	n := 0
	for i := 0; i < len(r.slots); i++ {
		if r.slots[i] != nil {
			n++
		}
	}
	return n
}
