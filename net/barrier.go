package net

import "sync"

// Barrier is the process-wide initialization barrier of spec.md §4.5 step 3:
// every net passes it only once every net's init hook has returned,
// regardless of success or failure. It is a one-shot rendezvous sized at
// construction time — not a reusable cyclic barrier, since a program's net
// count never changes after graph construction (spec.md §9 "generated top
// level" commits to an immutable graph before any thread is spawned).
type Barrier struct {
	mu      sync.Mutex
	done    chan struct{}
	arrived int
	total   int
}

// NewBarrier creates a Barrier for the given number of participants.
func NewBarrier(total int) *Barrier {
	b := &Barrier{done: make(chan struct{}), total: total}
	if total <= 0 {
		close(b.done)
	}
	return b
}

// Arrive records one participant's init completion and releases every
// waiter once the last participant arrives.
func (b *Barrier) Arrive() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.arrived++
	if b.arrived >= b.total {
		select {
		case <-b.done:
		default:
			close(b.done)
		}
	}
}

// Wait blocks until every participant has called Arrive.
func (b *Barrier) Wait() {
	<-b.done
}
