package channel

import "sync"

// Collector is the shared readiness counter that lets a net with many
// inputs block on a single condition instead of N condition variables or a
// poll loop (spec.md §3 "Collector", §4.2). It is attached to the sink
// ends of the channels that fan into one net; each successful write on a
// participating channel increments Collector.count, and the collector's
// reader (a routing node or the profiler collector) drains one unit per
// message it consumes.
type Collector struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
	state State

	producers int // live producers; reaches 0 -> state becomes End
}

// NewCollector creates a Collector fed by the given number of producer
// channels. A collector with zero producers starts already ended.
func NewCollector(producers int) *Collector {
	c := &Collector{producers: producers, state: StatePending}
	c.cond = sync.NewCond(&c.mu)
	if producers <= 0 {
		c.state = StateEnd
	}
	return c
}

// Signal records one ready message from a producer channel. Per spec.md §5
// "Locking discipline", callers invoke Signal only after releasing the
// channel mutex that guarded the write producing this signal.
func (c *Collector) Signal() {
	c.mu.Lock()
	c.count++
	if c.state != StateEnd {
		c.state = StateReady
	}
	c.mu.Unlock()
	c.cond.Signal()
}

// ProducerEnded records that one of the collector's producer channels has
// terminated. The collector itself transitions to End only once every
// producer has ended (spec.md §3 Collector invariant).
func (c *Collector) ProducerEnded() {
	c.mu.Lock()
	c.producers--
	if c.producers <= 0 {
		c.state = StateEnd
	}
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Acquire implements the wait step of spec.md §4.2: block while
// state==Pending, then snapshot count, decrement it floored at zero, and
// drop back to Pending if the decremented count reached zero (unless the
// collector has ended). A zero snapshot means the wakeup was a termination broadcast
// with nothing pending; ended reports that case.
func (c *Collector) Acquire() (snapshot int, ended bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.state == StatePending {
		c.cond.Wait()
	}

	snapshot = c.count
	if snapshot == 0 {
		return 0, true
	}

	c.count--
	if c.count == 0 && c.state != StateEnd {
		c.state = StatePending
	}
	return snapshot, false
}

// Snapshot reads count and state under the collector mutex without
// mutating either — the only way spec.md §9's Open Question ("the
// collector count can briefly exceed the sum of ready-to-reads...") says a
// test harness may observe a consistent value.
func (c *Collector) Snapshot() (count int, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, c.state
}
