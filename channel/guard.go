package channel

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Guard enforces a minimum inter-arrival time (IAT) on a channel's writes
// (spec.md §3 "Guard", §4.4). It wraps golang.org/x/time/rate.Limiter —
// the rate-limiting primitive the retrieved corpus reaches for repeatedly
// (syncthing/syncthing, thrasher-corp/gocryptotrader, ClusterCockpit/
// cc-backend) — configured for burst 1 so "at least IAT has elapsed since
// the last successful write" falls directly out of the token bucket
// refilling at 1/IAT per second.
type Guard struct {
	limiter  *rate.Limiter
	blocking bool // true: writer blocks until IAT elapses; false: write is discarded if IAT hasn't elapsed
}

// NewGuard creates a Guard with the given minimum inter-arrival time.
// blocking selects the channel-level discipline from spec.md §4.4: a
// blocking-guard channel's writer waits out the remaining IAT; a
// decoupled-guard channel destroys the message and reports a discard
// instead.
func NewGuard(iat time.Duration, blocking bool) *Guard {
	rps := rate.Limit(time.Second) / rate.Limit(iat)
	return &Guard{limiter: rate.NewLimiter(rps, 1), blocking: blocking}
}

// gate is consulted before a write is allowed to proceed. discard is true
// only for a non-blocking guard whose IAT has not yet elapsed — the caller
// must destroy the message and report the write as a discard, not an error.
func (g *Guard) gate(ctx context.Context) (discard bool, err error) {
	if g == nil {
		return false, nil
	}
	if g.blocking {
		if err := g.limiter.Wait(ctx); err != nil {
			return false, err
		}
		return false, nil
	}
	return !g.limiter.Allow(), nil
}
