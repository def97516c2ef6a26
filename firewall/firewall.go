// Package firewall implements the temporal firewall scheduling primitive of
// spec.md §4.3: a periodic timer net that, on every tick, performs one
// non-blocking decoupled-output read per input and one ordinary blocking
// write per output, decoupling an upstream producer's rate from a
// downstream consumer's cadence.
package firewall

import (
	"context"
	"time"

	"github.com/ardnew/flowrt/internal/rterr"
	"github.com/ardnew/flowrt/internal/rtlog"
	"github.com/ardnew/flowrt/message"
	netpkg "github.com/ardnew/flowrt/net"
)

// Box is a net.Box driving one temporal firewall timer. Its signature's
// input and output ports are paired by position — the Nth input feeds the
// Nth output — rather than by name, mirroring spec.md §3's "linked list of
// (input-channel, output-channel) pairs" sharing one period.
type Box struct {
	name   string
	period time.Duration

	ticker *time.Ticker
	last   time.Time
	ticks  uint64
}

// New creates a Box that ticks at the given period.
func New(name string, period time.Duration) *Box {
	return &Box{name: name, period: period}
}

// Ticks returns the number of completed ticks, for tests and diagnostics.
func (b *Box) Ticks() uint64 { return b.ticks }

// Init arms the periodic timer (spec.md §4.3 step 1's "arm").
func (b *Box) Init(ctx context.Context, sig *netpkg.Signature) (any, error) {
	b.ticker = time.NewTicker(b.period)
	b.last = time.Now()
	return nil, nil
}

// Step implements spec.md §4.3's four-step tick: await the timer (logging a
// late fire as a deadline miss but continuing), dd_read every input,
// blocking-write every paired output, skipping null entries, and count the
// tick. If ctx is cancelled while awaiting the timer it returns StepEnd with
// ctx's error; otherwise it returns StepReturn, deferring termination to the driver's
// standard triggering-input rule — a firewall's inputs use the decoupled
// dd_read discipline and so never block, but its signature still reports
// the paired channel's real variant for the termination check.
func (b *Box) Step(ctx context.Context, sig *netpkg.Signature, state any) (netpkg.StepResult, error) {
	log := rtlog.For(rtlog.ComponentFirewall, b.name)

	select {
	case <-ctx.Done():
		return netpkg.StepEnd, ctx.Err()
	case fired := <-b.ticker.C:
		if drift := fired.Sub(b.last) - b.period; drift > b.period/2 {
			log.Warn().Dur("drift", drift).Msg(rterr.ErrDeadlineMiss.Error())
		}
		b.last = fired
	}

	inputs := sig.Inputs()
	outputs := sig.Outputs()
	pairs := len(inputs)
	if len(outputs) < pairs {
		pairs = len(outputs)
	}

	msgs := make([]*message.Message, pairs)
	for i := 0; i < pairs; i++ {
		msgs[i] = inputs[i].Ch.DDRead()
	}
	for i := 0; i < pairs; i++ {
		if msgs[i] == nil {
			continue
		}
		if err := outputs[i].Ch.Write(ctx, msgs[i]); err != nil {
			log.Debug().Err(err).Int("pair", i).Msg("tick write failed")
		}
	}

	b.ticks++
	return netpkg.StepReturn, nil
}

// Cleanup stops the periodic timer.
func (b *Box) Cleanup(ctx context.Context, sig *netpkg.Signature, state any) {
	if b.ticker != nil {
		b.ticker.Stop()
	}
}
