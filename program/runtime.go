package program

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/flowrt/channel"
	"github.com/ardnew/flowrt/internal/rtlog"
	netpkg "github.com/ardnew/flowrt/net"
)

// Runtime holds the frozen, spawn-ready graph produced by Builder.Build
// (spec.md §3 "Runtime"): the channel and net arenas, and the shared
// initialization barrier every net rendezvous on.
type Runtime struct {
	channels map[string]*channel.Channel
	nets     []*netEntry
	barrier  *netpkg.Barrier
}

// ChannelCount returns the number of channels in the graph.
func (r *Runtime) ChannelCount() int { return len(r.channels) }

// NetCount returns the number of nets in the graph.
func (r *Runtime) NetCount() int { return len(r.nets) }

// Run spawns one goroutine per net through an errgroup.Group (spec.md §6
// "net_run(net, priority)" for every net, "tf_run" for firewall timers —
// both are just nets here) and blocks until every net has terminated,
// equivalent to spec.md's "net_wait_end(net) joins all threads". The first
// net driver to return a non-nil error cancels ctx for the others; since
// termination is otherwise purely cooperative (spec.md §5 "no explicit
// cancel"), ctx cancellation only matters to box implementations that
// choose to observe it.
func (r *Runtime) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, e := range r.nets {
		e := e
		g.Go(func() error {
			drv := netpkg.NewDriver(e.net, e.box)
			return drv.Run(gctx, netpkg.RunOptions{Priority: e.priority})
		})
	}

	rtlog.Info(rtlog.ComponentProgram, "runtime started", "nets", len(r.nets), "channels", len(r.channels))
	err := g.Wait()
	rtlog.Info(rtlog.ComponentProgram, "runtime stopped")
	return err
}
