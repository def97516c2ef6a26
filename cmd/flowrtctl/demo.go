package main

import (
	"context"
	"time"

	"github.com/ardnew/flowrt/channel"
	"github.com/ardnew/flowrt/config"
	"github.com/ardnew/flowrt/internal/rtlog"
	"github.com/ardnew/flowrt/message"
	netpkg "github.com/ardnew/flowrt/net"
	"github.com/ardnew/flowrt/program"
)

// generatorBox emits a fixed run of integer payloads on its sole output
// port, then forces termination — the producer end of the chain that
// spec.md §8 scenario 6 walks through, reused here as the demo's source.
type generatorBox struct {
	name   string
	values []int
	idx    int
}

func (b *generatorBox) Init(ctx context.Context, sig *netpkg.Signature) (any, error) {
	return nil, nil
}

func (b *generatorBox) Step(ctx context.Context, sig *netpkg.Signature, state any) (netpkg.StepResult, error) {
	if b.idx >= len(b.values) {
		return netpkg.StepEnd, nil
	}
	out, ok := sig.Output("out")
	if !ok {
		return netpkg.StepEnd, nil
	}
	v := b.values[b.idx]
	b.idx++
	if err := out.Ch.Write(ctx, message.New(v, 8, message.Hooks{})); err != nil {
		return netpkg.StepReturn, err
	}
	return netpkg.StepContinue, nil
}

func (b *generatorBox) Cleanup(ctx context.Context, sig *netpkg.Signature, state any) {
	rtlog.Info(rtlog.ComponentProgram, "generator done", "net", b.name, "emitted", b.idx)
}

// sinkBox logs every value it reads from its sole input port until the
// input ends, at which point the driver's termination rule takes over.
type sinkBox struct {
	name     string
	received []int
}

func (b *sinkBox) Init(ctx context.Context, sig *netpkg.Signature) (any, error) {
	return nil, nil
}

func (b *sinkBox) Step(ctx context.Context, sig *netpkg.Signature, state any) (netpkg.StepResult, error) {
	in, ok := sig.Input("in")
	if !ok {
		return netpkg.StepEnd, nil
	}
	m, err := in.Ch.Read(ctx)
	if err != nil {
		return netpkg.StepReturn, nil
	}
	v := m.Unpack().(int)
	b.received = append(b.received, v)
	rtlog.Info(rtlog.ComponentProgram, "sink received", "net", b.name, "value", v)
	return netpkg.StepReturn, nil
}

func (b *sinkBox) Cleanup(ctx context.Context, sig *netpkg.Signature, state any) {
	rtlog.Info(rtlog.ComponentProgram, "sink done", "net", b.name, "count", len(b.received))
}

// buildDemoGraph assembles the graph this command runs: two generator nets
// merging through a routing node's shared collector, the merged stream
// decoupled by a temporal firewall, and a sink net logging the result —
// exercising every built-in net kind spec.md §4 names in one small program.
func buildDemoGraph(doc *config.Document, count int, firewallPeriod time.Duration) (*program.Runtime, error) {
	b := program.NewBuilder(0, 0)

	col, err := b.CreateCollector("merge-collector", 2)
	if err != nil {
		return nil, err
	}

	aToMerge, err := b.CreateChannel("a-to-merge", 4, channel.FIFO)
	if err != nil {
		return nil, err
	}
	if err := b.ConnectCollector("a-to-merge", "merge-collector"); err != nil {
		return nil, err
	}

	bToMerge, err := b.CreateChannel("b-to-merge", 4, channel.FIFO)
	if err != nil {
		return nil, err
	}
	if err := b.ConnectCollector("b-to-merge", "merge-collector"); err != nil {
		return nil, err
	}

	mergeToFW, err := b.CreateChannel("merge-to-fw", 2, channel.DFIFO)
	if err != nil {
		return nil, err
	}
	fwToSink, err := b.CreateChannel("fw-to-sink", 2, channel.FIFO)
	if err != nil {
		return nil, err
	}

	aValues := make([]int, count)
	bValues := make([]int, count)
	for i := 0; i < count; i++ {
		aValues[i] = i
		bValues[i] = 100 + i
	}

	if _, err := b.CreateNet("gen-a", 4); err != nil {
		return nil, err
	}
	if err := b.AttachBox("gen-a", &generatorBox{name: "gen-a", values: aValues}); err != nil {
		return nil, err
	}
	if err := b.Connect("gen-a", "out", aToMerge, program.Output); err != nil {
		return nil, err
	}
	if cfg := doc.NetConfig("gen-a"); cfg != nil {
		if err := b.SetNetConfig("gen-a", cfg); err != nil {
			return nil, err
		}
	}

	if _, err := b.CreateNet("gen-b", 4); err != nil {
		return nil, err
	}
	if err := b.AttachBox("gen-b", &generatorBox{name: "gen-b", values: bValues}); err != nil {
		return nil, err
	}
	if err := b.Connect("gen-b", "out", bToMerge, program.Output); err != nil {
		return nil, err
	}
	if cfg := doc.NetConfig("gen-b"); cfg != nil {
		if err := b.SetNetConfig("gen-b", cfg); err != nil {
			return nil, err
		}
	}

	if _, err := b.AddRoutingNode("merge", col, 4); err != nil {
		return nil, err
	}
	if err := b.Connect("merge", "in0", aToMerge, program.Input); err != nil {
		return nil, err
	}
	if err := b.Connect("merge", "in1", bToMerge, program.Input); err != nil {
		return nil, err
	}
	if err := b.Connect("merge", "out0", mergeToFW, program.Output); err != nil {
		return nil, err
	}

	if _, err := b.AddFirewall("tf", firewallPeriod, 4); err != nil {
		return nil, err
	}
	if err := b.Connect("tf", "in0", mergeToFW, program.Input); err != nil {
		return nil, err
	}
	if err := b.Connect("tf", "out0", fwToSink, program.Output); err != nil {
		return nil, err
	}

	if _, err := b.CreateNet("sink", 4); err != nil {
		return nil, err
	}
	if err := b.AttachBox("sink", &sinkBox{name: "sink"}); err != nil {
		return nil, err
	}
	if err := b.Connect("sink", "in", fwToSink, program.Input); err != nil {
		return nil, err
	}

	return b.Build()
}
