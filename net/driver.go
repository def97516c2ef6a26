package net

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ardnew/flowrt/channel"
	"github.com/ardnew/flowrt/internal/rterr"
	"github.com/ardnew/flowrt/message"
)

// MinPriority and MaxPriority bound the real-time priority accepted by
// RunOptions, mirroring the original's platform-specific SCHED_FIFO range
// rather than silently clamping out-of-range values (SPEC_FULL.md §3
// "Priority validation on net_run").
const (
	MinPriority = 1
	MaxPriority = 99
)

// ValidatePriority reports ErrInvalidPriority if p falls outside
// [MinPriority, MaxPriority].
func ValidatePriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return errors.Wrapf(rterr.ErrInvalidPriority, "priority %d not in [%d,%d]", p, MinPriority, MaxPriority)
	}
	return nil
}

// RunOptions configures one net's driver goroutine.
type RunOptions struct {
	// Priority requests a real-time scheduling priority for the OS thread
	// backing this net's goroutine (SPEC_FULL.md §5): honored where
	// golang.org/x/sys/unix priority syscalls are available, otherwise
	// accepted and logged as a no-op.
	Priority int
}

// Driver wraps a Box with the init/barrier/loop/terminate/cleanup lifecycle
// of spec.md §4.5.
type Driver struct {
	net *Net
	box Box
}

// NewDriver creates a Driver for the given net and box implementation.
func NewDriver(n *Net, box Box) *Driver {
	return &Driver{net: n, box: box}
}

// Run executes the driver's full lifecycle and blocks until the net
// terminates. It returns the box's init error, if any, together with any
// errors reported by Step calls or profiler writes, aggregated with
// go-multierror. Ending the neighbors' channel ends does not itself fail.
func (d *Driver) Run(ctx context.Context, opts RunOptions) error {
	if err := ValidatePriority(opts.Priority); err != nil {
		return err
	}
	applyPriority(opts.Priority, d.net.log)

	d.resolveProfilerConfig()

	state, initErr := d.box.Init(ctx, d.net.sig)
	if initErr != nil {
		d.net.log.Warn().Err(initErr).Msg("init failed")
	}

	if d.net.barrier != nil {
		d.net.barrier.Arrive()
		d.net.barrier.Wait()
	}

	var result error
	if initErr == nil {
		d.net.log.Debug().Msg("starting main loop")
		result = d.loop(ctx, state)
	}

	teardownErr := d.terminate(ctx)

	d.box.Cleanup(ctx, d.net.sig, state)
	d.net.log.Debug().Msg("cleanup complete")

	var merr *multierror.Error
	if initErr != nil {
		merr = multierror.Append(merr, errors.Wrap(initErr, "init"))
	}
	if result != nil {
		merr = multierror.Append(merr, result)
	}
	if teardownErr != nil {
		merr = multierror.Append(merr, teardownErr)
	}
	return merr.ErrorOrNil()
}

// loop runs spec.md §4.5 step 5: emit a profiler start event, emit a ready
// event if an input already has data queued, step the box, emit an overrun
// event for every output write the step caused to overwrite a queued
// message, update state, repeat while the verdict is StepContinue
// (SPEC_FULL.md §3 "Net ready/start/end/overrun profiler events").
func (d *Driver) loop(ctx context.Context, state any) error {
	outputs := d.net.sig.Outputs()
	overwriteSeen := make(map[*channel.Channel]uint64, len(outputs))
	for _, p := range outputs {
		overwriteSeen[p.Ch] = p.Ch.Stats().Overwrite
	}

	var merr *multierror.Error
	for {
		if err := d.emitProfilerEvent(ctx, EventStart); err != nil {
			merr = multierror.Append(merr, err)
		}
		if d.anyInputReady() {
			if err := d.emitProfilerEvent(ctx, EventReady); err != nil {
				merr = multierror.Append(merr, err)
			}
		}

		verdict, err := d.box.Step(ctx, d.net.sig, state)
		if err != nil {
			d.net.log.Debug().Err(err).Msg("step reported error")
			merr = multierror.Append(merr, err)
		}

		for _, p := range outputs {
			cur := p.Ch.Stats().Overwrite
			for ; overwriteSeen[p.Ch] < cur; overwriteSeen[p.Ch]++ {
				if err := d.emitProfilerEvent(ctx, EventOverrun); err != nil {
					merr = multierror.Append(merr, err)
				}
			}
		}

		verdict = d.updateState(verdict)
		if verdict != StepContinue {
			if err := d.emitProfilerEvent(ctx, EventEnd); err != nil {
				merr = multierror.Append(merr, err)
			}
			break
		}
	}
	return merr.ErrorOrNil()
}

// anyInputReady reports whether any of the net's input ports already had a
// message queued before this iteration's Step call.
func (d *Driver) anyInputReady() bool {
	for _, p := range d.net.sig.Inputs() {
		if p.Ch.ReadyToRead() > 0 {
			return true
		}
	}
	return false
}

// updateState implements spec.md §4.5's state-update rule: a box-forced
// verdict is honored outright; StepReturn is resolved by checking whether
// every triggering input has ended with an empty FIFO, or every output's
// sink has ended.
func (d *Driver) updateState(forced StepResult) StepResult {
	if forced != StepReturn {
		return forced
	}

	triggering := 0
	allTriggeringEnded := true
	for _, p := range d.net.sig.Inputs() {
		if !p.Ch.Variant().Triggers() {
			continue
		}
		triggering++
		if !(p.Ch.Source().State() == channel.StateEnd && p.Ch.ReadyToRead() == 0) {
			allTriggeringEnded = false
		}
	}
	if triggering > 0 && allTriggeringEnded {
		return StepEnd
	}

	outputs := d.net.sig.Outputs()
	if len(outputs) > 0 {
		allOutputsEnded := true
		for _, p := range outputs {
			if p.Ch.Sink().State() != channel.StateEnd {
				allOutputsEnded = false
				break
			}
		}
		if allOutputsEnded {
			return StepEnd
		}
	}

	return StepContinue
}

// terminate implements spec.md §4.6: end every input's sink side, end every
// output's source side, and do the same to the profiler port if attached.
func (d *Driver) terminate(ctx context.Context) error {
	var merr *multierror.Error

	for _, p := range d.net.sig.Inputs() {
		p.Ch.EndSink()
	}
	for _, p := range d.net.sig.Outputs() {
		p.Ch.EndSource()
	}
	if d.net.profiler != nil {
		d.net.profiler.EndSource()
	}

	d.net.log.Debug().Msg("terminated")
	return merr.ErrorOrNil()
}

// resolveProfilerConfig implements spec.md §4.5 step 1: if the net's
// configuration explicitly disables the profiler, end its output
// immediately and detach the port so the loop never attempts to write to
// it.
func (d *Driver) resolveProfilerConfig() {
	if d.net.profiler == nil {
		return
	}
	if d.net.ProfilerEnabled() {
		return
	}
	d.net.profiler.EndSource()
	d.net.ClearProfiler()
}

// emitProfilerEvent writes one profiler tick event to the net's profiler
// port, if attached. A write failure (e.g. the profiler backend net has
// already terminated) is returned to the caller rather than aborting the
// loop — profiler delivery is best-effort (spec.md §9 "Profiler
// back-pressure policy").
func (d *Driver) emitProfilerEvent(ctx context.Context, kind ProfilerEventKind) error {
	if d.net.profiler == nil {
		return nil
	}
	m := message.New(kind, 0, message.Hooks{})
	if err := d.net.profiler.Write(ctx, m); err != nil {
		d.net.log.Debug().Err(err).Str("event", kind.String()).Msg("profiler write failed")
		return errors.Wrapf(err, "profiler event %s", kind)
	}
	return nil
}
