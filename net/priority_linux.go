//go:build linux

package net

import (
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// applyPriority locks the calling goroutine to its OS thread and lowers
// that thread's nice value in proportion to the requested real-time
// priority (SPEC_FULL.md §5: Go exposes no SCHED_FIFO equivalent, so a
// negative nice value is the closest available elevation on Linux).
// Locking the thread is deliberate and permanent for the lifetime of the
// goroutine: an unlocked thread could hand the adjusted priority to an
// unrelated goroutine on its next reschedule.
func applyPriority(priority int, log zerolog.Logger) {
	runtime.LockOSThread()

	nice := -(priority * 20) / MaxPriority
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, nice); err != nil {
		log.Debug().Err(err).Int("priority", priority).Msg("setpriority unavailable")
		return
	}
	log.Debug().Int("priority", priority).Int("nice", nice).Msg("applied thread priority")
}
