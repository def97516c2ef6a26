//go:build !linux

package net

import "github.com/rs/zerolog"

// applyPriority is a no-op on platforms without a Setpriority syscall
// reachable from golang.org/x/sys/unix; the requested priority is accepted
// and logged but has no scheduling effect (SPEC_FULL.md §5).
func applyPriority(priority int, log zerolog.Logger) {
	log.Debug().Int("priority", priority).Msg("real-time priority not supported on this platform")
}
