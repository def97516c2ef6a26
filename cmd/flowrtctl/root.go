package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ardnew/flowrt/config"
	"github.com/ardnew/flowrt/internal/rtlog"
	"github.com/ardnew/flowrt/pkg/prof"
)

// newRootCmd builds the flowrtctl command tree. Flags are bound into a
// viper instance rather than read directly off the cobra.Command, mirroring
// the cobra+viper pairing the ambient stack is grounded on: a flag is just
// the first layer a config.Document can be assembled from.
func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "flowrtctl",
		Short: "Run a demonstration flowrt dataflow graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.Duration("firewall-period", 50*time.Millisecond, "temporal firewall tick period")
	flags.Int("generator-count", 5, "number of values each generator net emits")
	flags.String("log-level", "info", "minimum log level (debug, info, warn, error)")
	flags.Bool("profiler", true, "enable the profiler attribute on generator nets")
	flags.String("cpu-profile", "", "write a CPU profile to this path for the run (requires -tags profile)")

	for _, name := range []string{"firewall-period", "generator-count", "log-level", "profiler", "cpu-profile"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	return cmd
}

func runDemo(ctx context.Context, v *viper.Viper) error {
	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	rtlog.SetLevel(level)

	doc := config.New(v)
	profiler := "on"
	if !v.GetBool("profiler") {
		profiler = "off"
	}
	doc.SetNetConfig("gen-a", map[string]any{"profiler": profiler})
	doc.SetNetConfig("gen-b", map[string]any{"profiler": profiler})

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := buildDemoGraph(doc, v.GetInt("generator-count"), v.GetDuration("firewall-period"))
	if err != nil {
		return err
	}

	if path := v.GetString("cpu-profile"); path != "" {
		if err := prof.StartCPU(path); err != nil {
			return err
		}
		defer prof.StopCPU()
	}

	rtlog.Info(rtlog.ComponentProgram, "demo graph built", "nets", rt.NetCount(), "channels", rt.ChannelCount())
	return rt.Run(ctx)
}
