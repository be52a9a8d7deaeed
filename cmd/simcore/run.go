package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hassoncs/clover-sub000/internal/core/event"
	"github.com/hassoncs/clover-sub000/internal/observe"
	"github.com/hassoncs/clover-sub000/internal/rules"
	"github.com/hassoncs/clover-sub000/internal/runtime"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

var (
	flagFrames  int
	flagDT      time.Duration
	flagMetrics bool
)

var runCmd = &cobra.Command{
	Use:   "run <scene>",
	Short: "Simulate a scene and print a summary",
	Long: `Steps the scene at a fixed dt until it is won or lost, the frame budget
runs out, or the process is interrupted. No input is fed; rules driven by
frames, timers, collisions and events still play out.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&flagFrames, "frames", 0, "Frame budget (default: simulation.max_frames)")
	runCmd.Flags().DurationVar(&flagDT, "dt", 0, "Fixed step (default: simulation.fixed_step)")
	runCmd.Flags().BoolVar(&flagMetrics, "metrics", false, "Print metric totals (default: metrics.enabled)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames := cfg.Simulation.MaxFrames
	if flagFrames > 0 {
		frames = flagFrames
	}
	dt := cfg.Simulation.FixedStep
	if flagDT > 0 {
		dt = flagDT
	}

	s, err := scene.Load(args[0])
	if err != nil {
		return err
	}

	opts, err := runtime.OptionsFromConfig(cfg, log)
	if err != nil {
		return err
	}
	var reader *sdkmetric.ManualReader
	if flagMetrics || cfg.Metrics.Enabled {
		reader = sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = provider.Shutdown(context.Background()) }()
		if opts.Metrics, err = observe.New(provider); err != nil {
			return err
		}
	}

	r, err := runtime.Load(s, nil, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	event.Subscribe(r.Bus(), func(e event.StateChanged) {
		log.Info("state", zap.String("from", e.From), zap.String("to", e.To), zap.Uint64("frame", r.Frames()))
	})
	event.Subscribe(r.Bus(), func(e event.GameEvent) {
		log.Debug("event", zap.String("name", e.Name), zap.Uint64("frame", r.Frames()))
	})

	if r.State() == rules.Ready {
		r.Start()
	}
	for i := 0; i < frames && ctx.Err() == nil; i++ {
		r.Step(dt)
		if st := r.State(); st == rules.Won || st == rules.Lost {
			break
		}
	}
	if ctx.Err() != nil {
		log.Warn("interrupted", zap.Uint64("frame", r.Frames()))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scene    %s (%s)\n", s.Metadata.Title, s.Metadata.ID)
	fmt.Fprintf(out, "state    %s\n", r.State())
	fmt.Fprintf(out, "score    %d\n", r.Score())
	fmt.Fprintf(out, "lives    %d\n", r.Lives())
	fmt.Fprintf(out, "frames   %d (%.2fs)\n", r.Frames(), r.Elapsed())
	fmt.Fprintf(out, "entities %d\n", r.Registry().Len())

	if reader == nil {
		return nil
	}
	totals, err := observe.Totals(ctx, reader)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	for _, name := range observe.SortedNames(totals) {
		fmt.Fprintf(out, "  %-28s %g\n", name, totals[name])
	}
	return nil
}
