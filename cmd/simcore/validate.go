package main

import (
	"fmt"
	goruntime "runtime"

	"github.com/hassoncs/clover-sub000/internal/runtime"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scene>...",
	Short: "Check scene documents",
	Long: `Parses and validates every scene, then builds a runtime from it so
template and physics problems surface too. Scenes are checked in parallel.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

type validation struct {
	path     string
	entities int
	rules    int
	err      error
}

func runValidate(cmd *cobra.Command, args []string) error {
	results := make([]validation, len(args))

	var g errgroup.Group
	g.SetLimit(goruntime.GOMAXPROCS(0))
	for i, path := range args {
		g.Go(func() error {
			results[i] = validateScene(path)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s\n      %v\n", res.path, res.err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok    %s (%d entities, %d rules)\n", res.path, res.entities, res.rules)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenes invalid", failed, len(args))
	}
	return nil
}

func validateScene(path string) validation {
	res := validation{path: path}
	s, err := scene.Load(path)
	if err != nil {
		res.err = err
		return res
	}
	// building evaluates no expressions, so the literal resolver is enough
	r, err := runtime.Load(s, nil, runtime.Options{
		Log:          log.With(zap.String("path", path)),
		Seed:         cfg.Simulation.Seed,
		InitialLives: cfg.Simulation.InitialLives,
	})
	if err != nil {
		res.err = err
		return res
	}
	defer r.Close()
	res.entities = r.Registry().Len()
	res.rules = len(s.Rules)
	return res
}
