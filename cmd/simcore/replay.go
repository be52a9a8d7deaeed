package main

import (
	"fmt"

	"github.com/hassoncs/clover-sub000/internal/replay"
	"github.com/hassoncs/clover-sub000/internal/runtime"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	flagRuns    int
	flagVerbose bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <scene> <script>",
	Short: "Replay an input script and print state digests",
	Long: `Feeds a recorded input script to the scene and prints the state digest
of the last frame. With --runs N the replay runs N times on independent
runtimes in parallel and fails if any run diverges from the first.`,
	Args: cobra.ExactArgs(2),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().IntVar(&flagRuns, "runs", 1, "Independent runs to compare")
	replayCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print every frame digest")
}

func runReplay(cmd *cobra.Command, args []string) error {
	script, err := replay.Load(args[1])
	if err != nil {
		return err
	}
	runs := max(flagRuns, 1)

	digests := make([][]uint64, runs)
	g, _ := errgroup.WithContext(cmd.Context())
	for i := range runs {
		g.Go(func() error {
			// each run decodes its own scene so no definition is shared
			s, err := scene.Load(args[0])
			if err != nil {
				return err
			}
			opts, err := runtime.OptionsFromConfig(cfg, log.With(zap.Int("run", i)))
			if err != nil {
				return err
			}
			r, err := runtime.Load(s, nil, opts)
			if err != nil {
				return err
			}
			defer r.Close()
			digests[i], err = replay.Run(r, script)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	first := digests[0]
	if flagVerbose {
		for i, d := range first {
			fmt.Fprintf(out, "%6d  %016x\n", i, d)
		}
	}
	for i := 1; i < runs; i++ {
		if at := replay.Diverges(first, digests[i]); at >= 0 {
			return fmt.Errorf("run %d diverges from run 0 at frame %d", i, at)
		}
	}
	if len(first) == 0 {
		fmt.Fprintln(out, "no frames")
		return nil
	}
	fmt.Fprintf(out, "%s: %d frames, %d runs, final digest %016x\n", script.Name, len(first), runs, first[len(first)-1])
	return nil
}
