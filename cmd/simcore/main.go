// simcore runs scene documents headless.
//
// Usage:
//
//	simcore validate <scene>...           - Check scene documents
//	simcore run <scene>                   - Simulate a scene and print a summary
//	simcore replay <scene> <script>       - Replay an input script and print state digests
//
// Global flags:
//
//	--config <path>  - TOML config (default: $SIMCORE_CONFIG, else built-in defaults)
//	--seed <value>   - Override simulation.seed
package main

import (
	"fmt"
	"os"

	"github.com/hassoncs/clover-sub000/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	flagConfig string
	flagSeed   int64

	cfg *config.Config
	log *zap.Logger
)

func main() {
	err := rootCmd.Execute()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "simcore",
	Short:         "Headless entity-behavior-rule simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		if cfg, err = config.Load(flagConfig); err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			cfg.Simulation.Seed = flagSeed
		}
		if log, err = newLogger(cfg.Logging); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to TOML config")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "Random seed (overrides simulation.seed)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
