// Package app wires the cofuzz cobra command: flag parsing, configuration
// loading, logger setup, and coordinator construction.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tricker-z/CoFuzz/internal/config"
	"github.com/Tricker-z/CoFuzz/internal/coordinator"
	"github.com/Tricker-z/CoFuzz/internal/logger"
)

// NewCofuzzCommand builds the root "cofuzz" command.
func NewCofuzzCommand() *cobra.Command {
	opts := &config.Options{}

	cmd := &cobra.Command{
		Use:   "cofuzz",
		Short: "Hybrid concolic/constraint-sampling coordinator for a coverage-guided fuzzer.",
		Long: `cofuzz runs alongside a coverage-guided mutational fuzzer and supplements it
with concolic execution and constraint-driven input sampling. It traces new
queue inputs through an instrumented trace binary, ranks uncovered edges
with an online-learned model, and dispatches concolic or constraint-
sampling jobs against chosen (seed, edge) pairs. Interesting outputs are
written back into a queue the mutational fuzzer will pick up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "target configuration file (required)")
	flags.StringVarP(&opts.OutputRoot, "output", "o", "", "fuzzer output root directory (required, must exist)")
	flags.StringVarP(&opts.FuzzerName, "afl-name", "a", "", "mutational fuzzer's instance name under --output (required)")
	flags.StringVarP(&opts.Name, "name", "n", config.DefaultName, "this coordinator instance's name under --output")
	flags.StringVarP(&opts.LogFile, "log", "l", config.DefaultLogFile, "log file, relative to this instance's output dir")
	flags.StringVarP(&opts.Sampler, "sampler", "s", config.DefaultSampler, "polytope walk: hit-and-run, dikin, vaidya, john")
	flags.StringVar(&opts.WalkerBin, "walker-bin", "", "external polytope-walk binary (required for vaidya/john)")
	flags.StringVar(&opts.SolverBin, "solver-bin", config.DefaultSolverBin, "SMT solver binary")
	flags.IntVar(&opts.Workers, "workers", config.DefaultWorkers, "bounded fan-out for the trace loop and the random-solve fallback")

	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("afl-name")

	return cmd
}

func run(opts *config.Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	targetCfg, err := config.LoadTargetConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load target config: %w", err)
	}

	instanceDir := opts.InstanceDir()
	if err := os.MkdirAll(instanceDir, 0o755); err != nil {
		return fmt.Errorf("create instance dir %s: %w", instanceDir, err)
	}

	logFile, err := os.OpenFile(filepath.Join(instanceDir, opts.LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger.Init("info")
	logger.SetColorEnable(false)
	logger.SetOutput(io.MultiWriter(os.Stdout, logFile))

	logger.Infof("starting cofuzz instance %q against fuzzer %q", opts.Name, opts.FuzzerName)

	aflDir := opts.AFLDir()
	paths := coordinator.Paths{
		QueueDir:      filepath.Join(aflDir, "queue"),
		FuzzerStats:   filepath.Join(aflDir, "fuzzer_stats"),
		FuzzBitmap:    filepath.Join(aflDir, "fuzz_bitmap"),
		BBBitmap:      filepath.Join(aflDir, "bb_bitmap"),
		InstanceDir:   instanceDir,
		OutQueueDir:   filepath.Join(instanceDir, "queue"),
		OutHangsDir:   filepath.Join(instanceDir, "hangs"),
		OutCrashesDir: filepath.Join(instanceDir, "crashes"),
		RunSummary:    filepath.Join(instanceDir, "run_summary.json"),
	}

	engine, err := coordinator.New(
		paths,
		opts.Workers,
		targetCfg.Put.TraceBin, targetCfg.Put.Argument,
		targetCfg.Put.CohuzzBin, targetCfg.Put.Argument,
		opts.SolverBin, opts.Sampler, opts.WalkerBin,
	)
	if err != nil {
		return fmt.Errorf("build coordinator: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received interrupt, shutting down after the current round")
		cancel()
	}()

	return engine.Run(ctx)
}
