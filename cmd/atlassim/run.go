package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/garethgeorge/atlaspack/internal/progress"
	"github.com/garethgeorge/atlaspack/internal/sim"
	"github.com/joeycumines/logiface"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	seeds    int
	seedBase int64
	parallel int
	base     sim.Config
}

var runOpts = runOptions{base: sim.DefaultConfig()}

func init() {
	cmd := newRunCmd()
	f := cmd.Flags()
	f.IntVar(&runOpts.seeds, "seeds", 4, "Number of seeds to simulate")
	f.Int64Var(&runOpts.seedBase, "seed", 1, "First seed, later runs use consecutive seeds")
	f.IntVar(&runOpts.parallel, "parallel", runtime.GOMAXPROCS(0), "Maximum runs in flight")
	f.IntVar(&runOpts.base.Frames, "frames", runOpts.base.Frames, "Frames per run")
	f.IntVar(&runOpts.base.MaxSize, "max-size", runOpts.base.MaxSize, "Maximum atlas width and height")
	f.IntVar(&runOpts.base.InitialSize, "initial-size", runOpts.base.InitialSize, "Initial atlas width and height")
	f.Float64Var(&runOpts.base.SpawnRate, "spawn-rate", runOpts.base.SpawnRate, "Expected emitters spawned per frame")
	f.IntVar(&runOpts.base.MinEmitter, "min-emitter", runOpts.base.MinEmitter, "Smallest emitter atlas side")
	f.IntVar(&runOpts.base.MaxEmitter, "max-emitter", runOpts.base.MaxEmitter, "Largest emitter atlas side")
	f.IntVar(&runOpts.base.Capacity, "capacity", runOpts.base.Capacity, "Particle slots per emitter")
	f.IntVar(&runOpts.base.BurstSize, "burst-size", runOpts.base.BurstSize, "Particles created per burst")
	f.BoolVar(&runOpts.base.ForceCreate, "force", false, "Evict live particles when an emitter is full")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run simulations",
		Long: `The run command simulates one or more seeds and prints a line per seed
followed by the totals.

Example:
  atlassim run --seeds 8 --frames 3600
  atlassim run --initial-size 16 --max-size 512 --spawn-rate 2 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr())
			return runSimulations(cmd.Context(), cmd.OutOrStdout(), logger, runOpts)
		},
	}
}

type runResult struct {
	Runs  []sim.Report `json:"runs"`
	Total sim.Report   `json:"total"`
}

func runSimulations(ctx context.Context, w io.Writer, logger *logiface.Logger[logiface.Event], opts runOptions) error {
	if opts.seeds <= 0 {
		return fmt.Errorf("--seeds must be positive, got %d", opts.seeds)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reports := make([]sim.Report, opts.seeds)
	eg, ctx := errgroup.WithContext(ctx)
	if opts.parallel > 0 {
		eg.SetLimit(opts.parallel)
	}
	for i := range reports {
		cfg := opts.base
		cfg.Seed = opts.seedBase + int64(i)
		cfg.Logger = logger
		cfg.Progress = progress.NewLogFrameTracker(logger, max(cfg.Frames/10, 1))
		eg.Go(func() error {
			report, err := sim.Run(ctx, cfg)
			if err != nil {
				return fmt.Errorf("seed %d: %w", cfg.Seed, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	result := runResult{Runs: reports}
	for _, r := range reports {
		result.Total.Add(r)
	}
	if jsonOut {
		return printJSON(w, result)
	}
	for _, r := range reports {
		printReport(w, fmt.Sprintf("seed %d", r.Seed), r)
	}
	printReport(w, "total", result.Total)
	return nil
}

func printReport(w io.Writer, label string, r sim.Report) {
	fmt.Fprintf(w, "%-10s frames=%d spawned=%d expired=%d rejected=%d live=%d peak=%d contexts=%d resizes=%d migrations=%d particles=%d forced=%d starved=%d\n",
		label, r.Frames, r.Spawned, r.Expired, r.Rejected, r.Live, r.PeakLive, r.Contexts,
		r.Resizes, r.Migrations, r.Particles, r.Forced, r.Starved)
}
