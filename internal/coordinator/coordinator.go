// Package coordinator implements the hybrid executor main loop: the round
// sequence that discovers new seeds, traces them, builds candidates, cracks
// and solves, and writes back interesting/hang/crash outputs.
package coordinator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/Tricker-z/CoFuzz/internal/afl"
	"github.com/Tricker-z/CoFuzz/internal/concolic"
	"github.com/Tricker-z/CoFuzz/internal/constants"
	"github.com/Tricker-z/CoFuzz/internal/covmap"
	"github.com/Tricker-z/CoFuzz/internal/depot"
	"github.com/Tricker-z/CoFuzz/internal/logger"
	"github.com/Tricker-z/CoFuzz/internal/runstate"
	"github.com/Tricker-z/CoFuzz/internal/sampler"
	"github.com/Tricker-z/CoFuzz/internal/seedname"
	"github.com/Tricker-z/CoFuzz/internal/smt"
	"github.com/Tricker-z/CoFuzz/internal/tracer"
)

const randomSolveFallbackSleep = 60 * time.Second

// Paths collects every directory the executor reads from or writes to.
type Paths struct {
	QueueDir      string // <afl_output>/<afl_name>/queue
	FuzzerStats   string // <afl_output>/<afl_name>/fuzzer_stats
	FuzzBitmap    string // <afl_output>/<afl_name>/fuzz_bitmap
	BBBitmap      string // <afl_output>/<afl_name>/bb_bitmap
	InstanceDir   string // <afl_output>/<name>
	OutQueueDir   string // <instance>/queue
	OutHangsDir   string // <instance>/hangs
	OutCrashesDir string // <instance>/crashes
	RunSummary    string // <instance>/run_summary.json
}

// Engine is the hybrid executor.
type Engine struct {
	paths    Paths
	workers  int
	target   *afl.TargetConfig
	cov      *covmap.Map
	dep      *depot.Depot
	trace    *tracer.Driver
	concolic *concolic.Driver
	mutator  *sampler.Mutator
	runs     *runstate.Manager
}

// New wires every component into a ready-to-run Engine.
func New(paths Paths, workers int, traceBin, traceArg, concolicBin, concolicArg, solverBin, walkerName, walkerBin string) (*Engine, error) {
	target, err := afl.ParseFuzzerStats(paths.FuzzerStats)
	if err != nil {
		return nil, fmt.Errorf("parse fuzzer stats: %w", err)
	}

	cov, err := covmap.Load(paths.FuzzBitmap)
	if err != nil {
		return nil, fmt.Errorf("load coverage bitmap: %w", err)
	}

	for _, dir := range []string{paths.OutQueueDir, paths.OutHangsDir, paths.OutCrashesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	concolicDriver, err := concolic.New(concolicBin, concolicArg, paths.FuzzBitmap, filepath.Join(paths.InstanceDir, "tmp"), constants.ConcolicTimeoutSec*time.Second)
	if err != nil {
		return nil, fmt.Errorf("init concolic driver: %w", err)
	}

	solverClient := smt.New(solverBin, []string{"-in"}, constants.SolverTimeoutMS*time.Millisecond)

	return &Engine{
		paths:    paths,
		workers:  workers,
		target:   target,
		cov:      cov,
		dep:      depot.New(time.Now().UnixNano()),
		trace:    tracer.New(traceBin, traceArg, workers),
		concolic: concolicDriver,
		mutator:  &sampler.Mutator{Solver: solverClient, WalkerName: walkerName, WalkerBin: walkerBin},
		runs:     runstate.New(paths.RunSummary),
	}, nil
}

// Run executes rounds indefinitely until ctx is cancelled, then logs the
// summary counters and returns cleanly.
func (e *Engine) Run(ctx context.Context) error {
	summary, err := e.runs.Load()
	if err != nil {
		return fmt.Errorf("load run summary: %w", err)
	}
	for _, name := range summary.Traced {
		e.dep.MarkTraced(name)
	}
	for _, name := range summary.Solved {
		e.dep.MarkSolved(name)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Infof("shutdown requested: interesting=%d hang=%d crash=%d",
				e.runs.InterestingCnt.Load(), e.runs.HangCnt.Load(), e.runs.CrashCnt.Load())
			return nil
		default:
		}

		if err := e.round(ctx); err != nil {
			logger.Errorf("round failed: %v", err)
		}
	}
}

// round performs one iteration of the sequence spec.md §4.7 specifies:
// trace -> refresh bb_hit -> candidate build -> (crack then solve, or
// random-solve fallback) -> model update.
func (e *Engine) round(ctx context.Context) error {
	newSeeds, err := e.discoverNewSeeds()
	if err != nil {
		return fmt.Errorf("discover new seeds: %w", err)
	}
	if err := e.traceSeeds(newSeeds); err != nil {
		logger.Warnf("trace loop had errors: %v", err)
	}

	bbRaw, err := os.ReadFile(e.paths.BBBitmap)
	if err != nil {
		return fmt.Errorf("read bb_bitmap: %w", err)
	}
	e.dep.RefreshBBHit(bbRaw)

	candidates := e.dep.BuildCandidates()

	if len(candidates) == 0 {
		return multierr.Append(e.randomSolveFallback(ctx), e.saveRunSummary())
	}

	deltas := make(map[uint64]float64)
	var errs error
	for seed, addrs := range candidates {
		seedDeltas, err := e.crackThenSolve(seed, addrs)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("seed %s: %w", seed, err))
			continue
		}
		for addr, d := range seedDeltas {
			deltas[addr] += d
		}
	}
	if errs != nil {
		logger.Warnf("candidate loop had errors: %v", errs)
	}

	e.dep.UpdateModel(deltas)
	return e.saveRunSummary()
}

// discoverNewSeeds lists the fuzzer queue for names not yet traced.
func (e *Engine) discoverNewSeeds() ([]string, error) {
	entries, err := os.ReadDir(e.paths.QueueDir)
	if err != nil {
		return nil, fmt.Errorf("read queue dir %s: %w", e.paths.QueueDir, err)
	}

	var fresh []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "id:") {
			continue
		}
		if e.dep.HasTraced(name) {
			continue
		}
		fresh = append(fresh, name)
	}
	return fresh, nil
}

// traceSeeds traces every name in names and marks it traced.
func (e *Engine) traceSeeds(names []string) error {
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(e.paths.QueueDir, name))
	}

	if err := e.trace.TraceAll(e.dep, paths); err != nil {
		return err
	}
	for _, name := range names {
		e.dep.MarkTraced(name)
	}
	return nil
}

// crackThenSolve implements spec.md §4.7 step 5: crack the seed against its
// candidate addresses, sample mutants from the resulting constraints, sync
// every mutant, then concolic-solve the seed itself.
func (e *Engine) crackThenSolve(seedName string, addrs []uint64) (map[uint64]float64, error) {
	seedPath := filepath.Join(e.paths.QueueDir, seedName)
	deltas := make(map[uint64]float64)

	crackRes, err := e.concolic.Crack(seedPath, addrs)
	if err != nil {
		return deltas, fmt.Errorf("crack: %w", err)
	}
	if !crackRes.Killed {
		constraintDict := sampler.ScanConstraintLog(crackRes.ConstraintLog)
		seedBytes, err := os.ReadFile(seedPath)
		if err != nil {
			return deltas, fmt.Errorf("read seed: %w", err)
		}

		for addr, constraint := range constraintDict {
			mutants := e.materializeMutants(seedBytes, constraint)
			for _, mutant := range mutants {
				delta, err := e.syncSeed(mutant, seedName, "crack")
				if err != nil {
					logger.Warnf("sync crack mutant for addr %d: %v", addr, err)
					continue
				}
				deltas[addr] += float64(delta)
			}
		}
	}

	if e.dep.MarkSolved(seedName) {
		solveRes, err := e.concolic.Solve(seedPath)
		if err != nil {
			return deltas, fmt.Errorf("solve: %w", err)
		}
		for _, outPath := range solveRes.OutputFiles {
			mutant, err := os.ReadFile(outPath)
			if err != nil {
				continue
			}
			if _, err := e.syncSeed(mutant, seedName, "concolic"); err != nil {
				logger.Warnf("sync solve output %s: %v", outPath, err)
			}
		}
	}

	return deltas, nil
}

// materializeMutants runs both the model-solve path and the polyhedral
// abstraction path over one collected constraint, per spec.md §4.5.
// Failures are caught at this boundary: whatever mutants were already
// produced are still returned.
func (e *Engine) materializeMutants(seedBytes []byte, constraint string) [][]byte {
	var mutants [][]byte

	if mutant, ok, err := e.mutator.FromModel(seedBytes, constraint); err != nil {
		logger.Warnf("model solve failed: %v", err)
	} else if ok {
		mutants = append(mutants, mutant)
	}

	varNames := extractDeclaredVars(constraint)
	if len(varNames) > 0 {
		if polytopeMutants, err := e.mutator.FromPolytope(seedBytes, constraint, varNames); err != nil {
			logger.Warnf("polyhedral sampling failed: %v", err)
		} else {
			mutants = append(mutants, polytopeMutants...)
		}
	}

	return mutants
}

// randomSolveFallback implements spec.md §4.7 step 4: when no candidate
// mapping was built, concolic-solve up to RandSolveNum unsolved seeds
// sorted in descending order of (new_cover, from_seed, -file_size, name):
// new-coverage seeds first, then derived seeds, then smaller files, then
// names in reverse lexical order; sleep when none remain.
func (e *Engine) randomSolveFallback(ctx context.Context) error {
	entries, err := os.ReadDir(e.paths.QueueDir)
	if err != nil {
		return fmt.Errorf("read queue dir: %w", err)
	}

	type candidate struct {
		name     string
		newCover bool
		fromSeed bool
		size     int64
	}

	var unsolved []candidate
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "id:") || e.dep.HasSolved(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		unsolved = append(unsolved, candidate{
			name:     name,
			newCover: seedname.HasNewCoverageMarker(name),
			fromSeed: !seedname.IsOriginal(name),
			size:     info.Size(),
		})
	}

	if len(unsolved) == 0 {
		select {
		case <-ctx.Done():
		case <-time.After(randomSolveFallbackSleep):
		}
		return nil
	}

	sort.Slice(unsolved, func(i, j int) bool {
		a, b := unsolved[i], unsolved[j]
		if a.newCover != b.newCover {
			return a.newCover
		}
		if a.fromSeed != b.fromSeed {
			return a.fromSeed
		}
		if a.size != b.size {
			return a.size < b.size
		}
		return a.name > b.name
	})

	if len(unsolved) > constants.RandSolveNum {
		unsolved = unsolved[:constants.RandSolveNum]
	}

	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for _, c := range unsolved {
		c := c
		g.Go(func() error {
			if !e.dep.MarkSolved(c.name) {
				return nil
			}
			seedPath := filepath.Join(e.paths.QueueDir, c.name)
			res, err := e.concolic.Solve(seedPath)
			if err != nil {
				return fmt.Errorf("random-solve %s: %w", c.name, err)
			}
			for _, outPath := range res.OutputFiles {
				mutant, err := os.ReadFile(outPath)
				if err != nil {
					continue
				}
				if _, err := e.syncSeed(mutant, c.name, "concolic"); err != nil {
					logger.Warnf("sync random-solve output %s: %v", outPath, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) saveRunSummary() error {
	return e.runs.Save(e.dep.TracedNames(), e.dep.SolvedNames(), e.dep.SeenAddrs())
}

func extractDeclaredVars(constraint string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(constraint, func(r rune) bool {
		return r == '(' || r == ')' || r == ' ' || r == '\n' || r == '\t'
	}) {
		if !strings.HasPrefix(tok, "k!") {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		names = append(names, tok)
	}
	return names
}
