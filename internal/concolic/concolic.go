// Package concolic invokes the concolic binary in its two driven modes,
// solve and crack, wiring the environment variables that are its entire
// contract.
package concolic

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tricker-z/CoFuzz/internal/constants"
	"github.com/Tricker-z/CoFuzz/internal/procutil"
)

const killGrace = 5 * time.Second

// Driver invokes a configured concolic binary.
type Driver struct {
	binary     string
	argTokens  []string
	timeout    time.Duration
	workDir    string // holds cur_input, crack_map, and the solve output dir
	bitmapPath string // SYMCC_AFL_COVERAGE_MAP
}

// New returns a Driver rooted at workDir, which it creates if absent.
func New(binary, argument, bitmapPath, workDir string, timeout time.Duration) (*Driver, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create concolic work dir %s: %w", workDir, err)
	}
	return &Driver{
		binary:     binary,
		argTokens:  strings.Fields(argument),
		timeout:    timeout,
		workDir:    workDir,
		bitmapPath: bitmapPath,
	}, nil
}

// SolveResult is the outcome of a Solve invocation.
type SolveResult struct {
	// OutputFiles lists the mutant files the concolic binary wrote.
	OutputFiles []string
	Killed      bool
}

// Solve copies inputPath to the fixed cur_input path, clears the solve
// output directory, and runs the concolic binary with linearization and
// coverage-map environment set.
func (d *Driver) Solve(inputPath string) (*SolveResult, error) {
	curInput := filepath.Join(d.workDir, constants.CurInput)
	if err := copyFile(inputPath, curInput); err != nil {
		return nil, fmt.Errorf("stage cur_input: %w", err)
	}

	outputDir := filepath.Join(d.workDir, "solve_out")
	if err := os.RemoveAll(outputDir); err != nil {
		return nil, fmt.Errorf("clear solve output dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create solve output dir: %w", err)
	}

	env := append(os.Environ(),
		"SYMCC_ENABLE_LINEARIZATION=1",
		"SYMCC_AFL_COVERAGE_MAP="+d.bitmapPath,
		"SYMCC_INPUT_FILE="+curInput,
		"SYMCC_OUTPUT_DIR="+outputDir,
	)

	res, err := d.run(env, curInput)
	if err != nil {
		return nil, err
	}

	entries, _ := os.ReadDir(outputDir)
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(outputDir, e.Name()))
		}
	}

	return &SolveResult{
		OutputFiles: files,
		Killed:      res.Killed || procutil.KilledByCode(res.ExitCode),
	}, nil
}

// CrackResult is the outcome of a Crack invocation.
type CrackResult struct {
	ConstraintLog string
	Killed        bool
}

// Crack writes a crack_map with 0 at the listed addresses and 255
// elsewhere, then runs the concolic binary in cracking mode, returning its
// stderr as the constraint log.
func (d *Driver) Crack(inputPath string, addrs []uint64) (*CrackResult, error) {
	curInput := filepath.Join(d.workDir, constants.CurInput)
	if err := copyFile(inputPath, curInput); err != nil {
		return nil, fmt.Errorf("stage cur_input: %w", err)
	}

	crackMapPath := filepath.Join(d.workDir, "crack_map")
	if err := writeCrackMap(crackMapPath, addrs); err != nil {
		return nil, fmt.Errorf("write crack_map: %w", err)
	}

	env := append(os.Environ(),
		"SYMCC_ENABLE_LINEARIZATION=1",
		"SYMCC_AFL_COVERAGE_MAP="+d.bitmapPath,
		"SYMCC_INPUT_FILE="+curInput,
		"SYMCC_ENABLE_CRACKING=1",
		"SYMCC_CRACK_MAP="+crackMapPath,
	)

	res, err := d.run(env, curInput)
	if err != nil {
		return nil, err
	}

	return &CrackResult{
		ConstraintLog: res.Stderr,
		Killed:        res.Killed || procutil.KilledByCode(res.ExitCode),
	}, nil
}

// run invokes `timeout -k 5 <timeout> <binary> <args>` with @@ substituted
// for curInput. Neither mode raises on a nonzero exit: timeouts (124, -9)
// are a normal outcome, not an error.
func (d *Driver) run(env []string, curInput string) (*procutil.Result, error) {
	args := make([]string, 0, len(d.argTokens)+3)
	args = append(args, "-k", "5", fmt.Sprintf("%.0f", d.timeout.Seconds()), d.binary)
	for _, tok := range d.argTokens {
		args = append(args, strings.ReplaceAll(tok, "@@", curInput))
	}

	res, err := procutil.Run(d.timeout+killGrace, env, "timeout", args...)
	if err != nil {
		return nil, fmt.Errorf("run concolic binary: %w", err)
	}
	return res, nil
}

// writeCrackMap writes a MapSize-length file, 0 at each address in addrs
// and 255 elsewhere. This inverts the fuzzer's own bitmap convention, but
// is a fixed contract with the concolic binary and must be preserved as-is.
func writeCrackMap(path string, addrs []uint64) error {
	buf := make([]byte, constants.MapSize)
	for i := range buf {
		buf[i] = 255
	}
	for _, addr := range addrs {
		if addr < uint64(len(buf)) {
			buf[addr] = 0
		}
	}
	return os.WriteFile(path, buf, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
