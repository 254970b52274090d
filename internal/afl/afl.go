// Package afl reads the mutational fuzzer's on-disk state: its fuzzer_stats
// file, and the afl-showmap tool used to classify a testcase.
package afl

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tricker-z/CoFuzz/internal/constants"
	"github.com/Tricker-z/CoFuzz/internal/procutil"
)

// ShowmapStatus classifies an afl-showmap run.
type ShowmapStatus int

const (
	StatusNormal ShowmapStatus = 0
	StatusHang   ShowmapStatus = 1
	StatusCrash  ShowmapStatus = 2
)

// TargetConfig describes the target command line recovered from the
// fuzzer's fuzzer_stats file.
type TargetConfig struct {
	// Command is the target program invocation, with every occurrence of
	// "@@" a placeholder for a testcase path.
	Command []string
	// InstallDir is the fuzzer's install directory, the parent of the
	// first token of its own command line.
	InstallDir string
	// QEMUMode reports whether the fuzzer was run under afl-qemu (-Q).
	QEMUMode bool
}

// ParseFuzzerStats reads a fuzzer_stats file and extracts the target
// command line, install directory, and emulation-mode flag.
func ParseFuzzerStats(path string) (*TargetConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fuzzer_stats %s: %w", path, err)
	}
	defer f.Close()

	var commandLine string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		if key != "command_line" {
			continue
		}
		commandLine = strings.TrimSpace(line[idx+1:])
		break
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan fuzzer_stats %s: %w", path, err)
	}
	if commandLine == "" {
		return nil, fmt.Errorf("fuzzer_stats %s: missing command_line", path)
	}

	return parseCommandLine(commandLine)
}

func parseCommandLine(commandLine string) (*TargetConfig, error) {
	const sep = " -- "
	idx := strings.LastIndex(commandLine, sep)
	if idx < 0 {
		return nil, fmt.Errorf("command_line %q has no %q separator", commandLine, sep)
	}

	ownCmd := strings.Fields(commandLine[:idx])
	targetCmd := strings.Fields(commandLine[idx+len(sep):])
	if len(ownCmd) == 0 || len(targetCmd) == 0 {
		return nil, fmt.Errorf("command_line %q is malformed", commandLine)
	}

	return &TargetConfig{
		Command:    targetCmd,
		InstallDir: filepath.Dir(ownCmd[0]),
		QEMUMode:   containsFlag(ownCmd, "-Q"),
	}, nil
}

func containsFlag(tokens []string, flag string) bool {
	for _, tok := range tokens {
		if tok == flag {
			return true
		}
	}
	return false
}

// Showmap runs afl-showmap against testcase, substituting "@@" in the
// target command, and returns the resulting per-input bitmap and the
// classification status.
func Showmap(target *TargetConfig, testcase string) ([]byte, ShowmapStatus, error) {
	tmp, err := os.MkdirTemp("", "cofuzz-showmap-")
	if err != nil {
		return nil, 0, fmt.Errorf("create showmap tmpdir: %w", err)
	}
	defer os.RemoveAll(tmp)

	outPath := filepath.Join(tmp, "bitmap")

	args := []string{
		"-t", fmt.Sprintf("%d", constants.ShowmapTimeoutSec*1000),
		"-m", "none",
		"-q",
		"-b",
	}
	if target.QEMUMode {
		args = append(args, "-Q")
	}
	args = append(args, "-o", outPath, "--")
	for _, tok := range target.Command {
		args = append(args, strings.ReplaceAll(tok, "@@", testcase))
	}

	res, err := procutil.Run(time.Duration(constants.ShowmapTimeoutSec+5)*time.Second, nil, "afl-showmap", args...)
	if err != nil {
		return nil, 0, fmt.Errorf("run afl-showmap: %w", err)
	}

	bitmap, readErr := os.ReadFile(outPath)
	if readErr != nil {
		bitmap = nil
	}

	switch res.ExitCode {
	case 0:
		return bitmap, StatusNormal, nil
	case 1:
		return bitmap, StatusHang, nil
	case 2:
		return bitmap, StatusCrash, nil
	default:
		return bitmap, ShowmapStatus(res.ExitCode), nil
	}
}
