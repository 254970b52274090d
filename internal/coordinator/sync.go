package coordinator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tricker-z/CoFuzz/internal/afl"
	"github.com/Tricker-z/CoFuzz/internal/seedname"
)

// syncSeed implements spec.md §4.8: showmap-classify a generated testcase
// and, if it expands coverage (or hangs, or crashes), copy it into the
// matching output directory under a monotonically increasing id.
func (e *Engine) syncSeed(testcase []byte, srcSeedName string, op string) (int, error) {
	tmp, err := os.CreateTemp("", "cofuzz-sync-")
	if err != nil {
		return 0, fmt.Errorf("create sync tempfile: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(testcase); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write sync tempfile: %w", err)
	}
	tmp.Close()

	bitmap, status, err := afl.Showmap(e.target, tmp.Name())
	if err != nil {
		return 0, fmt.Errorf("showmap: %w", err)
	}

	srcID := seedname.SourceID(srcSeedName)

	switch status {
	case afl.StatusNormal:
		if err := e.cov.Update(e.paths.FuzzBitmap); err != nil {
			return 0, fmt.Errorf("refresh coverage map: %w", err)
		}
		delta, err := e.cov.IsInteresting(bitmap)
		if err != nil {
			return 0, fmt.Errorf("interestingness check: %w", err)
		}
		if delta == 0 {
			return 0, nil
		}
		name := seedname.Build(e.runs.NextInteresting(), srcID, op)
		if err := writeTestcase(filepath.Join(e.paths.OutQueueDir, name), testcase); err != nil {
			return 0, err
		}
		return delta, nil

	case afl.StatusHang:
		name := seedname.Build(e.runs.NextHang(), srcID, op)
		return 0, writeTestcase(filepath.Join(e.paths.OutHangsDir, name), testcase)

	case afl.StatusCrash:
		name := seedname.Build(e.runs.NextCrash(), srcID, op)
		return 0, writeTestcase(filepath.Join(e.paths.OutCrashesDir, name), testcase)

	default:
		return 0, nil
	}
}

func writeTestcase(path string, content []byte) error {
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write testcase %s: %w", path, err)
	}
	return nil
}
