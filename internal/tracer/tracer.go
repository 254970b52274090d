// Package tracer invokes the trace binary on new seeds and folds its output
// into the branch-tree model.
package tracer

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Tricker-z/CoFuzz/internal/depot"
	"github.com/Tricker-z/CoFuzz/internal/procutil"
)

const traceTimeout = 30 * time.Second

var reTraceLine = regexp.MustCompile(`^\[\*\] \((?P<condition>.*)\): (?P<src>\d+),(?P<dest>\d+)$`)

// Driver invokes a configured trace binary against seeds and records
// observed conditional transitions into a Depot.
type Driver struct {
	binary    string
	argTokens []string
	workers   int
}

// New returns a Driver for the given trace binary and argument template
// (with "@@" as the seed-path placeholder).
func New(binary string, argument string, workers int) *Driver {
	if workers <= 0 {
		workers = 1
	}
	return &Driver{
		binary:    binary,
		argTokens: strings.Fields(argument),
		workers:   workers,
	}
}

// TraceAll runs Trace for every seed in seeds, fanning out across the
// driver's configured worker count. Individual trace failures are
// non-fatal; they simply contribute nothing to the model.
func (d *Driver) TraceAll(d8 *depot.Depot, seeds []string) error {
	g := new(errgroup.Group)
	g.SetLimit(d.workers)

	for _, seed := range seeds {
		seed := seed
		g.Go(func() error {
			_ = d.Trace(d8, seed)
			return nil
		})
	}

	return g.Wait()
}

// Trace runs the trace binary on seedPath and updates dep with every
// observed condition transition. A failure of the trace binary itself is
// not propagated: the seed simply contributes nothing.
func (d *Driver) Trace(dep *depot.Depot, seedPath string) error {
	args := make([]string, len(d.argTokens))
	for i, tok := range d.argTokens {
		args[i] = strings.ReplaceAll(tok, "@@", seedPath)
	}

	res, err := procutil.Run(traceTimeout, nil, d.binary, args...)
	if err != nil {
		return fmt.Errorf("run trace binary: %w", err)
	}

	scanLines(dep, res.Stderr, seedPath)
	return nil
}

// scanLines matches each stderr line against
// "[*] (<condition>): <src>,<dest>" and folds matches into dep. Unparseable
// or non-UTF8 lines are skipped silently.
func scanLines(dep *depot.Depot, stderr string, seedPath string) {
	scanner := bufio.NewScanner(strings.NewReader(stderr))
	lineNo := 0
	for scanner.Scan() {
		line := scanner.Text()
		if !utf8.ValidString(line) {
			continue
		}
		lineNo++
		cond, src, dst, ok := parseTraceLine(line)
		if !ok {
			continue
		}
		dep.RecordTrace(cond, src, dst, lineNo, seedPath)
	}
}

// parseTraceLine matches "[*] (<condition>): <src>,<dest>".
func parseTraceLine(line string) (condition string, src, dst uint64, ok bool) {
	m := reTraceLine.FindStringSubmatch(line)
	if m == nil {
		return "", 0, 0, false
	}

	srcVal, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	dstVal, err := strconv.ParseUint(m[3], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}

	return m[1], srcVal, dstVal, true
}
