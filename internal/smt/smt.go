// Package smt shells out to a configured SMT solver binary, treating it as
// the typed external collaborator spec.md describes: SMT-LIB2 in over
// stdin, sat/unsat and a model over stdout.
package smt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Tricker-z/CoFuzz/internal/procutil"
)

// Client queries a solver binary (default "z3 -in") fed SMT-LIB2 text on
// stdin.
type Client struct {
	binary  string
	args    []string
	timeout time.Duration
}

// New returns a Client for the given solver binary invocation, e.g.
// binary="z3", args=["-in"].
func New(binary string, args []string, timeout time.Duration) *Client {
	return &Client{binary: binary, args: args, timeout: timeout}
}

// Model maps an SMT-LIB variable name to its solved integer value.
type Model map[string]int64

// Check runs the solver on the given SMT-LIB2 script, wrapped with
// "(check-sat)(get-model)". Returns a nil model (not an error) when the
// script is unsat or the solver times out.
func (c *Client) Check(script string) (Model, error) {
	full := script + "\n(check-sat)\n(get-model)\n"

	res, err := procutil.RunStdin(c.timeout, c.binary, c.args, full)
	if err != nil {
		return nil, fmt.Errorf("run solver: %w", err)
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" || strings.HasPrefix(out, "unsat") || strings.HasPrefix(out, "unknown") {
		return nil, nil
	}
	if !strings.HasPrefix(out, "sat") {
		return nil, fmt.Errorf("unexpected solver output: %s", truncate(out, 200))
	}

	return parseModel(out), nil
}

var reModelDecl = regexp.MustCompile(`\(define-fun\s+([A-Za-z0-9_!]+)\s*\(\)[^)]*\)?\s*\(?_?\s*(?:\(_ bv(\d+) \d+\)|#x([0-9a-fA-F]+)|(-?\d+))\)?`)

// parseModel extracts each declared variable name and its integer value
// from a get-model s-expression dump.
func parseModel(out string) Model {
	model := make(Model)
	matches := reModelDecl.FindAllStringSubmatch(out, -1)
	for _, m := range matches {
		name := m[1]
		switch {
		case m[2] != "":
			v, _ := strconv.ParseInt(m[2], 10, 64)
			model[name] = v
		case m[3] != "":
			v, _ := strconv.ParseInt(m[3], 16, 64)
			model[name] = v
		case m[4] != "":
			v, _ := strconv.ParseInt(m[4], 10, 64)
			model[name] = v
		}
	}
	return model
}

// Decls returns the model's variable names in map iteration order; the
// order in which the solver declared them is not kept.
func (m Model) Decls() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Optimize runs one maximize and one minimize subprocess invocation per
// declared bitvector variable ("box" priority: independent per-variable
// optimization), returning the resulting [lower, upper] bound per name.
func (c *Client) Optimize(script string, varNames []string, bitWidth int) (map[string][2]int64, error) {
	bounds := make(map[string][2]int64, len(varNames))

	for _, name := range varNames {
		upper, err := c.optimizeOne(script, name, bitWidth, true)
		if err != nil {
			return nil, fmt.Errorf("maximize %s: %w", name, err)
		}
		lower, err := c.optimizeOne(script, name, bitWidth, false)
		if err != nil {
			return nil, fmt.Errorf("minimize %s: %w", name, err)
		}
		bounds[name] = [2]int64{lower, upper}
	}

	return bounds, nil
}

// optimizeOne issues a single-objective optimization query against the
// solver's opt engine: the assertions from script, one "(maximize name)" or
// "(minimize name)" objective declaration, then the usual check-sat/
// get-model pair. This is the z3-style optimize protocol (z3 -in accepts
// "maximize"/"minimize" directly on a declared term); a different solver
// binary wired in behind --solver-bin must speak the same three commands.
// bitWidth is not re-asserted here: name is expected to already be declared
// as a BitVec of that width by the constraint script being optimized.
func (c *Client) optimizeOne(script, name string, bitWidth int, maximize bool) (int64, error) {
	goal := "maximize"
	if !maximize {
		goal = "minimize"
	}
	full := fmt.Sprintf("%s\n(%s %s)\n(check-sat)\n(get-model)\n", script, goal, name)

	res, err := procutil.RunStdin(c.timeout, c.binary, c.args, full)
	if err != nil {
		return 0, err
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" || strings.HasPrefix(out, "unsat") || strings.HasPrefix(out, "unknown") {
		return 0, fmt.Errorf("objective %s %s: solver returned %s", goal, name, truncate(out, 80))
	}

	model := parseModel(out)
	if v, ok := model[name]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("no objective value found for %s (width %d)", name, bitWidth)
}
