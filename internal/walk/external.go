package walk

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Tricker-z/CoFuzz/internal/procutil"
)

const externalWalkTimeout = 30 * time.Second
const externalFixedRadius = 0.5

// External delegates sampling to a configured polytope-walk binary,
// matching spec.md's description of vaidya/john/dikin as a fixed-radius,
// fixed-sample-count external collaborator. The binary is fed one JSON
// object on stdin describing A, b, the walk name, and sample count, and is
// expected to print one sample per line of space-separated floats.
type External struct {
	Binary string
	Name   string
}

func newExternal(name string) func() Walker {
	return func() Walker { return &External{Name: name} }
}

func init() {
	register("vaidya", newExternal("vaidya"))
	register("john", newExternal("john"))
}

// Sample sends the request to the bound external binary; vaidya/john have
// no in-house fallback, so an External with no Binary returns an error here.
func (e *External) Sample(p Polytope, opts ChainOptions) ([][]float64, error) {
	if e.Binary == "" {
		return nil, fmt.Errorf("walk %q requires --walker-bin; no in-house implementation exists", e.Name)
	}

	req := struct {
		Walk   string      `json:"walk"`
		A      [][]float64 `json:"a"`
		B      []float64   `json:"b"`
		Radius float64     `json:"radius"`
		Count  int         `json:"count"`
		Burn   int         `json:"burn"`
		Thin   int         `json:"thin"`
	}{
		Walk:   e.Name,
		A:      p.A,
		B:      p.B,
		Radius: externalFixedRadius,
		Count:  opts.Count,
		Burn:   opts.Burn,
		Thin:   opts.Thin,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal walk request: %w", err)
	}

	res, err := procutil.RunStdin(externalWalkTimeout, e.Binary, nil, string(payload))
	if err != nil {
		return nil, fmt.Errorf("run external walker %s: %w", e.Binary, err)
	}

	return parseSamples(res.Stdout, p.Dim)
}

func parseSamples(stdout string, dim int) ([][]float64, error) {
	var samples [][]float64
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != dim {
			continue
		}
		point := make([]float64, dim)
		for i, f := range fields {
			var v float64
			if _, err := fmt.Sscanf(f, "%g", &v); err != nil {
				return nil, fmt.Errorf("parse walker sample: %w", err)
			}
			point[i] = v
		}
		samples = append(samples, point)
	}
	return samples, nil
}
