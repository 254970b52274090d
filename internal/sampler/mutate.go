package sampler

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/Tricker-z/CoFuzz/internal/constants"
	"github.com/Tricker-z/CoFuzz/internal/smt"
	"github.com/Tricker-z/CoFuzz/internal/walk"
)

var reOffset = regexp.MustCompile(`^k!(\d+)0$`)

// ParseOffset extracts the byte offset from an SMT model variable name of
// shape k!<idx>0.
func ParseOffset(name string) (int, bool) {
	m := reOffset.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return idx, true
}

// Mutator turns one collected constraint into concrete mutant bytes, via
// either a direct model solve or a box-polytope sample.
type Mutator struct {
	Solver     *smt.Client
	WalkerName string
	WalkerBin  string // external polytope-walk binary, optional
}

// FromModel implements spec.md §4.5 point 1: solve the S-expression, extract
// ordered offsets/values from the model, and materialize one mutant.
func (m *Mutator) FromModel(seedBytes []byte, constraintScript string) ([]byte, bool, error) {
	model, err := m.Solver.Check(constraintScript)
	if err != nil {
		return nil, false, err
	}
	if len(model) == 0 {
		return nil, false, nil
	}

	offsets := model.Decls()
	sort.Strings(offsets)

	mutant := append([]byte(nil), seedBytes...)
	applied := false
	for _, name := range offsets {
		idx, ok := ParseOffset(name)
		if !ok || idx < 0 || idx >= len(mutant) {
			continue
		}
		mutant[idx] = byte(model[name])
		applied = true
	}
	if !applied {
		return nil, false, nil
	}
	return mutant, true, nil
}

// FromPolytope implements spec.md §4.5 point 2: box-optimize every declared
// variable, assemble the resulting polytope, draw DefaultSamplerNum points
// via the configured walk, and materialize one mutant per sample.
func (m *Mutator) FromPolytope(seedBytes []byte, constraintScript string, varNames []string) ([][]byte, error) {
	bounds, err := m.Solver.Optimize(constraintScript, varNames, constants.BitVecWidth)
	if err != nil {
		return nil, err
	}

	n := len(varNames)
	a := make([][]float64, 0, 2*n)
	b := make([]float64, 0, 2*n)
	for i, name := range varNames {
		bnd := bounds[name]
		lower, upper := float64(bnd[0]), float64(bnd[1])

		row := make([]float64, n)
		row[i] = 1
		a = append(a, row)
		b = append(b, upper)

		negRow := make([]float64, n)
		negRow[i] = -1
		a = append(a, negRow)
		b = append(b, -lower)
	}

	w, err := walk.Resolve(m.WalkerName, m.WalkerBin)
	if err != nil {
		return nil, err
	}

	opts := walk.ChainOptions{
		Count: constants.DefaultSamplerNum,
		Burn:  walk.DefaultChainOptions.Burn,
		Thin:  walk.DefaultChainOptions.Thin,
	}
	samples, err := w.Sample(walk.Polytope{A: a, B: b, Dim: n}, opts)
	if err != nil {
		return nil, err
	}

	mutants := make([][]byte, 0, len(samples))
	for _, sample := range samples {
		mutant := append([]byte(nil), seedBytes...)
		for i, name := range varNames {
			idx, ok := ParseOffset(name)
			if !ok || idx < 0 || idx >= len(mutant) {
				continue
			}
			mutant[idx] = byte(int64(sample[i]))
		}
		mutants = append(mutants, mutant)
	}
	return mutants, nil
}
