package walk

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// dikinRadius is the fixed step radius spec.md attributes to the external
// polytope-walk library; the in-house reference implementation uses the
// same value so its acceptance behavior matches what callers expect from
// "dikin" regardless of which path served it.
const dikinRadius = 0.5

func init() {
	register("dikin", func() Walker { return &dikinWalk{rng: rand.New(rand.NewSource(1))} })
}

type dikinWalk struct {
	rng *rand.Rand
}

// Sample implements the reference Dikin walk: a log-barrier Hessian
// Metropolis chain used whenever no external walker binary is configured.
func (w *dikinWalk) Sample(p Polytope, opts ChainOptions) ([][]float64, error) {
	x, err := ChebyshevCenter(p)
	if err != nil {
		return nil, err
	}

	samples := make([][]float64, 0, opts.Count)

	for i := 0; i < opts.Burn-1; i++ {
		x, err = w.step(p, x)
		if err != nil {
			return nil, err
		}
	}

	for len(samples) < opts.Count {
		x, err = w.step(p, x)
		if err != nil {
			return nil, err
		}
		samples = append(samples, append([]float64(nil), x...))
		for i := 0; i < opts.Thin-1; i++ {
			x, err = w.step(p, x)
			if err != nil {
				return nil, err
			}
		}
	}

	return samples, nil
}

func (w *dikinWalk) step(p Polytope, x []float64) ([]float64, error) {
	if w.rng.Float64() < 0.5 {
		return x, nil
	}

	hx, err := hessian(p, x)
	if err != nil {
		return nil, err
	}

	l, err := sqrtInverse(hx)
	if err != nil {
		return nil, err
	}

	ball := uniformUnitBall(w.rng, p.Dim)
	z := make([]float64, p.Dim)
	var lp mat.VecDense
	lp.MulVec(l, mat.NewVecDense(p.Dim, ball))
	for i := range z {
		z[i] = x[i] + math.Sqrt(dikinRadius)*lp.AtVec(i)
	}

	hz, err := hessian(p, z)
	if err != nil {
		return x, nil // infeasible proposal, reject
	}

	diff := make([]float64, p.Dim)
	for i := range diff {
		diff[i] = x[i] - z[i]
	}
	var hzDiff mat.VecDense
	hzDiff.MulVec(hz, mat.NewVecDense(p.Dim, diff))
	quad := dot(diff, hzDiff.RawVector().Data)
	if quad > 1 {
		return x, nil
	}

	logDetHx := logDet(hx)
	logDetHz := logDet(hz)
	accept := math.Min(1, math.Exp(0.5*(logDetHz-logDetHx)))
	if w.rng.Float64() < accept {
		return z, nil
	}
	return x, nil
}

// hessian builds the log-barrier Hessian H(x) = A^T diag((b-Ax)^-2) A.
func hessian(p Polytope, x []float64) (*mat.SymDense, error) {
	m := len(p.B)
	n := p.Dim

	A := mat.NewDense(m, n, flatten(p.A))
	d := make([]float64, m)
	for i := 0; i < m; i++ {
		slack := p.B[i] - dot(p.A[i], x)
		if slack <= 0 {
			return nil, fmt.Errorf("dikin step: point outside polytope at row %d", i)
		}
		d[i] = 1 / (slack * slack)
	}

	var weighted mat.Dense
	weighted.Apply(func(i, j int, v float64) float64 { return v * d[i] }, A)

	var h mat.Dense
	h.Mul(A.T(), &weighted)

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, h.At(i, j))
		}
	}
	return sym, nil
}

// sqrtInverse returns L such that L L^T = H^-1, via a Cholesky factor-of-
// the-inverse round trip.
func sqrtInverse(h *mat.SymDense) (*mat.Dense, error) {
	var cholH mat.Cholesky
	if ok := cholH.Factorize(h); !ok {
		return nil, fmt.Errorf("hessian is not positive definite")
	}

	var hinv mat.SymDense
	if err := cholH.InverseTo(&hinv); err != nil {
		return nil, fmt.Errorf("invert hessian: %w", err)
	}

	var cholHinv mat.Cholesky
	if ok := cholHinv.Factorize(&hinv); !ok {
		return nil, fmt.Errorf("inverse hessian is not positive definite")
	}

	var l mat.TriDense
	cholHinv.LTo(&l)

	n, _ := l.Dims()
	dense := mat.NewDense(n, n, nil)
	dense.Copy(&l)
	return dense, nil
}

func logDet(h *mat.SymDense) float64 {
	var chol mat.Cholesky
	if ok := chol.Factorize(h); !ok {
		return math.Inf(-1)
	}
	return chol.LogDet()
}

func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	n := len(rows[0])
	out := make([]float64, 0, len(rows)*n)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

func uniformUnitBall(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	norm := 0.0
	for i := range v {
		v[i] = rng.NormFloat64()
		norm += v[i] * v[i]
	}
	norm = math.Sqrt(norm)
	radius := math.Pow(rng.Float64(), 1.0/float64(dim))
	for i := range v {
		v[i] = v[i] / norm * radius
	}
	return v
}
