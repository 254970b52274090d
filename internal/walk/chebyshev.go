package walk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ChebyshevCenter solves min -t s.t. A x + ||a_i|| t <= b, t free, x free,
// returning x* as the starting interior point for hit-and-run. Failure to
// solve is fatal for the owning constraint, per spec.md §4.5.1.
func ChebyshevCenter(p Polytope) ([]float64, error) {
	n := p.Dim
	m := len(p.B)
	if m == 0 || n == 0 {
		return nil, fmt.Errorf("chebyshev center: empty polytope")
	}

	// Standard-form variables: x+ (n), x- (n), t+ (1), t- (1), slack (m).
	nVars := 2*n + 2 + m

	c := make([]float64, nVars)
	c[2*n] = -1   // minimize -t+
	c[2*n+1] = 1  // ... + t-

	rows := make([]float64, m*nVars)
	b := make([]float64, m)

	for i := 0; i < m; i++ {
		norm := rowNorm(p.A[i])
		base := i * nVars
		for j := 0; j < n; j++ {
			rows[base+j] = p.A[i][j]     // x+
			rows[base+n+j] = -p.A[i][j]  // x-
		}
		rows[base+2*n] = norm    // t+
		rows[base+2*n+1] = -norm // t-
		rows[base+2*n+2+i] = 1   // slack_i
		b[i] = p.B[i]
	}

	A := mat.NewDense(m, nVars, rows)

	_, xStd, err := lp.Simplex(c, A, b, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("chebyshev center LP: %w", err)
	}

	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = xStd[j] - xStd[n+j]
	}
	return x, nil
}

func rowNorm(row []float64) float64 {
	sum := 0.0
	for _, v := range row {
		sum += v * v
	}
	return math.Sqrt(sum)
}
