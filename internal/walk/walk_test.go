package walk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// boxPolytope builds the 2n x n polytope for per-variable bounds [l_i, u_i]
// exactly as spec.md §4.5 point 2 describes: rows e_i x <= u_i and
// -e_i x <= -l_i.
func boxPolytope(lower, upper []float64) Polytope {
	n := len(lower)
	a := make([][]float64, 0, 2*n)
	b := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		row[i] = 1
		a = append(a, row)
		b = append(b, upper[i])

		negRow := make([]float64, n)
		negRow[i] = -1
		a = append(a, negRow)
		b = append(b, -lower[i])
	}
	return Polytope{A: a, B: b, Dim: n}
}

func TestChebyshevCenterInsidePolytope(t *testing.T) {
	p := boxPolytope([]float64{0, 0}, []float64{10, 20})

	x, err := ChebyshevCenter(p)
	require.NoError(t, err)
	require.Len(t, x, 2)
	for i := range p.A {
		require.LessOrEqual(t, dot(p.A[i], x), p.B[i]+1e-6)
	}
}

func TestHitAndRunSamplesInsidePolytope(t *testing.T) {
	p := boxPolytope([]float64{0, 0}, []float64{10, 20})

	w, err := New("hit-and-run")
	require.NoError(t, err)

	samples, err := w.Sample(p, ChainOptions{Count: 5, Burn: 5, Thin: 2})
	require.NoError(t, err)
	require.Len(t, samples, 5)

	for _, x := range samples {
		for i := range p.A {
			require.LessOrEqual(t, dot(p.A[i], x), p.B[i]+1e-6)
		}
	}
}

func TestResolveVaidyaRequiresExternalBinary(t *testing.T) {
	w, err := Resolve("vaidya", "")
	require.NoError(t, err)

	_, err = w.Sample(Polytope{Dim: 1, A: [][]float64{{1}}, B: []float64{1}}, DefaultChainOptions)
	require.Error(t, err)
}

func TestResolveDikinFallsBackInHouse(t *testing.T) {
	w, err := Resolve("dikin", "")
	require.NoError(t, err)
	_, ok := w.(*dikinWalk)
	require.True(t, ok)
}
