package walk

import (
	"math"
	"math/rand"
)

func init() {
	register("hit-and-run", func() Walker { return &hitAndRun{rng: rand.New(rand.NewSource(1))} })
}

type hitAndRun struct {
	rng *rand.Rand
}

// Sample implements the in-house hit-and-run walk exactly as spec.md
// §4.5.1 describes it: Chebyshev-center initialization, then repeated
// direction draws with a ratio test against A x <= b.
func (w *hitAndRun) Sample(p Polytope, opts ChainOptions) ([][]float64, error) {
	x, err := ChebyshevCenter(p)
	if err != nil {
		return nil, err
	}

	samples := make([][]float64, 0, opts.Count)

	// Burn-in: discard burn-1 points before collecting.
	for i := 0; i < opts.Burn-1; i++ {
		x = w.step(p, x)
	}

	for len(samples) < opts.Count {
		x = w.step(p, x)
		samples = append(samples, append([]float64(nil), x...))
		for i := 0; i < opts.Thin-1; i++ {
			x = w.step(p, x)
		}
	}

	return samples, nil
}

// step draws a uniform direction on the unit sphere and advances x by a
// uniformly random fraction of the distance to the nearest facet.
func (w *hitAndRun) step(p Polytope, x []float64) []float64 {
	d := w.uniformDirection(p.Dim)

	step := math.Inf(1)
	for i := range p.A {
		ad := dot(p.A[i], d)
		if ad == 0 {
			continue
		}
		dist := (p.B[i] - dot(p.A[i], x)) / ad
		if dist > 0 && dist < step {
			step = dist
		}
	}
	if math.IsInf(step, 1) {
		return x
	}

	frac := w.rng.Float64() * step
	next := make([]float64, len(x))
	for i := range x {
		next[i] = x[i] + frac*d[i]
	}
	return next
}

func (w *hitAndRun) uniformDirection(dim int) []float64 {
	d := make([]float64, dim)
	norm := 0.0
	for i := range d {
		d[i] = w.rng.NormFloat64()
		norm += d[i] * d[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		d[0] = 1
		return d
	}
	for i := range d {
		d[i] /= norm
	}
	return d
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
