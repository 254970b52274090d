// Package walk implements the four named random walks over a polytope
// {x : A x <= b} used to draw diverse interior points.
package walk

import "fmt"

// Polytope is the convex region {x : A x <= b}. Rows of A pair with
// entries of B.
type Polytope struct {
	A [][]float64
	B []float64
	// Dim is the number of variables (columns of A).
	Dim int
}

// ChainOptions configures sample-chain collection, applied uniformly to
// every walk per spec.md §9's unification of the burn/thin defaults.
type ChainOptions struct {
	Count int
	Burn  int
	Thin  int
}

// DefaultChainOptions matches spec.md §4.5.1's stated defaults.
var DefaultChainOptions = ChainOptions{Count: 100, Burn: 1000, Thin: 10}

// Walker draws samples from a polytope.
type Walker interface {
	Sample(p Polytope, opts ChainOptions) ([][]float64, error)
}

// registry maps a walk name to its constructor.
var registry = make(map[string]func() Walker)

func register(name string, ctor func() Walker) {
	registry[name] = ctor
}

// New returns the named walk, or an error if the name is unknown. An
// external walk is returned without a binary bound to it.
func New(name string) (Walker, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("walk plugin not found: %s", name)
	}
	return ctor(), nil
}

// Names lists every walk name the CLI accepts.
var Names = []string{"hit-and-run", "dikin", "vaidya", "john"}

// Resolve returns the walker for name, binding externalBin to it when the
// walk is delegated (vaidya, john, or dikin when a walker binary is
// configured). dikin with no externalBin uses the in-house reference
// implementation; hit-and-run is always in-house.
func Resolve(name, externalBin string) (Walker, error) {
	if name == "dikin" && externalBin != "" {
		return &External{Name: "dikin", Binary: externalBin}, nil
	}

	w, err := New(name)
	if err != nil {
		return nil, err
	}
	if ext, ok := w.(*External); ok {
		ext.Binary = externalBin
	}
	return w, nil
}
