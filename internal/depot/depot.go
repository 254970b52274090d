// Package depot holds the branch-tree model and the edge-ranking model
// together, exactly as spec.md groups them under "State depot".
package depot

import (
	"math"
	"math/rand"
	"sync"

	"github.com/Tricker-z/CoFuzz/internal/constants"
)

// CrackKey identifies one (address, seed) cracking attempt.
type CrackKey struct {
	Addr uint64
	Seed string
}

// Depot is the process-wide, explicitly-passed context the executor owns:
// the address-to-node map, the online regressor, the basic-block hit
// vector, and the write-once tracking sets that guarantee each (seed,
// operation) pair happens at most once.
type Depot struct {
	mu sync.Mutex

	nodes     map[uint64]*Node
	regressor *Regressor
	bbHit     []float64

	initPhase   bool
	tracedSeeds map[string]struct{}
	solvedSeeds map[string]struct{}
	crackedSeed map[CrackKey]struct{}
	crackedAddr map[uint64]int

	rng *rand.Rand
}

// New returns an empty depot in its initial (init-phase) state.
func New(seed int64) *Depot {
	return &Depot{
		nodes:       make(map[uint64]*Node),
		regressor:   NewRegressor(),
		bbHit:       make([]float64, constants.MapSize),
		initPhase:   true,
		tracedSeeds: make(map[string]struct{}),
		solvedSeeds: make(map[string]struct{}),
		crackedSeed: make(map[CrackKey]struct{}),
		crackedAddr: make(map[uint64]int),
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// HasTraced reports whether a seed has already been traced.
func (d *Depot) HasTraced(seed string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tracedSeeds[seed]
	return ok
}

// MarkTraced records a seed as traced. Returns false if it was already
// marked, preserving the write-once invariant.
func (d *Depot) MarkTraced(seed string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tracedSeeds[seed]; ok {
		return false
	}
	d.tracedSeeds[seed] = struct{}{}
	return true
}

// HasSolved reports whether a seed has already been concolic-solved.
func (d *Depot) HasSolved(seed string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.solvedSeeds[seed]
	return ok
}

// MarkSolved records a seed as concolic-solved.
func (d *Depot) MarkSolved(seed string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.solvedSeeds[seed]; ok {
		return false
	}
	d.solvedSeeds[seed] = struct{}{}
	return true
}

// RecordTrace folds one trace-line observation into the branch-tree model:
// creates the node at src on first sight (distance = current line count),
// otherwise keeps the minimum distance; adds dest to its children and seed
// to its belongs.
func (d *Depot) RecordTrace(condStr string, src, dest uint64, lineNo int, seed string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	node, ok := d.nodes[src]
	if !ok {
		node = newNode(src, ParseCondition(condStr), lineNo)
		d.nodes[src] = node
	} else {
		node.updateMinDist(lineNo)
	}
	node.addChild(dest)
	node.addBelongs(seed)
}

// RefreshBBHit decodes the fuzzer's raw basic-block counter bytes into the
// per-address hit vector: each 4-byte little-endian group maps through
// floor(log2(v)), clamped to 0 for zero counters.
func (d *Depot) RefreshBBHit(raw []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(raw) / 4
	for i := 0; i < n; i++ {
		v := constants.ByteOrder.Uint32(raw[i*4 : i*4+4])
		if v == 0 {
			d.bbHit[i] = 0
			continue
		}
		d.bbHit[i] = math.Floor(math.Log2(float64(v)))
	}
}

// bbHitAtLocked returns the basic-block hit value for addr, or 0 if addr
// falls outside the tracked bitmap range. Caller must hold d.mu.
func (d *Depot) bbHitAtLocked(addr uint64) float64 {
	if addr >= uint64(len(d.bbHit)) {
		return 0
	}
	return d.bbHit[addr]
}

// Node returns the node at addr, if any.
func (d *Depot) Node(addr uint64) (*Node, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[addr]
	return n, ok
}

// NodeCount returns the number of tracked condition nodes.
func (d *Depot) NodeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.nodes)
}

// TracedNames returns every seed name marked traced so far.
func (d *Depot) TracedNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.tracedSeeds))
	for name := range d.tracedSeeds {
		names = append(names, name)
	}
	return names
}

// SolvedNames returns every seed name marked concolic-solved so far.
func (d *Depot) SolvedNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.solvedSeeds))
	for name := range d.solvedSeeds {
		names = append(names, name)
	}
	return names
}

// SeenAddrs returns every condition-node address observed so far.
func (d *Depot) SeenAddrs() []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	addrs := make([]uint64, 0, len(d.nodes))
	for addr := range d.nodes {
		addrs = append(addrs, addr)
	}
	return addrs
}
