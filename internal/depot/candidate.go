package depot

import (
	"sort"

	"golang.org/x/exp/slices"

	"github.com/Tricker-z/CoFuzz/internal/constants"
)

// BuildCandidates returns a mapping seed -> addresses contributed by that
// seed, covering at most constants.CandidateNum addresses total. In the
// init phase (before any model update) addresses are visited in random
// order; afterwards they are visited by descending predicted score.
func (d *Depot) BuildCandidates() map[string][]uint64 {
	d.mu.Lock()
	addrs := d.notFullyCoveredLocked()
	initPhase := d.initPhase
	d.mu.Unlock()

	if initPhase {
		d.rng.Shuffle(len(addrs), func(i, j int) { addrs[i], addrs[j] = addrs[j], addrs[i] })
	} else {
		addrs = d.rank(addrs)
	}

	result := make(map[string][]uint64)
	contributed := 0

	for _, addr := range addrs {
		if contributed >= constants.CandidateNum {
			break
		}
		chosen := d.pickSeeds(addr)
		if len(chosen) == 0 {
			continue
		}
		for _, seed := range chosen {
			result[seed] = append(result[seed], addr)
		}
		contributed++
	}

	return result
}

// notFullyCoveredLocked returns every tracked address whose node has not
// observed every successor, skipping nodes with no successors. Once out of
// the init phase it additionally drops addresses whose crack budget is
// exhausted; during the init phase the crack budget is not checked here.
// Caller must hold d.mu.
func (d *Depot) notFullyCoveredLocked() []uint64 {
	var addrs []uint64
	for addr, node := range d.nodes {
		if node.Covered() {
			continue
		}
		if node.Condition.SuccessorCount == 0 {
			continue
		}
		if !d.initPhase && d.crackedAddr[addr] >= constants.CrackUpperLimit {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

// rank acquires d.mu itself, scores each address by the regressor's current
// prediction, and sorts descending, breaking ties by insertion
// (map-iteration snapshot) order via a stable sort.
func (d *Depot) rank(addrs []uint64) []uint64 {
	type scored struct {
		addr  uint64
		score float64
	}

	d.mu.Lock()
	scoredAddrs := make([]scored, 0, len(addrs))
	for _, addr := range addrs {
		node := d.nodes[addr]
		feat := Feature(node.Condition, len(node.Children), node.MinDist, d.bbHitAtLocked(addr))
		scoredAddrs = append(scoredAddrs, scored{addr: addr, score: d.regressor.predictLocked(feat)})
	}
	d.mu.Unlock()

	sort.SliceStable(scoredAddrs, func(i, j int) bool {
		return scoredAddrs[i].score > scoredAddrs[j].score
	})

	out := make([]uint64, len(scoredAddrs))
	for i, s := range scoredAddrs {
		out[i] = s.addr
	}
	return out
}

// pickSeeds selects up to constants.CrackSeedMax seeds belonging to addr
// that have not yet been cracked against it, preferring seeds that have not
// been concolic-solved yet. Chosen pairs are recorded so a later call never
// repeats them.
func (d *Depot) pickSeeds(addr uint64) []string {
	d.mu.Lock()
	node, ok := d.nodes[addr]
	if !ok {
		d.mu.Unlock()
		return nil
	}
	budget := constants.CrackUpperLimit - d.crackedAddr[addr]
	if budget <= 0 {
		d.mu.Unlock()
		return nil
	}
	perSeedMax := constants.CrackSeedMax
	if budget < perSeedMax {
		perSeedMax = budget
	}

	var unsolved, solved []string
	for seed := range node.Belongs {
		if _, done := d.crackedSeed[CrackKey{Addr: addr, Seed: seed}]; done {
			continue
		}
		if _, isSolved := d.solvedSeeds[seed]; isSolved {
			solved = append(solved, seed)
		} else {
			unsolved = append(unsolved, seed)
		}
	}
	d.mu.Unlock()

	slices.Sort(unsolved)
	slices.Sort(solved)

	var chosen []string
	if len(unsolved) >= perSeedMax {
		chosen = sampleN(d.rng, unsolved, perSeedMax)
	} else {
		chosen = append(chosen, unsolved...)
		remaining := perSeedMax - len(unsolved)
		chosen = append(chosen, sampleN(d.rng, solved, remaining)...)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, seed := range chosen {
		d.crackedSeed[CrackKey{Addr: addr, Seed: seed}] = struct{}{}
	}
	if len(chosen) > 0 {
		d.crackedAddr[addr] += len(chosen)
	}

	return chosen
}

func sampleN(rng interface{ Intn(int) int }, items []string, n int) []string {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	if n >= len(items) {
		out := make([]string, len(items))
		copy(out, items)
		return out
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	for i := len(idx) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = items[idx[i]]
	}
	return out
}

// UpdateModel performs one online regression step given the per-address
// coverage delta accumulated over a round. The first non-empty call flips
// the depot out of its init phase.
func (d *Depot) UpdateModel(deltas map[uint64]float64) {
	if len(deltas) == 0 {
		return
	}

	d.mu.Lock()
	X := make([][]float64, 0, len(deltas))
	y := make([]float64, 0, len(deltas))
	for addr, delta := range deltas {
		node, ok := d.nodes[addr]
		if !ok {
			continue
		}
		feat := Feature(node.Condition, len(node.Children), node.MinDist, d.bbHitAtLocked(addr))
		X = append(X, feat)
		y = append(y, delta)
	}
	d.mu.Unlock()

	if len(X) == 0 {
		return
	}

	d.regressor.PartialFit(X, y)

	d.mu.Lock()
	d.initPhase = false
	d.mu.Unlock()
}
