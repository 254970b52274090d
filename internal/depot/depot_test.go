package depot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordTraceScenario6(t *testing.T) {
	d := New(1)

	d.RecordTrace("Br_true_..._i8 pred@3", 10, 20, 1, "seed-a")
	d.RecordTrace("Br_true_..._i8 pred@3", 10, 30, 2, "seed-b")

	node, ok := d.Node(10)
	require.True(t, ok)
	require.Contains(t, node.Children, uint64(20))
	require.Contains(t, node.Children, uint64(30))
	require.True(t, node.Covered())
	require.Equal(t, 1, node.MinDist)
}

func TestCrackedSeedAtMostOnce(t *testing.T) {
	d := New(1)
	d.RecordTrace("Br_true_..._i8 pred@3", 1, 2, 1, "seed-a")

	first := d.pickSeeds(1)
	second := d.pickSeeds(1)

	require.ElementsMatch(t, []string{"seed-a"}, first)
	require.Empty(t, second)
}

func TestCrackedAddrUpperLimit(t *testing.T) {
	d := New(1)
	node := newNode(1, Condition{Kind: KindBranch, SuccessorCount: 2}, 1)
	for i := 0; i < 20; i++ {
		node.addBelongs(string(rune('a' + i)))
	}
	d.nodes[1] = node

	total := 0
	for round := 0; round < 20; round++ {
		total += len(d.pickSeeds(1))
	}

	require.LessOrEqual(t, total, 5) // constants.CrackUpperLimit
}

func TestBuildCandidatesRespectsCandidateNum(t *testing.T) {
	d := New(1)
	for addr := uint64(1); addr <= 20; addr++ {
		node := newNode(addr, Condition{Kind: KindBranch, SuccessorCount: 2}, 1)
		node.addBelongs("seed-only")
		d.nodes[addr] = node
	}

	candidates := d.BuildCandidates()

	total := 0
	for _, addrs := range candidates {
		total += len(addrs)
	}
	require.LessOrEqual(t, len(candidates), 1) // only one seed here
	require.LessOrEqual(t, total, 8)           // constants.CandidateNum
}

func TestUpdateModelFlipsInitPhase(t *testing.T) {
	d := New(1)
	node := newNode(1, Condition{Kind: KindBranch, SuccessorCount: 2}, 1)
	d.nodes[1] = node

	require.True(t, d.initPhase)
	d.UpdateModel(map[uint64]float64{1: 3.0})
	require.False(t, d.initPhase)
}
