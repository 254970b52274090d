package sampler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanConstraintLogScenario7(t *testing.T) {
	log := "[STAT] CRACK:7,8\n" +
		"  (assert (= k!00 #x41))\n" +
		"  (assert (= k!10 #x42))\n" +
		"CRACK-END\n"

	dict := ScanConstraintLog(log)

	require.Contains(t, dict, uint64(7))
	require.Contains(t, dict[7], "k!00")
	require.Contains(t, dict[7], "k!10")
}

func TestScanConstraintLogIgnoresOutsideLines(t *testing.T) {
	log := "noise before\n" +
		"[STAT] CRACK:1,2\n" +
		"not an sexpr\n" +
		"  (assert true)\n" +
		"CRACK-END\n" +
		"noise after\n"

	dict := ScanConstraintLog(log)
	require.Len(t, dict, 1)
	require.NotContains(t, dict[1], "not an sexpr")
	require.Contains(t, dict[1], "(assert true)")
}

func TestParseOffset(t *testing.T) {
	idx, ok := ParseOffset("k!42!0")
	require.False(t, ok)

	idx, ok = ParseOffset("k!420")
	require.True(t, ok)
	require.Equal(t, 42, idx)
}
