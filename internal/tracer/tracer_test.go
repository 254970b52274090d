package tracer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tricker-z/CoFuzz/internal/depot"
)

func TestParseTraceLine(t *testing.T) {
	cond, src, dst, ok := parseTraceLine("[*] (Br_true_..._i8 pred@3): 10,20")
	require.True(t, ok)
	require.Equal(t, "Br_true_..._i8 pred@3", cond)
	require.Equal(t, uint64(10), src)
	require.Equal(t, uint64(20), dst)
}

func TestParseTraceLineRejectsGarbage(t *testing.T) {
	_, _, _, ok := parseTraceLine("not a trace line")
	require.False(t, ok)
}

func TestScanLinesIntegration(t *testing.T) {
	dep := depot.New(1)
	stderr := "[*] (Br_true_..._i8 pred@3): 10,20\n" +
		"garbage line\n" +
		"[*] (Br_true_..._i8 pred@3): 10,30\n"

	scanLines(dep, stderr, "seed-a")

	node, ok := dep.Node(10)
	require.True(t, ok)
	require.Contains(t, node.Children, uint64(20))
	require.Contains(t, node.Children, uint64(30))
	require.True(t, node.Covered())
}
