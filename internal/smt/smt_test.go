package smt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseModelDecimal(t *testing.T) {
	out := "sat\n(model\n  (define-fun k!00 () (_ BitVec 8)\n    65)\n)\n"
	model := parseModel(out)
	require.Equal(t, int64(65), model["k!00"])
}

func TestParseModelHex(t *testing.T) {
	out := "sat\n(model\n  (define-fun k!10 () (_ BitVec 8)\n    #x41)\n)\n"
	model := parseModel(out)
	require.Equal(t, int64(0x41), model["k!10"])
}

func TestDeclsReturnsAllNames(t *testing.T) {
	model := Model{"k!00": 1, "k!10": 2}
	require.ElementsMatch(t, []string{"k!00", "k!10"}, model.Decls())
}
