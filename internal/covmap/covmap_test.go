package covmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tricker-z/CoFuzz/internal/constants"
)

func writeBitmap(t *testing.T, dir, name string, fill func([]byte)) string {
	t.Helper()
	buf := make([]byte, constants.MapSize)
	if fill != nil {
		fill(buf)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestLoadRejectsWrongSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzz_bitmap")
	require.NoError(t, os.WriteFile(path, []byte{0x01, 0x02}, 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestIsInterestingScenario4(t *testing.T) {
	dir := t.TempDir()

	// Accumulated map = [0xFF, ...] (fuzzer byte 0x00 everywhere, complemented to 0xFF).
	allHit := writeBitmap(t, dir, "all_hit", func(b []byte) {})
	m, err := Load(allHit)
	require.NoError(t, err)

	perInput := make([]byte, constants.MapSize)
	delta, err := m.IsInteresting(perInput)
	require.NoError(t, err)
	require.Equal(t, 0, delta)

	// Accumulated = [0x00, 0x00]; per-input = [0xFF, 0x00]; returns 1.
	noneHit := writeBitmap(t, dir, "none_hit", func(b []byte) {
		for i := range b {
			b[i] = 0xFF
		}
	})
	m2, err := Load(noneHit)
	require.NoError(t, err)

	perInput2 := make([]byte, constants.MapSize)
	perInput2[0] = 0xFF
	delta2, err := m2.IsInteresting(perInput2)
	require.NoError(t, err)
	require.Equal(t, 1, delta2)

	snap := m2.Snapshot()
	require.Equal(t, byte(0xFF), snap[0])
	require.Equal(t, byte(0x00), snap[1])
}

func TestIsInterestingIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeBitmap(t, dir, "fuzz_bitmap", func(b []byte) {
		for i := range b {
			b[i] = 0xFF
		}
	})
	m, err := Load(path)
	require.NoError(t, err)

	perInput := make([]byte, constants.MapSize)
	perInput[10] = 0x01

	delta, err := m.IsInteresting(perInput)
	require.NoError(t, err)
	require.Equal(t, 1, delta)

	delta2, err := m.IsInteresting(perInput)
	require.NoError(t, err)
	require.Equal(t, 0, delta2)
}

func TestIsInterestingRejectsWrongSize(t *testing.T) {
	dir := t.TempDir()
	path := writeBitmap(t, dir, "fuzz_bitmap", nil)
	m, err := Load(path)
	require.NoError(t, err)

	_, err = m.IsInteresting([]byte{0x00})
	require.Error(t, err)
}
