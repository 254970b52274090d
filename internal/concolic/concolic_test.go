package concolic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tricker-z/CoFuzz/internal/constants"
)

func TestWriteCrackMapEncoding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crack_map")

	require.NoError(t, writeCrackMap(path, []uint64{7, 8}))

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, buf, constants.MapSize)
	require.Equal(t, byte(0), buf[7])
	require.Equal(t, byte(0), buf[8])
	require.Equal(t, byte(255), buf[0])
	require.Equal(t, byte(255), buf[9])
}
