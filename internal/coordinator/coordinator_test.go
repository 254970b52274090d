package coordinator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tricker-z/CoFuzz/internal/depot"
)

func TestExtractDeclaredVars(t *testing.T) {
	constraint := "(assert (= k!00 #x41))\n(assert (= k!10 #x42))\n"
	vars := extractDeclaredVars(constraint)
	require.ElementsMatch(t, []string{"k!00", "k!10"}, vars)
}

func TestExtractDeclaredVarsDedupes(t *testing.T) {
	constraint := "(assert (= k!00 #x41)) (assert (> k!00 0))"
	vars := extractDeclaredVars(constraint)
	require.Equal(t, []string{"k!00"}, vars)
}

func TestDiscoverNewSeedsSkipsTraced(t *testing.T) {
	dir := t.TempDir()
	queue := filepath.Join(dir, "queue")
	require.NoError(t, os.MkdirAll(queue, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(queue, "id:000000,orig:seed1"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(queue, "id:000001,src:000000,op:havoc"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(queue, "README"), []byte("c"), 0o644))

	e := &Engine{paths: Paths{QueueDir: queue}, dep: depot.New(1)}
	e.dep.MarkTraced("id:000000,orig:seed1")

	fresh, err := e.discoverNewSeeds()
	require.NoError(t, err)
	require.Equal(t, []string{"id:000001,src:000000,op:havoc"}, fresh)
}
