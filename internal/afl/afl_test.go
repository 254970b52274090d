package afl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFuzzerStatsExtractsTargetCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzzer_stats")
	content := "start_time   : 1234\n" +
		"command_line : /opt/afl/afl-fuzz -i in -o out -- /bin/target -x @@\n" +
		"execs_done   : 10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := ParseFuzzerStats(path)
	require.NoError(t, err)
	require.Equal(t, []string{"/bin/target", "-x", "@@"}, cfg.Command)
	require.Equal(t, "/opt/afl", cfg.InstallDir)
	require.False(t, cfg.QEMUMode)
}

func TestParseFuzzerStatsDetectsQEMU(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzzer_stats")
	content := "command_line : /opt/afl/afl-fuzz -i in -o out -Q -- /bin/target @@\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := ParseFuzzerStats(path)
	require.NoError(t, err)
	require.True(t, cfg.QEMUMode)
}

func TestParseFuzzerStatsMissingCommandLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzzer_stats")
	require.NoError(t, os.WriteFile(path, []byte("execs_done : 1\n"), 0o644))

	_, err := ParseFuzzerStats(path)
	require.Error(t, err)
}

func TestParseCommandLineRejectsMissingSeparator(t *testing.T) {
	_, err := parseCommandLine("/opt/afl/afl-fuzz -i in -o out")
	require.Error(t, err)
}
