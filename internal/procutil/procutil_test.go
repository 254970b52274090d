package procutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunCapturesExitCode(t *testing.T) {
	res, err := Run(5*time.Second, nil, "sh", "-c", "exit 3")
	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode)
}

func TestRunTimesOut(t *testing.T) {
	res, err := Run(50*time.Millisecond, nil, "sleep", "5")
	require.NoError(t, err)
	require.True(t, res.Killed)
	require.Equal(t, TimeoutExitCode, res.ExitCode)
}

func TestRunStdinEchoesInput(t *testing.T) {
	res, err := RunStdin(5*time.Second, "cat", nil, "hello")
	require.NoError(t, err)
	require.Equal(t, "hello", res.Stdout)
}

func TestKilledByCode(t *testing.T) {
	require.True(t, KilledByCode(124))
	require.True(t, KilledByCode(-9))
	require.True(t, KilledByCode(137))
	require.False(t, KilledByCode(0))
	require.False(t, KilledByCode(1))
}
