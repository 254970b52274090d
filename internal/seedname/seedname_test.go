package seedname

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractIDScenario5(t *testing.T) {
	require.Equal(t, "42", ExtractID("id:000042,src:000001,op:concolic"))
	require.Equal(t, "-1", ExtractID("crash-xyz"))
}

func TestSourceID(t *testing.T) {
	require.Equal(t, "42", SourceID("id:000042,src:000001,op:concolic"))
	require.Equal(t, "-1", SourceID("no-id-here"))
}

func TestMarkers(t *testing.T) {
	require.True(t, HasNewCoverageMarker("id:000042,src:000001,op:havoc,+cov"))
	require.False(t, HasNewCoverageMarker("id:000042,src:000001,op:havoc"))
	require.True(t, IsOriginal("id:000000,orig:seed1"))
}

func TestBuildRoundTrip(t *testing.T) {
	name := Build(42, "1", "concolic")
	require.Equal(t, "id:000042,src:1,op:concolic", name)

	n, err := ParseSeqNum(name)
	require.NoError(t, err)
	require.Equal(t, 42, n)
}
