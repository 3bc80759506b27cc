package peerscore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMisbehavingAccumulatesAndTriggersDisconnect(t *testing.T) {
	tr := NewTracker(100)
	require.False(t, tr.Misbehaving("peer1", 10))
	require.False(t, tr.Misbehaving("peer1", 80))
	require.True(t, tr.Misbehaving("peer1", 10))
	require.Equal(t, 100, tr.Score("peer1"))
}

func TestScoresArePerPeer(t *testing.T) {
	tr := NewTracker(100)
	tr.Misbehaving("a", 50)
	tr.Misbehaving("b", 10)
	require.Equal(t, 50, tr.Score("a"))
	require.Equal(t, 10, tr.Score("b"))
}

func TestResetClearsScore(t *testing.T) {
	tr := NewTracker(100)
	tr.Misbehaving("a", 50)
	tr.Reset("a")
	require.Equal(t, 0, tr.Score("a"))
}

func TestAllowBurstsThenThrottles(t *testing.T) {
	tr := NewTracker(100)
	tr.msgRate = 0
	tr.msgBurst = 3
	for i := 0; i < 3; i++ {
		require.True(t, tr.Allow("a"))
	}
	require.False(t, tr.Allow("a"))
	require.True(t, tr.Allow("b"), "separate peer has its own bucket")
}
