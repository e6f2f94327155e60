package activation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethzen/valmon/internal/config"
)

func TestEstimateSeconds_ChurnScenario(t *testing.T) {
	e := New(config.MainnetChain)
	seconds, err := e.EstimateSeconds(500_000, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(142*384), seconds)
}

func TestEstimateSeconds_ZeroActiveIsZeroChurn(t *testing.T) {
	e := New(config.MainnetChain)
	_, err := e.EstimateSeconds(0, 1000)
	require.ErrorIs(t, err, ErrZeroChurn)
}

func TestEstimateSeconds_MonotonicInPendingAndActive(t *testing.T) {
	e := New(config.MainnetChain)

	low, err := e.EstimateSeconds(500_000, 1000)
	require.NoError(t, err)
	high, err := e.EstimateSeconds(500_000, 2000)
	require.NoError(t, err)
	require.GreaterOrEqual(t, high, low)

	moreActive, err := e.EstimateSeconds(1_000_000, 1000)
	require.NoError(t, err)
	require.LessOrEqual(t, moreActive, low)
}
