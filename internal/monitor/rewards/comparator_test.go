package rewards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethzen/valmon/internal/beaconapi"
)

type fakeNode struct {
	rewards beaconapi.Rewards
}

func (f *fakeNode) GetRewards(_ context.Context, epoch uint64, indices []uint64) (beaconapi.Rewards, error) {
	return f.rewards, nil
}

func TestCompare_BelowEpochTwoIsNoop(t *testing.T) {
	c := New(&fakeNode{})
	result, err := c.Compare(context.Background(), 1, []uint64{1}, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, Result{}, result)
}

func TestCompare_EmptyNetworkIsNoop(t *testing.T) {
	c := New(&fakeNode{})
	result, err := c.Compare(context.Background(), 5, nil, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, Result{}, result)
}

func TestCompare_ScenarioSixTripleMax(t *testing.T) {
	node := &fakeNode{rewards: beaconapi.Rewards{
		Ideal: []beaconapi.IdealReward{
			{EffectiveBalance: 32_000_000_000, Reward: beaconapi.RewardComponent{Source: 14000, Target: 13000, Head: 7500}},
		},
		Earned: []beaconapi.EarnedReward{
			{ValidatorIndex: 42, Reward: beaconapi.RewardComponent{Source: 14000, Target: 12999, Head: 7500}},
		},
	}}
	c := New(node)

	balances := map[uint64]uint64{42: 32_000_000_000}
	pubkeys := map[uint64]string{42: "0xabc"}

	result, err := c.Compare(context.Background(), 5, []uint64{42}, []uint64{42}, balances, pubkeys)
	require.NoError(t, err)

	require.Equal(t, 1, result.Network.Source.MaxCount)
	require.Equal(t, 0, result.Network.Target.MaxCount)
	require.Equal(t, 1, result.Network.Head.MaxCount)

	require.Len(t, result.Findings, 1)
	require.Equal(t, "target", result.Findings[0].Component)
	require.Equal(t, uint64(42), result.Findings[0].ValidatorIndex)
	require.Equal(t, "0xabc", result.Findings[0].Pubkey)
}
