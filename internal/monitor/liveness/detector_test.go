package liveness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	byEpoch map[uint64]map[uint64]bool
}

func (f *fakeNode) GetValidatorsLiveness(_ context.Context, epoch uint64, indices []uint64) (map[uint64]bool, error) {
	return f.byEpoch[epoch], nil
}

func TestProcess_BelowEpochOneIsNoop(t *testing.T) {
	d := New(&fakeNode{})
	findings, err := d.Process(context.Background(), 0, []uint64{1}, nil)
	require.NoError(t, err)
	require.Nil(t, findings)
}

func TestProcess_FirstCallPrimesWithoutPairedAlerts(t *testing.T) {
	node := &fakeNode{byEpoch: map[uint64]map[uint64]bool{
		5: {7: false, 9: false, 12: true},
	}}
	d := New(node)
	findings, err := d.Process(context.Background(), 5, []uint64{7, 9, 12}, nil)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	for _, f := range findings {
		require.False(t, f.IsPaired)
	}
}

func TestProcess_PairedMissAcrossConsecutiveEpochs(t *testing.T) {
	node := &fakeNode{byEpoch: map[uint64]map[uint64]bool{
		5: {7: false, 9: false, 12: true},
		6: {7: true, 9: false, 12: false},
	}}
	d := New(node)

	_, err := d.Process(context.Background(), 5, []uint64{7, 9, 12}, nil)
	require.NoError(t, err)

	findings, err := d.Process(context.Background(), 6, []uint64{7, 9, 12}, nil)
	require.NoError(t, err)

	paired := map[uint64]bool{}
	for _, f := range findings {
		if f.IsPaired {
			paired[f.Index] = true
			require.Equal(t, uint64(5), f.PairEpoch)
		}
	}
	require.Equal(t, map[uint64]bool{9: true}, paired)
}

func TestProcess_OwnFlagReflectsWatchedSet(t *testing.T) {
	node := &fakeNode{byEpoch: map[uint64]map[uint64]bool{
		5: {7: false},
	}}
	d := New(node)
	findings, err := d.Process(context.Background(), 5, []uint64{7}, map[uint64]struct{}{7: {}})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.True(t, findings[0].IsOwn)
}
