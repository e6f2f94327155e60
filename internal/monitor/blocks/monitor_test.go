package blocks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethzen/valmon/internal/beaconapi"
	"github.com/ethzen/valmon/internal/config"
)

type fakeNode struct {
	headers map[interface{}]beaconapi.Header
	blocks  map[uint64]*beaconapi.Block
	duties  map[uint64]beaconapi.ProposerDuties
}

func (f *fakeNode) GetHeader(_ context.Context, id interface{}) (beaconapi.Header, error) {
	h, ok := f.headers[id]
	if !ok {
		return beaconapi.Header{}, beaconapi.ErrNoBlock
	}
	return h, nil
}

func (f *fakeNode) GetPotentialBlock(_ context.Context, slot uint64) (*beaconapi.Block, error) {
	return f.blocks[slot], nil
}

func (f *fakeNode) GetProposerDuties(_ context.Context, epoch uint64) (beaconapi.ProposerDuties, error) {
	return f.duties[epoch], nil
}

func TestFutureLookAhead_FiltersToOwnAndFutureSlots(t *testing.T) {
	node := &fakeNode{duties: map[uint64]beaconapi.ProposerDuties{
		1: {Duties: []beaconapi.ProposerDuty{
			{Slot: 10, Pubkey: "0xown"},
			{Slot: 20, Pubkey: "0xother"},
		}},
		2: {Duties: []beaconapi.ProposerDuty{{Slot: 40, Pubkey: "0xown"}}},
	}}
	m := New(node, nil, config.MainnetChain)

	out, err := m.FutureLookAhead(context.Background(), 1, 15, map[string]struct{}{"0xown": {}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, uint64(40), out[0].Slot)
}

func TestHeadCheck_MissedWhenOwnAndBlockAbsent(t *testing.T) {
	node := &fakeNode{blocks: map[uint64]*beaconapi.Block{}}
	m := New(node, nil, config.MainnetChain)

	f, err := m.HeadCheck(context.Background(), 100, "0xown", map[string]struct{}{"0xown": {}})
	require.NoError(t, err)
	require.NotNil(t, f)
	require.True(t, f.Missed)
}

func TestHeadCheck_NotOwnIsNoop(t *testing.T) {
	node := &fakeNode{blocks: map[uint64]*beaconapi.Block{}}
	m := New(node, nil, config.MainnetChain)

	f, err := m.HeadCheck(context.Background(), 100, "0xother", map[string]struct{}{"0xown": {}})
	require.NoError(t, err)
	require.Nil(t, f)
}

func TestFinalizedReconciliation_ProposedAndMissed(t *testing.T) {
	node := &fakeNode{
		headers: map[interface{}]beaconapi.Header{
			beaconapi.TermFinalized: {Slot: 103},
			uint64(101):             {Slot: 101},
		},
		blocks: map[uint64]*beaconapi.Block{
			101: {Slot: 101, ExecutionPayload: beaconapi.ExecutionPayloadSummary{BlockHash: "0xhash101"}},
		},
	}
	duties := beaconapi.ProposerDuties{Duties: []beaconapi.ProposerDuty{
		{Slot: 101, Pubkey: "0xown"},
		{Slot: 102, Pubkey: "0xother"},
		{Slot: 103, Pubkey: "0xown"},
	}}
	m := New(node, nil, config.MainnetChain)

	newLast, findings, err := m.FinalizedReconciliation(context.Background(), 100, duties, map[string]struct{}{"0xown": {}})
	require.NoError(t, err)
	require.Equal(t, uint64(103), newLast)
	require.Len(t, findings, 2)
	require.False(t, findings[0].Missed)
	require.Equal(t, uint64(101), findings[0].Slot)
	require.True(t, findings[1].Missed)
	require.Equal(t, uint64(103), findings[1].Slot)
}

func TestMonitor_ETAUsesConfiguredSecondsPerSlot(t *testing.T) {
	node := &fakeNode{duties: map[uint64]beaconapi.ProposerDuties{
		1: {Duties: []beaconapi.ProposerDuty{{Slot: 10, Pubkey: "0xown"}}},
		2: {},
	}}
	chain := config.MainnetChain
	chain.SecondsPerSlot = 6 // a non-12s chain; the ETA must reflect this, not a hardcoded 12s
	m := New(node, nil, chain)
	m.now = func() time.Time { return time.Unix(0, 0) }

	out, err := m.FutureLookAhead(context.Background(), 1, 5, map[string]struct{}{"0xown": {}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotEmpty(t, out[0].ETA)
	require.Equal(t, "30 seconds from now", out[0].ETA) // 5 slots x 6s
}
