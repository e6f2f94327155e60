package engine

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ethzen/valmon/internal/beaconapi"
	"github.com/ethzen/valmon/internal/config"
	"github.com/ethzen/valmon/internal/metrics"
	"github.com/ethzen/valmon/internal/mocks"
	"github.com/ethzen/valmon/internal/slotclock"
)

type fakeMessenger struct {
	sent []string
}

func (f *fakeMessenger) SendBroadcast(_ context.Context, message string) {
	f.sent = append(f.sent, message)
}

type fakePriceOracle struct {
	calls int
}

func (f *fakePriceOracle) RefreshRate(_ context.Context, _ string, gauge prometheus.Gauge) {
	f.calls++
	gauge.Set(1234.5)
}

func newTestEngine(t *testing.T, node beaconapi.ConsensusNode, msgr Messenger) (*Engine, *metrics.Registry) {
	t.Helper()
	mx := metrics.New()
	e := New(config.Config{Chain: config.MainnetChain}, node, msgr, &fakePriceOracle{}, nil, mx, nil, nil)
	return e, mx
}

// TestProcessSlot_PreGenesis_NeverQueriesTheNode asserts the negative-slot
// countdown path returns before touching the consensus node at all.
func TestProcessSlot_PreGenesis_NeverQueriesTheNode(t *testing.T) {
	ctrl := gomock.NewController(t)
	node := mocks.NewMockConsensusNode(ctrl) // no EXPECT() calls: any use fails the test

	e, mx := newTestEngine(t, node, &fakeMessenger{})
	e.processSlot(context.Background(), slotAt(-5))

	require.Equal(t, float64(0), testutil.ToFloat64(mx.Slot))
}

// TestProcessSlot_FirstSlot_RunsEpochRefreshAndReconciliation exercises the
// first-ever slot: it must always be treated as a new epoch, refresh the
// validator-set snapshot, and walk finalized reconciliation without
// error even when every response is empty.
func TestProcessSlot_FirstSlot_RunsEpochRefreshAndReconciliation(t *testing.T) {
	ctrl := gomock.NewController(t)
	node := mocks.NewMockConsensusNode(ctrl)

	node.EXPECT().GetProposerDuties(gomock.Any(), gomock.Any()).Return(beaconapi.ProposerDuties{}, nil).AnyTimes()
	node.EXPECT().GetHeader(gomock.Any(), beaconapi.TermFinalized).Return(beaconapi.Header{Slot: 0}, nil).AnyTimes()
	node.EXPECT().GetPotentialBlock(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	node.EXPECT().GetValidatorSetSnapshot(gomock.Any()).Return(beaconapi.ValidatorSetSnapshot{}, nil).AnyTimes()
	node.EXPECT().GetCommitteeDuties(gomock.Any(), gomock.Any()).Return(beaconapi.CommitteeDuties{}, nil).AnyTimes()

	e, mx := newTestEngine(t, node, &fakeMessenger{})
	e.processSlot(context.Background(), slotAt(0))

	require.Equal(t, float64(0), testutil.ToFloat64(mx.Slot))
	require.Equal(t, float64(0), testutil.ToFloat64(mx.Epoch))
	require.True(t, e.firstSlotSeen)
	require.Equal(t, uint64(0), e.currentEpoch)
}

// TestOnNewEpoch_AlertsOnNewlyObservedExit confirms the exited-validator
// tracker's second-call transition reaches the messenger.
func TestOnNewEpoch_AlertsOnNewlyObservedExit(t *testing.T) {
	ctrl := gomock.NewController(t)
	node := mocks.NewMockConsensusNode(ctrl)

	activeSnapshot := beaconapi.ValidatorSetSnapshot{ByStatus: map[beaconapi.StatusType]map[uint64]beaconapi.Validator{
		beaconapi.StatusActiveOngoing: {7: {Index: 7, Pubkey: "0xown", Status: beaconapi.StatusActiveOngoing}},
	}}
	exitedSnapshot := beaconapi.ValidatorSetSnapshot{ByStatus: map[beaconapi.StatusType]map[uint64]beaconapi.Validator{
		beaconapi.StatusExitedUnslashed: {7: {Index: 7, Pubkey: "0xown", Status: beaconapi.StatusExitedUnslashed}},
	}}

	gomock.InOrder(
		node.EXPECT().GetValidatorSetSnapshot(gomock.Any()).Return(activeSnapshot, nil),
		node.EXPECT().GetValidatorSetSnapshot(gomock.Any()).Return(exitedSnapshot, nil),
	)

	msgr := &fakeMessenger{}
	// PubkeysFile deliberately points nowhere: onNewEpoch's key-file
	// refresh then fails and keeps the pre-seeded own-key set, rather
	// than silently replacing it with an empty one.
	cfg := config.Config{Chain: config.MainnetChain, PubkeysFile: "/nonexistent/pubkeys.txt"}
	e := New(cfg, node, msgr, &fakePriceOracle{}, nil, metrics.New(), nil, nil)
	e.currentOwnKeys = map[string]struct{}{"0xown": {}}

	e.onNewEpoch(context.Background(), 10)
	require.Empty(t, msgr.sent)

	e.onNewEpoch(context.Background(), 11)
	require.Len(t, msgr.sent, 1)
	require.Contains(t, msgr.sent[0], "validator 7 has exited")
}

func slotAt(n int64) slotclock.Slot {
	return slotclock.Slot{Number: n, Start: time.Now().Add(-time.Minute)}
}
