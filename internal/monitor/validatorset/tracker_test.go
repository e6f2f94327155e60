package validatorset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethzen/valmon/internal/beaconapi"
)

func snapshotWith(validators ...beaconapi.Validator) beaconapi.ValidatorSetSnapshot {
	s := beaconapi.ValidatorSetSnapshot{ByStatus: map[beaconapi.StatusType]map[uint64]beaconapi.Validator{}}
	for _, v := range validators {
		if s.ByStatus[v.Status] == nil {
			s.ByStatus[v.Status] = map[uint64]beaconapi.Validator{}
		}
		s.ByStatus[v.Status][v.Index] = v
	}
	return s
}

func TestExitedTracker_FirstCallPrimesWithoutAlert(t *testing.T) {
	tr := NewExitedTracker()
	exited, newExits := tr.Process([]uint64{5}, nil, snapshotWith())
	require.Equal(t, []uint64{5}, exited)
	require.Nil(t, newExits)
}

func TestExitedTracker_NewExitDetected(t *testing.T) {
	tr := NewExitedTracker()
	tr.Process([]uint64{5}, nil, snapshotWith())

	exited, newExits := tr.Process([]uint64{5, 9}, nil, snapshotWith())
	require.ElementsMatch(t, []uint64{5, 9}, exited)
	require.Equal(t, []uint64{9}, newExits)
}

func TestExitedTracker_WithdrawableUnslashedCountsAsExited(t *testing.T) {
	tr := NewExitedTracker()
	snap := snapshotWith(beaconapi.Validator{Index: 7, Status: beaconapi.StatusWithdrawalPossible, Slashed: false})
	exited, _ := tr.Process(nil, []uint64{7}, snap)
	require.Equal(t, []uint64{7}, exited)
}

func TestSlashedTracker_FirstCallPrimesWithoutFindings(t *testing.T) {
	tr := NewSlashedTracker()
	_, _, findings := tr.Process([]uint64{3}, nil, []uint64{3}, nil, snapshotWith())
	require.Nil(t, findings)
}

func TestSlashedTracker_NewOwnSlashRaisesFinding(t *testing.T) {
	tr := NewSlashedTracker()
	snap := snapshotWith(beaconapi.Validator{Index: 3, Status: beaconapi.StatusExitedSlashed, Pubkey: "0xown"})
	tr.Process([]uint64{}, nil, []uint64{}, nil, snap)

	_, _, findings := tr.Process([]uint64{3}, nil, []uint64{3}, nil, snap)
	require.Len(t, findings, 1)
	require.True(t, findings[0].Own)
	require.Equal(t, "0xown", findings[0].Pubkey)
}

func TestSlashedTracker_NewNetworkSlashNotOwnResolvesPubkeyFromSnapshot(t *testing.T) {
	tr := NewSlashedTracker()
	snap := snapshotWith(beaconapi.Validator{Index: 11, Status: beaconapi.StatusExitedSlashed, Pubkey: "0xnetwork-only"})
	tr.Process([]uint64{}, nil, []uint64{}, nil, snap)

	_, _, findings := tr.Process([]uint64{11}, nil, []uint64{}, nil, snap)
	require.Len(t, findings, 1)
	require.False(t, findings[0].Own)
	require.Equal(t, "0xnetwork-only", findings[0].Pubkey)
}
