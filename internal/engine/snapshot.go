package engine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ethzen/valmon/internal/beaconapi"
	"github.com/ethzen/valmon/internal/sliceutil"
)

// epochSnapshot is the per-epoch view of the validator set: a struct
// of named partitions plus the index-keyed lookup maps the analytical
// modules need, derived once per epoch boundary.
type epochSnapshot struct {
	Full beaconapi.ValidatorSetSnapshot

	NetworkActive  []uint64
	NetworkPending []uint64

	OwnActive          []uint64
	OwnPending         []uint64
	OwnExitedUnslashed []uint64
	OwnWithdrawable    []uint64
	OwnExitedSlashed   []uint64

	NetworkWithdrawable  []uint64
	NetworkExitedSlashed []uint64

	BalanceByIndex map[uint64]uint64
	PubkeyByIndex  map[uint64]string
}

// refreshEpochSnapshot queries the beacon node for the full head
// validator set, partitions it by status, and intersects every
// own-relevant partition with ownKeys.
func refreshEpochSnapshot(ctx context.Context, node beaconapi.ConsensusNode, ownKeys map[string]struct{}) (epochSnapshot, error) {
	full, err := node.GetValidatorSetSnapshot(ctx)
	if err != nil {
		return epochSnapshot{}, errors.Wrap(err, "engine: refresh validator set")
	}

	balanceByIndex := make(map[uint64]uint64)
	pubkeyByIndex := make(map[uint64]string)
	var ownIndices []uint64
	for _, byIndex := range full.ByStatus {
		for idx, v := range byIndex {
			balanceByIndex[idx] = v.EffectiveBalance
			pubkeyByIndex[idx] = v.Pubkey
			if _, ok := ownKeys[v.Pubkey]; ok {
				ownIndices = append(ownIndices, idx)
			}
		}
	}

	networkActive := full.IndicesWithStatus(
		beaconapi.StatusActiveOngoing, beaconapi.StatusActiveExiting, beaconapi.StatusActiveSlashed,
	)
	networkPending := full.IndicesWithStatus(beaconapi.StatusPendingQueued)
	exitedUnslashed := full.IndicesWithStatus(beaconapi.StatusExitedUnslashed)
	exitedSlashed := full.IndicesWithStatus(beaconapi.StatusExitedSlashed)
	withdrawable := sliceutil.Union(
		full.IndicesWithStatus(beaconapi.StatusWithdrawalPossible),
		full.IndicesWithStatus(beaconapi.StatusWithdrawalDone),
	)

	return epochSnapshot{
		Full:                 full,
		NetworkActive:        networkActive,
		NetworkPending:       networkPending,
		OwnActive:            sliceutil.Intersection(networkActive, ownIndices),
		OwnPending:           sliceutil.Intersection(networkPending, ownIndices),
		OwnExitedUnslashed:   sliceutil.Intersection(exitedUnslashed, ownIndices),
		OwnWithdrawable:      sliceutil.Intersection(withdrawable, ownIndices),
		OwnExitedSlashed:     sliceutil.Intersection(exitedSlashed, ownIndices),
		NetworkWithdrawable:  withdrawable,
		NetworkExitedSlashed: exitedSlashed,
		BalanceByIndex:       balanceByIndex,
		PubkeyByIndex:        pubkeyByIndex,
	}, nil
}
