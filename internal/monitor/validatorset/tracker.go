// Package validatorset implements the exited- and slashed-validator
// trackers, which diff consecutive epoch snapshots against remembered
// state to raise an alert only on the transition into a new status.
package validatorset

import (
	"github.com/ethzen/valmon/internal/beaconapi"
	"github.com/ethzen/valmon/internal/sliceutil"
)

// ExitedTracker remembers the set of own validators already known to
// be exited-unslashed, alerting only on newly observed exits.
type ExitedTracker struct {
	primed  bool
	indexes []uint64
}

// NewExitedTracker constructs an ExitedTracker.
func NewExitedTracker() *ExitedTracker {
	return &ExitedTracker{}
}

// Process computes the own-exited set (exited_unslashed plus any
// withdrawable-but-not-slashed index) and returns the newly observed
// indexes since the last call. The first call always primes state and
// never reports new exits.
func (t *ExitedTracker) Process(ownExitedUnslashed []uint64, ownWithdrawable []uint64, snapshot beaconapi.ValidatorSetSnapshot) (ownExited []uint64, newExits []uint64) {
	var unslashedWithdrawable []uint64
	for _, idx := range ownWithdrawable {
		if v, ok := snapshot.Get(idx); ok && !v.Slashed {
			unslashedWithdrawable = append(unslashedWithdrawable, idx)
		}
	}
	ownExited = sliceutil.Union(ownExitedUnslashed, unslashedWithdrawable)

	if !t.primed {
		t.primed = true
		t.indexes = ownExited
		return ownExited, nil
	}

	newExits = sliceutil.Not(t.indexes, ownExited)
	t.indexes = ownExited
	return ownExited, newExits
}

// SlashedTracker remembers both the network-wide and own
// exited-slashed sets, escalating own slashes to alerts and network
// slashes to an informational log line naming the pubkey.
type SlashedTracker struct {
	primed         bool
	networkIndexes []uint64
	ownIndexes     []uint64
}

// NewSlashedTracker constructs a SlashedTracker.
func NewSlashedTracker() *SlashedTracker {
	return &SlashedTracker{}
}

// SlashedFinding names a newly observed slashed validator.
type SlashedFinding struct {
	Index  uint64
	Pubkey string
	Own    bool
}

// Process computes the combined (exited_slashed ∪ slashed-withdrawable)
// sets for the network and for own, and returns newly observed slashes
// since the last call. The pubkey of a finding is resolved by index from
// snapshot (ValidatorSetSnapshot.Get), never from a set lookup.
// The first call always primes state and never reports findings.
func (t *SlashedTracker) Process(networkExitedSlashed, networkWithdrawable, ownExitedSlashed, ownWithdrawable []uint64, snapshot beaconapi.ValidatorSetSnapshot) (networkSlashed, ownSlashed []uint64, findings []SlashedFinding) {
	networkSlashed = sliceutil.Union(networkExitedSlashed, slashedSubset(networkWithdrawable, snapshot))
	ownSlashed = sliceutil.Union(ownExitedSlashed, slashedSubset(ownWithdrawable, snapshot))

	if !t.primed {
		t.primed = true
		t.networkIndexes = networkSlashed
		t.ownIndexes = ownSlashed
		return networkSlashed, ownSlashed, nil
	}

	newOwn := sliceutil.Not(t.ownIndexes, ownSlashed)
	for _, idx := range newOwn {
		findings = append(findings, SlashedFinding{Index: idx, Pubkey: pubkeyFor(idx, snapshot), Own: true})
	}

	newNetwork := sliceutil.Not(t.networkIndexes, networkSlashed)
	newNetworkNotOwn := sliceutil.Not(ownSlashed, newNetwork)
	for _, idx := range newNetworkNotOwn {
		findings = append(findings, SlashedFinding{Index: idx, Pubkey: pubkeyFor(idx, snapshot), Own: false})
	}

	t.networkIndexes = networkSlashed
	t.ownIndexes = ownSlashed
	return networkSlashed, ownSlashed, findings
}

func slashedSubset(withdrawable []uint64, snapshot beaconapi.ValidatorSetSnapshot) []uint64 {
	var out []uint64
	for _, idx := range withdrawable {
		if v, ok := snapshot.Get(idx); ok && v.Slashed {
			out = append(out, idx)
		}
	}
	return out
}

// pubkeyFor resolves idx's pubkey from the snapshot's index-keyed
// validator map; a bare index set cannot answer this lookup.
func pubkeyFor(idx uint64, snapshot beaconapi.ValidatorSetSnapshot) string {
	if v, ok := snapshot.Get(idx); ok {
		return v.Pubkey
	}
	return ""
}
