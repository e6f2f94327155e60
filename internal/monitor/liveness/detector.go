// Package liveness implements the epoch-level missed-attestation
// detector, including consecutive-epoch paired-miss escalation.
package liveness

import (
	"context"
)

// Finding is a single dead-validator observation for an epoch.
type Finding struct {
	Epoch     uint64
	Index     uint64
	IsOwn     bool
	IsPaired  bool
	PairEpoch uint64 // the earlier epoch of the pair, when IsPaired
}

// ConsensusNode is the liveness query surface the detector needs.
type ConsensusNode interface {
	GetValidatorsLiveness(ctx context.Context, epoch uint64, indices []uint64) (map[uint64]bool, error)
}

// Detector tracks the previous epoch's dead-validator set across
// calls to recognize validators dead in two consecutive epochs.
type Detector struct {
	node ConsensusNode

	primed        bool
	prevEpoch     uint64
	prevDeadIndex map[uint64]struct{}
}

// New constructs a Detector. The first call to Process always primes
// internal state and never reports a paired miss.
func New(node ConsensusNode) *Detector {
	return &Detector{node: node}
}

// Process inspects epoch's liveness for activeIndices, reporting dead
// validators as findings; own is the subset of activeIndices the
// operator watches. epoch < 1 always yields no findings.
func (d *Detector) Process(ctx context.Context, epoch uint64, activeIndices []uint64, own map[uint64]struct{}) ([]Finding, error) {
	if epoch < 1 {
		return nil, nil
	}

	liveness, err := d.node.GetValidatorsLiveness(ctx, epoch, activeIndices)
	if err != nil {
		return nil, err
	}

	dead := make(map[uint64]struct{})
	var findings []Finding
	for _, idx := range activeIndices {
		if liveness[idx] {
			continue
		}
		dead[idx] = struct{}{}
		_, isOwn := own[idx]
		f := Finding{Epoch: epoch, Index: idx, IsOwn: isOwn}
		if d.primed && d.prevEpoch == epoch-1 && epoch >= 2 {
			if _, wasDead := d.prevDeadIndex[idx]; wasDead {
				f.IsPaired = true
				f.PairEpoch = epoch - 1
			}
		}
		findings = append(findings, f)
	}

	d.primed = true
	d.prevEpoch = epoch
	d.prevDeadIndex = dead
	return findings, nil
}
