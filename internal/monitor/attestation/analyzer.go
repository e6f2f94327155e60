// Package attestation determines which validators assigned to attest
// for a slot were actually included in the following block.
package attestation

import (
	"github.com/pkg/errors"

	"github.com/ethzen/valmon/internal/beaconapi"
	"github.com/ethzen/valmon/internal/bitutil"
	"github.com/ethzen/valmon/internal/sliceutil"
)

// Result is the outcome of analyzing inclusion for a single slot.
type Result struct {
	PrevSlot         uint64
	AssignedOwn      []uint64
	IncludedOwn      []uint64
	MissingOwn       []uint64
	ParticipationOK  bool // false when AssignedOwn is empty (rate undefined)
	ParticipationPct float64
}

// Analyzer reconstructs per-committee inclusion from a block's
// attestations and reports which of the caller's own validators,
// assigned to attest for the block's parent slot, were included.
type Analyzer struct{}

// New constructs an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze inspects block (for slot) against the committee duties for
// prevSlot's epoch, reporting inclusion for ownActiveIndices.
func (a *Analyzer) Analyze(committees beaconapi.CommitteeDuties, block beaconapi.Block, prevSlot uint64, ownActiveIndices []uint64) (Result, error) {
	committeeDuties, ok := committees[prevSlot]
	if !ok {
		return Result{PrevSlot: prevSlot}, nil
	}

	byCommittee := make(map[uint64][][]bool)
	for _, att := range block.Attestations {
		if att.Data.Slot != prevSlot {
			continue
		}
		bits, err := bitutil.DecodeHex(att.AggregationBitsHex)
		if err != nil {
			return Result{}, errors.Wrap(err, "attestation: decode aggregation bits")
		}
		byCommittee[att.Data.CommitteeIndex] = append(byCommittee[att.Data.CommitteeIndex], bits)
	}

	var assigned, included []uint64
	for committeeIndex, duties := range committeeDuties {
		assigned = sliceutil.Union(assigned, duties)

		vectors, ok := byCommittee[committeeIndex]
		if !ok || len(vectors) == 0 {
			continue
		}
		aggregated, err := bitutil.AggregateBits(vectors)
		if err != nil {
			return Result{}, errors.Wrapf(err, "attestation: aggregate committee %d", committeeIndex)
		}
		committeeIncluded, err := bitutil.ApplyMask(duties, aggregated)
		if err != nil {
			return Result{}, errors.Wrapf(err, "attestation: apply mask committee %d", committeeIndex)
		}
		included = sliceutil.Union(included, committeeIncluded)
	}

	assignedOwn := sliceutil.Intersection(assigned, ownActiveIndices)
	includedOwn := sliceutil.Intersection(assignedOwn, included)
	missingOwn := sliceutil.Not(includedOwn, assignedOwn)

	result := Result{
		PrevSlot:    prevSlot,
		AssignedOwn: assignedOwn,
		IncludedOwn: includedOwn,
		MissingOwn:  missingOwn,
	}
	if len(assignedOwn) > 0 {
		result.ParticipationOK = true
		result.ParticipationPct = float64(len(includedOwn)) / float64(len(assignedOwn)) * 100
	}
	return result, nil
}
