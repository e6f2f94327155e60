package attestation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethzen/valmon/internal/beaconapi"
)

func TestAnalyze_FullInclusion(t *testing.T) {
	committees := beaconapi.CommitteeDuties{
		99: {0: {10, 11, 12}},
	}
	block := beaconapi.Block{
		Slot: 100,
		Attestations: []beaconapi.Attestation{
			{AggregationBitsHex: "0x0F", Data: beaconapi.AttestationData{Slot: 99, CommitteeIndex: 0}},
		},
	}

	result, err := New().Analyze(committees, block, 99, []uint64{10, 11})
	require.NoError(t, err)
	require.True(t, result.ParticipationOK)
	require.Equal(t, 100.0, result.ParticipationPct)
	require.Empty(t, result.MissingOwn)
}

func TestAnalyze_PartialInclusionReportsShortfall(t *testing.T) {
	committees := beaconapi.CommitteeDuties{
		99: {0: {10, 11, 12}},
	}
	block := beaconapi.Block{
		Slot: 100,
		Attestations: []beaconapi.Attestation{
			// bit 0 only: validator 10 included, 11 and 12 missing.
			{AggregationBitsHex: "0x09", Data: beaconapi.AttestationData{Slot: 99, CommitteeIndex: 0}},
		},
	}

	result, err := New().Analyze(committees, block, 99, []uint64{10, 11})
	require.NoError(t, err)
	require.True(t, result.ParticipationOK)
	require.Equal(t, []uint64{11}, result.MissingOwn)
	require.Equal(t, 50.0, result.ParticipationPct)
}

func TestAnalyze_NoCommitteesForSlotIsNoop(t *testing.T) {
	result, err := New().Analyze(beaconapi.CommitteeDuties{}, beaconapi.Block{}, 99, []uint64{10})
	require.NoError(t, err)
	require.False(t, result.ParticipationOK)
}

func TestAnalyze_NoOwnAssignedIsUndefinedRate(t *testing.T) {
	committees := beaconapi.CommitteeDuties{99: {0: {12, 13}}}
	result, err := New().Analyze(committees, beaconapi.Block{Slot: 100}, 99, []uint64{10, 11})
	require.NoError(t, err)
	require.False(t, result.ParticipationOK)
}
