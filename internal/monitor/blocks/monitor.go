// Package blocks implements the three-horizon block-proposal monitor:
// future look-ahead, head (optimistic) detection, and finalized
// reconciliation, plus the MEV reward side-channel.
package blocks

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/ethzen/valmon/internal/beaconapi"
	"github.com/ethzen/valmon/internal/config"
)

// ConsensusNode is the beacon query surface the monitor needs.
type ConsensusNode interface {
	GetHeader(ctx context.Context, id interface{}) (beaconapi.Header, error)
	GetPotentialBlock(ctx context.Context, slot uint64) (*beaconapi.Block, error)
	GetProposerDuties(ctx context.Context, epoch uint64) (beaconapi.ProposerDuties, error)
}

// RelayClient resolves the MEV payout value a relay delivered for a
// slot, in gwei.
type RelayClient interface {
	GetPayloadValue(ctx context.Context, slot uint64) (uint64, bool)
}

// FutureProposal is an own-validator proposal due in an upcoming slot.
type FutureProposal struct {
	Slot   uint64
	Pubkey string
	ETA    string
}

// Finding describes a single resolved (proposed/missed) own proposal.
type Finding struct {
	Slot       uint64
	Missed     bool
	BlockHash  string // execution payload hash, when the block was produced
	RewardGwei uint64 // set only when Missed is false and a relay answered
}

// Monitor implements the three block-proposal horizons.
type Monitor struct {
	node  ConsensusNode
	relay RelayClient
	chain config.Chain
	now   func() time.Time
}

// New constructs a Monitor. relay may be nil to disable the MEV
// side-channel entirely.
func New(node ConsensusNode, relay RelayClient, chain config.Chain) *Monitor {
	return &Monitor{node: node, relay: relay, chain: chain, now: time.Now}
}

// FutureLookAhead returns own proposals due at or after currentSlot
// across epochs e and e+1's proposer duties, restricted to pubkeys in
// own.
func (m *Monitor) FutureLookAhead(ctx context.Context, epoch, currentSlot uint64, own map[string]struct{}) ([]FutureProposal, error) {
	var out []FutureProposal
	for _, e := range []uint64{epoch, epoch + 1} {
		duties, err := m.node.GetProposerDuties(ctx, e)
		if err != nil {
			return nil, errors.Wrapf(err, "blocks: proposer duties for epoch %d", e)
		}
		for _, d := range duties.Duties {
			if d.Slot < currentSlot {
				continue
			}
			if _, ok := own[d.Pubkey]; !ok {
				continue
			}
			eta := d.Slot - currentSlot
			etaDuration := time.Duration(eta*m.chain.SecondsPerSlot) * time.Second
			out = append(out, FutureProposal{
				Slot:   d.Slot,
				Pubkey: d.Pubkey,
				ETA:    humanize.RelTime(m.now(), m.now().Add(etaDuration), "from now", ""),
			})
		}
	}
	return out, nil
}

// HeadCheck fetches the block for slot after the caller has waited out
// MissedBlockTimeout, reporting a miss when slot's proposer is own and
// no block is present.
func (m *Monitor) HeadCheck(ctx context.Context, slot uint64, proposerPubkey string, own map[string]struct{}) (*Finding, error) {
	if _, ok := own[proposerPubkey]; !ok {
		return nil, nil
	}
	block, err := m.node.GetPotentialBlock(ctx, slot)
	if err != nil {
		return nil, errors.Wrapf(err, "blocks: head check slot %d", slot)
	}
	if block == nil {
		return &Finding{Slot: slot, Missed: true}, nil
	}
	return nil, nil
}

// FinalizedReconciliation walks every slot in (lastProcessed, finalizedSlot]
// whose proposer duty belongs to own, classifying each as proposed or
// missed. It returns the findings and the new lastProcessed value.
func (m *Monitor) FinalizedReconciliation(ctx context.Context, lastProcessed uint64, duties beaconapi.ProposerDuties, own map[string]struct{}) (uint64, []Finding, error) {
	header, err := m.node.GetHeader(ctx, beaconapi.TermFinalized)
	if err != nil {
		return lastProcessed, nil, errors.Wrap(err, "blocks: get finalized header")
	}
	finalizedSlot := header.Slot

	byPubkey := make(map[uint64]string, len(duties.Duties))
	for _, d := range duties.Duties {
		byPubkey[d.Slot] = d.Pubkey
	}

	var findings []Finding
	for slot := lastProcessed + 1; slot <= finalizedSlot; slot++ {
		pubkey, ok := byPubkey[slot]
		if !ok {
			continue
		}
		if _, isOwn := own[pubkey]; !isOwn {
			continue
		}

		_, err := m.node.GetHeader(ctx, slot)
		if errors.Is(err, beaconapi.ErrNoBlock) {
			findings = append(findings, Finding{Slot: slot, Missed: true})
			continue
		}
		if err != nil {
			return lastProcessed, findings, errors.Wrapf(err, "blocks: finalized header slot %d", slot)
		}

		finding := Finding{Slot: slot, Missed: false}
		if m.relay != nil {
			if value, found := m.relay.GetPayloadValue(ctx, slot); found {
				finding.RewardGwei = value
			}
		}
		if block, err := m.node.GetPotentialBlock(ctx, slot); err == nil && block != nil {
			finding.BlockHash = block.ExecutionPayload.BlockHash
		}
		findings = append(findings, finding)
	}

	return finalizedSlot, findings, nil
}

// FormatProposalAlert renders a human-readable alert for an upcoming
// own proposal.
func FormatProposalAlert(p FutureProposal) string {
	return fmt.Sprintf("validator %s is scheduled to propose slot %d (%s)", p.Pubkey, p.Slot, p.ETA)
}
