// Package rewards compares earned attestation rewards against the
// per-effective-balance ideal, for both the whole network and the
// operator's own validators.
package rewards

import (
	"context"

	"github.com/ethzen/valmon/internal/beaconapi"
)

// ComponentTotals aggregates one reward component (source, target, or
// head) across a population of validators.
type ComponentTotals struct {
	PossibleSum  int64
	EarnedSum    int64
	RewardCount  int // earned > 0
	PenaltyCount int // earned < 0
	MaxCount     int // earned == ideal
	Total        int
}

// Rate returns the fraction of validators that achieved the maximum
// for this component.
func (c ComponentTotals) Rate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.MaxCount) / float64(c.Total)
}

// Summary is the aggregated comparison result for one population
// (network or own) at one epoch.
type Summary struct {
	Source ComponentTotals
	Target ComponentTotals
	Head   ComponentTotals
}

// ShortfallFinding names an own validator with a non-maximum component.
type ShortfallFinding struct {
	ValidatorIndex uint64
	Pubkey         string
	Component      string // "source", "target", or "head"
}

// ConsensusNode is the rewards query surface the comparator needs.
type ConsensusNode interface {
	GetRewards(ctx context.Context, epoch uint64, indices []uint64) (beaconapi.Rewards, error)
}

// Comparator runs the ideal-vs-earned comparison.
type Comparator struct {
	node ConsensusNode
}

// New constructs a Comparator.
func New(node ConsensusNode) *Comparator {
	return &Comparator{node: node}
}

// Result bundles the network-wide and own-subset summaries plus any
// own-validator shortfall findings.
type Result struct {
	Network  Summary
	Own      Summary
	Findings []ShortfallFinding
}

// Compare runs the comparison for epoch: one rewards request covering
// networkIndices (all active validators), then a second restricted to
// ownIndices, omitted when the own set is empty. balanceByIndex
// resolves each validator's effective balance to pick its ideal-reward
// bucket; pubkeyByIndex resolves shortfall findings to a pubkey. It is
// a no-op (zero Result, nil error) for epoch < 2 or an empty
// networkIndices set.
func (c *Comparator) Compare(ctx context.Context, epoch uint64, networkIndices, ownIndices []uint64, balanceByIndex map[uint64]uint64, pubkeyByIndex map[uint64]string) (Result, error) {
	if epoch < 2 || len(networkIndices) == 0 {
		return Result{}, nil
	}

	networkRewards, err := c.node.GetRewards(ctx, epoch, networkIndices)
	if err != nil {
		return Result{}, err
	}

	idealByBalance := make(map[uint64]beaconapi.RewardComponent, len(networkRewards.Ideal))
	for _, r := range networkRewards.Ideal {
		idealByBalance[r.EffectiveBalance] = r.Reward
	}

	result := Result{Network: summarize(networkRewards.Earned, idealByBalance, balanceByIndex)}
	if len(ownIndices) == 0 {
		return result, nil
	}

	ownRewards, err := c.node.GetRewards(ctx, epoch, ownIndices)
	if err != nil {
		return Result{}, err
	}
	for _, r := range ownRewards.Ideal {
		idealByBalance[r.EffectiveBalance] = r.Reward
	}

	result.Own = summarize(ownRewards.Earned, idealByBalance, balanceByIndex)

	for _, r := range ownRewards.Earned {
		ideal, ok := idealByBalance[balanceByIndex[r.ValidatorIndex]]
		if !ok {
			continue
		}
		if r.Reward.Source != ideal.Source {
			result.Findings = append(result.Findings, ShortfallFinding{ValidatorIndex: r.ValidatorIndex, Pubkey: pubkeyByIndex[r.ValidatorIndex], Component: "source"})
		}
		if r.Reward.Target != ideal.Target {
			result.Findings = append(result.Findings, ShortfallFinding{ValidatorIndex: r.ValidatorIndex, Pubkey: pubkeyByIndex[r.ValidatorIndex], Component: "target"})
		}
		if r.Reward.Head != ideal.Head {
			result.Findings = append(result.Findings, ShortfallFinding{ValidatorIndex: r.ValidatorIndex, Pubkey: pubkeyByIndex[r.ValidatorIndex], Component: "head"})
		}
	}

	return result, nil
}

func summarize(earned []beaconapi.EarnedReward, idealByBalance map[uint64]beaconapi.RewardComponent, balanceByIndex map[uint64]uint64) Summary {
	var s Summary
	for _, r := range earned {
		ideal, ok := idealByBalance[balanceByIndex[r.ValidatorIndex]]
		if !ok {
			continue
		}
		accumulate(&s.Source, ideal.Source, r.Reward.Source)
		accumulate(&s.Target, ideal.Target, r.Reward.Target)
		accumulate(&s.Head, ideal.Head, r.Reward.Head)
	}
	return s
}

func accumulate(c *ComponentTotals, ideal, earned int64) {
	c.Total++
	c.PossibleSum += ideal
	c.EarnedSum += earned
	if earned == ideal {
		c.MaxCount++
	}
	if earned > 0 {
		c.RewardCount++
	}
	if earned < 0 {
		c.PenaltyCount++
	}
}
