package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethzen/valmon/internal/monitor/blocks"
	"github.com/ethzen/valmon/internal/monitor/liveness"
	"github.com/ethzen/valmon/internal/monitor/rewards"
	"github.com/ethzen/valmon/internal/monitor/validatorset"
)

// Messenger is the alert-dispatch capability the engine depends on.
type Messenger interface {
	SendBroadcast(ctx context.Context, message string)
}

// alerter turns structured findings from the (pure) analytical modules
// into messenger calls: every analytical module stays testable against
// plain Finding values, and only this thin dispatcher ever talks to
// the messenger.
type alerter struct {
	messenger Messenger
}

func newAlerter(m Messenger) *alerter {
	return &alerter{messenger: m}
}

func (a *alerter) send(ctx context.Context, msg string) {
	if a.messenger == nil {
		return
	}
	a.messenger.SendBroadcast(ctx, msg)
}

func (a *alerter) futureProposal(ctx context.Context, p blocks.FutureProposal) {
	a.send(ctx, blocks.FormatProposalAlert(p))
}

func (a *alerter) blockFinding(ctx context.Context, f blocks.Finding, horizon string) {
	if f.Missed {
		a.send(ctx, fmt.Sprintf("own validator missed its %s proposal at slot %d", horizon, f.Slot))
		return
	}
	if f.RewardGwei > 0 {
		a.send(ctx, fmt.Sprintf("own validator proposed slot %d (MEV reward %.6f ETH)", f.Slot, float64(f.RewardGwei)/1e9))
		return
	}
	a.send(ctx, fmt.Sprintf("own validator proposed slot %d", f.Slot))
}

func (a *alerter) deadValidator(ctx context.Context, f liveness.Finding) {
	if f.IsPaired {
		a.send(ctx, fmt.Sprintf("validator %d missed attestations in epoch %d and the prior epoch %d (paired miss)", f.Index, f.Epoch, f.PairEpoch))
		return
	}
	a.send(ctx, fmt.Sprintf("validator %d missed its attestation duty in epoch %d", f.Index, f.Epoch))
}

func (a *alerter) newExit(ctx context.Context, index uint64) {
	a.send(ctx, fmt.Sprintf("validator %d has exited", index))
}

func (a *alerter) slashed(ctx context.Context, f validatorset.SlashedFinding) {
	a.send(ctx, fmt.Sprintf("validator %d (%s) is under monitoring as slashed", f.Index, f.Pubkey))
}

func (a *alerter) inclusionShortfall(ctx context.Context, missing []uint64) {
	if len(missing) == 0 {
		return
	}
	a.send(ctx, fmt.Sprintf("%d own validator(s) not optimally attested for the previous slot: %s", len(missing), summarizeIndices(missing)))
}

// rewardShortfalls groups per-component shortfall findings and emits
// one alert per component, each listing up to 5 short pubkeys plus a
// remainder count.
func (a *alerter) rewardShortfalls(ctx context.Context, epoch uint64, findings []rewards.ShortfallFinding) {
	byComponent := make(map[string][]string)
	for _, f := range findings {
		byComponent[f.Component] = append(byComponent[f.Component], shortPubkey(f.Pubkey))
	}
	for _, component := range []string{"source", "target", "head"} {
		pubkeys := byComponent[component]
		if len(pubkeys) == 0 {
			continue
		}
		a.send(ctx, fmt.Sprintf("epoch %d: %d own validator(s) below ideal %s reward: %s", epoch, len(pubkeys), component, summarizeStrings(pubkeys)))
	}
}

func summarizeIndices(indices []uint64) string {
	const max = 5
	strs := make([]string, 0, len(indices))
	for i, idx := range indices {
		if i >= max {
			break
		}
		strs = append(strs, fmt.Sprintf("%d", idx))
	}
	return strings.Join(strs, ", ") + remainderSuffix(len(indices), max)
}

func summarizeStrings(items []string) string {
	const max = 5
	total := len(items)
	if total > max {
		items = items[:max]
	}
	return strings.Join(items, ", ") + remainderSuffix(total, max)
}

func remainderSuffix(total, max int) string {
	if total <= max {
		return ""
	}
	return fmt.Sprintf(" and %d more", total-max)
}

func shortPubkey(pubkey string) string {
	if len(pubkey) <= 10 {
		return pubkey
	}
	return pubkey[:10] + "…"
}
