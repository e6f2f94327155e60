// Package engine implements the slot-driven main loop: it drives the
// slot clock, refreshes validator-set state at epoch boundaries, and
// invokes every analytical module at its prescribed slot offset. The
// loop is the only mutator of monitor state (bounded caches, tracker
// remembered sets, last-processed-finalized slot, the own-key set).
package engine

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/ethzen/valmon/internal/beaconapi"
	"github.com/ethzen/valmon/internal/config"
	"github.com/ethzen/valmon/internal/epochcache"
	"github.com/ethzen/valmon/internal/keys"
	"github.com/ethzen/valmon/internal/metrics"
	"github.com/ethzen/valmon/internal/monitor/activation"
	"github.com/ethzen/valmon/internal/monitor/attestation"
	"github.com/ethzen/valmon/internal/monitor/blocks"
	"github.com/ethzen/valmon/internal/monitor/liveness"
	"github.com/ethzen/valmon/internal/monitor/rewards"
	"github.com/ethzen/valmon/internal/monitor/validatorset"
	"github.com/ethzen/valmon/internal/slotclock"
)

var log = logrus.WithField("prefix", "engine")

// cacheCapacity bounds the epoch snapshot cache: analyses at epoch E
// may look at snapshots from E, E-1 or E-2.
const cacheCapacity = 3

// PriceOracle is the exchange-rate refresh capability the engine
// depends on; price.Coingecko implements it.
type PriceOracle interface {
	RefreshRate(ctx context.Context, currency string, gauge prometheus.Gauge)
}

// ExecutionNode resolves a produced block's fee recipient, used for an
// informational cross-check log line on own finalized proposals.
type ExecutionNode interface {
	GetBlockFeeRecipient(ctx context.Context, blockHash string) (string, error)
}

// Engine drives the per-slot monitoring loop.
type Engine struct {
	cfg   config.Config
	node  beaconapi.ConsensusNode
	msgr  Messenger
	price PriceOracle
	exec  ExecutionNode
	mx    *metrics.Registry

	alerts *alerter
	cache  *epochcache.BoundedEpochCache

	exitedTracker  *validatorset.ExitedTracker
	slashedTracker *validatorset.SlashedTracker
	estimator      *activation.Estimator
	livenessDet    *liveness.Detector
	rewardsCmp     *rewards.Comparator
	blocksMon      *blocks.Monitor
	attestAnalyzer *attestation.Analyzer

	metricsServer interface{ Start() }

	lastProcessedFinalizedSlot uint64
	firstSlotSeen              bool
	currentEpoch               uint64
	livenessProcessedEpoch     uint64
	livenessProcessedAny       bool
	rewardsProcessedEpoch      uint64
	rewardsProcessedAny        bool
	currentOwnKeys             map[string]struct{}
}

// New constructs an Engine. relay, exec and metricsServer may be nil
// (the MEV side-channel, the execution-side fee-recipient cross-check
// and metrics HTTP serving are all optional).
func New(cfg config.Config, node beaconapi.ConsensusNode, msgr Messenger, priceOracle PriceOracle, exec ExecutionNode, mx *metrics.Registry, relay blocks.RelayClient, metricsServer interface{ Start() }) *Engine {
	return &Engine{
		cfg:   cfg,
		node:  node,
		msgr:  msgr,
		price: priceOracle,
		exec:  exec,
		mx:    mx,

		alerts: newAlerter(msgr),
		cache:  epochcache.New(cacheCapacity),

		exitedTracker:  validatorset.NewExitedTracker(),
		slashedTracker: validatorset.NewSlashedTracker(),
		estimator:      activation.New(cfg.Chain),
		livenessDet:    liveness.New(node),
		rewardsCmp:     rewards.New(node),
		blocksMon:      blocks.New(node, relay, cfg.Chain),
		attestAnalyzer: attestation.New(),

		metricsServer: metricsServer,
	}
}

// Run drives the slot clock until ctx is cancelled. genesisTime is the
// chain's genesis time, as returned by ConsensusNode.GetGenesis.
func (e *Engine) Run(ctx context.Context, genesisTime time.Time) error {
	clock := slotclock.New(ctx, genesisTime, e.cfg.Chain.SecondsPerSlot)

	for {
		select {
		case <-ctx.Done():
			log.Info("context canceled, stopping engine")
			return nil
		case slot, ok := <-clock.C():
			if !ok {
				return nil
			}
			e.processSlot(ctx, slot)
		}
	}
}

func (e *Engine) processSlot(ctx context.Context, slot slotclock.Slot) {
	ctx, span := trace.StartSpan(ctx, "engine.step")
	defer span.End()
	span.AddAttributes(trace.Int64Attribute("slot", slot.Number))

	if slot.Number < 0 {
		log.WithField("seconds_to_genesis", -slot.Number*int64(e.cfg.Chain.SecondsPerSlot)).Info("waiting for genesis")
		return
	}

	slotNum := uint64(slot.Number)
	epoch := slotNum / e.cfg.Chain.SlotsPerEpoch
	slotInEpoch := slotNum % e.cfg.Chain.SlotsPerEpoch
	isNewEpoch := !e.firstSlotSeen || epoch != e.currentEpoch
	e.currentEpoch = epoch

	e.mx.Slot.Set(float64(slotNum))
	e.mx.Epoch.Set(float64(epoch))

	if !e.firstSlotSeen {
		e.lastProcessedFinalizedSlot = slotNum
		e.firstSlotSeen = true
	}

	if isNewEpoch {
		e.onNewEpoch(ctx, epoch)
	}

	if slotInEpoch >= e.cfg.Chain.SlotForMissedAttestationsProcess && (!e.livenessProcessedAny || epoch > e.livenessProcessedEpoch) {
		e.runLiveness(ctx, epoch)
		e.livenessProcessedEpoch = epoch
		e.livenessProcessedAny = true
	}

	if slotInEpoch >= e.cfg.Chain.SlotForRewardsProcess && (!e.rewardsProcessedAny || epoch > e.rewardsProcessedEpoch) {
		e.runRewards(ctx, epoch)
		e.rewardsProcessedEpoch = epoch
		e.rewardsProcessedAny = true
	}

	e.runFutureLookAhead(ctx, epoch, slotNum, isNewEpoch)
	e.runFinalizedReconciliation(ctx)

	timeoutAt := slot.Start.Add(e.cfg.Chain.MissedBlockTimeout)
	if wait := time.Until(timeoutAt); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}

	block, err := e.node.GetPotentialBlock(ctx, slotNum)
	if err != nil {
		log.WithError(err).WithField("slot", slotNum).Warn("unable to fetch block for attestation analysis")
	} else if block != nil {
		e.runAttestationAnalysis(ctx, slotNum, *block, epoch)
	}

	e.runHeadCheck(ctx, slotNum, epoch)

	if e.metricsServer != nil {
		e.metricsServer.Start()
		e.metricsServer = nil // start exactly once
	}
}

func (e *Engine) onNewEpoch(ctx context.Context, epoch uint64) {
	ownKeys, err := keys.Load(e.cfg.PubkeysFile)
	if err != nil {
		log.WithError(err).Error("unable to refresh own validator key set; keeping previous set")
	} else {
		e.currentOwnKeys = ownKeys
	}

	snapshot, err := refreshEpochSnapshot(ctx, e.node, e.currentOwnKeys)
	if err != nil {
		log.WithError(err).WithField("epoch", epoch).Error("unable to refresh validator set snapshot")
		return
	}
	e.cache.Put(epoch, snapshot)

	e.mx.NetworkValidatorsPending.Set(float64(len(snapshot.NetworkPending)))
	e.mx.NetworkValidatorsActive.Set(float64(len(snapshot.NetworkActive)))
	e.mx.OwnValidatorsPending.Set(float64(len(snapshot.OwnPending)))
	e.mx.OwnValidatorsActive.Set(float64(len(snapshot.OwnActive)))

	ownExited, newExits := e.exitedTracker.Process(snapshot.OwnExitedUnslashed, snapshot.OwnWithdrawable, snapshot.Full)
	e.mx.OwnValidatorsExited.Set(float64(len(ownExited)))
	for _, idx := range newExits {
		e.alerts.newExit(ctx, idx)
	}

	networkSlashed, ownSlashed, slashedFindings := e.slashedTracker.Process(
		snapshot.NetworkExitedSlashed, snapshot.NetworkWithdrawable,
		snapshot.OwnExitedSlashed, snapshot.OwnWithdrawable,
		snapshot.Full,
	)
	e.mx.NetworkValidatorsSlashed.Set(float64(len(networkSlashed)))
	e.mx.OwnValidatorsSlashed.Set(float64(len(ownSlashed)))
	for _, f := range slashedFindings {
		if f.Own {
			e.alerts.slashed(ctx, f)
		} else {
			log.WithFields(logrus.Fields{"index": f.Index, "pubkey": f.Pubkey}).Info("network validator newly observed slashed")
		}
	}

	duration, err := e.estimator.EstimateSeconds(uint64(len(snapshot.NetworkActive)), uint64(len(snapshot.NetworkPending)))
	if err != nil {
		log.WithError(err).Warn("unable to estimate activation queue duration")
	} else {
		e.mx.ActivationQueueDurationSeconds.Set(float64(duration))
	}

	if e.price != nil {
		e.price.RefreshRate(ctx, "usd", e.mx.ExchangeRate.WithLabelValues("usd"))
	}
}

func (e *Engine) runLiveness(ctx context.Context, epoch uint64) {
	if epoch < 1 {
		return
	}
	targetEpoch := epoch - 1
	ownActive := e.activeIndicesOwnFor(targetEpoch)

	ownSet := make(map[uint64]struct{}, len(ownActive))
	for _, idx := range ownActive {
		ownSet[idx] = struct{}{}
	}

	findings, err := e.livenessDet.Process(ctx, targetEpoch, ownActive, ownSet)
	if err != nil {
		log.WithError(err).WithField("epoch", targetEpoch).Error("unable to process missed-attestation liveness")
		return
	}
	for _, f := range findings {
		if !f.IsOwn {
			continue
		}
		e.mx.DeadValidators.Inc()
		if f.IsPaired {
			e.mx.PairedMissedEpochs.Inc()
		}
		e.alerts.deadValidator(ctx, f)
	}
}

func (e *Engine) runRewards(ctx context.Context, epoch uint64) {
	if epoch < 2 {
		return
	}
	targetEpoch := epoch - 2
	snapshot := e.snapshotFallback(targetEpoch)
	if snapshot == nil || len(snapshot.NetworkActive) == 0 {
		return
	}

	result, err := e.rewardsCmp.Compare(ctx, targetEpoch, snapshot.NetworkActive, snapshot.OwnActive, snapshot.BalanceByIndex, snapshot.PubkeyByIndex)
	if err != nil {
		log.WithError(err).WithField("epoch", targetEpoch).Error("unable to compare attestation rewards")
		return
	}

	e.exportRewardSummary("network", result.Network)
	e.exportRewardSummary("own", result.Own)
	e.alerts.rewardShortfalls(ctx, targetEpoch, result.Findings)
}

func (e *Engine) exportRewardSummary(population string, s rewards.Summary) {
	for _, c := range []struct {
		name string
		t    rewards.ComponentTotals
	}{{"source", s.Source}, {"target", s.Target}, {"head", s.Head}} {
		e.mx.RewardRate.WithLabelValues(population, c.name).Set(c.t.Rate())
		e.mx.RewardPossibleSum.WithLabelValues(population, c.name).Set(float64(c.t.PossibleSum))
		e.mx.RewardEarnedSum.WithLabelValues(population, c.name).Set(float64(c.t.EarnedSum))
		e.mx.RewardMaxCount.WithLabelValues(population, c.name).Set(float64(c.t.MaxCount))
		e.mx.RewardCount.WithLabelValues(population, c.name, "reward").Set(float64(c.t.RewardCount))
		e.mx.RewardCount.WithLabelValues(population, c.name, "penalty").Set(float64(c.t.PenaltyCount))
	}
}

func (e *Engine) runFutureLookAhead(ctx context.Context, epoch, slotNum uint64, isNewEpoch bool) {
	proposals, err := e.blocksMon.FutureLookAhead(ctx, epoch, slotNum, e.currentOwnKeys)
	if err != nil {
		log.WithError(err).Warn("unable to compute future proposal look-ahead")
		return
	}
	e.mx.FutureProposals.Set(float64(len(proposals)))
	if !isNewEpoch {
		return
	}
	for _, p := range proposals {
		e.alerts.futureProposal(ctx, p)
	}
}

func (e *Engine) runFinalizedReconciliation(ctx context.Context) {
	header, err := e.node.GetHeader(ctx, beaconapi.TermFinalized)
	if err != nil {
		log.WithError(err).Warn("unable to fetch finalized header for finalized reconciliation")
		return
	}

	duties, err := e.mergedProposerDuties(ctx, e.lastProcessedFinalizedSlot+1, header.Slot)
	if err != nil {
		log.WithError(err).Warn("unable to fetch proposer duties for finalized reconciliation")
		return
	}
	newLast, findings, err := e.blocksMon.FinalizedReconciliation(ctx, e.lastProcessedFinalizedSlot, duties, e.currentOwnKeys)
	if err != nil {
		log.WithError(err).Warn("unable to run finalized block reconciliation")
		return
	}
	e.lastProcessedFinalizedSlot = newLast
	for _, f := range findings {
		if f.Missed {
			e.mx.MissedFinalizedProposals.Inc()
		} else if f.RewardGwei > 0 {
			e.mx.BlockRewardEther.Add(float64(f.RewardGwei) / 1e9)
		}
		e.alerts.blockFinding(ctx, f, "finalized")
		if e.exec != nil && !f.Missed && f.BlockHash != "" {
			recipient, err := e.exec.GetBlockFeeRecipient(ctx, f.BlockHash)
			if err != nil {
				log.WithError(err).WithField("slot", f.Slot).Debug("unable to resolve fee recipient from execution node")
			} else {
				log.WithFields(logrus.Fields{"slot": f.Slot, "fee_recipient": recipient}).Info("own finalized block fee recipient")
			}
		}
	}
}

// mergedProposerDuties merges proposer duties for every epoch spanned
// by [fromSlot, toSlot]. The finalized-reconciliation window can cross
// an epoch boundary on catch-up; GetProposerDuties is memoized per
// epoch, so re-requesting an already-fetched epoch is free.
func (e *Engine) mergedProposerDuties(ctx context.Context, fromSlot, toSlot uint64) (beaconapi.ProposerDuties, error) {
	if toSlot < fromSlot {
		return beaconapi.ProposerDuties{}, nil
	}
	var merged beaconapi.ProposerDuties
	for ep := fromSlot / e.cfg.Chain.SlotsPerEpoch; ep <= toSlot/e.cfg.Chain.SlotsPerEpoch; ep++ {
		duties, err := e.node.GetProposerDuties(ctx, ep)
		if err != nil {
			return beaconapi.ProposerDuties{}, err
		}
		merged.Duties = append(merged.Duties, duties.Duties...)
	}
	return merged, nil
}

func (e *Engine) runAttestationAnalysis(ctx context.Context, slotNum uint64, block beaconapi.Block, epoch uint64) {
	prevSlot := slotNum - 1
	prevEpoch := prevSlot / e.cfg.Chain.SlotsPerEpoch

	committees, err := e.node.GetCommitteeDuties(ctx, prevEpoch)
	if err != nil {
		log.WithError(err).WithField("epoch", prevEpoch).Warn("unable to fetch committee duties for attestation analysis")
		return
	}

	ownActive := e.activeIndicesOwnFor(epoch)
	result, err := e.attestAnalyzer.Analyze(committees, block, prevSlot, ownActive)
	if err != nil {
		log.WithError(err).WithField("slot", slotNum).Warn("unable to analyze attestation inclusion")
		return
	}
	if result.ParticipationOK {
		e.mx.AttestationParticipationPct.Set(result.ParticipationPct)
	}
	e.alerts.inclusionShortfall(ctx, result.MissingOwn)
}

func (e *Engine) runHeadCheck(ctx context.Context, slotNum, epoch uint64) {
	duties, err := e.node.GetProposerDuties(ctx, epoch)
	if err != nil {
		log.WithError(err).WithField("epoch", epoch).Warn("unable to fetch proposer duties for head check")
		return
	}
	var proposer string
	for _, d := range duties.Duties {
		if d.Slot == slotNum {
			proposer = d.Pubkey
			break
		}
	}
	if proposer == "" {
		return
	}
	finding, err := e.blocksMon.HeadCheck(ctx, slotNum, proposer, e.currentOwnKeys)
	if err != nil {
		log.WithError(err).WithField("slot", slotNum).Warn("unable to run head missed-block check")
		return
	}
	if finding == nil {
		return
	}
	e.mx.MissedHeadProposals.Inc()
	e.alerts.blockFinding(ctx, *finding, "head")
}

// activeIndicesOwnFor returns the own active-set indices for epoch,
// falling back toward the current epoch if missing from the bounded
// cache.
func (e *Engine) activeIndicesOwnFor(epoch uint64) []uint64 {
	s := e.snapshotFallback(epoch)
	if s == nil {
		return nil
	}
	return s.OwnActive
}

// snapshotFallback looks epoch up in the bounded cache, falling back to
// each subsequent epoch up to the current one if epoch itself isn't
// cached; the rewards comparator's E-2 lookup walks E-2, E-1, E.
func (e *Engine) snapshotFallback(epoch uint64) *epochSnapshot {
	for candidate := epoch; candidate <= e.currentEpoch; candidate++ {
		if v, ok := e.cache.Get(candidate); ok {
			s := v.(epochSnapshot)
			return &s
		}
	}
	return nil
}
