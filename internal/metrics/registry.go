// Package metrics holds the monitoring daemon's Prometheus registry as
// an explicit, constructed-once capability passed into every component
// that needs to export a gauge or counter. No package in this module
// registers a collector at init() time.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every gauge/counter the engine and its analytical
// modules export. One Registry is constructed in cmd/valmon/main.go and
// threaded down to every constructor that needs it.
type Registry struct {
	reg *prometheus.Registry

	Slot  prometheus.Gauge
	Epoch prometheus.Gauge

	NetworkValidatorsPending prometheus.Gauge
	NetworkValidatorsActive  prometheus.Gauge
	OwnValidatorsPending     prometheus.Gauge
	OwnValidatorsActive      prometheus.Gauge
	OwnValidatorsExited      prometheus.Gauge
	NetworkValidatorsSlashed prometheus.Gauge
	OwnValidatorsSlashed     prometheus.Gauge

	ActivationQueueDurationSeconds prometheus.Gauge

	FutureProposals          prometheus.Gauge
	MissedHeadProposals      prometheus.Counter
	MissedFinalizedProposals prometheus.Counter
	BlockRewardEther         prometheus.Counter

	AttestationParticipationPct prometheus.Gauge

	DeadValidators       prometheus.Counter
	PairedMissedEpochs   prometheus.Counter

	// RewardRate, RewardPossibleSum, RewardEarnedSum and RewardCount
	// are labeled by {population: "network"|"own", component:
	// "source"|"target"|"head"}. Gauges, not monotonic counters: each
	// epoch's comparison replaces the previous aggregate rather than
	// accumulating on top of it, and a penalty-heavy epoch can push a
	// sum negative.
	RewardRate        *prometheus.GaugeVec
	RewardPossibleSum *prometheus.GaugeVec
	RewardEarnedSum   *prometheus.GaugeVec
	RewardMaxCount    *prometheus.GaugeVec
	RewardCount       *prometheus.GaugeVec // labeled additionally by outcome: "reward"|"penalty"

	ExchangeRate *prometheus.GaugeVec // labeled by currency
}

// New constructs a Registry and registers every collector against a
// fresh prometheus.Registry (not the global DefaultRegisterer, so tests
// can construct independent Registries without collisions).
func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,

		Slot:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "valmon_slot", Help: "Current slot number."}),
		Epoch: prometheus.NewGauge(prometheus.GaugeOpts{Name: "valmon_epoch", Help: "Current epoch number."}),

		NetworkValidatorsPending: prometheus.NewGauge(prometheus.GaugeOpts{Name: "network_validators_pending", Help: "Network-wide validators in pending_queued."}),
		NetworkValidatorsActive:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "network_validators_active", Help: "Network-wide validators in an active status."}),
		OwnValidatorsPending:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "own_validators_pending", Help: "Own validators in pending_queued."}),
		OwnValidatorsActive:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "own_validators_active", Help: "Own validators in an active status."}),
		OwnValidatorsExited:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "own_validators_exited", Help: "Own validators exited (unslashed or withdrawable-unslashed)."}),
		NetworkValidatorsSlashed: prometheus.NewGauge(prometheus.GaugeOpts{Name: "network_validators_slashed", Help: "Network-wide validators slashed."}),
		OwnValidatorsSlashed:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "own_validators_slashed", Help: "Own validators slashed."}),

		ActivationQueueDurationSeconds: prometheus.NewGauge(prometheus.GaugeOpts{Name: "activation_queue_duration_seconds", Help: "Estimated time for the activation queue to drain."}),

		FutureProposals:          prometheus.NewGauge(prometheus.GaugeOpts{Name: "future_proposals", Help: "Own proposals due in the current or next epoch."}),
		MissedHeadProposals:      prometheus.NewCounter(prometheus.CounterOpts{Name: "n_missed_head_proposals", Help: "Own proposals observed missing at head."}),
		MissedFinalizedProposals: prometheus.NewCounter(prometheus.CounterOpts{Name: "n_missed_finalized_proposals", Help: "Own proposals confirmed missing once finalized."}),
		BlockRewardEther:         prometheus.NewCounter(prometheus.CounterOpts{Name: "block_reward_ether_total", Help: "Cumulative MEV reward credited to own proposals, in ether."}),

		AttestationParticipationPct: prometheus.NewGauge(prometheus.GaugeOpts{Name: "own_attestation_participation_pct", Help: "Percentage of own assigned validators included in the previous slot's attestations."}),

		DeadValidators:     prometheus.NewCounter(prometheus.CounterOpts{Name: "n_dead_validators", Help: "Own validators reported not-live in an epoch."}),
		PairedMissedEpochs: prometheus.NewCounter(prometheus.CounterOpts{Name: "n_paired_missed_attestations", Help: "Own validators dead in two consecutive epochs."}),

		RewardRate:        prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "reward_max_rate", Help: "Fraction of validators achieving the ideal reward per component."}, []string{"population", "component"}),
		RewardPossibleSum: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "reward_possible_sum", Help: "Sum of ideal reward per component."}, []string{"population", "component"}),
		RewardEarnedSum:   prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "reward_earned_sum", Help: "Sum of earned reward per component."}, []string{"population", "component"}),
		RewardMaxCount:    prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "reward_max_count", Help: "Validators achieving the ideal reward per component."}, []string{"population", "component"}),
		RewardCount:       prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "reward_outcome_count", Help: "Validators rewarded or penalized per component."}, []string{"population", "component", "outcome"}),

		ExchangeRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "eth_exchange_rate", Help: "ETH exchange rate by currency."}, []string{"currency"}),
	}

	reg.MustRegister(
		m.Slot, m.Epoch,
		m.NetworkValidatorsPending, m.NetworkValidatorsActive,
		m.OwnValidatorsPending, m.OwnValidatorsActive, m.OwnValidatorsExited,
		m.NetworkValidatorsSlashed, m.OwnValidatorsSlashed,
		m.ActivationQueueDurationSeconds,
		m.FutureProposals, m.MissedHeadProposals, m.MissedFinalizedProposals, m.BlockRewardEther,
		m.AttestationParticipationPct,
		m.DeadValidators, m.PairedMissedEpochs,
		m.RewardRate, m.RewardPossibleSum, m.RewardEarnedSum, m.RewardMaxCount, m.RewardCount,
		m.ExchangeRate,
	)
	return m
}

// Gatherer exposes the underlying prometheus.Registry for the HTTP
// server to serve from.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}
