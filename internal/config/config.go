// Package config defines the value-typed configuration the monitoring
// engine is built from. It is read once at process start and never
// consulted again by any deeper component.
package config

import "time"

// ConsensusClient tags the beacon node implementation behind the
// configured CL endpoint, selecting a liveness/rewards dispatch strategy.
type ConsensusClient string

const (
	ClientLighthouse ConsensusClient = "lighthouse"
	ClientPrysm      ConsensusClient = "prysm"
	ClientTeku       ConsensusClient = "teku"
	ClientNimbus     ConsensusClient = "nimbus"
	ClientOther      ConsensusClient = "other"
)

// ParseConsensusClient validates a CLI-supplied client tag.
func ParseConsensusClient(s string) (ConsensusClient, bool) {
	switch ConsensusClient(s) {
	case ClientLighthouse, ClientPrysm, ClientTeku, ClientNimbus, ClientOther:
		return ConsensusClient(s), true
	default:
		return "", false
	}
}

// Chain holds the network constants the monitor's arithmetic is defined
// over. These come from the beacon chain's configuration and are fixed
// for the lifetime of a process.
type Chain struct {
	SecondsPerSlot                   uint64
	SlotsPerEpoch                    uint64
	MinPerEpochChurnLimit            uint64
	ChurnLimitQuotient               uint64
	MaxPerEpochActivationChurnLimit  uint64
	SlotForMissedAttestationsProcess uint64
	SlotForRewardsProcess            uint64
	MissedBlockTimeout               time.Duration
}

// SecondsPerEpoch is SecondsPerSlot * SlotsPerEpoch.
func (c Chain) SecondsPerEpoch() uint64 {
	return c.SecondsPerSlot * c.SlotsPerEpoch
}

// MainnetChain is the standard Ethereum mainnet parameter set; the CLI
// always uses it, and no flag or config file replaces it.
var MainnetChain = Chain{
	SecondsPerSlot:                   12,
	SlotsPerEpoch:                    32,
	MinPerEpochChurnLimit:            4,
	ChurnLimitQuotient:               65536,
	MaxPerEpochActivationChurnLimit:  8,
	SlotForMissedAttestationsProcess: 2,
	SlotForRewardsProcess:            4,
	MissedBlockTimeout:               4 * time.Second,
}

// Config is the fully resolved, value-typed configuration handed to the
// engine and every adapter it constructs. Nothing downstream re-reads a
// file or the environment after this is built.
type Config struct {
	Chain Chain

	ConsensusNodeURL string
	ExecutionNodeURL string // optional, empty disables the execution-node adapter
	PubkeysFile      string // optional, empty means an empty OwnKeySet
	ConsensusClient  ConsensusClient

	RelayURLs       map[string]string // name -> base URL
	RelayPayloadURL string            // e.g. "/relay/v1/data/bidtraces/proposer_payload_delivered?slot=%s"

	TelegramToken   string
	TelegramChatID  int64
	CoingeckoAPIKey string

	MetricsAddr string // host:port for the metrics HTTP server
}
