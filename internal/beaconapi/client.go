// Package beaconapi implements the ConsensusNode HTTP client: genesis,
// headers, blocks, proposer duties, validator set, committees, rewards
// and liveness, against the wire shapes a beacon node's REST API exposes.
package beaconapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/ethzen/valmon/internal/config"
)

// ConsensusNode is the interface the engine and analytical modules
// depend on; Client is its concrete HTTP implementation.
type ConsensusNode interface {
	GetGenesis(ctx context.Context) (time.Time, error)
	GetHeader(ctx context.Context, id interface{}) (Header, error)
	GetBlock(ctx context.Context, slot uint64) (Block, error)
	GetPotentialBlock(ctx context.Context, slot uint64) (*Block, error)
	GetProposerDuties(ctx context.Context, epoch uint64) (ProposerDuties, error)
	GetValidatorSetSnapshot(ctx context.Context) (ValidatorSetSnapshot, error)
	GetCommitteeDuties(ctx context.Context, epoch uint64) (CommitteeDuties, error)
	GetRewards(ctx context.Context, epoch uint64, indices []uint64) (Rewards, error)
	GetValidatorsLiveness(ctx context.Context, epoch uint64, indices []uint64) (map[uint64]bool, error)
}

// Client is the HTTP-backed ConsensusNode.
type Client struct {
	baseURL  string
	client   config.ConsensusClient
	liveness livenessStrategy
	http     *http.Client

	proposerDuties *cache.Cache // epoch -> ProposerDuties, unbounded for the run

	committeesMu    sync.Mutex
	committeesEpoch uint64
	committeesVal   CommitteeDuties
	committeesSet   bool

	firstRewardsCall  sync.Once
	firstLivenessCall sync.Once
}

// New constructs a Client against baseURL, tagged with the given
// ConsensusClient implementation variant (selects liveness/rewards
// dispatch strategy).
func New(baseURL string, client config.ConsensusClient) *Client {
	return &Client{
		baseURL:        baseURL,
		client:         client,
		liveness:       livenessStrategyFor(client),
		http:           &http.Client{Timeout: 10 * time.Second},
		proposerDuties: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

type wireGenesis struct {
	Data struct {
		GenesisTime string `json:"genesis_time"`
	} `json:"data"`
}

// GetGenesis returns the chain's genesis time.
func (c *Client) GetGenesis(ctx context.Context) (time.Time, error) {
	resp, err := retryDo(ctx, c.http, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.url("/eth/v1/beacon/genesis"), nil)
	}, policyRetryNotFound)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "beaconapi: get genesis")
	}
	defer resp.Body.Close()

	var g wireGenesis
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return time.Time{}, errors.Wrap(err, "beaconapi: decode genesis")
	}
	secs, err := strconv.ParseInt(g.Data.GenesisTime, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "beaconapi: invalid genesis_time")
	}
	return time.Unix(secs, 0), nil
}

type wireHeader struct {
	Data struct {
		Header struct {
			Message struct {
				Slot string `json:"slot"`
			} `json:"message"`
		} `json:"header"`
	} `json:"data"`
}

// GetHeader fetches the header for a slot number or special identifier
// (genesis/finalized/head). A missing block is ErrNoBlock.
func (c *Client) GetHeader(ctx context.Context, id interface{}) (Header, error) {
	resp, err := retryDo(ctx, c.http, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.url(fmt.Sprintf("/eth/v1/beacon/headers/%v", id)), nil)
	}, policyNoRetryNotFound)
	if err != nil {
		return Header{}, err
	}
	defer resp.Body.Close()

	var h wireHeader
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Header{}, errors.Wrap(err, "beaconapi: decode header")
	}
	slot, err := strconv.ParseUint(h.Data.Header.Message.Slot, 10, 64)
	if err != nil {
		return Header{}, errors.Wrap(err, "beaconapi: invalid header slot")
	}
	return Header{Slot: slot}, nil
}

type wireBlock struct {
	Data struct {
		Message struct {
			Slot          string `json:"slot"`
			ProposerIndex string `json:"proposer_index"`
			Body          struct {
				Attestations []struct {
					AggregationBits string `json:"aggregation_bits"`
					Data            struct {
						Slot  string `json:"slot"`
						Index string `json:"index"`
					} `json:"data"`
				} `json:"attestations"`
				ExecutionPayload struct {
					FeeRecipient string `json:"fee_recipient"`
					BlockHash    string `json:"block_hash"`
				} `json:"execution_payload"`
			} `json:"body"`
		} `json:"message"`
	} `json:"data"`
}

// GetBlock fetches the block for slot. A missing block is ErrNoBlock.
func (c *Client) GetBlock(ctx context.Context, slot uint64) (Block, error) {
	resp, err := retryDo(ctx, c.http, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.url(fmt.Sprintf("/eth/v2/beacon/blocks/%d", slot)), nil)
	}, policyNoRetryNotFound)
	if err != nil {
		return Block{}, err
	}
	defer resp.Body.Close()

	var w wireBlock
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return Block{}, errors.Wrap(err, "beaconapi: decode block")
	}

	msg := w.Data.Message
	blockSlot, err := strconv.ParseUint(msg.Slot, 10, 64)
	if err != nil {
		return Block{}, errors.Wrap(err, "beaconapi: invalid block slot")
	}
	proposerIdx, err := strconv.ParseUint(msg.ProposerIndex, 10, 64)
	if err != nil {
		return Block{}, errors.Wrap(err, "beaconapi: invalid proposer_index")
	}

	atts := make([]Attestation, 0, len(msg.Body.Attestations))
	for _, a := range msg.Body.Attestations {
		attSlot, err := strconv.ParseUint(a.Data.Slot, 10, 64)
		if err != nil {
			return Block{}, errors.Wrap(err, "beaconapi: invalid attestation slot")
		}
		attIdx, err := strconv.ParseUint(a.Data.Index, 10, 64)
		if err != nil {
			return Block{}, errors.Wrap(err, "beaconapi: invalid attestation index")
		}
		atts = append(atts, Attestation{
			AggregationBitsHex: a.AggregationBits,
			Data:               AttestationData{Slot: attSlot, CommitteeIndex: attIdx},
		})
	}

	return Block{
		Slot:          blockSlot,
		ProposerIndex: proposerIdx,
		Attestations:  atts,
		ExecutionPayload: ExecutionPayloadSummary{
			FeeRecipient: msg.Body.ExecutionPayload.FeeRecipient,
			BlockHash:    msg.Body.ExecutionPayload.BlockHash,
		},
	}, nil
}

// GetPotentialBlock returns the block for slot, or nil if none exists
// (orphaned or simply absent) rather than propagating ErrNoBlock.
func (c *Client) GetPotentialBlock(ctx context.Context, slot uint64) (*Block, error) {
	b, err := c.GetBlock(ctx, slot)
	if errors.Is(err, ErrNoBlock) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

type wireProposerDuties struct {
	DependentRoot string `json:"dependent_root"`
	Data          []struct {
		Pubkey         string `json:"pubkey"`
		ValidatorIndex string `json:"validator_index"`
		Slot           string `json:"slot"`
	} `json:"data"`
}

// GetProposerDuties returns the proposer schedule for epoch, memoized
// for the lifetime of the process (proposer duties are stable once
// finalized).
func (c *Client) GetProposerDuties(ctx context.Context, epoch uint64) (ProposerDuties, error) {
	key := strconv.FormatUint(epoch, 10)
	if v, ok := c.proposerDuties.Get(key); ok {
		return v.(ProposerDuties), nil
	}

	resp, err := retryDo(ctx, c.http, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.url(fmt.Sprintf("/eth/v1/validator/duties/proposer/%d", epoch)), nil)
	}, policyRetryNotFound)
	if err != nil {
		return ProposerDuties{}, errors.Wrap(err, "beaconapi: get proposer duties")
	}
	defer resp.Body.Close()

	var w wireProposerDuties
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return ProposerDuties{}, errors.Wrap(err, "beaconapi: decode proposer duties")
	}

	duties := make([]ProposerDuty, 0, len(w.Data))
	for _, d := range w.Data {
		idx, err := strconv.ParseUint(d.ValidatorIndex, 10, 64)
		if err != nil {
			return ProposerDuties{}, errors.Wrap(err, "beaconapi: invalid validator_index")
		}
		slot, err := strconv.ParseUint(d.Slot, 10, 64)
		if err != nil {
			return ProposerDuties{}, errors.Wrap(err, "beaconapi: invalid duty slot")
		}
		duties = append(duties, ProposerDuty{Pubkey: d.Pubkey, ValidatorIndex: idx, Slot: slot})
	}

	out := ProposerDuties{DependentRoot: w.DependentRoot, Duties: duties}
	c.proposerDuties.Set(key, out, cache.NoExpiration)
	return out, nil
}

type wireValidators struct {
	Data []struct {
		Index     string `json:"index"`
		Status    string `json:"status"`
		Validator struct {
			Pubkey           string `json:"pubkey"`
			EffectiveBalance string `json:"effective_balance"`
			Slashed          bool   `json:"slashed"`
		} `json:"validator"`
	} `json:"data"`
}

// GetValidatorSetSnapshot returns the full head validator set,
// partitioned by status.
func (c *Client) GetValidatorSetSnapshot(ctx context.Context) (ValidatorSetSnapshot, error) {
	resp, err := retryDo(ctx, c.http, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.url("/eth/v1/beacon/states/head/validators"), nil)
	}, policyRetryNotFound)
	if err != nil {
		return ValidatorSetSnapshot{}, errors.Wrap(err, "beaconapi: get validator set")
	}
	defer resp.Body.Close()

	var w wireValidators
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return ValidatorSetSnapshot{}, errors.Wrap(err, "beaconapi: decode validator set")
	}

	snapshot := ValidatorSetSnapshot{ByStatus: make(map[StatusType]map[uint64]Validator)}
	for _, item := range w.Data {
		idx, err := strconv.ParseUint(item.Index, 10, 64)
		if err != nil {
			return ValidatorSetSnapshot{}, errors.Wrap(err, "beaconapi: invalid validator index")
		}
		balance, err := strconv.ParseUint(item.Validator.EffectiveBalance, 10, 64)
		if err != nil {
			return ValidatorSetSnapshot{}, errors.Wrap(err, "beaconapi: invalid effective_balance")
		}
		status := StatusType(item.Status)
		if snapshot.ByStatus[status] == nil {
			snapshot.ByStatus[status] = make(map[uint64]Validator)
		}
		snapshot.ByStatus[status][idx] = Validator{
			Index:            idx,
			Status:           status,
			Pubkey:           item.Validator.Pubkey,
			EffectiveBalance: balance,
			Slashed:          item.Validator.Slashed,
		}
	}
	return snapshot, nil
}

type wireCommittees struct {
	Data []struct {
		Index      string   `json:"index"`
		Slot       string   `json:"slot"`
		Validators []string `json:"validators"`
	} `json:"data"`
}

// GetCommitteeDuties returns slot -> committee index -> validator
// indices for epoch. Only the single most recently requested epoch is
// cached, since committees at head are only stable within an epoch.
func (c *Client) GetCommitteeDuties(ctx context.Context, epoch uint64) (CommitteeDuties, error) {
	c.committeesMu.Lock()
	if c.committeesSet && c.committeesEpoch == epoch {
		v := c.committeesVal
		c.committeesMu.Unlock()
		return v, nil
	}
	c.committeesMu.Unlock()

	resp, err := retryDo(ctx, c.http, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, c.url("/eth/v1/beacon/states/head/committees"), nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("epoch", strconv.FormatUint(epoch, 10))
		req.URL.RawQuery = q.Encode()
		return req, nil
	}, policyRetryNotFound)
	if err != nil {
		return nil, errors.Wrap(err, "beaconapi: get committees")
	}
	defer resp.Body.Close()

	var w wireCommittees
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, errors.Wrap(err, "beaconapi: decode committees")
	}

	out := make(CommitteeDuties)
	for _, item := range w.Data {
		slot, err := strconv.ParseUint(item.Slot, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "beaconapi: invalid committee slot")
		}
		idx, err := strconv.ParseUint(item.Index, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "beaconapi: invalid committee index")
		}
		validators := make([]uint64, 0, len(item.Validators))
		for _, v := range item.Validators {
			vi, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, errors.Wrap(err, "beaconapi: invalid committee validator index")
			}
			validators = append(validators, vi)
		}
		if out[slot] == nil {
			out[slot] = make(map[uint64][]uint64)
		}
		out[slot][idx] = validators
	}

	c.committeesMu.Lock()
	c.committeesEpoch = epoch
	c.committeesVal = out
	c.committeesSet = true
	c.committeesMu.Unlock()

	return out, nil
}

type wireRewards struct {
	Data struct {
		IdealRewards []struct {
			EffectiveBalance string `json:"effective_balance"`
			Source           string `json:"source"`
			Target           string `json:"target"`
			Head             string `json:"head"`
		} `json:"ideal_rewards"`
		TotalRewards []struct {
			ValidatorIndex string `json:"validator_index"`
			Source         string `json:"source"`
			Target         string `json:"target"`
			Head           string `json:"head"`
		} `json:"total_rewards"`
	} `json:"data"`
}

// GetRewards returns network-wide attestation rewards for epoch,
// restricted to indices (empty means "all"). Prysm and Nimbus don't
// implement this endpoint; for those a one-shot warning is logged and
// an empty result returned.
func (c *Client) GetRewards(ctx context.Context, epoch uint64, indices []uint64) (Rewards, error) {
	if c.client == config.ClientPrysm || c.client == config.ClientNimbus {
		c.firstRewardsCall.Do(func() {
			log.Warn("configured CL client does not implement the attestation rewards endpoint")
		})
		return Rewards{}, nil
	}

	body := make([]string, 0, len(indices))
	for _, idx := range indices {
		body = append(body, strconv.FormatUint(idx, 10))
	}

	resp, err := retryDo(ctx, c.http, func() (*http.Request, error) {
		return postJSON(c.url(fmt.Sprintf("/eth/v1/beacon/rewards/attestations/%d", epoch)), body)
	}, policyRetryNotFound)
	if err != nil {
		if errors.Is(err, ErrPermanent) {
			log.WithField("epoch", epoch).Warn("rewards request rejected (epoch too old, or wrong --cl-client); returning empty data")
			return Rewards{}, nil
		}
		return Rewards{}, errors.Wrap(err, "beaconapi: get rewards")
	}
	defer resp.Body.Close()

	var w wireRewards
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return Rewards{}, errors.Wrap(err, "beaconapi: decode rewards")
	}

	ideal := make([]IdealReward, 0, len(w.Data.IdealRewards))
	for _, r := range w.Data.IdealRewards {
		bal, err := strconv.ParseUint(r.EffectiveBalance, 10, 64)
		if err != nil {
			return Rewards{}, errors.Wrap(err, "beaconapi: invalid ideal reward effective_balance")
		}
		comp, err := parseRewardComponent(r.Source, r.Target, r.Head)
		if err != nil {
			return Rewards{}, err
		}
		ideal = append(ideal, IdealReward{EffectiveBalance: bal, Reward: comp})
	}

	earned := make([]EarnedReward, 0, len(w.Data.TotalRewards))
	for _, r := range w.Data.TotalRewards {
		idx, err := strconv.ParseUint(r.ValidatorIndex, 10, 64)
		if err != nil {
			return Rewards{}, errors.Wrap(err, "beaconapi: invalid earned reward validator_index")
		}
		comp, err := parseRewardComponent(r.Source, r.Target, r.Head)
		if err != nil {
			return Rewards{}, err
		}
		earned = append(earned, EarnedReward{ValidatorIndex: idx, Reward: comp})
	}

	return Rewards{Ideal: ideal, Earned: earned}, nil
}

func parseRewardComponent(source, target, head string) (RewardComponent, error) {
	s, err := strconv.ParseInt(source, 10, 64)
	if err != nil {
		return RewardComponent{}, errors.Wrap(err, "beaconapi: invalid source reward")
	}
	t, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return RewardComponent{}, errors.Wrap(err, "beaconapi: invalid target reward")
	}
	h, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return RewardComponent{}, errors.Wrap(err, "beaconapi: invalid head reward")
	}
	return RewardComponent{Source: s, Target: t, Head: h}, nil
}
