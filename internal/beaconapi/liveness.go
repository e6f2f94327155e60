package beaconapi

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ethzen/valmon/internal/config"
)

// livenessStrategy builds the liveness request for one consensus-client
// implementation's wire shape. The four variants are selected once at
// Client construction time; Nimbus has no strategy at all (nil), since
// its endpoint does not exist and the response is synthesized instead.
type livenessStrategy interface {
	buildRequest(baseURL string, epoch uint64, indices []uint64) (*http.Request, error)
}

func livenessStrategyFor(client config.ConsensusClient) livenessStrategy {
	switch client {
	case config.ClientNimbus:
		return nil
	case config.ClientLighthouse:
		return lighthouseLiveness{}
	case config.ClientTeku:
		return tekuLiveness{}
	default: // Prysm and "other" share the default wire shape
		return defaultLiveness{}
	}
}

// GetValidatorsLiveness reports whether each of indices was seen live
// during epoch, dispatching to the strategy selected by the configured
// ConsensusClient tag. Nimbus has no liveness endpoint at all: every
// queried validator is synthesized as live.
func (c *Client) GetValidatorsLiveness(ctx context.Context, epoch uint64, indices []uint64) (map[uint64]bool, error) {
	if c.liveness == nil {
		c.firstLivenessCall.Do(func() {
			log.Warn("configured CL client has no liveness endpoint; treating all validators as live")
		})
		return allLive(indices), nil
	}

	resp, err := retryDo(ctx, c.http, func() (*http.Request, error) {
		return c.liveness.buildRequest(c.baseURL, epoch, indices)
	}, policyRetryNotFound)
	if err != nil {
		if errors.Is(err, ErrPermanent) {
			log.WithField("epoch", epoch).Warn("liveness request rejected (epoch too old, or wrong --cl-client); assuming all live")
			return allLive(indices), nil
		}
		return nil, errors.Wrap(err, "beaconapi: get validators liveness")
	}
	defer resp.Body.Close()

	var w struct {
		Data []struct {
			Index  string `json:"index"`
			IsLive bool   `json:"is_live"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, errors.Wrap(err, "beaconapi: decode liveness response")
	}

	out := make(map[uint64]bool, len(w.Data))
	for _, item := range w.Data {
		idx, err := strconv.ParseUint(item.Index, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "beaconapi: invalid liveness index")
		}
		out[idx] = item.IsLive
	}
	return out, nil
}

func allLive(indices []uint64) map[uint64]bool {
	out := make(map[uint64]bool, len(indices))
	for _, idx := range indices {
		out[idx] = true
	}
	return out
}

func sortedIndices(indices []uint64) []uint64 {
	sorted := append([]uint64{}, indices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}

func sortedStrings(indices []uint64) []string {
	sorted := sortedIndices(indices)
	out := make([]string, len(sorted))
	for i, v := range sorted {
		out[i] = strconv.FormatUint(v, 10)
	}
	return out
}

func postJSON(url string, body interface{}) (*http.Request, error) {
	r, err := jsonBody(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// defaultLiveness is the default/Prysm variant: POST a list of
// decimal-string indices to /eth/v1/validator/liveness/{epoch}.
type defaultLiveness struct{}

func (defaultLiveness) buildRequest(baseURL string, epoch uint64, indices []uint64) (*http.Request, error) {
	return postJSON(fmt.Sprintf("%s/eth/v1/validator/liveness/%d", baseURL, epoch), sortedStrings(indices))
}

// lighthouseLiveness POSTs {epoch, indices} (indices as integers) to
// /lighthouse/liveness.
type lighthouseLiveness struct{}

func (lighthouseLiveness) buildRequest(baseURL string, epoch uint64, indices []uint64) (*http.Request, error) {
	return postJSON(baseURL+"/lighthouse/liveness", struct {
		Epoch   uint64   `json:"epoch"`
		Indices []uint64 `json:"indices"`
	}{Epoch: epoch, Indices: sortedIndices(indices)})
}

// tekuLiveness POSTs {indices} to /eth/v1/validator/liveness/{epoch}.
type tekuLiveness struct{}

func (tekuLiveness) buildRequest(baseURL string, epoch uint64, indices []uint64) (*http.Request, error) {
	return postJSON(fmt.Sprintf("%s/eth/v1/validator/liveness/%d", baseURL, epoch), struct {
		Indices []uint64 `json:"indices"`
	}{Indices: sortedIndices(indices)})
}
