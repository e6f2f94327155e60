// Package relay fans payload-value lookups out across MEV relays.
package relay

import (
	"context"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("prefix", "relay")
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is the RelayClient capability: resolve the MEV payout value a
// relay delivered for a given slot, trying every configured relay
// until one answers.
type Client interface {
	GetPayloadValue(ctx context.Context, slot uint64) (uint64, bool)
}

// FanOut queries every configured relay concurrently and returns the
// value from the first relay that has a record of the slot, rather
// than stopping after the first relay queried regardless of its
// answer.
type FanOut struct {
	relayURLs  map[string]string
	payloadURL string
	http       *http.Client
}

// New constructs a FanOut client. relayURLs maps a relay name to its
// base URL; payloadURL is the path (with a single "%s" slot
// placeholder) appended to each relay's base URL.
func New(relayURLs map[string]string, payloadURL string) *FanOut {
	return &FanOut{
		relayURLs:  relayURLs,
		payloadURL: payloadURL,
		http:       &http.Client{Timeout: 5 * time.Second},
	}
}

type wirePayload struct {
	Value string `json:"value"`
}

// GetPayloadValue queries every relay for slot concurrently and
// returns the first non-empty value found. Every relay is tried before
// giving up; a relay that errors or has no record does not short-circuit
// the others.
func (f *FanOut) GetPayloadValue(ctx context.Context, slot uint64) (uint64, bool) {
	type result struct {
		name  string
		value uint64
		found bool
	}

	results := make([]result, len(f.relayURLs))
	names := make([]string, 0, len(f.relayURLs))
	for name := range f.relayURLs {
		names = append(names, name)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			value, found, err := f.queryOne(ctx, name, slot)
			if err != nil {
				log.WithError(err).WithField("relay", name).Warn("unable to query relay for payload value")
				return nil
			}
			results[i] = result{name: name, value: value, found: found}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.found {
			return r.value, true
		}
	}
	return 0, false
}

func (f *FanOut) queryOne(ctx context.Context, name string, slot uint64) (uint64, bool, error) {
	base, ok := f.relayURLs[name]
	if !ok {
		return 0, false, errors.Errorf("relay: unknown relay %q", name)
	}
	url := base + fmtPayloadPath(f.payloadURL, strconv.FormatUint(slot, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, false, errors.Wrap(err, "relay: build request")
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return 0, false, errors.Wrap(err, "relay: query")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, false, errors.Errorf("relay: status %d", resp.StatusCode)
	}

	var body wirePayload
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, false, errors.Wrap(err, "relay: decode payload")
	}
	if body.Value == "" {
		return 0, false, nil
	}
	value, err := parseWei(body.Value)
	if err != nil {
		return 0, false, errors.Wrap(err, "relay: parse payload value")
	}
	return value, true, nil
}
