// Package price implements the exchange-rate oracle adapter. Failures
// here are logged and swallowed, never propagated to the caller.
package price

import (
	"context"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "price")
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const baseURL = "https://api.coingecko.com/api/v3/simple/price?ids=ethereum"

// Oracle is the PriceOracle capability: refresh a currency's exchange
// rate gauge. It never returns an error; all failures are logged.
type Oracle interface {
	RefreshRate(ctx context.Context, currency string, gauge prometheus.Gauge)
}

// Coingecko is the HTTP-backed Oracle implementation.
type Coingecko struct {
	apiKey string
	http   *http.Client
}

// New constructs a Coingecko oracle using apiKey for the x-cg-api-key
// header.
func New(apiKey string) *Coingecko {
	return &Coingecko{apiKey: apiKey, http: &http.Client{Timeout: 5 * time.Second}}
}

// RefreshRate fetches ETH's exchange rate in currency and sets gauge.
// Any error (network, decode, missing field) is logged and swallowed.
func (c *Coingecko) RefreshRate(ctx context.Context, currency string, gauge prometheus.Gauge) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"&vs_currencies="+currency, nil)
	if err != nil {
		log.WithError(err).WithField("currency", currency).Warn("unable to build exchange rate request")
		return
	}
	req.Header.Set("x-cg-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).WithField("currency", currency).Warn("unable to determine ETH exchange rate")
		return
	}
	defer resp.Body.Close()

	var body struct {
		Ethereum map[string]float64 `json:"ethereum"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.WithError(err).WithField("currency", currency).Warn("unable to determine ETH exchange rate")
		return
	}

	rate, ok := body.Ethereum[currency]
	if !ok {
		log.WithField("currency", currency).Warn("unable to determine ETH exchange rate")
		return
	}
	gauge.Set(rate)
}
