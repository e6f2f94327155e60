package beaconapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "beaconapi")

// ErrNoBlock is the typed sentinel for a 404 on a block/header lookup:
// the beacon has no block at the requested identifier. It is not a
// failure, just a negative result.
var ErrNoBlock = errors.New("beaconapi: no block at requested identifier")

// ErrPermanent wraps a 400 response; other non-retryable 4xx statuses
// produce a plain error that does not wrap it.
var ErrPermanent = errors.New("beaconapi: permanent client error")

// retryPolicy controls which status codes are retried and how many
// times. Two policies exist: one treats 404 as a transient node-sync
// race, the other as an authoritative "no block".
type retryPolicy struct {
	retryNotFound bool
	maxAttempts   int
	backoff       time.Duration
}

var policyRetryNotFound = retryPolicy{retryNotFound: true, maxAttempts: 3, backoff: 500 * time.Millisecond}
var policyNoRetryNotFound = retryPolicy{retryNotFound: false, maxAttempts: 3, backoff: 500 * time.Millisecond}

// httpDoer is the minimal surface retryDo needs; satisfied by *http.Client.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// retryDo executes req, retrying on 502/503 (and additionally 404 when
// policy.retryNotFound is set) with a half-second-growing backoff, and
// separately retrying transport-level truncations (io.ErrUnexpectedEOF)
// up to 5 attempts with a fixed 3-second wait.
func retryDo(ctx context.Context, client httpDoer, buildReq func() (*http.Request, error), policy retryPolicy) (*http.Response, error) {
	const transportAttempts = 5
	const transportWait = 3 * time.Second

	var lastErr error
	for t := 0; t < transportAttempts; t++ {
		resp, err := retryStatus(ctx, client, buildReq, policy)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}
		lastErr = err
		if t < transportAttempts-1 {
			select {
			case <-time.After(transportWait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func retryStatus(ctx context.Context, client httpDoer, buildReq func() (*http.Request, error), policy retryPolicy) (*http.Response, error) {
	backoff := policy.backoff
	var lastErr error
	for attempt := 0; attempt < policy.maxAttempts; attempt++ {
		req, err := buildReq()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < policy.maxAttempts-1 {
				time.Sleep(backoff)
				backoff *= 2
			}
			continue
		}
		if resp.StatusCode == http.StatusNotFound {
			if policy.retryNotFound && attempt < policy.maxAttempts-1 {
				resp.Body.Close()
				time.Sleep(backoff)
				backoff *= 2
				continue
			}
			resp.Body.Close()
			return nil, ErrNoBlock
		}
		if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable {
			resp.Body.Close()
			lastErr = errors.Errorf("beaconapi: transient status %d", resp.StatusCode)
			if attempt < policy.maxAttempts-1 {
				time.Sleep(backoff)
				backoff *= 2
			}
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			if resp.StatusCode == http.StatusBadRequest {
				return nil, errors.Wrapf(ErrPermanent, "status %d", resp.StatusCode)
			}
			return nil, errors.Errorf("beaconapi: permanent status %d", resp.StatusCode)
		}
		return resp, nil
	}
	return nil, lastErr
}

func jsonBody(v interface{}) (io.Reader, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "beaconapi: encode request body")
	}
	return buf, nil
}
