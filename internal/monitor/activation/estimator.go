// Package activation estimates how long the activation queue will take
// to drain at the network's current churn rate.
package activation

import (
	"github.com/pkg/errors"
	"github.com/thomaso-mirodin/intmath/u64"

	"github.com/ethzen/valmon/internal/config"
)

// ErrZeroChurn is returned when the computed per-epoch churn limit is
// zero, making a duration estimate undefined.
var ErrZeroChurn = errors.New("activation: churn limit is zero")

// Estimator computes the activation-queue drain duration from the
// network's active/pending validator counts.
type Estimator struct {
	chain config.Chain
}

// New constructs an Estimator for chain's churn-limit constants.
func New(chain config.Chain) *Estimator {
	return &Estimator{chain: chain}
}

// EstimateSeconds returns the estimated number of seconds for the
// activation queue of length nPending to fully drain, given nActive
// currently-active validators.
func (e *Estimator) EstimateSeconds(nActive, nPending uint64) (uint64, error) {
	churn := u64.Min(e.chain.MaxPerEpochActivationChurnLimit, nActive/e.chain.ChurnLimitQuotient)
	if churn == 0 {
		return 0, ErrZeroChurn
	}
	epochs := nPending / churn
	return epochs * e.chain.SecondsPerEpoch(), nil
}
