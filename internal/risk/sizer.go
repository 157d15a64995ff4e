// Package risk converts validated signals into position sizes under the
// configured risk policy.
package risk

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-runner/internal/config"
	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// Sizer computes order quantities from the risk policy. The risked amount
// per trade is capital x risk percent, and quantities are floored to a
// whole multiple of the symbol's lot size.
type Sizer struct {
	policy config.RiskPolicy
}

func NewSizer(policy config.RiskPolicy) *Sizer {
	return &Sizer{policy: policy}
}

// RiskAmount is the capital put at risk on a single trade.
func (s *Sizer) RiskAmount() float64 {
	amount, _ := decimal.NewFromFloat(s.policy.Capital).
		Mul(decimal.NewFromFloat(s.policy.RiskPerTradePct)).
		Div(decimal.NewFromInt(100)).
		Float64()

	return amount
}

// Quantity sizes a signal against the symbol's lot size. The per-unit risk
// is the distance from entry to stop; the raw quantity riskAmount/perUnit
// is floored to a lot multiple. A floor of zero means the account cannot
// afford one lot at this risk level and the signal is rejected.
func (s *Sizer) Quantity(signal types.Signal, symbol types.Symbol) (int64, error) {
	perUnit := math.Abs(signal.Price - signal.StopLoss)
	if perUnit <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidStopLoss,
			"stop-loss equals entry price %.2f for %s", signal.Price, signal.Symbol)
	}

	raw := s.RiskAmount() / perUnit
	lots := int64(math.Floor(raw / float64(symbol.LotSize)))
	qty := lots * symbol.LotSize

	if qty <= 0 {
		return 0, errors.Newf(errors.ErrCodeInsufficientSizing,
			"risk %.2f buys %.2f units of %s, below lot size %d",
			s.RiskAmount(), raw, symbol.Name, symbol.LotSize)
	}

	return qty, nil
}

// CheckDeployable rejects entries that would push the aggregate capital at
// risk across open positions past the account capital. deployed is the sum
// of qty x |entry - stop| over currently open positions.
func (s *Sizer) CheckDeployable(signal types.Signal, qty int64, deployed float64) error {
	atRisk, _ := decimal.NewFromFloat(math.Abs(signal.Price - signal.StopLoss)).
		Mul(decimal.NewFromInt(qty)).
		Float64()

	if deployed+atRisk > s.policy.Capital {
		return errors.Newf(errors.ErrCodeCapitalExhausted,
			"capital at risk %.2f exceeds free capital %.2f", atRisk, s.policy.Capital-deployed)
	}

	return nil
}
