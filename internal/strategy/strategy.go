// Package strategy defines the trading strategy contract and the built-in
// indicator strategies.
package strategy

import (
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-runner/internal/types"
)

// Strategy evaluates a price series and proposes at most one signal.
// Implementations must be stateless across calls so the same series always
// produces the same decision.
type Strategy interface {
	// Name returns the unique strategy identifier used in pair configs.
	Name() string
	// Parameters declares the strategy's tunables for validation and
	// reporting.
	Parameters() map[string]string
	// MinBars is the smallest series length the strategy can evaluate.
	MinBars() int
	// Evaluate inspects the series (oldest first) and returns a signal for
	// the latest bar, or None when there is nothing to do.
	Evaluate(series []types.MarketData, symbol types.Symbol) (optional.Option[types.Signal], error)
}
