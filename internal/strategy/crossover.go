package strategy

import (
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-runner/internal/types"
)

// Default exit levels as a fraction of entry price.
const (
	defaultStopLossPct = 0.02
	defaultTargetPct   = 0.04
)

func closePrices(series []types.MarketData) []float64 {
	closes := make([]float64, len(series))
	for i, bar := range series {
		closes[i] = bar.Close
	}

	return closes
}

// crossoverSignal turns a fast/slow indicator pair into a directional
// signal on the latest bar. A buy fires when fast crosses above slow
// between the previous and latest bar, a sell when it crosses below. The
// stop and target are placed a fixed percentage away from entry.
func crossoverSignal(series []types.MarketData, symbol types.Symbol, name string, fast, slow []float64, stopPct, targetPct float64, reason string) (optional.Option[types.Signal], error) {
	last := len(series) - 1
	prev := last - 1

	crossedUp := fast[prev] <= slow[prev] && fast[last] > slow[last]
	crossedDown := fast[prev] >= slow[prev] && fast[last] < slow[last]
	if !crossedUp && !crossedDown {
		return optional.None[types.Signal](), nil
	}

	bar := series[last]
	sig := types.Signal{
		Time:     bar.Time,
		Symbol:   symbol.Name,
		Strategy: name,
		Kind:     types.OrderKindMarket,
		Price:    bar.Close,
		Reason:   reason,
	}

	if crossedUp {
		sig.Action = types.SignalActionBuy
		sig.StopLoss = bar.Close * (1 - stopPct)
		sig.Target = optional.Some(bar.Close * (1 + targetPct))
	} else {
		sig.Action = types.SignalActionSell
		sig.StopLoss = bar.Close * (1 + stopPct)
		sig.Target = optional.Some(bar.Close * (1 - targetPct))
	}

	if err := sig.Validate(); err != nil {
		return optional.None[types.Signal](), err
	}

	return optional.Some(sig), nil
}
