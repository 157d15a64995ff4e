package strategy

import (
	"fmt"
	"strconv"

	talib "github.com/markcheno/go-talib"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-runner/internal/types"
)

// EMACrossover signals a buy when the fast exponential moving average
// crosses above the slow one, and a sell when it crosses below.
type EMACrossover struct {
	fast      int
	slow      int
	stopPct   float64
	targetPct float64
}

func NewEMACrossover(fast, slow int) *EMACrossover {
	return &EMACrossover{
		fast:      fast,
		slow:      slow,
		stopPct:   defaultStopLossPct,
		targetPct: defaultTargetPct,
	}
}

func (s *EMACrossover) Name() string {
	return "ema_crossover"
}

func (s *EMACrossover) Parameters() map[string]string {
	return map[string]string{
		"fast":       strconv.Itoa(s.fast),
		"slow":       strconv.Itoa(s.slow),
		"stop_pct":   fmt.Sprintf("%.4f", s.stopPct),
		"target_pct": fmt.Sprintf("%.4f", s.targetPct),
	}
}

func (s *EMACrossover) MinBars() int {
	return s.slow + 1
}

func (s *EMACrossover) Evaluate(series []types.MarketData, symbol types.Symbol) (optional.Option[types.Signal], error) {
	closes := closePrices(series)
	fast := talib.Ema(closes, s.fast)
	slow := talib.Ema(closes, s.slow)

	return crossoverSignal(series, symbol, s.Name(), fast, slow, s.stopPct, s.targetPct,
		fmt.Sprintf("ema(%d) crossed ema(%d)", s.fast, s.slow))
}
