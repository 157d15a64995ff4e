package strategy

import (
	"fmt"
	"strconv"

	talib "github.com/markcheno/go-talib"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-runner/internal/types"
)

// SMACrossover signals a buy when the fast simple moving average crosses
// above the slow one, and a sell when it crosses below.
type SMACrossover struct {
	fast      int
	slow      int
	stopPct   float64
	targetPct float64
}

func NewSMACrossover(fast, slow int) *SMACrossover {
	return &SMACrossover{
		fast:      fast,
		slow:      slow,
		stopPct:   defaultStopLossPct,
		targetPct: defaultTargetPct,
	}
}

func (s *SMACrossover) Name() string {
	return "sma_crossover"
}

func (s *SMACrossover) Parameters() map[string]string {
	return map[string]string{
		"fast":       strconv.Itoa(s.fast),
		"slow":       strconv.Itoa(s.slow),
		"stop_pct":   fmt.Sprintf("%.4f", s.stopPct),
		"target_pct": fmt.Sprintf("%.4f", s.targetPct),
	}
}

func (s *SMACrossover) MinBars() int {
	// one extra bar so the previous fast/slow relation is defined
	return s.slow + 1
}

func (s *SMACrossover) Evaluate(series []types.MarketData, symbol types.Symbol) (optional.Option[types.Signal], error) {
	closes := closePrices(series)
	fast := talib.Sma(closes, s.fast)
	slow := talib.Sma(closes, s.slow)

	return crossoverSignal(series, symbol, s.Name(), fast, slow, s.stopPct, s.targetPct,
		fmt.Sprintf("sma(%d) crossed sma(%d)", s.fast, s.slow))
}
