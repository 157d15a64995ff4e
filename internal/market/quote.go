package market

import (
	"context"

	"github.com/rxtech-lab/argo-runner/internal/clock"
	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// CandleQuote derives the last traded price from the most recent candle.
// Paper trading uses it in place of a broker quote feed.
type CandleQuote struct {
	source   HistoricalSource
	interval types.Interval
	clk      clock.Clock
}

func NewCandleQuote(source HistoricalSource, interval types.Interval, clk clock.Clock) *CandleQuote {
	return &CandleQuote{source: source, interval: interval, clk: clk}
}

// LTP implements QuoteSource using the close of the latest available bar.
func (q *CandleQuote) LTP(ctx context.Context, symbol string) (float64, error) {
	bars, err := q.source.GetWindow(ctx, symbol, q.interval, q.clk.Now(), 1)
	if err != nil {
		return 0, err
	}

	if len(bars) == 0 {
		return 0, errors.Newf(errors.ErrCodeNoDataFound, "no recent bar for %s", symbol)
	}

	return bars[len(bars)-1].Close, nil
}
