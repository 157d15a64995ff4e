// Package market provides read access to historical candles, live quotes
// and the broker symbol master.
package market

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-runner/internal/types"
)

// HistoricalSource serves OHLCV candles. Series are returned oldest first.
type HistoricalSource interface {
	// GetRange returns all bars for the symbol with start <= time < end.
	GetRange(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.MarketData, error)
	// GetWindow returns up to bars trailing bars ending at or before end.
	GetWindow(ctx context.Context, symbol string, interval types.Interval, end time.Time, bars int) ([]types.MarketData, error)
	Close() error
}

// QuoteSource serves the last traded price for a symbol.
type QuoteSource interface {
	LTP(ctx context.Context, symbol string) (float64, error)
}
