package types

import "time"

// Checkpoint records backtest replay progress for one (symbol, strategy)
// pair. Cursor only ever moves forward; a chunk that produced no data still
// advances it so the pair does not re-read the same empty window.
type Checkpoint struct {
	Symbol     string    `json:"symbol"`
	Strategy   string    `json:"strategy"`
	Cursor     time.Time `json:"cursor"`
	TradeCount int       `json:"trade_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Pair returns the checkpoint's (symbol, strategy) key.
func (c Checkpoint) Pair() PairKey {
	return NewPairKey(c.Symbol, c.Strategy)
}
