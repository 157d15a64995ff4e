package types

import "time"

// TradingMode controls whether orders are simulated or routed to a broker.
type TradingMode string

const (
	TradingModePaper TradingMode = "paper"
	TradingModeLive  TradingMode = "live"
)

// TradeRecord is an immutable snapshot of a closed position, written once to
// the trade log and never mutated afterwards.
type TradeRecord struct {
	PositionID  string       `yaml:"position_id" json:"position_id" csv:"position_id"`
	Symbol      string       `yaml:"symbol" json:"symbol" csv:"symbol"`
	Strategy    string       `yaml:"strategy" json:"strategy" csv:"strategy"`
	Side        SignalAction `yaml:"side" json:"side" csv:"side"`
	Quantity    int64        `yaml:"quantity" json:"quantity" csv:"quantity"`
	EntryPrice  float64      `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice   float64      `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	OpenedAt    time.Time    `yaml:"opened_at" json:"opened_at" csv:"opened_at"`
	ClosedAt    time.Time    `yaml:"closed_at" json:"closed_at" csv:"closed_at"`
	ExitReason  ExitReason   `yaml:"exit_reason" json:"exit_reason" csv:"exit_reason"`
	RealizedPnL float64      `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	Mode        TradingMode  `yaml:"mode" json:"mode" csv:"mode"`
}

// NewTradeRecord snapshots a closed position into a trade record. The
// position must already be closed.
func NewTradeRecord(p *Position, mode TradingMode) TradeRecord {
	return TradeRecord{
		PositionID:  p.ID,
		Symbol:      p.Symbol,
		Strategy:    p.Strategy,
		Side:        p.Side,
		Quantity:    p.Quantity,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   p.ExitPrice,
		OpenedAt:    p.OpenedAt,
		ClosedAt:    p.ClosedAt,
		ExitReason:  p.ExitReason,
		RealizedPnL: p.PnLAt(p.ExitPrice),
		Mode:        mode,
	}
}
