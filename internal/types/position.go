package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// PositionStatus is the lifecycle state of a position. Transitions are
// one-directional: a closed position never reopens.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

// ExitReason records why a position was closed. Exactly one reason is
// recorded per closed position.
type ExitReason string

const (
	ExitReasonStoppedOut ExitReason = "stopped_out"
	ExitReasonTargetHit  ExitReason = "target_hit"
	ExitReasonManual     ExitReason = "manual"
	// ExitReasonSessionEnd marks positions force-closed at the end of a
	// backtest chunk so no open exposure carries across chunks.
	ExitReasonSessionEnd ExitReason = "session_end"
)

// Position is one open or closed holding for a (symbol, strategy) pair.
type Position struct {
	ID       string       `yaml:"id" json:"id"`
	Symbol   string       `yaml:"symbol" json:"symbol"`
	Strategy string       `yaml:"strategy" json:"strategy"`
	Side     SignalAction `yaml:"side" json:"side"`
	// Quantity is always a positive whole multiple of the symbol's lot size
	Quantity   int64                    `yaml:"quantity" json:"quantity"`
	EntryPrice float64                  `yaml:"entry_price" json:"entry_price"`
	StopLoss   float64                  `yaml:"stop_loss" json:"stop_loss"`
	Target     optional.Option[float64] `yaml:"target" json:"target"`
	Status     PositionStatus           `yaml:"status" json:"status"`
	OpenedAt   time.Time                `yaml:"opened_at" json:"opened_at"`
	ClosedAt   time.Time                `yaml:"closed_at" json:"closed_at"`
	ExitPrice  float64                  `yaml:"exit_price" json:"exit_price"`
	ExitReason ExitReason               `yaml:"exit_reason" json:"exit_reason"`
}

// Pair returns the position's (symbol, strategy) key.
func (p *Position) Pair() PairKey {
	return NewPairKey(p.Symbol, p.Strategy)
}

// IsOpen reports whether the position is still open.
func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// Notional is the capital deployed at entry (entry price x quantity).
func (p *Position) Notional() float64 {
	notional, _ := decimal.NewFromFloat(p.EntryPrice).
		Mul(decimal.NewFromInt(p.Quantity)).
		Float64()

	return notional
}

// StopTouched reports whether the stop-loss level falls inside the given
// price range for the position's direction.
func (p *Position) StopTouched(low, high float64) bool {
	if p.Side == SignalActionBuy {
		return low <= p.StopLoss
	}

	return high >= p.StopLoss
}

// TargetTouched reports whether the target level falls inside the given
// price range for the position's direction. Positions without a target
// never report a touch.
func (p *Position) TargetTouched(low, high float64) bool {
	if p.Target.IsNone() {
		return false
	}

	target := p.Target.Unwrap()
	if p.Side == SignalActionBuy {
		return high >= target
	}

	return low <= target
}

// PnLAt computes the profit/loss of the position if exited at the given
// price, using decimal arithmetic to avoid float accumulation error.
func (p *Position) PnLAt(price float64) float64 {
	entry := decimal.NewFromFloat(p.EntryPrice)
	exit := decimal.NewFromFloat(price)
	qty := decimal.NewFromInt(p.Quantity)

	var perUnit decimal.Decimal
	if p.Side == SignalActionBuy {
		perUnit = exit.Sub(entry)
	} else {
		perUnit = entry.Sub(exit)
	}

	pnl, _ := perUnit.Mul(qty).Float64()

	return pnl
}

// Close marks the position closed at the given price, time and reason.
// Closing an already-closed position is a no-op.
func (p *Position) Close(price float64, at time.Time, reason ExitReason) {
	if p.Status == PositionStatusClosed {
		return
	}

	p.Status = PositionStatusClosed
	p.ExitPrice = price
	p.ClosedAt = at
	p.ExitReason = reason
}
