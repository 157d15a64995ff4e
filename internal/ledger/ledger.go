// Package ledger tracks open positions and their exits for every
// (symbol, strategy) pair.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-runner/internal/logger"
	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// TradeWriter receives the immutable record of every closed position.
type TradeWriter interface {
	Write(record types.TradeRecord) error
}

// Ledger is the single source of truth for open positions. All mutations
// for a given symbol are serialized through a per-symbol lock so a
// stop-loss exit can never race a manual close on the same instrument.
type Ledger struct {
	mu      sync.Mutex
	symLock map[string]*sync.Mutex

	stateMu   sync.RWMutex
	open      map[types.PairKey]*types.Position
	realized  decimal.Decimal
	mode      types.TradingMode
	writer    TradeWriter
	tradeSeen int
	log       *logger.Logger
}

func NewLedger(mode types.TradingMode, writer TradeWriter, log *logger.Logger) *Ledger {
	return &Ledger{
		symLock:  make(map[string]*sync.Mutex),
		open:     make(map[types.PairKey]*types.Position),
		realized: decimal.Zero,
		mode:     mode,
		writer:   writer,
		log:      log.Named("ledger"),
	}
}

// lockSymbol returns the mutex serializing all writes for one symbol.
func (l *Ledger) lockSymbol(symbol string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.symLock[symbol]
	if !ok {
		m = &sync.Mutex{}
		l.symLock[symbol] = m
	}

	return m
}

// Open creates a position from a sized signal. A pair can hold at most one
// open position at a time.
func (l *Ledger) Open(signal types.Signal, qty int64, at time.Time) (*types.Position, error) {
	m := l.lockSymbol(signal.Symbol)
	m.Lock()
	defer m.Unlock()

	pair := types.NewPairKey(signal.Symbol, signal.Strategy)

	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	if _, ok := l.open[pair]; ok {
		return nil, errors.Newf(errors.ErrCodePositionAlreadyOpen,
			"pair %s already holds an open position", pair)
	}

	pos := &types.Position{
		ID:         uuid.New().String(),
		Symbol:     signal.Symbol,
		Strategy:   signal.Strategy,
		Side:       signal.Action,
		Quantity:   qty,
		EntryPrice: signal.Price,
		StopLoss:   signal.StopLoss,
		Target:     signal.Target,
		Status:     types.PositionStatusOpen,
		OpenedAt:   at,
	}
	l.open[pair] = pos

	return pos, nil
}

// MarkBar checks every open position on the symbol against a full bar.
// When both the stop and the target fall inside the bar's range the stop
// wins: intrabar order is unknowable, so the worse outcome is assumed.
// Returns the positions closed by this bar.
func (l *Ledger) MarkBar(bar types.MarketData) []*types.Position {
	m := l.lockSymbol(bar.Symbol)
	m.Lock()
	defer m.Unlock()

	var closed []*types.Position
	for _, pos := range l.openForSymbol(bar.Symbol) {
		switch {
		case pos.StopTouched(bar.Low, bar.High):
			l.close(pos, pos.StopLoss, bar.Time, types.ExitReasonStoppedOut)
			closed = append(closed, pos)
		case pos.TargetTouched(bar.Low, bar.High):
			l.close(pos, pos.Target.Unwrap(), bar.Time, types.ExitReasonTargetHit)
			closed = append(closed, pos)
		}
	}

	return closed
}

// MarkPrice checks open positions on the symbol against a single traded
// price, the realtime analogue of MarkBar. Stop is checked before target.
func (l *Ledger) MarkPrice(symbol string, ltp float64, at time.Time) []*types.Position {
	m := l.lockSymbol(symbol)
	m.Lock()
	defer m.Unlock()

	var closed []*types.Position
	for _, pos := range l.openForSymbol(symbol) {
		switch {
		case pos.StopTouched(ltp, ltp):
			l.close(pos, ltp, at, types.ExitReasonStoppedOut)
			closed = append(closed, pos)
		case pos.TargetTouched(ltp, ltp):
			l.close(pos, ltp, at, types.ExitReasonTargetHit)
			closed = append(closed, pos)
		}
	}

	return closed
}

// ClosePair force-closes the open position for one pair at the given price.
func (l *Ledger) ClosePair(pair types.PairKey, price float64, at time.Time, reason types.ExitReason) (*types.Position, error) {
	m := l.lockSymbol(pair.Symbol)
	m.Lock()
	defer m.Unlock()

	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	pos, ok := l.open[pair]
	if !ok {
		return nil, errors.Newf(errors.ErrCodePositionNotFound, "no open position for pair %s", pair)
	}

	l.closeLocked(pos, price, at, reason)

	return pos, nil
}

// PriceFn resolves the exit price for a position during a bulk close.
type PriceFn func(pos *types.Position) float64

// CloseAll force-closes every open position and returns how many were
// closed. Symbols are locked one at a time, in map order.
func (l *Ledger) CloseAll(reason types.ExitReason, at time.Time, priceOf PriceFn) int {
	count := 0
	for _, pos := range l.OpenPositions() {
		m := l.lockSymbol(pos.Symbol)
		m.Lock()

		if pos.IsOpen() {
			l.close(pos, priceOf(pos), at, reason)
			count++
		}

		m.Unlock()
	}

	return count
}

// OpenPositions returns a snapshot of all open positions.
func (l *Ledger) OpenPositions() []*types.Position {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()

	out := make([]*types.Position, 0, len(l.open))
	for _, pos := range l.open {
		out = append(out, pos)
	}

	return out
}

// OpenForPair returns the open position for the pair, if any.
func (l *Ledger) OpenForPair(pair types.PairKey) optional.Option[*types.Position] {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()

	if pos, ok := l.open[pair]; ok {
		return optional.Some(pos)
	}

	return optional.None[*types.Position]()
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()

	return len(l.open)
}

// DeployedCapital is the aggregate capital at risk across open positions,
// the sum of quantity x |entry - stop|.
func (l *Ledger) DeployedCapital() float64 {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()

	total := decimal.Zero
	for _, pos := range l.open {
		perUnit := decimal.NewFromFloat(pos.EntryPrice).
			Sub(decimal.NewFromFloat(pos.StopLoss)).
			Abs()
		total = total.Add(perUnit.Mul(decimal.NewFromInt(pos.Quantity)))
	}

	deployed, _ := total.Float64()

	return deployed
}

// RealizedPnL is the cumulative profit of all closed positions.
func (l *Ledger) RealizedPnL() float64 {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()

	pnl, _ := l.realized.Float64()

	return pnl
}

// TradeCount is the number of positions closed so far.
func (l *Ledger) TradeCount() int {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()

	return l.tradeSeen
}

func (l *Ledger) close(pos *types.Position, price float64, at time.Time, reason types.ExitReason) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	l.closeLocked(pos, price, at, reason)
}

// closeLocked finalizes a position. Callers hold both the symbol lock and
// stateMu.
func (l *Ledger) closeLocked(pos *types.Position, price float64, at time.Time, reason types.ExitReason) {
	if !pos.IsOpen() {
		return
	}

	pos.Close(price, at, reason)
	delete(l.open, pos.Pair())

	l.realized = l.realized.Add(decimal.NewFromFloat(pos.PnLAt(price)))
	l.tradeSeen++

	if l.writer != nil {
		// trade log failures must not roll back a completed exit
		if err := l.writer.Write(types.NewTradeRecord(pos, l.mode)); err != nil {
			l.log.Error("failed to write trade record",
				zap.String("position_id", pos.ID),
				zap.Error(err))
		}
	}
}

func (l *Ledger) openForSymbol(symbol string) []*types.Position {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()

	var out []*types.Position
	for pair, pos := range l.open {
		if pair.Symbol == symbol {
			out = append(out, pos)
		}
	}

	return out
}
