// Package engine runs the shared strategy, risk and ledger pipeline used
// by both the backtest and realtime schedulers.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-runner/internal/broker"
	"github.com/rxtech-lab/argo-runner/internal/ledger"
	"github.com/rxtech-lab/argo-runner/internal/logger"
	"github.com/rxtech-lab/argo-runner/internal/notify"
	"github.com/rxtech-lab/argo-runner/internal/risk"
	"github.com/rxtech-lab/argo-runner/internal/strategy"
	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// Engine wires strategies, sizing, the ledger and order execution into a
// single pipeline. One engine instance serves every pair.
type Engine struct {
	registry *strategy.Registry
	sizer    *risk.Sizer
	ledger   *ledger.Ledger
	gateway  broker.Gateway
	notifier notify.Notifier
	logger   *logger.Logger

	maxOpen int

	modeMu sync.RWMutex
	mode   types.TradingMode
}

func NewEngine(
	registry *strategy.Registry,
	sizer *risk.Sizer,
	led *ledger.Ledger,
	gateway broker.Gateway,
	notifier notify.Notifier,
	mode types.TradingMode,
	maxOpen int,
	log *logger.Logger,
) *Engine {
	return &Engine{
		registry: registry,
		sizer:    sizer,
		ledger:   led,
		gateway:  gateway,
		notifier: notifier,
		logger:   log.Named("engine"),
		maxOpen:  maxOpen,
		mode:     mode,
	}
}

// Mode returns the current trading mode.
func (e *Engine) Mode() types.TradingMode {
	e.modeMu.RLock()
	defer e.modeMu.RUnlock()

	return e.mode
}

// SwitchMode flips between paper and live trading. Open positions are
// untouched; only subsequent entries route differently.
func (e *Engine) SwitchMode(mode types.TradingMode) error {
	if mode != types.TradingModePaper && mode != types.TradingModeLive {
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown trading mode %s", mode)
	}

	e.modeMu.Lock()
	defer e.modeMu.Unlock()

	e.mode = mode
	e.logger.Info("trading mode switched", zap.String("mode", string(mode)))

	return nil
}

// ProcessBar runs one pipeline step for a pair: exits first against the
// latest bar, then strategy evaluation and a possible new entry. The
// window is the trailing series ending at the bar being processed.
// Recoverable conditions (no signal, sizing rejection, a broken strategy)
// are logged and swallowed; only infrastructure failures surface.
func (e *Engine) ProcessBar(ctx context.Context, symbol types.Symbol, strategyName string, window []types.MarketData) error {
	if len(window) == 0 {
		return nil
	}

	bar := window[len(window)-1]

	if e.Mode() == types.TradingModeLive {
		e.liveBarExits(ctx, bar)
	} else {
		for _, pos := range e.ledger.MarkBar(bar) {
			e.notifyExit(pos)
		}
	}

	return e.tryEnter(ctx, symbol, strategyName, window, bar.Time)
}

// ProcessTick runs the realtime variant: exits are checked against a
// single traded price before the trailing window is evaluated for entries.
func (e *Engine) ProcessTick(ctx context.Context, symbol types.Symbol, strategyName string, ltp float64, at time.Time, window []types.MarketData) error {
	if e.Mode() == types.TradingModeLive {
		e.livePriceExits(ctx, symbol.Name, ltp, at)
	} else {
		for _, pos := range e.ledger.MarkPrice(symbol.Name, ltp, at) {
			e.notifyExit(pos)
		}
	}

	return e.tryEnter(ctx, symbol, strategyName, window, at)
}

// liveBarExits checks open positions on the bar's symbol and routes every
// triggered exit through the broker. Stop is checked before target, the
// same precedence the ledger applies in paper mode.
func (e *Engine) liveBarExits(ctx context.Context, bar types.MarketData) {
	for _, pos := range e.ledger.OpenPositions() {
		if pos.Symbol != bar.Symbol {
			continue
		}

		switch {
		case pos.StopTouched(bar.Low, bar.High):
			e.closeViaBroker(ctx, pos, pos.StopLoss, bar.Time, types.ExitReasonStoppedOut)
		case pos.TargetTouched(bar.Low, bar.High):
			e.closeViaBroker(ctx, pos, pos.Target.Unwrap(), bar.Time, types.ExitReasonTargetHit)
		}
	}
}

// livePriceExits is the tick analogue of liveBarExits; triggered exits
// fill at the traded price.
func (e *Engine) livePriceExits(ctx context.Context, symbol string, ltp float64, at time.Time) {
	for _, pos := range e.ledger.OpenPositions() {
		if pos.Symbol != symbol {
			continue
		}

		switch {
		case pos.StopTouched(ltp, ltp):
			e.closeViaBroker(ctx, pos, ltp, at, types.ExitReasonStoppedOut)
		case pos.TargetTouched(ltp, ltp):
			e.closeViaBroker(ctx, pos, ltp, at, types.ExitReasonTargetHit)
		}
	}
}

// closeViaBroker confirms the exit with the broker before the ledger
// releases the position. A refused exit leaves the position open; the
// next mark retries it.
func (e *Engine) closeViaBroker(ctx context.Context, pos *types.Position, price float64, at time.Time, reason types.ExitReason) bool {
	fill, err := e.gateway.ExitOrder(ctx, pos, price)
	if err != nil {
		e.notifier.Sendf("exit rejected for %s: %v", pos.Pair(), err)
		e.logger.Error("broker rejected exit",
			zap.String("pair", pos.Pair().String()),
			zap.Error(err))

		return false
	}

	closed, err := e.ledger.ClosePair(pos.Pair(), fill.Price, at, reason)
	if err != nil {
		e.logger.Error("exit filled but position was already closed",
			zap.String("pair", pos.Pair().String()),
			zap.Error(err))

		return false
	}

	e.notifyExit(closed)

	return true
}

func (e *Engine) tryEnter(ctx context.Context, symbol types.Symbol, strategyName string, window []types.MarketData, at time.Time) error {
	pair := types.NewPairKey(symbol.Name, strategyName)

	// one open position per pair; do not even evaluate while it rides
	if e.ledger.OpenForPair(pair).IsSome() {
		return nil
	}

	result, err := e.registry.Evaluate(strategyName, window, symbol)
	if err != nil {
		if errors.IsRecoverable(err) {
			e.logger.Warn("strategy evaluation skipped",
				zap.String("pair", pair.String()),
				zap.Error(err))

			return nil
		}

		return err
	}

	if result.IsNone() {
		return nil
	}

	signal := result.Unwrap()
	if err := signal.Validate(); err != nil {
		e.logger.Warn("strategy produced invalid signal",
			zap.String("pair", pair.String()),
			zap.Error(err))

		return nil
	}

	if e.ledger.OpenCount() >= e.maxOpen {
		e.logger.Info("signal dropped, max open positions reached",
			zap.String("pair", pair.String()),
			zap.Int("max", e.maxOpen))

		return nil
	}

	qty, err := e.sizer.Quantity(signal, symbol)
	if err != nil {
		if errors.IsRecoverable(err) {
			e.logger.Info("signal rejected by sizer",
				zap.String("pair", pair.String()),
				zap.Error(err))

			return nil
		}

		return err
	}

	if err := e.sizer.CheckDeployable(signal, qty, e.ledger.DeployedCapital()); err != nil {
		e.logger.Info("signal rejected, capital exhausted",
			zap.String("pair", pair.String()),
			zap.Error(err))

		return nil
	}

	entryPrice := signal.Price
	if e.Mode() == types.TradingModeLive {
		fill, err := e.gateway.PlaceOrder(ctx, signal, qty)
		if err != nil {
			// the ledger stays untouched when the broker refuses an order
			e.notifier.Sendf("order rejected for %s: %v", pair, err)
			e.logger.Error("broker rejected order",
				zap.String("pair", pair.String()),
				zap.Error(err))

			return nil
		}

		entryPrice = fill.Price
	}

	signal.Price = entryPrice
	pos, err := e.ledger.Open(signal, qty, at)
	if err != nil {
		return err
	}

	e.logger.Info("position opened",
		zap.String("pair", pair.String()),
		zap.String("side", string(pos.Side)),
		zap.Int64("quantity", pos.Quantity),
		zap.Float64("entry", pos.EntryPrice))
	e.notifier.Sendf("%s %s %d @ %.2f (stop %.2f)",
		pos.Side, pos.Symbol, pos.Quantity, pos.EntryPrice, pos.StopLoss)

	return nil
}

// CloseAllPositions force-closes everything open, pricing each exit with
// priceOf. In live mode each exit must be confirmed by the broker first;
// refused exits stay open and are not counted. Returns the number of
// positions closed.
func (e *Engine) CloseAllPositions(ctx context.Context, reason types.ExitReason, at time.Time, priceOf ledger.PriceFn) int {
	var count int
	if e.Mode() == types.TradingModeLive {
		for _, pos := range e.ledger.OpenPositions() {
			if e.closeViaBroker(ctx, pos, priceOf(pos), at, reason) {
				count++
			}
		}
	} else {
		count = e.ledger.CloseAll(reason, at, priceOf)
	}

	if count > 0 {
		e.logger.Info("closed all open positions",
			zap.Int("count", count),
			zap.String("reason", string(reason)))
		e.notifier.Sendf("closed %d open positions (%s)", count, reason)
	}

	return count
}

// ClosePosition manually closes one pair's position at the given price.
// In live mode the broker must fill the exit first.
func (e *Engine) ClosePosition(ctx context.Context, pair types.PairKey, price float64, at time.Time) (*types.Position, error) {
	if e.Mode() == types.TradingModeLive {
		open := e.ledger.OpenForPair(pair)
		if open.IsNone() {
			return nil, errors.Newf(errors.ErrCodePositionNotFound, "no open position for pair %s", pair)
		}

		fill, err := e.gateway.ExitOrder(ctx, open.Unwrap(), price)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeOrderRejected, err, "broker refused exit for %s", pair)
		}
		price = fill.Price
	}

	pos, err := e.ledger.ClosePair(pair, price, at, types.ExitReasonManual)
	if err != nil {
		return nil, err
	}

	e.notifyExit(pos)

	return pos, nil
}

// OpenPositions returns a snapshot of currently open positions.
func (e *Engine) OpenPositions() []*types.Position {
	return e.ledger.OpenPositions()
}

// Ledger exposes the underlying ledger for read-side reporting.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

func (e *Engine) notifyExit(pos *types.Position) {
	e.logger.Info("position closed",
		zap.String("pair", pos.Pair().String()),
		zap.String("reason", string(pos.ExitReason)),
		zap.Float64("exit", pos.ExitPrice),
		zap.Float64("pnl", pos.PnLAt(pos.ExitPrice)))
	e.notifier.Sendf("closed %s %s @ %.2f (%s, pnl %.2f)",
		pos.Side, pos.Symbol, pos.ExitPrice, pos.ExitReason, pos.PnLAt(pos.ExitPrice))
}
