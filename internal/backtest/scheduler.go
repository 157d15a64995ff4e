// Package backtest replays historical data in resumable chunks. Each
// (symbol, strategy) pair advances through history independently, one
// chunk per run, with progress persisted so the next run carries on where
// the last one stopped.
package backtest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-runner/internal/broker"
	"github.com/rxtech-lab/argo-runner/internal/checkpoint"
	"github.com/rxtech-lab/argo-runner/internal/clock"
	"github.com/rxtech-lab/argo-runner/internal/config"
	"github.com/rxtech-lab/argo-runner/internal/engine"
	"github.com/rxtech-lab/argo-runner/internal/ledger"
	"github.com/rxtech-lab/argo-runner/internal/logger"
	"github.com/rxtech-lab/argo-runner/internal/market"
	"github.com/rxtech-lab/argo-runner/internal/notify"
	"github.com/rxtech-lab/argo-runner/internal/risk"
	"github.com/rxtech-lab/argo-runner/internal/strategy"
	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// maxEvalWindow caps the trailing series handed to a strategy on each bar.
const maxEvalWindow = 500

// SessionResult summarizes one pair's chunk in a run.
type SessionResult struct {
	Pair      types.PairKey
	From      time.Time
	To        time.Time
	Bars      int
	Trades    int
	CaughtUp  bool
	Skipped   bool
	SkipCause error
}

// Scheduler replays one chunk per pair per RunOnce call. Every session
// gets a fresh ledger so no simulated exposure leaks across chunks.
type Scheduler struct {
	cfg      config.Config
	registry *strategy.Registry
	source   market.HistoricalSource
	store    checkpoint.Store
	symbols  *market.SymbolMaster
	writer   ledger.TradeWriter
	notifier notify.Notifier
	clk      clock.Clock
	logger   *logger.Logger

	mu       sync.RWMutex
	progress map[types.PairKey]types.Checkpoint

	onResult func(SessionResult)
}

func NewScheduler(
	cfg config.Config,
	registry *strategy.Registry,
	source market.HistoricalSource,
	store checkpoint.Store,
	symbols *market.SymbolMaster,
	writer ledger.TradeWriter,
	notifier notify.Notifier,
	clk clock.Clock,
	log *logger.Logger,
) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		registry: registry,
		source:   source,
		store:    store,
		symbols:  symbols,
		writer:   writer,
		notifier: notifier,
		clk:      clk,
		logger:   log.Named("backtest"),
		progress: make(map[types.PairKey]types.Checkpoint),
	}

	// seed progress from durable checkpoints so reporting reflects prior
	// runs, not just this process's. Unreadable checkpoints surface later
	// in runPair.
	for _, pair := range cfg.Pairs {
		key := types.NewPairKey(pair.Symbol, pair.Strategy)
		if cp, err := store.Load(key); err == nil && cp.IsSome() {
			s.progress[key] = cp.Unwrap()
		}
	}

	return s
}

// RunOnce advances every configured pair by at most one chunk. Pairs are
// independent: one pair's failure never blocks the others. The returned
// results preserve the config order of pairs.
func (s *Scheduler) RunOnce(ctx context.Context) ([]SessionResult, error) {
	results := make([]SessionResult, 0, len(s.cfg.Pairs))

	for _, pair := range s.cfg.Pairs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := s.runPair(ctx, pair)
		results = append(results, result)

		if s.onResult != nil {
			s.onResult(result)
		}
	}

	return results, nil
}

// OnResult registers a callback invoked after each pair completes within
// RunOnce, for progress reporting. Not safe to call while a run is active.
func (s *Scheduler) OnResult(fn func(SessionResult)) {
	s.onResult = fn
}

// runPair replays a single chunk for one pair.
func (s *Scheduler) runPair(ctx context.Context, pair config.Pair) SessionResult {
	key := types.NewPairKey(pair.Symbol, pair.Strategy)
	result := SessionResult{Pair: key}

	log := s.logger.With(zap.String("pair", key.String()))

	symbol, err := s.symbols.Get(pair.Segment, pair.Symbol)
	if err != nil {
		result.Skipped = true
		result.SkipCause = err
		log.Error("pair skipped, symbol not in master", zap.Error(err))

		return result
	}

	cursor, tradeCount, err := s.loadCursor(key)
	if err != nil {
		// a corrupt checkpoint halts the pair; silently restarting from
		// the start date would replay years of already-counted trades
		result.Skipped = true
		result.SkipCause = err
		log.Error("pair halted on bad checkpoint", zap.Error(err))
		s.notifier.Sendf("pair %s halted, checkpoint needs manual repair: %v", key, err)

		return result
	}

	now := s.clk.Now()
	if !cursor.Before(now) {
		result.CaughtUp = true
		log.Debug("pair caught up to the clock", zap.Time("cursor", cursor))

		return result
	}

	end := cursor.AddDate(0, s.cfg.Backtest.ChunkSpanMonths, 0)
	if end.After(now) {
		end = now
	}

	result.From = cursor
	result.To = end

	bars, err := s.source.GetRange(ctx, pair.Symbol, pair.Interval, cursor, end)
	if err != nil {
		// data source trouble must not advance the cursor, the next run
		// retries the same window
		result.Skipped = true
		result.SkipCause = err
		log.Warn("pair skipped, data unavailable", zap.Error(err))

		return result
	}

	trades, err := s.replay(ctx, symbol, pair.Strategy, bars)
	if err != nil {
		result.Skipped = true
		result.SkipCause = err
		log.Error("replay aborted", zap.Error(err))

		return result
	}

	result.Bars = len(bars)
	result.Trades = trades

	// an empty window still completes so a sparse pair keeps moving
	cp := types.Checkpoint{
		Symbol:     pair.Symbol,
		Strategy:   pair.Strategy,
		Cursor:     end,
		TradeCount: tradeCount + trades,
		UpdatedAt:  now,
	}
	if err := s.store.Save(cp); err != nil {
		result.Skipped = true
		result.SkipCause = err
		log.Error("failed to persist checkpoint", zap.Error(err))

		return result
	}

	s.mu.Lock()
	s.progress[key] = cp
	s.mu.Unlock()

	log.Info("chunk complete",
		zap.Time("from", cursor),
		zap.Time("to", end),
		zap.Int("bars", len(bars)),
		zap.Int("trades", trades))

	return result
}

// loadCursor resolves where the pair resumes from.
func (s *Scheduler) loadCursor(key types.PairKey) (time.Time, int, error) {
	cp, err := s.store.Load(key)
	if err != nil {
		return time.Time{}, 0, err
	}

	if cp.IsNone() {
		return s.cfg.Backtest.StartDate, 0, nil
	}

	return cp.Unwrap().Cursor, cp.Unwrap().TradeCount, nil
}

// replay drives one chunk's bars through a fresh pipeline. Any position
// still open after the last bar is force-closed at that bar's close so no
// exposure carries into the next chunk.
func (s *Scheduler) replay(ctx context.Context, symbol types.Symbol, strategyName string, bars []types.MarketData) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	led := ledger.NewLedger(types.TradingModePaper, s.writer, s.logger)
	eng := engine.NewEngine(
		s.registry,
		risk.NewSizer(s.cfg.Risk),
		led,
		broker.NewPaperGateway(s.logger),
		notify.NewNop(),
		types.TradingModePaper,
		s.cfg.Risk.MaxOpenPositions,
		s.logger,
	)

	for i := range bars {
		if err := ctx.Err(); err != nil {
			return led.TradeCount(), errors.Wrap(errors.ErrCodeUnknown, "replay cancelled", err)
		}

		start := i + 1 - maxEvalWindow
		if start < 0 {
			start = 0
		}

		if err := eng.ProcessBar(ctx, symbol, strategyName, bars[start:i+1]); err != nil {
			return led.TradeCount(), err
		}
	}

	last := bars[len(bars)-1]
	eng.CloseAllPositions(ctx, types.ExitReasonSessionEnd, last.Time, func(pos *types.Position) float64 {
		return last.Close
	})

	return led.TradeCount(), nil
}

// Progress returns the checkpoints persisted during this process's runs.
func (s *Scheduler) Progress() map[types.PairKey]types.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[types.PairKey]types.Checkpoint, len(s.progress))
	for k, v := range s.progress {
		out[k] = v
	}

	return out
}
