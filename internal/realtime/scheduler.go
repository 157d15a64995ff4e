// Package realtime polls live prices during market hours and drives the
// shared pipeline one tick at a time.
package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-runner/internal/clock"
	"github.com/rxtech-lab/argo-runner/internal/config"
	"github.com/rxtech-lab/argo-runner/internal/engine"
	"github.com/rxtech-lab/argo-runner/internal/logger"
	"github.com/rxtech-lab/argo-runner/internal/market"
	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// State is the scheduler's observable lifecycle phase.
type State string

const (
	// StateIdle means the market is closed or the scheduler has not
	// started polling yet.
	StateIdle State = "IDLE"
	// StatePolling means the scheduler is waiting out a poll interval.
	StatePolling State = "POLLING"
	// StateProcessing means a tick is being pushed through the pipeline.
	StateProcessing State = "PROCESSING"
)

// Scheduler runs the realtime loop: every poll interval inside trading
// hours it refreshes the last traded price for each pair's symbol, lets
// the engine mark exits against it, then evaluates the trailing window
// for new entries.
type Scheduler struct {
	cfg     config.Config
	eng     *engine.Engine
	source  market.HistoricalSource
	quotes  market.QuoteSource
	symbols *market.SymbolMaster
	clk     clock.Clock
	logger  *logger.Logger

	mu    sync.RWMutex
	state State
}

func NewScheduler(
	cfg config.Config,
	eng *engine.Engine,
	source market.HistoricalSource,
	quotes market.QuoteSource,
	symbols *market.SymbolMaster,
	clk clock.Clock,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		eng:     eng,
		source:  source,
		quotes:  quotes,
		symbols: symbols,
		clk:     clk,
		logger:  log.Named("realtime"),
		state:   StateIdle,
	}
}

// State returns the scheduler's current phase.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
}

// Run polls until the context is cancelled. Outside trading hours the
// scheduler idles; inside, each interval triggers one Tick.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("realtime scheduler started",
		zap.Duration("poll_interval", s.cfg.Realtime.PollInterval),
		zap.Int("pairs", len(s.cfg.Pairs)))

	for {
		now := s.clk.Now()
		if s.cfg.Realtime.Hours.Contains(now) {
			if err := s.Tick(ctx); err != nil {
				s.setState(StateIdle)

				return err
			}

			s.setState(StatePolling)
		} else {
			s.setState(StateIdle)
		}

		select {
		case <-ctx.Done():
			s.setState(StateIdle)
			s.logger.Info("realtime scheduler stopped")

			return ctx.Err()
		case <-s.clk.After(s.cfg.Realtime.PollInterval):
		}
	}
}

// Tick runs one full polling cycle across all pairs. Per-pair failures
// are logged and do not block the remaining pairs.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.setState(StateProcessing)
	defer s.setState(StatePolling)

	at := s.clk.Now()

	for _, pair := range s.cfg.Pairs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.tickPair(ctx, pair, at); err != nil {
			if errors.IsRecoverable(err) {
				s.logger.Warn("pair tick skipped",
					zap.String("symbol", pair.Symbol),
					zap.String("strategy", pair.Strategy),
					zap.Error(err))

				continue
			}

			return err
		}
	}

	return nil
}

// CloseAll force-closes every open position, pricing each exit at the
// current quote where one is available and at the entry price otherwise.
// Works in any phase.
func (s *Scheduler) CloseAll(ctx context.Context, reason types.ExitReason) int {
	return s.eng.CloseAllPositions(ctx, reason, s.clk.Now(), func(pos *types.Position) float64 {
		ltp, err := s.quotes.LTP(ctx, pos.Symbol)
		if err != nil {
			s.logger.Warn("no quote for forced exit, using entry price",
				zap.String("symbol", pos.Symbol),
				zap.Error(err))

			return pos.EntryPrice
		}

		return ltp
	})
}

func (s *Scheduler) tickPair(ctx context.Context, pair config.Pair, at time.Time) error {
	symbol, err := s.symbols.Get(pair.Segment, pair.Symbol)
	if err != nil {
		return err
	}

	ltp, err := s.quotes.LTP(ctx, pair.Symbol)
	if err != nil {
		return err
	}

	window, err := s.source.GetWindow(ctx, pair.Symbol, pair.Interval, at, s.cfg.Realtime.WindowBars)
	if err != nil {
		return err
	}

	return s.eng.ProcessTick(ctx, symbol, pair.Strategy, ltp, at, window)
}
