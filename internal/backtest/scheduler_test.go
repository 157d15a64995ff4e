package backtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-runner/internal/checkpoint"
	"github.com/rxtech-lab/argo-runner/internal/clock"
	"github.com/rxtech-lab/argo-runner/internal/config"
	"github.com/rxtech-lab/argo-runner/internal/logger"
	"github.com/rxtech-lab/argo-runner/internal/market"
	"github.com/rxtech-lab/argo-runner/internal/notify"
	"github.com/rxtech-lab/argo-runner/internal/strategy"
	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// memorySource serves bars from memory, mimicking the half-open range
// semantics of the real source.
type memorySource struct {
	bars map[string][]types.MarketData
}

func (m *memorySource) GetRange(_ context.Context, symbol string, _ types.Interval, start, end time.Time) ([]types.MarketData, error) {
	series, ok := m.bars[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataUnavailable, "no candle data for %s", symbol)
	}

	var out []types.MarketData
	for _, bar := range series {
		if !bar.Time.Before(start) && bar.Time.Before(end) {
			out = append(out, bar)
		}
	}

	return out, nil
}

func (m *memorySource) GetWindow(_ context.Context, symbol string, _ types.Interval, end time.Time, bars int) ([]types.MarketData, error) {
	series, ok := m.bars[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataUnavailable, "no candle data for %s", symbol)
	}

	var out []types.MarketData
	for _, bar := range series {
		if !bar.Time.After(end) {
			out = append(out, bar)
		}
	}

	if len(out) > bars {
		out = out[len(out)-bars:]
	}

	return out, nil
}

func (m *memorySource) Close() error { return nil }

// buyOnce signals a buy on the very first evaluated bar and stays quiet
// afterwards within a process.
type buyOnce struct {
	fired bool
	stop  float64
}

func (b *buyOnce) Name() string { return "buy_once" }

func (b *buyOnce) Parameters() map[string]string { return map[string]string{} }

func (b *buyOnce) MinBars() int { return 1 }

func (b *buyOnce) Evaluate(series []types.MarketData, symbol types.Symbol) (optional.Option[types.Signal], error) {
	if b.fired {
		return optional.None[types.Signal](), nil
	}

	b.fired = true
	bar := series[len(series)-1]

	return optional.Some(types.Signal{
		Time:     bar.Time,
		Symbol:   symbol.Name,
		Strategy: b.Name(),
		Action:   types.SignalActionBuy,
		Kind:     types.OrderKindMarket,
		Price:    bar.Close,
		StopLoss: b.stop,
	}), nil
}

// alwaysBuy signals on every evaluated bar. Stateless, so two replays of
// the same history produce the same trades.
type alwaysBuy struct {
	stop float64
}

func (b *alwaysBuy) Name() string { return "always_buy" }

func (b *alwaysBuy) Parameters() map[string]string { return map[string]string{} }

func (b *alwaysBuy) MinBars() int { return 1 }

func (b *alwaysBuy) Evaluate(series []types.MarketData, symbol types.Symbol) (optional.Option[types.Signal], error) {
	bar := series[len(series)-1]

	return optional.Some(types.Signal{
		Time:     bar.Time,
		Symbol:   symbol.Name,
		Strategy: b.Name(),
		Action:   types.SignalActionBuy,
		Kind:     types.OrderKindMarket,
		Price:    bar.Close,
		StopLoss: b.stop,
	}), nil
}

type recordingWriter struct {
	records []types.TradeRecord
}

func (w *recordingWriter) Write(record types.TradeRecord) error {
	w.records = append(w.records, record)
	return nil
}

type SchedulerTestSuite struct {
	suite.Suite
	cfg      config.Config
	source   *memorySource
	store    *checkpoint.FileStore
	registry *strategy.Registry
	writer   *recordingWriter
	clk      *clock.Fake
	ctx      context.Context
}

func TestSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) SetupTest() {
	s.ctx = context.Background()

	store, err := checkpoint.NewFileStore(s.T().TempDir())
	s.Require().NoError(err)
	s.store = store

	s.registry = strategy.NewRegistry()
	s.writer = &recordingWriter{}
	s.clk = clock.NewFake(time.Date(2010, 7, 1, 0, 0, 0, 0, time.UTC))

	s.cfg = config.NewDefaultConfig()
	s.cfg.Risk = config.RiskPolicy{Capital: 500000, RiskPerTradePct: 2.0, MaxOpenPositions: 5}
	s.cfg.Pairs = []config.Pair{{Segment: "NSE", Symbol: "NIFTY", Strategy: "buy_once", Interval: types.Interval1d}}

	// daily flat bars from the start date onwards, far from any stop
	var bars []types.MarketData
	day := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	for day.Before(time.Date(2010, 7, 1, 0, 0, 0, 0, time.UTC)) {
		bars = append(bars, types.MarketData{
			Symbol: "NIFTY",
			Time:   day,
			Open:   21500,
			High:   21510,
			Low:    21490,
			Close:  21500,
		})
		day = day.AddDate(0, 0, 1)
	}

	s.source = &memorySource{bars: map[string][]types.MarketData{"NIFTY": bars}}
}

func (s *SchedulerTestSuite) newScheduler() *Scheduler {
	symbols := market.NewSymbolMasterFromList([]types.Symbol{
		{Name: "NIFTY", Segment: "NSE", LotSize: 50},
	})

	return NewScheduler(s.cfg, s.registry, s.source, s.store, symbols, s.writer, notify.NewNop(), s.clk, logger.NewNopLogger())
}

func (s *SchedulerTestSuite) registerBuyOnce() {
	// stop 50 points under entry sizes to 4 lots under the test risk policy
	s.Require().NoError(s.registry.Register(&buyOnce{stop: 21450}))
}

func (s *SchedulerTestSuite) pairKey() types.PairKey {
	return types.NewPairKey("NIFTY", "buy_once")
}

func (s *SchedulerTestSuite) cursorOf(key types.PairKey) time.Time {
	cp, err := s.store.Load(key)
	s.Require().NoError(err)
	s.Require().True(cp.IsSome())

	return cp.Unwrap().Cursor
}

func (s *SchedulerTestSuite) TestFirstChunkStartsAtStartDate() {
	s.registerBuyOnce()

	results, err := s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(results, 1)

	r := results[0]
	s.False(r.Skipped)
	s.True(r.From.Equal(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)))
	s.True(r.To.Equal(time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC)))
	s.Equal(120, r.Bars)

	s.True(s.cursorOf(s.pairKey()).Equal(r.To))
}

func (s *SchedulerTestSuite) TestSecondChunkClampsToNow() {
	s.registerBuyOnce()
	sched := s.newScheduler()

	_, err := sched.RunOnce(s.ctx)
	s.Require().NoError(err)

	results, err := sched.RunOnce(s.ctx)
	s.Require().NoError(err)

	// 2010-05-01 + 4 months = 2010-09-01, clamped to the clock
	s.True(results[0].To.Equal(time.Date(2010, 7, 1, 0, 0, 0, 0, time.UTC)))
	s.True(s.cursorOf(s.pairKey()).Equal(results[0].To))
}

func (s *SchedulerTestSuite) TestCaughtUpPairIsSkippedIdempotently() {
	s.registerBuyOnce()
	sched := s.newScheduler()

	_, err := sched.RunOnce(s.ctx)
	s.Require().NoError(err)
	_, err = sched.RunOnce(s.ctx)
	s.Require().NoError(err)

	results, err := sched.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.True(results[0].CaughtUp)

	// cursor stays pinned at the clock across repeated runs
	s.True(s.cursorOf(s.pairKey()).Equal(s.clk.Now()))
}

func (s *SchedulerTestSuite) TestEmptyWindowStillAdvances() {
	s.registerBuyOnce()
	s.source.bars["NIFTY"] = []types.MarketData{}

	results, err := s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)
	s.False(results[0].Skipped)
	s.Zero(results[0].Bars)

	s.True(s.cursorOf(s.pairKey()).Equal(time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func (s *SchedulerTestSuite) TestDataUnavailableDoesNotAdvance() {
	s.registerBuyOnce()
	delete(s.source.bars, "NIFTY")

	results, err := s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)
	s.True(results[0].Skipped)
	s.True(errors.HasCode(results[0].SkipCause, errors.ErrCodeDataUnavailable))

	cp, err := s.store.Load(s.pairKey())
	s.Require().NoError(err)
	s.True(cp.IsNone())
}

func (s *SchedulerTestSuite) TestCorruptCheckpointHaltsPair() {
	s.registerBuyOnce()

	dir := s.T().TempDir()
	store, err := checkpoint.NewFileStore(dir)
	s.Require().NoError(err)
	s.store = store

	path := filepath.Join(dir, s.pairKey().String()+".json")
	s.Require().NoError(os.WriteFile(path, []byte("{not json"), 0o644))

	results, err := s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)
	s.True(results[0].Skipped)
	s.True(errors.HasCode(results[0].SkipCause, errors.ErrCodeCheckpointCorrupt))
}

func (s *SchedulerTestSuite) TestLeftoverPositionClosedAtSessionEnd() {
	s.registerBuyOnce()

	results, err := s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, results[0].Trades)

	s.Require().Len(s.writer.records, 1)
	s.Equal(types.ExitReasonSessionEnd, s.writer.records[0].ExitReason)
	s.Equal(21500.0, s.writer.records[0].ExitPrice)
}

func (s *SchedulerTestSuite) TestUnknownSymbolSkipsPair() {
	s.registerBuyOnce()
	s.cfg.Pairs = []config.Pair{{Segment: "NSE", Symbol: "SENSEX", Strategy: "buy_once", Interval: types.Interval1d}}

	results, err := s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)
	s.True(results[0].Skipped)
	s.True(errors.HasCode(results[0].SkipCause, errors.ErrCodeSymbolNotFound))
}

func (s *SchedulerTestSuite) TestFreshSchedulerResumesFromPersistedCursor() {
	s.registerBuyOnce()

	_, err := s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)

	// a brand new scheduler over the same store picks up where the old
	// one left off instead of restarting from the start date
	results, err := s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)

	r := results[0]
	s.False(r.Skipped)
	s.True(r.From.Equal(time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC)))
	s.True(r.To.Equal(time.Date(2010, 7, 1, 0, 0, 0, 0, time.UTC)))
}

func (s *SchedulerTestSuite) TestRestartReproducesUninterruptedTradeSequence() {
	s.cfg.Pairs = []config.Pair{{Segment: "NSE", Symbol: "NIFTY", Strategy: "always_buy", Interval: types.Interval1d}}
	s.Require().NoError(s.registry.Register(&alwaysBuy{stop: 21450}))

	// uninterrupted: one scheduler advances through both chunks
	sched := s.newScheduler()
	_, err := sched.RunOnce(s.ctx)
	s.Require().NoError(err)
	_, err = sched.RunOnce(s.ctx)
	s.Require().NoError(err)

	baseline := s.writer.records
	s.Require().NotEmpty(baseline)

	// restarted: a second store replays the same history, with a fresh
	// scheduler instance standing in for a process restart between chunks
	store, err := checkpoint.NewFileStore(s.T().TempDir())
	s.Require().NoError(err)
	s.store = store
	s.writer = &recordingWriter{}

	_, err = s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)
	_, err = s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)

	s.Require().Len(s.writer.records, len(baseline))
	for i, want := range baseline {
		got := s.writer.records[i]
		s.Equal(want.Symbol, got.Symbol)
		s.Equal(want.Strategy, got.Strategy)
		s.Equal(want.Quantity, got.Quantity)
		s.Equal(want.EntryPrice, got.EntryPrice)
		s.Equal(want.ExitPrice, got.ExitPrice)
		s.True(want.OpenedAt.Equal(got.OpenedAt))
		s.True(want.ClosedAt.Equal(got.ClosedAt))
		s.Equal(want.ExitReason, got.ExitReason)
		s.Equal(want.RealizedPnL, got.RealizedPnL)
	}
}

func (s *SchedulerTestSuite) TestProgressSeededFromStore() {
	s.registerBuyOnce()

	_, err := s.newScheduler().RunOnce(s.ctx)
	s.Require().NoError(err)

	// a freshly constructed scheduler reports durable progress right away
	progress := s.newScheduler().Progress()
	cp, ok := progress[s.pairKey()]
	s.Require().True(ok)
	s.True(cp.Cursor.Equal(time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func (s *SchedulerTestSuite) TestOnResultFiresPerPair() {
	s.registerBuyOnce()

	sched := s.newScheduler()
	var seen []SessionResult
	sched.OnResult(func(result SessionResult) { seen = append(seen, result) })

	results, err := sched.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(seen, len(results))
	s.Equal(results[0].Pair, seen[0].Pair)
}

func (s *SchedulerTestSuite) TestCancelledContextStopsRun() {
	s.registerBuyOnce()

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	results, err := s.newScheduler().RunOnce(ctx)
	s.Error(err)
	s.Empty(results)
}
