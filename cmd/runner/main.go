package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-runner/internal/backtest"
	"github.com/rxtech-lab/argo-runner/internal/broker"
	"github.com/rxtech-lab/argo-runner/internal/checkpoint"
	"github.com/rxtech-lab/argo-runner/internal/clock"
	"github.com/rxtech-lab/argo-runner/internal/config"
	"github.com/rxtech-lab/argo-runner/internal/engine"
	"github.com/rxtech-lab/argo-runner/internal/ledger"
	"github.com/rxtech-lab/argo-runner/internal/logger"
	"github.com/rxtech-lab/argo-runner/internal/market"
	"github.com/rxtech-lab/argo-runner/internal/notify"
	"github.com/rxtech-lab/argo-runner/internal/realtime"
	"github.com/rxtech-lab/argo-runner/internal/risk"
	"github.com/rxtech-lab/argo-runner/internal/strategy"
	"github.com/rxtech-lab/argo-runner/internal/tradelog"
	"github.com/rxtech-lab/argo-runner/internal/types"
)

// runtime bundles the pieces both commands need.
type runtime struct {
	cfg      config.Config
	log      *logger.Logger
	registry *strategy.Registry
	source   *market.DuckDBSource
	symbols  *market.SymbolMaster
	writer   *tradelog.CSVWriter
	notifier notify.Notifier
}

func setup(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logr, err := logger.NewLogger()
	if err != nil {
		return nil, err
	}

	source, err := market.NewDuckDBSource(cfg.Data.CandleDir, logr)
	if err != nil {
		return nil, err
	}

	symbols, err := market.LoadSymbolMaster(ctx, cfg.Data.SymbolMasterPath)
	if err != nil {
		return nil, err
	}

	writer, err := tradelog.NewCSVWriter(cfg.TradeLogPath)
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.NewLogged(logr)
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logr)
		if err != nil {
			return nil, fmt.Errorf("failed to start telegram notifier: %w", err)
		}
		notifier = tg
	}

	return &runtime{
		cfg:      cfg,
		log:      logr,
		registry: strategy.NewDefaultRegistry(),
		source:   source,
		symbols:  symbols,
		writer:   writer,
		notifier: notifier,
	}, nil
}

func (r *runtime) close() {
	if err := r.writer.Close(); err != nil {
		r.log.Warn("failed to close trade log", zap.Error(err))
	}

	if err := r.source.Close(); err != nil {
		r.log.Warn("failed to close data source", zap.Error(err))
	}

	_ = r.log.Sync()
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := setup(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer rt.close()

	store, err := checkpoint.NewFileStore(rt.cfg.Backtest.StateDir)
	if err != nil {
		return err
	}

	sched := backtest.NewScheduler(
		rt.cfg, rt.registry, rt.source, store, rt.symbols, rt.writer,
		rt.notifier, clock.NewSystemClock(), rt.log,
	)

	var bar *progressbar.ProgressBar
	sched.OnResult(func(result backtest.SessionResult) {
		_ = bar.Add(1)

		switch {
		case result.Skipped:
			rt.log.Warn("pair skipped",
				zap.String("pair", result.Pair.String()),
				zap.Error(result.SkipCause))
		case result.CaughtUp:
			rt.log.Info("pair caught up", zap.String("pair", result.Pair.String()))
		default:
			rt.log.Info("pair advanced",
				zap.String("pair", result.Pair.String()),
				zap.Time("to", result.To),
				zap.Int("bars", result.Bars),
				zap.Int("trades", result.Trades))
		}
	})

	runs := int(cmd.Int("runs"))
	for run := 0; run < runs; run++ {
		bar = progressbar.Default(int64(len(rt.cfg.Pairs)),
			fmt.Sprintf("replay run %d/%d", run+1, runs))

		_, err := sched.RunOnce(ctx)
		_ = bar.Finish()

		if err != nil {
			return err
		}
	}

	return nil
}

func realtimeAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := setup(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer rt.close()

	mode := rt.cfg.Mode
	if override := cmd.String("mode"); override != "" {
		mode = types.TradingMode(override)
		if mode != types.TradingModePaper && mode != types.TradingModeLive {
			return fmt.Errorf("unknown trading mode %q", override)
		}
	}

	led := ledger.NewLedger(mode, rt.writer, rt.log)
	clk := clock.NewSystemClock()

	// live order routing is a broker integration away; both modes fill
	// through the paper gateway for now and the mode gate decides routing
	gateway := broker.NewPaperGateway(rt.log)

	eng := engine.NewEngine(
		rt.registry,
		risk.NewSizer(rt.cfg.Risk),
		led,
		gateway,
		rt.notifier,
		mode,
		rt.cfg.Risk.MaxOpenPositions,
		rt.log,
	)

	interval := types.Interval5m
	if len(rt.cfg.Pairs) > 0 {
		interval = rt.cfg.Pairs[0].Interval
	}
	quotes := market.NewCandleQuote(rt.source, interval, clk)

	sched := realtime.NewScheduler(rt.cfg, eng, rt.source, quotes, rt.symbols, clk, rt.log)

	rt.notifier.Sendf("runner started in %s mode with %d pairs", mode, len(rt.cfg.Pairs))

	err = sched.Run(ctx)
	if err != nil && ctx.Err() != nil {
		// a clean shutdown closes nothing automatically; flatten paper
		// books so the trade log accounts for every entry
		if mode == types.TradingModePaper {
			eng.CloseAllPositions(context.Background(), types.ExitReasonManual, clk.Now(), func(pos *types.Position) float64 {
				return pos.EntryPrice
			})
		}

		return nil
	}

	return err
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "runner",
		Usage: "Backtest and realtime trading runner",
		Commands: []*cli.Command{
			{
				Name:  "backtest",
				Usage: "Advance every configured pair by one historical chunk",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the runner config file",
						Value:   "config.yaml",
					},
					&cli.IntFlag{
						Name:    "runs",
						Aliases: []string{"n"},
						Usage:   "How many chunks to replay in this invocation",
						Value:   1,
					},
				},
				Action: backtestAction,
			},
			{
				Name:  "realtime",
				Usage: "Poll live prices and trade during market hours",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the runner config file",
						Value:   "config.yaml",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Override the configured trading mode (paper or live)",
					},
				},
				Action: realtimeAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema for the config file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
