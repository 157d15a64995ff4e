// Package config loads and validates the runner's YAML configuration.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// DefaultStartDate is where backtest replay begins for a pair that has no
// checkpoint yet.
var DefaultStartDate = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

// RiskPolicy bounds how much capital a single trade may put at risk.
type RiskPolicy struct {
	// Capital is the account capital used for risk sizing
	Capital float64 `yaml:"capital" json:"capital" jsonschema:"title=Capital,minimum=0" validate:"required,gt=0"`
	// RiskPerTradePct is the percentage of capital risked per trade
	RiskPerTradePct float64 `yaml:"risk_per_trade_pct" json:"risk_per_trade_pct" jsonschema:"title=Risk Per Trade Percent,minimum=0,maximum=100" validate:"required,gt=0,lte=100"`
	// MaxOpenPositions caps concurrently open positions across all pairs
	MaxOpenPositions int `yaml:"max_open_positions" json:"max_open_positions" jsonschema:"title=Max Open Positions,minimum=1" validate:"required,gte=1"`
}

// TradingHours is the window in which the realtime scheduler may trade.
type TradingHours struct {
	// Start and End use 24h HH:MM format
	Start        string `yaml:"start" json:"start" validate:"required"`
	End          string `yaml:"end" json:"end" validate:"required"`
	WeekdaysOnly bool   `yaml:"weekdays_only" json:"weekdays_only"`
	// Timezone is an IANA zone name, e.g. Asia/Kolkata
	Timezone string `yaml:"timezone" json:"timezone" validate:"required"`
}

// BacktestConfig controls the resumable chunked replay scheduler.
type BacktestConfig struct {
	// StartDate is the replay origin for pairs without a checkpoint
	StartDate time.Time `yaml:"start_date" json:"start_date"`
	// ChunkSpanMonths is the calendar length of one replay chunk
	ChunkSpanMonths int `yaml:"chunk_span_months" json:"chunk_span_months" validate:"required,gte=1"`
	// StateDir holds per-pair checkpoint files
	StateDir string `yaml:"state_dir" json:"state_dir" validate:"required"`
}

// RealtimeConfig controls the live polling scheduler.
type RealtimeConfig struct {
	PollInterval time.Duration `yaml:"-" json:"poll_interval" validate:"required"`
	Hours        TradingHours  `yaml:"hours" json:"hours"`
	// WindowBars is how many trailing bars are fetched per evaluation
	WindowBars int `yaml:"window_bars" json:"window_bars" validate:"required,gte=1"`
}

// UnmarshalYAML implements custom unmarshaling for RealtimeConfig so the
// poll interval can be written as a duration string like "1m".
func (r *RealtimeConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Raw struct {
		PollInterval string       `yaml:"poll_interval"`
		Hours        TradingHours `yaml:"hours"`
		WindowBars   int          `yaml:"window_bars"`
	}

	var raw Raw
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if raw.PollInterval != "" {
		d, err := time.ParseDuration(raw.PollInterval)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err,
				"invalid poll_interval %s", raw.PollInterval)
		}
		r.PollInterval = d
	}

	if raw.Hours != (TradingHours{}) {
		r.Hours = raw.Hours
	}

	if raw.WindowBars != 0 {
		r.WindowBars = raw.WindowBars
	}

	return nil
}

// Pair binds one symbol to one strategy at one bar interval. Segment
// qualifies the symbol in the broker master, e.g. NSE vs NFO.
type Pair struct {
	Segment  string         `yaml:"segment" json:"segment" validate:"required"`
	Symbol   string         `yaml:"symbol" json:"symbol" validate:"required"`
	Strategy string         `yaml:"strategy" json:"strategy" validate:"required"`
	Interval types.Interval `yaml:"interval" json:"interval" validate:"required"`
}

// DataConfig points at the on-disk market data.
type DataConfig struct {
	// CandleDir holds per-symbol OHLCV csv files readable by DuckDB
	CandleDir string `yaml:"candle_dir" json:"candle_dir" validate:"required"`
	// SymbolMasterPath is the broker symbol master csv
	SymbolMasterPath string `yaml:"symbol_master_path" json:"symbol_master_path" validate:"required"`
}

// TelegramConfig enables trade notifications via a Telegram bot.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Token   string `yaml:"token" json:"token"`
	ChatID  int64  `yaml:"chat_id" json:"chat_id"`
}

// Config is the full runner configuration.
type Config struct {
	Mode     types.TradingMode `yaml:"mode" json:"mode" validate:"required,oneof=paper live"`
	Risk     RiskPolicy        `yaml:"risk" json:"risk" validate:"required"`
	Backtest BacktestConfig    `yaml:"backtest" json:"backtest"`
	Realtime RealtimeConfig    `yaml:"realtime" json:"realtime"`
	Pairs    []Pair            `yaml:"pairs" json:"pairs" validate:"required,min=1,dive"`
	Data     DataConfig        `yaml:"data" json:"data" validate:"required"`
	// TradeLogPath is the append-only csv of closed trades
	TradeLogPath string         `yaml:"trade_log_path" json:"trade_log_path" validate:"required"`
	Telegram     TelegramConfig `yaml:"telegram" json:"telegram"`
}

// NewDefaultConfig returns a Config with the standard defaults applied.
// Callers still need to set pairs and data paths before validating.
func NewDefaultConfig() Config {
	return Config{
		Mode: types.TradingModePaper,
		Risk: RiskPolicy{
			Capital:          100000,
			RiskPerTradePct:  2.0,
			MaxOpenPositions: 5,
		},
		Backtest: BacktestConfig{
			StartDate:       DefaultStartDate,
			ChunkSpanMonths: 4,
			StateDir:        "state",
		},
		Realtime: RealtimeConfig{
			PollInterval: time.Minute,
			Hours: TradingHours{
				Start:        "09:15",
				End:          "15:30",
				WeekdaysOnly: true,
				Timezone:     "Asia/Kolkata",
			},
			WindowBars: 200,
		},
		TradeLogPath: "trades.csv",
	}
}

// Load reads a YAML config file, fills unset fields with defaults and
// validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes on top of the defaults and validates.
func Parse(data []byte) (Config, error) {
	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks structural validity plus the trading-hours window.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if _, err := time.LoadLocation(c.Realtime.Hours.Timezone); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid timezone %s", c.Realtime.Hours.Timezone)
	}

	for _, field := range []string{c.Realtime.Hours.Start, c.Realtime.Hours.End} {
		if _, err := time.Parse("15:04", field); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid trading hours value %s", field)
		}
	}

	return nil
}
