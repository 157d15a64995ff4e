package market

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-runner/internal/logger"
	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// DuckDBSource reads per-symbol candle CSV files through an in-memory
// DuckDB instance. Files live at {dir}/{symbol}_{interval}.csv with
// columns time, open, high, low, close, volume.
type DuckDBSource struct {
	db     *sql.DB
	dir    string
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewDuckDBSource(dir string, log *logger.Logger) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBSource{
		db:     db,
		dir:    dir,
		logger: log.Named("market"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

func (d *DuckDBSource) candlePath(symbol string, interval types.Interval) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s_%s.csv", symbol, interval))
}

// csvTable checks the candle file exists and returns the DuckDB table
// expression reading it.
func (d *DuckDBSource) csvTable(symbol string, interval types.Interval) (string, error) {
	path := d.candlePath(symbol, interval)
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrapf(errors.ErrCodeDataUnavailable, err,
			"no candle data for %s at interval %s", symbol, interval)
	}

	return fmt.Sprintf("read_csv_auto('%s')", path), nil
}

// GetRange implements HistoricalSource.
func (d *DuckDBSource) GetRange(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.MarketData, error) {
	table, err := d.csvTable(symbol, interval)
	if err != nil {
		return nil, err
	}

	query, args, err := d.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From(table).
		Where(squirrel.And{
			squirrel.GtOrEq{"time": start},
			squirrel.Lt{"time": end},
		}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build range query", err)
	}

	return d.queryBars(ctx, symbol, query, args, false)
}

// GetWindow implements HistoricalSource. Bars are fetched newest first and
// reversed so callers always see oldest-first series.
func (d *DuckDBSource) GetWindow(ctx context.Context, symbol string, interval types.Interval, end time.Time, bars int) ([]types.MarketData, error) {
	table, err := d.csvTable(symbol, interval)
	if err != nil {
		return nil, err
	}

	query, args, err := d.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From(table).
		Where(squirrel.LtOrEq{"time": end}).
		OrderBy("time DESC").
		Limit(uint64(bars)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build window query", err)
	}

	return d.queryBars(ctx, symbol, query, args, true)
}

func (d *DuckDBSource) queryBars(ctx context.Context, symbol, query string, args []any, reverse bool) ([]types.MarketData, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "candle query failed for %s", symbol)
	}
	defer rows.Close()

	var out []types.MarketData
	for rows.Next() {
		var (
			ts                             time.Time
			open, high, low, close, volume float64
		)

		if err := rows.Scan(&ts, &open, &high, &low, &close, &volume); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "candle scan failed for %s", symbol)
		}

		out = append(out, types.MarketData{
			Symbol: symbol,
			Time:   ts,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "candle iteration failed for %s", symbol)
	}

	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	d.logger.Debug("fetched candles",
		zap.String("symbol", symbol),
		zap.Int("bars", len(out)))

	return out, nil
}

// Close implements HistoricalSource.
func (d *DuckDBSource) Close() error {
	return d.db.Close()
}
