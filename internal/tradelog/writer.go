// Package tradelog appends closed trades to an on-disk CSV log.
package tradelog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

var header = []string{
	"position_id", "symbol", "strategy", "side", "quantity",
	"entry_price", "exit_price", "opened_at", "closed_at",
	"exit_reason", "realized_pnl", "mode",
}

// CSVWriter appends trade records to a single CSV file. The header is
// written once when the file is created; restarts append below it.
type CSVWriter struct {
	mu   sync.Mutex
	file *os.File
	csv  *csv.Writer
}

func NewCSVWriter(path string) (*CSVWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeUnknown, err, "failed to create trade log dir %s", dir)
		}
	}

	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeUnknown, err, "failed to open trade log %s", path)
	}

	w := &CSVWriter{
		file: file,
		csv:  csv.NewWriter(file),
	}

	if fresh {
		if err := w.csv.Write(header); err != nil {
			file.Close()
			return nil, errors.Wrap(errors.ErrCodeUnknown, "failed to write trade log header", err)
		}
		w.csv.Flush()
	}

	return w, nil
}

// Write appends one record and flushes so a crash loses at most the trade
// being written.
func (w *CSVWriter) Write(record types.TradeRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	row := []string{
		record.PositionID,
		record.Symbol,
		record.Strategy,
		string(record.Side),
		fmt.Sprintf("%d", record.Quantity),
		fmt.Sprintf("%.2f", record.EntryPrice),
		fmt.Sprintf("%.2f", record.ExitPrice),
		record.OpenedAt.Format("2006-01-02 15:04:05"),
		record.ClosedAt.Format("2006-01-02 15:04:05"),
		string(record.ExitReason),
		fmt.Sprintf("%.2f", record.RealizedPnL),
		string(record.Mode),
	}

	if err := w.csv.Write(row); err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to write trade record", err)
	}

	w.csv.Flush()

	return w.csv.Error()
}

// Close flushes and closes the underlying file.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()

	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}

	return w.file.Close()
}
