package market

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// symbolKey identifies one instrument. Brokers reuse trading symbols
// across segments, so the name alone is ambiguous.
type symbolKey struct {
	segment string
	name    string
}

// SymbolMaster is the broker instrument list, loaded once at startup and
// immutable afterwards. Instruments are keyed by (segment, name).
type SymbolMaster struct {
	byKey map[symbolKey]types.Symbol
}

// LoadSymbolMaster reads the symbol master CSV. Expected columns: name,
// segment, exchange, token, lot_size, tick_size.
func LoadSymbolMaster(ctx context.Context, path string) (*SymbolMaster, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataUnavailable, "failed to open duckdb", err)
	}
	defer db.Close()

	query := fmt.Sprintf(
		"SELECT name, segment, exchange, token, lot_size, tick_size FROM read_csv_auto('%s')", path)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataUnavailable, err,
			"failed to read symbol master %s", path)
	}
	defer rows.Close()

	master := &SymbolMaster{byKey: make(map[symbolKey]types.Symbol)}
	for rows.Next() {
		var sym types.Symbol
		if err := rows.Scan(&sym.Name, &sym.Segment, &sym.Exchange, &sym.Token, &sym.LotSize, &sym.TickSize); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol row", err)
		}

		if err := sym.Validate(); err != nil {
			return nil, err
		}

		master.byKey[symbolKey{segment: sym.Segment, name: sym.Name}] = sym
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "symbol master iteration failed", err)
	}

	return master, nil
}

// NewSymbolMasterFromList builds a master from an in-memory list. Used in
// tests and by callers that fetch instruments from a broker API.
func NewSymbolMasterFromList(symbols []types.Symbol) *SymbolMaster {
	master := &SymbolMaster{byKey: make(map[symbolKey]types.Symbol, len(symbols))}
	for _, sym := range symbols {
		master.byKey[symbolKey{segment: sym.Segment, name: sym.Name}] = sym
	}

	return master
}

// Get looks up a symbol by segment and name.
func (m *SymbolMaster) Get(segment, name string) (types.Symbol, error) {
	sym, ok := m.byKey[symbolKey{segment: segment, name: name}]
	if !ok {
		return types.Symbol{}, errors.Newf(errors.ErrCodeSymbolNotFound, "symbol %s:%s not in master", segment, name)
	}

	return sym, nil
}

// Len returns the number of instruments loaded.
func (m *SymbolMaster) Len() int {
	return len(m.byKey)
}
