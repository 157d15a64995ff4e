package types

import "fmt"

// PairKey identifies a (symbol, strategy) combination. Positions and
// backtest checkpoints are tracked independently per pair.
type PairKey struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Strategy string `yaml:"strategy" json:"strategy"`
}

func NewPairKey(symbol, strategy string) PairKey {
	return PairKey{Symbol: symbol, Strategy: strategy}
}

// String returns a filesystem-safe identifier for the pair.
func (k PairKey) String() string {
	return fmt.Sprintf("%s_%s", k.Symbol, k.Strategy)
}
