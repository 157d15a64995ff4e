package types

import "time"

// Interval is the bar interval of a price series.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
)

// MarketData is a single OHLCV bar for a symbol. Series are always ordered
// oldest first.
type MarketData struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Touches reports whether the given price level falls within the bar's range.
func (m MarketData) Touches(price float64) bool {
	return price >= m.Low && price <= m.High
}
