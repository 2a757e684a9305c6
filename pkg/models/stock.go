// Package models defines the core data structures shared by the newsquant
// pipeline stages: raw payloads, normalized tables and classified errors.
package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// Candle represents a single OHLCV bar as returned by a market-data provider.
// Providers emit nulls for bars without trades, so every value is nullable.
type Candle struct {
	Timestamp time.Time  `json:"timestamp"` // carries the exchange offset
	Open      null.Float `json:"open"`
	High      null.Float `json:"high"`
	Low       null.Float `json:"low"`
	Close     null.Float `json:"close"`
	AdjClose  null.Float `json:"adj_close"`
	Volume    null.Int   `json:"volume"`
}

// MarketSeries is a time-indexed candle series for one symbol.
type MarketSeries struct {
	Symbol      string   `json:"symbol"`   // e.g., "AAPL"
	Currency    string   `json:"currency"` // e.g., "USD"
	Timezone    string   `json:"timezone"` // exchange timezone name, e.g., "America/New_York"
	Period      string   `json:"period"`
	Interval    string   `json:"interval"`
	HasAdjClose bool     `json:"has_adj_close"`
	Candles     []Candle `json:"candles"`
}

// Len returns the number of candles in the series.
func (s *MarketSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candles)
}
