package record

import "time"

// PriceQuote maps an asset symbol (e.g. "BTC") to its prices keyed by quote
// currency (e.g. "USD"). It is the decoded body of one price API call.
type PriceQuote map[string]map[string]float64

// Price returns the price of symbol in quote and whether both keys exist.
func (q PriceQuote) Price(symbol, quote string) (float64, bool) {
	prices, ok := q[symbol]
	if !ok {
		return 0, false
	}
	p, ok := prices[quote]
	return p, ok
}

// PriceRecord is one row of the lake table: one asset at one capture instant.
type PriceRecord struct {
	Symbol     string             `json:"symbol"`
	Prices     map[string]float64 `json:"prices"` // quote currency -> price
	CapturedAt time.Time          `json:"captured_at"`
}

// PriceRecordSet is the tabular form of a PriceQuote.
type PriceRecordSet struct {
	Columns    []string // sorted union of quote currencies
	Records    []PriceRecord
	CapturedAt time.Time
}

// Len returns the number of rows in the set.
func (s PriceRecordSet) Len() int {
	return len(s.Records)
}
