package record

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidQuote marks a price payload that cannot be turned into records.
var ErrInvalidQuote = errors.New("invalid price quote")

// Build reshapes q into one record per asset symbol, all stamped with
// capturedAt in UTC. Records are ordered by symbol and Columns by name, so
// identical inputs always give identical sets.
func Build(q PriceQuote, capturedAt time.Time) (PriceRecordSet, error) {
	if len(q) == 0 {
		return PriceRecordSet{}, fmt.Errorf("%w: no symbols", ErrInvalidQuote)
	}

	ts := capturedAt.UTC()

	symbols := make([]string, 0, len(q))
	for symbol := range q {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	columnSet := map[string]struct{}{}
	records := make([]PriceRecord, 0, len(symbols))
	for _, symbol := range symbols {
		if symbol == "" {
			return PriceRecordSet{}, fmt.Errorf("%w: empty symbol", ErrInvalidQuote)
		}
		prices := q[symbol]
		if len(prices) == 0 {
			return PriceRecordSet{}, fmt.Errorf("%w: symbol %s has no prices", ErrInvalidQuote, symbol)
		}

		row := make(map[string]float64, len(prices))
		for quote, price := range prices {
			if quote == "" {
				return PriceRecordSet{}, fmt.Errorf("%w: symbol %s has an empty quote currency", ErrInvalidQuote, symbol)
			}
			if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
				return PriceRecordSet{}, fmt.Errorf("%w: %s/%s price %v", ErrInvalidQuote, symbol, quote, price)
			}
			row[quote] = price
			columnSet[quote] = struct{}{}
		}

		records = append(records, PriceRecord{
			Symbol:     symbol,
			Prices:     row,
			CapturedAt: ts,
		})
	}

	columns := make([]string, 0, len(columnSet))
	for c := range columnSet {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	return PriceRecordSet{
		Columns:    columns,
		Records:    records,
		CapturedAt: ts,
	}, nil
}
