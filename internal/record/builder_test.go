package record_test

import (
	"math"
	"testing"
	"time"

	"cryptoetl/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var captured = time.Date(2024, 3, 1, 12, 30, 15, 0, time.UTC)

// go test -v --run TestBuildOneRecordPerSymbol
func TestBuildOneRecordPerSymbol(t *testing.T) {
	q := record.PriceQuote{
		"BTC":  {"USD": 17000, "EUR": 15800},
		"ETH":  {"USD": 1800},
		"DASH": {"USD": 45.2},
	}

	set, err := record.Build(q, captured)
	require.NoError(t, err)

	require.Equal(t, len(q), set.Len())
	assert.Equal(t, []string{"EUR", "USD"}, set.Columns)
	assert.Equal(t, []string{"BTC", "DASH", "ETH"}, []string{set.Records[0].Symbol, set.Records[1].Symbol, set.Records[2].Symbol})
	for _, r := range set.Records {
		assert.Equal(t, captured, r.CapturedAt)
	}
	assert.Equal(t, 15800.0, set.Records[0].Prices["EUR"])
	_, hasEUR := set.Records[2].Prices["EUR"]
	assert.False(t, hasEUR)
}

// go test -v --run TestBuildIsDeterministic
func TestBuildIsDeterministic(t *testing.T) {
	q := record.PriceQuote{"BTC": {"USD": 20000}, "ETH": {"USD": 1800, "EUR": 1700}, "REP": {"USD": 1.1}}

	first, err := record.Build(q, captured)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := record.Build(q, captured)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// go test -v --run TestBuildConvertsToUTC
func TestBuildConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	set, err := record.Build(record.PriceQuote{"BTC": {"USD": 1}}, captured.In(loc))
	require.NoError(t, err)

	assert.Equal(t, time.UTC, set.CapturedAt.Location())
	assert.True(t, captured.Equal(set.Records[0].CapturedAt))
}

// go test -v --run TestBuildRejectsMalformedQuote
func TestBuildRejectsMalformedQuote(t *testing.T) {
	cases := map[string]record.PriceQuote{
		"empty":        {},
		"no prices":    {"BTC": {}},
		"empty symbol": {"": {"USD": 1}},
		"empty quote":  {"BTC": {"": 1}},
		"nan":          {"BTC": {"USD": math.NaN()}},
		"negative":     {"BTC": {"USD": -1}},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := record.Build(q, captured)
			assert.ErrorIs(t, err, record.ErrInvalidQuote)
		})
	}
}

// go test -v --run TestQuotePrice
func TestQuotePrice(t *testing.T) {
	q := record.PriceQuote{"BTC": {"USD": 17000}}

	p, ok := q.Price("BTC", "USD")
	assert.True(t, ok)
	assert.Equal(t, 17000.0, p)

	_, ok = q.Price("BTC", "EUR")
	assert.False(t, ok)
	_, ok = q.Price("ETH", "USD")
	assert.False(t, ok)
}
