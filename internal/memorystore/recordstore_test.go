package memorystore

import (
	"context"
	"sync"
	"testing"
	"time"

	"cryptoetl/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestAppendKeepsDuplicates
func TestAppendKeepsDuplicates(t *testing.T) {
	store := NewRecordStore()
	set, err := record.Build(record.PriceQuote{"BTC": {"USD": 17000}, "ETH": {"USD": 1800}}, time.Now())
	require.NoError(t, err)

	require.NoError(t, store.Append(context.Background(), set))
	require.NoError(t, store.Append(context.Background(), set))

	assert.Equal(t, 4, store.CountAll())
	assert.Len(t, store.GetBySymbol("BTC"), 2)
	assert.Nil(t, store.GetBySymbol("DASH"))
}

// go test -v --run TestAppendConcurrent
func TestAppendConcurrent(t *testing.T) {
	store := NewRecordStore()
	set, err := record.Build(record.PriceQuote{"BTC": {"USD": 1}, "ETH": {"USD": 2}, "REP": {"USD": 3}}, time.Now())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(context.Background(), set)
		}()
	}
	wg.Wait()

	assert.Equal(t, 150, store.CountAll())
}
