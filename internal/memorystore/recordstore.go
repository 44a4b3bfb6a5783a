package memorystore

import (
	"context"
	"sync"

	"cryptoetl/internal/record"
)

// MemoryRecordStore is an append-only in-process lake table, used for dry
// runs. Records are kept per symbol.
type MemoryRecordStore struct {
	globalMu sync.RWMutex
	data     map[string]*symbolRecordStore
}

type symbolRecordStore struct {
	mu      sync.Mutex
	records []record.PriceRecord
}

func NewRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		data: make(map[string]*symbolRecordStore),
	}
}

// Append stores every record of set. It never deduplicates.
func (s *MemoryRecordStore) Append(_ context.Context, set record.PriceRecordSet) error {
	for _, r := range set.Records {
		s.add(r)
	}
	return nil
}

func (s *MemoryRecordStore) add(r record.PriceRecord) {
	s.globalMu.RLock()
	store, ok := s.data[r.Symbol]
	s.globalMu.RUnlock()

	if !ok {
		s.globalMu.Lock()
		if store, ok = s.data[r.Symbol]; !ok {
			store = &symbolRecordStore{}
			s.data[r.Symbol] = store
		}
		s.globalMu.Unlock()
	}

	prices := make(map[string]float64, len(r.Prices))
	for k, v := range r.Prices {
		prices[k] = v
	}
	r.Prices = prices

	store.mu.Lock()
	store.records = append(store.records, r)
	store.mu.Unlock()
}

func (s *MemoryRecordStore) GetBySymbol(symbol string) []record.PriceRecord {
	s.globalMu.RLock()
	store, ok := s.data[symbol]
	s.globalMu.RUnlock()
	if !ok {
		return nil
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	cp := make([]record.PriceRecord, len(store.records))
	copy(cp, store.records)
	return cp
}

// CountAll returns the total number of records stored across all symbols.
func (s *MemoryRecordStore) CountAll() int {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	total := 0
	for _, store := range s.data {
		store.mu.Lock()
		total += len(store.records)
		store.mu.Unlock()
	}
	return total
}
