package threshold

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the store has no entry for the symbol.
	ErrNotFound = errors.New("threshold not found")
	// ErrMalformed means an entry exists but has no usable numeric threshold.
	ErrMalformed = errors.New("malformed threshold entry")
)

// Entry is the alert trigger price for one asset.
type Entry struct {
	Symbol    string  `dynamodbav:"symbol"`
	Threshold float64 `dynamodbav:"threshold"`
}

// Source resolves the threshold of an asset symbol.
type Source interface {
	Lookup(ctx context.Context, symbol string) (Entry, error)
}

// Static returns the same threshold for every symbol without any external read.
type Static struct {
	Value float64
}

func (s Static) Lookup(_ context.Context, symbol string) (Entry, error) {
	return Entry{Symbol: symbol, Threshold: s.Value}, nil
}
