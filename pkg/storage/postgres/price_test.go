package postgres_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cryptoetl/internal/record"
	"cryptoetl/pkg/storage/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newSQLiteClient(t *testing.T) *postgres.PostgresClient {
	t.Helper()
	client, err := postgres.NewClientWithDialector(sqlite.Open(filepath.Join(t.TempDir(), "lake.db")))
	require.NoError(t, err)
	client.WithTable("crypto")
	require.NoError(t, client.AutoMigratePriceRecord())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// go test -v --run TestAppendPriceRecords
func TestAppendPriceRecords(t *testing.T) {
	client := newSQLiteClient(t)
	ctx := context.Background()

	captured := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	set, err := record.Build(record.PriceQuote{
		"BTC": {"USD": 17000, "EUR": 15800},
		"ETH": {"USD": 1800},
	}, captured)
	require.NoError(t, err)

	require.NoError(t, client.Append(ctx, set))

	rows, err := client.GetBySymbol(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]float64{"USD": 17000, "EUR": 15800}, rows[0].Prices)
	assert.Equal(t, "2024-05-06", rows[0].CaptureDate)
	assert.True(t, captured.Equal(rows[0].CapturedAt))

	n, err := client.CountByCaptureDate(ctx, captured)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

// go test -v --run TestAppendIsNotIdempotent
func TestAppendIsNotIdempotent(t *testing.T) {
	client := newSQLiteClient(t)
	ctx := context.Background()

	set, err := record.Build(record.PriceQuote{"BTC": {"USD": 20000}}, time.Now())
	require.NoError(t, err)

	require.NoError(t, client.Append(ctx, set))
	require.NoError(t, client.Append(ctx, set))

	rows, err := client.GetBySymbol(ctx, "BTC")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

// go test -v --run TestIsHealthy
func TestIsHealthy(t *testing.T) {
	client := newSQLiteClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	assert.True(t, client.IsHealthy(ctx))
}

// go test -v --run TestPostgresInvalidDSN
func TestPostgresInvalidDSN(t *testing.T) {
	invalidDSN := "host=invalid.invalid port=5432 user=fail password=fail dbname=fail sslmode=disable connect_timeout=1"

	_, err := postgres.NewClient(invalidDSN)
	if err == nil {
		t.Fatal("expected error for invalid DSN, got nil")
	}
}
