package postgres

import (
	"context"
	"fmt"
	"time"

	"cryptoetl/internal/record"
)

const captureDateLayout = "2006-01-02"

// Append inserts one row per record. Rows are never deduplicated: appending
// the same set twice stores it twice.
func (p *PostgresClient) Append(ctx context.Context, set record.PriceRecordSet) error {
	if set.Len() == 0 {
		return nil
	}

	rows := make([]PriceRecordRow, 0, set.Len())
	for _, r := range set.Records {
		rows = append(rows, ToPriceRecordRow(r))
	}

	tx := p.DB.WithContext(ctx).Table(p.tableName).Create(&rows)
	if tx.Error != nil {
		return fmt.Errorf("insert %d price records: %w", len(rows), tx.Error)
	}
	return nil
}

func (p *PostgresClient) GetBySymbol(ctx context.Context, symbol string) ([]PriceRecordRow, error) {
	var rows []PriceRecordRow
	err := p.DB.WithContext(ctx).Table(p.tableName).
		Where("symbol = ?", symbol).
		Order("captured_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *PostgresClient) CountByCaptureDate(ctx context.Context, day time.Time) (int64, error) {
	var n int64
	err := p.DB.WithContext(ctx).Table(p.tableName).
		Where("capture_date = ?", day.UTC().Format(captureDateLayout)).
		Count(&n).Error
	return n, err
}

// ToPriceRecordRow converts a PriceRecord into a row for DB insertion.
func ToPriceRecordRow(r record.PriceRecord) PriceRecordRow {
	ts := r.CapturedAt.UTC()
	return PriceRecordRow{
		Symbol:      r.Symbol,
		CapturedAt:  ts,
		CaptureDate: ts.Format(captureDateLayout),
		Prices:      r.Prices,
	}
}
