package postgres

import "time"

// PriceRecordRow is one captured asset price row. CaptureDate is the
// day partition (YYYY-MM-DD, UTC) of CapturedAt.
type PriceRecordRow struct {
	ID uint `gorm:"primaryKey"`

	Symbol      string    `gorm:"type:varchar(16);not null;index:idx_price_symbol_captured"`
	CapturedAt  time.Time `gorm:"not null;index:idx_price_symbol_captured"`
	CaptureDate string    `gorm:"type:varchar(10);not null;index:idx_price_capture_date"`

	// quote currency -> price
	Prices map[string]float64 `gorm:"serializer:json;type:text;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (PriceRecordRow) TableName() string {
	return "price_record"
}
