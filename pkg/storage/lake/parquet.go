package lake

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"cryptoetl/internal/record"

	"github.com/parquet-go/parquet-go"
)

const (
	symbolColumn = "symbol"
	timeColumn   = "time"
)

// columnName maps a quote currency to its lake column ("USD" -> "usd").
// Glue lower-cases column names, so the file does too.
func columnName(quote string) string {
	return strings.ToLower(quote)
}

// schemaFor builds the parquet schema of set: required symbol and time
// columns plus one optional double per quote currency.
func schemaFor(set record.PriceRecordSet) (*parquet.Schema, []string, error) {
	group := parquet.Group{
		symbolColumn: parquet.String(),
		timeColumn:   parquet.Timestamp(parquet.Millisecond),
	}
	for _, q := range set.Columns {
		name := columnName(q)
		if _, taken := group[name]; taken || name == partitionColumn {
			return nil, nil, fmt.Errorf("quote currency %q collides with column %q", q, name)
		}
		group[name] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
	}

	// Leaf columns of a group are laid out in field name order.
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	sort.Strings(names)

	return parquet.NewSchema("price_record", group), names, nil
}

// EncodeParquet renders set as one snappy-compressed parquet file.
func EncodeParquet(set record.PriceRecordSet) ([]byte, error) {
	schema, names, err := schemaFor(set)
	if err != nil {
		return nil, err
	}

	quoteByColumn := make(map[string]string, len(set.Columns))
	for _, q := range set.Columns {
		quoteByColumn[columnName(q)] = q
	}

	rows := make([]parquet.Row, 0, set.Len())
	for _, r := range set.Records {
		row := make(parquet.Row, len(names))
		for i, name := range names {
			switch name {
			case symbolColumn:
				row[i] = parquet.ByteArrayValue([]byte(r.Symbol)).Level(0, 0, i)
			case timeColumn:
				row[i] = parquet.Int64Value(r.CapturedAt.UTC().UnixMilli()).Level(0, 0, i)
			default:
				price, ok := r.Prices[quoteByColumn[name]]
				if !ok {
					row[i] = parquet.NullValue().Level(0, 0, i)
					continue
				}
				row[i] = parquet.DoubleValue(price).Level(0, 1, i)
			}
		}
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, schema, parquet.Compression(&parquet.Snappy))
	if _, err := w.WriteRows(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
