package lake

import (
	"context"
	"fmt"
	"strings"

	"cryptoetl/internal/record"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const partitionLayout = "2006-01-02"

// Writer appends record sets to a parquet dataset on S3 registered in the
// Glue catalog: s3://bucket/prefix/dt=YYYY-MM-DD/<uuid>.snappy.parquet.
// Every Append writes a new object, so repeated appends accumulate rows.
type Writer struct {
	s3      PutObjectAPI
	catalog *Catalog
	bucket  string
	prefix  string
	newID   func() string
	logger  *zap.Logger
}

func NewWriter(s3Client PutObjectAPI, glueClient GlueAPI, bucket, prefix, database, table string, logger *zap.Logger) *Writer {
	prefix = strings.Trim(prefix, "/")
	location := fmt.Sprintf("s3://%s/", bucket)
	if prefix != "" {
		location += prefix + "/"
	}
	return &Writer{
		s3:      s3Client,
		catalog: NewCatalog(glueClient, database, table, location),
		bucket:  bucket,
		prefix:  prefix,
		newID:   uuid.NewString,
		logger:  logger,
	}
}

func (w *Writer) objectKey(partition string) string {
	name := fmt.Sprintf("%s=%s/%s.snappy.parquet", partitionColumn, partition, w.newID())
	if w.prefix == "" {
		return name
	}
	return w.prefix + "/" + name
}

func (w *Writer) Append(ctx context.Context, set record.PriceRecordSet) error {
	if set.Len() == 0 {
		return nil
	}

	body, err := EncodeParquet(set)
	if err != nil {
		return fmt.Errorf("encode parquet: %w", err)
	}

	partition := set.CapturedAt.UTC().Format(partitionLayout)
	key := w.objectKey(partition)
	if err := putParquet(ctx, w.s3, w.bucket, key, body); err != nil {
		return err
	}

	if err := w.catalog.EnsureTable(ctx, set.Columns); err != nil {
		return err
	}
	if err := w.catalog.AddPartition(ctx, partition, set.Columns); err != nil {
		return err
	}

	w.logger.Info("table in data lake successfully updated",
		zap.String("table", w.catalog.database+"."+w.catalog.table),
		zap.String("key", key),
		zap.Int("rows", set.Len()))
	return nil
}
