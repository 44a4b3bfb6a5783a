package lake

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
)

const (
	parquetInputFormat  = "org.apache.hadoop.hive.ql.io.parquet.MapredParquetInputFormat"
	parquetOutputFormat = "org.apache.hadoop.hive.ql.io.parquet.MapredParquetOutputFormat"
	parquetSerde        = "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe"

	partitionColumn = "dt"
)

// GlueAPI is the subset of the Glue client used by Catalog.
type GlueAPI interface {
	GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
	CreateTable(ctx context.Context, params *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error)
	UpdateTable(ctx context.Context, params *glue.UpdateTableInput, optFns ...func(*glue.Options)) (*glue.UpdateTableOutput, error)
	CreatePartition(ctx context.Context, params *glue.CreatePartitionInput, optFns ...func(*glue.Options)) (*glue.CreatePartitionOutput, error)
}

// Catalog keeps the Glue table definition in step with the parquet files
// written under Location.
type Catalog struct {
	client   GlueAPI
	database string
	table    string
	location string // s3://bucket/prefix/
}

func NewCatalog(client GlueAPI, database, table, location string) *Catalog {
	return &Catalog{client: client, database: database, table: table, location: location}
}

func dataColumns(quotes []string) []types.Column {
	cols := []types.Column{
		{Name: aws.String(symbolColumn), Type: aws.String("string")},
	}
	for _, q := range quotes {
		cols = append(cols, types.Column{Name: aws.String(columnName(q)), Type: aws.String("double")})
	}
	return append(cols, types.Column{Name: aws.String(timeColumn), Type: aws.String("timestamp")})
}

func (c *Catalog) storageDescriptor(location string, cols []types.Column) *types.StorageDescriptor {
	return &types.StorageDescriptor{
		Columns:      cols,
		Location:     aws.String(location),
		InputFormat:  aws.String(parquetInputFormat),
		OutputFormat: aws.String(parquetOutputFormat),
		SerdeInfo: &types.SerDeInfo{
			SerializationLibrary: aws.String(parquetSerde),
			Parameters:           map[string]string{"serialization.format": "1"},
		},
	}
}

func (c *Catalog) tableInput(cols []types.Column) *types.TableInput {
	return &types.TableInput{
		Name:      aws.String(c.table),
		TableType: aws.String("EXTERNAL_TABLE"),
		Parameters: map[string]string{
			"classification":  "parquet",
			"compressionType": "snappy",
			"EXTERNAL":        "TRUE",
		},
		PartitionKeys: []types.Column{
			{Name: aws.String(partitionColumn), Type: aws.String("string")},
		},
		StorageDescriptor: c.storageDescriptor(c.location, cols),
	}
}

// EnsureTable creates the table when missing and appends any quote
// currency columns it does not know yet. Existing columns are never dropped.
func (c *Catalog) EnsureTable(ctx context.Context, quotes []string) error {
	want := dataColumns(quotes)

	out, err := c.client.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(c.database),
		Name:         aws.String(c.table),
	})
	if err != nil {
		var notFound *types.EntityNotFoundException
		if !errors.As(err, &notFound) {
			return fmt.Errorf("get table %s.%s: %w", c.database, c.table, err)
		}
		_, err = c.client.CreateTable(ctx, &glue.CreateTableInput{
			DatabaseName: aws.String(c.database),
			TableInput:   c.tableInput(want),
		})
		var exists *types.AlreadyExistsException
		if err != nil && !errors.As(err, &exists) {
			return fmt.Errorf("create table %s.%s: %w", c.database, c.table, err)
		}
		return nil
	}

	var existing []types.Column
	if out.Table != nil && out.Table.StorageDescriptor != nil {
		existing = out.Table.StorageDescriptor.Columns
	}
	merged, changed := mergeColumns(existing, want)
	if !changed {
		return nil
	}

	_, err = c.client.UpdateTable(ctx, &glue.UpdateTableInput{
		DatabaseName: aws.String(c.database),
		TableInput:   c.tableInput(merged),
	})
	if err != nil {
		return fmt.Errorf("update table %s.%s: %w", c.database, c.table, err)
	}
	return nil
}

// AddPartition registers dt=value. A partition that already exists is fine.
func (c *Catalog) AddPartition(ctx context.Context, value string, quotes []string) error {
	location := fmt.Sprintf("%s%s=%s/", c.location, partitionColumn, value)

	_, err := c.client.CreatePartition(ctx, &glue.CreatePartitionInput{
		DatabaseName: aws.String(c.database),
		TableName:    aws.String(c.table),
		PartitionInput: &types.PartitionInput{
			Values:            []string{value},
			StorageDescriptor: c.storageDescriptor(location, dataColumns(quotes)),
		},
	})
	if err != nil {
		var exists *types.AlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("create partition %s=%s: %w", partitionColumn, value, err)
	}
	return nil
}

// mergeColumns keeps existing columns in order and inserts unknown ones
// before the trailing time column.
func mergeColumns(existing, want []types.Column) ([]types.Column, bool) {
	if len(existing) == 0 {
		return want, true
	}

	known := make(map[string]bool, len(existing))
	for _, col := range existing {
		known[aws.ToString(col.Name)] = true
	}

	var added []types.Column
	for _, col := range want {
		if !known[aws.ToString(col.Name)] {
			added = append(added, col)
		}
	}
	if len(added) == 0 {
		return existing, false
	}

	merged := make([]types.Column, 0, len(existing)+len(added))
	var tail []types.Column
	for _, col := range existing {
		if aws.ToString(col.Name) == timeColumn {
			tail = append(tail, col)
			continue
		}
		merged = append(merged, col)
	}
	for _, col := range added {
		if aws.ToString(col.Name) == timeColumn {
			tail = append(tail, col)
			continue
		}
		merged = append(merged, col)
	}
	return append(merged, tail...), true
}
