package lake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"cryptoetl/internal/record"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var captured = time.Date(2024, 2, 29, 23, 59, 30, 0, time.UTC)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

type fakeGlue struct {
	table      *types.TableInput
	partitions map[string]bool
	creates    int
	updates    int
}

func (f *fakeGlue) GetTable(_ context.Context, in *glue.GetTableInput, _ ...func(*glue.Options)) (*glue.GetTableOutput, error) {
	if f.table == nil {
		return nil, &types.EntityNotFoundException{Message: aws.String("table not found")}
	}
	return &glue.GetTableOutput{Table: &types.Table{
		Name:              f.table.Name,
		StorageDescriptor: f.table.StorageDescriptor,
		PartitionKeys:     f.table.PartitionKeys,
	}}, nil
}

func (f *fakeGlue) CreateTable(_ context.Context, in *glue.CreateTableInput, _ ...func(*glue.Options)) (*glue.CreateTableOutput, error) {
	f.creates++
	f.table = in.TableInput
	return &glue.CreateTableOutput{}, nil
}

func (f *fakeGlue) UpdateTable(_ context.Context, in *glue.UpdateTableInput, _ ...func(*glue.Options)) (*glue.UpdateTableOutput, error) {
	f.updates++
	f.table = in.TableInput
	return &glue.UpdateTableOutput{}, nil
}

func (f *fakeGlue) CreatePartition(_ context.Context, in *glue.CreatePartitionInput, _ ...func(*glue.Options)) (*glue.CreatePartitionOutput, error) {
	if f.partitions == nil {
		f.partitions = map[string]bool{}
	}
	v := in.PartitionInput.Values[0]
	if f.partitions[v] {
		return nil, &types.AlreadyExistsException{Message: aws.String("partition exists")}
	}
	f.partitions[v] = true
	return &glue.CreatePartitionOutput{}, nil
}

func columnNames(cols []types.Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, aws.ToString(c.Name))
	}
	return out
}

func mustBuild(t *testing.T, q record.PriceQuote) record.PriceRecordSet {
	t.Helper()
	set, err := record.Build(q, captured)
	require.NoError(t, err)
	return set
}

// go test -v --run TestEncodeParquet
func TestEncodeParquet(t *testing.T) {
	set := mustBuild(t, record.PriceQuote{
		"BTC": {"USD": 17000, "EUR": 15800},
		"ETH": {"USD": 1800},
	})

	data, err := EncodeParquet(set)
	require.NoError(t, err)

	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.NumRows())
	assert.Equal(t, [][]string{{"eur"}, {"symbol"}, {"time"}, {"usd"}}, f.Schema().Columns())

	rows := f.RowGroups()[0].Rows()
	defer rows.Close()
	buf := make([]parquet.Row, 2)
	n, err := rows.ReadRows(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		require.NoError(t, err)
	}
	require.Equal(t, 2, n)

	assert.Equal(t, "BTC", string(buf[0][1].ByteArray()))
	assert.Equal(t, 15800.0, buf[0][0].Double())
	assert.Equal(t, captured.UnixMilli(), buf[0][2].Int64())
	assert.Equal(t, "ETH", string(buf[1][1].ByteArray()))
	assert.True(t, buf[1][0].IsNull())
	assert.Equal(t, 1800.0, buf[1][3].Double())
}

// go test -v --run TestEncodeParquetColumnCollision
func TestEncodeParquetColumnCollision(t *testing.T) {
	for _, quote := range []string{"TIME", "Symbol", "DT", "dt"} {
		t.Run(quote, func(t *testing.T) {
			set := mustBuild(t, record.PriceQuote{"BTC": {quote: 1}})

			_, err := EncodeParquet(set)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "collides")
		})
	}
}

// go test -v --run TestWriterAppend
func TestWriterAppend(t *testing.T) {
	s3c := &fakeS3{}
	gc := &fakeGlue{}
	w := NewWriter(s3c, gc, "prefectdata", "/crypto/", "default", "crypto", zaptest.NewLogger(t))
	ids := []string{"a", "b"}
	w.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	set := mustBuild(t, record.PriceQuote{"BTC": {"USD": 17000}, "ETH": {"USD": 1800}})
	require.NoError(t, w.Append(context.Background(), set))
	require.NoError(t, w.Append(context.Background(), set))

	assert.Contains(t, s3c.objects, "prefectdata/crypto/dt=2024-02-29/a.snappy.parquet")
	assert.Contains(t, s3c.objects, "prefectdata/crypto/dt=2024-02-29/b.snappy.parquet")

	require.NotNil(t, gc.table)
	assert.Equal(t, 1, gc.creates)
	assert.Equal(t, 0, gc.updates)
	assert.Equal(t, "s3://prefectdata/crypto/", aws.ToString(gc.table.StorageDescriptor.Location))
	assert.Equal(t, []string{"symbol", "usd", "time"}, columnNames(gc.table.StorageDescriptor.Columns))
	assert.Equal(t, []string{"dt"}, columnNames(gc.table.PartitionKeys))
	assert.True(t, gc.partitions["2024-02-29"])
}

// go test -v --run TestWriterAddsNewQuoteColumns
func TestWriterAddsNewQuoteColumns(t *testing.T) {
	gc := &fakeGlue{}
	w := NewWriter(&fakeS3{}, gc, "bucket", "crypto", "default", "crypto", zaptest.NewLogger(t))

	require.NoError(t, w.Append(context.Background(), mustBuild(t, record.PriceQuote{"BTC": {"USD": 1}})))
	require.NoError(t, w.Append(context.Background(), mustBuild(t, record.PriceQuote{"BTC": {"USD": 1, "EUR": 2}})))

	assert.Equal(t, 1, gc.updates)
	assert.Equal(t, []string{"symbol", "usd", "eur", "time"}, columnNames(gc.table.StorageDescriptor.Columns))
}

// go test -v --run TestWriterS3Failure
func TestWriterS3Failure(t *testing.T) {
	gc := &fakeGlue{}
	w := NewWriter(&fakeS3{err: errors.New("access denied")}, gc, "bucket", "crypto", "default", "crypto", zaptest.NewLogger(t))

	err := w.Append(context.Background(), mustBuild(t, record.PriceQuote{"BTC": {"USD": 1}}))
	require.Error(t, err)
	assert.Nil(t, gc.table)
}
