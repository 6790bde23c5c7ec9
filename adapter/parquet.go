package adapter

import (
	"context"
	"io"
	"os"

	"github.com/cloudimpl/rowql/core"
	"github.com/parquet-go/parquet-go"
)

func init() {
	core.RegisterSource("parquet", openParquet)
}

type parquetSource struct {
	f      *os.File
	path   string
	reader *parquet.Reader
	fields []parquet.Field
}

func openParquet(path string) (core.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, notFoundErr(path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, invalidFormatErr(path, err)
	}
	pf, err := parquet.OpenFile(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, invalidFormatErr(path, err)
	}
	return &parquetSource{
		f:      f,
		path:   path,
		reader: parquet.NewReader(pf),
		fields: pf.Schema().Fields(),
	}, nil
}

func (s *parquetSource) Label() string { return s.path }
func (s *parquetSource) Close() error {
	s.reader.Close()
	return s.f.Close()
}

// StreamRows ignores selector: a Parquet file's rows are its record
// batch, one row per group of column values.
func (s *parquetSource) StreamRows(ctx context.Context, selector string) (core.RowIterator, error) {
	return &parquetIterator{src: s}, nil
}

type parquetIterator struct {
	src *parquetSource
}

func (it *parquetIterator) Next(ctx context.Context) (core.Row, bool, error) {
	raw := make(map[string]interface{})
	if err := it.src.reader.Read(&raw); err != nil {
		if err == io.EOF {
			return nil, false, nil
		}
		return nil, false, invalidFormatErr(it.src.path, err)
	}
	row := core.NewMap()
	for _, f := range it.src.fields {
		v, ok := raw[f.Name()]
		if !ok {
			continue
		}
		row.Set(f.Name(), normalizeParquetValue(v))
	}
	return row, true, nil
}

func normalizeParquetValue(v interface{}) interface{} {
	switch t := v.(type) {
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	default:
		return t
	}
}
