// Package adapter implements the format-adapter contract (core.Source)
// for every document format the engine can scan: CSV, XML, JSON
// (buffered and streaming), YAML, NEON, Parquet, and plain HTTP range
// reads of a remote file.
package adapter

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/cloudimpl/rowql/core"
)

func init() {
	core.RegisterSource("csv", openCSV)
}

type csvSource struct {
	f      *os.File
	header []string
	r      *csv.Reader
	path   string
}

func openCSV(path string) (core.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, notFoundErr(path, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return &csvSource{f: f, header: nil, r: r, path: path}, nil
		}
		return nil, invalidFormatErr(path, err)
	}
	return &csvSource{f: f, header: header, r: r, path: path}, nil
}

func (s *csvSource) Label() string { return s.path }
func (s *csvSource) Close() error  { return s.f.Close() }

// StreamRows ignores selector: a CSV file's rows live at the
// document root, one object per line.
func (s *csvSource) StreamRows(ctx context.Context, selector string) (core.RowIterator, error) {
	return &csvIterator{src: s}, nil
}

type csvIterator struct {
	src *csvSource
}

func (it *csvIterator) Next(ctx context.Context) (core.Row, bool, error) {
	if it.src.header == nil {
		return nil, false, nil
	}
	record, err := it.src.r.Read()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, invalidFormatErr(it.src.path, err)
	}
	row := core.NewMap()
	for i, col := range it.src.header {
		var raw string
		if i < len(record) {
			raw = record[i]
		}
		row.Set(col, core.CoerceScalar(raw))
	}
	return row, true, nil
}
