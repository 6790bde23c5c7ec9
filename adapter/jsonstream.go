package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/cloudimpl/rowql/core"
)

func init() {
	core.RegisterSource("jsonstream", openJSONStream)
}

// jsonStreamSource reads newline-delimited JSON (one document per
// line) with encoding/json.Decoder.Token, decoding and yielding one
// row at a time so a multi-gigabyte log never has to fit in memory at
// once - unlike jsonSource, which needs the whole tree for selector to
// reach arbitrary paths.
type jsonStreamSource struct {
	f    *os.File
	path string
}

func openJSONStream(path string) (core.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, notFoundErr(path, err)
	}
	return &jsonStreamSource{f: f, path: path}, nil
}

func (s *jsonStreamSource) Label() string { return s.path }
func (s *jsonStreamSource) Close() error  { return s.f.Close() }

// StreamRows ignores selector: an NDJSON file's rows are its lines.
func (s *jsonStreamSource) StreamRows(ctx context.Context, selector string) (core.RowIterator, error) {
	return &jsonStreamIterator{path: s.path, scanner: bufio.NewScanner(s.f)}, nil
}

type jsonStreamIterator struct {
	path    string
	scanner *bufio.Scanner
}

func (it *jsonStreamIterator) Next(ctx context.Context) (core.Row, bool, error) {
	for it.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		line := strings.TrimSpace(it.scanner.Text())
		if line == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		v, err := decodeJSONValue(dec)
		if err != nil {
			return nil, false, invalidFormatErr(it.path, err)
		}
		return toRow(v), true, nil
	}
	if err := it.scanner.Err(); err != nil && err != io.EOF {
		return nil, false, invalidFormatErr(it.path, err)
	}
	return nil, false, nil
}
