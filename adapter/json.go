package adapter

import (
	"context"
	"os"

	"github.com/cloudimpl/rowql/core"
)

func init() {
	core.RegisterSource("json", openJSON)
}

// jsonSource is the buffered JSON adapter: the whole document is
// decoded up front, which is the right tradeoff for documents small
// enough to fit the spec's per-query memory budget and lets selector
// reach anywhere in the tree. jsonStreamSource (jsonstream.go) trades
// that generality for streaming newline-delimited JSON, one document
// per line, and ignores the selector.
type jsonSource struct {
	path string
	root interface{}
}

func openJSON(path string) (core.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, notFoundErr(path, err)
	}
	defer f.Close()
	root, err := decodeJSONReader(f)
	if err != nil {
		return nil, invalidFormatErr(path, err)
	}
	return &jsonSource{path: path, root: root}, nil
}

func (s *jsonSource) Label() string { return s.path }
func (s *jsonSource) Close() error  { return nil }

func (s *jsonSource) StreamRows(ctx context.Context, selector string) (core.RowIterator, error) {
	rows, err := rowsFromDocument(s.root, selector)
	if err != nil {
		return nil, err
	}
	return &sliceRowIterator{rows: rows}, nil
}
