package adapter

import (
	"context"

	"github.com/cloudimpl/rowql/core"
)

// rowsFromDocument resolves selector against a fully-decoded document
// (its root already converted into core.Map/[]interface{}/scalar
// values) and returns the sequence of rows it names. A selector that
// resolves to a single mapping yields one row; one that resolves to a
// sequence of mappings yields each element; anything else is wrapped
// as a single-field row under "value" so scalar documents still scan.
func rowsFromDocument(root interface{}, selector string) ([]core.Row, error) {
	v, err := core.ResolveSelector(root, selector, true)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case core.Row:
		return []core.Row{t}, nil
	case []interface{}:
		out := make([]core.Row, 0, len(t))
		for _, elem := range t {
			out = append(out, toRow(elem))
		}
		return out, nil
	default:
		return []core.Row{toRow(t)}, nil
	}
}

// toRow wraps a non-mapping value so every adapter's iterator can
// promise a core.Row regardless of the document's shape at that point.
func toRow(v interface{}) core.Row {
	if row, ok := v.(core.Row); ok {
		return row
	}
	row := core.NewMap()
	row.Set("value", v)
	return row
}

// sliceRowIterator adapts an already-materialized []core.Row (the
// common case once a document has been decoded and selected into
// memory) into the streaming core.RowIterator contract.
type sliceRowIterator struct {
	rows []core.Row
	pos  int
}

func (it *sliceRowIterator) Next(ctx context.Context) (core.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if it.pos >= len(it.rows) {
		return nil, false, nil
	}
	row := it.rows[it.pos]
	it.pos++
	return row, true, nil
}
