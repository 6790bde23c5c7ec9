package cli

import (
	"fmt"
	"io"

	"github.com/cloudimpl/rowql/core"
	"github.com/olekukonko/tablewriter"
	"github.com/segmentio/encoding/json"
)

// renderTable writes rows as an ASCII table to w, columns ordered by
// first appearance across the result set.
func renderTable(w io.Writer, rows []core.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}
	cols := columnOrder(rows)
	table := tablewriter.NewWriter(w)
	table.SetHeader(cols)
	for _, row := range rows {
		rec := make([]string, len(cols))
		for i, c := range cols {
			v, _ := row.Get(c)
			rec[i] = fmt.Sprint(v)
		}
		table.Append(rec)
	}
	table.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

// renderJSON writes rows as a JSON array, using segmentio/encoding's
// faster encoder since this is the CLI's bulk output path.
func renderJSON(w io.Writer, rows []core.Row) error {
	docs := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		doc := make(map[string]interface{}, row.Len())
		for _, k := range row.Keys() {
			v, _ := row.Get(k)
			doc[k] = v
		}
		docs[i] = doc
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

func columnOrder(rows []core.Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for _, k := range row.Keys() {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}
