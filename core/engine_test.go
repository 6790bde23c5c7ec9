package core

import (
	"context"
	"testing"
)

// memSource is a fake core.Source backed by an in-memory row slice, used
// by engine tests in place of a real file adapter.
type memSource struct {
	label string
	rows  []Row
}

func (s *memSource) Label() string { return s.label }
func (s *memSource) Close() error  { return nil }

func (s *memSource) StreamRows(ctx context.Context, selector string) (RowIterator, error) {
	return &sliceIterator{rows: s.rows}, nil
}

type sliceIterator struct {
	rows []Row
	pos  int
}

func (it *sliceIterator) Next(ctx context.Context) (Row, bool, error) {
	if it.pos >= len(it.rows) {
		return nil, false, nil
	}
	row := it.rows[it.pos]
	it.pos++
	return row, true, nil
}

func peopleSource() *memSource {
	return &memSource{
		label: "people",
		rows: []Row{
			rowFrom("name", "alice", "age", int64(30), "dept", "eng"),
			rowFrom("name", "bob", "age", int64(25), "dept", "eng"),
			rowFrom("name", "carol", "age", int64(40), "dept", "sales"),
		},
	}
}

func TestExecuteSimpleFilter(t *testing.T) {
	q, err := Parse("SELECT name FROM '' WHERE age > 28")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	results, err := q.Execute(context.Background(), peopleSource())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if results.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (alice and carol)", results.Len())
	}
	names := map[string]bool{}
	for _, row := range results.Rows() {
		v, _ := row.Get("name")
		names[v.(string)] = true
	}
	if !names["alice"] || !names["carol"] {
		t.Errorf("rows = %v, want alice and carol", names)
	}
}

func TestExecuteAggregateWithHaving(t *testing.T) {
	q, err := Parse("SELECT dept, COUNT(*) AS n FROM '' GROUP BY dept HAVING n > 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	results, err := q.Execute(context.Background(), peopleSource())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if results.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (only eng has n > 1)", results.Len())
	}
	row := results.Rows()[0]
	dept, _ := row.Get("dept")
	n, _ := row.Get("n")
	if dept != "eng" || n != int64(2) {
		t.Errorf("row = dept=%v n=%v, want dept=eng n=2", dept, n)
	}
}

func TestExecuteOrderByAndLimit(t *testing.T) {
	q, err := Parse("SELECT name, age FROM '' ORDER BY age DESC LIMIT 2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	results, err := q.Execute(context.Background(), peopleSource())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if results.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", results.Len())
	}
	first, _ := results.Rows()[0].Get("name")
	if first != "carol" {
		t.Errorf("first row name = %v, want carol (oldest first)", first)
	}
}

func TestExecuteDistinct(t *testing.T) {
	q, err := Parse("SELECT DISTINCT dept FROM ''")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	results, err := q.Execute(context.Background(), peopleSource())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if results.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 distinct departments", results.Len())
	}
}

func TestExecuteInnerJoin(t *testing.T) {
	left := &memSource{rows: []Row{
		rowFrom("id", int64(1), "name", "alice"),
		rowFrom("id", int64(2), "name", "bob"),
	}}

	q := New().Select("name").InnerJoin("dummy", "r").On("id", OpEq, "r.uid")
	rows, err := q.scan(context.Background(), left)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	joined, _, err := runJoinRows(rows, []Row{rowFrom("uid", int64(1), "role", "admin")}, q.Joins[0])
	if err != nil {
		t.Fatalf("runJoinRows: %v", err)
	}
	if len(joined) != 1 {
		t.Fatalf("joined rows = %d, want 1 (only id=1 matches)", len(joined))
	}
	nested, ok := joined[0].Get("r")
	if !ok {
		t.Fatal("joined row missing alias field \"r\"")
	}
	role, _ := nested.(Row).Get("role")
	if role != "admin" {
		t.Errorf("joined role = %v, want admin", role)
	}
}

func TestExecuteMissingFromErrors(t *testing.T) {
	q := New().Select("name")
	_, err := q.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected missing FROM error when no default source is given")
	}
}

func TestExecutePropagatesBuilderError(t *testing.T) {
	q := New().Select("name").As("") // empty alias is invalid
	_, err := q.Execute(context.Background(), peopleSource())
	if err == nil {
		t.Fatal("expected builder error (empty alias) to surface from Execute")
	}
}

func TestApplyLimitOffset(t *testing.T) {
	rows := []Row{rowFrom("n", int64(1)), rowFrom("n", int64(2)), rowFrom("n", int64(3))}

	got := applyLimitOffset(rows, 1, true, 1)
	if len(got) != 1 {
		t.Fatalf("applyLimitOffset = %v, want 1 row", got)
	}
	v, _ := got[0].Get("n")
	if v != int64(2) {
		t.Errorf("row = %v, want n=2 (offset 1, limit 1)", v)
	}

	got = applyLimitOffset(rows, 10, true, 1)
	if len(got) != 0 {
		t.Errorf("offset beyond length should yield no rows, got %v", got)
	}
}

func TestDedupRows(t *testing.T) {
	rows := []Row{
		rowFrom("a", int64(1)),
		rowFrom("a", int64(1)),
		rowFrom("a", int64(2)),
	}
	got := dedupRows(rows)
	if len(got) != 2 {
		t.Fatalf("dedupRows = %v, want 2 unique rows", got)
	}
}
