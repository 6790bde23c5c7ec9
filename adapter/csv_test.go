package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudimpl/rowql/core"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func drainSource(t *testing.T, src core.Source, selector string) []core.Row {
	t.Helper()
	it, err := src.StreamRows(context.Background(), selector)
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	var out []core.Row
	for {
		row, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, row)
	}
	return out
}

func TestCSVAdapterReadsTypedColumns(t *testing.T) {
	path := writeTempFile(t, "people.csv", "name,age,active\nalice,30,true\nbob,25,false\n")

	src, err := openCSV(path)
	if err != nil {
		t.Fatalf("openCSV: %v", err)
	}
	defer src.Close()

	rows := drainSource(t, src, "")
	if len(rows) != 2 {
		t.Fatalf("rows = %v, want 2", rows)
	}
	name, _ := rows[0].Get("name")
	age, _ := rows[0].Get("age")
	active, _ := rows[0].Get("active")
	if name != "alice" || age != int64(30) || active != true {
		t.Errorf("row[0] = name=%v age=%v(%T) active=%v, want alice/30/true", name, age, age, active)
	}
}

func TestCSVAdapterEmptyFile(t *testing.T) {
	path := writeTempFile(t, "empty.csv", "")

	src, err := openCSV(path)
	if err != nil {
		t.Fatalf("openCSV: %v", err)
	}
	defer src.Close()

	rows := drainSource(t, src, "")
	if len(rows) != 0 {
		t.Errorf("rows = %v, want none for an empty file", rows)
	}
}

func TestCSVAdapterMissingFile(t *testing.T) {
	_, err := openCSV("/nonexistent/path.csv")
	if err == nil {
		t.Fatal("expected error opening a nonexistent CSV file")
	}
	if core.Kind(err) != core.KindFileNotFound {
		t.Errorf("Kind(err) = %v, want KindFileNotFound", core.Kind(err))
	}
}

func TestCSVAdapterRaggedRows(t *testing.T) {
	path := writeTempFile(t, "ragged.csv", "a,b,c\n1,2\n")

	src, err := openCSV(path)
	if err != nil {
		t.Fatalf("openCSV: %v", err)
	}
	defer src.Close()

	rows := drainSource(t, src, "")
	c, ok := rows[0].Get("c")
	if !ok || c != "" {
		t.Errorf("missing trailing column = (%v, %v), want (\"\", true)", c, ok)
	}
}
