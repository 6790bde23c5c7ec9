package adapter

import (
	"strings"
	"testing"

	"github.com/cloudimpl/rowql/core"
)

func TestDecodeJSONReaderPreservesKeyOrder(t *testing.T) {
	root, err := decodeJSONReader(strings.NewReader(`{"z":1,"a":2,"m":3}`))
	if err != nil {
		t.Fatalf("decodeJSONReader: %v", err)
	}
	m, ok := root.(*core.Map)
	if !ok {
		t.Fatalf("root = %T, want *core.Map", root)
	}
	want := []string{"z", "a", "m"}
	got := m.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDecodeJSONReaderNumberKinds(t *testing.T) {
	root, err := decodeJSONReader(strings.NewReader(`{"i":42,"f":3.5}`))
	if err != nil {
		t.Fatalf("decodeJSONReader: %v", err)
	}
	m := root.(*core.Map)
	i, _ := m.Get("i")
	f, _ := m.Get("f")
	if i != int64(42) {
		t.Errorf("i = %v (%T), want int64(42)", i, i)
	}
	if f != 3.5 {
		t.Errorf("f = %v (%T), want 3.5", f, f)
	}
}

func TestDecodeJSONReaderNestedArray(t *testing.T) {
	root, err := decodeJSONReader(strings.NewReader(`{"items":[{"id":1},{"id":2}]}`))
	if err != nil {
		t.Fatalf("decodeJSONReader: %v", err)
	}
	m := root.(*core.Map)
	items, _ := m.Get("items")
	arr, ok := items.([]interface{})
	if !ok || len(arr) != 2 {
		t.Fatalf("items = %v, want a 2-element slice", items)
	}
}

func TestDecodeJSONReaderEmptyArray(t *testing.T) {
	root, err := decodeJSONReader(strings.NewReader(`[]`))
	if err != nil {
		t.Fatalf("decodeJSONReader: %v", err)
	}
	arr, ok := root.([]interface{})
	if !ok || arr == nil || len(arr) != 0 {
		t.Fatalf("root = %#v, want an empty non-nil slice", root)
	}
}

func TestJSONAdapterObjectRoot(t *testing.T) {
	path := writeTempFile(t, "doc.json", `{"name":"alice","age":30}`)

	src, err := openJSON(path)
	if err != nil {
		t.Fatalf("openJSON: %v", err)
	}
	defer src.Close()

	rows := drainSource(t, src, "")
	if len(rows) != 1 {
		t.Fatalf("rows = %v, want 1", rows)
	}
	name, _ := rows[0].Get("name")
	if name != "alice" {
		t.Errorf("name = %v, want alice", name)
	}
}

func TestJSONAdapterArraySelectedBySelector(t *testing.T) {
	path := writeTempFile(t, "doc.json", `{"items":[{"id":1},{"id":2},{"id":3}]}`)

	src, err := openJSON(path)
	if err != nil {
		t.Fatalf("openJSON: %v", err)
	}
	defer src.Close()

	rows := drainSource(t, src, "items")
	if len(rows) != 3 {
		t.Fatalf("rows = %v, want 3", rows)
	}
	id, _ := rows[1].Get("id")
	if id != int64(2) {
		t.Errorf("rows[1].id = %v, want 2", id)
	}
}

func TestJSONAdapterScalarSelectionWrapsValue(t *testing.T) {
	path := writeTempFile(t, "doc.json", `{"count":5}`)

	src, err := openJSON(path)
	if err != nil {
		t.Fatalf("openJSON: %v", err)
	}
	defer src.Close()

	rows := drainSource(t, src, "count")
	if len(rows) != 1 {
		t.Fatalf("rows = %v, want 1", rows)
	}
	v, ok := rows[0].Get("value")
	if !ok || v != int64(5) {
		t.Errorf("rows[0].value = (%v, %v), want (5, true)", v, ok)
	}
}

func TestJSONAdapterMalformedFile(t *testing.T) {
	path := writeTempFile(t, "bad.json", `{not valid json`)

	_, err := openJSON(path)
	if err == nil {
		t.Fatal("expected error opening malformed JSON")
	}
	if core.Kind(err) != core.KindInvalidFormat {
		t.Errorf("Kind(err) = %v, want KindInvalidFormat", core.Kind(err))
	}
}

func TestJSONAdapterMissingFile(t *testing.T) {
	_, err := openJSON("/nonexistent/doc.json")
	if err == nil {
		t.Fatal("expected error opening a nonexistent JSON file")
	}
	if core.Kind(err) != core.KindFileNotFound {
		t.Errorf("Kind(err) = %v, want KindFileNotFound", core.Kind(err))
	}
}
