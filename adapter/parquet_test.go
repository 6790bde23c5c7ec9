package adapter

import (
	"testing"

	"github.com/cloudimpl/rowql/core"
)

func TestNormalizeParquetValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{int32(7), int64(7)},
		{float32(2.5), float64(float32(2.5))},
		{[]byte("hi"), "hi"},
		{"already a string", "already a string"},
		{true, true},
	}
	for _, test := range tests {
		if got := normalizeParquetValue(test.in); got != test.want {
			t.Errorf("normalizeParquetValue(%#v) = %#v, want %#v", test.in, got, test.want)
		}
	}
}

func TestParquetAdapterMissingFile(t *testing.T) {
	_, err := openParquet("/nonexistent/data.parquet")
	if core.Kind(err) != core.KindFileNotFound {
		t.Errorf("Kind(err) = %v, want KindFileNotFound", core.Kind(err))
	}
}

func TestParquetAdapterNotAParquetFile(t *testing.T) {
	path := writeTempFile(t, "notparquet.parquet", "this is plain text, not a parquet footer")

	_, err := openParquet(path)
	if err == nil {
		t.Fatal("expected error opening a non-parquet file")
	}
	if core.Kind(err) != core.KindInvalidFormat {
		t.Errorf("Kind(err) = %v, want KindInvalidFormat", core.Kind(err))
	}
}
