package adapter

import (
	"strings"
	"testing"
)

func TestIsRemoteURL(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"https://example.com/data.json", true},
		{"http://example.com/data.json", true},
		{"data.json", false},
		{"/abs/path/data.json", false},
		{"ftp://example.com/data.json", false},
	}
	for _, test := range tests {
		if got := IsRemoteURL(test.path); got != test.want {
			t.Errorf("IsRemoteURL(%q) = %v, want %v", test.path, got, test.want)
		}
	}
}

func TestDecodeRemoteFormatDispatchesByFormat(t *testing.T) {
	root, err := decodeRemoteFormat(strings.NewReader(`{"a":1}`), "json")
	if err != nil {
		t.Fatalf("decodeRemoteFormat(json): %v", err)
	}
	if _, ok := root.(interface{ Get(string) (interface{}, bool) }); !ok {
		t.Errorf("decodeRemoteFormat(json) root = %T, want a mapping", root)
	}

	root, err = decodeRemoteFormat(strings.NewReader("a: 1\n"), "yaml")
	if err != nil {
		t.Fatalf("decodeRemoteFormat(yaml): %v", err)
	}
	if root == nil {
		t.Error("decodeRemoteFormat(yaml) root = nil")
	}

	root, err = decodeRemoteFormat(strings.NewReader(`<a>1</a>`), "xml")
	if err != nil {
		t.Fatalf("decodeRemoteFormat(xml): %v", err)
	}
	if root == nil {
		t.Error("decodeRemoteFormat(xml) root = nil")
	}

	// Unknown formats fall back to JSON decoding.
	root, err = decodeRemoteFormat(strings.NewReader(`{"b":2}`), "parquet")
	if err != nil {
		t.Fatalf("decodeRemoteFormat(parquet fallback): %v", err)
	}
	if root == nil {
		t.Error("decodeRemoteFormat(parquet fallback) root = nil")
	}
}
