package core

import (
	"context"
	"io"
	"strings"
)

// RowIterator yields rows one at a time. Next returns (nil, false, nil)
// at end of stream; a non-nil error aborts iteration immediately.
type RowIterator interface {
	Next(ctx context.Context) (Row, bool, error)
}

// Source is the format-adapter contract (spec.md §6): any concrete
// format (CSV, XML, JSON, YAML, NEON, Parquet, remote) implements this
// to be usable in a FROM/JOIN clause.
type Source interface {
	// StreamRows opens an iterator over the rows reachable through
	// selector (a dotted path into the document, "" for the root).
	StreamRows(ctx context.Context, selector string) (RowIterator, error)
	// Label identifies the source for tracing and error messages.
	Label() string
	io.Closer
}

// SourceOpener opens a Source for a path. Each adapter package
// registers one under its format name; the engine and CLI pick an
// opener by file extension or an explicit format override.
type SourceOpener func(path string) (Source, error)

var sourceOpeners = map[string]SourceOpener{}

// RegisterSource registers an opener under format (e.g. "csv", "json",
// "yaml"); adapter packages call this from an init function.
func RegisterSource(format string, opener SourceOpener) {
	sourceOpeners[strings.ToLower(format)] = opener
}

// OpenSource resolves path to a Source, using formatOverride if given,
// otherwise inferring the format from the file extension.
func OpenSource(path string, formatOverride string) (Source, error) {
	format := strings.ToLower(formatOverride)
	if format == "" {
		format = InferFormat(path)
	}
	opener, ok := sourceOpeners[format]
	if !ok {
		return nil, invalidFormatErr(format)
	}
	return opener(path)
}

func invalidFormatErr(format string) error {
	return typeErr("no adapter registered for format %q", format)
}

// InferFormat maps a path or URL to a registered adapter format name
// by file extension, falling back to "remote" for http(s) URLs with no
// recognized extension and "csv" otherwise.
func InferFormat(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		ext := strings.ToLower(base[idx+1:])
		switch ext {
		case "csv", "tsv":
			return "csv"
		case "json":
			return "json"
		case "jsonl", "ndjson":
			return "jsonstream"
		case "yaml", "yml":
			return "yaml"
		case "xml":
			return "xml"
		case "neon":
			return "neon"
		case "parquet":
			return "parquet"
		}
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return "remote"
	}
	return "csv"
}

// SplitFileQuery parses the "(path).selector" literal used inside a
// FROM/JOIN clause or a nested file-query argument, per spec.md §6.
// When path has no trailing ").selector" suffix, selector is "".
func SplitFileQuery(literal string) (path string, selector string) {
	literal = strings.TrimSpace(literal)
	if strings.HasPrefix(literal, "(") {
		if end := strings.Index(literal, ")"); end >= 0 {
			path = literal[1:end]
			rest := literal[end+1:]
			rest = strings.TrimPrefix(rest, ".")
			return path, rest
		}
	}
	return literal, ""
}
