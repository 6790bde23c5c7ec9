package adapter

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/cloudimpl/rowql/core"
	"howett.net/ranger"
)

func init() {
	core.RegisterSource("remote", openRemote)
}

// IsRemoteURL reports whether path should be fetched over HTTP rather
// than opened from the local filesystem.
func IsRemoteURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// remoteSource fetches a document over HTTP using ranger's Reader,
// which issues Range requests on demand instead of pulling the whole
// body up front, then hands the bytes to the same decoders the local
// adapters use once the format is known from the URL's extension.
type remoteSource struct {
	url    string
	format string
	root   interface{}
}

func openRemote(rawURL string) (core.Source, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, notFoundErr(rawURL, err)
	}
	reader, err := ranger.NewReader(&ranger.HTTPRanger{URL: parsedURL})
	if err != nil {
		return nil, notFoundErr(rawURL, err)
	}
	length, err := reader.Length()
	if err != nil {
		return nil, notFoundErr(rawURL, err)
	}

	format := core.InferFormat(rawURL)
	root, err := decodeRemoteFormat(io.NewSectionReader(reader, 0, length), format)
	if err != nil {
		return nil, invalidFormatErr(rawURL, err)
	}
	return &remoteSource{url: rawURL, format: format, root: root}, nil
}

func decodeRemoteFormat(r io.Reader, format string) (interface{}, error) {
	switch format {
	case "json", "jsonstream":
		return decodeJSONReader(r)
	case "yaml":
		return decodeYAMLReader(r)
	case "xml":
		return decodeXMLReader(r)
	default:
		return decodeJSONReader(r)
	}
}

func (s *remoteSource) Label() string { return s.url }
func (s *remoteSource) Close() error  { return nil }

func (s *remoteSource) StreamRows(ctx context.Context, selector string) (core.RowIterator, error) {
	rows, err := rowsFromDocument(s.root, selector)
	if err != nil {
		return nil, err
	}
	return &sliceRowIterator{rows: rows}, nil
}
