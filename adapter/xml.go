package adapter

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/cloudimpl/rowql/core"
)

func init() {
	core.RegisterSource("xml", openXML)
}

type xmlSource struct {
	path string
	root interface{}
}

func openXML(path string) (core.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, notFoundErr(path, err)
	}
	defer f.Close()
	dec := xml.NewDecoder(f)
	root, err := decodeXMLDocument(dec)
	if err != nil {
		return nil, invalidFormatErr(path, err)
	}
	return &xmlSource{path: path, root: root}, nil
}

// decodeXMLReader decodes a single XML document from r, used by the
// remote adapter once it has fetched the body over HTTP.
func decodeXMLReader(r io.Reader) (interface{}, error) {
	return decodeXMLDocument(xml.NewDecoder(r))
}

func (s *xmlSource) Label() string { return s.path }
func (s *xmlSource) Close() error  { return nil }

func (s *xmlSource) StreamRows(ctx context.Context, selector string) (core.RowIterator, error) {
	rows, err := rowsFromDocument(s.root, selector)
	if err != nil {
		return nil, err
	}
	return &sliceRowIterator{rows: rows}, nil
}

// decodeXMLDocument reads past the document's root element and
// returns the root element itself as a core.Map, pull-parsed with
// xml.Decoder.Token as spec.md §6's adapter contract asks for.
func decodeXMLDocument(dec *xml.Decoder) (interface{}, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return decodeXMLElement(dec, start)
		}
	}
}

// decodeXMLElement decodes the children of an already-consumed
// xml.StartElement into a core.Map: attributes as "@name" keys,
// repeated child element names folded into a []interface{}, character
// data coerced to a scalar via core.CoerceScalar. An element with no
// attributes and no child elements decodes to that coerced scalar
// instead of a core.Map.
func decodeXMLElement(dec *xml.Decoder, start xml.StartElement) (interface{}, error) {
	m := core.NewMap()
	for _, attr := range start.Attr {
		m.Set("@"+attr.Name.Local, core.CoerceScalar(attr.Value))
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeXMLElement(dec, t)
			if err != nil {
				return nil, err
			}
			appendXMLChild(m, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if m.Len() == 0 {
				return core.CoerceScalar(strings.TrimSpace(text.String())), nil
			}
			if trimmed := strings.TrimSpace(text.String()); trimmed != "" {
				m.Set("#text", core.CoerceScalar(trimmed))
			}
			return m, nil
		}
	}
	return m, nil
}

func appendXMLChild(m *core.Map, name string, value interface{}) {
	existing, present := m.Get(name)
	if !present {
		m.Set(name, value)
		return
	}
	if seq, ok := existing.([]interface{}); ok {
		m.Set(name, append(seq, value))
		return
	}
	m.Set(name, []interface{}{existing, value})
}
