package adapter

import (
	"context"
	"io"
	"os"

	"github.com/cloudimpl/rowql/core"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterSource("yaml", openYAML)
}

type yamlSource struct {
	path string
	root interface{}
}

func openYAML(path string) (core.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, notFoundErr(path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalidFormatErr(path, err)
	}
	if len(doc.Content) == 0 {
		return &yamlSource{path: path, root: core.NewMap()}, nil
	}
	root, err := decodeYAMLNode(doc.Content[0])
	if err != nil {
		return nil, invalidFormatErr(path, err)
	}
	return &yamlSource{path: path, root: root}, nil
}

// decodeYAMLReader decodes a single YAML document from r, used by the
// remote adapter once it has fetched the body over HTTP.
func decodeYAMLReader(r io.Reader) (interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return core.NewMap(), nil
	}
	return decodeYAMLNode(doc.Content[0])
}

func (s *yamlSource) Label() string { return s.path }
func (s *yamlSource) Close() error  { return nil }

func (s *yamlSource) StreamRows(ctx context.Context, selector string) (core.RowIterator, error) {
	rows, err := rowsFromDocument(s.root, selector)
	if err != nil {
		return nil, err
	}
	return &sliceRowIterator{rows: rows}, nil
}

// decodeYAMLNode walks a *yaml.Node tree into core.Map/[]interface{}
// values. yaml.v3's Node keeps mapping keys in document order in
// Content (alternating key, value nodes), which is the whole reason
// this adapter reads Nodes instead of unmarshaling into
// map[string]interface{} directly.
func decodeYAMLNode(n *yaml.Node) (interface{}, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeYAMLNode(n.Content[0])
	case yaml.MappingNode:
		m := core.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			val, err := decodeYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]interface{}, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := decodeYAMLNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		return decodeYAMLScalar(n), nil
	case yaml.AliasNode:
		return decodeYAMLNode(n.Alias)
	default:
		return nil, nil
	}
}

func decodeYAMLScalar(n *yaml.Node) interface{} {
	switch n.Tag {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	}
	return core.CoerceScalar(n.Value)
}
