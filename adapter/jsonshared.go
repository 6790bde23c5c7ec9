package adapter

import (
	"encoding/json"
	"io"

	"github.com/cloudimpl/rowql/core"
)

// decodeJSONValue walks dec one token at a time and rebuilds the value
// it names as core.Map/[]interface{}/scalar, preserving object key
// order (encoding/json's map[string]interface{} decode does not, so
// this walks tokens directly instead - the only reason this adapter
// doesn't just call json.Unmarshal).
func decodeJSONValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeJSONFromToken(dec, tok)
}

func decodeJSONFromToken(dec *json.Decoder, tok json.Token) (interface{}, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := core.NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // closing '}'
				return nil, err
			}
			return m, nil
		case '[':
			var out []interface{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, val)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return nil, err
			}
			if out == nil {
				out = []interface{}{}
			}
			return out, nil
		}
		return nil, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, _ := t.Float64()
		return f, nil
	case string, bool, nil:
		return t, nil
	default:
		return t, nil
	}
}

// decodeJSONReader fully decodes r into an ordered document root.
func decodeJSONReader(r io.Reader) (interface{}, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return decodeJSONValue(dec)
}
