package core

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Map is an order-preserving string-keyed mapping, the backbone of the
// Row value model (spec.md §3): "ordered mapping from string key to
// row". Keys are unique per level; insertion order is preserved so
// projection output is deterministic.
type Map struct {
	keys []string
	vals map[string]interface{}
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{vals: make(map[string]interface{})}
}

// Set inserts or overwrites key, appending it to the key order only
// the first time it's seen.
func (m *Map) Set(key string, val interface{}) {
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = val
}

// Get returns the value at key and whether it was present.
func (m *Map) Get(key string) (interface{}, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order. Callers must not mutate
// the returned slice.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.keys)
}

// Clone returns a shallow copy (nested values are shared, not deep
// copied) with its own key order, safe to append to independently.
func (m *Map) Clone() *Map {
	clone := NewMap()
	for _, k := range m.keys {
		clone.Set(k, m.vals[k])
	}
	return clone
}

// mapWire is Map's exported shape for gob encoding (spill.go): Map
// itself keeps its fields private to protect insertion order.
type mapWire struct {
	Keys []string
	Vals map[string]interface{}
}

// GobEncode lets a *Map be encoded into the SpillBuffer's in-memory
// compressed batches.
func (m *Map) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(mapWire{Keys: m.keys, Vals: m.vals}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode is GobEncode's inverse.
func (m *Map) GobDecode(data []byte) error {
	var w mapWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	m.keys = w.Keys
	m.vals = w.Vals
	return nil
}

// Row is a single document row: always an ordered mapping at the top
// level, per the format-adapter contract (spec.md §6).
type Row = *Map

// CoerceScalar recognizes decimal integers, decimal/exponent floats,
// true/false (case-insensitive), null, otherwise returns s unchanged
// as a string (spec.md §3).
func CoerceScalar(s string) interface{} {
	switch strings.ToLower(s) {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// IsNumeric reports whether v is an int64 or float64 (the two numeric
// scalar tags), or a string that CoerceScalar would turn into one.
func IsNumeric(v interface{}) bool {
	switch t := v.(type) {
	case int64, float64, int:
		return true
	case string:
		switch CoerceScalar(t).(type) {
		case int64, float64:
			return true
		}
	}
	return false
}

// toFloat64 converts a numeric-like value to float64, erroring with
// ErrType otherwise.
func toFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		switch c := CoerceScalar(t).(type) {
		case int64:
			return float64(c), nil
		case float64:
			return c, nil
		}
	}
	return 0, typeErr("value %v is not numeric", v)
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		switch c := CoerceScalar(t).(type) {
		case int64:
			return c, nil
		case float64:
			return int64(c), nil
		}
	}
	return 0, typeErr("value %v is not numeric", v)
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// CompareValues orders a and b: numeric-like values (both int64,
// float64, or numeric strings) compare numerically; otherwise values
// compare as strings. Returns -1, 0, or 1.
func CompareValues(a, b interface{}) int {
	if IsNumeric(a) && IsNumeric(b) {
		af, _ := toFloat64(a)
		bf, _ := toFloat64(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(stringify(a), stringify(b))
}

// Op is a comparison operator (spec.md §2 #1).
type Op string

const (
	OpEq      Op = "="
	OpNeq     Op = "!="
	OpLt      Op = "<"
	OpLte     Op = "<="
	OpGt      Op = ">"
	OpGte     Op = ">="
	OpLike    Op = "LIKE"
	OpNotLike Op = "NOT LIKE"
	OpIn      Op = "IN"
	OpNotIn   Op = "NOT IN"
	OpIs      Op = "IS"
	OpIsNot   Op = "IS NOT"
)

// LinkOp is a logical connective between condition-tree siblings.
type LinkOp string

const (
	LinkAnd LinkOp = "AND"
	LinkOr  LinkOp = "OR"
	LinkXor LinkOp = "XOR"
)

// SortMode is an ORDER BY mode.
type SortMode string

const (
	SortAsc     SortMode = "ASC"
	SortDesc    SortMode = "DESC"
	SortNatsort SortMode = "NATSORT"
	SortShuffle SortMode = "SHUFFLE"
)

// JoinKind distinguishes INNER from LEFT join semantics (spec.md §3).
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
)

// naturalCompare implements NATSORT: runs of digits compare
// numerically, everything else compares byte-wise.
func naturalCompare(a, b string) int {
	ar, br := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		ca, cb := ar[i], br[j]
		if isDigit(ca) && isDigit(cb) {
			si, sj := i, j
			for i < len(ar) && isDigit(ar[i]) {
				i++
			}
			for j < len(br) && isDigit(br[j]) {
				j++
			}
			na := strings.TrimLeft(string(ar[si:i]), "0")
			nb := strings.TrimLeft(string(br[sj:j]), "0")
			if len(na) != len(nb) {
				if len(na) < len(nb) {
					return -1
				}
				return 1
			}
			if c := strings.Compare(na, nb); c != 0 {
				return c
			}
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case i < len(ar):
		return 1
	case j < len(br):
		return -1
	default:
		return 0
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// sortStrings is a small helper used by tests and Map key inspection;
// kept here rather than scattering sort.Strings calls.
func sortStrings(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}
