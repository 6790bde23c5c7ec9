package core

import (
	"strconv"
	"strings"
)

// GetPath resolves a dotted/indexed path over row, per spec.md §4.1:
//
//	segment ( '.' segment )*
//
// plus two extensions applied as the path's final step:
//
//	...[]->key   map over a sequence, extracting key from each element
//	...N->key    fetch element N, then key, from the resulting value
//
// In strict mode a missing segment raises ErrMissingField and a
// subscript into a non-mapping/non-sequence raises ErrType; in
// non-strict mode both return (nil, nil).
func GetPath(row Row, path string, strict bool) (interface{}, error) {
	if path == "" || path == "*" {
		return row, nil
	}
	return ResolveSelector(row, path, strict)
}

// ResolveSelector is GetPath generalized to an arbitrary root value,
// for adapters whose document root isn't necessarily a mapping (a
// JSON/YAML file's root can be a bare sequence). An empty path
// returns root unchanged.
func ResolveSelector(root interface{}, path string, strict bool) (interface{}, error) {
	if path == "" {
		return root, nil
	}

	base, arrowKey, hasArrow := strings.Cut(path, "->")

	iterate := false
	if strings.HasSuffix(base, "[]") {
		iterate = true
		base = strings.TrimSuffix(base, "[]")
	}

	var cur interface{} = root
	for _, seg := range strings.Split(base, ".") {
		if seg == "" {
			continue
		}
		next, err := resolveSegment(cur, seg, strict)
		if err != nil {
			return nil, err
		}
		cur = next
		if cur == nil && !strict {
			return nil, nil
		}
	}

	if !hasArrow {
		return cur, nil
	}

	if iterate {
		seq, ok := cur.([]interface{})
		if !ok {
			if !strict {
				return nil, nil
			}
			return nil, typeErr("path %q: expected sequence before []->%s", path, arrowKey)
		}
		out := make([]interface{}, 0, len(seq))
		for _, elem := range seq {
			v, err := resolveSegment(elem, arrowKey, strict)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	return resolveSegment(cur, arrowKey, strict)
}

// resolveSegment fetches seg (a map key or a sequence index) from cur.
func resolveSegment(cur interface{}, seg string, strict bool) (interface{}, error) {
	if cur == nil {
		if strict {
			return nil, missingFieldErr(seg)
		}
		return nil, nil
	}

	if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 {
		seq, ok := cur.([]interface{})
		if ok {
			if idx >= len(seq) {
				if strict {
					return nil, missingFieldErr(seg)
				}
				return nil, nil
			}
			return seq[idx], nil
		}
		// Not a sequence: fall through to treat seg as a map key,
		// since plain numeric-looking keys are legal in a Map too.
	}

	m, ok := cur.(*Map)
	if !ok {
		if strict {
			return nil, typeErr("cannot access %q: not a mapping or sequence", seg)
		}
		return nil, nil
	}
	v, present := m.Get(seg)
	if !present {
		if strict {
			return nil, missingFieldErr(seg)
		}
		return nil, nil
	}
	return v, nil
}
