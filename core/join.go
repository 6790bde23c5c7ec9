package core

import (
	"context"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
)

// hashJoinStats summarizes one join's execution. usedKeys is a
// RoaringBitmap over the hash (mod 2^31) of every left key that found
// a match; it is purely diagnostic, never correctness - match lists
// already carry everything LEFT join semantics need. runJoinRows
// returns these statistics, but applyJoin discards them, so they are
// not traced or otherwise surfaced.
type hashJoinStats struct {
	buildRows   int
	probeRows   int
	matchedRows int
	usedKeys    *roaring.Bitmap
}

func hashKey(v interface{}) uint64 {
	return xxhash.Sum64String(stringify(v))
}

// runJoinRows joins left against an already-materialized right-hand
// row set, building a hash table over the right side keyed by xxhash
// of the join key's string form (spec.md §4.6 point 2). Equality joins
// probe only the left key's hash bucket; every other operator compares
// the left key against every build-side row. A right key written with
// the join's alias prefix ("r.uid") is looked up without it. Right-hand
// fields are nested under spec.Alias.
func runJoinRows(left []Row, rightRows []Row, spec *JoinSpec) ([]Row, *hashJoinStats, error) {
	rightKey := spec.RightKey
	if spec.Alias != "" {
		rightKey = strings.TrimPrefix(rightKey, spec.Alias+".")
	}
	buildIndex := make(map[uint64][]Row, len(rightRows))
	var buildAll []Row
	buildKeys := map[string]struct{}{}
	stats := &hashJoinStats{buildRows: len(rightRows), usedKeys: roaring.New()}
	for _, row := range rightRows {
		for _, k := range row.Keys() {
			buildKeys[k] = struct{}{}
		}
		key, err := GetPath(row, rightKey, false)
		if err != nil {
			return nil, nil, err
		}
		if key == nil {
			continue
		}
		buildIndex[hashKey(key)] = append(buildIndex[hashKey(key)], row)
		buildAll = append(buildAll, row)
	}

	var out []Row
	for _, lrow := range left {
		stats.probeRows++
		lkey, err := GetPath(lrow, spec.LeftKey, false)
		if err != nil {
			return nil, nil, err
		}
		var matches []Row
		if lkey != nil {
			h := hashKey(lkey)
			candidates := buildIndex[h]
			if spec.Op != OpEq && spec.Op != "" {
				candidates = buildAll
			}
			for _, brow := range candidates {
				rkey, err := GetPath(brow, rightKey, false)
				if err != nil {
					return nil, nil, err
				}
				if compareJoinKeys(lkey, rkey, spec.Op) {
					matches = append(matches, brow)
					stats.usedKeys.Add(uint32(h % (1 << 31)))
				}
			}
		}

		switch {
		case len(matches) > 0:
			stats.matchedRows += len(matches)
			for _, m := range matches {
				out = append(out, mergeRows(lrow, spec.Alias, m))
			}
		case spec.Kind == JoinLeft:
			out = append(out, mergeRows(lrow, spec.Alias, zeroFilledRow(buildKeys)))
		}
	}
	return out, stats, nil
}

func compareJoinKeys(l, r interface{}, op Op) bool {
	switch op {
	case OpEq, "":
		return CompareValues(l, r) == 0
	case OpNeq:
		return CompareValues(l, r) != 0
	case OpLt:
		return CompareValues(l, r) < 0
	case OpLte:
		return CompareValues(l, r) <= 0
	case OpGt:
		return CompareValues(l, r) > 0
	case OpGte:
		return CompareValues(l, r) >= 0
	default:
		return false
	}
}

// zeroFilledRow builds the right-hand schema, observed across every
// build-side row, with every key set to nil — what an unmatched LEFT
// join row nests under its alias instead of a bare nil (spec.md §4.6
// point 2). Returns nil when the build side had no rows at all, so a
// totally-empty right side still nests a bare nil rather than an empty
// map with no keys to show for it.
func zeroFilledRow(keys map[string]struct{}) Row {
	if len(keys) == 0 {
		return nil
	}
	m := NewMap()
	for k := range keys {
		m.Set(k, nil)
	}
	return m
}

// mergeRows combines a left row with a right row (or a zero-filled row
// for an unmatched LEFT join) by nesting the right side's keys under
// alias. alias defaults to "right" when the join clause gave none, so
// the nested field is always reachable by name.
func mergeRows(left Row, alias string, right Row) Row {
	if alias == "" {
		alias = "right"
	}
	out := left.Clone()
	out.Set(alias, right)
	return out
}

// drainAll reads every row off it through a SpillBuffer, so rows are
// held as Snappy-compressed batches while they accumulate; the
// returned slice is the fully decoded row set (spec.md §5:
// "materializing stages may spill").
func drainAll(ctx context.Context, src Source, selector string) ([]Row, error) {
	it, err := src.StreamRows(ctx, selector)
	if err != nil {
		return nil, err
	}
	buf := NewSpillBuffer(0)
	for {
		row, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := buf.Add(row); err != nil {
			return nil, err
		}
	}
	return buf.Drain()
}
