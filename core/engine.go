package core

import (
	"context"
	"math/rand"
	"sort"
	"strings"

	"github.com/cloudimpl/rowql/trace"
)

// Execute runs the full pipeline — scan, join, filter, project/group,
// having, sort, limit/offset, distinct — and returns a Results handle
// (spec.md §4.6). defaultSrc is used when the query has no FROM
// clause of its own (e.g. a nested file-query already carries a
// resolved Source from its caller).
func (q *Query) Execute(ctx context.Context, defaultSrc Source) (*Results, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.canStreamPure() {
		return q.executeStreaming(ctx, defaultSrc)
	}
	t := trace.Get()

	rows, err := q.scan(ctx, defaultSrc)
	if err != nil {
		return nil, err
	}
	t.Debug(trace.ComponentScan, "scanned rows", trace.Fields("count", len(rows)))

	for _, j := range q.Joins {
		rows, err = q.applyJoin(ctx, rows, j)
		if err != nil {
			return nil, err
		}
	}

	rows, err = q.applyWhere(rows)
	if err != nil {
		return nil, err
	}
	t.Debug(trace.ComponentFilter, "rows after WHERE", trace.Fields("count", len(rows)))

	var projected []Row
	if q.HasAggregates() || len(q.GroupByFields) > 0 {
		projected, err = q.projectGrouped(rows)
	} else {
		projected, err = q.projectStreaming(rows)
	}
	if err != nil {
		return nil, err
	}

	projected, err = q.applyHaving(projected)
	if err != nil {
		return nil, err
	}
	t.Debug(trace.ComponentAggregate, "rows after projection/HAVING", trace.Fields("count", len(projected)))

	if q.DistinctOn {
		projected = dedupRows(projected)
	}

	if len(q.OrderBy) > 0 {
		projected, err = q.applyOrderBy(projected)
		if err != nil {
			return nil, err
		}
	}

	projected = applyLimitOffset(projected, q.Offset, q.HasLimit, q.Limit)

	return newResults(projected), nil
}

// canStreamPure reports whether the pipeline is select+where+project
// (+having)+limit/offset with no join, grouping, aggregate, sort, or
// distinct — the shape spec.md §4.6 requires to run in O(1) memory
// beyond the source, stopping the scan as soon as LIMIT is satisfied.
func (q *Query) canStreamPure() bool {
	return len(q.Joins) == 0 &&
		!q.HasAggregates() &&
		len(q.GroupByFields) == 0 &&
		len(q.OrderBy) == 0 &&
		!q.DistinctOn
}

// executeStreaming runs the pure select/where/project/having/limit
// pipeline directly over the source's RowIterator, stopping as soon as
// enough post-offset rows have been produced instead of draining the
// whole source first (spec.md §4.6).
func (q *Query) executeStreaming(ctx context.Context, defaultSrc Source) (*Results, error) {
	t := trace.Get()
	src, selector, owns, err := q.openSource(defaultSrc)
	if err != nil {
		return nil, err
	}
	if owns {
		defer src.Close()
	}
	it, err := src.StreamRows(ctx, selector)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0)
	skipped := 0
	for {
		if q.HasLimit && len(out) >= q.Limit {
			break
		}
		row, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if q.WhereTree != nil && len(q.WhereTree.Children) > 0 {
			match, err := q.WhereTree.Evaluate(row, false)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}
		projected, err := q.projectRow(row, nil)
		if err != nil {
			return nil, err
		}
		if q.HavingTree != nil && len(q.HavingTree.Children) > 0 {
			match, err := q.HavingTree.Evaluate(projected, true)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, projected)
	}
	t.Debug(trace.ComponentScan, "streamed rows", trace.Fields("count", len(out)))
	return newResults(out), nil
}

// openSource resolves the source a scan should read from along with
// whether the engine itself opened it (and must Close it) or it was
// handed down by the caller as defaultSrc, whose lifecycle stays with
// that caller.
func (q *Query) openSource(defaultSrc Source) (src Source, selector string, owns bool, err error) {
	if q.FromPath != "" {
		path, sel := SplitFileQuery(q.FromPath)
		s, err := OpenSource(path, "")
		if err != nil {
			return nil, "", false, err
		}
		return s, sel, true, nil
	}
	if defaultSrc != nil {
		return defaultSrc, "", false, nil
	}
	return nil, "", false, missingFieldErr("FROM")
}

func (q *Query) scan(ctx context.Context, defaultSrc Source) ([]Row, error) {
	src, selector, owns, err := q.openSource(defaultSrc)
	if err != nil {
		return nil, err
	}
	if owns {
		defer src.Close()
	}
	return drainAll(ctx, src, selector)
}

func (q *Query) applyJoin(ctx context.Context, left []Row, spec *JoinSpec) ([]Row, error) {
	switch right := spec.Right.(type) {
	case string:
		path, selector := SplitFileQuery(right)
		src, err := OpenSource(path, "")
		if err != nil {
			return nil, err
		}
		defer src.Close()
		rightRows, err := drainAll(ctx, src, selector)
		if err != nil {
			return nil, err
		}
		joined, _, err := runJoinRows(left, rightRows, spec)
		return joined, err
	case *Query:
		sub, err := right.Execute(ctx, nil)
		if err != nil {
			return nil, err
		}
		joined, _, err := runJoinRows(left, sub.Rows(), spec)
		return joined, err
	default:
		return nil, joinErr("unsupported join right-hand side %T", right)
	}
}

func (q *Query) applyWhere(rows []Row) ([]Row, error) {
	if q.WhereTree == nil || len(q.WhereTree.Children) == 0 {
		return rows, nil
	}
	var out []Row
	for _, row := range rows {
		ok, err := q.WhereTree.Evaluate(row, false)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (q *Query) applyHaving(rows []Row) ([]Row, error) {
	if q.HavingTree == nil || len(q.HavingTree.Children) == 0 {
		return rows, nil
	}
	var out []Row
	for _, row := range rows {
		ok, err := q.HavingTree.Evaluate(row, true)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// projectStreaming projects every row independently (no GROUP BY, no
// aggregates).
func (q *Query) projectStreaming(rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		projected, err := q.projectRow(row, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

// projectGrouped buckets rows by GroupBy fields (a single implicit
// bucket when GroupBy is empty but an aggregate selection exists) and
// projects one output row per bucket.
func (q *Query) projectGrouped(rows []Row) ([]Row, error) {
	rows, err := spillRoundTrip(rows)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		key  string
		rows []Row
	}
	order := []string{}
	buckets := map[string]*bucket{}

	for _, row := range rows {
		key, err := groupKey(row, q.GroupByFields)
		if err != nil {
			return nil, err
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key}
			buckets[key] = b
			order = append(order, key)
		}
		b.rows = append(b.rows, row)
	}

	out := make([]Row, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		projected, err := q.projectRow(b.rows[0], b.rows)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

func groupKey(row Row, fields []string) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for i, f := range fields {
		v, err := GetPath(row, f, false)
		if err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteByte('\x1f')
		}
		sb.WriteString(stringify(v))
	}
	return sb.String(), nil
}

// projectRow builds one output row from row per q.Selections. group is
// non-nil when evaluating an aggregate selection over a GROUP BY
// bucket; it is nil in the streaming (non-aggregate) path.
func (q *Query) projectRow(row Row, group []Row) (Row, error) {
	out := NewMap()
	for _, sel := range q.Selections {
		if sel.OriginField == "*" {
			for _, k := range row.Keys() {
				v, _ := row.Get(k)
				out.Set(k, v)
			}
			continue
		}
		if sel.Function == nil {
			v, err := GetPath(row, sel.OriginField, false)
			if err != nil {
				return nil, err
			}
			out.Set(sel.FinalName, v)
			continue
		}
		v, err := q.evalFunction(sel.Function, row, group)
		if err != nil {
			return nil, err
		}
		out.Set(sel.FinalName, v)
	}
	return out, nil
}

func (q *Query) evalFunction(fc *FunctionCall, row Row, group []Row) (interface{}, error) {
	def, ok := defaultFunctions.Lookup(fc.Name)
	if !ok {
		return nil, parseErr("unknown function %s", fc.Name)
	}
	if def.Kind == KindAggregate {
		if group == nil {
			return nil, parseErr("%s used without GROUP BY context", fc.Name)
		}
		return def.Agg(group, fc.Args)
	}
	args := make([]interface{}, len(fc.Args))
	for i, a := range fc.Args {
		resolved, err := resolveArg(a, row)
		if err != nil {
			return nil, err
		}
		args[i] = resolved
	}
	return def.Row(args)
}

func resolveArg(a interface{}, row Row) (interface{}, error) {
	switch v := a.(type) {
	case FieldRef:
		return GetPath(row, string(v), false)
	case *FunctionCall:
		def, ok := defaultFunctions.Lookup(v.Name)
		if !ok {
			return nil, parseErr("unknown function %s", v.Name)
		}
		if def.Kind == KindAggregate {
			return nil, parseErr("%s cannot be nested inside a row function", v.Name)
		}
		args := make([]interface{}, len(v.Args))
		for i, inner := range v.Args {
			resolved, err := resolveArg(inner, row)
			if err != nil {
				return nil, err
			}
			args[i] = resolved
		}
		return def.Row(args)
	default:
		return v, nil
	}
}

func dedupRows(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		for i, k := range row.Keys() {
			if i > 0 {
				sb.WriteByte('\x1f')
			}
			v, _ := row.Get(k)
			sb.WriteString(stringify(v))
		}
		key := sb.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}

// applyOrderBy spills the sort buffer through a SpillBuffer before
// sorting (spec.md §5: "materializing stages may spill") and returns
// the (possibly reassigned) sorted slice.
func (q *Query) applyOrderBy(rows []Row) ([]Row, error) {
	for _, o := range q.OrderBy {
		if o.Mode == SortShuffle && len(q.OrderBy) > 1 {
			return nil, sortErr("SHUFFLE cannot be combined with other ORDER BY keys")
		}
	}
	rows, err := spillRoundTrip(rows)
	if err != nil {
		return nil, err
	}

	if len(q.OrderBy) == 1 && q.OrderBy[0].Mode == SortShuffle {
		rand.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		return rows, nil
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range q.OrderBy {
			vi, _ := GetPath(rows[i], o.Field, false)
			vj, _ := GetPath(rows[j], o.Field, false)
			var c int
			if o.Mode == SortNatsort {
				c = naturalCompare(stringify(vi), stringify(vj))
			} else {
				c = CompareValues(vi, vj)
			}
			if c == 0 {
				continue
			}
			if o.Mode == SortDesc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return rows, nil
}

// spillRoundTrip pushes rows through a fresh SpillBuffer and drains it
// back, so a materializing stage (GROUP BY, ORDER BY) works on rows
// decoded from Snappy-compressed batches. The input slice stays
// referenced throughout and the result is a raw slice, so this does
// not lower peak memory.
func spillRoundTrip(rows []Row) ([]Row, error) {
	buf := NewSpillBuffer(0)
	for _, row := range rows {
		if err := buf.Add(row); err != nil {
			return nil, err
		}
	}
	return buf.Drain()
}

func applyLimitOffset(rows []Row, offset int, hasLimit bool, limit int) []Row {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if hasLimit && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
