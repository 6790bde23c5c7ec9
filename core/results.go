package core

// resultState is the Results handle's lifecycle (spec.md §4.7).
type resultState int

const (
	stateFresh resultState = iota
	stateIterating
	stateExhausted
)

// Results is the handle returned by Query.Execute: a forward-only
// cursor over the already-materialized output rows, plus memoized
// per-field aggregate helpers that scan the full row set once and
// cache the answer (spec.md §4.7).
type Results struct {
	rows  []Row
	pos   int
	state resultState

	memoAgg    map[string]interface{}
	countCache *int
}

func newResults(rows []Row) *Results {
	return &Results{rows: rows, state: stateFresh, memoAgg: make(map[string]interface{})}
}

// Next advances the cursor and returns the next row, or (nil, false)
// once exhausted. Calling Next transitions Fresh -> Iterating on the
// first call and Iterating -> Exhausted once rows run out.
func (r *Results) Next() (Row, bool) {
	if r.pos >= len(r.rows) {
		r.state = stateExhausted
		return nil, false
	}
	r.state = stateIterating
	row := r.rows[r.pos]
	r.pos++
	if r.pos >= len(r.rows) {
		r.state = stateExhausted
	}
	return row, true
}

// Rows returns every row, ignoring (and not disturbing) the cursor.
func (r *Results) Rows() []Row {
	return r.rows
}

// Len returns the total row count.
func (r *Results) Len() int {
	return len(r.rows)
}

// Reset rewinds the cursor to Fresh.
func (r *Results) Reset() {
	r.pos = 0
	r.state = stateFresh
}

// Aggregate runs fn (a registered aggregate function name) over field
// across every row, memoizing the result so repeated calls for the
// same (fn, field) pair are free.
func (r *Results) Aggregate(fn string, field string) (interface{}, error) {
	key := fn + "(" + field + ")"
	if v, ok := r.memoAgg[key]; ok {
		return v, nil
	}
	def, ok := defaultFunctions.Lookup(fn)
	if !ok || def.Kind != KindAggregate {
		return nil, parseErr("%s is not an aggregate function", fn)
	}
	v, err := def.Agg(r.rows, []interface{}{field})
	if err != nil {
		return nil, err
	}
	r.memoAgg[key] = v
	return v, nil
}

// FetchAll returns the full result set as a re-iterable sequence
// (spec.md §4.7): it neither consumes nor disturbs the Next/Reset
// cursor, so it can be called any number of times.
func (r *Results) FetchAll() []Row {
	return r.rows
}

// Fetch advances the cursor and returns the next row, or (nil, false)
// once exhausted — the named form of the Next/Reset state machine
// (spec.md §4.7): Fresh -> Iterating on the first call, Iterating ->
// Exhausted once rows run out.
func (r *Results) Fetch() (Row, bool) {
	return r.Next()
}

// FetchSingle returns the result set's first row's value at field,
// raising MissingField if there is no first row or the row has no
// such field (spec.md §4.7, §8 scenario #2).
func (r *Results) FetchSingle(field string) (interface{}, error) {
	if len(r.rows) == 0 {
		return nil, missingFieldErr(field)
	}
	return GetPath(r.rows[0], field, true)
}

// Count returns the total row count, memoized after the first call.
func (r *Results) Count() int {
	if r.countCache == nil {
		n := len(r.rows)
		r.countCache = &n
	}
	return *r.countCache
}

// Sum, Avg, Min, and Max run the matching aggregate over field across
// every row, each cached per field (spec.md §4.7).
func (r *Results) Sum(field string) (interface{}, error) { return r.Aggregate("SUM", field) }
func (r *Results) Avg(field string) (interface{}, error) { return r.Aggregate("AVG", field) }
func (r *Results) Min(field string) (interface{}, error) { return r.Aggregate("MIN", field) }
func (r *Results) Max(field string) (interface{}, error) { return r.Aggregate("MAX", field) }

// Exists reports whether the result set has any rows.
func (r *Results) Exists() bool {
	return r.Count() > 0
}
