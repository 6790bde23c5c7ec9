package core

import (
	"strings"
)

var defaultFunctions = NewFunctionRegistry()

// FieldRef marks a function argument that refers to another field or
// alias rather than a literal value.
type FieldRef string

// FunctionCall is one function invocation inside a projection or a
// HAVING/WHERE value position. Args are literals, FieldRef values, or
// nested *FunctionCall values.
type FunctionCall struct {
	Name string
	Args []interface{}
}

// SelectedField is one projection entry (spec.md §3).
type SelectedField struct {
	FinalName   string
	OriginField string
	IsAlias     bool
	Function    *FunctionCall
}

// JoinSpec describes one JOIN clause (spec.md §3). Right is either
// another *Query (a file-query subquery) or a string (a file-query
// literal) — resolved by the engine at execution time; any other value
// is a JoinError.
type JoinSpec struct {
	Right     interface{}
	Alias     string
	LeftKey   string
	RightKey  string
	Op        Op
	Kind      JoinKind
	onPending bool
}

// Ordering is one ORDER BY entry; later Orderings in Query.OrderBy are
// secondary sort keys.
type Ordering struct {
	Field string
	Mode  SortMode
}

// Query is the fluent builder and logical model (spec.md §3, §4.4). It
// is mutable until Execute or Test is called.
type Query struct {
	Selections []*SelectedField
	DistinctOn bool
	FromPath   string

	WhereTree  *Condition
	HavingTree *Condition

	Joins         []*JoinSpec
	GroupByFields []string
	OrderBy       []*Ordering

	Limit    int
	HasLimit bool
	Offset   int

	fieldNames map[string]bool
	lastSel    *SelectedField
	lastOrder  *Ordering
	activeJoin *JoinSpec

	whereStack  []*Condition
	havingStack []*Condition
	onTree      *[]*Condition // points at whereStack or havingStack, whichever And/Or/Xor/Group should target

	err error
}

// New returns an empty query builder.
func New() *Query {
	return &Query{fieldNames: make(map[string]bool)}
}

func (q *Query) fail(err error) *Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// Err returns the first error recorded by the builder, if any.
func (q *Query) Err() error {
	return q.err
}

func (q *Query) addSelection(f *SelectedField) *Query {
	if q.err != nil {
		return q
	}
	name := f.FinalName
	if name == "" {
		name = f.OriginField
		f.FinalName = name
	}
	if name != "*" {
		if q.fieldNames[name] {
			return q.fail(aliasErr("duplicate field name %q", name))
		}
		q.fieldNames[name] = true
	}
	q.Selections = append(q.Selections, f)
	q.lastSel = f
	return q
}

// Select adds a comma-separated list of plain field names.
func (q *Query) Select(csv string) *Query {
	if q.err != nil {
		return q
	}
	for _, name := range strings.Split(csv, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		q.addSelection(&SelectedField{OriginField: name, FinalName: name})
	}
	return q
}

// SelectAll selects the whole row ("*"); it cannot be aliased.
func (q *Query) SelectAll() *Query {
	return q.addSelection(&SelectedField{OriginField: "*", FinalName: "*"})
}

// As attaches alias to the most recently added selection. It may be
// called at most once per selection (spec.md §3's SelectedField
// invariant) and never on SelectAll.
func (q *Query) As(alias string) *Query {
	if q.err != nil {
		return q
	}
	if q.lastSel == nil {
		return q.fail(aliasErr("AS with no preceding selection"))
	}
	if q.lastSel.OriginField == "*" {
		return q.fail(aliasErr("cannot alias SELECT *"))
	}
	if q.lastSel.IsAlias {
		return q.fail(aliasErr("field %q already aliased", q.lastSel.OriginField))
	}
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return q.fail(aliasErr("alias cannot be empty"))
	}
	if alias != q.lastSel.FinalName && q.fieldNames[alias] {
		return q.fail(aliasErr("duplicate field name %q", alias))
	}
	delete(q.fieldNames, q.lastSel.FinalName)
	q.lastSel.FinalName = alias
	q.lastSel.IsAlias = true
	q.fieldNames[alias] = true
	return q
}

// Distinct marks the query DISTINCT.
func (q *Query) Distinct() *Query {
	q.DistinctOn = true
	return q
}

// Fn adds a function-call projection. args are FieldRef values for
// field references, nested *FunctionCall values, or literals; a plain
// string is a literal, except as an aggregate's first argument, where
// it names the field path.
func (q *Query) Fn(name string, args ...interface{}) *Query {
	if q.err != nil {
		return q
	}
	name = strings.ToUpper(name)
	def, ok := defaultFunctions.Lookup(name)
	if !ok {
		return q.fail(parseErr("unknown function %s", name))
	}
	if err := def.CheckArity(len(args)); err != nil {
		return q.fail(err)
	}
	origin := defaultFuncAlias(name, args)
	return q.addSelection(&SelectedField{
		OriginField: origin,
		FinalName:   origin,
		Function:    &FunctionCall{Name: name, Args: args},
	})
}

func defaultFuncAlias(name string, args []interface{}) string {
	if len(args) == 0 {
		return strings.ToLower(name)
	}
	switch v := args[0].(type) {
	case FieldRef:
		return strings.ToLower(name) + "_" + string(v)
	case string:
		if v != "" && v != "*" {
			return strings.ToLower(name) + "_" + v
		}
	}
	return strings.ToLower(name)
}

// Convenience wrappers over Fn for the most common functions, per
// spec.md §4.4 ("any function-builder (e.g. upper(field))"). Aggregate
// wrappers pass the field path as a plain string: the engine hands
// aggregate evaluators the raw argument list (the field to fold over,
// not a pre-resolved value), per spec.md §4.3.
func (q *Query) Upper(field string) *Query       { return q.Fn("UPPER", FieldRef(field)) }
func (q *Query) Lower(field string) *Query       { return q.Fn("LOWER", FieldRef(field)) }
func (q *Query) Count(field string) *Query       { return q.Fn("COUNT", field) }
func (q *Query) Sum(field string) *Query         { return q.Fn("SUM", field) }
func (q *Query) Avg(field string) *Query         { return q.Fn("AVG", field) }
func (q *Query) Min(field string) *Query         { return q.Fn("MIN", field) }
func (q *Query) Max(field string) *Query         { return q.Fn("MAX", field) }
func (q *Query) GroupConcat(field string) *Query { return q.Fn("GROUP_CONCAT", field) }
func (q *Query) Concat(fields ...string) *Query {
	args := make([]interface{}, len(fields))
	for i, f := range fields {
		args[i] = FieldRef(f)
	}
	return q.Fn("CONCAT", args...)
}

// From sets the FROM path (selector into the adapter's document).
func (q *Query) From(path string) *Query {
	q.FromPath = path
	return q
}

func (q *Query) ensureWhereRoot() *Condition {
	if q.WhereTree == nil {
		q.WhereTree = NewConditionGroup(LinkAnd)
	}
	if len(q.whereStack) == 0 {
		q.whereStack = []*Condition{q.WhereTree}
	}
	q.onTree = &q.whereStack
	return q.whereStack[len(q.whereStack)-1]
}

func (q *Query) ensureHavingRoot() *Condition {
	if q.HavingTree == nil {
		q.HavingTree = NewConditionGroup(LinkAnd)
	}
	if len(q.havingStack) == 0 {
		q.havingStack = []*Condition{q.HavingTree}
	}
	q.onTree = &q.havingStack
	return q.havingStack[len(q.havingStack)-1]
}

// Where adds the first/next WHERE predicate, ANDed with prior ones.
func (q *Query) Where(field string, op Op, value interface{}) *Query {
	return q.condLeaf(q.ensureWhereRoot, LinkAnd, field, op, value)
}

// And/Or/Xor add a predicate connected by the named operator to the
// tree used last: WHERE, or HAVING once Having has been called.
func (q *Query) And(field string, op Op, value interface{}) *Query {
	return q.condLeaf(q.currentRootFn(), LinkAnd, field, op, value)
}
func (q *Query) Or(field string, op Op, value interface{}) *Query {
	return q.condLeaf(q.currentRootFn(), LinkOr, field, op, value)
}
func (q *Query) Xor(field string, op Op, value interface{}) *Query {
	return q.condLeaf(q.currentRootFn(), LinkXor, field, op, value)
}

// Having adds a HAVING predicate; field must reference a projected
// finalName once the query executes (spec.md §7).
func (q *Query) Having(field string, op Op, value interface{}) *Query {
	return q.condLeaf(q.ensureHavingRoot, LinkAnd, field, op, value)
}

func (q *Query) currentRootFn() func() *Condition {
	if q.onTree == &q.havingStack {
		return q.ensureHavingRoot
	}
	return q.ensureWhereRoot
}

func (q *Query) condLeaf(ensureRoot func() *Condition, link LinkOp, field string, op Op, value interface{}) *Query {
	if q.err != nil {
		return q
	}
	root := ensureRoot()
	root.AddLeaf(link, field, op, value)
	return q
}

// WhereGroup opens a nested condition group under the current WHERE
// cursor; EndGroup closes it.
func (q *Query) WhereGroup(link LinkOp) *Query {
	return q.openGroup(q.ensureWhereRoot, link)
}

// HavingGroup opens a nested condition group under the current HAVING
// cursor; EndGroup closes it.
func (q *Query) HavingGroup(link LinkOp) *Query {
	return q.openGroup(q.ensureHavingRoot, link)
}

func (q *Query) openGroup(ensureRoot func() *Condition, link LinkOp) *Query {
	if q.err != nil {
		return q
	}
	parent := ensureRoot()
	child := NewConditionGroup(link)
	parent.AddGroup(link, child)
	*q.onTree = append(*q.onTree, child)
	return q
}

// EndGroup closes the most recently opened WhereGroup/HavingGroup.
func (q *Query) EndGroup() *Query {
	if q.err != nil {
		return q
	}
	if q.onTree == nil || len(*q.onTree) <= 1 {
		return q.fail(parseErr("EndGroup without a matching group"))
	}
	*q.onTree = (*q.onTree)[:len(*q.onTree)-1]
	return q
}

// InnerJoin/LeftJoin start a join; On must immediately follow.
func (q *Query) InnerJoin(right interface{}, alias string) *Query {
	return q.startJoin(JoinInner, right, alias)
}
func (q *Query) LeftJoin(right interface{}, alias string) *Query {
	return q.startJoin(JoinLeft, right, alias)
}

func (q *Query) startJoin(kind JoinKind, right interface{}, alias string) *Query {
	if q.err != nil {
		return q
	}
	j := &JoinSpec{Kind: kind, Right: right, Alias: alias, Op: OpEq, onPending: true}
	q.Joins = append(q.Joins, j)
	q.activeJoin = j
	return q
}

// On completes the most recently started join. Calling it without a
// preceding join call raises JoinError.
func (q *Query) On(leftKey string, op Op, rightKey string) *Query {
	if q.err != nil {
		return q
	}
	if q.activeJoin == nil || !q.activeJoin.onPending {
		return q.fail(joinErr("ON without a preceding JOIN"))
	}
	q.activeJoin.LeftKey = leftKey
	q.activeJoin.Op = op
	q.activeJoin.RightKey = rightKey
	q.activeJoin.onPending = false
	return q
}

// GroupBy adds a GROUP BY field.
func (q *Query) GroupBy(field string) *Query {
	q.GroupByFields = append(q.GroupByFields, field)
	return q
}

// OrderByField adds an ORDER BY entry, defaulting to ASC; chain Asc/
// Desc/Natsort/Shuffle to change the mode of the entry just added.
func (q *Query) OrderByField(field string) *Query {
	o := &Ordering{Field: field, Mode: SortAsc}
	q.OrderBy = append(q.OrderBy, o)
	q.lastOrder = o
	return q
}

func (q *Query) setOrderMode(mode SortMode) *Query {
	if q.err != nil {
		return q
	}
	if q.lastOrder == nil {
		return q.fail(sortErr("sort mode with no preceding OrderByField"))
	}
	q.lastOrder.Mode = mode
	return q
}

func (q *Query) Asc() *Query     { return q.setOrderMode(SortAsc) }
func (q *Query) Desc() *Query    { return q.setOrderMode(SortDesc) }
func (q *Query) Natsort() *Query { return q.setOrderMode(SortNatsort) }
func (q *Query) Shuffle() *Query { return q.setOrderMode(SortShuffle) }

// LimitOffset sets LIMIT with an optional OFFSET.
func (q *Query) LimitOffset(n int, offset ...int) *Query {
	q.Limit = n
	q.HasLimit = true
	if len(offset) > 0 {
		q.Offset = offset[0]
	}
	return q
}

// OffsetOnly sets OFFSET without a LIMIT.
func (q *Query) OffsetOnly(n int) *Query {
	q.Offset = n
	return q
}

// HasAggregates reports whether any selection is an aggregate
// function call — this, together with GroupBy, decides whether the
// engine runs the grouped or the streaming pipeline (spec.md §4.6).
func (q *Query) HasAggregates() bool {
	for _, sel := range q.Selections {
		if sel.Function == nil {
			continue
		}
		if def, ok := defaultFunctions.Lookup(sel.Function.Name); ok && def.Kind == KindAggregate {
			return true
		}
	}
	return false
}
