package core

import "testing"

func TestParseSimpleSelect(t *testing.T) {
	q, err := Parse("SELECT name, age FROM 'people.csv' WHERE age > 18")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Selections) != 2 {
		t.Fatalf("Selections = %v, want 2 entries", q.Selections)
	}
	if q.FromPath != "people.csv" {
		t.Errorf("FromPath = %q, want people.csv", q.FromPath)
	}
	if q.WhereTree == nil || len(q.WhereTree.Children) != 1 {
		t.Fatalf("WhereTree = %v, want one leaf", q.WhereTree)
	}
	leaf := q.WhereTree.Children[0]
	if leaf.Key != "age" || leaf.Op != OpGt || leaf.Value != int64(18) {
		t.Errorf("leaf = %+v, want age > 18", leaf)
	}
}

func TestParseSelectStar(t *testing.T) {
	q, err := Parse("SELECT * FROM 'a.csv'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Selections) != 1 || q.Selections[0].OriginField != "*" {
		t.Errorf("Selections = %v, want [*]", q.Selections)
	}
}

func TestParseDottedFieldSelection(t *testing.T) {
	q, err := Parse("SELECT address.city FROM 'a.json'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Selections[0].OriginField != "address.city" {
		t.Errorf("OriginField = %q, want address.city", q.Selections[0].OriginField)
	}
}

func TestParseAlias(t *testing.T) {
	q, err := Parse("SELECT name AS fullName FROM 'a.csv'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel := q.Selections[0]
	if !sel.IsAlias || sel.FinalName != "fullName" {
		t.Errorf("selection = %+v, want alias fullName", sel)
	}
}

func TestParseFunctionCall(t *testing.T) {
	q, err := Parse("SELECT UPPER(name) FROM 'a.csv'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel := q.Selections[0]
	if sel.Function == nil || sel.Function.Name != "UPPER" {
		t.Fatalf("Function = %v, want UPPER(...)", sel.Function)
	}
	if ref, ok := sel.Function.Args[0].(FieldRef); !ok || string(ref) != "name" {
		t.Errorf("Args[0] = %v, want FieldRef(name)", sel.Function.Args[0])
	}
}

func TestParseAggregateCountStar(t *testing.T) {
	q, err := Parse("SELECT COUNT(*) FROM 'a.csv' GROUP BY dept")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel := q.Selections[0]
	if sel.Function == nil || sel.Function.Name != "COUNT" {
		t.Fatalf("Function = %v, want COUNT(...)", sel.Function)
	}
	if sel.Function.Args[0] != "*" {
		t.Errorf("COUNT arg = %v, want plain string \"*\"", sel.Function.Args[0])
	}
	if len(q.GroupByFields) != 1 || q.GroupByFields[0] != "dept" {
		t.Errorf("GroupByFields = %v, want [dept]", q.GroupByFields)
	}
}

func TestParseWhereAndOr(t *testing.T) {
	q, err := Parse("SELECT * FROM 'a.csv' WHERE a = 1 AND b = 2 OR c = 3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.WhereTree.Children) != 3 {
		t.Fatalf("WhereTree.Children = %v, want 3 leaves", q.WhereTree.Children)
	}
	if q.WhereTree.Children[1].Link != LinkAnd {
		t.Errorf("Children[1].Link = %v, want AND", q.WhereTree.Children[1].Link)
	}
	if q.WhereTree.Children[2].Link != LinkOr {
		t.Errorf("Children[2].Link = %v, want OR", q.WhereTree.Children[2].Link)
	}
}

func TestParseWhereGroupedCondition(t *testing.T) {
	q, err := Parse("SELECT * FROM 'a.csv' WHERE a = 1 AND (b = 2 OR c = 3)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.WhereTree.Children) != 2 {
		t.Fatalf("WhereTree.Children = %v, want 2 entries", q.WhereTree.Children)
	}
	group := q.WhereTree.Children[1]
	if !group.IsGroup || len(group.Children) != 2 {
		t.Fatalf("grouped child = %+v, want a 2-leaf group", group)
	}
}

func TestParseHaving(t *testing.T) {
	q, err := Parse("SELECT dept, COUNT(*) AS n FROM 'a.csv' GROUP BY dept HAVING n > 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.HavingTree == nil || len(q.HavingTree.Children) != 1 {
		t.Fatalf("HavingTree = %v, want one leaf", q.HavingTree)
	}
	if q.HavingTree.Children[0].Key != "n" {
		t.Errorf("HavingTree leaf key = %q, want n", q.HavingTree.Children[0].Key)
	}
}

func TestParseJoin(t *testing.T) {
	q, err := Parse("SELECT * FROM 'a.csv' INNER JOIN 'b.csv' AS b ON a.id = b.aid")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Joins) != 1 {
		t.Fatalf("Joins = %v, want 1", q.Joins)
	}
	j := q.Joins[0]
	if j.Kind != JoinInner || j.Alias != "b" || j.LeftKey != "a.id" || j.RightKey != "b.aid" || j.Op != OpEq {
		t.Errorf("join = %+v, unexpected shape", j)
	}
}

func TestParseLeftJoin(t *testing.T) {
	q, err := Parse("SELECT * FROM 'a.csv' LEFT JOIN 'b.csv' AS b ON a.id = b.aid")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Joins[0].Kind != JoinLeft {
		t.Errorf("Kind = %v, want LEFT", q.Joins[0].Kind)
	}
}

func TestParseOrderByAndLimit(t *testing.T) {
	q, err := Parse("SELECT * FROM 'a.csv' ORDER BY age DESC, name NATSORT LIMIT 10 OFFSET 5")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.OrderBy) != 2 {
		t.Fatalf("OrderBy = %v, want 2 entries", q.OrderBy)
	}
	if q.OrderBy[0].Field != "age" || q.OrderBy[0].Mode != SortDesc {
		t.Errorf("OrderBy[0] = %+v, want age DESC", q.OrderBy[0])
	}
	if q.OrderBy[1].Field != "name" || q.OrderBy[1].Mode != SortNatsort {
		t.Errorf("OrderBy[1] = %+v, want name NATSORT", q.OrderBy[1])
	}
	if !q.HasLimit || q.Limit != 10 || q.Offset != 5 {
		t.Errorf("Limit/Offset = %v/%v/%v, want true/10/5", q.HasLimit, q.Limit, q.Offset)
	}
}

func TestParseInList(t *testing.T) {
	q, err := Parse("SELECT * FROM 'a.csv' WHERE dept IN ('eng', 'sales')")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	leaf := q.WhereTree.Children[0]
	if leaf.Op != OpIn {
		t.Fatalf("Op = %v, want IN", leaf.Op)
	}
	list, ok := leaf.Value.([]interface{})
	if !ok || len(list) != 2 || list[0] != "eng" || list[1] != "sales" {
		t.Errorf("Value = %v, want [eng sales]", leaf.Value)
	}
}

func TestParseIsNull(t *testing.T) {
	q, err := Parse("SELECT * FROM 'a.csv' WHERE deleted_at IS NULL")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	leaf := q.WhereTree.Children[0]
	if leaf.Op != OpIs || leaf.Value != nil {
		t.Errorf("leaf = %+v, want IS NULL", leaf)
	}
}

func TestParseDistinct(t *testing.T) {
	q, err := Parse("SELECT DISTINCT name FROM 'a.csv'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !q.DistinctOn {
		t.Error("DistinctOn = false, want true")
	}
}

func TestParseTrailingGarbageErrors(t *testing.T) {
	_, err := Parse("SELECT * FROM 'a.csv' EXTRA")
	if err == nil {
		t.Fatal("expected parse error for trailing garbage")
	}
}

func TestParseFileQueryFrom(t *testing.T) {
	q, err := Parse("SELECT * FROM (a.json).items")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.FromPath != "(a.json).items" {
		t.Errorf("FromPath = %q, want (a.json).items", q.FromPath)
	}
	path, selector := SplitFileQuery(q.FromPath)
	if path != "a.json" || selector != "items" {
		t.Errorf("SplitFileQuery = (%q, %q), want (a.json, items)", path, selector)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	src := "SELECT name, age\nFROM a.csv\nWHERE age > 18\nORDER BY age DESC\nLIMIT 10"
	q, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rendered := q.Test()

	q2, err := Parse(rendered)
	if err != nil {
		t.Fatalf("Parse(rendered) failed: %v\nrendered:\n%s", err, rendered)
	}
	if q2.FromPath != q.FromPath {
		t.Errorf("round-trip FromPath = %q, want %q", q2.FromPath, q.FromPath)
	}
	if len(q2.WhereTree.Children) != len(q.WhereTree.Children) {
		t.Errorf("round-trip WhereTree children = %d, want %d", len(q2.WhereTree.Children), len(q.WhereTree.Children))
	}
}
