package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Test renders q back into canonical query text: one clause per line,
// nested condition groups inline in parentheses, uppercase keywords. Parsing
// the result with Parse must reproduce an equivalent query (spec.md
// §8's round-trip invariant).
func (q *Query) Test() string {
	if q.err != nil {
		return fmt.Sprintf("-- error: %v", q.err)
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.DistinctOn {
		sb.WriteString("DISTINCT ")
	}
	renderSelections(&sb, q.Selections)

	if q.FromPath != "" {
		sb.WriteString("\nFROM ")
		sb.WriteString(quotePath(q.FromPath))
	}

	for _, j := range q.Joins {
		sb.WriteByte('\n')
		renderJoin(&sb, j)
	}

	if q.WhereTree != nil && len(q.WhereTree.Children) > 0 {
		sb.WriteString("\nWHERE ")
		renderCondition(&sb, q.WhereTree, 1)
	}

	if len(q.GroupByFields) > 0 {
		sb.WriteString("\nGROUP BY ")
		sb.WriteString(strings.Join(q.GroupByFields, ", "))
	}

	if q.HavingTree != nil && len(q.HavingTree.Children) > 0 {
		sb.WriteString("\nHAVING ")
		renderCondition(&sb, q.HavingTree, 1)
	}

	if len(q.OrderBy) > 0 {
		sb.WriteString("\nORDER BY ")
		parts := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			parts[i] = o.Field + " " + string(o.Mode)
		}
		sb.WriteString(strings.Join(parts, ", "))
	}

	if q.HasLimit {
		sb.WriteString("\nLIMIT ")
		sb.WriteString(strconv.Itoa(q.Limit))
		if q.Offset > 0 {
			sb.WriteString(" OFFSET ")
			sb.WriteString(strconv.Itoa(q.Offset))
		}
	} else if q.Offset > 0 {
		sb.WriteString("\nOFFSET ")
		sb.WriteString(strconv.Itoa(q.Offset))
	}

	return sb.String()
}

func renderSelections(sb *strings.Builder, selections []*SelectedField) {
	parts := make([]string, len(selections))
	for i, sel := range selections {
		parts[i] = renderSelection(sel)
	}
	sb.WriteString(strings.Join(parts, ", "))
}

func renderSelection(sel *SelectedField) string {
	var base string
	if sel.Function != nil {
		base = renderFunctionCall(sel.Function)
	} else {
		base = sel.OriginField
	}
	if sel.IsAlias && sel.FinalName != sel.OriginField {
		return base + " AS " + sel.FinalName
	}
	return base
}

func renderFunctionCall(fc *FunctionCall) string {
	parts := make([]string, len(fc.Args))
	for i, a := range fc.Args {
		parts[i] = renderArg(a)
	}
	return fc.Name + "(" + strings.Join(parts, ", ") + ")"
}

func renderArg(a interface{}) string {
	switch v := a.(type) {
	case FieldRef:
		return string(v)
	case *FunctionCall:
		return renderFunctionCall(v)
	case string:
		return v
	default:
		return renderLiteral(v)
	}
}

func renderLiteral(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(t, "'", "\\'") + "'"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return stringify(v)
	}
}

func renderJoin(sb *strings.Builder, j *JoinSpec) {
	if j.Kind == JoinLeft {
		sb.WriteString("LEFT JOIN ")
	} else {
		sb.WriteString("INNER JOIN ")
	}
	sb.WriteString(quotePath(renderJoinRight(j.Right)))
	if j.Alias != "" {
		sb.WriteString(" AS ")
		sb.WriteString(j.Alias)
	}
	sb.WriteString(" ON ")
	sb.WriteString(j.LeftKey)
	sb.WriteByte(' ')
	sb.WriteString(string(j.Op))
	sb.WriteByte(' ')
	sb.WriteString(j.RightKey)
}

func renderJoinRight(right interface{}) string {
	switch v := right.(type) {
	case string:
		return v
	case *Query:
		return "(" + v.Test() + ")"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func quotePath(path string) string {
	if !strings.ContainsAny(path, " \t()") {
		return path
	}
	return "'" + path + "'"
}

// renderCondition prints a condition tree inline, parenthesizing
// nested groups; depth is reserved for callers that want to pretty
// print with indentation and currently only disambiguates the root.
func renderCondition(sb *strings.Builder, c *Condition, depth int) {
	if !c.IsGroup {
		renderLeaf(sb, c)
		return
	}
	for i, child := range c.Children {
		if i > 0 {
			sb.WriteByte(' ')
			sb.WriteString(string(child.Link))
			sb.WriteByte(' ')
		}
		if child.IsGroup {
			sb.WriteByte('(')
			renderCondition(sb, child, depth+1)
			sb.WriteByte(')')
		} else {
			renderLeaf(sb, child)
		}
	}
}

func renderLeaf(sb *strings.Builder, c *Condition) {
	sb.WriteString(c.Key)
	sb.WriteByte(' ')
	switch c.Op {
	case OpIs, OpIsNot:
		sb.WriteString(string(c.Op))
		sb.WriteString(" NULL")
		return
	case OpIn, OpNotIn:
		sb.WriteString(string(c.Op))
		sb.WriteString(" (")
		seq, _ := c.Value.([]interface{})
		parts := make([]string, len(seq))
		for i, v := range seq {
			parts[i] = renderLiteral(v)
		}
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteByte(')')
		return
	}
	sb.WriteString(string(c.Op))
	sb.WriteByte(' ')
	sb.WriteString(renderLiteral(c.Value))
}
