package core

import (
	"strconv"
	"strings"
)

// Parser turns query text into a *Query, per the grammar in spec.md
// §4.5, extended with grammaticalized nested condition groups
// (SPEC_FULL.md §4.5/§9).
type Parser struct {
	lex *Lexer
	q   *Query
}

// Parse compiles src into a Query ready for Execute or Test.
func Parse(src string) (*Query, error) {
	p := &Parser{lex: NewLexer(src), q: New()}
	if err := p.parseQuery(); err != nil {
		return nil, err
	}
	if p.q.err != nil {
		return nil, p.q.err
	}
	return p.q, nil
}

func (p *Parser) peek() (Token, error) { return p.lex.Peek() }
func (p *Parser) next() (Token, error) { return p.lex.Next() }

func (p *Parser) expectKeyword(word string) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != TokKeyword || tok.Text != word {
		return parseErr("expected %s, got %q at position %d", word, tok.Text, tok.Pos)
	}
	return nil
}

func (p *Parser) peekIsKeyword(word string) bool {
	tok, err := p.peek()
	return err == nil && tok.Kind == TokKeyword && tok.Text == word
}

func (p *Parser) peekIsAnyKeyword(words ...string) bool {
	tok, err := p.peek()
	if err != nil || tok.Kind != TokKeyword {
		return false
	}
	for _, w := range words {
		if tok.Text == w {
			return true
		}
	}
	return false
}

func (p *Parser) parseQuery() error {
	if err := p.expectKeyword("SELECT"); err != nil {
		return err
	}
	if err := p.parseSelectList(); err != nil {
		return err
	}
	if p.peekIsKeyword("FROM") {
		p.next()
		path, err := p.parseSource("FROM")
		if err != nil {
			return err
		}
		p.q.From(path)
	}
	for p.peekIsAnyKeyword("INNER", "LEFT", "JOIN") {
		if err := p.parseJoin(); err != nil {
			return err
		}
	}
	if p.peekIsKeyword("WHERE") {
		p.next()
		if err := p.parseCondExpr(false); err != nil {
			return err
		}
	}
	if p.peekIsKeyword("GROUP") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		if err := p.parseGroupByList(); err != nil {
			return err
		}
	}
	if p.peekIsKeyword("HAVING") {
		p.next()
		if err := p.parseCondExpr(true); err != nil {
			return err
		}
	}
	if p.peekIsKeyword("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		if err := p.parseOrderByList(); err != nil {
			return err
		}
	}
	if p.peekIsKeyword("LIMIT") {
		if err := p.parseLimit(); err != nil {
			return err
		}
	} else if p.peekIsKeyword("OFFSET") {
		p.next()
		tok, err := p.next()
		if err != nil {
			return err
		}
		n, cerr := strconv.Atoi(tok.Text)
		if cerr != nil {
			return parseErr("invalid OFFSET value %q", tok.Text)
		}
		p.q.OffsetOnly(n)
	}
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.Kind != TokEOF {
		return parseErr("unexpected trailing token %q at %d", tok.Text, tok.Pos)
	}
	return nil
}

func (p *Parser) parseSelectList() error {
	if p.peekIsKeyword("DISTINCT") {
		p.next()
		p.q.Distinct()
	}
	for {
		if err := p.parseSelectItem(); err != nil {
			return err
		}
		if !p.peekIsComma() {
			break
		}
		p.next()
	}
	return nil
}

func (p *Parser) peekIsComma() bool {
	tok, err := p.peek()
	return err == nil && tok.Kind == TokComma
}

// parseDottedPath extends first with any trailing ('.' ident)*
// segments, folding them back into a single dotted path string (the
// lexer tokenizes '.' separately from identifiers).
func (p *Parser) parseDottedPath(first Token) (string, error) {
	path := first.Text
	for {
		tok, err := p.peek()
		if err != nil {
			return "", err
		}
		if tok.Kind != TokDot {
			break
		}
		p.next()
		nameTok, err := p.next()
		if err != nil {
			return "", err
		}
		if nameTok.Kind != TokIdent {
			return "", parseErr("expected identifier after '.', got %q at %d", nameTok.Text, nameTok.Pos)
		}
		path += "." + nameTok.Text
	}
	return path, nil
}

func (p *Parser) parseSelectItem() error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.Kind == TokIdent && tok.Text == "*" {
		p.next()
		p.q.SelectAll()
		return p.maybeAs()
	}

	if tok.Kind == TokIdent {
		// Could be a plain path or a function call — decide by
		// lookahead for '('.
		p.next()
		nextTok, err := p.peek()
		if err != nil {
			return err
		}
		if nextTok.Kind == TokLParen {
			return p.parseFunctionTail(tok.Text)
		}
		path, err := p.parseDottedPath(tok)
		if err != nil {
			return err
		}
		p.q.Select(path)
		return p.maybeAs()
	}
	return parseErr("expected selection, got %q at %d", tok.Text, tok.Pos)
}

func (p *Parser) parseFunctionTail(name string) error {
	if _, err := p.next(); err != nil { // consume '('
		return err
	}
	var args []interface{}
	tok, err := p.peek()
	if err != nil {
		return err
	}
	def, known := defaultFunctions.Lookup(strings.ToUpper(name))
	if tok.Kind == TokIdent && tok.Text == "*" {
		p.next()
		if known && def.Kind == KindAggregate {
			args = append(args, "*")
		} else {
			args = append(args, FieldRef("*"))
		}
	} else if tok.Kind != TokRParen {
		for {
			arg, err := p.parseArg(known && def.Kind == KindAggregate && len(args) == 0)
			if err != nil {
				return err
			}
			args = append(args, arg)
			if !p.peekIsComma() {
				break
			}
			p.next()
		}
	}
	closeTok, err := p.next()
	if err != nil {
		return err
	}
	if closeTok.Kind != TokRParen {
		return parseErr("expected ) after %s(..., got %q", name, closeTok.Text)
	}
	p.q.Fn(name, args...)
	return p.maybeAs()
}

// parseArg parses one function argument. When asFieldName is true the
// argument is an aggregate's field-path argument, stored as a plain
// string rather than a FieldRef (see Fn in query.go and aggFieldName
// in functions.go).
func (p *Parser) parseArg(asFieldName bool) (interface{}, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case TokIdent:
		p.next()
		nextTok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if nextTok.Kind == TokLParen {
			return p.parseNestedFunctionCall(tok.Text)
		}
		path, err := p.parseDottedPath(tok)
		if err != nil {
			return nil, err
		}
		if asFieldName {
			return path, nil
		}
		return FieldRef(path), nil
	case TokString:
		p.next()
		return tok.Text, nil
	case TokNumber:
		p.next()
		return parseNumberLiteral(tok.Text), nil
	case TokKeyword:
		if tok.Text == "TRUE" || tok.Text == "FALSE" || tok.Text == "NULL" {
			p.next()
			return literalKeyword(tok.Text), nil
		}
	}
	return nil, parseErr("expected argument, got %q at %d", tok.Text, tok.Pos)
}

func (p *Parser) parseNestedFunctionCall(name string) (interface{}, error) {
	if _, err := p.next(); err != nil { // '('
		return nil, err
	}
	var args []interface{}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokRParen {
		for {
			arg, err := p.parseArg(false)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.peekIsComma() {
				break
			}
			p.next()
		}
	}
	closeTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if closeTok.Kind != TokRParen {
		return nil, parseErr("expected ) closing nested call %s(...", name)
	}
	return &FunctionCall{Name: strings.ToUpper(name), Args: args}, nil
}

func (p *Parser) maybeAs() error {
	if !p.peekIsKeyword("AS") {
		return nil
	}
	p.next()
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != TokIdent {
		return parseErr("expected alias after AS, got %q", tok.Text)
	}
	p.q.As(tok.Text)
	return nil
}

// parseSource parses the path following FROM/JOIN: either a bare
// identifier/string path, or the "(path).selector" file-query literal
// (spec.md §4.5/§6) — the lexer has no special case for the leading
// '(', so this recognizes it here and reassembles the literal text
// that SplitFileQuery later parses back apart.
func (p *Parser) parseSource(context string) (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	if tok.Kind == TokLParen {
		pathTok, err := p.next()
		if err != nil {
			return "", err
		}
		var path string
		switch pathTok.Kind {
		case TokString:
			path = pathTok.Text
		case TokIdent:
			path, err = p.parseDottedPath(pathTok)
			if err != nil {
				return "", err
			}
		default:
			return "", parseErr("expected a file path inside (...) after %s, got %q", context, pathTok.Text)
		}
		closeTok, err := p.next()
		if err != nil {
			return "", err
		}
		if closeTok.Kind != TokRParen {
			return "", parseErr("expected ) closing file-query literal after %s, got %q", context, closeTok.Text)
		}
		literal := "(" + path + ")"
		if dotTok, err := p.peek(); err == nil && dotTok.Kind == TokDot {
			p.next()
			selTok, err := p.next()
			if err != nil {
				return "", err
			}
			if selTok.Kind != TokIdent {
				return "", parseErr("expected selector after '.', got %q", selTok.Text)
			}
			selector, err := p.parseDottedPath(selTok)
			if err != nil {
				return "", err
			}
			literal += "." + selector
		}
		return literal, nil
	}
	if tok.Kind != TokString && tok.Kind != TokIdent {
		return "", parseErr("expected file path after %s, got %q", context, tok.Text)
	}
	path := tok.Text
	if tok.Kind == TokIdent {
		path, err = p.parseDottedPath(tok)
		if err != nil {
			return "", err
		}
	}
	return path, nil
}

func (p *Parser) parseJoin() error {
	kind := JoinInner
	if p.peekIsKeyword("LEFT") {
		p.next()
		kind = JoinLeft
	} else if p.peekIsKeyword("INNER") {
		p.next()
	}
	if err := p.expectKeyword("JOIN"); err != nil {
		return err
	}
	joinPath, err := p.parseSource("JOIN")
	if err != nil {
		return err
	}
	alias := ""
	if p.peekIsKeyword("AS") {
		p.next()
		aliasTok, err := p.next()
		if err != nil {
			return err
		}
		alias = aliasTok.Text
	}
	if kind == JoinInner {
		p.q.InnerJoin(joinPath, alias)
	} else {
		p.q.LeftJoin(joinPath, alias)
	}
	if err := p.expectKeyword("ON"); err != nil {
		return err
	}
	leftTok, err := p.next()
	if err != nil {
		return err
	}
	left, err := p.parseDottedPath(leftTok)
	if err != nil {
		return err
	}
	opTok, err := p.next()
	if err != nil {
		return err
	}
	if opTok.Kind != TokOp {
		return parseErr("expected comparison operator in ON clause, got %q", opTok.Text)
	}
	rightTok, err := p.next()
	if err != nil {
		return err
	}
	right, err := p.parseDottedPath(rightTok)
	if err != nil {
		return err
	}
	p.q.On(left, Op(opTok.Text), right)
	return nil
}

// parseCondExpr parses a WHERE/HAVING body: term (AND|OR|XOR term)*,
// where a term is a parenthesized nested group or a single predicate.
// having selects between the WHERE and HAVING condition trees.
func (p *Parser) parseCondExpr(having bool) error {
	if err := p.parseCondTerm(having, true, LinkAnd); err != nil {
		return err
	}
	for p.peekIsAnyKeyword("AND", "OR", "XOR") {
		tok, _ := p.next()
		if err := p.parseCondTerm(having, false, LinkOp(tok.Text)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseCondTerm(having bool, first bool, link LinkOp) error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.Kind == TokLParen {
		p.next()
		if having {
			p.q.HavingGroup(link)
		} else {
			p.q.WhereGroup(link)
		}
		if err := p.parseCondExpr(having); err != nil {
			return err
		}
		closeTok, err := p.next()
		if err != nil {
			return err
		}
		if closeTok.Kind != TokRParen {
			return parseErr("expected ) closing condition group, got %q", closeTok.Text)
		}
		p.q.EndGroup()
		return nil
	}
	return p.parsePredicate(having, link)
}

func (p *Parser) parsePredicate(having bool, link LinkOp) error {
	fieldTok, err := p.next()
	if err != nil {
		return err
	}
	if fieldTok.Kind != TokIdent {
		return parseErr("expected field path, got %q at %d", fieldTok.Text, fieldTok.Pos)
	}
	fieldPath, err := p.parseDottedPath(fieldTok)
	if err != nil {
		return err
	}

	opTok, err := p.next()
	if err != nil {
		return err
	}

	var value interface{}
	switch opTok.Kind {
	case TokOp:
		if opTok.Text == "IS" {
			nullTok, err := p.next()
			if err != nil {
				return err
			}
			isNot := false
			if nullTok.Kind == TokKeyword && nullTok.Text == "NOT" {
				isNot = true
				nullTok, err = p.next()
				if err != nil {
					return err
				}
			}
			if nullTok.Kind != TokKeyword || nullTok.Text != "NULL" {
				return parseErr("expected NULL after IS[ NOT], got %q", nullTok.Text)
			}
			op := OpIs
			if isNot {
				op = OpIsNot
			}
			return p.addPredicate(having, link, fieldPath, op, nil)
		}
		if opTok.Text == "IN" || opTok.Text == "NOT IN" {
			list, err := p.parseValueList()
			if err != nil {
				return err
			}
			op := OpIn
			if opTok.Text == "NOT IN" {
				op = OpNotIn
			}
			return p.addPredicate(having, link, fieldPath, op, list)
		}
		valTok, err := p.next()
		if err != nil {
			return err
		}
		value, err = literalValue(valTok)
		if err != nil {
			return err
		}
		return p.addPredicate(having, link, fieldPath, Op(opTok.Text), value)
	default:
		return parseErr("expected operator, got %q at %d", opTok.Text, opTok.Pos)
	}
}

func (p *Parser) addPredicate(having bool, link LinkOp, field string, op Op, value interface{}) error {
	if having {
		if link == LinkOr {
			p.q.Or(field, op, value)
		} else if link == LinkXor {
			p.q.Xor(field, op, value)
		} else {
			p.q.Having(field, op, value)
		}
		return p.q.err
	}
	switch link {
	case LinkOr:
		p.q.Or(field, op, value)
	case LinkXor:
		p.q.Xor(field, op, value)
	default:
		if p.q.WhereTree == nil && len(p.q.whereStack) == 0 {
			p.q.Where(field, op, value)
		} else {
			p.q.And(field, op, value)
		}
	}
	return p.q.err
}

func (p *Parser) parseValueList() ([]interface{}, error) {
	openTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if openTok.Kind != TokLParen {
		return nil, parseErr("expected ( after IN, got %q", openTok.Text)
	}
	var out []interface{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		v, err := literalValue(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if !p.peekIsComma() {
			break
		}
		p.next()
	}
	closeTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if closeTok.Kind != TokRParen {
		return nil, parseErr("expected ) closing IN list, got %q", closeTok.Text)
	}
	return out, nil
}

func literalValue(tok Token) (interface{}, error) {
	switch tok.Kind {
	case TokString:
		return tok.Text, nil
	case TokNumber:
		return parseNumberLiteral(tok.Text), nil
	case TokKeyword:
		return literalKeyword(tok.Text), nil
	case TokIdent:
		return tok.Text, nil
	}
	return nil, parseErr("expected a literal value, got %q at %d", tok.Text, tok.Pos)
}

func literalKeyword(word string) interface{} {
	switch word {
	case "TRUE":
		return true
	case "FALSE":
		return false
	case "NULL":
		return nil
	}
	return word
}

func parseNumberLiteral(text string) interface{} {
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i
	}
	f, _ := strconv.ParseFloat(text, 64)
	return f
}

func (p *Parser) parseGroupByList() error {
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok.Kind != TokIdent {
			return parseErr("expected field in GROUP BY, got %q", tok.Text)
		}
		path, err := p.parseDottedPath(tok)
		if err != nil {
			return err
		}
		p.q.GroupBy(path)
		if !p.peekIsComma() {
			break
		}
		p.next()
	}
	return nil
}

func (p *Parser) parseOrderByList() error {
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok.Kind != TokIdent {
			return parseErr("expected field in ORDER BY, got %q", tok.Text)
		}
		path, err := p.parseDottedPath(tok)
		if err != nil {
			return err
		}
		p.q.OrderByField(path)
		if p.peekIsAnyKeyword("ASC", "DESC", "NATSORT", "SHUFFLE") {
			modeTok, _ := p.next()
			switch modeTok.Text {
			case "ASC":
				p.q.Asc()
			case "DESC":
				p.q.Desc()
			case "NATSORT":
				p.q.Natsort()
			case "SHUFFLE":
				p.q.Shuffle()
			}
		}
		if !p.peekIsComma() {
			break
		}
		p.next()
	}
	return nil
}

func (p *Parser) parseLimit() error {
	p.next()
	tok, err := p.next()
	if err != nil {
		return err
	}
	n, cerr := strconv.Atoi(tok.Text)
	if cerr != nil {
		return parseErr("invalid LIMIT value %q", tok.Text)
	}
	offset := 0
	if p.peekIsKeyword("OFFSET") {
		p.next()
		offTok, err := p.next()
		if err != nil {
			return err
		}
		offset, cerr = strconv.Atoi(offTok.Text)
		if cerr != nil {
			return parseErr("invalid OFFSET value %q", offTok.Text)
		}
	}
	p.q.LimitOffset(n, offset)
	return nil
}
