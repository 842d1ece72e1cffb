/*
Copyright 2026 The Segplan Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sqlast

import (
	"strconv"
	"strings"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/vterrors"
	vtrpcpb "segplan.io/segplan/go/vt/vtrpc"
)

// ParseExpr parses the scalar expression grammar used by plan fixtures:
// column references (optionally qualified, with a '^' per outer level),
// init plan parameters ($1), literals with optional ::type casts, arithmetic, comparisons, IN lists,
// IS tests, function calls, subqueries, and AND/OR/NOT. Column types are
// left unset.
func ParseExpr(sql string) (Expr, error) {
	p := &exprParser{tok: newTokenizer(sql)}
	p.next()
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.cur.typ != tokEOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return e, nil
}

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokNumber
	tokString
	tokOp
)

type token struct {
	typ tokenType
	val string
	pos int
}

type tokenizer struct {
	buf string
	pos int
}

func newTokenizer(sql string) *tokenizer {
	return &tokenizer{buf: sql}
}

func isIdentChar(c byte, first bool) bool {
	switch {
	case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		return true
	case '0' <= c && c <= '9':
		return !first
	}
	return false
}

func (t *tokenizer) scan() (token, error) {
	for t.pos < len(t.buf) && strings.IndexByte(" \t\r\n", t.buf[t.pos]) >= 0 {
		t.pos++
	}
	start := t.pos
	if t.pos >= len(t.buf) {
		return token{typ: tokEOF, pos: start}, nil
	}
	c := t.buf[t.pos]
	switch {
	case isIdentChar(c, true):
		for t.pos < len(t.buf) && isIdentChar(t.buf[t.pos], false) {
			t.pos++
		}
		return token{typ: tokIdent, val: t.buf[start:t.pos], pos: start}, nil
	case '0' <= c && c <= '9':
		for t.pos < len(t.buf) && ('0' <= t.buf[t.pos] && t.buf[t.pos] <= '9' || t.buf[t.pos] == '.') {
			t.pos++
		}
		return token{typ: tokNumber, val: t.buf[start:t.pos], pos: start}, nil
	case c == '\'':
		var sb strings.Builder
		t.pos++
		for {
			if t.pos >= len(t.buf) {
				return token{}, vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "unterminated string at position %d", start)
			}
			if t.buf[t.pos] == '\'' {
				if t.pos+1 < len(t.buf) && t.buf[t.pos+1] == '\'' {
					sb.WriteByte('\'')
					t.pos += 2
					continue
				}
				t.pos++
				return token{typ: tokString, val: sb.String(), pos: start}, nil
			}
			sb.WriteByte(t.buf[t.pos])
			t.pos++
		}
	}
	for _, op := range []string{"<>", "!=", "<=", ">=", "::"} {
		if strings.HasPrefix(t.buf[t.pos:], op) {
			t.pos += len(op)
			return token{typ: tokOp, val: op, pos: start}, nil
		}
	}
	if strings.IndexByte("=<>+-*/(),.^$", c) >= 0 {
		t.pos++
		return token{typ: tokOp, val: string(c), pos: start}, nil
	}
	return token{}, vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "unexpected character %q at position %d", c, start)
}

type exprParser struct {
	tok *tokenizer
	cur token
	err error
}

func (p *exprParser) next() {
	if p.err != nil {
		return
	}
	p.cur, p.err = p.tok.scan()
	if p.err != nil {
		p.cur = token{typ: tokEOF, pos: p.tok.pos}
	}
}

func (p *exprParser) errorf(msg string) error {
	if p.err != nil {
		return p.err
	}
	return vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "syntax error at position %d near '%s': %s", p.cur.pos, p.cur.val, msg)
}

func (p *exprParser) isKeyword(kw string) bool {
	return p.cur.typ == tokIdent && strings.EqualFold(p.cur.val, kw)
}

func (p *exprParser) isOp(op string) bool {
	return p.cur.typ == tokOp && p.cur.val == op
}

func (p *exprParser) expectOp(op string) error {
	if !p.isOp(op) {
		return p.errorf("expected '" + op + "'")
	}
	p.next()
	return nil
}

func (p *exprParser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &AndExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseNot() (Expr, error) {
	if p.isKeyword("not") {
		p.next()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: inner}, nil
	}
	return p.parsePredicate()
}

var comparisonOps = map[string]ComparisonExprOperator{
	"=":  EqualOp,
	"!=": NotEqualOp,
	"<>": NotEqualOp,
	"<":  LessThanOp,
	"<=": LessEqualOp,
	">":  GreaterThanOp,
	">=": GreaterEqualOp,
}

func (p *exprParser) parsePredicate() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.cur.typ == tokOp {
		if op, ok := comparisonOps[p.cur.val]; ok {
			p.next()
			modifier := NoModifier
			switch {
			case p.isKeyword("any"), p.isKeyword("some"):
				modifier = Any
			case p.isKeyword("all"):
				modifier = All
			}
			if modifier != NoModifier {
				p.next()
				if err := p.expectOp("("); err != nil {
					return nil, err
				}
				sub, err := p.parseSubqueryTail()
				if err != nil {
					return nil, err
				}
				return &ComparisonExpr{Operator: op, Left: left, Right: sub, Modifier: modifier}, nil
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &ComparisonExpr{Operator: op, Left: left, Right: right}, nil
		}
	}
	switch {
	case p.isKeyword("is"):
		p.next()
		not := false
		if p.isKeyword("not") {
			not = true
			p.next()
		}
		var op IsExprOperator
		switch {
		case p.isKeyword("null"):
			op = IsNullOp
		case p.isKeyword("true"):
			op = IsTrueOp
		case p.isKeyword("false"):
			op = IsFalseOp
		case p.isKeyword("unknown"):
			op = IsUnknownOp
		default:
			return nil, p.errorf("expected NULL, TRUE, FALSE or UNKNOWN")
		}
		p.next()
		if not {
			// each IS operator is directly followed by its negation
			op++
		}
		return &IsExpr{Left: left, Right: op}, nil
	case p.isKeyword("in"), p.isKeyword("not"):
		op := InOp
		if p.isKeyword("not") {
			op = NotInOp
			p.next()
			if !p.isKeyword("in") {
				return nil, p.errorf("expected IN")
			}
		}
		p.next()
		if err := p.expectOp("("); err != nil {
			return nil, err
		}
		if p.isKeyword("select") {
			sub, err := p.parseSubqueryTail()
			if err != nil {
				return nil, err
			}
			return &ComparisonExpr{Operator: op, Left: left, Right: sub}, nil
		}
		list, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &ComparisonExpr{Operator: op, Left: left, Right: ValTuple(list)}, nil
	}
	return left, nil
}

// parseList parses "e1, e2, ...)" after the opening parenthesis.
func (p *exprParser) parseList() (Exprs, error) {
	var list Exprs
	for {
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.isOp(",") {
			p.next()
			continue
		}
		return list, p.expectOp(")")
	}
}

func (p *exprParser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := PlusOp
		if p.cur.val == "-" {
			op = MinusOp
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Operator: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseMultiplicative() (Expr, error) {
	left, err := p.parseCast()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") {
		op := MultOp
		if p.cur.val == "/" {
			op = DivOp
		}
		p.next()
		right, err := p.parseCast()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Operator: op, Left: left, Right: right}
	}
	return left, nil
}

// parseCast handles a postfix ::type. Only literals can be cast; the cast
// is folded into the literal's type.
func (p *exprParser) parseCast() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.isOp("::") {
		p.next()
		if p.cur.typ != tokIdent {
			return nil, p.errorf("expected type name")
		}
		typ, ok := sqltypes.ParseType(p.cur.val)
		if !ok {
			return nil, p.errorf("unknown type")
		}
		lit, isLit := e.(*Literal)
		if !isLit {
			return nil, p.errorf("only literals can be cast")
		}
		if lit.IsNull() {
			p.next()
			continue
		}
		v, err := sqltypes.NewValue(typ, lit.Val.Raw())
		if err != nil {
			return nil, err
		}
		e = NewLiteral(v)
		p.next()
	}
	return e, nil
}

func (p *exprParser) parsePrimary() (Expr, error) {
	switch p.cur.typ {
	case tokNumber:
		return p.parseNumber(false)
	case tokString:
		s := p.cur.val
		p.next()
		return NewStrLiteral(s), nil
	case tokOp:
		switch p.cur.val {
		case "-":
			p.next()
			if p.cur.typ != tokNumber {
				return nil, p.errorf("expected number")
			}
			return p.parseNumber(true)
		case "(":
			p.next()
			if p.isKeyword("select") {
				return p.parseSubqueryTail()
			}
			list, err := p.parseList()
			if err != nil {
				return nil, err
			}
			if len(list) == 1 {
				return list[0], nil
			}
			return ValTuple(list), nil
		case "^":
			return p.parseColumn()
		case "$":
			p.next()
			if p.cur.typ != tokNumber {
				return nil, p.errorf("expected parameter number")
			}
			id, err := strconv.Atoi(p.cur.val)
			if err != nil || id < 1 {
				return nil, p.errorf("bad parameter number")
			}
			p.next()
			return &Param{ID: id}, nil
		}
	case tokIdent:
		switch {
		case p.isKeyword("null"):
			p.next()
			return NewNullLiteral(), nil
		case p.isKeyword("true"), p.isKeyword("false"):
			b := p.isKeyword("true")
			p.next()
			return NewBoolLiteral(b), nil
		case p.isKeyword("exists"):
			p.next()
			if err := p.expectOp("("); err != nil {
				return nil, err
			}
			sub, err := p.parseSubqueryTail()
			if err != nil {
				return nil, err
			}
			return &ExistsExpr{Subquery: sub}, nil
		case reservedWords[strings.ToLower(p.cur.val)]:
			return nil, p.errorf("unexpected keyword")
		}
		return p.parseColumn()
	}
	return nil, p.errorf("unexpected token")
}

func (p *exprParser) parseNumber(negative bool) (Expr, error) {
	text := p.cur.val
	if negative {
		text = "-" + text
	}
	p.next()
	if strings.Contains(text, ".") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf("bad number")
		}
		return NewLiteral(sqltypes.NewFloat64(f)), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.errorf("bad number")
	}
	return NewIntLiteral(i), nil
}

// parseColumn parses ^*ident[.ident] or a function call ident(args).
func (p *exprParser) parseColumn() (Expr, error) {
	level := 0
	for p.isOp("^") {
		level++
		p.next()
	}
	if p.cur.typ != tokIdent {
		return nil, p.errorf("expected identifier")
	}
	first := p.cur.val
	p.next()

	if p.isOp("(") && level == 0 {
		p.next()
		if p.isOp("*") {
			p.next()
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			if !strings.EqualFold(first, "count") {
				return nil, p.errorf("only count accepts *")
			}
			return NewCountStar(), nil
		}
		var args Exprs
		if p.isOp(")") {
			p.next()
		} else {
			var err error
			if args, err = p.parseList(); err != nil {
				return nil, err
			}
		}
		return NewFuncExpr(first, args...), nil
	}

	col := &ColName{Name: first, Level: level}
	if p.isOp(".") {
		p.next()
		if p.cur.typ != tokIdent {
			return nil, p.errorf("expected column name")
		}
		col.Qualifier, col.Name = first, p.cur.val
		p.next()
	}
	return col, nil
}
