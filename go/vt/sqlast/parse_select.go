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

import "strings"

var reservedWords = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "by": true,
	"having": true, "order": true, "limit": true, "offset": true, "union": true,
	"join": true, "inner": true, "left": true, "right": true, "full": true,
	"outer": true, "cross": true, "on": true, "as": true, "and": true, "or": true,
	"in": true, "is": true, "all": true, "any": true, "some": true,
	"distinct": true, "desc": true, "asc": true,
}

// ParseSelect parses a query: SELECT blocks combined with UNION [ALL],
// FROM lists of tables, derived tables, table functions and explicit
// inner, left, right, full and cross joins, and the WHERE, GROUP BY,
// HAVING, ORDER BY and LIMIT clauses. Expressions follow ParseExpr.
func ParseSelect(sql string) (SelectStatement, error) {
	p := &exprParser{tok: newTokenizer(sql)}
	p.next()
	stmt, err := p.parseSelectStatement()
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.cur.typ != tokEOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return stmt, nil
}

// parseSubqueryTail parses "select ...)" after the opening parenthesis.
func (p *exprParser) parseSubqueryTail() (*Subquery, error) {
	stmt, err := p.parseSelectStatement()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return &Subquery{Select: stmt}, nil
}

func (p *exprParser) parseSelectStatement() (SelectStatement, error) {
	var stmt SelectStatement
	left, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	stmt = left
	for p.isKeyword("union") {
		p.next()
		distinct := true
		if p.isKeyword("all") {
			distinct = false
			p.next()
		}
		right, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		stmt = &Union{Left: stmt, Right: right, Distinct: distinct}
	}
	return stmt, nil
}

func (p *exprParser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.errorf("expected " + strings.ToUpper(kw))
	}
	p.next()
	return nil
}

func (p *exprParser) parseSelect() (*Select, error) {
	if err := p.expectKeyword("select"); err != nil {
		return nil, err
	}
	sel := &Select{}
	if p.isKeyword("distinct") {
		sel.Distinct = true
		p.next()
	}
	for {
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		ae := &AliasedExpr{Expr: e}
		if p.isKeyword("as") {
			p.next()
			if ae.As, err = p.parseIdent(); err != nil {
				return nil, err
			}
		}
		sel.SelectExprs = append(sel.SelectExprs, ae)
		if !p.isOp(",") {
			break
		}
		p.next()
	}

	var err error
	if p.isKeyword("from") {
		p.next()
		if sel.From, err = p.parseTableExprs(); err != nil {
			return nil, err
		}
	}
	if p.isKeyword("where") {
		p.next()
		if sel.Where, err = p.parseOr(); err != nil {
			return nil, err
		}
	}
	if p.isKeyword("group") {
		p.next()
		if err := p.expectKeyword("by"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, e)
			if !p.isOp(",") {
				break
			}
			p.next()
		}
	}
	if p.isKeyword("having") {
		p.next()
		if sel.Having, err = p.parseOr(); err != nil {
			return nil, err
		}
	}
	if p.isKeyword("order") {
		p.next()
		if err := p.expectKeyword("by"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			o := &Order{Expr: e}
			switch {
			case p.isKeyword("desc"):
				o.Desc = true
				p.next()
			case p.isKeyword("asc"):
				p.next()
			}
			sel.OrderBy = append(sel.OrderBy, o)
			if !p.isOp(",") {
				break
			}
			p.next()
		}
	}
	if p.isKeyword("limit") {
		p.next()
		sel.Limit = &Limit{}
		if sel.Limit.Rowcount, err = p.parseAdditive(); err != nil {
			return nil, err
		}
	}
	if p.isKeyword("offset") {
		p.next()
		if sel.Limit == nil {
			sel.Limit = &Limit{}
		}
		if sel.Limit.Offset, err = p.parseAdditive(); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

func (p *exprParser) parseIdent() (string, error) {
	if p.cur.typ != tokIdent || reservedWords[strings.ToLower(p.cur.val)] {
		return "", p.errorf("expected identifier")
	}
	name := p.cur.val
	p.next()
	return name, nil
}

func (p *exprParser) parseTableExprs() (TableExprs, error) {
	var out TableExprs
	for {
		te, err := p.parseJoinedTable()
		if err != nil {
			return nil, err
		}
		out = append(out, te)
		if !p.isOp(",") {
			return out, nil
		}
		p.next()
	}
}

// joinKeyword consumes a join introducer and reports the join type.
func (p *exprParser) joinKeyword() (JoinType, bool, error) {
	var jt JoinType
	switch {
	case p.isKeyword("join"):
		p.next()
		return NormalJoinType, true, nil
	case p.isKeyword("inner"), p.isKeyword("cross"):
		jt = NormalJoinType
	case p.isKeyword("left"):
		jt = LeftJoinType
	case p.isKeyword("right"):
		jt = RightJoinType
	case p.isKeyword("full"):
		jt = FullJoinType
	default:
		return 0, false, nil
	}
	p.next()
	if p.isKeyword("outer") {
		p.next()
	}
	return jt, true, p.expectKeyword("join")
}

func (p *exprParser) parseJoinedTable() (TableExpr, error) {
	left, err := p.parseTablePrimary()
	if err != nil {
		return nil, err
	}
	for {
		jt, ok, err := p.joinKeyword()
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := p.parseTablePrimary()
		if err != nil {
			return nil, err
		}
		join := &JoinTableExpr{LeftExpr: left, Join: jt, RightExpr: right}
		if p.isKeyword("on") {
			p.next()
			if join.On, err = p.parseOr(); err != nil {
				return nil, err
			}
		}
		left = join
	}
}

func (p *exprParser) parseTablePrimary() (TableExpr, error) {
	ate := &AliasedTableExpr{}
	switch {
	case p.isOp("("):
		p.next()
		sub, err := p.parseSubqueryTail()
		if err != nil {
			return nil, err
		}
		ate.Expr = &DerivedTable{Select: sub.Select}
	default:
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		if p.isOp("(") {
			p.next()
			var args Exprs
			if p.isOp(")") {
				p.next()
			} else if args, err = p.parseList(); err != nil {
				return nil, err
			}
			ate.Expr = &FuncTableExpr{Func: NewFuncExpr(name, args...)}
		} else {
			ate.Expr = TableName{Name: name}
		}
	}

	if p.isKeyword("as") {
		p.next()
	}
	if p.cur.typ == tokIdent && !reservedWords[strings.ToLower(p.cur.val)] {
		ate.As = p.cur.val
		p.next()
		if p.isOp("(") {
			p.next()
			for {
				col, err := p.parseIdent()
				if err != nil {
					return nil, err
				}
				ate.Columns = append(ate.Columns, col)
				if p.isOp(",") {
					p.next()
					continue
				}
				if err := p.expectOp(")"); err != nil {
					return nil, err
				}
				break
			}
		}
	}
	if _, derived := ate.Expr.(*DerivedTable); derived && ate.As == "" {
		return nil, p.errorf("derived table needs an alias")
	}
	return ate, nil
}
