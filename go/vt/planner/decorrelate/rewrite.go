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

package decorrelate

import (
	"strings"

	"segplan.io/segplan/go/vt/sqlast"
)

// convertScalar pulls up "expr OP (SELECT agg ...)". The subquery becomes
// a derived table grouped by the inner sides of its correlated equalities,
// joined to the outer query on the outer sides.
func (d *Decorrelator) convertScalar(sel *sqlast.Select, cmp *sqlast.ComparisonExpr, sub *sqlast.Subquery) (sqlast.Expr, string, string) {
	if len(sel.From) == 0 {
		return nil, "", "outer query has no FROM clause"
	}
	s, reason := checkSubquery(sub.Select)
	if reason != "" {
		return nil, "", reason
	}
	switch {
	case !sqlast.IsCorrelated(s):
		return nil, "", "uncorrelated scalar subquery"
	case len(s.SelectExprs) != 1:
		return nil, "", "scalar subquery returns more than one column"
	case len(s.GroupBy) > 0 || s.Having != nil:
		return nil, "", "GROUP BY or HAVING in scalar subquery"
	case !sqlast.ContainsAggregate(s.SelectExprs[0].Expr):
		return nil, "", "scalar subquery has no aggregate"
	case sqlast.ReferencesLevel(s.SelectExprs[0].Expr, 1):
		return nil, "", "correlated scalar subquery target list"
	case !nullOnEmpty(s.SelectExprs[0].Expr):
		return nil, "", "scalar subquery output is not NULL on empty input"
	}

	inner := sqlast.CloneSelect(s)
	ctx := buildContext(inner)
	if !ctx.Safe {
		return nil, "", ctx.Reason
	}
	ctx.TargetList = append(sqlast.CloneExprs(ctx.GroupBy), inner.SelectExprs[0].Expr)

	stripJoinQuals(inner.From)
	inner.Where = ctx.InnerQual
	inner.GroupBy = ctx.GroupBy
	inner.OrderBy = nil
	inner.Distinct = false
	project(inner, ctx.TargetList)

	alias := d.alias("expr_subquery")
	var on []sqlast.Expr
	for i, outer := range ctx.OuterKeys {
		sqlast.AdjustLevels(outer, -1, 1)
		on = append(on, &sqlast.ComparisonExpr{
			Operator: sqlast.EqualOp,
			Left:     outer,
			Right:    derivedColumn(alias, inner, i),
		})
	}
	splice(sel, sqlast.NormalJoinType, sqlast.NewDerivedTable(inner, alias), sqlast.AndExpressions(on...))

	out := &sqlast.ComparisonExpr{Operator: cmp.Operator, Left: cmp.Left, Right: cmp.Right}
	value := derivedColumn(alias, inner, len(ctx.GroupBy))
	if cmp.Right == sub {
		out.Right = value
	} else {
		out.Left = value
	}
	return out, alias, ""
}

// checkInOperand validates the left side of an uncorrelated IN or NOT IN
// subquery predicate.
func checkInOperand(left sqlast.Expr, sub *sqlast.Subquery) (*sqlast.Select, sqlast.Exprs, string) {
	s, reason := checkSubquery(sub.Select)
	if reason != "" {
		return nil, nil, reason
	}
	lefts := tupleExprs(left)
	switch {
	case sqlast.IsCorrelated(s):
		return nil, nil, "correlated subquery"
	case len(lefts) != len(s.SelectExprs):
		return nil, nil, "operand and subquery column counts differ"
	case sqlast.ContainsVolatile(left):
		return nil, nil, "volatile function in operand"
	case sqlast.ContainsSubquery(left):
		return nil, nil, "subquery in operand"
	case !sqlast.ReferencesLevel(left, 0):
		return nil, nil, "operand does not reference the outer query"
	}
	return s, lefts, ""
}

// derive copies an uncorrelated subquery into a derived table whose
// columns are named csq_c0, csq_c1...
func derive(s *sqlast.Select) *sqlast.Select {
	inner := sqlast.CloneSelect(s)
	inner.Distinct = false
	inner.OrderBy = nil
	exprs := make(sqlast.Exprs, 0, len(inner.SelectExprs))
	for _, se := range inner.SelectExprs {
		exprs = append(exprs, se.Expr)
	}
	project(inner, exprs)
	return inner
}

// convertNotIn turns "expr NOT IN (SELECT ...)" into a left anti semi
// join. Unless both sides are known to be non-null the condition is
// wrapped in IS NOT FALSE, so that a NULL comparison keeps the outer row
// out of the result like NOT IN does.
func (d *Decorrelator) convertNotIn(sel *sqlast.Select, left sqlast.Expr, sub *sqlast.Subquery, others []sqlast.Expr) (sqlast.Expr, string, string) {
	if len(sel.From) == 0 {
		return nil, "", "outer query has no FROM clause"
	}
	s, lefts, reason := checkInOperand(left, sub)
	if reason != "" {
		return nil, "", reason
	}
	inner := derive(s)
	alias := d.alias("notin_subquery")
	on := equalities(lefts, alias, inner)
	if !d.outerNonNull(sel, lefts, others) || !d.innerNonNull(inner) {
		on = &sqlast.IsExpr{Left: on, Right: sqlast.IsNotFalseOp}
	}
	splice(sel, sqlast.LeftAntiSemiNotInJoinType, sqlast.NewDerivedTable(inner, alias), on)
	return nil, alias, ""
}

// convertIn turns "expr IN (SELECT ...)" into a semi join.
func (d *Decorrelator) convertIn(sel *sqlast.Select, left sqlast.Expr, sub *sqlast.Subquery) (sqlast.Expr, string, string) {
	if len(sel.From) == 0 {
		return nil, "", "outer query has no FROM clause"
	}
	s, lefts, reason := checkInOperand(left, sub)
	if reason != "" {
		return nil, "", reason
	}
	inner := derive(s)
	alias := d.alias("in_subquery")
	splice(sel, sqlast.SemiJoinType, sqlast.NewDerivedTable(inner, alias), equalities(lefts, alias, inner))
	return nil, alias, ""
}

// convertExists turns a correlated [NOT] EXISTS into a semi or anti join.
// The correlated conjuncts become the join condition and read the inner
// columns they need through the derived table.
func (d *Decorrelator) convertExists(sel *sqlast.Select, sub *sqlast.Subquery, negate bool) (sqlast.Expr, string, string) {
	if len(sel.From) == 0 {
		return nil, "", "outer query has no FROM clause"
	}
	s, reason := checkSubquery(sub.Select)
	if reason != "" {
		return nil, "", reason
	}
	if !sqlast.IsCorrelated(s) {
		return nil, "", "uncorrelated subquery"
	}
	if len(s.GroupBy) > 0 || s.Having != nil {
		return nil, "", "aggregation in subquery"
	}
	for _, se := range s.SelectExprs {
		if sqlast.ContainsAggregate(se.Expr) {
			return nil, "", "aggregation in subquery"
		}
	}

	inner := sqlast.CloneSelect(s)
	var correlated, residual []sqlast.Expr
	for _, q := range quals(inner) {
		if !sqlast.ReferencesLevel(q, 1) {
			residual = append(residual, q)
			continue
		}
		if sqlast.ContainsSubquery(q) {
			return nil, "", "subquery in correlated predicate"
		}
		correlated = append(correlated, q)
	}
	if len(correlated) == 0 {
		return nil, "", "correlation outside WHERE and join conditions"
	}
	stripJoinQuals(inner.From)
	inner.Where = sqlast.AndExpressions(residual...)
	inner.OrderBy = nil
	inner.Distinct = false

	var cols sqlast.Exprs
	index := map[string]int{}
	for _, q := range correlated {
		sqlast.VisitColumns(q, func(col *sqlast.ColName, _ int) bool {
			if col.Level == 0 {
				k := columnKey(col)
				if _, seen := index[k]; !seen {
					index[k] = len(cols)
					cols = append(cols, sqlast.CloneExpr(col))
				}
			}
			return true
		})
	}
	if len(cols) == 0 {
		cols = sqlast.Exprs{sqlast.NewIntLiteral(1)}
	}
	project(inner, cols)

	alias := d.alias("exists_subquery")
	on := sqlast.RewriteExpr(sqlast.AndExpressions(correlated...), func(cursor *sqlast.Cursor) bool {
		col, ok := cursor.Node().(*sqlast.ColName)
		if !ok {
			return true
		}
		if col.Level == 0 {
			cursor.Replace(derivedColumn(alias, inner, index[columnKey(col)]))
		} else {
			col.Level--
		}
		return false
	}, nil)

	join := sqlast.SemiJoinType
	if negate {
		join = sqlast.AntiJoinType
	}
	splice(sel, join, sqlast.NewDerivedTable(inner, alias), on)
	return nil, alias, ""
}

func columnKey(col *sqlast.ColName) string {
	return strings.ToLower(col.Qualifier) + "." + strings.ToLower(col.Name)
}
