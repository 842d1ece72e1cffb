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
	"segplan.io/segplan/go/vt/sqlast"
)

// checkSubquery applies the preconditions shared by every rewrite and
// returns the subquery block, or the reason it cannot be pulled up.
func checkSubquery(stmt sqlast.SelectStatement) (*sqlast.Select, string) {
	sub, ok := stmt.(*sqlast.Select)
	if !ok {
		return nil, "set operation in subquery"
	}
	if len(sub.From) == 0 {
		return nil, "subquery has no FROM clause"
	}
	for _, se := range sub.SelectExprs {
		if returnsSet(se.Expr) {
			return nil, "set-returning function in subquery target list"
		}
	}
	if sub.Limit != nil {
		return nil, "LIMIT or OFFSET in subquery"
	}
	if sqlast.MaxOuterLevel(sub) > 1 {
		return nil, "subquery references a query above its parent"
	}
	for _, te := range sub.From {
		if reason := checkJoinTree(te); reason != "" {
			return nil, reason
		}
	}
	return sub, ""
}

func checkJoinTree(te sqlast.TableExpr) string {
	switch te := te.(type) {
	case *sqlast.JoinTableExpr:
		if te.Join != sqlast.NormalJoinType {
			return "non-inner join in subquery"
		}
		if reason := checkJoinTree(te.LeftExpr); reason != "" {
			return reason
		}
		return checkJoinTree(te.RightExpr)
	case *sqlast.AliasedTableExpr:
		if sqlast.ReferencesLevel(te, 1) {
			return "correlated FROM item in subquery"
		}
	}
	return ""
}

func returnsSet(e sqlast.Expr) bool {
	found := false
	_ = sqlast.Walk(func(node sqlast.SQLNode) (bool, error) {
		switch node := node.(type) {
		case *sqlast.FuncExpr:
			if node.ReturnsSet {
				found = true
			}
		case *sqlast.Subquery:
			return false, nil
		}
		return !found, nil
	}, e)
	return found
}

// quals returns the WHERE conjuncts of sel followed by the conjuncts of
// every join condition in its FROM clause.
func quals(sel *sqlast.Select) []sqlast.Expr {
	out := sqlast.SplitAndExpression(nil, sel.Where)
	var visit func(te sqlast.TableExpr)
	visit = func(te sqlast.TableExpr) {
		if join, ok := te.(*sqlast.JoinTableExpr); ok {
			visit(join.LeftExpr)
			visit(join.RightExpr)
			out = sqlast.SplitAndExpression(out, join.On)
		}
	}
	for _, te := range sel.From {
		visit(te)
	}
	return out
}

// stripJoinQuals removes the conditions of the inner joins in from. The
// caller moves them into the WHERE clause.
func stripJoinQuals(from sqlast.TableExprs) {
	var visit func(te sqlast.TableExpr)
	visit = func(te sqlast.TableExpr) {
		if join, ok := te.(*sqlast.JoinTableExpr); ok {
			visit(join.LeftExpr)
			visit(join.RightExpr)
			join.On = nil
		}
	}
	for _, te := range from {
		visit(te)
	}
}

// outerOnly reports whether e references the parent block and nothing of
// the subquery block.
func outerOnly(e sqlast.Expr) bool {
	return sqlast.ReferencesLevel(e, 1) && !sqlast.ReferencesLevel(e, 0) && pure(e)
}

// innerOnly reports whether e references the subquery block and nothing
// of the parent block.
func innerOnly(e sqlast.Expr) bool {
	return sqlast.ReferencesLevel(e, 0) && !sqlast.ReferencesLevel(e, 1) && pure(e)
}

func pure(e sqlast.Expr) bool {
	return !sqlast.ContainsAggregate(e) && !sqlast.ContainsVolatile(e) && !sqlast.ContainsSubquery(e)
}

// correlatedEquality splits "inner = outer" into its inner and outer sides.
func correlatedEquality(e sqlast.Expr) (inner, outer sqlast.Expr, ok bool) {
	cmp, isCmp := e.(*sqlast.ComparisonExpr)
	if !isCmp || cmp.Operator != sqlast.EqualOp || cmp.Modifier != sqlast.NoModifier {
		return nil, nil, false
	}
	switch {
	case innerOnly(cmp.Left) && outerOnly(cmp.Right):
		return cmp.Left, cmp.Right, true
	case outerOnly(cmp.Left) && innerOnly(cmp.Right):
		return cmp.Right, cmp.Left, true
	}
	return nil, nil, false
}

// buildContext sorts the quals of a correlated subquery into grouping
// keys and a residual.
func buildContext(sub *sqlast.Select) *Context {
	ctx := &Context{Safe: true}
	var joinQuals, residual []sqlast.Expr
	for _, q := range quals(sub) {
		if !sqlast.ReferencesLevel(q, 1) {
			residual = append(residual, q)
			continue
		}
		inner, outer, ok := correlatedEquality(q)
		if !ok {
			switch q.(type) {
			case *sqlast.NotExpr, *sqlast.OrExpr:
				return unsafe("correlated predicate under NOT or OR")
			}
			return unsafe("correlated predicate is not an equality of outer and inner expressions")
		}
		joinQuals = append(joinQuals, q)
		ctx.GroupBy = append(ctx.GroupBy, inner)
		ctx.OuterKeys = append(ctx.OuterKeys, outer)
	}
	if len(joinQuals) == 0 {
		return unsafe("no correlated equality in WHERE or join conditions")
	}
	ctx.JoinQual = sqlast.AndExpressions(joinQuals...)
	ctx.InnerQual = sqlast.AndExpressions(residual...)
	return ctx
}

// nullOnEmpty reports whether e evaluates to NULL over zero input rows.
func nullOnEmpty(e sqlast.Expr) bool {
	switch e := e.(type) {
	case *sqlast.FuncExpr:
		if e.Aggregate {
			return e.NullOnEmpty
		}
		if !e.Strict {
			return false
		}
		for _, arg := range e.Exprs {
			if nullOnEmpty(arg) {
				return true
			}
		}
	case *sqlast.BinaryExpr:
		return nullOnEmpty(e.Left) || nullOnEmpty(e.Right)
	}
	return false
}
