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

// Package decorrelate rewrites subqueries in WHERE clauses into joins
// against derived tables when doing so cannot change the query result.
package decorrelate

import (
	"fmt"

	"segplan.io/segplan/go/vt/planner/catalog"
	"segplan.io/segplan/go/vt/sqlast"
)

// Kind is the shape of a subquery predicate.
type Kind int8

const (
	// Scalar is "expr OP (SELECT agg ...)".
	Scalar Kind = iota
	// NotIn is "expr NOT IN (SELECT ...)" and "expr <> ALL (SELECT ...)".
	NotIn
	// Exists is "EXISTS (SELECT ...)".
	Exists
	// NotExists is "NOT EXISTS (SELECT ...)".
	NotExists
	// In is "expr IN (SELECT ...)" and "expr = ANY (SELECT ...)".
	In
)

var kindNames = [...]string{
	Scalar:    "scalar",
	NotIn:     "not_in",
	Exists:    "exists",
	NotExists: "not_exists",
	In:        "in",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Config enables the individual rewrites.
type Config struct {
	Scalar bool
	NotIn  bool
	Exists bool
	In     bool
}

// DefaultConfig enables every rewrite.
func DefaultConfig() Config {
	return Config{Scalar: true, NotIn: true, Exists: true, In: true}
}

func (c Config) enabled(k Kind) bool {
	switch k {
	case Scalar:
		return c.Scalar
	case NotIn:
		return c.NotIn
	case Exists, NotExists:
		return c.Exists
	case In:
		return c.In
	}
	return false
}

// Outcome records one attempt to rewrite a subquery.
type Outcome struct {
	Kind      Kind
	Converted bool
	// Alias names the derived table the subquery became.
	Alias string
	// Reason says why the subquery was left in place.
	Reason string
}

func (o Outcome) String() string {
	if o.Converted {
		return fmt.Sprintf("%s: converted to %s", o.Kind, o.Alias)
	}
	return fmt.Sprintf("%s: kept (%s)", o.Kind, o.Reason)
}

// Context is what the safety analysis learns about a correlated subquery.
type Context struct {
	// Safe is false when the subquery cannot be pulled up.
	Safe bool
	// Reason explains an unsafe context.
	Reason string
	// JoinQual holds the correlated conjuncts.
	JoinQual sqlast.Expr
	// InnerQual holds the conjuncts that only reference the subquery.
	InnerQual sqlast.Expr
	// TargetList is the projection of the derived table.
	TargetList sqlast.Exprs
	// GroupBy holds the inner sides of the correlated equalities.
	GroupBy sqlast.Exprs
	// OuterKeys holds the outer sides of the correlated equalities, at
	// the levels of the subquery block.
	OuterKeys sqlast.Exprs
}

func unsafe(reason string) *Context {
	return &Context{Reason: reason}
}

// Decorrelator rewrites the subquery predicates of a statement. Derived
// tables it creates are numbered from 1 per Decorrelator.
type Decorrelator struct {
	schema catalog.Schema
	cfg    Config

	seq      int
	outcomes []Outcome
}

// New returns a Decorrelator. schema is used by the NOT IN rewrite to
// find NOT NULL columns and may be nil.
func New(schema catalog.Schema, cfg Config) *Decorrelator {
	return &Decorrelator{schema: schema, cfg: cfg}
}

// Rewrite decorrelates stmt in place and reports every attempt. Unsafe
// subqueries are left untouched; Rewrite never fails.
func (d *Decorrelator) Rewrite(stmt sqlast.SelectStatement) []Outcome {
	d.outcomes = nil
	d.rewriteStatement(stmt)
	return d.outcomes
}

func (d *Decorrelator) rewriteStatement(stmt sqlast.SelectStatement) {
	switch stmt := stmt.(type) {
	case *sqlast.Union:
		d.rewriteStatement(stmt.Left)
		d.rewriteStatement(stmt.Right)
	case *sqlast.Select:
		d.rewriteSelect(stmt)
	}
}

func (d *Decorrelator) rewriteSelect(sel *sqlast.Select) {
	conjuncts := sqlast.SplitAndExpression(nil, sel.Where)
	var kept []sqlast.Expr
	for i, conjunct := range conjuncts {
		others := append(append([]sqlast.Expr{}, kept...), conjuncts[i+1:]...)
		if replacement, ok := d.convert(sel, conjunct, others); ok {
			if replacement != nil {
				kept = append(kept, replacement)
			}
			continue
		}
		kept = append(kept, conjunct)
	}
	if len(conjuncts) > 0 {
		sel.Where = sqlast.AndExpressions(kept...)
	}
	for _, te := range sel.From {
		d.rewriteFrom(te)
	}
}

func (d *Decorrelator) rewriteFrom(te sqlast.TableExpr) {
	switch te := te.(type) {
	case *sqlast.JoinTableExpr:
		d.rewriteFrom(te.LeftExpr)
		d.rewriteFrom(te.RightExpr)
	case *sqlast.AliasedTableExpr:
		if dt, ok := te.Expr.(*sqlast.DerivedTable); ok {
			d.rewriteStatement(dt.Select)
		}
	}
}

// convert tries to rewrite a WHERE conjunct of sel. It returns false when
// the conjunct is not a subquery predicate or was kept as is, and the
// conjunct that replaces it otherwise, nil when it is gone entirely.
func (d *Decorrelator) convert(sel *sqlast.Select, conjunct sqlast.Expr, others []sqlast.Expr) (sqlast.Expr, bool) {
	switch e := conjunct.(type) {
	case *sqlast.ExistsExpr:
		return d.try(Exists, func() (sqlast.Expr, string, string) {
			return d.convertExists(sel, e.Subquery, false)
		})
	case *sqlast.NotExpr:
		switch inner := e.Expr.(type) {
		case *sqlast.ExistsExpr:
			return d.try(NotExists, func() (sqlast.Expr, string, string) {
				return d.convertExists(sel, inner.Subquery, true)
			})
		case *sqlast.ComparisonExpr:
			if sub, ok := inner.Right.(*sqlast.Subquery); ok && isIn(inner) {
				return d.try(NotIn, func() (sqlast.Expr, string, string) {
					return d.convertNotIn(sel, inner.Left, sub, others)
				})
			}
		}
	case *sqlast.ComparisonExpr:
		if sub, ok := e.Right.(*sqlast.Subquery); ok {
			switch {
			case isNotIn(e):
				return d.try(NotIn, func() (sqlast.Expr, string, string) {
					return d.convertNotIn(sel, e.Left, sub, others)
				})
			case isIn(e):
				return d.try(In, func() (sqlast.Expr, string, string) {
					return d.convertIn(sel, e.Left, sub)
				})
			case e.Modifier == sqlast.NoModifier:
				return d.try(Scalar, func() (sqlast.Expr, string, string) {
					return d.convertScalar(sel, e, sub)
				})
			}
			return nil, false
		}
		if sub, ok := e.Left.(*sqlast.Subquery); ok && e.Modifier == sqlast.NoModifier && isScalarOp(e.Operator) {
			return d.try(Scalar, func() (sqlast.Expr, string, string) {
				return d.convertScalar(sel, e, sub)
			})
		}
	}
	return nil, false
}

// try runs a rewrite of kind k and records its outcome.
func (d *Decorrelator) try(k Kind, rewrite func() (sqlast.Expr, string, string)) (sqlast.Expr, bool) {
	if !d.cfg.enabled(k) {
		return nil, false
	}
	replacement, alias, reason := rewrite()
	if reason != "" {
		d.outcomes = append(d.outcomes, Outcome{Kind: k, Reason: reason})
		return nil, false
	}
	d.outcomes = append(d.outcomes, Outcome{Kind: k, Converted: true, Alias: alias})
	return replacement, true
}

func (d *Decorrelator) alias(prefix string) string {
	d.seq++
	return fmt.Sprintf("%s_%d", prefix, d.seq)
}

func isIn(e *sqlast.ComparisonExpr) bool {
	return (e.Operator == sqlast.InOp && e.Modifier == sqlast.NoModifier) ||
		(e.Operator == sqlast.EqualOp && e.Modifier == sqlast.Any)
}

func isNotIn(e *sqlast.ComparisonExpr) bool {
	return (e.Operator == sqlast.NotInOp && e.Modifier == sqlast.NoModifier) ||
		(e.Operator == sqlast.NotEqualOp && e.Modifier == sqlast.All)
}

func isScalarOp(op sqlast.ComparisonExprOperator) bool {
	return op != sqlast.InOp && op != sqlast.NotInOp
}

// columnName is the name of the i-th column of a derived table.
func columnName(i int) string {
	return fmt.Sprintf("csq_c%d", i)
}

// project replaces the projection of sel with exprs named csq_c0, csq_c1...
func project(sel *sqlast.Select, exprs sqlast.Exprs) {
	sel.SelectExprs = make(sqlast.SelectExprs, 0, len(exprs))
	for i, e := range exprs {
		sel.SelectExprs = append(sel.SelectExprs, &sqlast.AliasedExpr{Expr: e, As: columnName(i)})
	}
}

// derivedColumn references the i-th column of the derived table alias.
func derivedColumn(alias string, sel *sqlast.Select, i int) *sqlast.ColName {
	return sqlast.NewColName(alias, columnName(i), sqlast.TypeOf(sel.SelectExprs[i].Expr))
}

// splice joins the FROM clause of sel, folded into a single tree, with
// the derived table.
func splice(sel *sqlast.Select, join sqlast.JoinType, derived *sqlast.AliasedTableExpr, on sqlast.Expr) {
	left := sel.From[0]
	for _, te := range sel.From[1:] {
		left = &sqlast.JoinTableExpr{LeftExpr: left, Join: sqlast.NormalJoinType, RightExpr: te}
	}
	sel.From = sqlast.TableExprs{&sqlast.JoinTableExpr{LeftExpr: left, Join: join, RightExpr: derived, On: on}}
}

// equalities matches the left expressions of an IN predicate with the
// columns of the derived table.
func equalities(left sqlast.Exprs, alias string, sel *sqlast.Select) sqlast.Expr {
	var eqs []sqlast.Expr
	for i, l := range left {
		eqs = append(eqs, &sqlast.ComparisonExpr{
			Operator: sqlast.EqualOp,
			Left:     sqlast.CloneExpr(l),
			Right:    derivedColumn(alias, sel, i),
		})
	}
	return sqlast.AndExpressions(eqs...)
}

func tupleExprs(e sqlast.Expr) sqlast.Exprs {
	if vt, ok := e.(sqlast.ValTuple); ok {
		return sqlast.Exprs(vt)
	}
	return sqlast.Exprs{e}
}
