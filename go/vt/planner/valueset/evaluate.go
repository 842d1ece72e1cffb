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

package valueset

import (
	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/sqlast"
)

// Evaluate returns the values target can take in rows where pred is true.
//
// The result is sound but not complete: a value outside the returned set
// makes pred false or unknown, while values inside it may still be
// rejected. Only equalities with a constant, constant IN lists and IS NULL
// tests on target constrain it; AND intersects, OR unions when every branch
// is finite, and every other shape is unconstrained.
func Evaluate(pred, target sqlast.Expr) *Set {
	switch e := pred.(type) {
	case nil:
		return Any()
	case *sqlast.AndExpr:
		left := Evaluate(e.Left, target)
		if left.IsEmpty() {
			return left
		}
		return left.Intersect(Evaluate(e.Right, target))
	case *sqlast.OrExpr:
		left := Evaluate(e.Left, target)
		if left.IsAny() {
			return left
		}
		return left.Union(Evaluate(e.Right, target))
	case *sqlast.ComparisonExpr:
		return evalComparison(e, target)
	case *sqlast.IsExpr:
		// IS NOT NULL would need a complement; leave it unconstrained.
		if e.Right == sqlast.IsNullOp && sqlast.Equals(e.Left, target) {
			return Of(sqltypes.NULL)
		}
	case *sqlast.Literal:
		// WHERE false and WHERE NULL accept no row at all.
		if e.Val.IsNull() {
			return Empty()
		}
		if b, err := e.Val.ToBool(); err == nil && !b {
			return Empty()
		}
	}
	return Any()
}

func evalComparison(cmp *sqlast.ComparisonExpr, target sqlast.Expr) *Set {
	if cmp.Modifier != sqlast.NoModifier {
		return Any()
	}
	switch cmp.Operator {
	case sqlast.EqualOp:
		if sqlast.Equals(cmp.Left, target) {
			return evalEquality(cmp.Right, target)
		}
		if sqlast.Equals(cmp.Right, target) {
			return evalEquality(cmp.Left, target)
		}
	case sqlast.InOp:
		list, ok := cmp.Right.(sqlast.ValTuple)
		if !ok || !sqlast.Equals(cmp.Left, target) {
			return Any()
		}
		out := Empty()
		for _, item := range list {
			s := evalEquality(item, target)
			if s.IsAny() {
				return s
			}
			out = out.Union(s)
		}
		return out
	}
	return Any()
}

// evalEquality returns the values target can take when target = c.
func evalEquality(c, target sqlast.Expr) *Set {
	lit, ok := c.(*sqlast.Literal)
	if !ok {
		return Any()
	}
	v := lit.Val
	if v.IsNull() {
		// target = NULL is never true
		return Empty()
	}
	typ := sqlast.TypeOf(target)
	switch {
	case typ == v.Type() || typ == sqltypes.Null:
		return Of(v)
	case v.IsIntegral() && sqltypes.IsIntegral(typ):
		narrowed, ok := sqltypes.NarrowIntegral(v, typ)
		if !ok {
			return Empty()
		}
		return Of(narrowed)
	}
	return Any()
}
