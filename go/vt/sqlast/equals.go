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

// Equals compares two expressions structurally. Column references compare
// with ColName.Equal, literals by type and raw value, subqueries by their
// SQL text.
func Equals(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case *ColName:
		b, ok := b.(*ColName)
		return ok && a.Equal(b)
	case *Literal:
		b, ok := b.(*Literal)
		return ok && a.Val.Type() == b.Val.Type() && a.Val.RawEqual(b.Val)
	case *Param:
		b, ok := b.(*Param)
		return ok && a.ID == b.ID
	case ValTuple:
		b, ok := b.(ValTuple)
		return ok && equalsExprs(Exprs(a), Exprs(b))
	case *AndExpr:
		b, ok := b.(*AndExpr)
		return ok && Equals(a.Left, b.Left) && Equals(a.Right, b.Right)
	case *OrExpr:
		b, ok := b.(*OrExpr)
		return ok && Equals(a.Left, b.Left) && Equals(a.Right, b.Right)
	case *NotExpr:
		b, ok := b.(*NotExpr)
		return ok && Equals(a.Expr, b.Expr)
	case *ComparisonExpr:
		b, ok := b.(*ComparisonExpr)
		return ok && a.Operator == b.Operator && a.Modifier == b.Modifier &&
			Equals(a.Left, b.Left) && Equals(a.Right, b.Right)
	case *IsExpr:
		b, ok := b.(*IsExpr)
		return ok && a.Right == b.Right && Equals(a.Left, b.Left)
	case *BinaryExpr:
		b, ok := b.(*BinaryExpr)
		return ok && a.Operator == b.Operator && Equals(a.Left, b.Left) && Equals(a.Right, b.Right)
	case *FuncExpr:
		b, ok := b.(*FuncExpr)
		return ok && a.Name == b.Name && a.Star == b.Star && equalsExprs(a.Exprs, b.Exprs)
	case *Subquery:
		b, ok := b.(*Subquery)
		return ok && String(a) == String(b)
	case *ExistsExpr:
		b, ok := b.(*ExistsExpr)
		return ok && String(a) == String(b)
	}
	return false
}

func equalsExprs(a, b Exprs) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equals(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ReplaceExpr finds the from expression in root and replaces it with a
// clone of to. If from matches root, then to is returned.
func ReplaceExpr(root, from, to Expr) Expr {
	return RewriteExpr(root, func(cursor *Cursor) bool {
		e, ok := cursor.Node().(Expr)
		if !ok {
			return true
		}
		if Equals(e, from) {
			cursor.Replace(CloneExpr(to))
			return false
		}
		_, isSubq := e.(*Subquery)
		return !isSubq
	}, nil)
}
