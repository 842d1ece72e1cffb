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

// CloneSQLNode creates a deep clone of the input.
func CloneSQLNode(in SQLNode) SQLNode {
	if in == nil {
		return nil
	}
	switch in := in.(type) {
	case Expr:
		return CloneExpr(in)
	case SelectStatement:
		return CloneSelectStatement(in)
	case TableExpr:
		return CloneTableExpr(in)
	case *AliasedExpr:
		return cloneAliasedExpr(in)
	}
	return in
}

// CloneExpr creates a deep clone of the input.
func CloneExpr(in Expr) Expr {
	if in == nil {
		return nil
	}
	switch in := in.(type) {
	case *ColName:
		out := *in
		return &out
	case *Literal:
		out := *in
		return &out
	case *Param:
		out := *in
		return &out
	case ValTuple:
		return ValTuple(CloneExprs(Exprs(in)))
	case *AndExpr:
		return &AndExpr{Left: CloneExpr(in.Left), Right: CloneExpr(in.Right)}
	case *OrExpr:
		return &OrExpr{Left: CloneExpr(in.Left), Right: CloneExpr(in.Right)}
	case *NotExpr:
		return &NotExpr{Expr: CloneExpr(in.Expr)}
	case *ComparisonExpr:
		return &ComparisonExpr{Operator: in.Operator, Left: CloneExpr(in.Left), Right: CloneExpr(in.Right), Modifier: in.Modifier}
	case *IsExpr:
		return &IsExpr{Left: CloneExpr(in.Left), Right: in.Right}
	case *BinaryExpr:
		return &BinaryExpr{Operator: in.Operator, Left: CloneExpr(in.Left), Right: CloneExpr(in.Right)}
	case *FuncExpr:
		return cloneFuncExpr(in)
	case *Subquery:
		return cloneSubquery(in)
	case *ExistsExpr:
		return &ExistsExpr{Subquery: cloneSubquery(in.Subquery)}
	}
	// this should never happen
	return in
}

// CloneExprs creates a deep clone of the input.
func CloneExprs(in Exprs) Exprs {
	if in == nil {
		return nil
	}
	out := make(Exprs, len(in))
	for i, e := range in {
		out[i] = CloneExpr(e)
	}
	return out
}

func cloneFuncExpr(in *FuncExpr) *FuncExpr {
	if in == nil {
		return nil
	}
	out := *in
	out.Exprs = CloneExprs(in.Exprs)
	return &out
}

func cloneSubquery(in *Subquery) *Subquery {
	if in == nil {
		return nil
	}
	return &Subquery{Select: CloneSelectStatement(in.Select)}
}

// CloneSelectStatement creates a deep clone of the input.
func CloneSelectStatement(in SelectStatement) SelectStatement {
	if in == nil {
		return nil
	}
	switch in := in.(type) {
	case *Select:
		return CloneSelect(in)
	case *Union:
		return &Union{Left: CloneSelectStatement(in.Left), Right: CloneSelectStatement(in.Right), Distinct: in.Distinct}
	}
	// this should never happen
	return in
}

// CloneSelect creates a deep clone of the input.
func CloneSelect(in *Select) *Select {
	if in == nil {
		return nil
	}
	out := &Select{
		Distinct: in.Distinct,
		Where:    CloneExpr(in.Where),
		GroupBy:  CloneExprs(in.GroupBy),
		Having:   CloneExpr(in.Having),
	}
	if in.SelectExprs != nil {
		out.SelectExprs = make(SelectExprs, len(in.SelectExprs))
		for i, se := range in.SelectExprs {
			out.SelectExprs[i] = cloneAliasedExpr(se)
		}
	}
	out.From = CloneTableExprs(in.From)
	if in.OrderBy != nil {
		out.OrderBy = make(OrderBy, len(in.OrderBy))
		for i, o := range in.OrderBy {
			out.OrderBy[i] = &Order{Expr: CloneExpr(o.Expr), Desc: o.Desc}
		}
	}
	if in.Limit != nil {
		out.Limit = &Limit{Offset: CloneExpr(in.Limit.Offset), Rowcount: CloneExpr(in.Limit.Rowcount)}
	}
	return out
}

func cloneAliasedExpr(in *AliasedExpr) *AliasedExpr {
	if in == nil {
		return nil
	}
	return &AliasedExpr{Expr: CloneExpr(in.Expr), As: in.As}
}

// CloneTableExprs creates a deep clone of the input.
func CloneTableExprs(in TableExprs) TableExprs {
	if in == nil {
		return nil
	}
	out := make(TableExprs, len(in))
	for i, te := range in {
		out[i] = CloneTableExpr(te)
	}
	return out
}

// CloneTableExpr creates a deep clone of the input.
func CloneTableExpr(in TableExpr) TableExpr {
	if in == nil {
		return nil
	}
	switch in := in.(type) {
	case *AliasedTableExpr:
		out := &AliasedTableExpr{As: in.As}
		if in.Columns != nil {
			out.Columns = append([]string(nil), in.Columns...)
		}
		switch te := in.Expr.(type) {
		case TableName:
			out.Expr = te
		case *DerivedTable:
			out.Expr = &DerivedTable{Select: CloneSelectStatement(te.Select)}
		case *FuncTableExpr:
			out.Expr = &FuncTableExpr{Func: cloneFuncExpr(te.Func)}
		}
		return out
	case *JoinTableExpr:
		return &JoinTableExpr{
			LeftExpr:  CloneTableExpr(in.LeftExpr),
			Join:      in.Join,
			RightExpr: CloneTableExpr(in.RightExpr),
			On:        CloneExpr(in.On),
		}
	}
	// this should never happen
	return in
}
