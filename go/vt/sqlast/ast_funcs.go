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
	"math"
	"strings"

	"segplan.io/segplan/go/sqltypes"
)

// NewColName makes a level 0 column reference.
func NewColName(qualifier, name string, typ sqltypes.Type) *ColName {
	return &ColName{Qualifier: qualifier, Name: name, Type: typ}
}

// NewOuterColName makes a column reference to the query block level
// steps outwards.
func NewOuterColName(level int, qualifier, name string, typ sqltypes.Type) *ColName {
	return &ColName{Qualifier: qualifier, Name: name, Level: level, Type: typ}
}

// Equal reports whether c and o reference the same column at the same level.
// Names compare case-insensitively.
func (node *ColName) Equal(o *ColName) bool {
	if node == nil || o == nil {
		return node == o
	}
	return node.Level == o.Level &&
		strings.EqualFold(node.Name, o.Name) &&
		strings.EqualFold(node.Qualifier, o.Qualifier)
}

// NewLiteral wraps a value.
func NewLiteral(v sqltypes.Value) *Literal {
	return &Literal{Val: v}
}

// NewIntLiteral builds an integer literal the way SQL types them: INT32 when
// the number fits, INT64 otherwise.
func NewIntLiteral(i int64) *Literal {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return &Literal{Val: sqltypes.NewInt32(int32(i))}
	}
	return &Literal{Val: sqltypes.NewInt64(i)}
}

// NewStrLiteral builds a text literal.
func NewStrLiteral(s string) *Literal {
	return &Literal{Val: sqltypes.NewText(s)}
}

// NewNullLiteral builds the NULL literal.
func NewNullLiteral() *Literal {
	return &Literal{Val: sqltypes.NULL}
}

// NewBoolLiteral builds TRUE or FALSE.
func NewBoolLiteral(b bool) *Literal {
	return &Literal{Val: sqltypes.NewBoolean(b)}
}

// IsNull reports whether the literal is NULL.
func (node *Literal) IsNull() bool {
	return node.Val.IsNull()
}

var builtinFuncs = map[string]FuncInfo{
	"count":           {Aggregate: true, Result: sqltypes.Int64},
	"sum":             {Aggregate: true, NullOnEmpty: true},
	"min":             {Aggregate: true, NullOnEmpty: true},
	"max":             {Aggregate: true, NullOnEmpty: true},
	"avg":             {Aggregate: true, NullOnEmpty: true, Result: sqltypes.Decimal},
	"abs":             {Strict: true},
	"lower":           {Strict: true, Result: sqltypes.Text},
	"upper":           {Strict: true, Result: sqltypes.Text},
	"length":          {Strict: true, Result: sqltypes.Int32},
	"coalesce":        {},
	"now":             {Result: sqltypes.Timestamp},
	"random":          {Volatile: true, Result: sqltypes.Float64},
	"nextval":         {Strict: true, Volatile: true, Result: sqltypes.Int64},
	"generate_series": {Strict: true, ReturnsSet: true, Result: sqltypes.Int64},
	"unnest":          {Strict: true, ReturnsSet: true},
}

// LookupFunc returns the description of a builtin function. Unknown
// functions are reported as volatile and non-strict, the most conservative
// assumption.
func LookupFunc(name string) (FuncInfo, bool) {
	info, ok := builtinFuncs[strings.ToLower(name)]
	if !ok {
		return FuncInfo{Volatile: true}, false
	}
	return info, true
}

// NewFuncExpr builds a function call described by the builtin registry.
func NewFuncExpr(name string, args ...Expr) *FuncExpr {
	info, _ := LookupFunc(name)
	return &FuncExpr{Name: strings.ToLower(name), Exprs: args, FuncInfo: info}
}

// NewCountStar builds count(*).
func NewCountStar() *FuncExpr {
	f := NewFuncExpr("count")
	f.Star = true
	return f
}

// TypeOf returns the result type of e when it is evident from the tree,
// sqltypes.Null otherwise.
func TypeOf(e Expr) sqltypes.Type {
	switch e := e.(type) {
	case *ColName:
		return e.Type
	case *Literal:
		return e.Val.Type()
	case *BinaryExpr:
		return TypeOf(e.Left)
	case *FuncExpr:
		if e.Result != sqltypes.Null {
			return e.Result
		}
		if len(e.Exprs) > 0 {
			return TypeOf(e.Exprs[0])
		}
	case *AndExpr, *OrExpr, *NotExpr, *ComparisonExpr, *IsExpr, *ExistsExpr:
		return sqltypes.Boolean
	case *Subquery:
		if sel, ok := e.Select.(*Select); ok && len(sel.SelectExprs) == 1 {
			return TypeOf(sel.SelectExprs[0].Expr)
		}
	}
	return sqltypes.Null
}

// SplitAndExpression breaks up the Expr into AND-separated conditions
// and appends them to filters. Outer parenthesis are removed. Precedence
// should be taken into account if expressions are recombined.
func SplitAndExpression(filters []Expr, node Expr) []Expr {
	if node == nil {
		return filters
	}
	if node, ok := node.(*AndExpr); ok {
		filters = SplitAndExpression(filters, node.Left)
		return SplitAndExpression(filters, node.Right)
	}
	return append(filters, node)
}

// SplitOrExpression breaks up the OrExpr into OR-separated conditions.
func SplitOrExpression(filters []Expr, node Expr) []Expr {
	if node == nil {
		return filters
	}
	if node, ok := node.(*OrExpr); ok {
		filters = SplitOrExpression(filters, node.Left)
		return SplitOrExpression(filters, node.Right)
	}
	return append(filters, node)
}

// AndExpressions ands together the given expressions, skipping nils.
// It returns nil for an empty list.
func AndExpressions(exprs ...Expr) Expr {
	var result Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if result == nil {
			result = e
			continue
		}
		result = &AndExpr{Left: result, Right: e}
	}
	return result
}

// OrExpressions ors together the given expressions.
func OrExpressions(exprs ...Expr) Expr {
	var result Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if result == nil {
			result = e
			continue
		}
		result = &OrExpr{Left: result, Right: e}
	}
	return result
}

// IsConstant reports whether e is a literal, or a tuple of literals.
func IsConstant(e Expr) bool {
	switch e := e.(type) {
	case *Literal:
		return true
	case ValTuple:
		for _, v := range e {
			if !IsConstant(v) {
				return false
			}
		}
		return true
	}
	return false
}

// Commute returns the operator to use when the operands are swapped.
func (op ComparisonExprOperator) Commute() (ComparisonExprOperator, bool) {
	switch op {
	case EqualOp, NotEqualOp:
		return op, true
	case LessThanOp:
		return GreaterThanOp, true
	case GreaterThanOp:
		return LessThanOp, true
	case LessEqualOp:
		return GreaterEqualOp, true
	case GreaterEqualOp:
		return LessEqualOp, true
	}
	return op, false
}

// Negate returns the operator of NOT (a op b), for scalar comparisons.
func (op ComparisonExprOperator) Negate() (ComparisonExprOperator, bool) {
	switch op {
	case EqualOp:
		return NotEqualOp, true
	case NotEqualOp:
		return EqualOp, true
	case LessThanOp:
		return GreaterEqualOp, true
	case GreaterEqualOp:
		return LessThanOp, true
	case GreaterThanOp:
		return LessEqualOp, true
	case LessEqualOp:
		return GreaterThanOp, true
	}
	return op, false
}

// ToString returns the operator as a string
func (op ComparisonExprOperator) ToString() string {
	switch op {
	case EqualOp:
		return "="
	case LessThanOp:
		return "<"
	case GreaterThanOp:
		return ">"
	case LessEqualOp:
		return "<="
	case GreaterEqualOp:
		return ">="
	case NotEqualOp:
		return "!="
	case InOp:
		return "in"
	case NotInOp:
		return "not in"
	}
	return "Unknown ComparisonExpOperator"
}

// ToString returns the modifier keyword.
func (m ComparisonModifier) ToString() string {
	switch m {
	case Any:
		return "any"
	case All:
		return "all"
	}
	return ""
}

// ToString returns the operator as a string
func (op IsExprOperator) ToString() string {
	switch op {
	case IsNullOp:
		return "is null"
	case IsNotNullOp:
		return "is not null"
	case IsTrueOp:
		return "is true"
	case IsNotTrueOp:
		return "is not true"
	case IsFalseOp:
		return "is false"
	case IsNotFalseOp:
		return "is not false"
	case IsUnknownOp:
		return "is unknown"
	case IsNotUnknownOp:
		return "is not unknown"
	}
	return "Unknown IsExprOperator"
}

// ToString returns the operator as a string
func (op BinaryExprOperator) ToString() string {
	switch op {
	case PlusOp:
		return "+"
	case MinusOp:
		return "-"
	case MultOp:
		return "*"
	case DivOp:
		return "/"
	}
	return "Unknown BinaryExprOperator"
}

// NewSubquery wraps a select statement.
func NewSubquery(sel SelectStatement) *Subquery {
	return &Subquery{Select: sel}
}

// NewDerivedTable builds an aliased derived table FROM item.
func NewDerivedTable(sel SelectStatement, alias string, columns ...string) *AliasedTableExpr {
	return &AliasedTableExpr{Expr: &DerivedTable{Select: sel}, As: alias, Columns: columns}
}

// NewAliasedTable builds a base table FROM item.
func NewAliasedTable(name, alias string) *AliasedTableExpr {
	return &AliasedTableExpr{Expr: TableName{Name: name}, As: alias}
}

// RefName is the name the FROM item is referenced by: its alias, or the
// table name.
func (node *AliasedTableExpr) RefName() string {
	if node.As != "" {
		return node.As
	}
	if tn, ok := node.Expr.(TableName); ok {
		return tn.Name
	}
	return ""
}

// AddWhere adds the boolean expression to the WHERE clause as an AND
// condition.
func (node *Select) AddWhere(expr Expr) {
	node.Where = AndExpressions(node.Where, expr)
}
