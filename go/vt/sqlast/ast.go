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

// Package sqlast is the query and expression tree the planner rewrites.
//
// The tree is produced by an upstream parser and binder; column references
// arrive already resolved to a query level and a type. Level 0 is the query
// block the reference appears in, level 1 the block directly enclosing it,
// and so on.
package sqlast

import "segplan.io/segplan/go/sqltypes"

type (
	// SQLNode defines the interface for all nodes.
	SQLNode interface {
		formatFast(buf *TrackedBuffer)
	}

	// Expr represents an expression.
	Expr interface {
		SQLNode
		iExpr()
	}

	// SelectStatement is a Select or a Union.
	SelectStatement interface {
		SQLNode
		iSelectStatement()
	}

	// TableExpr is an item of a FROM clause.
	TableExpr interface {
		SQLNode
		iTableExpr()
	}

	// SimpleTableExpr is what an AliasedTableExpr wraps.
	SimpleTableExpr interface {
		SQLNode
		iSimpleTableExpr()
	}
)

type (
	// Select represents a SELECT statement.
	Select struct {
		Distinct    bool
		SelectExprs SelectExprs
		From        TableExprs
		Where       Expr
		GroupBy     Exprs
		Having      Expr
		OrderBy     OrderBy
		Limit       *Limit
	}

	// Union represents a UNION of two select statements.
	Union struct {
		Left, Right SelectStatement
		Distinct    bool
	}

	// SelectExprs is the projection of a Select.
	SelectExprs []*AliasedExpr

	// AliasedExpr is a projected expression with an optional alias.
	AliasedExpr struct {
		Expr Expr
		As   string
	}

	// TableExprs is a comma separated FROM list.
	TableExprs []TableExpr

	// AliasedTableExpr is a FROM item with an optional alias.
	AliasedTableExpr struct {
		Expr SimpleTableExpr
		As   string
		// Columns optionally names the columns of a derived table.
		Columns []string
	}

	// JoinTableExpr is an explicit JOIN between two FROM items.
	JoinTableExpr struct {
		LeftExpr  TableExpr
		Join      JoinType
		RightExpr TableExpr
		On        Expr
	}

	// TableName is a base table reference.
	TableName struct {
		Name string
	}

	// DerivedTable is a subquery in a FROM clause.
	DerivedTable struct {
		Select SelectStatement
	}

	// FuncTableExpr is a function call in a FROM clause.
	FuncTableExpr struct {
		Func *FuncExpr
	}

	// OrderBy is the ORDER BY clause.
	OrderBy []*Order

	// Order is a single ORDER BY item.
	Order struct {
		Expr Expr
		Desc bool
	}

	// Limit is the LIMIT/OFFSET clause.
	Limit struct {
		Offset, Rowcount Expr
	}
)

// JoinType is the kind of an explicit join.
type JoinType int8

// Join types. SemiJoinType, AntiJoinType and LeftAntiSemiNotInJoinType are
// produced by subquery decorrelation and have no SQL surface syntax.
const (
	NormalJoinType JoinType = iota
	LeftJoinType
	RightJoinType
	FullJoinType
	SemiJoinType
	AntiJoinType
	LeftAntiSemiNotInJoinType
)

// ToString returns the join keyword.
func (j JoinType) ToString() string {
	switch j {
	case NormalJoinType:
		return "join"
	case LeftJoinType:
		return "left join"
	case RightJoinType:
		return "right join"
	case FullJoinType:
		return "full join"
	case SemiJoinType:
		return "semi join"
	case AntiJoinType:
		return "anti join"
	case LeftAntiSemiNotInJoinType:
		return "left anti semi join (not in)"
	}
	return "unknown join type"
}

type (
	// ColName is a resolved column reference.
	ColName struct {
		Name      string
		Qualifier string
		// Level counts query blocks outwards from the reference.
		Level int
		Type  sqltypes.Type
	}

	// Literal is a typed constant.
	Literal struct {
		Val sqltypes.Value
	}

	// Param is the output of an init plan, written $id.
	Param struct {
		ID int
	}

	// ValTuple is a parenthesized list of expressions.
	ValTuple Exprs

	// Exprs is a list of expressions.
	Exprs []Expr

	// AndExpr represents an AND expression.
	AndExpr struct {
		Left, Right Expr
	}

	// OrExpr represents an OR expression.
	OrExpr struct {
		Left, Right Expr
	}

	// NotExpr represents a NOT expression.
	NotExpr struct {
		Expr Expr
	}

	// ComparisonExpr represents a two-value comparison expression.
	// With a Modifier, Right is a Subquery and the comparison is
	// quantified over its rows.
	ComparisonExpr struct {
		Operator    ComparisonExprOperator
		Left, Right Expr
		Modifier    ComparisonModifier
	}

	// IsExpr represents an IS ... or an IS NOT ... expression.
	IsExpr struct {
		Left  Expr
		Right IsExprOperator
	}

	// BinaryExpr represents an arithmetic expression.
	BinaryExpr struct {
		Operator    BinaryExprOperator
		Left, Right Expr
	}

	// FuncExpr represents a function call. The flags describe the function
	// and are filled in from the builtin registry by NewFuncExpr.
	FuncExpr struct {
		Name  string
		Exprs Exprs
		// Star is set for count(*).
		Star bool
		FuncInfo
	}

	// Subquery is a parenthesized SELECT used as an expression.
	Subquery struct {
		Select SelectStatement
	}

	// ExistsExpr is EXISTS (subquery).
	ExistsExpr struct {
		Subquery *Subquery
	}
)

// FuncInfo describes the behaviour of a function.
type FuncInfo struct {
	// Strict functions return NULL when any argument is NULL.
	Strict bool
	// Aggregate functions consume a group of rows.
	Aggregate bool
	// NullOnEmpty is set for aggregates that return NULL over zero rows.
	NullOnEmpty bool
	// Volatile functions may return a different result on every call.
	Volatile bool
	// ReturnsSet functions produce rows rather than a value.
	ReturnsSet bool
	// Result is the result type, Null when it follows the first argument.
	Result sqltypes.Type
}

// ComparisonExprOperator is an enum for ComparisonExpr.Operator
type ComparisonExprOperator int8

// Constants for Enum Type - ComparisonExprOperator
const (
	EqualOp ComparisonExprOperator = iota
	LessThanOp
	GreaterThanOp
	LessEqualOp
	GreaterEqualOp
	NotEqualOp
	InOp
	NotInOp
)

// ComparisonModifier quantifies a comparison against a subquery.
type ComparisonModifier int8

// Constants for Enum Type - ComparisonModifier
const (
	NoModifier ComparisonModifier = iota
	Any
	All
)

// IsExprOperator is an enum for IsExpr.Right
type IsExprOperator int8

// Constants for Enum Type - IsExprOperator
const (
	IsNullOp IsExprOperator = iota
	IsNotNullOp
	IsTrueOp
	IsNotTrueOp
	IsFalseOp
	IsNotFalseOp
	IsUnknownOp
	IsNotUnknownOp
)

// BinaryExprOperator is an enum for BinaryExpr.Operator
type BinaryExprOperator int8

// Constants for Enum Type - BinaryExprOperator
const (
	PlusOp BinaryExprOperator = iota
	MinusOp
	MultOp
	DivOp
)

func (*Select) iSelectStatement() {}
func (*Union) iSelectStatement()  {}

func (*AliasedTableExpr) iTableExpr() {}
func (*JoinTableExpr) iTableExpr()    {}

func (TableName) iSimpleTableExpr()      {}
func (*DerivedTable) iSimpleTableExpr()  {}
func (*FuncTableExpr) iSimpleTableExpr() {}

func (*ColName) iExpr()        {}
func (*Literal) iExpr()        {}
func (*Param) iExpr()          {}
func (ValTuple) iExpr()        {}
func (*AndExpr) iExpr()        {}
func (*OrExpr) iExpr()         {}
func (*NotExpr) iExpr()        {}
func (*ComparisonExpr) iExpr() {}
func (*IsExpr) iExpr()         {}
func (*BinaryExpr) iExpr()     {}
func (*FuncExpr) iExpr()       {}
func (*Subquery) iExpr()       {}
func (*ExistsExpr) iExpr()     {}
