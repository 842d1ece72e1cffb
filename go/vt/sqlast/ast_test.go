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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segplan.io/segplan/go/sqltypes"
)

func mustParse(t *testing.T, sql string) Expr {
	t.Helper()
	e, err := ParseExpr(sql)
	require.NoError(t, err)
	return e
}

// select o.a from t1 as o where o.b > (select max(i.c) from t2 as i where i.d = ^o.a)
func correlatedQuery(t *testing.T) *Select {
	inner := &Select{
		SelectExprs: SelectExprs{{Expr: NewFuncExpr("max", NewColName("i", "c", sqltypes.Int32))}},
		From:        TableExprs{NewAliasedTable("t2", "i")},
		Where:       mustParse(t, "i.d = ^o.a"),
	}
	return &Select{
		SelectExprs: SelectExprs{{Expr: NewColName("o", "a", sqltypes.Int32)}},
		From:        TableExprs{NewAliasedTable("t1", "o")},
		Where: &ComparisonExpr{
			Operator: GreaterThanOp,
			Left:     NewColName("o", "b", sqltypes.Int32),
			Right:    NewSubquery(inner),
		},
	}
}

func TestFormatSelect(t *testing.T) {
	sel := correlatedQuery(t)
	assert.Equal(t, "select o.a from t1 as o where o.b > (select max(i.c) from t2 as i where i.d = ^o.a)", String(sel))

	sel.Distinct = true
	sel.GroupBy = Exprs{NewColName("o", "a", sqltypes.Int32)}
	sel.OrderBy = OrderBy{{Expr: NewColName("o", "a", sqltypes.Int32), Desc: true}}
	sel.Limit = &Limit{Rowcount: NewIntLiteral(10), Offset: NewIntLiteral(2)}
	sel.From = TableExprs{&JoinTableExpr{
		LeftExpr:  NewAliasedTable("t1", "o"),
		Join:      LeftAntiSemiNotInJoinType,
		RightExpr: NewDerivedTable(&Select{SelectExprs: SelectExprs{{Expr: NewIntLiteral(1)}}}, "d", "c0"),
		On:        mustParse(t, "(o.a = d.c0) is not false"),
	}}
	sel.Where = nil
	assert.Equal(t,
		"select distinct o.a from t1 as o left anti semi join (not in) (select 1) as d(c0) on (o.a = d.c0) is not false group by o.a order by o.a desc limit 10 offset 2",
		String(sel))

	u := &Union{Left: &Select{SelectExprs: SelectExprs{{Expr: NewIntLiteral(1), As: "x"}}}, Right: &Select{SelectExprs: SelectExprs{{Expr: NewIntLiteral(2)}}}}
	assert.Equal(t, "select 1 as x union all select 2", String(u))
	u.Distinct = true
	assert.Equal(t, "select 1 as x union select 2", String(u))
	assert.Equal(t, "exists (select 2)", String(&ExistsExpr{Subquery: NewSubquery(u.Right)}))
}

func TestLevels(t *testing.T) {
	sel := correlatedQuery(t)
	subq := sel.Where.(*ComparisonExpr).Right.(*Subquery)

	assert.True(t, IsCorrelated(subq.Select))
	assert.Equal(t, 1, MaxOuterLevel(subq.Select))
	assert.True(t, ReferencesLevel(subq.Select, 1))
	assert.False(t, ReferencesLevel(subq.Select, 2))

	// seen from the outer block the inner reference is to itself
	assert.Equal(t, 0, MaxOuterLevel(sel))
	assert.True(t, ReferencesLevel(sel, 0))
	assert.False(t, IsCorrelated(sel))

	// pull the correlated equality out one level
	eq := CloneExpr(subq.Select.(*Select).Where)
	AdjustLevels(eq, -1, 1)
	assert.Equal(t, "i.d = o.a", String(eq))
	// the original is untouched
	assert.Equal(t, "i.d = ^o.a", String(subq.Select.(*Select).Where))
}

func TestAdjustLevelsSkipsInnerBlocks(t *testing.T) {
	// o.x = (select max(^^z.q) from t where t.k = ^o.y)
	inner := &Select{
		SelectExprs: SelectExprs{{Expr: NewFuncExpr("max", NewOuterColName(2, "z", "q", sqltypes.Int32))}},
		From:        TableExprs{NewAliasedTable("t", "")},
		Where:       mustParse(t, "t.k = ^o.y"),
	}
	e := &ComparisonExpr{Operator: EqualOp, Left: NewOuterColName(1, "o", "x", sqltypes.Int32), Right: NewSubquery(inner)}
	assert.Equal(t, 1, MaxOuterLevel(e))

	AdjustLevels(e, -1, 1)
	assert.Equal(t, "o.x = (select max(^z.q) from t where t.k = ^o.y)", String(e))
}

func TestRewriteReplace(t *testing.T) {
	e := mustParse(t, "a = 1 and (b = 2 or a = 1)")
	out := ReplaceExpr(e, mustParse(t, "a = 1"), NewBoolLiteral(true))
	assert.Equal(t, "true and (b = 2 or true)", String(out))

	// replacing the root
	out = ReplaceExpr(mustParse(t, "x"), mustParse(t, "x"), mustParse(t, "y"))
	assert.Equal(t, "y", String(out))
}

func TestRewritePostStops(t *testing.T) {
	e := mustParse(t, "a = 1 and b = 2 and c = 3")
	var seen []string
	Rewrite(e, nil, func(cursor *Cursor) bool {
		if col, ok := cursor.Node().(*ColName); ok {
			seen = append(seen, col.Name)
			return col.Name != "b"
		}
		return true
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestWalkVisitsSubqueries(t *testing.T) {
	var cols []string
	err := Walk(func(node SQLNode) (bool, error) {
		if col, ok := node.(*ColName); ok {
			cols = append(cols, String(col))
		}
		return true, nil
	}, correlatedQuery(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"o.a", "o.b", "i.c", "i.d", "^o.a"}, cols)
}

func TestCloneIsDeep(t *testing.T) {
	sel := correlatedQuery(t)
	sel.Limit = &Limit{Rowcount: NewIntLiteral(1)}
	sel.From = append(sel.From, &AliasedTableExpr{Expr: &FuncTableExpr{Func: NewFuncExpr("generate_series", NewIntLiteral(1), NewIntLiteral(3))}, As: "g"})
	clone := CloneSelect(sel)
	assert.Equal(t, String(sel), String(clone))

	clone.Where.(*ComparisonExpr).Right.(*Subquery).Select.(*Select).Where.(*ComparisonExpr).Left.(*ColName).Name = "zz"
	clone.From[1].(*AliasedTableExpr).Expr.(*FuncTableExpr).Func.Exprs[0] = NewIntLiteral(9)
	assert.NotEqual(t, String(sel), String(clone))
	assert.Contains(t, String(sel), "i.d = ^o.a")
	assert.Contains(t, String(sel), "generate_series(1, 3)")
}

func TestEquals(t *testing.T) {
	assert.True(t, Equals(mustParse(t, "A.b = 1"), mustParse(t, "a.B = 1")))
	assert.False(t, Equals(mustParse(t, "a = 1"), mustParse(t, "a = 1::int8")))
	assert.False(t, Equals(mustParse(t, "a"), mustParse(t, "^a")))
	assert.True(t, Equals(nil, nil))
	assert.False(t, Equals(mustParse(t, "a"), nil))
	assert.True(t, Equals(mustParse(t, "f(a, 2) is null"), mustParse(t, "f(a, 2) is null")))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, sqltypes.Int32, TypeOf(NewColName("", "a", sqltypes.Int32)))
	assert.Equal(t, sqltypes.Boolean, TypeOf(mustParse(t, "a = 1")))
	assert.Equal(t, sqltypes.Int64, TypeOf(NewCountStar()))
	assert.Equal(t, sqltypes.Int16, TypeOf(NewFuncExpr("max", NewColName("", "a", sqltypes.Int16))))
	sel := correlatedQuery(t)
	assert.Equal(t, sqltypes.Int32, TypeOf(sel.Where.(*ComparisonExpr).Right))
}
