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
)

func TestParseSelectRoundTrip(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"SELECT a, b AS bee FROM t WHERE a = 1", "select a, b as bee from t where a = 1"},
		{"select distinct t.a from t as x", "select distinct t.a from t as x"},
		{"select * from t", ""},
		{"select a from t, u where t.a = u.a", "select a from t, u where t.a = u.a"},
		{"select a from t join u on t.a = u.a left outer join v on v.b = u.b", "select a from t join u on t.a = u.a left join v on v.b = u.b"},
		{"select a from t cross join u", "select a from t join u"},
		{"select s.x from (select a, b from t) as s(x, y)", "select s.x from (select a, b from t) as s(x, y)"},
		{"select g from generate_series(1, 3) g", "select g from generate_series(1, 3) as g"},
		{"select a from t where exists (select 1 from u where u.b = ^t.a)", "select a from t where exists (select 1 from u where u.b = ^t.a)"},
		{"select a from t where a not in (select b from u)", "select a from t where a not in (select b from u)"},
		{"select a from t where a < all (select b from u)", "select a from t where a < all (select b from u)"},
		{"select a from t where a = some (select b from u)", "select a from t where a = any (select b from u)"},
		{"select a from t where a > (select max(b) from u where u.c = ^t.c)", "select a from t where a > (select max(b) from u where u.c = ^t.c)"},
		{"select a, count(*) from t group by a having count(*) > 1 order by a desc limit 10 offset 2", "select a, count(*) from t group by a having count(*) > 1 order by a desc limit 10 offset 2"},
		{"select a from t union select b from u union all select c from v", "select a from t union select b from u union all select c from v"},
		{"select (select 1) as one", "select (select 1) as one"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			stmt, err := ParseSelect(tc.in)
			if tc.out == "" {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.out, String(stmt))

			again, err := ParseSelect(String(stmt))
			require.NoError(t, err)
			assert.Equal(t, String(stmt), String(again))
		})
	}
}

func TestParseSelectStructure(t *testing.T) {
	stmt, err := ParseSelect("select a from t where a in (select b from u where u.c = ^t.c) and not exists (select 1 from v)")
	require.NoError(t, err)
	sel, ok := stmt.(*Select)
	require.True(t, ok)

	conjuncts := SplitAndExpression(nil, sel.Where)
	require.Len(t, conjuncts, 2)
	in, ok := conjuncts[0].(*ComparisonExpr)
	require.True(t, ok)
	assert.Equal(t, InOp, in.Operator)
	sub, ok := in.Right.(*Subquery)
	require.True(t, ok)
	assert.True(t, IsCorrelated(sub.Select))

	not, ok := conjuncts[1].(*NotExpr)
	require.True(t, ok)
	exists, ok := not.Expr.(*ExistsExpr)
	require.True(t, ok)
	assert.False(t, IsCorrelated(exists.Subquery.Select))
	assert.Zero(t, MaxOuterLevel(sel))
	assert.Equal(t, 1, MaxOuterLevel(sub.Select))
}

func TestParseSelectErrors(t *testing.T) {
	for _, sql := range []string{
		"select",
		"select a from",
		"select a from (select b from u)",
		"select a from t where",
		"select a from t order a",
		"select a from t join",
		"select a from t trailing junk here",
		"update t set a = 1",
	} {
		t.Run(sql, func(t *testing.T) {
			_, err := ParseSelect(sql)
			assert.Error(t, err)
		})
	}
}
