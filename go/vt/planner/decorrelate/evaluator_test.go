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
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/sqlast"
)

// This file holds a small row-at-a-time SQL evaluator used to check that
// rewritten queries return the same rows as the originals.

type testTable struct {
	cols []string
	rows [][]sqltypes.Value
}

type testDB map[string]*testTable

type relation struct {
	quals, names []string
	rows         [][]sqltypes.Value
}

type scope struct {
	quals, names []string
	row          []sqltypes.Value
	group        [][]sqltypes.Value
	grouped      bool
	parent       *scope
}

var (
	sqlTrue  = sqltypes.NewBoolean(true)
	sqlFalse = sqltypes.NewBoolean(false)
)

func sqlBool(b bool) sqltypes.Value {
	if b {
		return sqlTrue
	}
	return sqlFalse
}

func isTrue(v sqltypes.Value) bool {
	b, err := v.ToBool()
	return err == nil && b
}

func isFalse(v sqltypes.Value) bool {
	b, err := v.ToBool()
	return err == nil && !b
}

// run evaluates stmt and returns its rows as sorted strings, so that
// results compare as multisets.
func (db testDB) run(stmt sqlast.SelectStatement) []string {
	rel := db.query(stmt, nil)
	out := make([]string, 0, len(rel.rows))
	for _, row := range rel.rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = v.String()
		}
		out = append(out, strings.Join(parts, ", "))
	}
	sort.Strings(out)
	return out
}

func (db testDB) query(stmt sqlast.SelectStatement, outer *scope) relation {
	switch stmt := stmt.(type) {
	case *sqlast.Union:
		left := db.query(stmt.Left, outer)
		right := db.query(stmt.Right, outer)
		left.rows = append(left.rows, right.rows...)
		if stmt.Distinct {
			left.rows = distinctRows(left.rows)
		}
		return left
	case *sqlast.Select:
		return db.selectRows(stmt, outer)
	}
	panic(fmt.Sprintf("unsupported statement %T", stmt))
}

func distinctRows(rows [][]sqltypes.Value) [][]sqltypes.Value {
	seen := map[string]bool{}
	var out [][]sqltypes.Value
	for _, row := range rows {
		k := rowKey(row)
		if !seen[k] {
			seen[k] = true
			out = append(out, row)
		}
	}
	return out
}

func rowKey(row []sqltypes.Value) string {
	var sb strings.Builder
	for _, v := range row {
		sb.WriteString(v.Key())
		sb.WriteByte(0xff)
	}
	return sb.String()
}

func hasAggregate(exprs sqlast.SelectExprs) bool {
	for _, se := range exprs {
		if sqlast.ContainsAggregate(se.Expr) {
			return true
		}
	}
	return false
}

func (db testDB) selectRows(sel *sqlast.Select, outer *scope) relation {
	from := relation{rows: [][]sqltypes.Value{{}}}
	for _, te := range sel.From {
		from = cross(from, db.tableExpr(te, outer))
	}

	var rows [][]sqltypes.Value
	for _, row := range from.rows {
		sc := &scope{quals: from.quals, names: from.names, row: row, parent: outer}
		if sel.Where == nil || isTrue(db.eval(sel.Where, sc)) {
			rows = append(rows, row)
		}
	}

	var scopes []*scope
	if len(sel.GroupBy) > 0 || sel.Having != nil || hasAggregate(sel.SelectExprs) {
		var order []string
		groups := map[string][][]sqltypes.Value{}
		if len(sel.GroupBy) == 0 {
			order = append(order, "")
			groups[""] = rows
		}
		for _, row := range rows {
			if len(sel.GroupBy) == 0 {
				break
			}
			sc := &scope{quals: from.quals, names: from.names, row: row, parent: outer}
			var key []sqltypes.Value
			for _, g := range sel.GroupBy {
				key = append(key, db.eval(g, sc))
			}
			k := rowKey(key)
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], row)
		}
		for _, k := range order {
			sc := &scope{quals: from.quals, names: from.names, group: groups[k], grouped: true, parent: outer}
			if len(groups[k]) > 0 {
				sc.row = groups[k][0]
			}
			if sel.Having != nil && !isTrue(db.eval(sel.Having, sc)) {
				continue
			}
			scopes = append(scopes, sc)
		}
	} else {
		for _, row := range rows {
			scopes = append(scopes, &scope{quals: from.quals, names: from.names, row: row, parent: outer})
		}
	}

	out := relation{}
	for i, se := range sel.SelectExprs {
		name := se.As
		if col, ok := se.Expr.(*sqlast.ColName); ok && name == "" {
			name = col.Name
		}
		if name == "" {
			name = "col" + strconv.Itoa(i)
		}
		out.quals = append(out.quals, "")
		out.names = append(out.names, name)
	}
	for _, sc := range scopes {
		row := make([]sqltypes.Value, 0, len(sel.SelectExprs))
		for _, se := range sel.SelectExprs {
			row = append(row, db.eval(se.Expr, sc))
		}
		out.rows = append(out.rows, row)
	}
	if sel.Distinct {
		out.rows = distinctRows(out.rows)
	}
	if sel.Limit != nil {
		offset, count := 0, len(out.rows)
		if sel.Limit.Offset != nil {
			offset = int(mustInt(db.eval(sel.Limit.Offset, nil)))
		}
		if sel.Limit.Rowcount != nil {
			count = int(mustInt(db.eval(sel.Limit.Rowcount, nil)))
		}
		offset = min(offset, len(out.rows))
		out.rows = out.rows[offset:min(offset+count, len(out.rows))]
	}
	return out
}

func mustInt(v sqltypes.Value) int64 {
	i, err := v.ToInt64()
	if err != nil {
		panic(err)
	}
	return i
}

func cross(left, right relation) relation {
	out := relation{
		quals: append(append([]string{}, left.quals...), right.quals...),
		names: append(append([]string{}, left.names...), right.names...),
	}
	for _, l := range left.rows {
		for _, r := range right.rows {
			out.rows = append(out.rows, append(append([]sqltypes.Value{}, l...), r...))
		}
	}
	return out
}

func nullRow(n int) []sqltypes.Value {
	return make([]sqltypes.Value, n)
}

func (db testDB) tableExpr(te sqlast.TableExpr, outer *scope) relation {
	switch te := te.(type) {
	case *sqlast.AliasedTableExpr:
		var rel relation
		switch expr := te.Expr.(type) {
		case sqlast.TableName:
			t, ok := db[strings.ToLower(expr.Name)]
			if !ok {
				panic("no table " + expr.Name)
			}
			rel = relation{names: t.cols, rows: t.rows}
		case *sqlast.DerivedTable:
			// a derived table cannot see the block it is part of
			rel = db.query(expr.Select, &scope{parent: outer})
			if len(te.Columns) > 0 {
				rel.names = te.Columns
			}
		default:
			panic(fmt.Sprintf("unsupported FROM item %T", expr))
		}
		rel.quals = make([]string, len(rel.names))
		for i := range rel.quals {
			rel.quals[i] = te.RefName()
		}
		return rel
	case *sqlast.JoinTableExpr:
		left := db.tableExpr(te.LeftExpr, outer)
		right := db.tableExpr(te.RightExpr, outer)
		both := cross(relation{quals: left.quals, names: left.names}, relation{quals: right.quals, names: right.names})
		out := relation{quals: both.quals, names: both.names}
		switch te.Join {
		case sqlast.SemiJoinType, sqlast.AntiJoinType, sqlast.LeftAntiSemiNotInJoinType:
			out.quals, out.names = left.quals, left.names
		}
		rightMatched := make([]bool, len(right.rows))
		for _, l := range left.rows {
			matched := false
			for j, r := range right.rows {
				row := append(append([]sqltypes.Value{}, l...), r...)
				sc := &scope{quals: both.quals, names: both.names, row: row, parent: outer}
				if te.On != nil && !isTrue(db.eval(te.On, sc)) {
					continue
				}
				matched = true
				rightMatched[j] = true
				switch te.Join {
				case sqlast.NormalJoinType, sqlast.LeftJoinType, sqlast.RightJoinType, sqlast.FullJoinType:
					out.rows = append(out.rows, row)
				}
			}
			switch te.Join {
			case sqlast.LeftJoinType, sqlast.FullJoinType:
				if !matched {
					out.rows = append(out.rows, append(append([]sqltypes.Value{}, l...), nullRow(len(right.names))...))
				}
			case sqlast.SemiJoinType:
				if matched {
					out.rows = append(out.rows, l)
				}
			case sqlast.AntiJoinType, sqlast.LeftAntiSemiNotInJoinType:
				if !matched {
					out.rows = append(out.rows, l)
				}
			}
		}
		if te.Join == sqlast.RightJoinType || te.Join == sqlast.FullJoinType {
			for j, r := range right.rows {
				if !rightMatched[j] {
					out.rows = append(out.rows, append(nullRow(len(left.names)), r...))
				}
			}
		}
		return out
	}
	panic(fmt.Sprintf("unsupported table expression %T", te))
}

func (sc *scope) lookup(col *sqlast.ColName) sqltypes.Value {
	s := sc
	for range col.Level {
		s = s.parent
	}
	found := -1
	for i, name := range s.names {
		if !strings.EqualFold(name, col.Name) {
			continue
		}
		if col.Qualifier != "" && !strings.EqualFold(s.quals[i], col.Qualifier) {
			continue
		}
		if found >= 0 {
			panic("ambiguous column " + sqlast.String(col))
		}
		found = i
	}
	if found < 0 {
		panic("unknown column " + sqlast.String(col))
	}
	if s.row == nil {
		return sqltypes.NULL
	}
	return s.row[found]
}

func (db testDB) eval(e sqlast.Expr, sc *scope) sqltypes.Value {
	switch e := e.(type) {
	case *sqlast.ColName:
		return sc.lookup(e)
	case *sqlast.Literal:
		return e.Val
	case *sqlast.AndExpr:
		l, r := db.eval(e.Left, sc), db.eval(e.Right, sc)
		switch {
		case isFalse(l) || isFalse(r):
			return sqlFalse
		case l.IsNull() || r.IsNull():
			return sqltypes.NULL
		}
		return sqlTrue
	case *sqlast.OrExpr:
		l, r := db.eval(e.Left, sc), db.eval(e.Right, sc)
		switch {
		case isTrue(l) || isTrue(r):
			return sqlTrue
		case l.IsNull() || r.IsNull():
			return sqltypes.NULL
		}
		return sqlFalse
	case *sqlast.NotExpr:
		v := db.eval(e.Expr, sc)
		if v.IsNull() {
			return v
		}
		return sqlBool(isFalse(v))
	case *sqlast.IsExpr:
		v := db.eval(e.Left, sc)
		switch e.Right {
		case sqlast.IsNullOp, sqlast.IsUnknownOp:
			return sqlBool(v.IsNull())
		case sqlast.IsNotNullOp, sqlast.IsNotUnknownOp:
			return sqlBool(!v.IsNull())
		case sqlast.IsTrueOp:
			return sqlBool(isTrue(v))
		case sqlast.IsNotTrueOp:
			return sqlBool(!isTrue(v))
		case sqlast.IsFalseOp:
			return sqlBool(isFalse(v))
		case sqlast.IsNotFalseOp:
			return sqlBool(!isFalse(v))
		}
	case *sqlast.ComparisonExpr:
		return db.evalComparison(e, sc)
	case *sqlast.BinaryExpr:
		l, r := db.eval(e.Left, sc), db.eval(e.Right, sc)
		if l.IsNull() || r.IsNull() {
			return sqltypes.NULL
		}
		a, b := mustInt(l), mustInt(r)
		switch e.Operator {
		case sqlast.PlusOp:
			return sqltypes.NewInt64(a + b)
		case sqlast.MinusOp:
			return sqltypes.NewInt64(a - b)
		case sqlast.MultOp:
			return sqltypes.NewInt64(a * b)
		}
	case *sqlast.FuncExpr:
		if e.Aggregate {
			return db.aggregate(e, sc)
		}
		var args []sqltypes.Value
		for _, arg := range e.Exprs {
			args = append(args, db.eval(arg, sc))
		}
		if e.Name == "coalesce" {
			for _, v := range args {
				if !v.IsNull() {
					return v
				}
			}
			return sqltypes.NULL
		}
		for _, v := range args {
			if v.IsNull() {
				return sqltypes.NULL
			}
		}
		switch e.Name {
		case "abs":
			return sqltypes.NewInt64(max(mustInt(args[0]), -mustInt(args[0])))
		case "lower":
			return sqltypes.NewText(strings.ToLower(string(args[0].Raw())))
		case "upper":
			return sqltypes.NewText(strings.ToUpper(string(args[0].Raw())))
		}
	case *sqlast.Subquery:
		return scalarValue(db.query(e.Select, sc).rows)
	case *sqlast.ExistsExpr:
		return sqlBool(len(db.query(e.Subquery.Select, sc).rows) > 0)
	}
	panic("cannot evaluate " + sqlast.String(e))
}

func scalarValue(rows [][]sqltypes.Value) sqltypes.Value {
	switch len(rows) {
	case 0:
		return sqltypes.NULL
	case 1:
		return rows[0][0]
	}
	panic("more than one row returned by a subquery used as an expression")
}

func (db testDB) aggregate(f *sqlast.FuncExpr, sc *scope) sqltypes.Value {
	if !sc.grouped {
		panic("aggregate outside a grouped block")
	}
	if f.Star {
		return sqltypes.NewInt64(int64(len(sc.group)))
	}
	var vals []sqltypes.Value
	for _, row := range sc.group {
		v := db.eval(f.Exprs[0], &scope{quals: sc.quals, names: sc.names, row: row, parent: sc.parent})
		if !v.IsNull() {
			vals = append(vals, v)
		}
	}
	if f.Name == "count" {
		return sqltypes.NewInt64(int64(len(vals)))
	}
	if len(vals) == 0 {
		return sqltypes.NULL
	}
	switch f.Name {
	case "sum":
		var total int64
		for _, v := range vals {
			total += mustInt(v)
		}
		return sqltypes.NewInt64(total)
	case "min", "max":
		best := vals[0]
		for _, v := range vals[1:] {
			c := compareValues(v, best)
			if (f.Name == "min" && c < 0) || (f.Name == "max" && c > 0) {
				best = v
			}
		}
		return best
	}
	panic("unsupported aggregate " + f.Name)
}

func compareValues(a, b sqltypes.Value) int {
	if a.IsIntegral() && b.IsIntegral() {
		x, y := mustInt(a), mustInt(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(string(a.Raw()), string(b.Raw()))
}

func compare(op sqlast.ComparisonExprOperator, a, b sqltypes.Value) sqltypes.Value {
	if a.IsNull() || b.IsNull() {
		return sqltypes.NULL
	}
	c := compareValues(a, b)
	switch op {
	case sqlast.EqualOp:
		return sqlBool(c == 0)
	case sqlast.NotEqualOp:
		return sqlBool(c != 0)
	case sqlast.LessThanOp:
		return sqlBool(c < 0)
	case sqlast.LessEqualOp:
		return sqlBool(c <= 0)
	case sqlast.GreaterThanOp:
		return sqlBool(c > 0)
	case sqlast.GreaterEqualOp:
		return sqlBool(c >= 0)
	}
	panic("unsupported comparison " + op.ToString())
}

// compareRows compares row values with "=" or "<>" semantics.
func compareRows(op sqlast.ComparisonExprOperator, left, right []sqltypes.Value) sqltypes.Value {
	if len(left) == 1 {
		return compare(op, left[0], right[0])
	}
	eq := sqlTrue
	for i := range left {
		c := compare(sqlast.EqualOp, left[i], right[i])
		switch {
		case isFalse(c):
			eq = sqlFalse
		case c.IsNull() && !isFalse(eq):
			eq = sqltypes.NULL
		}
	}
	switch op {
	case sqlast.EqualOp:
		return eq
	case sqlast.NotEqualOp:
		if eq.IsNull() {
			return eq
		}
		return sqlBool(isFalse(eq))
	}
	panic("unsupported row comparison " + op.ToString())
}

func (db testDB) operand(e sqlast.Expr, sc *scope) []sqltypes.Value {
	var out []sqltypes.Value
	for _, item := range tupleExprs(e) {
		out = append(out, db.eval(item, sc))
	}
	return out
}

// quantified evaluates op against every row; all selects ALL semantics,
// otherwise ANY.
func quantified(op sqlast.ComparisonExprOperator, left []sqltypes.Value, rows [][]sqltypes.Value, all bool) sqltypes.Value {
	sawNull := false
	for _, row := range rows {
		c := compareRows(op, left, row)
		switch {
		case c.IsNull():
			sawNull = true
		case all && isFalse(c):
			return sqlFalse
		case !all && isTrue(c):
			return sqlTrue
		}
	}
	if sawNull {
		return sqltypes.NULL
	}
	return sqlBool(all)
}

func not(v sqltypes.Value) sqltypes.Value {
	if v.IsNull() {
		return v
	}
	return sqlBool(isFalse(v))
}

func (db testDB) evalComparison(e *sqlast.ComparisonExpr, sc *scope) sqltypes.Value {
	var rows [][]sqltypes.Value
	switch right := e.Right.(type) {
	case *sqlast.Subquery:
		rows = db.query(right.Select, sc).rows
	case sqlast.ValTuple:
		if e.Operator == sqlast.InOp || e.Operator == sqlast.NotInOp {
			for _, item := range right {
				rows = append(rows, db.operand(item, sc))
			}
		} else {
			rows = [][]sqltypes.Value{db.operand(right, sc)}
		}
	default:
		rows = [][]sqltypes.Value{{db.eval(right, sc)}}
	}
	if _, ok := e.Right.(*sqlast.Subquery); ok && e.Modifier == sqlast.NoModifier && isScalarOp(e.Operator) {
		return compare(e.Operator, db.eval(e.Left, sc), scalarValue(rows))
	}

	left := db.operand(e.Left, sc)
	switch {
	case e.Operator == sqlast.InOp:
		return quantified(sqlast.EqualOp, left, rows, false)
	case e.Operator == sqlast.NotInOp:
		return not(quantified(sqlast.EqualOp, left, rows, false))
	case e.Modifier == sqlast.Any:
		return quantified(e.Operator, left, rows, false)
	case e.Modifier == sqlast.All:
		return quantified(e.Operator, left, rows, true)
	}
	return compareRows(e.Operator, left, rows[0])
}

// randomTable fills a table with values drawn from small domains so that
// NULLs, duplicates and matches are frequent.
func randomTable(r *rand.Rand, n int, cols []string, notNull map[string]bool) *testTable {
	t := &testTable{cols: cols}
	for range n {
		row := make([]sqltypes.Value, len(cols))
		for i, c := range cols {
			switch {
			case strings.HasPrefix(c, "z") || c == "c":
				row[i] = sqltypes.NewText(string(rune('p' + r.Intn(3))))
			default:
				row[i] = sqltypes.NewInt32(int32(r.Intn(4)))
			}
			if !notNull[c] && r.Intn(5) == 0 {
				row[i] = sqltypes.NULL
			}
		}
		t.rows = append(t.rows, row)
	}
	return t
}
