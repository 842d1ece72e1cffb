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
	"strings"

	"segplan.io/segplan/go/vt/sqlast"
)

// nonNullColumns is a set of columns of one query block that are known
// never to be NULL in the rows the block produces.
type nonNullColumns struct {
	cols []*sqlast.ColName
}

func (s *nonNullColumns) add(col *sqlast.ColName) {
	if col.Level != 0 || s.has(col) {
		return
	}
	s.cols = append(s.cols, col)
}

// has matches on the column name, and on the qualifier when both sides
// carry one.
func (s *nonNullColumns) has(col *sqlast.ColName) bool {
	for _, c := range s.cols {
		if !strings.EqualFold(c.Name, col.Name) {
			continue
		}
		if c.Qualifier == "" || col.Qualifier == "" || strings.EqualFold(c.Qualifier, col.Qualifier) {
			return true
		}
	}
	return false
}

// addFrom records the NOT NULL columns of the base tables whose rows
// reach the output of te unchanged.
func (d *Decorrelator) addFrom(s *nonNullColumns, te sqlast.TableExpr) {
	switch te := te.(type) {
	case *sqlast.AliasedTableExpr:
		tn, ok := te.Expr.(sqlast.TableName)
		if !ok || d.schema == nil {
			return
		}
		t, ok := d.schema.FindTable(tn.Name)
		if !ok {
			return
		}
		for _, c := range t.Columns {
			if c.NotNull {
				s.add(sqlast.NewColName(te.RefName(), c.Name, c.Type))
			}
		}
	case *sqlast.JoinTableExpr:
		switch te.Join {
		case sqlast.NormalJoinType:
			d.addFrom(s, te.LeftExpr)
			d.addFrom(s, te.RightExpr)
			s.addTrue(te.On)
		case sqlast.LeftJoinType, sqlast.SemiJoinType, sqlast.AntiJoinType, sqlast.LeftAntiSemiNotInJoinType:
			d.addFrom(s, te.LeftExpr)
		case sqlast.RightJoinType:
			d.addFrom(s, te.RightExpr)
		}
	}
}

// addTrue records the columns that cannot be NULL when e is TRUE.
func (s *nonNullColumns) addTrue(e sqlast.Expr) {
	switch e := e.(type) {
	case *sqlast.ColName:
		s.add(e)
	case *sqlast.AndExpr:
		s.addTrue(e.Left)
		s.addTrue(e.Right)
	case *sqlast.OrExpr:
		left, right := &nonNullColumns{}, &nonNullColumns{}
		left.addTrue(e.Left)
		right.addTrue(e.Right)
		for _, c := range left.cols {
			if right.has(c) {
				s.add(c)
			}
		}
	case *sqlast.NotExpr:
		s.addNonNull(e.Expr)
	case *sqlast.ComparisonExpr:
		l, lok := e.Left.(sqlast.ValTuple)
		r, rok := e.Right.(sqlast.ValTuple)
		switch {
		case lok && rok:
			// only row equality needs every element pair to compare TRUE
			if e.Operator == sqlast.EqualOp && e.Modifier == sqlast.NoModifier && len(l) == len(r) {
				s.addNonNull(l)
				s.addNonNull(r)
			}
		case lok:
		default:
			s.addNonNull(e)
		}
	case *sqlast.FuncExpr:
		s.addNonNull(e)
	case *sqlast.IsExpr:
		switch e.Right {
		case sqlast.IsTrueOp:
			s.addTrue(e.Left)
		case sqlast.IsNotNullOp, sqlast.IsFalseOp, sqlast.IsNotUnknownOp:
			s.addNonNull(e.Left)
		}
	}
}

// addNonNull records the columns that cannot be NULL when e is not NULL.
func (s *nonNullColumns) addNonNull(e sqlast.Expr) {
	switch e := e.(type) {
	case *sqlast.ColName:
		s.add(e)
	case *sqlast.NotExpr:
		s.addNonNull(e.Expr)
	case *sqlast.BinaryExpr:
		s.addNonNull(e.Left)
		s.addNonNull(e.Right)
	case *sqlast.FuncExpr:
		if e.Strict && !e.Aggregate {
			for _, arg := range e.Exprs {
				s.addNonNull(arg)
			}
		}
	case *sqlast.ComparisonExpr:
		if e.Modifier != sqlast.NoModifier {
			return
		}
		// a row comparison can be decided by one pair while another
		// pair holds a NULL
		if _, ok := e.Left.(sqlast.ValTuple); ok {
			return
		}
		switch e.Right.(type) {
		case *sqlast.Subquery:
			return
		case sqlast.ValTuple:
			if e.Operator == sqlast.InOp || e.Operator == sqlast.NotInOp {
				s.addNonNull(e.Left)
			}
			return
		}
		s.addNonNull(e.Left)
		s.addNonNull(e.Right)
	case sqlast.ValTuple:
		for _, v := range e {
			s.addNonNull(v)
		}
	}
}

// nonNullable reports whether e can never be NULL given the known columns.
func (s *nonNullColumns) nonNullable(e sqlast.Expr) bool {
	switch e := e.(type) {
	case *sqlast.ColName:
		return e.Level == 0 && s.has(e)
	case *sqlast.Literal:
		return !e.IsNull()
	case *sqlast.BinaryExpr:
		return s.nonNullable(e.Left) && s.nonNullable(e.Right)
	case *sqlast.FuncExpr:
		if e.Aggregate {
			return !e.NullOnEmpty
		}
		if !e.Strict || len(e.Exprs) == 0 {
			return false
		}
		for _, arg := range e.Exprs {
			if !s.nonNullable(arg) {
				return false
			}
		}
		return true
	}
	return false
}

// outerNonNull reports whether every operand of a NOT IN is proven
// non-null in the outer query, using its FROM clause and the WHERE
// conjuncts other than the NOT IN itself.
func (d *Decorrelator) outerNonNull(sel *sqlast.Select, operands sqlast.Exprs, others []sqlast.Expr) bool {
	s := &nonNullColumns{}
	for _, te := range sel.From {
		d.addFrom(s, te)
	}
	for _, e := range others {
		s.addTrue(e)
	}
	for _, e := range operands {
		if !s.nonNullable(e) {
			return false
		}
	}
	return true
}

// innerNonNull reports whether every output column of sel is proven
// non-null.
func (d *Decorrelator) innerNonNull(sel *sqlast.Select) bool {
	s := &nonNullColumns{}
	for _, te := range sel.From {
		d.addFrom(s, te)
	}
	s.addTrue(sel.Where)
	for _, se := range sel.SelectExprs {
		if !s.nonNullable(se.Expr) {
			return false
		}
	}
	return true
}
