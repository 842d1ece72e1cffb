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
	"fmt"
	"strings"
)

// TrackedBuffer is used to rebuild a query from the ast.
type TrackedBuffer struct {
	strings.Builder
}

// NewTrackedBuffer creates a new TrackedBuffer.
func NewTrackedBuffer() *TrackedBuffer {
	return &TrackedBuffer{}
}

// String returns a string representation of an SQLNode.
func String(node SQLNode) string {
	if node == nil {
		return "<nil>"
	}
	buf := NewTrackedBuffer()
	node.formatFast(buf)
	return buf.String()
}

// astPrintf writes a node into the buffer. It understands %s (string),
// %d (int) and %v (SQLNode).
func (buf *TrackedBuffer) astPrintf(format string, values ...any) {
	end := len(format)
	fieldnum := 0
	for i := 0; i < end; {
		lasti := i
		for i < end && format[i] != '%' {
			i++
		}
		if i > lasti {
			buf.WriteString(format[lasti:i])
		}
		if i >= end {
			break
		}
		i++ // '%'
		switch format[i] {
		case 's':
			buf.WriteString(values[fieldnum].(string))
		case 'd':
			fmt.Fprintf(buf, "%d", values[fieldnum])
		case 'v':
			if node, ok := values[fieldnum].(SQLNode); ok && node != nil {
				node.formatFast(buf)
			} else {
				buf.WriteString("<nil>")
			}
		default:
			panic("unexpected")
		}
		fieldnum++
		i++
	}
}

func (buf *TrackedBuffer) printExpr(parent, child Expr) {
	if needParens(parent, child) {
		buf.WriteByte('(')
		child.formatFast(buf)
		buf.WriteByte(')')
		return
	}
	child.formatFast(buf)
}

func precedenceFor(e Expr) int {
	switch e := e.(type) {
	case *OrExpr:
		return 1
	case *AndExpr:
		return 2
	case *NotExpr:
		return 3
	case *ComparisonExpr, *IsExpr:
		return 4
	case *BinaryExpr:
		if e.Operator == PlusOp || e.Operator == MinusOp {
			return 5
		}
		return 6
	}
	return 10
}

func needParens(parent, child Expr) bool {
	cp := precedenceFor(child)
	if _, isNot := parent.(*NotExpr); isNot {
		return cp < 10
	}
	pp := precedenceFor(parent)
	if pp == 4 || pp >= 5 {
		// comparisons and arithmetic bind their operands tightly
		return cp <= pp
	}
	return cp < pp
}

func (node *Select) formatFast(buf *TrackedBuffer) {
	buf.WriteString("select ")
	if node.Distinct {
		buf.WriteString("distinct ")
	}
	for i, se := range node.SelectExprs {
		if i > 0 {
			buf.WriteString(", ")
		}
		se.formatFast(buf)
	}
	if len(node.From) > 0 {
		buf.WriteString(" from ")
		node.From.formatFast(buf)
	}
	if node.Where != nil {
		buf.astPrintf(" where %v", node.Where)
	}
	if len(node.GroupBy) > 0 {
		buf.WriteString(" group by ")
		node.GroupBy.formatFast(buf)
	}
	if node.Having != nil {
		buf.astPrintf(" having %v", node.Having)
	}
	if len(node.OrderBy) > 0 {
		buf.WriteString(" order by ")
		for i, o := range node.OrderBy {
			if i > 0 {
				buf.WriteString(", ")
			}
			o.formatFast(buf)
		}
	}
	if node.Limit != nil {
		node.Limit.formatFast(buf)
	}
}

func (node *Union) formatFast(buf *TrackedBuffer) {
	if node.Distinct {
		buf.astPrintf("%v union %v", node.Left, node.Right)
		return
	}
	buf.astPrintf("%v union all %v", node.Left, node.Right)
}

func (node *AliasedExpr) formatFast(buf *TrackedBuffer) {
	node.Expr.formatFast(buf)
	if node.As != "" {
		buf.astPrintf(" as %s", node.As)
	}
}

func (node TableExprs) formatFast(buf *TrackedBuffer) {
	for i, te := range node {
		if i > 0 {
			buf.WriteString(", ")
		}
		te.formatFast(buf)
	}
}

func (node *AliasedTableExpr) formatFast(buf *TrackedBuffer) {
	node.Expr.formatFast(buf)
	if node.As != "" {
		buf.astPrintf(" as %s", node.As)
	}
	if len(node.Columns) > 0 {
		buf.astPrintf("(%s)", strings.Join(node.Columns, ", "))
	}
}

func (node *JoinTableExpr) formatFast(buf *TrackedBuffer) {
	buf.astPrintf("%v %s %v", node.LeftExpr, node.Join.ToString(), node.RightExpr)
	if node.On != nil {
		buf.astPrintf(" on %v", node.On)
	}
}

func (node TableName) formatFast(buf *TrackedBuffer) {
	buf.WriteString(node.Name)
}

func (node *DerivedTable) formatFast(buf *TrackedBuffer) {
	buf.astPrintf("(%v)", node.Select)
}

func (node *FuncTableExpr) formatFast(buf *TrackedBuffer) {
	node.Func.formatFast(buf)
}

func (node *Order) formatFast(buf *TrackedBuffer) {
	node.Expr.formatFast(buf)
	if node.Desc {
		buf.WriteString(" desc")
	}
}

func (node *Limit) formatFast(buf *TrackedBuffer) {
	if node.Rowcount != nil {
		buf.astPrintf(" limit %v", node.Rowcount)
	}
	if node.Offset != nil {
		buf.astPrintf(" offset %v", node.Offset)
	}
}

// formatFast prints outer references with one '^' per level.
func (node *ColName) formatFast(buf *TrackedBuffer) {
	for range node.Level {
		buf.WriteByte('^')
	}
	if node.Qualifier != "" {
		buf.WriteString(node.Qualifier)
		buf.WriteByte('.')
	}
	buf.WriteString(node.Name)
}

func (node *Literal) formatFast(buf *TrackedBuffer) {
	buf.WriteString(node.Val.SQL())
}

func (node *Param) formatFast(buf *TrackedBuffer) {
	fmt.Fprintf(buf, "$%d", node.ID)
}

func (node ValTuple) formatFast(buf *TrackedBuffer) {
	buf.WriteByte('(')
	Exprs(node).formatFast(buf)
	buf.WriteByte(')')
}

func (node Exprs) formatFast(buf *TrackedBuffer) {
	for i, e := range node {
		if i > 0 {
			buf.WriteString(", ")
		}
		e.formatFast(buf)
	}
}

func (node *AndExpr) formatFast(buf *TrackedBuffer) {
	buf.printExpr(node, node.Left)
	buf.WriteString(" and ")
	buf.printExpr(node, node.Right)
}

func (node *OrExpr) formatFast(buf *TrackedBuffer) {
	buf.printExpr(node, node.Left)
	buf.WriteString(" or ")
	buf.printExpr(node, node.Right)
}

func (node *NotExpr) formatFast(buf *TrackedBuffer) {
	buf.WriteString("not ")
	buf.printExpr(node, node.Expr)
}

func (node *ComparisonExpr) formatFast(buf *TrackedBuffer) {
	buf.printExpr(node, node.Left)
	buf.WriteByte(' ')
	buf.WriteString(node.Operator.ToString())
	buf.WriteByte(' ')
	if node.Modifier != NoModifier {
		buf.WriteString(node.Modifier.ToString())
		buf.WriteByte(' ')
	}
	buf.printExpr(node, node.Right)
}

func (node *IsExpr) formatFast(buf *TrackedBuffer) {
	buf.printExpr(node, node.Left)
	buf.WriteByte(' ')
	buf.WriteString(node.Right.ToString())
}

func (node *BinaryExpr) formatFast(buf *TrackedBuffer) {
	buf.printExpr(node, node.Left)
	buf.WriteByte(' ')
	buf.WriteString(node.Operator.ToString())
	buf.WriteByte(' ')
	buf.printExpr(node, node.Right)
}

func (node *FuncExpr) formatFast(buf *TrackedBuffer) {
	buf.WriteString(node.Name)
	buf.WriteByte('(')
	if node.Star {
		buf.WriteByte('*')
	} else {
		node.Exprs.formatFast(buf)
	}
	buf.WriteByte(')')
}

func (node *Subquery) formatFast(buf *TrackedBuffer) {
	buf.astPrintf("(%v)", node.Select)
}

func (node *ExistsExpr) formatFast(buf *TrackedBuffer) {
	buf.astPrintf("exists %v", node.Subquery)
}
