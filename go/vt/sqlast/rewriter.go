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

// Visit defines the signature of a function that
// can be used to visit all nodes of a parse tree.
// returning false on kontinue means that children will not be visited
// returning an error will abort the visitation and return the error
type Visit func(node SQLNode) (kontinue bool, err error)

// Walk calls visit on every node in pre-order, descending into subqueries
// and derived tables. If visit returns true, the underlying nodes are also
// visited. If it returns an error, walking is interrupted and the error is
// returned.
func Walk(visit Visit, nodes ...SQLNode) error {
	for _, node := range nodes {
		if node == nil {
			continue
		}
		var err error
		Rewrite(node, func(cursor *Cursor) bool {
			if err != nil {
				return false
			}
			var kontinue bool
			kontinue, err = visit(cursor.Node())
			return err == nil && kontinue
		}, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

// ApplyFunc is invoked by Rewrite for each node n, even if n is nil,
// before and/or after the node's children, using a Cursor describing
// the current node and providing operations on it.
//
// The return value of ApplyFunc controls the syntax tree traversal.
// See Rewrite for details.
type ApplyFunc func(*Cursor) bool

// Cursor describes a node encountered during Apply.
// Information about the node and its parent is available
// from the Node and Parent methods.
type Cursor struct {
	parent   SQLNode
	replacer func(newNode SQLNode)
	node     SQLNode
}

// Node returns the current Node.
func (c *Cursor) Node() SQLNode { return c.node }

// Parent returns the parent of the current Node.
func (c *Cursor) Parent() SQLNode { return c.parent }

// Replace replaces the current node in the parent field with this new object.
// The caller needs to make sure to not replace the object with something of
// the wrong type, or the rewriter will panic.
func (c *Cursor) Replace(newNode SQLNode) {
	c.replacer(newNode)
	c.node = newNode
}

// Rewrite traverses a syntax tree recursively, starting with root,
// and calling pre and post for each node as described below.
// Rewrite returns the syntax tree, possibly modified.
//
// If pre is not nil, it is called for each node before the node's
// children are traversed (pre-order). If pre returns false, no
// children are traversed, and post is not called for that node.
//
// If post is not nil, and a prior call of pre didn't return false,
// post is called for each node after its children are traversed
// (post-order). If post returns false, traversal is terminated and
// Rewrite returns immediately.
func Rewrite(node SQLNode, pre, post ApplyFunc) (result SQLNode) {
	parent := &RootNode{node}
	a := &application{pre: pre, post: post}
	a.apply(parent, node, func(newNode SQLNode) {
		parent.SQLNode = newNode
	})
	return parent.SQLNode
}

// RewriteExpr is Rewrite for expression roots.
func RewriteExpr(expr Expr, pre, post ApplyFunc) Expr {
	out := Rewrite(expr, pre, post)
	if out == nil {
		return nil
	}
	return out.(Expr)
}

// RootNode is the root node of the AST when rewriting. It is the first element of the tree.
type RootNode struct {
	SQLNode
}

type application struct {
	pre, post ApplyFunc
	cur       Cursor
	stop      bool
}

func (a *application) apply(parent, node SQLNode, replacer func(SQLNode)) {
	if a.stop || node == nil || isNilNode(node) {
		return
	}

	saved := a.cur
	a.cur.replacer = replacer
	a.cur.node = node
	a.cur.parent = parent

	if a.pre != nil && !a.pre(&a.cur) {
		a.cur = saved
		return
	}
	node = a.cur.node

	switch n := node.(type) {
	case *Select:
		for i := range n.SelectExprs {
			a.apply(n, n.SelectExprs[i], func(x SQLNode) { n.SelectExprs[i] = x.(*AliasedExpr) })
		}
		for i := range n.From {
			a.apply(n, n.From[i], func(x SQLNode) { n.From[i] = x.(TableExpr) })
		}
		a.apply(n, n.Where, func(x SQLNode) { n.Where = toExpr(x) })
		for i := range n.GroupBy {
			a.apply(n, n.GroupBy[i], func(x SQLNode) { n.GroupBy[i] = x.(Expr) })
		}
		a.apply(n, n.Having, func(x SQLNode) { n.Having = toExpr(x) })
		for i := range n.OrderBy {
			a.apply(n, n.OrderBy[i], func(x SQLNode) { n.OrderBy[i] = x.(*Order) })
		}
		if n.Limit != nil {
			a.apply(n, n.Limit, func(x SQLNode) { n.Limit = x.(*Limit) })
		}
	case *Union:
		a.apply(n, n.Left, func(x SQLNode) { n.Left = x.(SelectStatement) })
		a.apply(n, n.Right, func(x SQLNode) { n.Right = x.(SelectStatement) })
	case *AliasedExpr:
		a.apply(n, n.Expr, func(x SQLNode) { n.Expr = x.(Expr) })
	case *AliasedTableExpr:
		a.apply(n, n.Expr, func(x SQLNode) { n.Expr = x.(SimpleTableExpr) })
	case *JoinTableExpr:
		a.apply(n, n.LeftExpr, func(x SQLNode) { n.LeftExpr = x.(TableExpr) })
		a.apply(n, n.RightExpr, func(x SQLNode) { n.RightExpr = x.(TableExpr) })
		a.apply(n, n.On, func(x SQLNode) { n.On = toExpr(x) })
	case *DerivedTable:
		a.apply(n, n.Select, func(x SQLNode) { n.Select = x.(SelectStatement) })
	case *FuncTableExpr:
		a.apply(n, n.Func, func(x SQLNode) { n.Func = x.(*FuncExpr) })
	case *Order:
		a.apply(n, n.Expr, func(x SQLNode) { n.Expr = x.(Expr) })
	case *Limit:
		a.apply(n, n.Offset, func(x SQLNode) { n.Offset = toExpr(x) })
		a.apply(n, n.Rowcount, func(x SQLNode) { n.Rowcount = toExpr(x) })
	case ValTuple:
		for i := range n {
			a.apply(n, n[i], func(x SQLNode) { n[i] = x.(Expr) })
		}
	case *AndExpr:
		a.apply(n, n.Left, func(x SQLNode) { n.Left = x.(Expr) })
		a.apply(n, n.Right, func(x SQLNode) { n.Right = x.(Expr) })
	case *OrExpr:
		a.apply(n, n.Left, func(x SQLNode) { n.Left = x.(Expr) })
		a.apply(n, n.Right, func(x SQLNode) { n.Right = x.(Expr) })
	case *NotExpr:
		a.apply(n, n.Expr, func(x SQLNode) { n.Expr = x.(Expr) })
	case *ComparisonExpr:
		a.apply(n, n.Left, func(x SQLNode) { n.Left = x.(Expr) })
		a.apply(n, n.Right, func(x SQLNode) { n.Right = x.(Expr) })
	case *IsExpr:
		a.apply(n, n.Left, func(x SQLNode) { n.Left = x.(Expr) })
	case *BinaryExpr:
		a.apply(n, n.Left, func(x SQLNode) { n.Left = x.(Expr) })
		a.apply(n, n.Right, func(x SQLNode) { n.Right = x.(Expr) })
	case *FuncExpr:
		for i := range n.Exprs {
			a.apply(n, n.Exprs[i], func(x SQLNode) { n.Exprs[i] = x.(Expr) })
		}
	case *Subquery:
		a.apply(n, n.Select, func(x SQLNode) { n.Select = x.(SelectStatement) })
	case *ExistsExpr:
		a.apply(n, n.Subquery, func(x SQLNode) { n.Subquery = x.(*Subquery) })
	case *ColName, *Literal, *Param, TableName:
	}

	if a.stop {
		return
	}
	if a.post != nil && !a.post(&a.cur) {
		a.stop = true
	}
	a.cur = saved
}

func toExpr(x SQLNode) Expr {
	if x == nil {
		return nil
	}
	return x.(Expr)
}

// isNilNode reports typed nil pointers stored in an interface.
func isNilNode(node SQLNode) bool {
	switch n := node.(type) {
	case *Select:
		return n == nil
	case *Union:
		return n == nil
	case *Limit:
		return n == nil
	case *Subquery:
		return n == nil
	case *FuncExpr:
		return n == nil
	case *ColName:
		return n == nil
	case *Literal:
		return n == nil
	}
	return false
}
