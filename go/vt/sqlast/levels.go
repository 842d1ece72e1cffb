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

// VisitColumns calls fn for every column reference under node. depth is the
// number of query blocks entered between node and the reference, so
// col.Level-depth is the level of the reference as seen from node's block.
// Returning false from fn stops the visit.
func VisitColumns(node SQLNode, fn func(col *ColName, depth int) bool) {
	if node == nil {
		return
	}
	depth := 0
	stopped := false
	Rewrite(node, func(cursor *Cursor) bool {
		if stopped {
			return false
		}
		switch n := cursor.Node().(type) {
		case *ColName:
			if !fn(n, depth) {
				stopped = true
			}
			return false
		case SelectStatement:
			if _, isRoot := cursor.Parent().(*RootNode); !isRoot {
				depth++
			}
		}
		return true
	}, func(cursor *Cursor) bool {
		if _, ok := cursor.Node().(SelectStatement); ok {
			if _, isRoot := cursor.Parent().(*RootNode); !isRoot {
				depth--
			}
		}
		return true
	})
}

// ReferencesLevel reports whether node references a column of the query
// block level steps outwards from node's own block.
func ReferencesLevel(node SQLNode, level int) bool {
	found := false
	VisitColumns(node, func(col *ColName, depth int) bool {
		if col.Level-depth == level {
			found = true
		}
		return !found
	})
	return found
}

// MaxOuterLevel returns the furthest enclosing block referenced from inside
// node, 0 when node only references its own block.
func MaxOuterLevel(node SQLNode) int {
	highest := 0
	VisitColumns(node, func(col *ColName, depth int) bool {
		if l := col.Level - depth; l > highest {
			highest = l
		}
		return true
	})
	return highest
}

// IsCorrelated reports whether a subquery references any enclosing block.
func IsCorrelated(sel SelectStatement) bool {
	return MaxOuterLevel(sel) > 0
}

// AdjustLevels adds delta to the level of every reference under node that
// points at least minLevel blocks out of node's block. Use it when moving an
// expression between query blocks.
func AdjustLevels(node SQLNode, delta, minLevel int) {
	VisitColumns(node, func(col *ColName, depth int) bool {
		if col.Level-depth >= minLevel {
			col.Level += delta
		}
		return true
	})
}

// ContainsAggregate reports whether e calls an aggregate function at its
// own query level.
func ContainsAggregate(e SQLNode) bool {
	found := false
	_ = Walk(func(node SQLNode) (bool, error) {
		switch node := node.(type) {
		case *FuncExpr:
			if node.Aggregate {
				found = true
				return false, nil
			}
		case *Subquery:
			return false, nil
		}
		return !found, nil
	}, e)
	return found
}

// ContainsVolatile reports whether e calls a volatile function.
func ContainsVolatile(e SQLNode) bool {
	found := false
	_ = Walk(func(node SQLNode) (bool, error) {
		if f, ok := node.(*FuncExpr); ok && f.Volatile {
			found = true
		}
		return !found, nil
	}, e)
	return found
}

// ContainsSubquery reports whether e has a subquery.
func ContainsSubquery(e SQLNode) bool {
	found := false
	_ = Walk(func(node SQLNode) (bool, error) {
		switch node.(type) {
		case *Subquery, *ExistsExpr:
			found = true
		}
		return !found, nil
	}, e)
	return found
}
