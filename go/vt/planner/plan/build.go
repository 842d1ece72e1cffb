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

package plan

import (
	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/planner/catalog"
	"segplan.io/segplan/go/vt/sqlast"
)

// NewScan adds a scan of kind over table.
func (p *Plan) NewScan(kind Kind, table *catalog.Table, alias string, filter sqlast.Expr) NodeID {
	return p.Add(&Node{Kind: kind, Table: table, Alias: alias, Filter: filter, TargetList: tableTargets(table, alias)})
}

// NewValuesScan adds a scan over constant rows.
func (p *Plan) NewValuesScan(rows [][]sqltypes.Value) NodeID {
	return p.Add(&Node{Kind: ValuesScan, Rows: rows})
}

// NewUnary adds a node of kind with a single child.
func (p *Plan) NewUnary(kind Kind, child NodeID) NodeID {
	n := &Node{Kind: kind, Children: []NodeID{child}}
	if c, err := p.Node(child); err == nil {
		n.TargetList = c.TargetList
	}
	return p.Add(n)
}

// NewJoin adds a join of kind between outer and inner.
func (p *Plan) NewJoin(kind Kind, outer, inner NodeID, qual sqlast.Expr) NodeID {
	n := &Node{Kind: kind, Children: []NodeID{outer, inner}, JoinQual: qual}
	for _, c := range n.Children {
		if cn, err := p.Node(c); err == nil {
			n.TargetList = append(n.TargetList, cn.TargetList...)
		}
	}
	return p.Add(n)
}

// NewMotion adds a Motion sending child's rows to its parent slice.
func (p *Plan) NewMotion(typ MotionType, child NodeID) NodeID {
	id := p.NewUnary(Motion, child)
	p.nodes[id].Motion.Type = typ
	return id
}

// NewShareInputScan adds a ShareInputScan over the shared subtree child.
// Several ShareInputScans may name the same child.
func (p *Plan) NewShareInputScan(child NodeID) NodeID {
	return p.NewUnary(ShareInputScan, child)
}

// NewNary adds an Append or Sequence over children.
func (p *Plan) NewNary(kind Kind, children ...NodeID) NodeID {
	n := &Node{Kind: kind, Children: children}
	if len(children) > 0 {
		if last, err := p.Node(children[len(children)-1]); err == nil {
			n.TargetList = last.TargetList
		}
	}
	return p.Add(n)
}

// NewInsert adds an Insert of constant rows into table.
func (p *Plan) NewInsert(table *catalog.Table, rows [][]sqltypes.Value) NodeID {
	return p.Add(&Node{Kind: Insert, Table: table, Rows: rows})
}

func tableTargets(table *catalog.Table, alias string) []*TargetEntry {
	if table == nil {
		return nil
	}
	if alias == "" {
		alias = table.Name
	}
	out := make([]*TargetEntry, 0, len(table.Columns))
	for _, c := range table.Columns {
		out = append(out, &TargetEntry{Name: c.Name, Expr: sqlast.NewColName(alias, c.Name, c.Type)})
	}
	return out
}
