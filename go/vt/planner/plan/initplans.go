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
	"strconv"

	"segplan.io/segplan/go/vt/sqlast"
	"segplan.io/segplan/go/vt/vterrors"
)

// RemoveUnusedInitPlans drops the init plans whose parameter is never read.
// An init plan attached to a node is in use when the node's expressions,
// its children or its other init plans in use read the parameter, or when
// any subplan reads it. Init plans that set no parameter are kept. It
// returns the number of init plans dropped.
func RemoveUnusedInitPlans(p *Plan) (int, error) {
	r := &initPlanPruner{
		p:      p,
		global: make(map[int]bool),
		done:   make(map[NodeID]map[int]bool),
		onPath: make(map[NodeID]bool),
	}
	err := VisitTopDown(&Plan{nodes: p.nodes, Root: InvalidNodeID, SubPlans: p.SubPlans}, func(n *Node) (bool, error) {
		addParams(r.global, n)
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	for _, root := range p.Roots() {
		if _, err := r.prune(root); err != nil {
			return 0, err
		}
	}
	return r.removed, nil
}

type initPlanPruner struct {
	p *Plan
	// global are the parameters read by subplans.
	global map[int]bool
	// done maps a pruned node to the parameters its subtree reads.
	done    map[NodeID]map[int]bool
	onPath  map[NodeID]bool
	removed int
}

func (r *initPlanPruner) prune(id NodeID) (map[int]bool, error) {
	if used, ok := r.done[id]; ok {
		return used, nil
	}
	if r.onPath[id] {
		return nil, vterrors.VT13001("plan has a cycle through node " + strconv.Itoa(int(id)))
	}
	n, err := r.p.Node(id)
	if err != nil {
		return nil, err
	}
	r.onPath[id] = true
	defer delete(r.onPath, id)

	used := make(map[int]bool)
	addParams(used, n)
	for _, c := range n.Children {
		sub, err := r.prune(c)
		if err != nil {
			return nil, err
		}
		for param := range sub {
			used[param] = true
		}
	}

	inits := make([]map[int]bool, len(n.InitPlans))
	for i, ip := range n.InitPlans {
		if inits[i], err = r.prune(ip); err != nil {
			return nil, err
		}
	}
	// an init plan in use may read the parameter of another one
	keep := make([]bool, len(n.InitPlans))
	for changed := true; changed; {
		changed = false
		for i, ip := range n.InitPlans {
			if keep[i] {
				continue
			}
			param := r.p.nodes[ip].SetParam
			if param != 0 && !used[param] && !r.global[param] {
				continue
			}
			keep[i], changed = true, true
			for q := range inits[i] {
				used[q] = true
			}
		}
	}
	var kept []NodeID
	for i, ip := range n.InitPlans {
		if keep[i] {
			kept = append(kept, ip)
		}
	}
	r.removed += len(n.InitPlans) - len(kept)
	n.InitPlans = kept

	r.done[id] = used
	return used, nil
}

// addParams records the parameters read by the expressions of n.
func addParams(used map[int]bool, n *Node) {
	var nodes []sqlast.SQLNode
	for _, e := range []sqlast.Expr{n.Filter, n.JoinQual} {
		if e != nil {
			nodes = append(nodes, e)
		}
	}
	for _, te := range n.TargetList {
		if te.Expr != nil {
			nodes = append(nodes, te.Expr)
		}
	}
	if n.Motion != nil {
		for _, e := range n.Motion.HashExprs {
			nodes = append(nodes, e)
		}
	}
	_ = sqlast.Walk(func(node sqlast.SQLNode) (bool, error) {
		if param, ok := node.(*sqlast.Param); ok {
			used[param.ID] = true
		}
		return true, nil
	}, nodes...)
}
