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
	"sort"
	"strconv"

	"github.com/gammazero/deque"

	"segplan.io/segplan/go/vt/vterrors"
)

// Inputs returns every node id n depends on: children, then init plans.
func (n *Node) Inputs() []NodeID {
	if len(n.InitPlans) == 0 {
		return n.Children
	}
	out := make([]NodeID, 0, len(n.Children)+len(n.InitPlans))
	out = append(out, n.Children...)
	return append(out, n.InitPlans...)
}

// Roots returns the main plan root followed by the subplan roots.
func (p *Plan) Roots() []NodeID {
	out := make([]NodeID, 0, 1+len(p.SubPlans))
	if p.Root != InvalidNodeID {
		out = append(out, p.Root)
	}
	return append(out, p.SubPlans...)
}

// VisitTopDown visits every node reachable from the roots breadth first,
// each node once. Returning false from visit skips the node's inputs.
func VisitTopDown(p *Plan, visit func(n *Node) (bool, error)) error {
	var queue deque.Deque[NodeID]
	seen := make(map[NodeID]bool)
	for _, r := range p.Roots() {
		queue.PushBack(r)
	}
	for queue.Len() > 0 {
		id := queue.PopFront()
		if seen[id] {
			continue
		}
		seen[id] = true
		n, err := p.Node(id)
		if err != nil {
			return err
		}
		descend, err := visit(n)
		if err != nil {
			return err
		}
		if !descend {
			continue
		}
		for _, in := range n.Inputs() {
			queue.PushBack(in)
		}
	}
	return nil
}

// ParentCounts counts, for every reachable node, how many edges point at
// it. Roots count one.
func ParentCounts(p *Plan) (map[NodeID]int, error) {
	counts := make(map[NodeID]int)
	for _, r := range p.Roots() {
		counts[r]++
	}
	err := VisitTopDown(p, func(n *Node) (bool, error) {
		for _, in := range n.Inputs() {
			counts[in]++
		}
		return true, nil
	})
	return counts, err
}

// CheckTree verifies that the reachable plan is a tree of well formed nodes.
func CheckTree(p *Plan) error {
	counts, err := ParentCounts(p)
	if err != nil {
		return err
	}
	ids := make([]NodeID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		n := p.nodes[id]
		if counts[id] > 1 {
			return vterrors.VT13001("plan node " + strconv.Itoa(int(id)) + " (" + n.Kind.String() + ") has " + strconv.Itoa(counts[id]) + " owners")
		}
		if err := checkArity(n); err != nil {
			return err
		}
	}
	return nil
}

func checkArity(n *Node) error {
	lo, hi := 1, 1
	switch n.Kind {
	case SeqScan, IndexScan, TidScan, FunctionScan, SampleScan, ValuesScan:
		lo, hi = 0, 0
	case ShareInputScan:
		lo, hi = 0, 1
		if n.Share != nil && n.Share.Role == ShareConsumer {
			hi = 0
		}
		if n.Share != nil && n.Share.Role == ShareProducer {
			lo = 1
		}
	case Result, Insert:
		lo, hi = 0, 1
	case NestLoop, HashJoin, MergeJoin:
		lo, hi = 2, 2
	case Append, Sequence:
		lo, hi = 1, -1
	case SubqueryScan, Hash, Agg, WindowAgg, Sort, Unique, Material, Limit:
	case Motion:
		if n.Motion == nil {
			return vterrors.VT13001("motion node " + strconv.Itoa(int(n.ID)) + " without motion info")
		}
	default:
		return vterrors.VT13002(n.Kind.String())
	}
	c := len(n.Children)
	if c < lo || (hi >= 0 && c > hi) {
		return vterrors.VT13001(n.Kind.String() + " node " + strconv.Itoa(int(n.ID)) + " has " + strconv.Itoa(c) + " children")
	}
	return nil
}

// AssignPlanNodeIDs numbers the reachable nodes in pre-order starting at
// 1, main plan first, and records each node's parent number (0 at roots).
func AssignPlanNodeIDs(p *Plan) error {
	next := 0
	seen := make(map[NodeID]bool)
	var assign func(id NodeID, parent int) error
	assign = func(id NodeID, parent int) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		n, err := p.Node(id)
		if err != nil {
			return err
		}
		next++
		n.PlanNodeID = next
		n.ParentPlanNodeID = parent
		for _, in := range n.Inputs() {
			if err := assign(in, n.PlanNodeID); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range p.Roots() {
		if err := assign(r, 0); err != nil {
			return err
		}
	}
	return nil
}

type sliceItem struct {
	id    NodeID
	slice int
}

// BuildSlices splits the reachable plan into slices at Motion boundaries
// and records the slice of every node. Subplans run in the root slice.
func BuildSlices(p *Plan) error {
	p.Slices = nil
	p.sliceOf = make(map[NodeID]int)
	byID := map[int]*Slice{0: {ID: 0, Parent: -1, Motion: InvalidNodeID, Root: p.Root, Locus: p.RootLocus}}

	var queue deque.Deque[sliceItem]
	for _, r := range p.Roots() {
		queue.PushBack(sliceItem{id: r})
	}
	for queue.Len() > 0 {
		it := queue.PopFront()
		if _, seen := p.sliceOf[it.id]; seen {
			continue
		}
		n, err := p.Node(it.id)
		if err != nil {
			return err
		}
		p.sliceOf[it.id] = it.slice
		childSlice := it.slice
		if n.Kind == Motion {
			if n.Motion == nil || n.Motion.ID <= 0 {
				return vterrors.VT13001("motion node " + strconv.Itoa(int(n.ID)) + " without a slice id")
			}
			if _, dup := byID[n.Motion.ID]; dup {
				return vterrors.VT13001("slice " + strconv.Itoa(n.Motion.ID) + " is sent by two motions")
			}
			childSlice = n.Motion.ID
			byID[childSlice] = &Slice{
				ID:     childSlice,
				Parent: it.slice,
				Motion: n.ID,
				Root:   n.Child(),
				Locus:  n.Motion.SenderLocus,
			}
		}
		for _, in := range n.Inputs() {
			queue.PushBack(sliceItem{id: in, slice: childSlice})
		}
	}

	for _, s := range byID {
		p.Slices = append(p.Slices, s)
	}
	sort.Slice(p.Slices, func(i, j int) bool { return p.Slices[i].ID < p.Slices[j].ID })
	return nil
}

// Slice returns the slice with the given id.
func (p *Plan) Slice(id int) *Slice {
	i := sort.Search(len(p.Slices), func(i int) bool { return p.Slices[i].ID >= id })
	if i < len(p.Slices) && p.Slices[i].ID == id {
		return p.Slices[i]
	}
	return nil
}
