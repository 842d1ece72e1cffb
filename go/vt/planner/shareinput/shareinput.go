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

// Package shareinput turns a plan whose shared subtrees are reachable from
// several ShareInputScans into a tree: one producer per shared subtree
// keeps it as a child, every other reference becomes a childless consumer
// reading the producer's output.
package shareinput

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"segplan.io/segplan/go/trace"
	"segplan.io/segplan/go/vt/log"
	"segplan.io/segplan/go/vt/planner/plan"
	"segplan.io/segplan/go/vt/sqlast"
	"segplan.io/segplan/go/vt/vterrors"
)

// Share is a shared subplan after linearization.
type Share struct {
	ID       int
	Producer plan.NodeID
	// Consumers are in executor start-up order.
	Consumers []plan.NodeID
	// Slices are the slices referencing the share, ascending.
	Slices     []int
	CrossSlice bool
}

// References returns the producer followed by the consumers.
func (s *Share) References() []plan.NodeID {
	return append([]plan.NodeID{s.Producer}, s.Consumers...)
}

// Registry maps share ids to shared subplans.
type Registry struct {
	shares    []*Share
	bySubtree map[plan.NodeID]int
}

func newRegistry() *Registry {
	return &Registry{bySubtree: make(map[plan.NodeID]int)}
}

// Shares returns every share in id order.
func (r *Registry) Shares() []*Share {
	return r.shares
}

// Share returns the share with the given id, or nil.
func (r *Registry) Share(id int) *Share {
	if id < 0 || id >= len(r.shares) {
		return nil
	}
	return r.shares[id]
}

// Producer returns the producer of share id.
func (r *Registry) Producer(id int) (plan.NodeID, bool) {
	s := r.Share(id)
	if s == nil {
		return plan.InvalidNodeID, false
	}
	return s.Producer, true
}

type linearizer struct {
	p       *plan.Plan
	reg     *Registry
	visited map[plan.NodeID]bool
	// motions maps a slice id to the Motion sending its rows.
	motions map[int]*plan.Node
}

// Linearize assigns share ids and producer/consumer roles, marks shares
// referenced from more than one slice, moves every slice referencing a
// share used on the coordinator to the coordinator, and describes each
// reference with a placeholder. The plan is a tree afterwards.
func Linearize(ctx context.Context, p *plan.Plan) (*Registry, error) {
	span, _ := trace.NewSpan(ctx, "shareinput.Linearize")
	defer span.Finish()

	l := &linearizer{
		p:       p,
		reg:     newRegistry(),
		visited: make(map[plan.NodeID]bool),
		motions: make(map[int]*plan.Node),
	}
	roots := append(append([]plan.NodeID{}, p.SubPlans...), p.Root)
	for _, r := range roots {
		if r == plan.InvalidNodeID {
			continue
		}
		if err := l.assignRoles(r); err != nil {
			return nil, err
		}
	}
	for _, r := range roots {
		if r == plan.InvalidNodeID {
			continue
		}
		if err := l.markSlices(r, 0); err != nil {
			return nil, err
		}
	}
	l.moveToCoordinator()
	l.markCrossSlice()
	l.describe()

	span.Annotate("shares", len(l.reg.shares))
	if err := plan.CheckTree(p); err != nil {
		return nil, err
	}
	return l.reg, nil
}

// startupOrder lists n's inputs in the order the executor starts them.
func startupOrder(n *plan.Node) []plan.NodeID {
	var first []plan.NodeID
	switch n.Kind {
	case plan.HashJoin:
		first = []plan.NodeID{n.Inner(), n.Outer()}
	case plan.NestLoop:
		if n.PrefetchInner {
			first = []plan.NodeID{n.Inner(), n.Outer()}
		}
	case plan.MergeJoin:
		if !n.UniqueOuter {
			first = []plan.NodeID{n.Inner(), n.Outer()}
		}
	}
	if first == nil || len(n.Children) != 2 {
		return n.Inputs()
	}
	return append(first, n.InitPlans...)
}

// assignRoles walks the plan in start-up order. The first ShareInputScan
// reaching a subtree produces it; later ones consume it and drop their
// child.
func (l *linearizer) assignRoles(id plan.NodeID) error {
	n, err := l.p.Node(id)
	if err != nil {
		return err
	}
	if l.visited[id] {
		return vterrors.VT13001(fmt.Sprintf("plan node %d (%s) is reachable from more than one parent", id, n.Kind))
	}
	l.visited[id] = true

	if n.Kind == plan.ShareInputScan {
		if len(n.Children) != 1 {
			return vterrors.VT13001(fmt.Sprintf("share input scan %d has %d children before linearization", id, len(n.Children)))
		}
		child := n.Children[0]
		if sid, ok := l.reg.bySubtree[child]; ok {
			n.Share.ID = sid
			n.Share.Role = plan.ShareConsumer
			n.Children = nil
			s := l.reg.shares[sid]
			s.Consumers = append(s.Consumers, id)
			return nil
		}
		sid := len(l.reg.shares)
		l.reg.bySubtree[child] = sid
		l.reg.shares = append(l.reg.shares, &Share{ID: sid, Producer: id})
		n.Share.ID = sid
		n.Share.Role = plan.ShareProducer
	}

	for _, in := range startupOrder(n) {
		if err := l.assignRoles(in); err != nil {
			return err
		}
	}
	return nil
}

// markSlices records the slice of every ShareInputScan. slice is the
// slice n runs in; a Motion's inputs run in the slice it receives from.
func (l *linearizer) markSlices(id plan.NodeID, slice int) error {
	n, err := l.p.Node(id)
	if err != nil {
		return err
	}
	switch n.Kind {
	case plan.Motion:
		if n.Motion == nil {
			return vterrors.VT13001("motion node " + strconv.Itoa(int(id)) + " without motion info")
		}
		if prev, dup := l.motions[n.Motion.ID]; dup && prev != n {
			return vterrors.VT13001("slice " + strconv.Itoa(n.Motion.ID) + " is sent by two motions")
		}
		l.motions[n.Motion.ID] = n
		slice = n.Motion.ID
	case plan.ShareInputScan:
		n.Share.Slice = slice
	}
	for _, in := range n.Inputs() {
		if err := l.markSlices(in, slice); err != nil {
			return err
		}
	}
	return nil
}

func (l *linearizer) locus(slice int) plan.Locus {
	if m, ok := l.motions[slice]; ok {
		return m.Motion.SenderLocus
	}
	return l.p.RootLocus
}

func (l *linearizer) setLocus(slice int, locus plan.Locus) {
	if m, ok := l.motions[slice]; ok {
		m.Motion.SenderLocus = locus
		return
	}
	l.p.RootLocus = locus
}

// moveToCoordinator runs every slice referencing a share on the
// coordinator as soon as one of them does. Moving a slice may pull in
// further shares, so it repeats until nothing changes.
func (l *linearizer) moveToCoordinator() {
	for changed := true; changed; {
		changed = false
		for _, s := range l.reg.shares {
			refs := s.References()
			onCoordinator := false
			for _, ref := range refs {
				if l.locus(l.p.MustNode(ref).Share.Slice) == plan.LocusCoordinator {
					onCoordinator = true
					break
				}
			}
			if !onCoordinator {
				continue
			}
			for _, ref := range refs {
				slice := l.p.MustNode(ref).Share.Slice
				if l.locus(slice) != plan.LocusCoordinator {
					log.DebugS("moving slice to the coordinator", "slice", slice, "share", s.ID)
					l.setLocus(slice, plan.LocusCoordinator)
					changed = true
				}
			}
		}
	}
}

func (l *linearizer) markCrossSlice() {
	for _, s := range l.reg.shares {
		seen := make(map[int]bool)
		for _, ref := range s.References() {
			seen[l.p.MustNode(ref).Share.Slice] = true
		}
		s.Slices = s.Slices[:0]
		for slice := range seen {
			s.Slices = append(s.Slices, slice)
		}
		sort.Ints(s.Slices)
		s.CrossSlice = len(s.Slices) > 1

		producer := l.p.MustNode(s.Producer).Share
		producer.CrossSlice = s.CrossSlice
		producer.DriverSlice = producer.Slice
		for _, c := range s.Consumers {
			consumer := l.p.MustNode(c).Share
			consumer.CrossSlice = s.CrossSlice
			consumer.DriverSlice = -1
			if consumer.Slice != producer.Slice {
				consumer.DriverSlice = consumer.Slice
			}
		}
		if s.CrossSlice {
			log.DebugS("cross-slice share", "share", s.ID, "slices", fmt.Sprint(s.Slices))
		}
	}
}

// describe gives every reference a placeholder named after the share and
// the reference's position, and points its target list at it.
func (l *linearizer) describe() {
	for _, s := range l.reg.shares {
		cols := l.p.OutputColumns(s.Producer)
		for k, ref := range s.References() {
			n := l.p.MustNode(ref)
			name := fmt.Sprintf("share%d_ref%d", s.ID, k+1)
			n.Share.Placeholder = &plan.Placeholder{Name: name, Columns: append([]plan.Column(nil), cols...)}
			n.TargetList = make([]*plan.TargetEntry, 0, len(cols))
			for _, c := range cols {
				n.TargetList = append(n.TargetList, &plan.TargetEntry{Name: c.Name, Expr: sqlast.NewColName(name, c.Name, c.Type)})
			}
		}
	}
}
