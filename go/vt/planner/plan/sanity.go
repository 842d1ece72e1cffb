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

	"segplan.io/segplan/go/vt/vterrors"
)

// CheckMotions verifies the motion layout of a sliced plan: no Motion sends
// straight into another Motion, every gather is received by a coordinator
// slice, and no join reads Motions on both sides unless it prefetches its
// inner side. BuildSlices must have run.
func CheckMotions(p *Plan) error {
	if p.sliceOf == nil {
		return vterrors.VT13001("motion check before slicing")
	}
	c := &motionChecker{p: p, done: make(map[NodeID]bool)}
	for _, r := range p.Roots() {
		if _, err := c.walk(r); err != nil {
			return err
		}
	}
	return nil
}

type motionChecker struct {
	p *Plan
	// done maps a checked node to whether its subtree holds a Motion.
	done map[NodeID]bool
}

func (c *motionChecker) walk(id NodeID) (bool, error) {
	if moves, ok := c.done[id]; ok {
		return moves, nil
	}
	n, err := c.p.Node(id)
	if err != nil {
		return false, err
	}
	if n.Kind == Motion {
		if err := c.checkMotion(n); err != nil {
			return false, err
		}
	}

	var moves bool
	if n.Kind.IsJoin() && len(n.Children) == 2 {
		outer, err := c.walk(n.Outer())
		if err != nil {
			return false, err
		}
		inner, err := c.walk(n.Inner())
		if err != nil {
			return false, err
		}
		if outer && inner && !n.PrefetchInner {
			return false, vterrors.VT13001(n.Kind.String() + " node " + strconv.Itoa(int(n.ID)) + " reads motions on both sides without prefetching its inner side")
		}
		moves = outer || inner
	} else {
		for _, child := range n.Children {
			sub, err := c.walk(child)
			if err != nil {
				return false, err
			}
			moves = moves || sub
		}
	}
	// init plans run to completion before the node starts
	for _, ip := range n.InitPlans {
		if _, err := c.walk(ip); err != nil {
			return false, err
		}
	}
	moves = moves || n.Kind == Motion
	c.done[id] = moves
	return moves, nil
}

func (c *motionChecker) checkMotion(n *Node) error {
	if child, err := c.p.Node(n.Child()); err == nil && child.Kind == Motion {
		return vterrors.VT13001("motion node " + strconv.Itoa(int(n.ID)) + " sends directly into motion node " + strconv.Itoa(int(child.ID)))
	}
	if n.Motion == nil || n.Motion.Type != MotionGather {
		return nil
	}
	receiver, ok := c.p.sliceOf[n.ID]
	if !ok {
		return vterrors.VT13001("motion node " + strconv.Itoa(int(n.ID)) + " is not in a slice")
	}
	if s := c.p.Slice(receiver); s == nil || s.Locus != LocusCoordinator {
		return vterrors.VT13001("gather motion node " + strconv.Itoa(int(n.ID)) + " does not feed a coordinator slice")
	}
	return nil
}
