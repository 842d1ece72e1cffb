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
	"fmt"
	"strings"

	"github.com/xlab/treeprint"

	"segplan.io/segplan/go/vt/sqlast"
)

// ToTree renders the plan for explain output. Subplans follow the main
// plan.
func ToTree(p *Plan) string {
	var sb strings.Builder
	if p.Root != InvalidNodeID {
		sb.WriteString(asTree(p, p.Root, nil, map[NodeID]bool{}).String())
	}
	for i, sp := range p.SubPlans {
		fmt.Fprintf(&sb, "SubPlan %d\n", i+1)
		sb.WriteString(asTree(p, sp, nil, map[NodeID]bool{}).String())
	}
	return sb.String()
}

func asTree(p *Plan, id NodeID, root treeprint.Tree, onPath map[NodeID]bool) treeprint.Tree {
	txt := "<cycle>"
	n, err := p.Node(id)
	switch {
	case err != nil:
		txt = "<dangling " + fmt.Sprint(id) + ">"
	case !onPath[id]:
		txt = Describe(n)
	}
	var branch treeprint.Tree
	if root == nil {
		branch = treeprint.NewWithRoot(txt)
	} else {
		branch = root.AddBranch(txt)
	}
	if err != nil || onPath[id] {
		return branch
	}
	onPath[id] = true
	for _, child := range n.Children {
		asTree(p, child, branch, onPath)
	}
	for _, ip := range n.InitPlans {
		asTree(p, ip, branch.AddBranch("InitPlan"), onPath)
	}
	delete(onPath, id)
	return branch
}

// Describe returns a one line description of n.
func Describe(n *Node) string {
	var details []string
	if n.Table != nil {
		tbl := n.Table.Name
		if n.Alias != "" && n.Alias != n.Table.Name {
			tbl += " " + n.Alias
		}
		details = append(details, tbl)
	}
	if m := n.Motion; m != nil {
		details = append(details, fmt.Sprintf("%s slice%d", m.Type, m.ID))
		if len(m.HashExprs) > 0 {
			details = append(details, "hash: "+sqlast.String(m.HashExprs))
		}
	}
	if s := n.Share; s != nil && s.ID >= 0 {
		d := fmt.Sprintf("share%d %s", s.ID, s.Role)
		if s.CrossSlice {
			d += " cross-slice"
			if s.DriverSlice >= 0 {
				d += fmt.Sprintf(" driver=slice%d", s.DriverSlice)
			}
		}
		if s.Placeholder != nil {
			d += " as " + s.Placeholder.Name
		}
		details = append(details, d)
	}
	if n.SetParam > 0 {
		details = append(details, fmt.Sprintf("sets $%d", n.SetParam))
	}
	if n.Kind.IsJoin() && n.PrefetchInner {
		details = append(details, "prefetch inner")
	}
	if n.Kind == MergeJoin && n.UniqueOuter {
		details = append(details, "unique outer")
	}
	if len(n.Rows) > 0 {
		details = append(details, fmt.Sprintf("rows: %d", len(n.Rows)))
	}
	if n.JoinQual != nil {
		details = append(details, "cond: "+sqlast.String(n.JoinQual))
	}
	if n.Filter != nil {
		details = append(details, "filter: "+sqlast.String(n.Filter))
	}

	txt := n.Kind.String()
	if n.PlanNodeID > 0 {
		txt = fmt.Sprintf("%d: %s", n.PlanNodeID, txt)
	}
	if len(details) == 0 {
		return txt
	}
	return txt + " (" + strings.Join(details, ", ") + ")"
}
