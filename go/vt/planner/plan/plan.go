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

// Package plan holds the physical plan the refinement passes work on.
//
// Nodes live in an arena owned by a Plan and refer to each other by NodeID,
// the node's slot index. Two parents pointing at the same NodeID share that
// subtree; sharing is detected by comparing ids, never by structure.
package plan

import (
	"strconv"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/planner/catalog"
	"segplan.io/segplan/go/vt/sqlast"
	"segplan.io/segplan/go/vt/vterrors"
)

// NodeID is a node's slot in the plan arena.
type NodeID int

// InvalidNodeID marks an absent node.
const InvalidNodeID NodeID = -1

// Kind is the operator implemented by a node. The set is closed: passes
// switch over every kind and a test pins the count.
type Kind int8

const (
	SeqScan Kind = iota
	IndexScan
	TidScan
	FunctionScan
	SampleScan
	ValuesScan
	Result
	SubqueryScan
	Append
	NestLoop
	HashJoin
	MergeJoin
	Hash
	Agg
	WindowAgg
	Sort
	Unique
	Material
	Limit
	Motion
	ShareInputScan
	Sequence
	Insert

	_NumKinds
)

var kindNames = [_NumKinds]string{
	SeqScan:        "SeqScan",
	IndexScan:      "IndexScan",
	TidScan:        "TidScan",
	FunctionScan:   "FunctionScan",
	SampleScan:     "SampleScan",
	ValuesScan:     "ValuesScan",
	Result:         "Result",
	SubqueryScan:   "SubqueryScan",
	Append:         "Append",
	NestLoop:       "NestLoop",
	HashJoin:       "HashJoin",
	MergeJoin:      "MergeJoin",
	Hash:           "Hash",
	Agg:            "Agg",
	WindowAgg:      "WindowAgg",
	Sort:           "Sort",
	Unique:         "Unique",
	Material:       "Material",
	Limit:          "Limit",
	Motion:         "Motion",
	ShareInputScan: "ShareInputScan",
	Sequence:       "Sequence",
	Insert:         "Insert",
}

func (k Kind) String() string {
	if k < 0 || k >= _NumKinds {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Kinds returns every operator kind.
func Kinds() []Kind {
	out := make([]Kind, _NumKinds)
	for k := range out {
		out[k] = Kind(k)
	}
	return out
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsScan reports whether k reads base rows and has no plan children.
func (k Kind) IsScan() bool {
	switch k {
	case SeqScan, IndexScan, TidScan, FunctionScan, SampleScan, ValuesScan:
		return true
	}
	return false
}

// IsJoin reports whether k joins an outer and an inner child.
func (k Kind) IsJoin() bool {
	return k == NestLoop || k == HashJoin || k == MergeJoin
}

// Locus is where a slice runs.
type Locus int8

const (
	// LocusSegments runs one worker per segment.
	LocusSegments Locus = iota
	// LocusCoordinator runs a single worker on the coordinator.
	LocusCoordinator
)

func (l Locus) String() string {
	if l == LocusCoordinator {
		return "coordinator"
	}
	return "segments"
}

// MotionType is how a Motion moves rows between slices.
type MotionType int8

const (
	MotionGather MotionType = iota
	MotionRedistribute
	MotionBroadcast
)

var motionTypeNames = map[MotionType]string{
	MotionGather:       "gather",
	MotionRedistribute: "redistribute",
	MotionBroadcast:    "broadcast",
}

func (t MotionType) String() string {
	return motionTypeNames[t]
}

// ParseMotionType returns the motion type with the given name.
func ParseMotionType(s string) (MotionType, bool) {
	for t, name := range motionTypeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// MotionInfo is carried by Motion nodes. The Motion's child runs in the
// sending slice identified by ID; the Motion itself runs in its parent's.
type MotionInfo struct {
	ID          int
	Type        MotionType
	SenderLocus Locus
	HashExprs   sqlast.Exprs
}

// ShareRole is a ShareInputScan's part in a shared subplan.
type ShareRole int8

const (
	ShareNone ShareRole = iota
	ShareProducer
	ShareConsumer
)

func (r ShareRole) String() string {
	switch r {
	case ShareProducer:
		return "producer"
	case ShareConsumer:
		return "consumer"
	}
	return "none"
}

// ShareInfo is carried by ShareInputScan nodes.
type ShareInfo struct {
	// ID is the share id, -1 until the plan is linearized.
	ID   int
	Role ShareRole
	// CrossSlice is set when references to the share live in more than one
	// slice, so the producer must materialize its output.
	CrossSlice bool
	// Slice is the slice this reference runs in.
	Slice int
	// DriverSlice is the slice that starts this reference: the producer's
	// own slice, or a cross-slice consumer's own slice. It is -1 for a
	// consumer running in its producer's slice.
	DriverSlice int
	// Placeholder describes the producer's output for explain.
	Placeholder *Placeholder
}

// Placeholder is a derived-table shaped stand-in for a producer's output.
type Placeholder struct {
	Name    string
	Columns []Column
}

// Column is a named, typed output column.
type Column struct {
	Name string
	Type sqltypes.Type
}

// TargetEntry is one output column of a node.
type TargetEntry struct {
	Name string
	Expr sqlast.Expr
}

// Node is a plan operator.
type Node struct {
	ID   NodeID
	Kind Kind

	// Children are the plan inputs. Joins keep the outer side at 0 and the
	// inner side at 1.
	Children []NodeID
	// InitPlans run once before the node produces rows.
	InitPlans []NodeID
	// SetParam is the parameter an init plan rooted at this node computes,
	// read by expressions as $SetParam. 0 for none.
	SetParam int

	TargetList []*TargetEntry
	// Filter is applied to every row the node produces.
	Filter sqlast.Expr
	// JoinQual is the join condition of join nodes.
	JoinQual sqlast.Expr

	// Table is the scanned table of scans and the target of Insert.
	Table *catalog.Table
	Alias string
	// Rows are the constant rows of ValuesScan and Insert.
	Rows [][]sqltypes.Value

	// PrefetchInner makes a NestLoop start its inner side first. On a
	// NestLoop or MergeJoin it also means the inner side is read to the end
	// before the first outer row.
	PrefetchInner bool
	// UniqueOuter makes a MergeJoin start its outer side first.
	UniqueOuter bool

	Motion *MotionInfo
	Share  *ShareInfo

	// PlanNodeID and ParentPlanNodeID are assigned by AssignPlanNodeIDs.
	PlanNodeID       int
	ParentPlanNodeID int
}

// Outer returns a join's outer child.
func (n *Node) Outer() NodeID {
	if len(n.Children) == 0 {
		return InvalidNodeID
	}
	return n.Children[0]
}

// Inner returns a join's inner child.
func (n *Node) Inner() NodeID {
	if len(n.Children) < 2 {
		return InvalidNodeID
	}
	return n.Children[1]
}

// Child returns the only child of a unary node.
func (n *Node) Child() NodeID {
	return n.Outer()
}

// Slice is a parallel stage of the plan bounded by Motions.
type Slice struct {
	ID int
	// Parent is the slice receiving this slice's rows, -1 for the root.
	Parent int
	// Motion is the Motion sending this slice's rows, InvalidNodeID for the
	// root slice.
	Motion NodeID
	// Root is the topmost node executed by the slice.
	Root     NodeID
	Locus    Locus
	Dispatch *Dispatch
}

// Dispatch is the set of segments a slice is started on.
type Dispatch struct {
	// Narrowed is false when the slice runs on every segment.
	Narrowed bool
	Segments []int
	// Empty marks a slice proven to return no rows, started on a single
	// segment only so that it still runs somewhere.
	Empty bool
}

func (d *Dispatch) String() string {
	if d == nil {
		return "-"
	}
	if !d.Narrowed {
		return "all"
	}
	out := "{"
	for i, s := range d.Segments {
		if i > 0 {
			out += ","
		}
		out += strconv.Itoa(s)
	}
	return out + "}"
}

// Plan is an arena of nodes plus the plan-level metadata.
type Plan struct {
	nodes []*Node

	Root NodeID
	// SubPlans are the roots of subplans referenced by expressions.
	SubPlans []NodeID
	// RootLocus is where the root slice runs.
	RootLocus   Locus
	NumSegments int
	// Slices is filled by BuildSlices; index equals slice id.
	Slices []*Slice

	nextMotionID int
	sliceOf      map[NodeID]int
}

// New returns an empty plan for a cluster of numSegments segments.
func New(numSegments int) *Plan {
	return &Plan{Root: InvalidNodeID, NumSegments: numSegments, RootLocus: LocusCoordinator}
}

// Add stores n in the arena and returns its id.
func (p *Plan) Add(n *Node) NodeID {
	n.ID = NodeID(len(p.nodes))
	if n.Kind == Motion {
		if n.Motion == nil {
			n.Motion = &MotionInfo{}
		}
		if n.Motion.ID == 0 {
			p.nextMotionID++
			n.Motion.ID = p.nextMotionID
		} else if n.Motion.ID > p.nextMotionID {
			p.nextMotionID = n.Motion.ID
		}
	}
	if n.Kind == ShareInputScan && n.Share == nil {
		n.Share = &ShareInfo{ID: -1, DriverSlice: -1}
	}
	p.nodes = append(p.nodes, n)
	return n.ID
}

// Len returns the number of nodes in the arena, reachable or not.
func (p *Plan) Len() int {
	return len(p.nodes)
}

// Node returns the node with the given id.
func (p *Plan) Node(id NodeID) (*Node, error) {
	if id < 0 || int(id) >= len(p.nodes) {
		return nil, vterrors.VT13001("dangling plan node id " + strconv.Itoa(int(id)))
	}
	return p.nodes[id], nil
}

// MustNode is Node for ids known to be valid.
func (p *Plan) MustNode(id NodeID) *Node {
	n, err := p.Node(id)
	if err != nil {
		panic(err)
	}
	return n
}

// SliceOf returns the slice a node runs in, as computed by the last
// BuildSlices call.
func (p *Plan) SliceOf(id NodeID) (int, bool) {
	s, ok := p.sliceOf[id]
	return s, ok
}

// OutputColumns describes a node's target list.
func (p *Plan) OutputColumns(id NodeID) []Column {
	n, err := p.Node(id)
	if err != nil {
		return nil
	}
	cols := make([]Column, 0, len(n.TargetList))
	for i, te := range n.TargetList {
		name := te.Name
		if name == "" {
			name = "col" + strconv.Itoa(i)
		}
		cols = append(cols, Column{Name: name, Type: sqlast.TypeOf(te.Expr)})
	}
	return cols
}
