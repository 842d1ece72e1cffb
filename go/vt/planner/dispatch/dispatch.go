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

package dispatch

import (
	"context"
	"strconv"
	"strings"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/trace"
	"segplan.io/segplan/go/vt/log"
	"segplan.io/segplan/go/vt/planner/catalog"
	"segplan.io/segplan/go/vt/planner/plan"
	"segplan.io/segplan/go/vt/planner/seghash"
	"segplan.io/segplan/go/vt/planner/valueset"
	"segplan.io/segplan/go/vt/sqlast"
	"segplan.io/segplan/go/vt/vterrors"
)

// SegmentIDColumn is the pseudo column holding the segment a row lives on.
const SegmentIDColumn = "segment_id"

// Config controls direct dispatch.
type Config struct {
	// Enabled turns narrowing on. When off every slice runs everywhere.
	Enabled bool
	// MaxCombinations caps the number of distribution key tuples pushed
	// through the hash for one scan. Above it the keys constrain nothing.
	MaxCombinations int
	// EmptySeed picks the segment of slices proven to return no rows.
	EmptySeed int
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{Enabled: true, MaxCombinations: 1024}
}

// Calculator computes dispatch info for fragments of one plan. Results are
// memoized per node.
type Calculator struct {
	cfg     Config
	plan    *plan.Plan
	memo    map[plan.NodeID]Info
	hashers map[*catalog.Table]*seghash.Hasher
}

// NewCalculator returns a Calculator over p.
func NewCalculator(p *plan.Plan, cfg Config) *Calculator {
	return &Calculator{
		cfg:     cfg,
		plan:    p,
		memo:    make(map[plan.NodeID]Info),
		hashers: make(map[*catalog.Table]*seghash.Hasher),
	}
}

// Compute returns the info of the fragment rooted at id. The walk stops
// at Motions, whose inputs belong to another slice.
func (c *Calculator) Compute(id plan.NodeID) (Info, error) {
	if info, ok := c.memo[id]; ok {
		return info, nil
	}
	n, err := c.plan.Node(id)
	if err != nil {
		return Info{}, err
	}
	info, err := c.compute(n)
	if err != nil {
		return Info{}, err
	}
	c.memo[id] = info
	return info, nil
}

func (c *Calculator) compute(n *plan.Node) (Info, error) {
	switch n.Kind {
	case plan.SeqScan, plan.IndexScan:
		return c.scanInfo(n)
	case plan.TidScan, plan.FunctionScan, plan.SampleScan:
		// no deterministic row to segment mapping
		return Unnarrowed(), nil
	case plan.ValuesScan:
		return Unknown(), nil
	case plan.Motion:
		// after redistribution any row can be on any segment
		return Unnarrowed(), nil
	case plan.Insert:
		return c.insertInfo(n)
	case plan.ShareInputScan:
		if len(n.Children) == 0 {
			// a detached consumer reads what the producer materialized
			return Unnarrowed(), nil
		}
		return c.mergeChildren(n)
	case plan.Result, plan.SubqueryScan, plan.Append, plan.Sequence,
		plan.NestLoop, plan.HashJoin, plan.MergeJoin, plan.Hash,
		plan.Agg, plan.WindowAgg, plan.Sort, plan.Unique, plan.Material, plan.Limit:
		return c.mergeChildren(n)
	}
	return Info{}, vterrors.VT13002(n.Kind.String())
}

func (c *Calculator) mergeChildren(n *plan.Node) (Info, error) {
	info := Unknown()
	for _, child := range n.Children {
		ci, err := c.Compute(child)
		if err != nil {
			return Info{}, err
		}
		info = info.Merge(ci)
	}
	return info, nil
}

func (c *Calculator) hasher(t *catalog.Table) (*seghash.Hasher, error) {
	if h, ok := c.hashers[t]; ok {
		return h, nil
	}
	h, err := seghash.New(t.Distribution.HashFunc, t.Distribution.NumSegments)
	if err != nil {
		return nil, err
	}
	c.hashers[t] = h
	return h, nil
}

func (c *Calculator) scanInfo(n *plan.Node) (Info, error) {
	t := n.Table
	if t == nil {
		return Info{}, vterrors.VT13001(n.Kind.String() + " node " + strconv.Itoa(int(n.ID)) + " without a table")
	}
	d := t.Distribution
	switch d.Policy {
	case catalog.PolicyPartitioned, catalog.PolicyRandom:
	default:
		return Unnarrowed(), nil
	}
	filter := unqualify(n.Filter, n.Alias, t.Name)

	candidates := segmentIDCandidates(filter, d.NumSegments)
	if d.Policy == catalog.PolicyPartitioned {
		keyed, err := c.keyCandidates(filter, t)
		if err != nil {
			return Info{}, err
		}
		candidates = intersect(candidates, keyed)
	}
	if candidates == nil || len(candidates) >= d.NumSegments {
		return Unnarrowed(), nil
	}
	segs := make([]int, 0, len(candidates))
	for s := range candidates {
		segs = append(segs, s)
	}
	return NarrowedTo(segs...), nil
}

// segmentIDCandidates returns the segments the filter allows through the
// segment id pseudo column, nil when it allows any.
func segmentIDCandidates(filter sqlast.Expr, numSegments int) map[int]bool {
	target := sqlast.NewColName("", SegmentIDColumn, sqltypes.Int32)
	vs := valueset.Evaluate(filter, target)
	if vs.IsAny() {
		return nil
	}
	out := make(map[int]bool)
	for _, v := range vs.Values() {
		i, err := v.ToInt64()
		if err != nil || i < 0 || i >= int64(numSegments) {
			continue
		}
		out[int(i)] = true
	}
	return out
}

// keyCandidates pushes every combination of the distribution key value
// sets through the table's hash. It returns nil when some key is
// unconstrained or the combinations exceed the configured cap.
func (c *Calculator) keyCandidates(filter sqlast.Expr, t *catalog.Table) (map[int]bool, error) {
	keys := t.KeyColumns()
	if len(keys) == 0 {
		return nil, nil
	}
	sets := make([][]sqltypes.Value, len(keys))
	combos := 1
	for i, col := range keys {
		vs := valueset.Evaluate(filter, sqlast.NewColName("", col.Name, col.Type))
		if vs.IsAny() {
			return nil, nil
		}
		if vs.IsEmpty() {
			return map[int]bool{}, nil
		}
		sets[i] = vs.Values()
		combos *= len(sets[i])
		if c.cfg.MaxCombinations > 0 && combos > c.cfg.MaxCombinations {
			return nil, nil
		}
	}

	h, err := c.hasher(t)
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool)
	tuple := make([]sqltypes.Value, len(keys))
	var walk func(i int)
	walk = func(i int) {
		if i == len(sets) {
			out[h.Segment(tuple)] = true
			return
		}
		for _, v := range sets[i] {
			tuple[i] = v
			walk(i + 1)
		}
	}
	walk(0)
	return out, nil
}

// insertInfo sends constant rows straight to the segments their keys hash
// to.
func (c *Calculator) insertInfo(n *plan.Node) (Info, error) {
	t := n.Table
	if t == nil {
		return Info{}, vterrors.VT13001("insert node " + strconv.Itoa(int(n.ID)) + " without a table")
	}
	if len(n.Children) > 0 || len(n.Rows) == 0 || t.Distribution.Policy != catalog.PolicyPartitioned {
		return Unnarrowed(), nil
	}
	h, err := c.hasher(t)
	if err != nil {
		return Info{}, err
	}
	ordinals := make([]int, 0, len(t.Distribution.Keys))
	for _, k := range t.Distribution.Keys {
		_, idx := t.FindColumn(k)
		ordinals = append(ordinals, idx)
	}
	segs := make([]int, 0, len(n.Rows))
	tuple := make([]sqltypes.Value, len(ordinals))
	for _, row := range n.Rows {
		for i, idx := range ordinals {
			if idx < 0 || idx >= len(row) {
				return Info{}, vterrors.VT13001("insert row does not cover distribution key " + t.Distribution.Keys[i])
			}
			tuple[i] = row[idx]
		}
		segs = append(segs, h.Segment(tuple))
	}
	return NarrowedTo(segs...), nil
}

// unqualify strips the scan's own qualifier from level 0 columns so they
// match unqualified targets.
func unqualify(filter sqlast.Expr, names ...string) sqlast.Expr {
	if filter == nil {
		return nil
	}
	out := sqlast.CloneExpr(filter)
	sqlast.VisitColumns(out, func(col *sqlast.ColName, depth int) bool {
		if col.Level != depth {
			return true
		}
		for _, name := range names {
			if name != "" && strings.EqualFold(col.Qualifier, name) {
				col.Qualifier = ""
			}
		}
		return true
	})
	return out
}

func intersect(a, b map[int]bool) map[int]bool {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	out := make(map[int]bool)
	for s := range a {
		if b[s] {
			out[s] = true
		}
	}
	return out
}

// AssignDirectDispatch splits p into slices and stores each segment slice's
// dispatch decision. Coordinator slices run once and get none.
func AssignDirectDispatch(ctx context.Context, p *plan.Plan, cfg Config) error {
	span, _ := trace.NewSpan(ctx, "dispatch.AssignDirectDispatch")
	defer span.Finish()

	if err := plan.BuildSlices(p); err != nil {
		return err
	}
	calc := NewCalculator(p, cfg)
	for _, s := range p.Slices {
		if s.Locus == plan.LocusCoordinator {
			s.Dispatch = nil
			continue
		}
		if !cfg.Enabled || s.Root == plan.InvalidNodeID {
			s.Dispatch = &plan.Dispatch{}
			continue
		}
		info, err := calc.Compute(s.Root)
		if err != nil {
			return err
		}
		s.Dispatch = info.Finalize(p.NumSegments, cfg.EmptySeed)
		if s.Dispatch.Narrowed {
			log.DebugS("narrowed slice dispatch", "slice", s.ID, "info", info.String(), "segments", s.Dispatch.String())
		}
	}
	span.Annotate("slices", len(p.Slices))
	return nil
}
