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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/planner/catalog"
	"segplan.io/segplan/go/vt/planner/plan"
	"segplan.io/segplan/go/vt/planner/seghash"
	"segplan.io/segplan/go/vt/sqlast"
	"segplan.io/segplan/go/vt/vterrors"
	vtrpcpb "segplan.io/segplan/go/vt/vtrpc"
)

func hashTable(name string, keys ...string) *catalog.Table {
	return &catalog.Table{
		Name: name,
		Columns: []*catalog.Column{
			{Name: "x", Type: sqltypes.Int32},
			{Name: "y", Type: sqltypes.Int64},
			{Name: "name", Type: sqltypes.Text},
		},
		Distribution: catalog.Distribution{Policy: catalog.PolicyPartitioned, Keys: keys, NumSegments: 12},
	}
}

func mustParse(t testing.TB, sql string, table *catalog.Table) sqlast.Expr {
	t.Helper()
	e, err := sqlast.ParseExpr(sql)
	require.NoError(t, err)
	sqlast.VisitColumns(e, func(col *sqlast.ColName, _ int) bool {
		if c, _ := table.FindColumn(col.Name); c != nil {
			col.Type = c.Type
		} else if col.Name == SegmentIDColumn {
			col.Type = sqltypes.Int32
		}
		return true
	})
	return e
}

// gatherScan builds Gather <- SeqScan(table, filter) and returns the plan
// and the scan's slice.
func gatherScan(t *testing.T, table *catalog.Table, filter string) (*plan.Plan, int) {
	p := plan.New(12)
	var f sqlast.Expr
	if filter != "" {
		f = mustParse(t, filter, table)
	}
	scan := p.NewScan(plan.SeqScan, table, "", f)
	p.Root = p.NewMotion(plan.MotionGather, scan)
	return p, p.MustNode(p.Root).Motion.ID
}

func segmentOf(t *testing.T, table *catalog.Table, vals ...sqltypes.Value) int {
	h, err := seghash.New(table.Distribution.HashFunc, table.Distribution.NumSegments)
	require.NoError(t, err)
	return h.Segment(vals)
}

func TestScenarioSegmentIDDisjunction(t *testing.T) {
	p, slice := gatherScan(t, hashTable("t", "x"), "segment_id = 3 OR segment_id = 7")
	require.NoError(t, AssignDirectDispatch(context.Background(), p, DefaultConfig()))

	assert.Nil(t, p.Slice(0).Dispatch)
	d := p.Slice(slice).Dispatch
	require.NotNil(t, d)
	assert.True(t, d.Narrowed)
	assert.Equal(t, []int{3, 7}, d.Segments)
}

func TestScenarioContradiction(t *testing.T) {
	table := hashTable("t", "x")
	p, slice := gatherScan(t, table, "x = 5 AND x = 10")

	require.NoError(t, plan.BuildSlices(p))
	calc := NewCalculator(p, DefaultConfig())
	info, err := calc.Compute(p.Slice(0).Root)
	require.NoError(t, err)
	assert.Equal(t, "all", info.String(), "the motion hides the scan from the root slice")

	require.NoError(t, AssignDirectDispatch(context.Background(), p, DefaultConfig()))
	assert.Equal(t, []int{0}, p.Slice(slice).Dispatch.Segments)
	assert.True(t, p.Slice(slice).Dispatch.Narrowed)

	cfg := DefaultConfig()
	cfg.EmptySeed = 13
	require.NoError(t, AssignDirectDispatch(context.Background(), p, cfg))
	assert.Equal(t, []int{1}, p.Slice(slice).Dispatch.Segments)
}

func TestScanNarrowing(t *testing.T) {
	table := hashTable("t", "x")
	two := hashTable("t2", "x", "name")
	seg5 := segmentOf(t, table, sqltypes.NewInt32(5))
	seg6 := segmentOf(t, table, sqltypes.NewInt32(6))
	segNull := segmentOf(t, table, sqltypes.NULL)

	tests := []struct {
		table  *catalog.Table
		filter string
		want   Info
	}{
		{table, "", Unnarrowed()},
		{table, "x = 5", NarrowedTo(seg5)},
		{table, "t.x = 5", NarrowedTo(seg5)},
		{table, "x = 5 and y = 7", NarrowedTo(seg5)},
		{table, "x = 5 or x = 6", NarrowedTo(seg5, seg6)},
		{table, "x in (5, 6)", NarrowedTo(seg5, seg6)},
		{table, "x is null", NarrowedTo(segNull)},
		{table, "x = 5 or y = 7", Unnarrowed()},
		{table, "x > 5", Unnarrowed()},
		{table, "y = 5", Unnarrowed()},
		{table, "x = 5 and segment_id = 3", NarrowedTo(intersectSeg(seg5, 3)...)},
		{table, fmt.Sprintf("x = 5 and segment_id = %d", seg5), NarrowedTo(seg5)},
		{table, "segment_id = 99", NarrowedTo()},
		{table, "x = 5000000000", NarrowedTo()},
		{two, "x = 5 and name = 'a'", NarrowedTo(segmentOf(t, two, sqltypes.NewInt32(5), sqltypes.NewText("a")))},
		{two, "x = 5", Unnarrowed()},
	}
	for _, tc := range tests {
		t.Run(tc.table.Name+"/"+tc.filter, func(t *testing.T) {
			p, slice := gatherScan(t, tc.table, tc.filter)
			require.NoError(t, plan.BuildSlices(p))
			got, err := NewCalculator(p, DefaultConfig()).Compute(p.Slice(slice).Root)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func intersectSeg(seg, other int) []int {
	if seg == other {
		return []int{seg}
	}
	return nil
}

func TestPolicies(t *testing.T) {
	random := hashTable("r")
	random.Distribution.Policy = catalog.PolicyRandom
	replicated := hashTable("rep")
	replicated.Distribution.Policy = catalog.PolicyReplicated

	for _, tc := range []struct {
		table  *catalog.Table
		filter string
		want   Info
	}{
		{random, "x = 5", Unnarrowed()},
		{random, "segment_id = 4", NarrowedTo(4)},
		{replicated, "segment_id = 4", Unnarrowed()},
	} {
		p, slice := gatherScan(t, tc.table, tc.filter)
		require.NoError(t, plan.BuildSlices(p))
		got, err := NewCalculator(p, DefaultConfig()).Compute(p.Slice(slice).Root)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.table.Name)
	}
}

func TestCombinationCap(t *testing.T) {
	table := hashTable("t", "x", "y")
	filter := "x in (1, 2, 3) and y in (1, 2)"

	p, slice := gatherScan(t, table, filter)
	require.NoError(t, plan.BuildSlices(p))
	got, err := NewCalculator(p, DefaultConfig()).Compute(p.Slice(slice).Root)
	require.NoError(t, err)
	assert.True(t, got.Narrowed)
	assert.LessOrEqual(t, len(got.Segments), 6)

	cfg := DefaultConfig()
	cfg.MaxCombinations = 5
	got, err = NewCalculator(p, cfg).Compute(p.Slice(slice).Root)
	require.NoError(t, err)
	assert.Equal(t, Unnarrowed(), got)
}

func TestOperatorPolicy(t *testing.T) {
	table := hashTable("t", "x")
	seg5 := segmentOf(t, table, sqltypes.NewInt32(5))
	seg6 := segmentOf(t, table, sqltypes.NewInt32(6))

	p := plan.New(12)
	left := p.NewScan(plan.SeqScan, table, "a", mustParse(t, "a.x = 5", table))
	right := p.NewScan(plan.SeqScan, table, "b", mustParse(t, "b.x = 6", table))
	join := p.NewJoin(plan.HashJoin, left, p.NewUnary(plan.Hash, right), nil)
	agg := p.NewUnary(plan.Agg, p.NewUnary(plan.Sort, join))
	p.Root = p.NewMotion(plan.MotionGather, agg)
	require.NoError(t, plan.BuildSlices(p))

	calc := NewCalculator(p, DefaultConfig())
	got, err := calc.Compute(agg)
	require.NoError(t, err)
	assert.Equal(t, NarrowedTo(seg5, seg6), got)

	for _, tc := range []struct {
		kind plan.Kind
		want Info
	}{
		{plan.TidScan, Unnarrowed()},
		{plan.FunctionScan, Unnarrowed()},
		{plan.SampleScan, Unnarrowed()},
		{plan.ValuesScan, Unknown()},
	} {
		id := p.Add(&plan.Node{Kind: tc.kind, Table: table})
		got, err := calc.Compute(id)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.kind.String())
	}

	// a motion input is unnarrowed for the receiving slice
	moved := p.NewMotion(plan.MotionRedistribute, left)
	got, err = calc.Compute(p.NewJoin(plan.NestLoop, moved, right, nil))
	require.NoError(t, err)
	assert.Equal(t, Unnarrowed(), got)

	// values on one side do not widen the other
	got, err = calc.Compute(p.NewNary(plan.Append, p.NewValuesScan(nil), left))
	require.NoError(t, err)
	assert.Equal(t, NarrowedTo(seg5), got)

	consumer := p.Add(&plan.Node{Kind: plan.ShareInputScan, Share: &plan.ShareInfo{ID: 0, Role: plan.ShareConsumer}})
	got, err = calc.Compute(consumer)
	require.NoError(t, err)
	assert.Equal(t, Unnarrowed(), got)
}

func TestEveryKindHasAPolicy(t *testing.T) {
	table := hashTable("t", "x")
	for _, k := range plan.Kinds() {
		p := plan.New(12)
		n := &plan.Node{Kind: k, Table: table}
		if k != plan.ValuesScan && !k.IsScan() && k != plan.Insert && k != plan.Result {
			n.Children = []plan.NodeID{p.NewValuesScan(nil)}
			if k.IsJoin() {
				n.Children = append(n.Children, p.NewValuesScan(nil))
			}
		}
		_, err := NewCalculator(p, DefaultConfig()).Compute(p.Add(n))
		assert.NoError(t, err, k.String())
	}
	p := plan.New(12)
	_, err := NewCalculator(p, DefaultConfig()).Compute(p.Add(&plan.Node{Kind: plan.Kind(100)}))
	assert.Equal(t, vtrpcpb.Code_INTERNAL, vterrors.Code(err))

	_, err = NewCalculator(p, DefaultConfig()).Compute(plan.NodeID(55))
	assert.ErrorContains(t, err, "dangling")
}

func TestInsert(t *testing.T) {
	table := hashTable("t", "x")
	row := func(x int32) []sqltypes.Value {
		return []sqltypes.Value{sqltypes.NewInt32(x), sqltypes.NewInt64(1), sqltypes.NewText("n")}
	}
	p := plan.New(12)
	p.Root = p.NewInsert(table, [][]sqltypes.Value{row(5)})
	p.RootLocus = plan.LocusSegments
	require.NoError(t, AssignDirectDispatch(context.Background(), p, DefaultConfig()))
	assert.Equal(t, []int{segmentOf(t, table, sqltypes.NewInt32(5))}, p.Slice(0).Dispatch.Segments)

	calc := NewCalculator(p, DefaultConfig())
	got, err := calc.Compute(p.NewInsert(table, [][]sqltypes.Value{{sqltypes.NewInt32(5)}, {}}))
	require.Error(t, err)
	assert.Equal(t, Info{}, got)

	replicated := hashTable("rep")
	replicated.Distribution.Policy = catalog.PolicyReplicated
	got, err = calc.Compute(p.NewInsert(replicated, [][]sqltypes.Value{row(5)}))
	require.NoError(t, err)
	assert.Equal(t, Unnarrowed(), got)
}

func TestDisabled(t *testing.T) {
	p, slice := gatherScan(t, hashTable("t", "x"), "segment_id = 3")
	cfg := DefaultConfig()
	cfg.Enabled = false
	require.NoError(t, AssignDirectDispatch(context.Background(), p, cfg))
	assert.False(t, p.Slice(slice).Dispatch.Narrowed)
}
