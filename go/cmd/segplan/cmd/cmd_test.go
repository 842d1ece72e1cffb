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

package cmd

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/planner/seghash"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := Main()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestExplain(t *testing.T) {
	out, err := run(t, "explain", "--plan", "testdata/plan.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "select customers.name from customers left anti semi join (not in)")
	assert.Contains(t, out, "notin_subquery_1")
	assert.Contains(t, out, "LIMIT or OFFSET in subquery")
	assert.Contains(t, out, "1: Motion (gather slice2)")
	assert.Contains(t, out, "ShareInputScan (share0 producer cross-slice driver=slice1 as share0_ref1)")
	assert.Contains(t, out, "ShareInputScan (share0 consumer cross-slice driver=slice2 as share0_ref2)")
	assert.Contains(t, out, "redistribute")
	assert.Contains(t, out, "coordinator")

	h, err := seghash.New("", 4)
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("{%d}", h.Segment([]sqltypes.Value{sqltypes.NewInt32(7)})))
}

func TestExplainWithSettings(t *testing.T) {
	out, err := run(t, "explain", "--plan", "testdata/plan.yaml", "--config", "testdata/settings.yaml")
	require.NoError(t, err)
	assert.NotContains(t, out, "notin_subquery_1")
	assert.NotContains(t, out, "{")

	out, err = run(t, "explain", "--plan", "testdata/plan.yaml", "--config", "testdata/settings.yaml", "--enable-notin-antijoin")
	require.NoError(t, err)
	assert.Contains(t, out, "notin_subquery_1")
}

func TestExplainMetrics(t *testing.T) {
	out, err := run(t, "explain", "--plan", "testdata/plan.yaml")
	require.NoError(t, err)
	assert.NotContains(t, out, "segplan_planner_")

	out, err = run(t, "explain", "--plan", "testdata/plan.yaml", "--metrics", "--tracer", "opentracing")
	require.NoError(t, err)
	assert.Contains(t, out, "Metrics")
	assert.Contains(t, out, "segplan_planner_dispatch_slices")
	assert.Contains(t, out, "decision=narrowed")
	assert.Contains(t, out, "segplan_planner_shared_subplans")
	assert.Contains(t, out, "placement=cross_slice")
	assert.Contains(t, out, "segplan_planner_decorrelate_attempts")
	assert.Contains(t, out, "result=converted")
	assert.Contains(t, out, "result=kept")
	assert.Contains(t, out, "segplan_planner_slice_segments")
	assert.Contains(t, out, "slice=1")
	assert.Contains(t, out, "segplan_planner_plan_slices")
}

func TestExplainErrors(t *testing.T) {
	_, err := run(t, "explain")
	assert.Error(t, err)

	_, err = run(t, "explain", "--plan", "testdata/missing.yaml")
	assert.Error(t, err)

	_, err = run(t, "explain", "--plan", "testdata/plan.yaml", "--max-dispatch-combinations", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VT09001")

	_, err = run(t, "explain", "--plan", "testdata/settings.yaml")
	assert.Error(t, err)
}

func TestRewrite(t *testing.T) {
	out, err := run(t, "rewrite", "--plan", "testdata/plan.yaml", "--query",
		"select customers.name from customers where exists (select 1 from orders where orders.customer = customers.id)")
	require.NoError(t, err)
	assert.Contains(t, out, "semi join")
	assert.Contains(t, out, "exists_subquery_1")
	assert.Contains(t, out, "converted")

	_, err = run(t, "rewrite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no query to rewrite")
}

func TestHash(t *testing.T) {
	h, err := seghash.New("", 4)
	require.NoError(t, err)

	out, err := run(t, "hash", "--plan", "testdata/plan.yaml", "--table", "orders", "--values", "7")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("segment %d\n", h.Segment([]sqltypes.Value{sqltypes.NewInt32(7)})), out)

	out, err = run(t, "hash", "--plan", "testdata/plan.yaml", "--table", "orders", "--values", "null")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("segment %d\n", h.Segment([]sqltypes.Value{sqltypes.NULL})), out)

	tests := []struct {
		args []string
		msg  string
	}{
		{[]string{"--table", "customers", "--values", "1"}, "not partitioned"},
		{[]string{"--table", "orders", "--values", "1,2"}, "got 2 values"},
		{[]string{"--table", "orders", "--values", "x"}, "key column id"},
		{[]string{"--table", "nope", "--values", "1"}, "does not exist"},
	}
	for _, tc := range tests {
		_, err := run(t, append([]string{"hash", "--plan", "testdata/plan.yaml"}, tc.args...)...)
		require.Error(t, err, tc.msg)
		assert.Contains(t, err.Error(), tc.msg)
	}
}
