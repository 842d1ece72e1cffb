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

package prometheusbackend

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segplan.io/segplan/go/stats"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := ""
			for _, lp := range m.GetLabel() {
				if key != "" {
					key += ","
				}
				key += lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			}
		}
	}
	return out
}

func TestPrometheusExport(t *testing.T) {
	reg := prometheus.NewRegistry()

	c := stats.NewCounter("PromTestPlansFinalized", "plans finalized")
	Init("segplan", reg)

	g := stats.NewGauge("PromTestLastSegments", "segments of the last plan")
	byOutcome := stats.NewCountersWithLabels("PromTestDispatchSlices", "slices by outcome", "Outcome")
	multi := stats.NewCountersWithMultiLabels("PromTestRewrites", "rewrites", []string{"Kind", "Result"})

	c.Add(2)
	g.Set(4)
	byOutcome.Add("narrowed", 3)
	multi.Add([]string{"not_in", "applied"}, 1)

	assert.Equal(t, map[string]float64{"": 2}, gather(t, reg, "segplan_prom_test_plans_finalized"))
	assert.Equal(t, map[string]float64{"": 4}, gather(t, reg, "segplan_prom_test_last_segments"))
	assert.Equal(t, map[string]float64{"outcome=narrowed": 3}, gather(t, reg, "segplan_prom_test_dispatch_slices"))
	assert.Equal(t, map[string]float64{"kind=not_in,result=applied": 1}, gather(t, reg, "segplan_prom_test_rewrites"))
}

func TestBuildPromName(t *testing.T) {
	be := &PromBackend{namespace: "segplan"}
	assert.Equal(t, "segplan_shared_subplans", be.buildPromName("SharedSubplans"))
	assert.Equal(t, "segplan_shared_subplans", be.buildPromName("segplan_SharedSubplans"))
}
