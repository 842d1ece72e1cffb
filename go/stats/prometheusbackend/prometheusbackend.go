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

// Package prometheusbackend exports stats variables as Prometheus metrics.
package prometheusbackend

import (
	"expvar"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"segplan.io/segplan/go/stats"
	"segplan.io/segplan/go/vt/log"
)

// PromBackend implements PullBackend using Prometheus as the backing metrics storage.
type PromBackend struct {
	namespace string
	reg       prometheus.Registerer
}

// Init exports every stats variable, past and future, to reg under the
// given namespace. A nil reg means prometheus.DefaultRegisterer.
func Init(namespace string, reg prometheus.Registerer) *PromBackend {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	be := &PromBackend{namespace: namespace, reg: reg}
	stats.Register(be.publishPrometheusMetric)
	return be
}

func (be *PromBackend) publishPrometheusMetric(name string, v expvar.Var) {
	switch st := v.(type) {
	case *stats.Counter:
		be.newMetric(st, name, prometheus.CounterValue, func() float64 { return float64(st.Get()) })
	case *stats.Gauge:
		be.newMetric(st, name, prometheus.GaugeValue, func() float64 { return float64(st.Get()) })
	case *stats.GaugesWithLabels:
		be.newCountersWithLabels(&st.CountersWithLabels, name, prometheus.GaugeValue)
	case *stats.CountersWithLabels:
		be.newCountersWithLabels(st, name, prometheus.CounterValue)
	case *stats.CountersWithMultiLabels:
		be.newCountersWithMultiLabels(st, name)
	default:
		log.WarnS("not exporting unsupported metric type to Prometheus", "type", st, "name", name)
	}
}

func (be *PromBackend) newMetric(v stats.Variable, name string, vt prometheus.ValueType, f func() float64) {
	be.register(name, &metricFuncCollector{
		f:    f,
		desc: prometheus.NewDesc(be.buildPromName(name), v.Help(), nil, nil),
		vt:   vt,
	})
}

func (be *PromBackend) newCountersWithLabels(c *stats.CountersWithLabels, name string, vt prometheus.ValueType) {
	be.register(name, &countersWithLabelsCollector{
		counters: c,
		desc: prometheus.NewDesc(
			be.buildPromName(name),
			c.Help(),
			[]string{normalizeMetric(c.LabelName())},
			nil),
		vt: vt,
	})
}

func (be *PromBackend) newCountersWithMultiLabels(cml *stats.CountersWithMultiLabels, name string) {
	be.register(name, &metricWithMultiLabelsCollector{
		cml: cml,
		desc: prometheus.NewDesc(
			be.buildPromName(name),
			cml.Help(),
			labelsToSnake(cml.Labels()),
			nil),
	})
}

func (be *PromBackend) register(name string, c prometheus.Collector) {
	if err := be.reg.Register(c); err != nil {
		log.WarnS("failed to register Prometheus collector", "name", name, "err", err)
	}
}

// buildPromName specifies the namespace as a prefix to the metric name
func (be *PromBackend) buildPromName(name string) string {
	s := strings.TrimPrefix(normalizeMetric(name), be.namespace+"_")
	return prometheus.BuildFQName("", be.namespace, s)
}

func labelsToSnake(labels []string) []string {
	output := make([]string, len(labels))
	for i, l := range labels {
		output[i] = normalizeMetric(l)
	}
	return output
}

func normalizeMetric(name string) string {
	return stats.GetSnakeName(name)
}
