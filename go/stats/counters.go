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

package stats

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Counter is an unlabeled monotonically increasing value.
type Counter struct {
	i    atomic.Int64
	help string
}

// NewCounter returns a new Counter, published if name is set.
func NewCounter(name string, help string) *Counter {
	v := &Counter{help: help}
	if name != "" {
		publish(name, v)
	}
	return v
}

// Add adds the provided value to the Counter.
func (v *Counter) Add(delta int64) {
	v.i.Add(delta)
}

// Reset resets the counter value to 0.
func (v *Counter) Reset() {
	v.i.Store(0)
}

// Get returns the value.
func (v *Counter) Get() int64 {
	return v.i.Load()
}

// String is the implementation of expvar.Var.
func (v *Counter) String() string {
	return strconv.FormatInt(v.i.Load(), 10)
}

// Help returns the help string.
func (v *Counter) Help() string {
	return v.help
}

// Gauge is an unlabeled metric whose values can go up/down.
type Gauge struct {
	Counter
}

// NewGauge creates a new Gauge and publishes it if name is set.
func NewGauge(name string, help string) *Gauge {
	v := &Gauge{Counter: Counter{help: help}}
	if name != "" {
		publish(name, v)
	}
	return v
}

// Set sets the value.
func (v *Gauge) Set(value int64) {
	v.Counter.i.Store(value)
}

// Counters is a map of named int64 values. It is the storage behind
// CountersWithLabels and GaugesWithLabels.
type Counters struct {
	// mu guards the map only; the values are updated atomically.
	mu     sync.RWMutex
	counts map[string]*int64
	help   string
}

// String implements expvar.Var. Keys are printed in sorted order.
func (c *Counters) String() string {
	counts := c.Counts()
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := bytes.NewBuffer(make([]byte, 0, 256))
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%q: %v", k, counts[k])
	}
	b.WriteByte('}')
	return b.String()
}

func (c *Counters) getValueAddr(name string) *int64 {
	c.mu.RLock()
	a, ok := c.counts[name]
	c.mu.RUnlock()
	if ok {
		return a
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// check again, another goroutine may have created it
	if a, ok = c.counts[name]; ok {
		return a
	}
	a = new(int64)
	c.counts[name] = a
	return a
}

// Add adds a value to a named counter.
func (c *Counters) Add(name string, value int64) {
	atomic.AddInt64(c.getValueAddr(name), value)
}

// ResetAll resets all counter values.
func (c *Counters) ResetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]*int64)
}

// Reset resets a specific counter value to 0.
func (c *Counters) Reset(name string) {
	atomic.StoreInt64(c.getValueAddr(name), 0)
}

// Counts returns a copy of the Counters' map.
func (c *Counters) Counts() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[string]int64, len(c.counts))
	for k, a := range c.counts {
		counts[k] = atomic.LoadInt64(a)
	}
	return counts
}

// Help returns the help string.
func (c *Counters) Help() string {
	return c.help
}

// CountersWithLabels is Counters with a label name used to categorize the
// keys when exporting.
type CountersWithLabels struct {
	Counters
	labelName string
}

// NewCountersWithLabels creates a new CountersWithLabels, publishing it if
// name is set. The optional tags are pre-created at 0.
func NewCountersWithLabels(name string, help string, labelName string, tags ...string) *CountersWithLabels {
	c := &CountersWithLabels{
		Counters: Counters{
			counts: make(map[string]*int64),
			help:   help,
		},
		labelName: labelName,
	}
	for _, tag := range tags {
		c.counts[tag] = new(int64)
	}
	if name != "" {
		publish(name, c)
	}
	return c
}

// LabelName returns the label name.
func (c *CountersWithLabels) LabelName() string {
	return c.labelName
}

// GaugesWithLabels is similar to CountersWithLabels, except its values can go up and down.
type GaugesWithLabels struct {
	CountersWithLabels
}

// NewGaugesWithLabels creates a new GaugesWithLabels and publishes it if the name is set.
func NewGaugesWithLabels(name string, help string, labelName string, tags ...string) *GaugesWithLabels {
	g := &GaugesWithLabels{CountersWithLabels: CountersWithLabels{Counters: Counters{
		counts: make(map[string]*int64),
		help:   help,
	}, labelName: labelName}}

	for _, tag := range tags {
		g.counts[tag] = new(int64)
	}
	if name != "" {
		publish(name, g)
	}
	return g
}

// Set sets the value of a named gauge.
func (g *GaugesWithLabels) Set(name string, value int64) {
	atomic.StoreInt64(g.getValueAddr(name), value)
}

// CountersWithMultiLabels is Counters keyed by several label values joined
// with '.'.
type CountersWithMultiLabels struct {
	Counters
	labels []string
}

// NewCountersWithMultiLabels creates a new CountersWithMultiLabels, publishing
// it if name is set.
func NewCountersWithMultiLabels(name string, help string, labels []string) *CountersWithMultiLabels {
	t := &CountersWithMultiLabels{
		Counters: Counters{
			counts: make(map[string]*int64),
			help:   help,
		},
		labels: labels,
	}
	if name != "" {
		publish(name, t)
	}
	return t
}

// Labels returns the list of labels.
func (mc *CountersWithMultiLabels) Labels() []string {
	return mc.labels
}

// Add adds a value to a named counter. len(names) must be equal to
// len(Labels).
func (mc *CountersWithMultiLabels) Add(names []string, value int64) {
	if len(names) != len(mc.labels) {
		panic("CountersWithMultiLabels: wrong number of values in Add")
	}
	mc.Counters.Add(mapKey(names), value)
}

// Get returns the value for the given label values.
func (mc *CountersWithMultiLabels) Get(names []string) int64 {
	return mc.Counts()[mapKey(names)]
}

var escaper = strings.NewReplacer(".", "\\.", "\\", "\\\\")

func mapKey(ss []string) string {
	esc := make([]string, len(ss))
	for i, f := range ss {
		esc[i] = escaper.Replace(f)
	}
	return strings.Join(esc, ".")
}

// SplitKey reverses mapKey, honoring escaped dots.
func SplitKey(key string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(key); i++ {
		switch ch := key[i]; {
		case ch == '\\' && i+1 < len(key):
			i++
			cur.WriteByte(key[i])
		case ch == '.':
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	return append(out, cur.String())
}
