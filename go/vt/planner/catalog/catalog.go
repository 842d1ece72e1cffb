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

// Package catalog describes the tables the planner sees: their columns,
// nullability and how their rows are spread over segments.
package catalog

import (
	"sort"
	"strings"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/vterrors"
	vtrpcpb "segplan.io/segplan/go/vt/vtrpc"
)

// PolicyType says how a table's rows map to segments.
type PolicyType int8

const (
	// PolicyPartitioned places every row on the segment its distribution key
	// hashes to.
	PolicyPartitioned PolicyType = iota
	// PolicyRandom places rows on arbitrary segments.
	PolicyRandom
	// PolicyReplicated keeps a full copy on every segment.
	PolicyReplicated
	// PolicyEntry tables live on the coordinator only.
	PolicyEntry
)

var policyNames = map[PolicyType]string{
	PolicyPartitioned: "partitioned",
	PolicyRandom:      "random",
	PolicyReplicated:  "replicated",
	PolicyEntry:       "entry",
}

func (p PolicyType) String() string {
	return policyNames[p]
}

// ParsePolicy returns the policy named s.
func ParsePolicy(s string) (PolicyType, bool) {
	for p, name := range policyNames {
		if strings.EqualFold(name, s) {
			return p, true
		}
	}
	return 0, false
}

// Column is a table column.
type Column struct {
	Name    string
	Type    sqltypes.Type
	NotNull bool
}

// Distribution is a table's distribution policy.
type Distribution struct {
	Policy PolicyType
	// Keys are the ordered distribution key column names.
	Keys []string
	// HashFunc names the segment hash registered in seghash.
	HashFunc string
	// NumSegments is the number of segments the table is spread over.
	NumSegments int
}

// Table is a base table.
type Table struct {
	Name         string
	Columns      []*Column
	Distribution Distribution
}

// FindColumn returns the named column and its ordinal, or nil and -1.
func (t *Table) FindColumn(name string) (*Column, int) {
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, i
		}
	}
	return nil, -1
}

// KeyColumns returns the distribution key columns in key order.
func (t *Table) KeyColumns() []*Column {
	cols := make([]*Column, 0, len(t.Distribution.Keys))
	for _, k := range t.Distribution.Keys {
		if c, _ := t.FindColumn(k); c != nil {
			cols = append(cols, c)
		}
	}
	return cols
}

// Schema resolves table names.
type Schema interface {
	FindTable(name string) (*Table, bool)
}

// Catalog is an in-memory Schema.
type Catalog struct {
	tables map[string]*Table
}

var _ Schema = (*Catalog)(nil)

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

// AddTable validates and registers t.
func (c *Catalog) AddTable(t *Table) error {
	if t.Name == "" {
		return vterrors.VT03001("table without a name")
	}
	key := strings.ToLower(t.Name)
	if _, exists := c.tables[key]; exists {
		return vterrors.Errorf(vtrpcpb.Code_ALREADY_EXISTS, "table %s is defined twice", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		name := strings.ToLower(col.Name)
		if seen[name] {
			return vterrors.VT03001("duplicate column " + t.Name + "." + col.Name)
		}
		seen[name] = true
	}

	d := t.Distribution
	switch d.Policy {
	case PolicyPartitioned:
		if len(d.Keys) == 0 {
			return vterrors.VT03001("partitioned table " + t.Name + " has no distribution key")
		}
		for _, k := range d.Keys {
			if col, _ := t.FindColumn(k); col == nil {
				return vterrors.VT03001("distribution key " + k + " is not a column of " + t.Name)
			}
		}
		fallthrough
	case PolicyRandom, PolicyReplicated:
		if d.NumSegments <= 0 {
			return vterrors.VT03001("table " + t.Name + " must be spread over at least one segment")
		}
	}
	c.tables[key] = t
	return nil
}

// FindTable implements Schema.
func (c *Catalog) FindTable(name string) (*Table, bool) {
	t, ok := c.tables[strings.ToLower(name)]
	return t, ok
}

// Table returns the named table or a not-found error.
func (c *Catalog) Table(name string) (*Table, error) {
	t, ok := c.FindTable(name)
	if !ok {
		return nil, vterrors.VT05004(name)
	}
	return t, nil
}

// Tables returns all tables sorted by name.
func (c *Catalog) Tables() []*Table {
	out := make([]*Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
