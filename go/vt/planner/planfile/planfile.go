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

// Package planfile loads a catalog and a physical plan from a YAML
// document. Plans are written as nested operators; a shared subtree is
// declared once under "shared" and referenced by name from every
// ShareInputScan reading it.
//
//	segments: 4
//	tables:
//	- name: orders
//	  columns: [{name: id, type: int, not_null: true}]
//	  distribution: {policy: partitioned, keys: [id]}
//	shared:
//	  o: {kind: Material, children: [{kind: SeqScan, table: orders, filter: "id = 7"}]}
//	plan:
//	  kind: Motion
//	  motion: gather
//	  children:
//	  - kind: Append
//	    children: [{kind: ShareInputScan, share: o}, {kind: ShareInputScan, share: o}]
package planfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/planner/catalog"
	"segplan.io/segplan/go/vt/planner/dispatch"
	"segplan.io/segplan/go/vt/planner/plan"
	"segplan.io/segplan/go/vt/sqlast"
	"segplan.io/segplan/go/vt/vterrors"
)

// File is the YAML document.
type File struct {
	// Segments is the cluster size, also the default of every table.
	Segments int `json:"segments"`
	// RootLocus is "coordinator" (default) or "segments".
	RootLocus string               `json:"root_locus,omitempty"`
	Tables    []*TableSpec         `json:"tables,omitempty"`
	Shared    map[string]*NodeSpec `json:"shared,omitempty"`
	Plan      *NodeSpec            `json:"plan,omitempty"`
	SubPlans  []*NodeSpec          `json:"subplans,omitempty"`
	// Query is an optional SELECT over the tables.
	Query string `json:"query,omitempty"`
}

// TableSpec describes a base table.
type TableSpec struct {
	Name         string           `json:"name"`
	Columns      []ColumnSpec     `json:"columns"`
	Distribution DistributionSpec `json:"distribution"`
}

// ColumnSpec describes a column.
type ColumnSpec struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"not_null,omitempty"`
}

// DistributionSpec describes a table's distribution policy.
type DistributionSpec struct {
	Policy   string   `json:"policy"`
	Keys     []string `json:"keys,omitempty"`
	Hash     string   `json:"hash,omitempty"`
	Segments int      `json:"segments,omitempty"`
}

// NodeSpec describes one plan operator and its inputs.
type NodeSpec struct {
	Kind     string `json:"kind"`
	Table    string `json:"table,omitempty"`
	Alias    string `json:"alias,omitempty"`
	Filter   string `json:"filter,omitempty"`
	JoinQual string `json:"join_qual,omitempty"`

	// Motion is the motion type of Motion nodes; Locus is where its
	// sending slice runs, "segments" by default.
	Motion string   `json:"motion,omitempty"`
	Locus  string   `json:"locus,omitempty"`
	Hash   []string `json:"hash,omitempty"`

	PrefetchInner bool `json:"prefetch_inner,omitempty"`
	UniqueOuter   bool `json:"unique_outer,omitempty"`

	// Rows are the constants of ValuesScan and Insert nodes.
	Rows [][]any `json:"rows,omitempty"`

	// Share names the shared subtree a ShareInputScan reads.
	Share string `json:"share,omitempty"`

	// SetParam is the parameter this node computes when it is an init
	// plan; expressions read it as $N.
	SetParam int `json:"set_param,omitempty"`

	Children  []*NodeSpec `json:"children,omitempty"`
	InitPlans []*NodeSpec `json:"init_plans,omitempty"`
}

// Loaded is what a File builds into.
type Loaded struct {
	Catalog *catalog.Catalog
	// Plan is nil when the file has no plan.
	Plan *plan.Plan
	// Query is nil when the file has no query.
	Query sqlast.SelectStatement
}

// Parse decodes a YAML document. Unknown fields are errors.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, vterrors.VT03001(err.Error())
	}
	return &f, nil
}

// Load reads and builds the YAML file at path.
func Load(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vterrors.Wrapf(err, "reading plan file %s", path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, vterrors.Wrapf(err, "parsing plan file %s", path)
	}
	return f.Build()
}

// Build validates f and turns it into a catalog, a plan and a query.
func (f *File) Build() (*Loaded, error) {
	if f.Segments <= 0 {
		return nil, vterrors.VT03001("segments must be positive")
	}
	cat, err := f.catalog()
	if err != nil {
		return nil, err
	}
	out := &Loaded{Catalog: cat}

	if f.Plan != nil {
		b := &builder{
			file:     f,
			cat:      cat,
			p:        plan.New(f.Segments),
			shared:   make(map[string]plan.NodeID),
			building: make(map[string]bool),
			aliases:  make(map[string]*catalog.Table),
		}
		if out.Plan, err = b.build(); err != nil {
			return nil, err
		}
	}

	if f.Query != "" {
		if out.Query, err = sqlast.ParseSelect(f.Query); err != nil {
			return nil, vterrors.Wrap(err, "query")
		}
	}
	return out, nil
}

func (f *File) catalog() (*catalog.Catalog, error) {
	cat := catalog.New()
	for i, ts := range f.Tables {
		where := fmt.Sprintf("tables[%d]", i)
		t := &catalog.Table{Name: ts.Name}
		for _, cs := range ts.Columns {
			typ, ok := sqltypes.ParseType(cs.Type)
			if !ok {
				return nil, vterrors.VT03001(fmt.Sprintf("%s: column %s has unknown type %q", where, cs.Name, cs.Type))
			}
			t.Columns = append(t.Columns, &catalog.Column{Name: cs.Name, Type: typ, NotNull: cs.NotNull})
		}
		d := ts.Distribution
		policy := catalog.PolicyRandom
		if d.Policy != "" {
			var ok bool
			if policy, ok = catalog.ParsePolicy(d.Policy); !ok {
				return nil, vterrors.VT03001(fmt.Sprintf("%s: unknown distribution policy %q", where, d.Policy))
			}
		}
		segments := d.Segments
		if segments == 0 {
			segments = f.Segments
		}
		t.Distribution = catalog.Distribution{Policy: policy, Keys: d.Keys, HashFunc: d.Hash, NumSegments: segments}
		if err := cat.AddTable(t); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// typed is an expression whose column types are resolved once every scan
// alias is known. table is the scanned table of the owning node, if any.
type typed struct {
	expr  sqlast.Expr
	table *catalog.Table
	where string
}

type builder struct {
	file *File
	cat  *catalog.Catalog
	p    *plan.Plan

	shared   map[string]plan.NodeID
	building map[string]bool
	aliases  map[string]*catalog.Table
	exprs    []typed
}

func (b *builder) build() (*plan.Plan, error) {
	switch strings.ToLower(b.file.RootLocus) {
	case "", "coordinator":
		b.p.RootLocus = plan.LocusCoordinator
	case "segments":
		b.p.RootLocus = plan.LocusSegments
	default:
		return nil, vterrors.VT03001("unknown root locus " + strconv.Quote(b.file.RootLocus))
	}

	root, err := b.node(b.file.Plan, "plan")
	if err != nil {
		return nil, err
	}
	b.p.Root = root
	for i, sp := range b.file.SubPlans {
		id, err := b.node(sp, fmt.Sprintf("subplans[%d]", i))
		if err != nil {
			return nil, err
		}
		b.p.SubPlans = append(b.p.SubPlans, id)
	}
	for name := range b.file.Shared {
		if _, ok := b.shared[name]; !ok {
			return nil, vterrors.VT03001("shared subtree " + strconv.Quote(name) + " is never read")
		}
	}
	for _, e := range b.exprs {
		if err := b.resolve(e); err != nil {
			return nil, err
		}
	}
	return b.p, nil
}

func (b *builder) node(s *NodeSpec, where string) (plan.NodeID, error) {
	if s == nil {
		return plan.InvalidNodeID, vterrors.VT03001(where + ": empty node")
	}
	kind, ok := plan.ParseKind(s.Kind)
	if !ok {
		return plan.InvalidNodeID, vterrors.VT03001(fmt.Sprintf("%s: unknown node kind %q", where, s.Kind))
	}
	where += "(" + s.Kind + ")"

	var table *catalog.Table
	if s.Table != "" {
		t, err := b.cat.Table(s.Table)
		if err != nil {
			return plan.InvalidNodeID, err
		}
		table = t
		alias := s.Alias
		if alias == "" {
			alias = t.Name
		}
		b.aliases[strings.ToLower(alias)] = t
	}
	filter, err := b.expr(s.Filter, table, where+".filter")
	if err != nil {
		return plan.InvalidNodeID, err
	}

	children := make([]plan.NodeID, 0, len(s.Children))
	for i, cs := range s.Children {
		id, err := b.node(cs, fmt.Sprintf("%s.children[%d]", where, i))
		if err != nil {
			return plan.InvalidNodeID, err
		}
		children = append(children, id)
	}
	arity := func(lo, hi int) error {
		if len(children) < lo || (hi >= 0 && len(children) > hi) {
			return vterrors.VT03001(fmt.Sprintf("%s: %d children", where, len(children)))
		}
		return nil
	}
	needTable := func() error {
		if table == nil {
			return vterrors.VT03001(where + ": table is required")
		}
		return nil
	}

	var id plan.NodeID
	switch kind {
	case plan.SeqScan, plan.IndexScan, plan.TidScan, plan.SampleScan:
		if err := firstErr(arity(0, 0), needTable()); err != nil {
			return plan.InvalidNodeID, err
		}
		id = b.p.NewScan(kind, table, s.Alias, filter)
	case plan.FunctionScan:
		if err := arity(0, 0); err != nil {
			return plan.InvalidNodeID, err
		}
		id = b.p.Add(&plan.Node{Kind: kind, Filter: filter})
	case plan.ValuesScan:
		if err := arity(0, 0); err != nil {
			return plan.InvalidNodeID, err
		}
		rows, err := values(s.Rows, nil, where)
		if err != nil {
			return plan.InvalidNodeID, err
		}
		id = b.p.NewValuesScan(rows)
	case plan.Insert:
		if err := firstErr(arity(0, 0), needTable()); err != nil {
			return plan.InvalidNodeID, err
		}
		rows, err := values(s.Rows, table, where)
		if err != nil {
			return plan.InvalidNodeID, err
		}
		id = b.p.NewInsert(table, rows)
	case plan.NestLoop, plan.HashJoin, plan.MergeJoin:
		if err := arity(2, 2); err != nil {
			return plan.InvalidNodeID, err
		}
		qual, err := b.expr(s.JoinQual, nil, where+".join_qual")
		if err != nil {
			return plan.InvalidNodeID, err
		}
		id = b.p.NewJoin(kind, children[0], children[1], qual)
		n := b.p.MustNode(id)
		n.PrefetchInner = s.PrefetchInner
		n.UniqueOuter = s.UniqueOuter
	case plan.Motion:
		if err := arity(1, 1); err != nil {
			return plan.InvalidNodeID, err
		}
		if id, err = b.motion(s, children[0], where); err != nil {
			return plan.InvalidNodeID, err
		}
	case plan.ShareInputScan:
		if err := arity(0, 0); err != nil {
			return plan.InvalidNodeID, err
		}
		child, err := b.sharedSubtree(s.Share, where)
		if err != nil {
			return plan.InvalidNodeID, err
		}
		id = b.p.NewShareInputScan(child)
	case plan.Append, plan.Sequence:
		if err := arity(1, -1); err != nil {
			return plan.InvalidNodeID, err
		}
		id = b.p.NewNary(kind, children...)
	case plan.Result:
		if err := arity(0, 1); err != nil {
			return plan.InvalidNodeID, err
		}
		if len(children) == 0 {
			id = b.p.Add(&plan.Node{Kind: kind})
		} else {
			id = b.p.NewUnary(kind, children[0])
		}
	case plan.SubqueryScan, plan.Hash, plan.Agg, plan.WindowAgg, plan.Sort, plan.Unique, plan.Material, plan.Limit:
		if err := arity(1, 1); err != nil {
			return plan.InvalidNodeID, err
		}
		id = b.p.NewUnary(kind, children[0])
	default:
		return plan.InvalidNodeID, vterrors.VT13002(kind.String())
	}

	n := b.p.MustNode(id)
	if !kind.IsScan() && filter != nil {
		n.Filter = filter
	}
	if s.SetParam < 0 {
		return plan.InvalidNodeID, vterrors.VT03001(fmt.Sprintf("%s: negative set_param %d", where, s.SetParam))
	}
	n.SetParam = s.SetParam
	for i, is := range s.InitPlans {
		ip, err := b.node(is, fmt.Sprintf("%s.init_plans[%d]", where, i))
		if err != nil {
			return plan.InvalidNodeID, err
		}
		n.InitPlans = append(n.InitPlans, ip)
	}
	return id, nil
}

func (b *builder) motion(s *NodeSpec, child plan.NodeID, where string) (plan.NodeID, error) {
	typ, ok := plan.ParseMotionType(strings.ToLower(s.Motion))
	if !ok {
		return plan.InvalidNodeID, vterrors.VT03001(fmt.Sprintf("%s: unknown motion type %q", where, s.Motion))
	}
	id := b.p.NewMotion(typ, child)
	m := b.p.MustNode(id).Motion
	switch strings.ToLower(s.Locus) {
	case "", "segments":
		m.SenderLocus = plan.LocusSegments
	case "coordinator":
		m.SenderLocus = plan.LocusCoordinator
	default:
		return plan.InvalidNodeID, vterrors.VT03001(fmt.Sprintf("%s: unknown locus %q", where, s.Locus))
	}
	for i, h := range s.Hash {
		e, err := b.expr(h, nil, fmt.Sprintf("%s.hash[%d]", where, i))
		if err != nil {
			return plan.InvalidNodeID, err
		}
		m.HashExprs = append(m.HashExprs, e)
	}
	return id, nil
}

// sharedSubtree builds the named shared subtree on first use and returns
// the same node for every later reference.
func (b *builder) sharedSubtree(name, where string) (plan.NodeID, error) {
	if name == "" {
		return plan.InvalidNodeID, vterrors.VT03001(where + ": share is required")
	}
	if id, ok := b.shared[name]; ok {
		return id, nil
	}
	spec, ok := b.file.Shared[name]
	if !ok {
		return plan.InvalidNodeID, vterrors.VT03001(fmt.Sprintf("%s: unknown shared subtree %q", where, name))
	}
	if b.building[name] {
		return plan.InvalidNodeID, vterrors.VT03001(fmt.Sprintf("shared subtree %q reads itself", name))
	}
	b.building[name] = true
	id, err := b.node(spec, "shared."+name)
	delete(b.building, name)
	if err != nil {
		return plan.InvalidNodeID, err
	}
	b.shared[name] = id
	return id, nil
}

func (b *builder) expr(sql string, table *catalog.Table, where string) (sqlast.Expr, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, nil
	}
	e, err := sqlast.ParseExpr(sql)
	if err != nil {
		return nil, vterrors.Wrap(err, where)
	}
	b.exprs = append(b.exprs, typed{expr: e, table: table, where: where})
	return e, nil
}

// resolve types the columns of e. Qualified columns are looked up through
// the scan aliases; unqualified ones in the owning scan's table, or in the
// only aliased table having the column.
func (b *builder) resolve(e typed) error {
	var err error
	sqlast.VisitColumns(e.expr, func(col *sqlast.ColName, _ int) bool {
		if strings.EqualFold(col.Name, dispatch.SegmentIDColumn) {
			col.Type = sqltypes.Int32
			return true
		}
		t := e.table
		if col.Qualifier != "" {
			t = b.aliases[strings.ToLower(col.Qualifier)]
		} else if t == nil {
			t, err = b.unqualified(col.Name, e.where)
			if err != nil {
				return false
			}
		}
		if t == nil {
			err = vterrors.VT03001(fmt.Sprintf("%s: unknown table %q", e.where, col.Qualifier))
			return false
		}
		c, _ := t.FindColumn(col.Name)
		if c == nil {
			err = vterrors.VT03001(fmt.Sprintf("%s: %s has no column %q", e.where, t.Name, col.Name))
			return false
		}
		col.Type = c.Type
		return true
	})
	return err
}

func (b *builder) unqualified(name, where string) (*catalog.Table, error) {
	var found *catalog.Table
	for _, t := range b.aliases {
		if c, _ := t.FindColumn(name); c == nil || t == found {
			continue
		}
		if found != nil {
			return nil, vterrors.VT03001(fmt.Sprintf("%s: column %q is ambiguous", where, name))
		}
		found = t
	}
	if found == nil {
		return nil, vterrors.VT03001(fmt.Sprintf("%s: unknown column %q", where, name))
	}
	return found, nil
}

// values converts YAML scalars into typed rows. With a table the row is
// typed by its columns; without one the scalar's own type is used.
func values(rows [][]any, table *catalog.Table, where string) ([][]sqltypes.Value, error) {
	out := make([][]sqltypes.Value, 0, len(rows))
	for r, row := range rows {
		if table != nil && len(row) != len(table.Columns) {
			return nil, vterrors.VT03001(fmt.Sprintf("%s: row %d has %d values, %s has %d columns", where, r, len(row), table.Name, len(table.Columns)))
		}
		vals := make([]sqltypes.Value, 0, len(row))
		for i, raw := range row {
			typ := sqltypes.Null
			if table != nil {
				typ = table.Columns[i].Type
			}
			v, err := value(raw, typ)
			if err != nil {
				return nil, vterrors.Wrapf(err, "%s: row %d", where, r)
			}
			vals = append(vals, v)
		}
		out = append(out, vals)
	}
	return out, nil
}

func value(raw any, typ sqltypes.Type) (sqltypes.Value, error) {
	var text string
	switch x := raw.(type) {
	case nil:
		return sqltypes.NULL, nil
	case bool:
		if typ == sqltypes.Null {
			return sqltypes.NewBoolean(x), nil
		}
		text = strconv.FormatBool(x)
	case float64:
		text = strconv.FormatFloat(x, 'f', -1, 64)
		if typ == sqltypes.Null {
			typ = sqltypes.Float64
			if x == float64(int64(x)) {
				typ = sqltypes.Int64
			}
		}
	case string:
		text = x
		if typ == sqltypes.Null {
			typ = sqltypes.Text
		}
	default:
		return sqltypes.NULL, vterrors.VT03001(fmt.Sprintf("unsupported value %v", raw))
	}
	return sqltypes.NewValue(typ, []byte(text))
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
