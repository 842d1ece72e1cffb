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

// Package planner runs the refinement passes over a statement: subquery
// decorrelation on the query tree, then share linearization and direct
// dispatch on the physical plan.
package planner

import (
	"context"
	"strconv"

	"segplan.io/segplan/go/trace"
	"segplan.io/segplan/go/vt/log"
	"segplan.io/segplan/go/vt/planner/catalog"
	"segplan.io/segplan/go/vt/planner/decorrelate"
	"segplan.io/segplan/go/vt/planner/dispatch"
	"segplan.io/segplan/go/vt/planner/plan"
	"segplan.io/segplan/go/vt/planner/shareinput"
	"segplan.io/segplan/go/vt/sqlast"
	"segplan.io/segplan/go/vt/vterrors"
)

// RewriteQuery pulls the subqueries of stmt up into joins where that is
// safe. stmt is rewritten in place; subqueries that cannot be converted
// are left alone and reported with the reason.
func RewriteQuery(ctx context.Context, stmt sqlast.SelectStatement, schema catalog.Schema, cfg Config) []decorrelate.Outcome {
	span, _ := trace.NewSpan(ctx, "planner.RewriteQuery")
	defer span.Finish()
	trace.AnnotateSQL(span, sqlast.String(stmt))

	outcomes := decorrelate.New(schema, cfg.Decorrelate).Rewrite(stmt)
	converted := 0
	for _, o := range outcomes {
		kind := o.Kind.String()
		if o.Converted {
			converted++
			decorrelateAttempts.Add([]string{kind, "converted"}, 1)
			log.DebugS("decorrelated subquery", "kind", kind, "alias", o.Alias)
			continue
		}
		decorrelateAttempts.Add([]string{kind, "kept"}, 1)
		log.DebugS("subquery kept", "kind", kind, "reason", o.Reason)
	}
	span.Annotate("subqueries", len(outcomes))
	span.Annotate("converted", converted)
	return outcomes
}

// FinalizePlan turns p into its executable shape. Unread init plans are
// dropped, shared subtrees get a single producer and every segment slice
// gets its dispatch segments. The motion layout is then checked and the
// nodes are numbered. An error means p broke a plan invariant; p must not
// be executed then.
func FinalizePlan(ctx context.Context, p *plan.Plan, cfg Config) (*shareinput.Registry, error) {
	span, ctx := trace.NewSpan(ctx, "planner.FinalizePlan")
	defer span.Finish()

	reg, err := finalize(ctx, p, cfg)
	if err != nil {
		finalizeErrors.Add(1)
		log.ErrorS("plan finalization failed", "err", err)
		return nil, err
	}
	return reg, nil
}

func finalize(ctx context.Context, p *plan.Plan, cfg Config) (*shareinput.Registry, error) {
	if p == nil || p.Root == plan.InvalidNodeID {
		return nil, vterrors.VT03001("plan has no root")
	}
	removed, err := plan.RemoveUnusedInitPlans(p)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		initPlansRemoved.Add(int64(removed))
		log.DebugS("dropped unused init plans", "count", removed)
	}

	reg, err := shareinput.Linearize(ctx, p)
	if err != nil {
		return nil, err
	}
	for _, s := range reg.Shares() {
		if s.CrossSlice {
			sharedSubplans.Add("cross_slice", 1)
		} else {
			sharedSubplans.Add("local", 1)
		}
	}

	if err := dispatch.AssignDirectDispatch(ctx, p, cfg.Dispatch); err != nil {
		return nil, err
	}
	if err := plan.CheckMotions(p); err != nil {
		return nil, err
	}
	sliceSegments.ResetAll()
	planSlices.Set(int64(len(p.Slices)))
	for _, s := range p.Slices {
		d := s.Dispatch
		if d == nil {
			continue
		}
		segments := p.NumSegments
		switch {
		case d.Empty:
			dispatchSlices.Add("empty", 1)
			segments = len(d.Segments)
		case d.Narrowed:
			dispatchSlices.Add("narrowed", 1)
			segments = len(d.Segments)
		default:
			dispatchSlices.Add("all", 1)
		}
		sliceSegments.Set(strconv.Itoa(s.ID), int64(segments))
	}

	if err := plan.AssignPlanNodeIDs(p); err != nil {
		return nil, err
	}
	return reg, nil
}
