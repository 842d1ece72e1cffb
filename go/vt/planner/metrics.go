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

package planner

import "segplan.io/segplan/go/stats"

var (
	dispatchSlices = stats.NewCountersWithLabels(
		"PlannerDispatchSlices",
		"Segment slices by dispatch decision",
		"Decision",
		"narrowed", "all", "empty")
	// sliceSegments is reset by every FinalizePlan, so it describes the
	// last plan finalized.
	sliceSegments = stats.NewGaugesWithLabels(
		"PlannerSliceSegments",
		"Segments each slice of the last finalized plan is dispatched to",
		"Slice")
	planSlices = stats.NewGauge(
		"PlannerPlanSlices",
		"Slices in the last finalized plan")
	decorrelateAttempts = stats.NewCountersWithMultiLabels(
		"PlannerDecorrelateAttempts",
		"Subqueries considered for decorrelation by kind and result",
		[]string{"Kind", "Result"})
	sharedSubplans = stats.NewCountersWithLabels(
		"PlannerSharedSubplans",
		"Shared subplans by placement",
		"Placement",
		"local", "cross_slice")
	initPlansRemoved = stats.NewCounter(
		"PlannerInitPlansRemoved",
		"Init plans dropped because nothing reads their parameter")
	finalizeErrors = stats.NewCounter(
		"PlannerFinalizeErrors",
		"Plans rejected by FinalizePlan")
)
