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

// Package dispatch works out which segments each slice of a plan must be
// started on.
package dispatch

import (
	"slices"
	"strconv"
	"strings"

	"segplan.io/segplan/go/vt/planner/plan"
)

// Info is what a plan fragment tells about the segments it needs.
//
// A fragment that has not learned anything (HasData false) is neutral in a
// merge. An unnarrowed fragment must run everywhere. A narrowed fragment
// needs only Segments, which may be empty when the fragment provably
// produces no rows.
type Info struct {
	Narrowed bool
	Segments []int
	HasData  bool
}

// Unknown is the info of a fragment that constrains nothing.
func Unknown() Info {
	return Info{}
}

// Unnarrowed is the info of a fragment that must run on every segment.
func Unnarrowed() Info {
	return Info{HasData: true}
}

// NarrowedTo is the info of a fragment that needs only segs.
func NarrowedTo(segs ...int) Info {
	if len(segs) == 0 {
		return Info{Narrowed: true, HasData: true}
	}
	out := slices.Clone(segs)
	slices.Sort(out)
	return Info{Narrowed: true, HasData: true, Segments: slices.Compact(out)}
}

// Merge combines the info of sibling inputs. It is associative and
// commutative: Unknown is the identity, Unnarrowed absorbs everything and
// narrowed sets union, so an empty narrowed side leaves the other unchanged.
func (i Info) Merge(o Info) Info {
	switch {
	case !i.HasData:
		return o
	case !o.HasData:
		return i
	case !i.Narrowed || !o.Narrowed:
		return Unnarrowed()
	case len(i.Segments) == 0:
		return o
	case len(o.Segments) == 0:
		return i
	}
	return NarrowedTo(append(slices.Clone(i.Segments), o.Segments...)...)
}

// Finalize turns the info of a whole slice into its dispatch decision.
//
// A slice that learned nothing runs everywhere. A slice narrowed to no
// segment at all still needs one segment to run on to produce its empty
// result, and that segment is seed modulo the segment count.
func (i Info) Finalize(numSegments, seed int) *plan.Dispatch {
	switch {
	case !i.HasData || !i.Narrowed:
		return &plan.Dispatch{}
	case len(i.Segments) == 0:
		if numSegments <= 0 {
			return &plan.Dispatch{}
		}
		seg := ((seed % numSegments) + numSegments) % numSegments
		return &plan.Dispatch{Narrowed: true, Segments: []int{seg}, Empty: true}
	case len(i.Segments) >= numSegments:
		return &plan.Dispatch{}
	}
	return &plan.Dispatch{Narrowed: true, Segments: slices.Clone(i.Segments)}
}

func (i Info) String() string {
	switch {
	case !i.HasData:
		return "unknown"
	case !i.Narrowed:
		return "all"
	}
	parts := make([]string, len(i.Segments))
	for k, s := range i.Segments {
		parts[k] = strconv.Itoa(s)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
