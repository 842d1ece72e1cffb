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

// Package valueset derives, from a predicate, the finite set of values a
// target expression can take in rows the predicate accepts.
package valueset

import (
	"strings"

	"segplan.io/segplan/go/sqltypes"
)

// Set is either "any value possible" or a finite set of distinct values.
// Values compare by their raw encoding; a NULL member stands for rows where
// the target is NULL.
type Set struct {
	any  bool
	vals []sqltypes.Value
	keys map[string]struct{}
}

// Any returns the unconstrained set.
func Any() *Set {
	return &Set{any: true}
}

// Empty returns the set with no values: no row can satisfy the predicate.
func Empty() *Set {
	return &Set{}
}

// Of returns the finite set of vals, duplicates removed.
func Of(vals ...sqltypes.Value) *Set {
	s := &Set{}
	for _, v := range vals {
		s.add(v)
	}
	return s
}

func (s *Set) add(v sqltypes.Value) {
	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	k := v.Key()
	if _, ok := s.keys[k]; ok {
		return
	}
	s.keys[k] = struct{}{}
	s.vals = append(s.vals, v)
}

// IsAny reports whether s is unconstrained.
func (s *Set) IsAny() bool {
	return s.any
}

// IsEmpty reports whether s is a finite set with no values.
func (s *Set) IsEmpty() bool {
	return !s.any && len(s.vals) == 0
}

// Len returns the number of values of a finite set, -1 for Any.
func (s *Set) Len() int {
	if s.any {
		return -1
	}
	return len(s.vals)
}

// Contains reports whether v may be taken. Any contains everything.
func (s *Set) Contains(v sqltypes.Value) bool {
	if s.any {
		return true
	}
	_, ok := s.keys[v.Key()]
	return ok
}

// Values returns the members of a finite set in insertion order.
func (s *Set) Values() []sqltypes.Value {
	return s.vals
}

// Intersect returns the values in both s and o.
func (s *Set) Intersect(o *Set) *Set {
	switch {
	case s.any:
		return o
	case o.any:
		return s
	}
	out := &Set{}
	for _, v := range s.vals {
		if o.Contains(v) {
			out.add(v)
		}
	}
	return out
}

// Union returns the values in either s or o.
func (s *Set) Union(o *Set) *Set {
	if s.any || o.any {
		return Any()
	}
	out := &Set{}
	for _, v := range s.vals {
		out.add(v)
	}
	for _, v := range o.vals {
		out.add(v)
	}
	return out
}

func (s *Set) String() string {
	if s.any {
		return "ANY"
	}
	parts := make([]string, 0, len(s.vals))
	for _, v := range s.vals {
		parts = append(parts, v.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
