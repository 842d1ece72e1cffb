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

// Package vtrpc holds the canonical error codes shared by every planning
// component. The numbering follows the gRPC status codes so that errors can
// be surfaced to a dispatcher without translation.
package vtrpc

import "strconv"

// Code is the error classification carried by every planner error.
type Code int32

const (
	Code_OK                  Code = 0
	Code_CANCELED            Code = 1
	Code_UNKNOWN             Code = 2
	Code_INVALID_ARGUMENT    Code = 3
	Code_DEADLINE_EXCEEDED   Code = 4
	Code_NOT_FOUND           Code = 5
	Code_ALREADY_EXISTS      Code = 6
	Code_PERMISSION_DENIED   Code = 7
	Code_RESOURCE_EXHAUSTED  Code = 8
	Code_FAILED_PRECONDITION Code = 9
	Code_ABORTED             Code = 10
	Code_OUT_OF_RANGE        Code = 11
	Code_UNIMPLEMENTED       Code = 12
	Code_INTERNAL            Code = 13
	Code_UNAVAILABLE         Code = 14
	Code_DATA_LOSS           Code = 15
	Code_UNAUTHENTICATED     Code = 16
)

var codeNames = map[Code]string{
	Code_OK:                  "OK",
	Code_CANCELED:            "CANCELED",
	Code_UNKNOWN:             "UNKNOWN",
	Code_INVALID_ARGUMENT:    "INVALID_ARGUMENT",
	Code_DEADLINE_EXCEEDED:   "DEADLINE_EXCEEDED",
	Code_NOT_FOUND:           "NOT_FOUND",
	Code_ALREADY_EXISTS:      "ALREADY_EXISTS",
	Code_PERMISSION_DENIED:   "PERMISSION_DENIED",
	Code_RESOURCE_EXHAUSTED:  "RESOURCE_EXHAUSTED",
	Code_FAILED_PRECONDITION: "FAILED_PRECONDITION",
	Code_ABORTED:             "ABORTED",
	Code_OUT_OF_RANGE:        "OUT_OF_RANGE",
	Code_UNIMPLEMENTED:       "UNIMPLEMENTED",
	Code_INTERNAL:            "INTERNAL",
	Code_UNAVAILABLE:         "UNAVAILABLE",
	Code_DATA_LOSS:           "DATA_LOSS",
	Code_UNAUTHENTICATED:     "UNAUTHENTICATED",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Code(" + strconv.Itoa(int(c)) + ")"
}
