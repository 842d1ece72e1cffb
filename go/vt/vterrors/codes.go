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

package vterrors

import (
	"fmt"

	vtrpcpb "segplan.io/segplan/go/vt/vtrpc"
)

var (
	VT03001 = errorWithState("VT03001", vtrpcpb.Code_INVALID_ARGUMENT, BadPlanInput, "invalid plan input: %s", "The plan document or query handed to the planner is not well formed.")

	VT05004 = errorWithState("VT05004", vtrpcpb.Code_NOT_FOUND, UnknownTable, "table '%s' does not exist", "The plan references a table that is not in the catalog.")

	VT09001 = errorWithState("VT09001", vtrpcpb.Code_INVALID_ARGUMENT, WrongValueForVar, "invalid value for setting '%s': %v", "A planner setting was given a value it cannot accept.")

	VT12001 = errorWithState("VT12001", vtrpcpb.Code_UNIMPLEMENTED, NotSupportedYet, "unsupported: %s", "This plan shape is not supported by the planner.")

	VT13001 = errorWithoutState("VT13001", vtrpcpb.Code_INTERNAL, "[BUG] %s", "This error should not happen and is a bug. Please file an issue on GitHub: https://github.com/segplan/segplan/issues/new/choose.")
	VT13002 = errorWithoutState("VT13002", vtrpcpb.Code_INTERNAL, "unexpected plan node kind: %s", "The planner met a node kind it does not know how to handle. This is a bug.")

	// Errors is a list of errors that must match all the variables
	// defined above to enable auto-documentation of error codes.
	Errors = []func(args ...any) *SegplanError{
		VT03001,
		VT05004,
		VT09001,
		VT12001,
		VT13001,
		VT13002,
	}
)

type SegplanError struct {
	Err         error
	Description string
	ID          string
	State       State
}

func (o *SegplanError) Error() string {
	return o.Err.Error()
}

func (o *SegplanError) Cause() error {
	return o.Err
}

func (o *SegplanError) Unwrap() error {
	return o.Err
}

// ErrorCode implements ErrorWithCode.
func (o *SegplanError) ErrorCode() vtrpcpb.Code {
	return Code(o.Err)
}

// ErrorState implements ErrorWithState.
func (o *SegplanError) ErrorState() State {
	return o.State
}

var _ error = (*SegplanError)(nil)

func errorWithoutState(id string, code vtrpcpb.Code, short, long string) func(args ...any) *SegplanError {
	return func(args ...any) *SegplanError {
		s := short
		if len(args) != 0 {
			s = fmt.Sprintf(s, args...)
		}

		return &SegplanError{
			Err:         New(code, id+": "+s),
			Description: long,
			ID:          id,
		}
	}
}

func errorWithState(id string, code vtrpcpb.Code, state State, short, long string) func(args ...any) *SegplanError {
	return func(args ...any) *SegplanError {
		s := short
		if len(args) != 0 {
			s = fmt.Sprintf(s, args...)
		}

		return &SegplanError{
			Err:         NewErrorf(code, state, "%s: %s", id, s),
			Description: long,
			ID:          id,
			State:       state,
		}
	}
}
