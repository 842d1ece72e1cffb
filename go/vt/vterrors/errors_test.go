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
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vtrpcpb "segplan.io/segplan/go/vt/vtrpc"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "no error"))
	assert.Nil(t, Wrapf(nil, "no %s", "error"))
}

func TestWrap(t *testing.T) {
	tests := []struct {
		err         error
		message     string
		wantMessage string
		wantCode    vtrpcpb.Code
	}{
		{io.EOF, "read plan", "read plan: EOF", vtrpcpb.Code_UNKNOWN},
		{New(vtrpcpb.Code_INTERNAL, "dangling child"), "linearize", "linearize: dangling child", vtrpcpb.Code_INTERNAL},
		{VT12001("recursive union"), "decorrelate", "decorrelate: VT12001: unsupported: recursive union", vtrpcpb.Code_UNIMPLEMENTED},
	}

	for _, tt := range tests {
		t.Run(tt.wantMessage, func(t *testing.T) {
			got := Wrap(tt.err, tt.message)
			assert.Equal(t, tt.wantMessage, got.Error())
			assert.Equal(t, tt.wantCode, Code(got))
		})
	}
}

type nilError struct{}

func (nilError) Error() string { return "nil error" }

func TestRootCause(t *testing.T) {
	x := New(vtrpcpb.Code_FAILED_PRECONDITION, "error")
	tests := []struct {
		err  error
		want error
	}{{
		err:  nil,
		want: nil,
	}, {
		err:  Wrap(nil, "whoops"),
		want: nil,
	}, {
		err:  nilError{},
		want: nilError{},
	}, {
		err:  io.EOF,
		want: io.EOF,
	}, {
		err:  Wrap(io.EOF, "ignored"),
		want: io.EOF,
	}, {
		err:  x,
		want: x,
	}, {
		err:  Wrap(Wrapf(x, "shared %d", 3), "slice"),
		want: x,
	}}

	for i, tt := range tests {
		assert.Equal(t, tt.want, RootCause(tt.err), "case %d", i)
	}
}

func TestCause(t *testing.T) {
	x := New(vtrpcpb.Code_FAILED_PRECONDITION, "error")
	assert.Nil(t, Cause(nil))
	assert.Nil(t, Cause(io.EOF))
	assert.Nil(t, Cause(x))
	assert.Equal(t, io.EOF, Cause(Wrap(io.EOF, "ignored")))
	w := Wrap(x, "outer")
	assert.Equal(t, x, Cause(Wrap(w, "outermost")).(*wrapping).Cause())
}

func TestWrapf(t *testing.T) {
	got := Wrapf(io.EOF, "read share %d", 2)
	assert.Equal(t, "read share 2: EOF", got.Error())
	got = Wrapf(New(vtrpcpb.Code_INTERNAL, "bad"), "pass %s", "xslice")
	assert.Equal(t, "pass xslice: bad", got.Error())
}

func TestErrorf(t *testing.T) {
	err := Errorf(vtrpcpb.Code_DATA_LOSS, "segment %d of %d", 4, 3)
	assert.Equal(t, "segment 4 of 3", err.Error())
	assert.Equal(t, vtrpcpb.Code_DATA_LOSS, Code(err))
	assert.Equal(t, "segment 4 of 3", fmt.Sprintf("%s", err))
}

func innerMost() error {
	return Wrap(io.ErrNoProgress, "oh noes")
}

func middle() error {
	return innerMost()
}

func outer() error {
	return middle()
}

func TestStackFormat(t *testing.T) {
	err := outer()
	got := fmt.Sprintf("%v", err)

	assert.Contains(t, got, "oh noes")
	assert.NotContains(t, got, "innerMost")

	LogErrStacks = true
	defer func() { LogErrStacks = false }()
	got = fmt.Sprintf("%v", err)
	assert.Contains(t, got, "innerMost")
	assert.Contains(t, got, "middle")
	assert.Contains(t, got, "outer")
}

func TestErrorEquality(t *testing.T) {
	err1 := New(vtrpcpb.Code_INTERNAL, "same")
	err2 := New(vtrpcpb.Code_INTERNAL, "same")
	assert.NotSame(t, err1, err2)
	assert.Equal(t, err1.Error(), err2.Error())
	assert.Equal(t, Code(err1), Code(err2))
}

func TestCode(t *testing.T) {
	tests := []struct {
		in   error
		want vtrpcpb.Code
	}{{
		in:   nil,
		want: vtrpcpb.Code_OK,
	}, {
		in:   errors.New("generic"),
		want: vtrpcpb.Code_UNKNOWN,
	}, {
		in:   New(vtrpcpb.Code_CANCELED, "generic"),
		want: vtrpcpb.Code_CANCELED,
	}, {
		in:   context.Canceled,
		want: vtrpcpb.Code_CANCELED,
	}, {
		in:   context.DeadlineExceeded,
		want: vtrpcpb.Code_DEADLINE_EXCEEDED,
	}, {
		in:   fmt.Errorf("walk: %w", context.Canceled),
		want: vtrpcpb.Code_CANCELED,
	}, {
		in:   VT13001("node 7 has two parents"),
		want: vtrpcpb.Code_INTERNAL,
	}}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.in), "%v", tt.in)
	}
}

func TestCodedErrors(t *testing.T) {
	err := VT13001("node 7 has two parents")
	assert.Equal(t, "VT13001: [BUG] node 7 has two parents", err.Error())
	assert.Equal(t, "VT13001", err.ID)
	assert.Equal(t, Undefined, ErrState(err))

	err = VT05004("orders")
	assert.Equal(t, "VT05004: table 'orders' does not exist", err.Error())
	assert.Equal(t, UnknownTable, ErrState(err))
	assert.Equal(t, vtrpcpb.Code_NOT_FOUND, Code(err))

	wrapped := Wrapf(VT12001("set-returning function in target list"), "decorrelate")
	assert.Equal(t, vtrpcpb.Code_UNIMPLEMENTED, Code(wrapped))
	assert.Equal(t, NotSupportedYet, ErrState(wrapped))
	var ve *SegplanError
	require.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "VT12001", ve.ID)
}

func TestErrorsAreDocumented(t *testing.T) {
	seen := map[string]bool{}
	for _, fn := range Errors {
		e := fn()
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
		assert.True(t, strings.HasPrefix(e.Error(), e.ID+": "), e.Error())
		assert.NotEmpty(t, e.Description)
	}
}

func TestWrapping(t *testing.T) {
	err1 := Errorf(vtrpcpb.Code_UNAVAILABLE, "cluster has no segments")
	err2 := Wrapf(err1, "dispatch")
	err3 := Wrapf(err2, "finalize")

	assert.Equal(t, vtrpcpb.Code_UNAVAILABLE, Code(err3))
	assert.Equal(t, "finalize: dispatch: cluster has no segments", err3.Error())
	assert.True(t, errors.Is(err3, err1))
}
