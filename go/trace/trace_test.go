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

package trace

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopSpan(t *testing.T) {
	spanFactory = noopTracingServer{}
	ctx := context.Background()

	span1, ctx := NewSpan(ctx, "FinalizePlan")
	span1.Annotate("slices", 3)
	span1.Finish()

	span2, _ := NewSpan(ctx, "Linearize")
	span2.Finish()
	_, ok := FromContext(ctx)
	assert.False(t, ok)
}

func TestOpenTracingParentChild(t *testing.T) {
	tracer := mocktracer.New()
	UseTracer(tracer)
	defer func() { spanFactory = noopTracingServer{} }()

	root, ctx := NewSpan(context.Background(), "FinalizePlan")
	child, _ := NewSpan(ctx, "ComputeDispatch")
	child.Annotate("segments", 4)
	AnnotateSQL(child, strings.Repeat("x", 300))
	child.Finish()
	root.Finish()

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "ComputeDispatch", spans[0].OperationName)
	assert.Equal(t, spans[1].SpanContext.SpanID, spans[0].ParentID)
	assert.Equal(t, 4, spans[0].Tag("segments"))
	assert.Len(t, spans[0].Tag("sql"), 257)
}

func TestStartTracing(t *testing.T) {
	defer func() {
		spanFactory = noopTracingServer{}
		tracingServer = "noop"
	}()

	tracingBackendFactories["fake"] = func(s string) (tracingService, io.Closer, error) {
		return fakeTracer{name: s}, fakeTracer{name: s}, nil
	}
	tracingServer = "fake"
	closer := StartTracing("segplan")
	tracer, ok := closer.(fakeTracer)
	require.True(t, ok)
	assert.Equal(t, "segplan", tracer.name)

	tracingServer = "missing"
	assert.IsType(t, &nilCloser{}, StartTracing("segplan"))

	tracingBackendFactories["broken"] = func(string) (tracingService, io.Closer, error) {
		return nil, nil, errors.New("no agent")
	}
	tracingServer = "broken"
	assert.IsType(t, &nilCloser{}, StartTracing("segplan"))
}

type fakeTracer struct {
	noopTracingServer
	name string
}

func (fakeTracer) Close() error { return nil }
