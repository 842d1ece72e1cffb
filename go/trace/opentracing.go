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
	"io"

	"github.com/opentracing/opentracing-go"
)

var _ Span = (*openTracingSpan)(nil)

type openTracingSpan struct {
	otSpan opentracing.Span
}

// Finish will mark a span as finished
func (js openTracingSpan) Finish() {
	js.otSpan.Finish()
}

// Annotate will add information to an existing span
func (js openTracingSpan) Annotate(key string, value any) {
	js.otSpan.SetTag(key, value)
}

var _ tracingService = (*openTracingService)(nil)

type openTracingService struct {
	Tracer opentracing.Tracer
}

// New is part of an interface implementation
func (jf openTracingService) New(parent Span, label string) Span {
	var innerSpan opentracing.Span
	if parent == nil {
		innerSpan = jf.Tracer.StartSpan(label)
	} else {
		otParent := parent.(openTracingSpan)
		innerSpan = jf.Tracer.StartSpan(label, opentracing.ChildOf(otParent.otSpan.Context()))
	}
	return openTracingSpan{otSpan: innerSpan}
}

// FromContext is part of an interface implementation
func (jf openTracingService) FromContext(ctx context.Context) (Span, bool) {
	innerSpan := opentracing.SpanFromContext(ctx)
	if innerSpan == nil {
		return nil, false
	}
	return openTracingSpan{otSpan: innerSpan}, true
}

// NewContext is part of an interface implementation
func (jf openTracingService) NewContext(parent context.Context, s Span) context.Context {
	span, ok := s.(openTracingSpan)
	if !ok {
		return parent
	}
	return opentracing.ContextWithSpan(parent, span.otSpan)
}

// UseTracer installs t as the tracing backend directly.
func UseTracer(t opentracing.Tracer) {
	spanFactory = openTracingService{Tracer: t}
}

func init() {
	// opentracing picks up whatever tracer the embedding program installed
	// with opentracing.SetGlobalTracer.
	tracingBackendFactories["opentracing"] = func(string) (tracingService, io.Closer, error) {
		return openTracingService{Tracer: opentracing.GlobalTracer()}, &nilCloser{}, nil
	}
}
