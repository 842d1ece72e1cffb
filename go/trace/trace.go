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

// Package trace contains a helper interface that allows various tracing
// tools to be plugged in to the planner passes. By default no tracing
// plugin is installed and spans are no-ops.
package trace

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"segplan.io/segplan/go/vt/log"
	"segplan.io/segplan/go/vt/utils"
)

// Span represents a unit of work within a trace. After creating a Span with
// NewSpan(), call one of the Start methods to mark the beginning of the work
// represented by this Span. Call Finish() when that work is done to record the
// Span. A Span may be reused by calling Start again.
type Span interface {
	Finish()
	// Annotate records a key/value pair associated with a Span. It should be
	// called between Start and Finish.
	Annotate(key string, value any)
}

// NewSpan creates a new Span with the currently installed tracing plugin,
// as a child of the Span in ctx if there is one.
func NewSpan(inCtx context.Context, label string) (Span, context.Context) {
	parent, _ := spanFactory.FromContext(inCtx)
	span := spanFactory.New(parent, label)
	outCtx := spanFactory.NewContext(inCtx, span)
	return span, outCtx
}

// FromContext returns the Span from a Context if present. The bool return
// value indicates whether a Span was present in the Context.
func FromContext(ctx context.Context) (Span, bool) {
	return spanFactory.FromContext(ctx)
}

// AnnotateSQL annotates information about a sql query in the span,
// truncating it to keep tags small.
func AnnotateSQL(span Span, sql string) {
	const maxLen = 256
	if len(sql) > maxLen {
		sql = sql[:maxLen-5] + " [...]"
	}
	span.Annotate("sql", sql)
}

type tracingService interface {
	New(parent Span, label string) Span
	FromContext(ctx context.Context) (Span, bool)
	NewContext(parent context.Context, span Span) context.Context
}

// TracerFactory creates a tracing service for the service provided. The
// io.Closer flushes the tracer on shutdown.
type TracerFactory func(serviceName string) (tracingService, io.Closer, error)

// tracingBackendFactories should be added to by a plugin during init() to
// install itself
var tracingBackendFactories = make(map[string]TracerFactory)

var spanFactory tracingService = noopTracingServer{}

var tracingServer = "noop"

// RegisterFlags installs the tracing flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	utils.SetFlagStringVar(fs, &tracingServer, "tracer", "noop", "tracing service to use: noop or opentracing")
}

// StartTracing enables tracing for a named service.
func StartTracing(serviceName string) io.Closer {
	factory, ok := tracingBackendFactories[tracingServer]
	if !ok {
		return fail(serviceName)
	}

	tracer, closer, err := factory(serviceName)
	if err != nil {
		log.ErrorS("failed to create a tracing service", "tracer", tracingServer, "err", err)
		return &nilCloser{}
	}

	spanFactory = tracer
	log.InfoS("tracing enabled", "tracer", tracingServer, "service", serviceName)
	return closer
}

func fail(serviceName string) io.Closer {
	options := make([]string, 0, len(tracingBackendFactories))
	for k := range tracingBackendFactories {
		options = append(options, k)
	}
	log.ErrorS("no such tracing service", "tracer", tracingServer, "service", serviceName, "options", options)
	return &nilCloser{}
}

type nilCloser struct{}

func (c *nilCloser) Close() error { return nil }

type noopTracingServer struct{}

func (noopTracingServer) New(Span, string) Span                                     { return NoopSpan{} }
func (noopTracingServer) FromContext(context.Context) (Span, bool)                  { return nil, false }
func (noopTracingServer) NewContext(parent context.Context, _ Span) context.Context { return parent }

// NoopSpan implements Span with no-op methods.
type NoopSpan struct{}

func (NoopSpan) Finish()              {}
func (NoopSpan) Annotate(string, any) {}

func init() {
	tracingBackendFactories["noop"] = func(string) (tracingService, io.Closer, error) {
		return noopTracingServer{}, &nilCloser{}, nil
	}
}
