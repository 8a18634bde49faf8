// Package logger carries per-call logging fields on a context.
//
// Backend calls put their request ID and trace identifiers on the context;
// GetLogger returns the global logger with those fields attached.
package logger

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

// Field names attached by this package.
const (
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldOperation = "op"
)

type contextKey int

const loggerFieldsKey contextKey = iota

// loggerFields is copied on write so a parent context never sees a child's fields.
type loggerFields struct {
	fields map[string]any
}

func (lf *loggerFields) clone() *loggerFields {
	out := &loggerFields{fields: make(map[string]any, len(lf.fields)+1)}
	for k, v := range lf.fields {
		out.fields[k] = v
	}
	return out
}

// toSlice returns key/value pairs in key order.
func (lf *loggerFields) toSlice() []any {
	if len(lf.fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(lf.fields))
	for k := range lf.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		slice = append(slice, k, lf.fields[k])
	}
	return slice
}

func getLoggerFields(ctx context.Context) *loggerFields {
	if lf, ok := ctx.Value(loggerFieldsKey).(*loggerFields); ok {
		return lf
	}
	return &loggerFields{}
}

func withField(ctx context.Context, key string, value any) context.Context {
	lf := getLoggerFields(ctx).clone()
	lf.fields[key] = value
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// WithRequestID adds request_id. An empty ID leaves ctx unchanged.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return withField(ctx, FieldRequestID, requestID)
}

// WithOperation adds the backend operation name.
func WithOperation(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return withField(ctx, FieldOperation, op)
}

// WithSpanFields adds trace_id and span_id of the recording span in ctx, if any.
func WithSpanFields(ctx context.Context) context.Context {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return ctx
	}

	sc := span.SpanContext()
	if !sc.IsValid() {
		return ctx
	}

	lf := getLoggerFields(ctx).clone()
	lf.fields[FieldTraceID] = sc.TraceID().String()
	lf.fields[FieldSpanID] = sc.SpanID().String()
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// Fields returns the fields stored in ctx as key/value pairs.
func Fields(ctx context.Context) []any {
	return getLoggerFields(ctx).toSlice()
}

// GetLogger returns the global logger with the fields of ctx attached.
func GetLogger(ctx context.Context) core.Logger {
	base := logger.Global()

	fields := Fields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
