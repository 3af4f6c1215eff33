package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OperationContext tracks one JSON-RPC request from dispatch to response.
type OperationContext struct {
	OperationName string
	RequestID     string
	SessionID     string
	StartTime     time.Time
	Metrics       *Metrics
}

// NewOperationContext creates a new operation context.
// If metrics is nil, metric recording is silently skipped.
func NewOperationContext(operationName, requestID, sessionID string, metrics *Metrics) *OperationContext {
	return &OperationContext{
		OperationName: operationName,
		RequestID:     requestID,
		SessionID:     sessionID,
		StartTime:     time.Now(),
		Metrics:       metrics,
	}
}

type operationContextKey struct{}

// WithOperationContext stores an OperationContext in the context.
func WithOperationContext(ctx context.Context, oc *OperationContext) context.Context {
	return context.WithValue(ctx, operationContextKey{}, oc)
}

// OperationContextFromContext retrieves the OperationContext from context, or nil.
func OperationContextFromContext(ctx context.Context) *OperationContext {
	if oc, ok := ctx.Value(operationContextKey{}).(*OperationContext); ok {
		return oc
	}
	return nil
}

// Start starts the request span and records the request start metric.
func (oc *OperationContext) Start(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanRPCRequest)
	span.SetAttributes(
		attribute.String(AttrOperationName, oc.OperationName),
		attribute.String(AttrRequestID, oc.RequestID),
	)
	if oc.SessionID != "" {
		span.SetAttributes(attribute.String(AttrSessionID, oc.SessionID))
	}
	oc.Metrics.RecordRequestStart(ctx)
	return WithOperationContext(ctx, oc), span
}

// End ends the span and records request-end metrics.
func (oc *OperationContext) End(ctx context.Context, span trace.Span, status string, err error) {
	duration := time.Since(oc.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	oc.Metrics.RecordRequestEnd(ctx, oc.OperationName, status, duration)
}
