package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new span for a service operation.
// This is a convenience wrapper around otel.Tracer().Start() with common patterns.
//
// Usage in services:
//
//	ctx, span := telemetry.StartSpan(ctx, "dspace-rest/permission", "permission.HasPermission",
//	    attribute.String(telemetry.AttrTargetKind, "item"),
//	    attribute.String(telemetry.AttrAction, "READ"),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span and sets the span status to error.
// This is a convenience wrapper to ensure consistent error recording.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span with optional attributes.
// Use for business events such as a rule failing or an impersonation.
//
// Example:
//
//	telemetry.AddEvent(span, "rule.failed",
//	    attribute.String(telemetry.AttrMatchedRule, "task-claim"),
//	)
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Common span attribute keys
const (
	// Principal attributes
	AttrPrincipalID    = "principal.id"
	AttrImpersonatedBy = "principal.impersonated_by"
	AttrSpecialGroups  = "principal.special_groups"

	// Permission attributes
	AttrTargetKind  = "permission.target_kind"
	AttrTargetID    = "permission.target_id"
	AttrAction      = "permission.action"
	AttrAllowed     = "permission.allowed"
	AttrMatchedRule = "permission.rule"

	// Authentication attributes
	AttrAuthMethod = "auth.method"
)
