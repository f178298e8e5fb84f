package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ServerMetrics holds metric instruments for HTTP server telemetry.
// Initialize once at server startup and reuse throughout the application lifecycle.
type ServerMetrics struct {
	RequestCounter  metric.Int64Counter     // Total HTTP requests
	RequestDuration metric.Float64Histogram // HTTP request latency
	ErrorCounter    metric.Int64Counter     // Total HTTP errors (5xx)
}

// NewServerMetrics creates a new ServerMetrics instance with pre-configured instruments.
func NewServerMetrics() (*ServerMetrics, error) {
	meter := otel.Meter("dspace-rest/http")

	requestCounter, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	// Buckets: 5ms .. 5s
	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"http.server.error.count",
		metric.WithDescription("Total number of HTTP server errors (5xx)"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &ServerMetrics{
		RequestCounter:  requestCounter,
		RequestDuration: requestDuration,
		ErrorCounter:    errorCounter,
	}, nil
}

// RecordRequest records an HTTP request with method, route, status, and duration.
func (m *ServerMetrics) RecordRequest(ctx context.Context, method, route, status string, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.String(AttrHTTPStatusCode, status),
	)

	m.RequestCounter.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, durationMs, attrs)

	if len(status) > 0 && status[0] == '5' {
		m.ErrorCounter.Add(ctx, 1, attrs)
	}
}

// AuthMetrics holds metric instruments for authentication operations.
type AuthMetrics struct {
	AuthAttempts metric.Int64Counter // Total auth attempts
	AuthFailures metric.Int64Counter // Failed auth attempts
	AuthDuration metric.Float64Histogram
	TokenRefresh metric.Int64Counter // Silent token re-issues
}

// NewAuthMetrics creates metric instruments for authentication telemetry.
func NewAuthMetrics() (*AuthMetrics, error) {
	meter := otel.Meter("dspace-rest/auth")

	authAttempts, err := meter.Int64Counter(
		"auth.attempt.count",
		metric.WithDescription("Total number of authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	authFailures, err := meter.Int64Counter(
		"auth.failure.count",
		metric.WithDescription("Total number of failed authentication attempts"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	authDuration, err := meter.Float64Histogram(
		"auth.duration",
		metric.WithDescription("Authentication operation duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, err
	}

	tokenRefresh, err := meter.Int64Counter(
		"auth.token.refresh.count",
		metric.WithDescription("Login tokens re-issued because they went stale"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		AuthAttempts: authAttempts,
		AuthFailures: authFailures,
		AuthDuration: authDuration,
		TokenRefresh: tokenRefresh,
	}, nil
}

// RecordAuth records an authentication attempt with result and duration.
// A nil receiver is a no-op so callers need not check whether metrics are enabled.
func (a *AuthMetrics) RecordAuth(ctx context.Context, method string, success bool, durationMs float64) {
	if a == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrAuthMethod, method), // password, shibboleth, token, ...
		attribute.Bool(AttrAuthSuccess, success),
	)

	a.AuthAttempts.Add(ctx, 1, attrs)
	a.AuthDuration.Record(ctx, durationMs, attrs)

	if !success {
		a.AuthFailures.Add(ctx, 1, attrs)
	}
}

// RecordRefresh counts a silent token re-issue.
func (a *AuthMetrics) RecordRefresh(ctx context.Context) {
	if a == nil {
		return
	}
	a.TokenRefresh.Add(ctx, 1)
}

// PermissionMetrics counts evaluator decisions.
type PermissionMetrics struct {
	Decisions  metric.Int64Counter
	RuleErrors metric.Int64Counter
}

// NewPermissionMetrics creates metric instruments for permission evaluation.
func NewPermissionMetrics() (*PermissionMetrics, error) {
	meter := otel.Meter("dspace-rest/permission")

	decisions, err := meter.Int64Counter(
		"permission.decision.count",
		metric.WithDescription("Permission decisions by kind, action and outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	ruleErrors, err := meter.Int64Counter(
		"permission.rule.error.count",
		metric.WithDescription("Rule evaluations that failed and were treated as deny"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &PermissionMetrics{Decisions: decisions, RuleErrors: ruleErrors}, nil
}

// RecordDecision counts one evaluator decision. Nil receivers are ignored.
func (p *PermissionMetrics) RecordDecision(ctx context.Context, kind, action string, allowed bool) {
	if p == nil {
		return
	}
	p.Decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrTargetKind, kind),
		attribute.String(AttrAction, action),
		attribute.Bool(AttrAllowed, allowed),
	))
}

// RecordRuleError counts a failed rule evaluation. Nil receivers are ignored.
func (p *PermissionMetrics) RecordRuleError(ctx context.Context, rule string) {
	if p == nil {
		return
	}
	p.RuleErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrMatchedRule, rule)))
}

// Common metric attribute keys
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"

	AttrAuthSuccess = "auth.success"
)
