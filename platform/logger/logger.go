// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TenantIDKey is the context key for tenant ID
	TenantIDKey contextKey = "tenant_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with request_id and tenant_id extracted
// from context when present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok && tenantID != "" {
		newLogger = newLogger.WithTenantID(tenantID)
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// WithTenantID returns a logger with tenant ID
func (l *Logger) WithTenantID(tenantID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("tenant_id", tenantID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// SecurityEvent logs security-relevant rejections such as bad webhook
// signatures or invalid ingest keys. These are expected under probing and
// must stand out in log search, hence the dedicated event name.
func (l *Logger) SecurityEvent(event, detail, clientIP string) {
	l.Warn("security_event",
		slog.String("event", event),
		slog.String("detail", detail),
		slog.String("client_ip", clientIP),
	)
}

// WebhookEvent logs the outcome of processing a payment provider event.
func (l *Logger) WebhookEvent(eventID, eventType string, applied bool) {
	l.Info("webhook_event",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.Bool("applied", applied),
	)
}

// QuotaBlocked logs a scoring request rejected by the usage quota.
func (l *Logger) QuotaBlocked(tenantID string, usage, limit int) {
	l.Warn("quota_blocked",
		slog.String("tenant_id", tenantID),
		slog.Int("usage", usage),
		slog.Int("limit", limit),
	)
}

// ClassifierFallback logs that the AI classifier failed and the
// deterministic fallback verdict was used instead.
func (l *Logger) ClassifierFallback(reason string) {
	l.Warn("classifier_fallback", slog.String("reason", reason))
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
