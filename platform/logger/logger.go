// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TenantIDKey is the context key for the tenant being served
	TenantIDKey contextKey = "tenant_id"
	// SourceKey is the context key for the lead source tag
	SourceKey contextKey = "source"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to w. Tests pass io.Discard.
func NewWithWriter(env string, w io.Writer) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewWithWriter("production", io.Discard)
}

// WithContext returns a logger with context values extracted.
// Supports request_id, tenant_id and source from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if tenantID, ok := ctx.Value(TenantIDKey).(int64); ok && tenantID != 0 {
		newLogger = newLogger.WithTenant(tenantID)
	}

	if source, ok := ctx.Value(SourceKey).(string); ok && source != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("source", source)),
		}
	}

	return newLogger
}

// ContextWithTenant stores the tenant ID for later log enrichment.
func ContextWithTenant(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// ContextWithSource stores the lead source tag for later log enrichment.
func ContextWithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// WithTenant returns a logger with tenant ID
func (l *Logger) WithTenant(tenantID int64) *Logger {
	return &Logger{
		Logger: l.With(slog.Int64("tenant_id", tenantID)),
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

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
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

// LeadIngested logs the outcome of a single ingestion.
func (l *Logger) LeadIngested(tenantID, leadID int64, source, outcome string) {
	l.Info("lead_ingested",
		slog.Int64("tenant_id", tenantID),
		slog.Int64("lead_id", leadID),
		slog.String("source", source),
		slog.String("outcome", outcome),
	)
}

// AssignmentSkipped logs a lead left unassigned because its scope had no eligible agents.
func (l *Logger) AssignmentSkipped(tenantID, leadID int64, campaignID *int64) {
	attrs := []any{
		slog.Int64("tenant_id", tenantID),
		slog.Int64("lead_id", leadID),
	}
	if campaignID != nil {
		attrs = append(attrs, slog.Int64("campaign_id", *campaignID))
	}
	l.Warn("assignment_skipped", attrs...)
}

// SyncCompleted logs the result of one integration sync run.
func (l *Logger) SyncCompleted(integrationID int64, kind string, fetched, ingested int) {
	l.Info("integration_sync_completed",
		slog.Int64("integration_id", integrationID),
		slog.String("kind", kind),
		slog.Int("fetched", fetched),
		slog.Int("ingested", ingested),
	)
}
