package postgresengine

import (
	"context"
	"time"

	"github.com/openshelf/circulation-go/inventory"
)

// Logger interface for SQL query logging, operational information, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector interface for collecting InventoryStore performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information from InventoryStore operations.
// This interface follows the same dependency-free pattern as MetricsCollector, allowing users to integrate
// with any tracing backend (OpenTelemetry, Jaeger, Zipkin, etc.) by implementing this interface.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
// This interface follows the same dependency-free pattern as MetricsCollector and TracingCollector,
// allowing users to integrate with any logging backend that supports context-based correlation.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// Option defines a functional option for configuring InventoryStore.
type Option func(*InventoryStore) error

// WithTableName sets the record table name for the InventoryStore.
func WithTableName(tableName string) Option {
	return func(s *InventoryStore) error {
		if tableName == "" {
			return inventory.ErrEmptyTableName
		}

		s.recordTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the InventoryStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Record counts, durations, guard violations (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(s *InventoryStore) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the InventoryStore.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled, enabling unified observability.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(s *InventoryStore) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the InventoryStore.
// The collector will receive performance and operational metrics including
// scan/commit durations, record counts, guard violations, and database errors.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *InventoryStore) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the InventoryStore.
// The tracing collector will receive distributed tracing information including
// span creation for scan/commit operations, context propagation, and error tracking.
func WithTracing(collector TracingCollector) Option {
	return func(s *InventoryStore) error {
		s.tracingCollector = collector
		return nil
	}
}
