package postgresengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/openshelf/circulation-go/inventory"
)

const (
	metricScanDuration    = "inventorystore_scan_duration_seconds"
	metricCommitDuration  = "inventorystore_commit_duration_seconds"
	metricDatabaseErrors  = "inventorystore_database_errors_total"
	metricGuardViolations = "inventorystore_guard_violations_total"

	spanNameScan   = "inventorystore.scan"
	spanNameCommit = "inventorystore.commit"

	spanAttrOperation    = "operation"
	spanAttrErrorType    = "error_type"
	spanAttrRecordCount  = "record_count"
	spanAttrGuardCount   = "guard_count"
	spanAttrRowsAffected = "rows_affected"
	spanAttrDurationMS   = "duration_ms"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeBuildQuery    = "build_query"
	errorTypeQuery         = "query"
	errorTypeExec          = "exec"
	errorTypeGuardViolated = "guard_violated"
)

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (s *InventoryStore) logQueryWithDuration(
	ctx context.Context,
	sqlQuery string,
	action string,
	duration time.Duration,
) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if a logger is configured.
// The contextual logger is preferred for automatic trace correlation.
func (s *InventoryStore) logOperation(ctx context.Context, action string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (s *InventoryStore) logError(
	ctx context.Context,
	message string,
	err error,
	args ...any,
) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}
}

// logWarn logs non-critical issues at warn level if a logger is configured.
func (s *InventoryStore) logWarn(ctx context.Context, message string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, message, args...)
		return
	}

	if s.logger != nil {
		s.logger.Warn(message, args...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordErrorMetric records a database error if the metrics collector is configured.
func (s *InventoryStore) recordErrorMetric(ctx context.Context, operation, errorType string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"status":          statusError,
		spanAttrErrorType: errorType,
	}

	if contextualCollector, ok := s.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
	} else {
		s.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
	}
}

// recordDurationMetric records an operation duration if the metrics collector is configured.
func (s *InventoryStore) recordDurationMetric(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"status":          status,
	}

	if contextualCollector, ok := s.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
	} else {
		s.metricsCollector.RecordDuration(metricName, duration, labels)
	}
}

// recordGuardViolationMetric records a guard violation if the metrics collector is configured.
func (s *InventoryStore) recordGuardViolationMetric(ctx context.Context, operation string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"conflict_type":   "guard",
	}

	if contextualCollector, ok := s.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricGuardViolations, labels)
	} else {
		s.metricsCollector.IncrementCounter(metricGuardViolations, labels)
	}
}

// startScanSpan starts a tracing span for scan operations if the tracing collector is configured.
func (s *InventoryStore) startScanSpan(ctx context.Context) (SpanContext, context.Context) {
	if s.tracingCollector == nil {
		return nil, ctx
	}

	spanAttrs := map[string]string{
		spanAttrOperation: logActionScan,
	}

	newCtx, span := s.tracingCollector.StartSpan(ctx, spanNameScan, spanAttrs)

	return span, newCtx
}

// startCommitSpan starts a tracing span for commit operations if the tracing collector is configured.
func (s *InventoryStore) startCommitSpan(ctx context.Context, recordCount, guardCount int) (SpanContext, context.Context) {
	if s.tracingCollector == nil {
		return nil, ctx
	}

	spanAttrs := map[string]string{
		spanAttrOperation:   logActionCommit,
		spanAttrRecordCount: fmt.Sprintf("%d", recordCount),
		spanAttrGuardCount:  fmt.Sprintf("%d", guardCount),
	}

	newCtx, span := s.tracingCollector.StartSpan(ctx, spanNameCommit, spanAttrs)

	return span, newCtx
}

// finishSpanError finishes a span with error details.
func (s *InventoryStore) finishSpanError(span SpanContext, errorType string) {
	if s.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusError)
	span.AddAttribute(spanAttrErrorType, errorType)

	s.tracingCollector.FinishSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})
}

// finishScanSpanSuccess finishes a successful scan span with results.
func (s *InventoryStore) finishScanSpanSuccess(span SpanContext, recordCount int, duration time.Duration) {
	if s.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusSuccess)
	span.AddAttribute(spanAttrRecordCount, fmt.Sprintf("%d", recordCount))
	span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))

	s.tracingCollector.FinishSpan(span, statusSuccess, map[string]string{
		spanAttrRecordCount: fmt.Sprintf("%d", recordCount),
	})
}

// finishCommitSpanSuccess finishes a successful commit span with results.
func (s *InventoryStore) finishCommitSpanSuccess(span SpanContext, rowsAffected int64, duration time.Duration) {
	if s.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusSuccess)
	span.AddAttribute(spanAttrRowsAffected, fmt.Sprintf("%d", rowsAffected))
	span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))

	s.tracingCollector.FinishSpan(span, statusSuccess, map[string]string{
		spanAttrRowsAffected: fmt.Sprintf("%d", rowsAffected),
	})
}
