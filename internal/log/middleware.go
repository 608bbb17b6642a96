package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogTransactionCreated logs a persisted transaction
func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, id, kind string, amountCents int64, walletID, categoryID string) {
	fields := NewFields().
		WithTransaction(kind, amountCents, walletID, categoryID).
		WithOperation(OpCreate).
		ToSlice()
	fields = append(fields, "id", id)
	sl.logger.WithComponent(ComponentStorage).InfoContext(ctx, "Transaction created", fields...)
}

// LogBudgetAlert logs a warning or exceeded budget. OK budgets are logged at debug.
func (sl *StructuredLogger) LogBudgetAlert(ctx context.Context, budgetID, label, month string, percentage float64, status string) {
	fields := NewFields().
		WithAlert(budgetID, label, month, percentage, status).
		ToSlice()
	l := sl.logger.WithComponent(ComponentBudget)
	if status == "ok" {
		l.DebugContext(ctx, "Budget within limit", fields...)
		return
	}
	l.WarnContext(ctx, "Budget alert", fields...)
}

// LogRowsDropped logs rows discarded by normalization.
func (sl *StructuredLogger) LogRowsDropped(ctx context.Context, table string, dropped int) {
	if dropped == 0 {
		return
	}
	sl.logger.WithComponent(ComponentSource).DebugContext(ctx, "Dropped malformed rows",
		FieldTable, table, FieldDropped, dropped, FieldOperation, OpNormalize)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, allFields.ToSlice()...)
}
