// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

var logLevel = new(slog.LevelVar)

func init() {
	logLevel.Set(slog.LevelInfo)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetLevel changes the global log level. Unknown names leave it unchanged.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	}
}

// SetOutput redirects the global logger to w, keeping the current level.
// It must be called before any component logs.
func SetOutput(w io.Writer) {
	GlobalLogger.Logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID is the context key holding the id of the intent being handled.
const CorrelationID LogContextKey = "correlation_id"

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableIntentLogging bool
	EnableHubLogging    bool
}

var (
	// Config holds the current logging configuration.
	Config = LoggingConfig{
		EnableIntentLogging: true,
		EnableHubLogging:    true,
	}
)

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// EnsureCorrelationID returns ctx unchanged if it already carries a
// correlation ID, otherwise a child context with a fresh one.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if ExtractCorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, GenerateCorrelationID())
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// IntentLogger provides structured logging for intents handled by one
// component of the core.
type IntentLogger struct {
	component string
	logger    *Logger
}

// NewIntentLogger creates a new IntentLogger for the given component.
func NewIntentLogger(component string) *IntentLogger {
	return &IntentLogger{
		component: component,
		logger:    GlobalLogger,
	}
}

func (l *IntentLogger) attrs(ctx context.Context, intent string, fields map[string]interface{}) []any {
	attrs := []any{
		slog.String("component", l.component),
		slog.String("intent", intent),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// LogIntent logs an intent that was applied.
func (l *IntentLogger) LogIntent(ctx context.Context, intent string, fields map[string]interface{}) {
	if !Config.EnableIntentLogging {
		return
	}
	l.logger.InfoContext(ctx, "intent applied", l.attrs(ctx, intent, fields)...)
}

// LogRejected logs an intent refused for an expected reason, such as a
// validation failure.
func (l *IntentLogger) LogRejected(ctx context.Context, intent string, err error) {
	if !Config.EnableIntentLogging {
		return
	}
	l.logger.WarnContext(ctx, "intent rejected", l.attrs(ctx, intent, map[string]interface{}{"reason": err.Error()})...)
}

// LogIgnored logs an intent that became a no-op, e.g. a stale post id.
func (l *IntentLogger) LogIgnored(ctx context.Context, intent string, err error) {
	if !Config.EnableIntentLogging {
		return
	}
	l.logger.DebugContext(ctx, "intent ignored", l.attrs(ctx, intent, map[string]interface{}{"reason": err.Error()})...)
}

// LogError logs an unexpected failure.
func (l *IntentLogger) LogError(ctx context.Context, intent string, err error) {
	l.logger.ErrorContext(ctx, "intent failed", l.attrs(ctx, intent, map[string]interface{}{"error": err.Error()})...)
}

// LogAsyncOperationStart logs the start of an asynchronous operation.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_start"),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "async operation started", attrs...)
}

// LogAsyncOperationEnd logs the completion of an asynchronous operation.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_end"),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "async operation completed", attrs...)
}

// HubLogger provides structured logging for subscription hubs.
type HubLogger struct {
	hubName string
	logger  *Logger
}

// NewHubLogger creates a new HubLogger for the given hub.
func NewHubLogger(hubName string) *HubLogger {
	return &HubLogger{
		hubName: hubName,
		logger:  GlobalLogger,
	}
}

// LogSubscribe logs a new subscriber.
func (l *HubLogger) LogSubscribe(id string, total int) {
	if !Config.EnableHubLogging {
		return
	}
	l.logger.Info("subscriber added",
		slog.String("hub", l.hubName),
		slog.String("subscriber_id", id),
		slog.Int("subscribers", total),
	)
}

// LogUnsubscribe logs a removed subscriber.
func (l *HubLogger) LogUnsubscribe(id string, total int) {
	if !Config.EnableHubLogging {
		return
	}
	l.logger.Info("subscriber removed",
		slog.String("hub", l.hubName),
		slog.String("subscriber_id", id),
		slog.Int("subscribers", total),
	)
}

// LogDrop logs an update that was coalesced or dropped for a slow subscriber.
func (l *HubLogger) LogDrop(id, reason string) {
	if !Config.EnableHubLogging {
		return
	}
	l.logger.Debug("subscriber update dropped",
		slog.String("hub", l.hubName),
		slog.String("subscriber_id", id),
		slog.String("reason", reason),
	)
}
