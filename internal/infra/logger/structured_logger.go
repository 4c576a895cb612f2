package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging interface used across the service
type Logger interface {
	Info(ctx context.Context, message string, fields map[string]interface{})
	Error(ctx context.Context, message string, err error, fields map[string]interface{})
	Warn(ctx context.Context, message string, fields map[string]interface{})
	Debug(ctx context.Context, message string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
}

// LoggerConfig configures the logrus backend
type LoggerConfig struct {
	Level       string
	Format      string
	ServiceName string
	Output      io.Writer
}

type correlationKey struct{}

// WithCorrelationID stores a request correlation ID in ctx
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation ID carried by ctx, if any
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// structuredLogger implements Logger with logrus
type structuredLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// NewStructuredLogger creates a logrus-backed Logger
func NewStructuredLogger(config LoggerConfig) Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		})
	}

	if config.Output != nil {
		l.SetOutput(config.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	return &structuredLogger{
		logger: l,
		fields: logrus.Fields{"service": config.ServiceName},
	}
}

func (l *structuredLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Info(message)
}

func (l *structuredLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	l.entry(ctx, err, fields).Error(message)
}

func (l *structuredLogger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Warn(message)
}

func (l *structuredLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	if !l.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	l.entry(ctx, nil, fields).Debug(message)
}

// WithFields returns a logger carrying additional fields
func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &structuredLogger{logger: l.logger, fields: merged}
}

func (l *structuredLogger) entry(ctx context.Context, err error, fields map[string]interface{}) *logrus.Entry {
	all := make(logrus.Fields, len(l.fields)+len(fields)+3)
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}
	if id := CorrelationID(ctx); id != "" {
		all["correlation_id"] = id
	}
	if err != nil {
		all[logrus.ErrorKey] = err.Error()
	}
	if pc, file, line, ok := runtime.Caller(2); ok {
		all["caller"] = fmt.Sprintf("%s:%d %s", file, line, runtime.FuncForPC(pc).Name())
	}
	return l.logger.WithFields(all)
}

// LogPerformance logs how long an operation took
func LogPerformance(ctx context.Context, logger Logger, operation string, duration time.Duration, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "performance"
	fields["operation"] = operation
	fields["duration_ms"] = duration.Milliseconds()
	fields["duration_human"] = duration.String()

	logger.Info(ctx, fmt.Sprintf("Performance: %s took %s", operation, duration), fields)
}

// LogSecurityEvent logs a security event at a level matching severity
func LogSecurityEvent(ctx context.Context, logger Logger, event string, severity string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "security"
	fields["security_event"] = event
	fields["severity"] = severity

	message := fmt.Sprintf("Security event: %s", event)
	switch severity {
	case "HIGH":
		logger.Error(ctx, message, nil, fields)
	case "MEDIUM":
		logger.Warn(ctx, message, fields)
	default:
		logger.Info(ctx, message, fields)
	}
}
