package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger writes JSON logs to stdout, an optional file and New Relic
type ZapLogger struct {
	*zap.Logger
	service string
	nrApp   *newrelic.Application
	file    *os.File
}

// ZapConfig holds Zap logger configuration
type ZapConfig struct {
	Level    string
	FilePath string
	Service  string
}

// newRelicCore forwards log entries to New Relic log management
type newRelicCore struct {
	zapcore.LevelEnabler
	nrApp   *newrelic.Application
	service string
	fields  []zapcore.Field
}

func (c *newRelicCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field{}, c.fields...), fields...)
	return &clone
}

func (c *newRelicCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *newRelicCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	enc.Fields["service"] = c.service
	enc.Fields["caller"] = entry.Caller.TrimmedPath()
	if entry.Stack != "" {
		enc.Fields["stacktrace"] = entry.Stack
	}

	c.nrApp.RecordLog(newrelic.LogData{
		Timestamp:  entry.Time.UnixMilli(),
		Message:    entry.Message,
		Severity:   entry.Level.String(),
		Attributes: enc.Fields,
	})
	return nil
}

func (c *newRelicCore) Sync() error { return nil }

// NewZapLogger creates a new Zap application logger
func NewZapLogger(config ZapConfig, nrApp *newrelic.Application) (*ZapLogger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(config.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})

	zl := &ZapLogger{service: config.Service, nrApp: nrApp}
	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)}

	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		zl.file = file
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), level))
	}

	if nrApp != nil {
		cores = append(cores, &newRelicCore{LevelEnabler: level, nrApp: nrApp, service: config.Service})
	}

	zl.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("service", config.Service))
	return zl, nil
}

// NewNopLogger returns a logger that discards everything, for tests
func NewNopLogger() *ZapLogger {
	return &ZapLogger{Logger: zap.NewNop()}
}

// InitZapLoggerFromConfig initializes Zap logger directly from config models
func InitZapLoggerFromConfig(configs *models.Config, nrApp *newrelic.Application) (*ZapLogger, error) {
	return NewZapLogger(ZapConfig{
		Level:    configs.Logger.Level,
		FilePath: configs.Logger.FilePath,
		Service:  configs.App.Name,
	}, nrApp)
}

// Close flushes buffered entries and closes the log file
func (zl *ZapLogger) Close() error {
	_ = zl.Logger.Sync()
	if zl.file != nil {
		return zl.file.Close()
	}
	return nil
}

// Named returns a child logger tagged with a component name
func (zl *ZapLogger) Named(component string) *ZapLogger {
	clone := *zl
	clone.Logger = zl.Logger.With(zap.String("component", component))
	return &clone
}

// With returns a child logger carrying fields
func (zl *ZapLogger) With(fields ...Field) *ZapLogger {
	clone := *zl
	clone.Logger = zl.Logger.With(fields...)
	return &clone
}

// WithNewRelicContext adds trace correlation fields for txn
func (zl *ZapLogger) WithNewRelicContext(txn *newrelic.Transaction) *ZapLogger {
	if txn == nil {
		return zl
	}
	md := txn.GetLinkingMetadata()
	if md.TraceID == "" {
		return zl
	}
	return zl.With(zap.String("trace.id", md.TraceID), zap.String("span.id", md.SpanID))
}

// LogHTTPRequest logs a finished HTTP request at a level derived from its status
func (zl *ZapLogger) LogHTTPRequest(txn *newrelic.Transaction, method, path, clientIP, userID, requestID string, statusCode int, latency time.Duration, err error) {
	l := zl.WithNewRelicContext(txn).With(
		zap.Int("status", statusCode),
		zap.Int64("latency_ms", latency.Milliseconds()),
		zap.String("client_ip", clientIP),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("user_id", userID),
		zap.String("request_id", requestID),
	)

	switch {
	case statusCode >= 500:
		l.Error("Server error", zap.Error(err))
	case statusCode >= 400:
		l.Warn("Client error")
	default:
		l.Info("Request processed")
	}
}
