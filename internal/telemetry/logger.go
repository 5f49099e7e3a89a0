// Package telemetry wraps structured logging and metrics registration for
// the agent runtime (cmd/aura-agentd) and anything it wires together, in
// the shape the teacher's log/ and metrics/ packages use: a small
// interface with a no-op implementation for tests, and a prometheus
// registration helper for the domain packages that want counters.
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled, structured logging surface every long-running
// piece of the agent runtime takes instead of reaching for a package-level
// global, mirroring the teacher's log.Logger's geth-style level methods
// trimmed to what this runtime actually calls.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
}

type zapLogger struct {
	inner *zap.Logger
}

// NewLogger builds a Logger backed by a production zap.Logger at the
// given level ("debug", "info", "warn", "error"; unrecognised values
// fall back to "info").
func NewLogger(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	inner, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{inner: inner}, nil
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func (z *zapLogger) Debug(msg string, fields ...zap.Field) { z.inner.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...zap.Field)  { z.inner.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...zap.Field)  { z.inner.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...zap.Field) { z.inner.Error(msg, fields...) }

func (z *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{inner: z.inner.With(fields...)}
}

// NoOpLogger discards everything, for tests and simulation runs that
// don't want log output competing with assertion failures.
type NoOpLogger struct{}

// NewNoOpLogger returns a Logger that discards every call.
func NewNoOpLogger() Logger { return NoOpLogger{} }

func (NoOpLogger) Debug(string, ...zap.Field)  {}
func (NoOpLogger) Info(string, ...zap.Field)   {}
func (NoOpLogger) Warn(string, ...zap.Field)   {}
func (NoOpLogger) Error(string, ...zap.Field)  {}
func (n NoOpLogger) With(...zap.Field) Logger  { return n }
