// Package logging provides the structured logger threaded explicitly through
// every component that can emit a diagnostic. There is no package-level
// global logger: every constructor in this module takes a *Logger argument,
// following the "global mutable state is threaded explicitly" design note.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger with the handful of fields this engine's
// diagnostics actually need: mapping/shot/worker identity.
type Logger struct {
	z *zap.Logger
}

// NewProduction builds a Logger that writes leveled JSON to stderr.
func NewProduction() *Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	z, err := cfg.Build()
	if err != nil {
		// zap's production config cannot fail to build; fall back rather than panic.
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// NewDevelopment builds a Logger with human-readable console output, used by
// the CLI when run interactively.
func NewDevelopment() *Logger {
	z, err := zap.NewDevelopment()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// Noop builds a Logger that discards everything, for unit tests that don't
// want to assert on log output.
func Noop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// NewTest builds a Logger at debug level writing to the given writer,
// used by tests that do want to assert on diagnostics.
func NewTest(w zapcore.WriteSyncer) *Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, w, zapcore.DebugLevel)
	return &Logger{z: zap.New(core)}
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)   { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)   { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field)  { l.z.Error(msg, fields...) }

func (l *Logger) Sync() error { return l.z.Sync() }

// Stderr is a convenience zapcore.WriteSyncer for NewTest callers that don't
// need a buffer.
var Stderr = zapcore.AddSync(os.Stderr)
