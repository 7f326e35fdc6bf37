// Package logging provides the structured logger shared by the blindsig roles and CLI.
package logging

import (
	"context"
	"os"

	log "github.com/ipfs/go-log/v2"
	"go.uber.org/zap"
)

// LevelEnv names the environment variable consulted by Setup when no level is given.
const LevelEnv = "BLINDSIG_LOG_LEVEL"

// Logger is a logger interface.
type Logger interface {
	// Debug logs a message at debug level.
	// keysAndValues are treated as key-value pairs (e.g., "key1", value1, "key2", value2).
	Debug(msg string, keysAndValues ...interface{})
	// Info logs a message at info level.
	Info(msg string, keysAndValues ...interface{})
	// Warn logs a message at warn level.
	Warn(msg string, keysAndValues ...interface{})
	// Error logs a message at error level.
	Error(msg string, keysAndValues ...interface{})
	// Fatal logs a message at fatal level and exits.
	Fatal(msg string, keysAndValues ...interface{})
	// With returns a new logger with the given key-value pair.
	With(key string, value interface{}) Logger
	// NewSystem returns a new logger with the given name.
	NewSystem(name string) Logger
}

// NewLogger returns a logger for the named subsystem.
func NewLogger(name string) Logger {
	return &ipfsLogger{
		lg:                  log.Logger(name).SugaredLogger.Desugar().WithOptions(zap.AddCallerSkip(1)).Sugar(),
		commonKeysAndValues: []interface{}{},
	}
}

type ipfsLogger struct {
	lg                  *zap.SugaredLogger
	commonKeysAndValues []interface{}
}

func (l *ipfsLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.lg.Debugw(msg, keysAndValues...)
}

func (l *ipfsLogger) Info(msg string, keysAndValues ...interface{}) {
	l.lg.Infow(msg, keysAndValues...)
}

func (l *ipfsLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.lg.Warnw(msg, keysAndValues...)
}

func (l *ipfsLogger) Error(msg string, keysAndValues ...interface{}) {
	l.lg.Errorw(msg, keysAndValues...)
}

func (l *ipfsLogger) Fatal(msg string, keysAndValues ...interface{}) {
	l.lg.Fatalw(msg, keysAndValues...)
}

func (l *ipfsLogger) With(key string, value interface{}) Logger {
	kv := make([]interface{}, 0, len(l.commonKeysAndValues)+2)
	kv = append(kv, l.commonKeysAndValues...)
	return &ipfsLogger{
		lg:                  l.lg.With(key, value),
		commonKeysAndValues: append(kv, key, value),
	}
}

func (l *ipfsLogger) NewSystem(name string) Logger {
	lg := log.Logger(name)
	return &ipfsLogger{
		lg:                  lg.SugaredLogger.Desugar().WithOptions(zap.AddCallerSkip(1)).Sugar().With(l.commonKeysAndValues...),
		commonKeysAndValues: append([]interface{}{}, l.commonKeysAndValues...),
	}
}

// Setup configures the global log level. An empty level falls back to BLINDSIG_LOG_LEVEL
// and then to info; an unparsable level also falls back to info.
func Setup(level string) {
	if level == "" {
		level = os.Getenv(LevelEnv)
	}
	if level == "" {
		level = "info"
	}

	zapLevel, err := log.Parse(level)
	if err != nil {
		zapLevel = log.LevelInfo
	}

	log.SetupLogging(log.Config{
		Level:  zapLevel,
		Stderr: true,
	})
}

type loggerContextKey struct{}

// WithLogger attaches the provided logger to the context.
func WithLogger(ctx context.Context, lg Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, lg)
}

// FromContext retrieves the logger stored in the context.
// If none is found, it returns a logger for the "blindsig" system.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(Logger); ok {
		return l
	}
	return NewLogger("blindsig")
}
