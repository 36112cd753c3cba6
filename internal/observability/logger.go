package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger builds a zap logger for the environment: JSON production
// output for "production", console development output otherwise. level
// overrides the default level when non-empty.
func NewZapLogger(environment, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// ZapLogger adapts *zap.Logger to the key/value logging interface.
type ZapLogger struct {
	logger *zap.Logger
}

// NewLogger wraps logger; a nil logger discards everything.
func NewLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

func (a *ZapLogger) Debug(msg string, args ...any) { a.logger.Debug(msg, fields(args)...) }
func (a *ZapLogger) Info(msg string, args ...any)  { a.logger.Info(msg, fields(args)...) }
func (a *ZapLogger) Warn(msg string, args ...any)  { a.logger.Warn(msg, fields(args)...) }
func (a *ZapLogger) Error(msg string, args ...any) { a.logger.Error(msg, fields(args)...) }

// Sync flushes buffered entries.
func (a *ZapLogger) Sync() error { return a.logger.Sync() }

// fields pairs up alternating keys and values. Errors become zap.Error
// fields; a trailing key without a value is kept under "!BADKEY".
func fields(args []any) []zap.Field {
	out := make([]zap.Field, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			out = append(out, zap.Any("!BADKEY", key))
			break
		}
		if err, isErr := args[i+1].(error); isErr && key == "error" {
			out = append(out, zap.Error(err))
			continue
		}
		out = append(out, zap.Any(key, args[i+1]))
	}
	return out
}
