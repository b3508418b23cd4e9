// Package logger provides the process-wide structured logger.
package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var (
	global      *zap.Logger
	sugared     *zap.SugaredLogger
	atomicLevel = zap.NewAtomicLevel()
)

// Config controls logger construction.
type Config struct {
	Level       string `yaml:"level" json:"level"`             // debug, info, warn, error
	Format      string `yaml:"format" json:"format"`           // json, console
	ServiceName string `yaml:"service_name" json:"service_name"`
	Environment string `yaml:"environment" json:"environment"` // dev, staging, prod
}

// Init builds the global logger. Call once at startup; until then the
// package falls back to zap's production defaults.
func Init(cfg *Config) error {
	atomicLevel.SetLevel(parseLevel(cfg.Level))

	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.MillisDurationEncoder

	fields := map[string]interface{}{"service": cfg.ServiceName}
	if cfg.Environment != "" {
		fields["env"] = cfg.Environment
	}

	zcfg := zap.Config{
		Level:            atomicLevel,
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    fields,
	}

	// package-level helpers add one wrapper frame, skip it for caller info
	built, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	global = built
	sugared = built.Sugar()
	return nil
}

func parseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// SetLevel changes the level of the running logger.
// Unparseable input leaves the current level alone.
func SetLevel(levelStr string) {
	if level, err := zapcore.ParseLevel(levelStr); err == nil {
		atomicLevel.SetLevel(level)
	}
}

// L returns the global logger, falling back to a production logger
// when Init has not run (tests, tools).
func L() *zap.Logger {
	if global != nil {
		return global
	}
	global, _ = zap.NewProduction()
	return global
}

// S returns the global sugared logger.
func S() *zap.SugaredLogger {
	if sugared != nil {
		return sugared
	}
	sugared = L().Sugar()
	return sugared
}

// WithContext returns the logger stored in ctx, or the global one.
func WithContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return L()
}

// NewContext stores a child logger with extra fields in ctx.
func NewContext(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, ctxKey{}, L().With(fields...))
}

// Debug logs at debug level. Accepts loose key/value pairs and zap fields.
func Debug(msg string, keysAndValues ...interface{}) {
	S().Debugw(msg, keysAndValues...)
}

// Info logs at info level.
func Info(msg string, keysAndValues ...interface{}) {
	S().Infow(msg, keysAndValues...)
}

// Warn logs at warn level.
func Warn(msg string, keysAndValues ...interface{}) {
	S().Warnw(msg, keysAndValues...)
}

// Error logs at error level.
func Error(msg string, keysAndValues ...interface{}) {
	S().Errorw(msg, keysAndValues...)
}

// Fatal logs at fatal level and exits.
func Fatal(msg string, keysAndValues ...interface{}) {
	S().Fatalw(msg, keysAndValues...)
}

// Sync flushes buffered entries.
func Sync() error {
	if global == nil {
		return nil
	}
	return global.Sync()
}
