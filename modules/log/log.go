// Package log provides repod's process-wide structured logger. Every
// service package logs through here rather than through fmt or the bare
// standard-library log package, so that request attribution (tenant,
// repository, request id) is always attached consistently.
package log

import (
	"context"

	"go.uber.org/zap"
)

var base *zap.Logger = zap.NewNop()

// Init installs the process logger. level is one of zap's level strings
// ("debug", "info", "warn", "error"); json selects the production JSON
// encoder over the human-readable console encoder.
func Init(level string, json bool) error {
	var zapLevel zap.AtomicLevel
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if !json {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zapLevel

	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	base = logger
	return nil
}

// L returns the process logger.
func L() *zap.Logger { return base }

// S returns the process logger's sugared form, for call sites that prefer
// printf-style arguments over structured fields.
func S() *zap.SugaredLogger { return base.Sugar() }

type ctxKey struct{}

// WithContext attaches a logger (already annotated with request-scoped
// fields via With) to ctx.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached to ctx by WithContext, or the
// process logger if none was attached.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return base
}

// Sync flushes any buffered log entries. Call on shutdown.
func Sync() error {
	return base.Sync()
}
