// logger.go provides logging shorthands for the primepipe project.

// Package logger provides logging utilities for the primepipe project.
package logger

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// Logger is just a type-alias for logger.Logger for convenience.
type Logger = logger.Logger

type Level = logger.Level

const (
	LevelFatal   = logger.LevelFatal
	LevelPanic   = logger.LevelPanic
	LevelError   = logger.LevelError
	LevelWarning = logger.LevelWarning
	LevelInfo    = logger.LevelInfo
	LevelDebug   = logger.LevelDebug
	LevelTrace   = logger.LevelTrace
)

func SetDefault(defaultLogger func() Logger) {
	logger.Default = defaultLogger
}

func FromCtx(ctx context.Context) Logger {
	return logger.FromCtx(ctx)
}

func CtxWithLogger(ctx context.Context, l Logger) context.Context {
	return logger.CtxWithLogger(ctx, l)
}

// Debugf is just a shorthand for Logf(ctx, logger.LevelDebug, ...)
func Debugf(ctx context.Context, format string, args ...any) {
	logger.Debugf(ctx, format, args...)
}

// Infof is just a shorthand for Logf(ctx, logger.LevelInfo, ...)
func Infof(ctx context.Context, format string, args ...any) {
	logger.Infof(ctx, format, args...)
}

// Warnf is just a shorthand for Logf(ctx, logger.LevelWarn, ...)
func Warnf(ctx context.Context, format string, args ...any) {
	logger.Warnf(ctx, format, args...)
}

// Errorf is just a shorthand for Logf(ctx, logger.LevelError, ...)
func Errorf(ctx context.Context, format string, args ...any) {
	logger.Errorf(ctx, format, args...)
}

// Panicf is just a shorthand for Logf(ctx, logger.LevelPanic, ...)
//
// Be aware: Panic level also triggers a `panic`.
func Panicf(ctx context.Context, format string, args ...any) {
	logger.Panicf(ctx, format, args...)
}

// Panic is just a shorthand for Log(ctx, logger.LevelPanic, ...)
//
// Be aware: Panic level also triggers a `panic`.
func Panic(ctx context.Context, values ...any) {
	logger.Panic(ctx, values...)
}

// Logf logs an unstructured message. All contextual structured
// fields are also logged.
func Logf(ctx context.Context, level Level, format string, args ...any) {
	logger.Logf(ctx, level, format, args...)
}
