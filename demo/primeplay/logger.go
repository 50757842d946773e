// logger.go provides logging utilities for the prime playback demo.

package main

import (
	"context"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/xaionaro-go/observability"

	"github.com/xaionaro-go/primepipe/backend/libav"
	"github.com/xaionaro-go/primepipe/logger"
)

func withLogger(ctx context.Context, loggerLevel logger.Level) context.Context {
	runtime.DefaultCallerPCFilter = observability.CallerPCFilter(runtime.DefaultCallerPCFilter)
	l := logrus.Default().WithLevel(loggerLevel)
	ctx = logger.CtxWithLogger(context.Background(), l)
	logger.SetDefault(func() logger.Logger {
		return l
	})

	astiav.SetLogLevel(libav.LogLevelToLibav(l.Level()))
	astiav.SetLogCallback(func(c astiav.Classer, level astiav.LogLevel, fmt, msg string) {
		var cs string
		if c != nil {
			if cl := c.Class(); cl != nil {
				cs = " - class: " + cl.String()
			}
		}
		logger.Logf(ctx,
			libav.LogLevelFromLibav(level),
			"%s%s",
			strings.TrimSpace(msg), cs,
		)
	})

	return ctx
}
