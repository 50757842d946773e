// log_levels.go converts between belt log levels and libav log levels.

package libav

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/xaionaro-go/primepipe/logger"
)

func LogLevelToLibav(level logger.Level) astiav.LogLevel {
	switch level {
	case logger.LevelFatal:
		return astiav.LogLevelFatal
	case logger.LevelPanic:
		return astiav.LogLevelPanic
	case logger.LevelError:
		return astiav.LogLevelError
	case logger.LevelWarning:
		return astiav.LogLevelWarning
	case logger.LevelInfo:
		return astiav.LogLevelInfo
	case logger.LevelDebug:
		return astiav.LogLevelVerbose
	case logger.LevelTrace:
		return astiav.LogLevelDebug
	default:
		panic(fmt.Errorf("unexpected log level: %v", level))
	}
}

func LogLevelFromLibav(level astiav.LogLevel) logger.Level {
	switch level {
	case astiav.LogLevelQuiet:
		return logger.LevelFatal
	case astiav.LogLevelFatal:
		return logger.LevelFatal
	case astiav.LogLevelPanic:
		return logger.LevelPanic
	case astiav.LogLevelError:
		return logger.LevelError
	case astiav.LogLevelWarning:
		return logger.LevelWarning
	case astiav.LogLevelInfo:
		return logger.LevelInfo
	case astiav.LogLevelVerbose:
		return logger.LevelDebug
	case astiav.LogLevelDebug:
		return logger.LevelTrace
	default:
		panic(fmt.Errorf("unexpected log level: %v", level))
	}
}
