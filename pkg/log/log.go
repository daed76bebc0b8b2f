package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultVerbosity logs informational messages and above.
const DefaultVerbosity = 3

// silentLevel is above every level zap can emit, so nothing is logged.
const silentLevel = zapcore.FatalLevel + 1

// Level is shared by every logger built with NewLogger so verbosity can be
// changed after the configuration has been read.
var Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = Level
	return cfg.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.DPanicLevel),
	)
}

func MustNewLogger() *zap.Logger {
	l, err := NewLogger()
	if err != nil {
		panic(fmt.Errorf("could not create new logger: %w", err))
	}
	return l
}

// LevelForVerbosity maps a verbosity of 0 (silent) through 4 (debug) to a
// zap level. ok is false for values outside that range, in which case the
// DefaultVerbosity level is returned.
func LevelForVerbosity(verbosity int) (level zapcore.Level, ok bool) {
	switch verbosity {
	case 0:
		return silentLevel, true
	case 1:
		return zapcore.ErrorLevel, true
	case 2:
		return zapcore.WarnLevel, true
	case 3:
		return zapcore.InfoLevel, true
	case 4:
		return zapcore.DebugLevel, true
	}
	return zapcore.InfoLevel, false
}

// SetVerbosity applies verbosity to Level. An out of range value falls back
// to DefaultVerbosity and is reported through logger.
func SetVerbosity(logger *zap.Logger, verbosity int) {
	level, ok := LevelForVerbosity(verbosity)
	if !ok {
		logger.Sugar().Warnf(
			"invalid verbosity level %d, defaulting to %d. Verbosity must be one of 0, 1, 2, 3 or 4",
			verbosity,
			DefaultVerbosity,
		)
	}
	Level.SetLevel(level)
}
