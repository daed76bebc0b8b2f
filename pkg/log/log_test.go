package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		logger, err := NewLogger()
		assert.NoError(t, err)
		assert.NotNil(t, logger)
		assert.IsType(t, &zap.Logger{}, logger)
	})
}

func TestMustNewLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		logger := MustNewLogger()
		assert.NotNil(t, logger)
		assert.IsType(t, &zap.Logger{}, logger)
	})
}

func TestLevelForVerbosity(t *testing.T) {
	tests := map[string]struct {
		verbosity int
		level     zapcore.Level
		ok        bool
	}{
		"silent":   {verbosity: 0, level: silentLevel, ok: true},
		"error":    {verbosity: 1, level: zapcore.ErrorLevel, ok: true},
		"warn":     {verbosity: 2, level: zapcore.WarnLevel, ok: true},
		"info":     {verbosity: 3, level: zapcore.InfoLevel, ok: true},
		"debug":    {verbosity: 4, level: zapcore.DebugLevel, ok: true},
		"too big":  {verbosity: 7, level: zapcore.InfoLevel, ok: false},
		"negative": {verbosity: -1, level: zapcore.InfoLevel, ok: false},
	}
	for desc, tc := range tests {
		t.Run(desc, func(t *testing.T) {
			level, ok := LevelForVerbosity(tc.verbosity)
			assert.Equal(t, tc.level, level)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestSetVerbosity(t *testing.T) {
	defer Level.SetLevel(zapcore.InfoLevel)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	SetVerbosity(logger, 1)
	assert.False(t, Level.Enabled(zapcore.WarnLevel))
	assert.True(t, Level.Enabled(zapcore.ErrorLevel))
	assert.Equal(t, 0, logs.Len())

	SetVerbosity(logger, 0)
	assert.False(t, Level.Enabled(zapcore.FatalLevel))

	SetVerbosity(logger, 9)
	assert.True(t, Level.Enabled(zapcore.InfoLevel))
	assert.False(t, Level.Enabled(zapcore.DebugLevel))
	assert.Equal(t, 1, logs.FilterMessageSnippet("invalid verbosity level 9").Len())
}
