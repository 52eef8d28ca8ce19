package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRespectsLevel(t *testing.T) {
	log := New("warn", "production")
	core := log.Zap().Core()

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewEnablesDebug(t *testing.T) {
	log := New("debug", "development")
	assert.True(t, log.Zap().Core().Enabled(zapcore.DebugLevel))
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	log := New("verbose", "development")
	core := log.Zap().Core()

	assert.True(t, core.Enabled(zapcore.InfoLevel))
	assert.False(t, core.Enabled(zapcore.DebugLevel))
}

func TestZapReturnsStructuredLogger(t *testing.T) {
	log := New("info", "production")
	require.NotNil(t, log.Zap())
}
