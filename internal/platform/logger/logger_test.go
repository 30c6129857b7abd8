package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestShouldEnableColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, shouldEnableColor())
}

func TestFromSettings(t *testing.T) {
	t.Setenv("LOG_COLOR", "false")
	cfg := FromSettings("ERROR", "json")
	assert.Equal(t, "error", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.False(t, cfg.EnableColor)
}

func TestNew(t *testing.T) {
	for _, cfg := range []Config{
		{Level: "debug", Format: "json"},
		{Level: "info", Format: "console"},
		{Level: "info", Format: "console", EnableColor: true},
	} {
		l, level, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, l)
		assert.Equal(t, parseLevel(cfg.Level), level.Level())
		l.Info("hello", zap.String("slot", "first"))
	}
}

func TestColoredConsoleEncoder(t *testing.T) {
	enc := NewColoredConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	buf, err := enc.Clone().EncodeEntry(zapcore.Entry{Message: "probe"}, []zapcore.Field{zap.String("url", "https://x")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "probe")
	assert.Contains(t, buf.String(), "url")
}
