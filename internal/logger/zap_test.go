package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	l := NewZapFrom(zap.New(core, zap.IncreaseLevel(lvl)), lvl)

	assert.Equal(t, InfoLevel, l.Level())

	l.Debug("hidden")
	l.With("component", "poller").Info("started", "pids", 18)

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, "started", e.Message)
	assert.Equal(t, map[string]any{"component": "poller", "pids": int64(18)}, e.ContextMap())

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())
	l.Debug("shown")
	assert.Equal(t, 2, logs.Len())
}
