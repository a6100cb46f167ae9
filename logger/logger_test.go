package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSet_RoutesLogAndSugar(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	Log().Warn("unexpected output shape", zap.Int("outputs", 3))
	S().Infow("frame", "n", 1)
	Sync()

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "unexpected output shape", entries[0].Message)
	assert.Equal(t, int64(3), entries[0].ContextMap()["outputs"])
	assert.Equal(t, "frame", entries[1].Message)
	assert.Same(t, Log(), zap.L())
}

func TestInit(t *testing.T) {
	t.Cleanup(func() { Set(zap.NewNop()) })

	require.NoError(t, Init(true))
	assert.True(t, Log().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init(false))
	assert.False(t, Log().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, Log().Core().Enabled(zapcore.InfoLevel))
}
