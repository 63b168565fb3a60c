package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestUse(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core, zap.AddCaller()))
	t.Cleanup(func() { Use(zap.NewNop()) })

	Debugw("extreme", "date", "20240101")
	Infow("listening", "addr", ":8080")
	Warnw("no data for date", "date", "20240115")
	Errorw("request failed", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "20240101", entries[0].ContextMap()["date"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "request failed", entries[3].Message)
	// The caller is whoever called the package, not this file's wrappers.
	assert.Contains(t, entries[1].Caller.File, "log_test.go")
}
