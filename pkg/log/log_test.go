package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextFieldsAreAttached(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	ctx := WithFields(context.Background(), "task_id", "a")
	ctx = WithFields(ctx, "pass", "startup")
	l.Infof(ctx, "armed %s", "09:00")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "armed 09:00", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a", fields["task_id"])
	assert.Equal(t, "startup", fields["pass"])
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warn "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("chatty"))
}

func TestNopDoesNotPanic(t *testing.T) {
	l := NewNop().With("k", "v")
	l.Error(context.Background(), "ignored")
	l.Warnf(context.Background(), "ignored %d", 1)
}
