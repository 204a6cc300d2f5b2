package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromFallsBackToSingleton(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Replace(zap.New(core))

	From(context.Background()).Info("hello")
	From(nil).Info("nil ctx")
	require.Equal(t, 2, logs.Len())
}

func TestContextLoggerWins(t *testing.T) {
	globalCore, global := observer.New(zapcore.InfoLevel)
	Replace(zap.New(globalCore))

	scopedCore, scoped := observer.New(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(scopedCore))

	FromWithFields(ctx, RequestID("r-1")).Info("scoped")
	require.Equal(t, 0, global.Len())
	require.Equal(t, 1, scoped.Len())
	require.Equal(t, "r-1", scoped.All()[0].ContextMap()["request_id"])
}

func TestMaskedEmail(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("x", MaskedEmail("alice@kth.se"))
	require.Equal(t, "a…@kth.se", logs.All()[0].ContextMap()["email"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("whatever"))
}
