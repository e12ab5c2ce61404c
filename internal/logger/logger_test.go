package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"soxguard/pkg/logging"
)

func TestSugaredLogger_ContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core, "validation-service")

	ctx := logging.WithTransactionID(context.Background(), "tx-1")
	ctx = logging.WithIntegrationPair(ctx, "int15-3-2", "int15-3-1")
	log.InfowCtx(ctx, "pair validated", "is_valid", true)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "pair validated", entries[0].Message)
	assert.Equal(t, "tx-1", fields["transaction_id"])
	assert.Equal(t, "int15-3-2", fields["source_integration_id"])
	assert.Equal(t, "int15-3-1", fields["destination_integration_id"])
	assert.Equal(t, "validation-service", fields["service_name"])
	assert.Equal(t, true, fields["is_valid"])
}

func TestSugaredLogger_ContextServiceNameWins(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core, "validation-service")

	ctx := logging.WithServiceName(context.Background(), "check")
	log.WarnwCtx(ctx, "unknown integration")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "check", logs.All()[0].ContextMap()["service_name"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNew(t *testing.T) {
	log, err := New("debug", "console")
	require.NoError(t, err)
	assert.NotNil(t, log)
	NopLogger().Infow("discarded")
}
