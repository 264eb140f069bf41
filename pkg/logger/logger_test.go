package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keygate/pkg/constants"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestJSONLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(constants.LogLevelInfo, &buf).WithComponent("Ledger")

	log.Info(context.Background(), "key issued",
		String("service_authority", "svc-pubkey"),
		Uint64("sequence", 3),
	)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "Ledger", entry.Component)
	assert.Equal(t, "key issued", entry.Message)
	assert.Equal(t, "svc-pubkey", entry.Fields["service_authority"])
	assert.NotEmpty(t, entry.Timestamp)
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(constants.LogLevelInfo, &buf)

	log.Debug(context.Background(), "suppressed")
	assert.Zero(t, buf.Len())

	log.SetLevel(constants.LogLevelDebug)
	log.Debug(context.Background(), "emitted")
	entry := decodeEntry(t, &buf)
	assert.Equal(t, "DEBUG", entry.Level)
	assert.Equal(t, "emitted", entry.Message)
}

func TestJSONLogger_MasksSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(constants.LogLevelInfo, &buf)

	log.Info(context.Background(), "config loaded",
		String("jwt_secret", "super-secret-value-123"),
		String("api_token", "short"),
		Any("password", 42),
		String("host", "db.internal"),
	)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "supe***-123", entry.Fields["jwt_secret"])
	assert.Equal(t, "***", entry.Fields["api_token"])
	assert.Equal(t, "***REDACTED***", entry.Fields["password"])
	assert.Equal(t, "db.internal", entry.Fields["host"])
}

func TestJSONLogger_WithFieldsCarriesBaseFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(constants.LogLevelInfo, &buf).WithFields(String("env", "test"))

	log.Warn(context.Background(), "slow query", Int64("latency_ms", 120))

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "test", entry.Fields["env"])
	assert.EqualValues(t, 120, entry.Fields["latency_ms"])
}

func TestJSONLogger_ErrorAppendsErrorAndCaller(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(constants.LogLevelInfo, &buf)

	log.Error(context.Background(), "write failed", assert.AnError)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, assert.AnError.Error(), entry.Fields["error"])
	assert.NotEmpty(t, entry.Caller)
}

func TestJSONLogger_RequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(constants.LogLevelInfo, &buf)

	ctx := context.WithValue(context.Background(), constants.ContextKeyRequestID, "req-42")
	log.Info(ctx, "handled")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "req-42", entry.Fields["request_id"])
}

func TestGlobalLogger_SetAndGet(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	replacement := NewNoopLogger()
	SetGlobalLogger(replacement)
	assert.Same(t, replacement, GetGlobalLogger())
}
