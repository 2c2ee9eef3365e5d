package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := log
	var buf bytes.Buffer
	log = newLogger(&buf)
	t.Cleanup(func() { log = prev })
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWarnCtxf_CarriesTraceID(t *testing.T) {
	buf := capture(t)
	ctx := WithTraceID(context.Background(), "abc-123")

	WarnCtxf(ctx, "sensor read took %dms", 900)

	entry := decode(t, buf)
	assert.Equal(t, "abc-123", entry["trace_id"])
	assert.Equal(t, "sensor read took 900ms", entry["msg"])
	assert.Equal(t, "warning", entry["level"])
}

func TestWithCycle(t *testing.T) {
	buf := capture(t)

	WithCycle(7).Info("cycle complete")

	entry := decode(t, buf)
	assert.Equal(t, "control", entry["component"])
	assert.EqualValues(t, 7, entry["cycle"])
}

func TestSetup_UnknownLevelFallsBackToInfo(t *testing.T) {
	capture(t)

	Setup("chatty", "production")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	Setup("debug", "production")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestTraceIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
