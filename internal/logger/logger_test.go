package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(&EnvConfig{Level: "debug", Format: "json", Output: buf, ServiceName: "fitetl-test"})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())
	ctx = SetBatchID(ctx, "20250314_092653")
	ctx = SetDataset(ctx, "members")
	ctx = SetStage(ctx, "load")

	With(Fields{FieldTable: "RAW_MEMBERS"}).WithRows(20).Info(ctx, "Loaded %d rows", 20)

	line := decodeLine(t, &buf)
	assert.Equal(t, "Loaded 20 rows", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "fitetl-test", line["service"])
	assert.Equal(t, "20250314_092653", line[FieldBatchID])
	assert.Equal(t, "members", line[FieldDataset])
	assert.Equal(t, "load", line[FieldStage])
	assert.Equal(t, "RAW_MEMBERS", line[FieldTable])
	assert.EqualValues(t, 20, line[FieldRows])

	assert.Equal(t, "20250314_092653", GetBatchID(ctx))
	assert.Empty(t, GetRequestID(ctx))
}

func TestEntryWithDoesNotMutate(t *testing.T) {
	base := With(Fields{"a": 1})
	merged := base.With(Fields{"b": 2})

	assert.Len(t, base.fields, 1)
	assert.Len(t, merged.fields, 2)
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := GetDefault()
	SetDefaultLogger(newBufferLogger(&buf))
	t.Cleanup(func() { SetDefaultLogger(prev) })

	CtxWarn(context.Background(), "no logger on %s", "context")

	line := decodeLine(t, &buf)
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "no logger on context", line["message"])
}

func TestSetDefaultLoggerIgnoresNil(t *testing.T) {
	prev := GetDefault()
	SetDefaultLogger(nil)
	assert.Same(t, prev, GetDefault())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_MAX_SIZE", "12")
	t.Setenv("LOG_COMPRESS", "false")
	t.Setenv("LOG_MAX_AGE", "not-a-number")

	cfg := LoadFromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 12, cfg.MaxSize)
	assert.False(t, cfg.Compress)
	assert.Equal(t, 30, cfg.MaxAge)
}

func TestFromContextOr(t *testing.T) {
	var buf bytes.Buffer
	fallback := newBufferLogger(&buf)

	assert.False(t, HasLogger(context.Background()))
	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))
	assert.Same(t, GetDefault(), FromContextOr(context.Background(), nil))

	own := Discard()
	ctx := own.WithContext(context.Background())
	assert.True(t, HasLogger(ctx))
	assert.Same(t, own, FromContextOr(ctx, fallback))
}
