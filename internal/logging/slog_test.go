package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(t *testing.T, level slog.Level) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))), &buf
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelDebug)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	recs := records(t, buf)
	require.Len(t, recs, 4)
	want := []struct{ level, msg, key string }{
		{"DEBUG", "dbg", "a"}, {"INFO", "inf", "b"}, {"WARN", "wrn", "c"}, {"ERROR", "err", "d"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, recs[i]["level"])
		assert.Equal(t, w.msg, recs[i]["msg"])
		assert.Contains(t, recs[i], w.key)
	}
}

func TestSlogLogger_BelowLevelIsDropped(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelWarn)
	log.Info(context.Background(), "quiet")
	log.Warn(context.Background(), "loud")

	recs := records(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "loud", recs[0]["msg"])
}

func TestSlogLogger_WithAndContextFields(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	ctx := ContextWith(context.Background(), "mode", "timer")
	ctx = ContextWith(ctx, "draft_id", "d1")
	log.With("form", "article").Info(ctx, "remote draft updated", "k", "v")

	recs := records(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "article", recs[0]["form"])
	assert.Equal(t, "timer", recs[0]["mode"])
	assert.Equal(t, "d1", recs[0]["draft_id"])
	assert.Equal(t, "v", recs[0]["k"])
}

func TestSlogLogger_NilContextAndDefault(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)
	var nilCtx context.Context
	log.Info(nilCtx, "no ctx")
	assert.Len(t, records(t, buf), 1)

	assert.NotNil(t, NewSlogLogger(nil).l)
}

func TestContextWith(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FieldsFrom(ctx))
	assert.Equal(t, ctx, ContextWith(ctx))

	child := ContextWith(ctx, "a", 1)
	grand := ContextWith(child, "b", 2)
	assert.Equal(t, []any{"a", 1}, FieldsFrom(child))
	assert.Equal(t, []any{"a", 1, "b", 2}, FieldsFrom(grand))
}
