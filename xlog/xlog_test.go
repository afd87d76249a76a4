package xlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xindex/lib/infra"
)

type memWriter struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.buf.Write(p)
}

func (w *memWriter) Sync() error { return nil }

func (w *memWriter) lines(t *testing.T) []map[string]any {
	w.lock.Lock()
	defer w.lock.Unlock()
	res := make([]map[string]any, 0, 8)
	for _, line := range strings.Split(strings.TrimSpace(w.buf.String()), "\n") {
		if len(line) == 0 {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		res = append(res, entry)
	}
	return res
}

func testMemLogger(t *testing.T, opts ...XLoggerOption) (XLogger, *memWriter) {
	w := &memWriter{}
	setOutWriterByType(testMemAsOut, w)
	opts = append([]XLoggerOption{
		WithXLoggerWriter(testMemAsOut),
		WithXLoggerEncoder(JSON),
	}, opts...)
	return NewXLogger(opts...), w
}

func TestXLogger_AllAPIs(t *testing.T) {
	logger, w := testMemLogger(t,
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerContextFieldExtract("traceId"),
		WithXLoggerContextFieldExtract("dataset", "ds"),
		WithXLoggerContextFieldExtract("secret", ContextKeyMapToOmitempty),
	)
	ctx := context.WithValue(context.Background(), "traceId", "0x1234")
	ctx = context.WithValue(ctx, "secret", "xyz")

	logger.Debug("debug")
	logger.Info("info", zap.Int("n", 5))
	logger.Warn("warn")
	logger.Error(errors.New("plain"), "error")
	logger.ErrorStack(infra.NewErrorStack("stacked"), "error stack")
	logger.DebugContext(ctx, "debug ctx")
	logger.InfoContext(ctx, "info ctx")
	logger.WarnContext(ctx, "warn ctx")
	logger.ErrorContext(ctx, errors.New("plain"), "error ctx")
	logger.ErrorStackContext(ctx, infra.NewErrorStack("stacked"), "error stack ctx")
	logger.Logf(zapcore.InfoLevel, "logf %d", 7)
	logger.ErrorStackf(infra.NewErrorStack("stacked"), "error stackf %s", "x")
	require.NoError(t, logger.Sync())

	entries := w.lines(t)
	require.Len(t, entries, 12)

	require.Equal(t, "DEBUG", entries[0]["lvl"])
	require.Equal(t, "info", entries[1]["msg"])
	require.EqualValues(t, 5, entries[1]["n"])
	require.Equal(t, "plain", entries[3]["error"])
	require.Equal(t, "stacked", entries[4]["error"])
	require.NotEmpty(t, entries[4]["errorStack"])

	for _, entry := range entries[5:10] {
		require.Equal(t, "0x1234", entry["traceId"])
		require.Equal(t, "nil", entry["ds"])
		require.NotContains(t, entry, "secret")
	}
	require.Equal(t, "logf 7", entries[10]["msg"])
	require.Equal(t, "error stackf x", entries[11]["msg"])
	require.NotEmpty(t, entries[11]["errorStack"])
	require.Contains(t, entries[0]["callAt"], "xlog_test.go")
}

func TestXLogger_IncreaseLogLevel(t *testing.T) {
	logger, w := testMemLogger(t, WithXLoggerLevel(LogLevelInfo))
	require.Equal(t, "info", logger.Level())
	logger.Debug("dropped")
	logger.Info("kept")

	logger.IncreaseLogLevel(zapcore.ErrorLevel)
	require.Equal(t, "error", logger.Level())
	logger.Warn("dropped")
	logger.Error(nil, "kept")

	entries := w.lines(t)
	require.Len(t, entries, 2)
	require.Equal(t, "kept", entries[0]["msg"])
	require.NotContains(t, entries[1], "error")
}

func TestXLogger_EnvLevel(t *testing.T) {
	t.Setenv("XLOG_LVL", "warn")
	logger, w := testMemLogger(t)
	require.Equal(t, "warn", logger.Level())
	logger.Info("dropped")
	logger.Warn("kept")
	require.Len(t, w.lines(t), 1)

	require.Equal(t, zapcore.DebugLevel, getLogLevelOrDefault(" "))
	require.Equal(t, zapcore.ErrorLevel, getLogLevelOrDefault("Error"))
	require.Equal(t, zapcore.DebugLevel, getLogLevelOrDefault("verbose"))
}

func TestXLogger_Named(t *testing.T) {
	logger, w := testMemLogger(t, WithXLoggerLevel(LogLevelDebug))
	named := logger.Named("obst")
	named.Info("built")
	logger.IncreaseLogLevel(zapcore.WarnLevel)
	named.Info("dropped")

	entries := w.lines(t)
	require.Len(t, entries, 1)
	require.Equal(t, "obst", entries[0]["component"])
}

func TestXLogger_InvalidOptions(t *testing.T) {
	require.Panics(t, func() {
		NewXLogger(WithXLoggerEncoder(_encMax))
	})
	require.Panics(t, func() {
		NewXLogger(WithXLoggerWriter(_writerMax))
	})
	require.NotPanics(t, func() {
		NewXLogger(nil, WithXLoggerLevelEncoder(nil), WithXLoggerTimeEncoder(nil), WithXLoggerContextFieldExtract(""))
	})
}

func TestAntsXLogger(t *testing.T) {
	logger, w := testMemLogger(t, WithXLoggerLevel(LogLevelDebug))
	antsLogger := NewAntsXLogger(logger)
	antsLogger.Printf("worker %d exits from panic", 3)

	entries := w.lines(t)
	require.Len(t, entries, 1)
	require.Equal(t, "Ants", entries[0]["component"])
	require.Equal(t, "ERROR", entries[0]["lvl"])
	require.Equal(t, "worker 3 exits from panic", entries[0]["msg"])

	var nilLogger *AntsXLogger
	require.NotPanics(t, func() {
		nilLogger.Printf("ignored")
		NewAntsXLogger(nil).Printf("ignored")
	})
}
