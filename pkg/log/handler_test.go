package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ToLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ToLogLevel("info"))
	assert.Equal(t, slog.LevelWarn, ToLogLevel("warn"))
	assert.Equal(t, slog.LevelError, ToLogLevel("error"))
	assert.Panics(t, func() { ToLogLevel("verbose") })
}

func TestErrFmtHandlerAddsStacktrace(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	err := errors.WithStack(errors.New("tree load failed"))
	logger.Error("load failed", ErrAttr(err))

	out := buf.String()
	require.Contains(t, out, `"error"`)
	assert.Contains(t, out, StacktraceAttrKey)
}

func TestErrFmtHandlerSkipsPlainErrors(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	logger.Info("just a message", slog.Int("count", 3))

	out := buf.String()
	assert.NotContains(t, out, StacktraceAttrKey)
	assert.Contains(t, out, `"count":3`)
}
