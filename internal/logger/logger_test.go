package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesToConsoleAndWriter(t *testing.T) {
	var console, file bytes.Buffer
	l := NewLogger(WithConsole(&console), WithWriter(&file), WithFormat("json"))

	l.Info("run finished", "new", 2)

	for _, buf := range []*bytes.Buffer{&console, &file} {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "run finished", rec["msg"])
		assert.Equal(t, float64(2), rec["new"])
	}
}

func TestLoggerDebugLevel(t *testing.T) {
	var buf bytes.Buffer

	NewLogger(WithConsole(&buf)).Debug("hidden")
	assert.Empty(t, buf.String())

	NewLogger(WithConsole(&buf), WithDebug()).Debugf("shown %d", 1)
	assert.Contains(t, buf.String(), "shown 1")
}

func TestLoggerQuiet(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(WithConsole(&buf), WithQuiet()).Error("nothing")
	assert.Empty(t, buf.String())
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewLogger(WithConsole(&buf)))
	ctx = WithValues(ctx, "run_id", "abc", "dangling")

	FromContext(ctx).Warn("careful")

	out := buf.String()
	assert.True(t, strings.Contains(out, "run_id=abc"), out)
	assert.Contains(t, out, "dangling=MISSING_VALUE")
	assert.Contains(t, out, "level=WARN")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))
}
