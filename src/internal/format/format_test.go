// FILE: logpulse/src/internal/format/format_test.go
package format

import (
	"encoding/json"
	"testing"
	"time"

	"logpulse/src/internal/config"
	"logpulse/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func testEntry() core.LogEntry {
	return core.NewEntry("warn", time.Date(2023, 10, 27, 10, 30, 0, 0, time.Local), "rate limit exceeded")
}

func TestNew(t *testing.T) {
	logger := newTestLogger()

	testCases := []struct {
		name        string
		format      string
		logFormat   string
		expected    string
		expectError bool
	}{
		{name: "Empty", format: "", expected: "default"},
		{name: "Default", format: "default", expected: "default"},
		{name: "JSON", format: "json", expected: "json"},
		{name: "Template", format: "template", logFormat: "{{.Message}}", expected: "template"},
		{name: "Unknown", format: "xml", expectError: true},
		{name: "BadTemplate", format: "template", logFormat: "{{ .Message | Nope }}", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Format = tc.format
			cfg.LogFormat = tc.logFormat

			f, err := New(cfg, logger)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, f.Name())
		})
	}
}

func TestDefaultFormatter(t *testing.T) {
	out, err := NewDefaultFormatter().Format(testEntry())
	require.NoError(t, err)
	assert.Equal(t, "[2023-10-27 10:30:00] [WARN]: rate limit exceeded", string(out))
}

func TestTemplateFormatter(t *testing.T) {
	logger := newTestLogger()

	t.Run("CustomTemplate", func(t *testing.T) {
		f, err := NewTemplateFormatter("{{.Level | ToUpper}}|{{.Timestamp}}|{{.Message}}\n", logger)
		require.NoError(t, err)

		out, err := f.Format(testEntry())
		require.NoError(t, err)
		assert.Equal(t, "WARN|2023-10-27 10:30:00|rate limit exceeded", string(out))
	})

	t.Run("FmtTime", func(t *testing.T) {
		f, err := NewTemplateFormatter(`{{FmtTime .Time "2006-01-02"}} {{.Message}}`, logger)
		require.NoError(t, err)

		out, err := f.Format(testEntry())
		require.NoError(t, err)
		assert.Equal(t, "2023-10-27 rate limit exceeded", string(out))
	})

	t.Run("ExecutionFailureFallsBack", func(t *testing.T) {
		f, err := NewTemplateFormatter(`{{index .Missing 3}}`, logger)
		require.NoError(t, err)

		out, err := f.Format(testEntry())
		require.NoError(t, err)
		assert.Equal(t, "[2023-10-27 10:30:00] [WARN]: rate limit exceeded", string(out))
	})
}

func TestJSONFormatter(t *testing.T) {
	logger := newTestLogger()
	f := NewJSONFormatter(logger)

	t.Run("PlainMessage", func(t *testing.T) {
		out, err := f.Format(testEntry())
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out, &result))
		assert.Equal(t, "warn", result["level"])
		assert.Equal(t, "2023-10-27 10:30:00", result["timestamp"])
		assert.Equal(t, "rate limit exceeded", result["message"])
	})

	t.Run("MessageIsJSON", func(t *testing.T) {
		e := testEntry()
		e.Message = `{"user":"test","level":"spoofed"}`

		out, err := f.Format(e)
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out, &result))
		assert.Equal(t, "test", result["user"])
		assert.Equal(t, "warn", result["level"])
	})
}

func TestFunc(t *testing.T) {
	f := Func(func(level, ts, msg string) string { return level + ":" + msg })
	out, err := f.Format(testEntry())
	require.NoError(t, err)
	assert.Equal(t, "warn:rate limit exceeded", string(out))
	assert.Equal(t, "func", f.Name())
}
