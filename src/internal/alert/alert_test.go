// FILE: logpulse/src/internal/alert/alert_test.go
package alert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"logpulse/src/internal/config"
	"logpulse/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

func testRules() []config.AlertRule {
	return []config.AlertRule{
		{Level: "error", From: "alerts@example.com", To: []string{"ops@example.com"}},
		{Level: "warn", Pattern: "disk", From: "alerts@example.com", To: []string{"infra@example.com"}, Subject: "Disk warning"},
	}
}

func entryAt(level, msg string) core.LogEntry {
	return core.NewEntry(level, time.Date(2024, 2, 3, 4, 5, 6, 0, time.Local), msg)
}

func TestDispatcher_Match(t *testing.T) {
	d := NewDispatcher(testRules(), &recordingMailer{}, log.NewLogger())

	testCases := []struct {
		name    string
		entry   core.LogEntry
		matches int
	}{
		{"ExactLevel", entryAt("error", "anything"), 1},
		{"LevelCaseSensitive", entryAt("ERROR", "anything"), 0},
		{"PatternHit", entryAt("warn", "disk almost full"), 1},
		{"PatternMiss", entryAt("warn", "cpu hot"), 0},
		{"NoRule", entryAt("info", "disk"), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, d.Match(tc.entry), tc.matches)
		})
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(testRules(), mailer, log.NewLogger())

	assert.Equal(t, 1, d.Dispatch(entryAt("warn", "disk <sda> full")))
	require.True(t, d.Wait(time.Second))

	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Disk warning", sent[0].Subject)
	assert.Equal(t, []string{"infra@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].Text, "Timestamp: 2024-02-03 04:05:06")
	assert.Contains(t, sent[0].Text, "Message: disk <sda> full")
	assert.Contains(t, sent[0].HTML, "disk &lt;sda&gt; full")
	assert.Equal(t, uint64(1), d.GetStats()["total_sent"])
}

func TestDispatcher_FailureIsSwallowed(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("connection refused")}
	d := NewDispatcher(testRules(), mailer, log.NewLogger())

	var mu sync.Mutex
	var failures []error
	d.OnFailure(func(_ config.AlertRule, _ core.LogEntry, err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	})

	assert.NotPanics(t, func() { d.Dispatch(entryAt("error", "boom")) })
	require.True(t, d.Wait(time.Second))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 1)
	assert.EqualError(t, failures[0], "connection refused")
	assert.Equal(t, uint64(1), d.GetStats()["total_failed"])
}

func TestDispatcher_SetRules(t *testing.T) {
	d := NewDispatcher(nil, &recordingMailer{}, log.NewLogger())
	assert.Empty(t, d.Match(entryAt("error", "x")))

	d.SetRules(testRules())
	assert.Len(t, d.Match(entryAt("error", "x")), 1)
}

func TestBuildMessage_DefaultSubject(t *testing.T) {
	msg := BuildMessage(config.AlertRule{Level: "error"}, entryAt("error", "boom"))
	assert.Equal(t, "[ERROR] Log alert", msg.Subject)
}

func TestEncodeMessage(t *testing.T) {
	msg := BuildMessage(testRules()[0], entryAt("error", "boom"))
	raw, err := encodeMessage(msg, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC))
	require.NoError(t, err)

	s := string(raw)
	assert.True(t, strings.HasPrefix(s, "From: alerts@example.com\r\n"))
	assert.Contains(t, s, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, s, "text/plain; charset=UTF-8")
	assert.Contains(t, s, "text/html; charset=UTF-8")
	assert.Contains(t, s, "Message: boom")
}
