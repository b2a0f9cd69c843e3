// FILE: logpulse/src/internal/alert/dispatcher.go
package alert

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logpulse/src/internal/config"
	"logpulse/src/internal/core"

	"github.com/lixenwraith/log"
)

const defaultSendTimeout = 30 * time.Second

// Message is a rendered alert ready for delivery
type Message struct {
	SMTP    config.SMTPConfig
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers alert messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// FailureHandler is told about every failed delivery
type FailureHandler func(rule config.AlertRule, entry core.LogEntry, err error)

// Dispatcher matches entries against alert rules and sends detached, best-effort
// notifications. Failed sends are logged and never retried.
type Dispatcher struct {
	mu        sync.RWMutex
	rules     []config.AlertRule
	mailer    Mailer
	logger    *log.Logger
	timeout   time.Duration
	onFailure FailureHandler

	wg          sync.WaitGroup
	totalSent   atomic.Uint64
	totalFailed atomic.Uint64
}

func NewDispatcher(rules []config.AlertRule, mailer Mailer, logger *log.Logger) *Dispatcher {
	if mailer == nil {
		mailer = NewSMTPMailer()
	}
	return &Dispatcher{
		rules:   append([]config.AlertRule(nil), rules...),
		mailer:  mailer,
		logger:  logger,
		timeout: defaultSendTimeout,
	}
}

// OnFailure registers the failure handler
func (d *Dispatcher) OnFailure(h FailureHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFailure = h
}

// SetRules replaces the active rule set
func (d *Dispatcher) SetRules(rules []config.AlertRule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules = append([]config.AlertRule(nil), rules...)
}

// Match returns the rules triggered by entry: exact level and, when set, a
// substring of the message.
func (d *Dispatcher) Match(entry core.LogEntry) []config.AlertRule {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var matched []config.AlertRule
	for _, r := range d.rules {
		if r.Level != entry.Level {
			continue
		}
		if r.Pattern != "" && !strings.Contains(entry.Message, r.Pattern) {
			continue
		}
		matched = append(matched, r)
	}
	return matched
}

// Dispatch starts a send for every matching rule and returns how many matched
func (d *Dispatcher) Dispatch(entry core.LogEntry) int {
	matched := d.Match(entry)
	for _, rule := range matched {
		d.wg.Add(1)
		go d.send(rule, entry)
	}
	return len(matched)
}

func (d *Dispatcher) send(rule config.AlertRule, entry core.LogEntry) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.mailer.Send(ctx, BuildMessage(rule, entry)); err != nil {
		d.totalFailed.Add(1)
		d.logger.Error("msg", "Failed to send alert",
			"component", "alert_dispatcher",
			"level", entry.Level,
			"to", strings.Join(rule.To, ","),
			"error", err)

		d.mu.RLock()
		h := d.onFailure
		d.mu.RUnlock()
		if h != nil {
			h(rule, entry, err)
		}
		return
	}

	d.totalSent.Add(1)
	d.logger.Debug("msg", "Alert sent",
		"component", "alert_dispatcher",
		"level", entry.Level,
		"recipients", len(rule.To))
}

// Wait blocks until in-flight sends finish or timeout elapses
func (d *Dispatcher) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (d *Dispatcher) GetStats() map[string]any {
	d.mu.RLock()
	rules := len(d.rules)
	d.mu.RUnlock()

	return map[string]any{
		"rules":        rules,
		"total_sent":   d.totalSent.Load(),
		"total_failed": d.totalFailed.Load(),
	}
}

// BuildMessage renders the plain text and HTML bodies for an alert
func BuildMessage(rule config.AlertRule, entry core.LogEntry) Message {
	subject := rule.Subject
	if subject == "" {
		subject = fmt.Sprintf("[%s] Log alert", strings.ToUpper(entry.Level))
	}

	text := fmt.Sprintf("Timestamp: %s\nLevel: %s\nMessage: %s\n",
		entry.Timestamp, strings.ToUpper(entry.Level), entry.Message)

	htmlBody := fmt.Sprintf("<h3>Log alert</h3>\n<p><strong>Timestamp:</strong> %s</p>\n<p><strong>Level:</strong> %s</p>\n<pre>%s</pre>\n",
		html.EscapeString(entry.Timestamp),
		html.EscapeString(strings.ToUpper(entry.Level)),
		html.EscapeString(entry.Message))

	return Message{
		SMTP:    rule.SMTP,
		From:    rule.From,
		To:      append([]string(nil), rule.To...),
		Subject: subject,
		Text:    text,
		HTML:    htmlBody,
	}
}
