// FILE: logpulse/src/internal/format/template.go
package format

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"logpulse/src/internal/core"

	"github.com/lixenwraith/log"
)

// TemplateFormatter renders entries through a user supplied text/template
type TemplateFormatter struct {
	template *template.Template
	fallback *DefaultFormatter
	logger   *log.Logger
}

// NewTemplateFormatter parses tmpl. Available fields: .Timestamp .Time .Level .Message
func NewTemplateFormatter(tmpl string, logger *log.Logger) (*TemplateFormatter, error) {
	funcMap := template.FuncMap{
		"FmtTime": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"ToUpper":   strings.ToUpper,
		"ToLower":   strings.ToLower,
		"TrimSpace": strings.TrimSpace,
	}

	t, err := template.New("log").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	return &TemplateFormatter{
		template: t,
		fallback: NewDefaultFormatter(),
		logger:   logger,
	}, nil
}

func (f *TemplateFormatter) Format(entry core.LogEntry) ([]byte, error) {
	data := map[string]any{
		"Timestamp": entry.Timestamp,
		"Time":      entry.Time,
		"Level":     entry.Level,
		"Message":   entry.Message,
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		f.logger.Debug("msg", "Template execution failed, using fallback",
			"component", "template_formatter",
			"error", err)
		return f.fallback.Format(entry)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (f *TemplateFormatter) Name() string {
	return "template"
}
