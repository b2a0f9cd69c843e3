// FILE: logpulse/src/internal/query/csv.go
package query

import (
	"strings"

	"logpulse/src/internal/core"
)

const csvHeader = "Timestamp,Level,Message"

// ExportCSV renders entries with every field quoted. Rows are joined by "\n"
// without a trailing newline.
func ExportCSV(entries []core.LogEntry) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	for _, entry := range entries {
		b.WriteByte('\n')
		b.WriteString(quoteField(entry.Timestamp))
		b.WriteByte(',')
		b.WriteString(quoteField(entry.Level))
		b.WriteByte(',')
		b.WriteString(quoteField(flattenNewlines(entry.Message)))
	}
	return b.String()
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func flattenNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
