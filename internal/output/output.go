// Package output renders a finished run in its three emission forms:
// padded table, RFC 4180 CSV, and the structured JSON object with the
// metadata block. All three are pure builders returning strings — writers
// stay thin and deterministic output is testable byte-for-byte.
package output

import (
	"bytes"
	"encoding/csv"
	"strings"
)

// Table renders headers and rows as padded columns, two spaces between
// columns, with the header underlined by a dash row.
func Table(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, v := range row {
			if i < len(widths) && len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(c)
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-len(c)))
			}
		}
		b.WriteByte('\n')
	}

	writeRow(headers)
	dashes := make([]string, len(headers))
	for i := range headers {
		dashes[i] = strings.Repeat("-", widths[i])
	}
	writeRow(dashes)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

// CSV renders headers and rows as RFC 4180 comma-separated values: fields
// containing the delimiter, quotes, or line breaks are quoted with internal
// quotes doubled. UTF-8, no BOM, \n line endings.
func CSV(headers []string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = false
	if err := w.Write(headers); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
