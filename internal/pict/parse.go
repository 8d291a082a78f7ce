package pict

// parse.go — TSV capture parsing and declared-order re-projection.
//
// PICT prints a header row of identifiers followed by one row per test
// case, tab separated. The header arrives in generation order (the ordering
// plan), so rows are re-projected back to the model's declared order here;
// downstream components never see the plan.

import (
	"fmt"
	"strings"

	"pairwise/internal/model"
)

// parseTSV decodes generator stdout into rows ordered by m's declared
// parameters. A leading UTF-8 BOM and CRLF line endings are tolerated.
// Value cells are trimmed of surrounding whitespace only.
func parseTSV(content string, m *model.Model) ([][]string, error) {
	content = strings.TrimPrefix(content, "\uFEFF")

	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSuffix(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("output has no header row")
	}

	// Map each declared parameter's safe name to its declared index.
	declared := make(map[string]int, len(m.Parameters))
	for i, p := range m.Parameters {
		declared[p.SafeName] = i
	}

	header := strings.Split(lines[0], "\t")
	if len(header) != len(m.Parameters) {
		return nil, fmt.Errorf("header has %d columns, model has %d parameters",
			len(header), len(m.Parameters))
	}

	// column[k] is the declared index the k-th output column projects to.
	column := make([]int, len(header))
	seen := make(map[string]bool, len(header))
	for k, h := range header {
		h = strings.TrimSpace(h)
		idx, ok := declared[h]
		if !ok {
			return nil, fmt.Errorf("unknown column %q in output header", h)
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q in output header", h)
		}
		seen[h] = true
		column[k] = idx
	}

	rows := make([][]string, 0, len(lines)-1)
	for n, line := range lines[1:] {
		cells := strings.Split(line, "\t")
		if len(cells) != len(header) {
			return nil, fmt.Errorf("row %d has %d columns, header has %d", n+1, len(cells), len(header))
		}
		row := make([]string, len(header))
		for k, cell := range cells {
			row[column[k]] = strings.TrimSpace(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
