// Package formatter renders run summaries as console tables and markdown reports.
package formatter

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"steamscraper/pkg/checksum"
)

// Markdown renders tables under a top-level heading, aligns their columns by
// display width and appends a checksum block.
func Markdown(title string, tables []Table) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n", title)

	for _, t := range tables {
		sb.WriteString("\n")

		if t.Title != "" {
			fmt.Fprintf(&sb, "## %s\n\n", t.Title)
		}

		writeRow(&sb, t.Header)

		sep := make([]string, len(t.Header))
		for i := range sep {
			sep[i] = "---"
		}

		writeRow(&sb, sep)

		for _, row := range t.Rows {
			writeRow(&sb, row)
		}
	}

	return checksum.Sign(AlignTables(sb.String()))
}

// WriteMarkdown writes the signed report to path.
func WriteMarkdown(path, title string, tables []Table) error {
	if err := os.WriteFile(path, []byte(Markdown(title, tables)), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

func writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")

	for _, cell := range cells {
		// a pipe inside a cell would start a new column
		sb.WriteString(" " + strings.ReplaceAll(cell, "|", `\|`) + " |")
	}

	sb.WriteString("\n")
}

// AlignTables pads every markdown table in content so columns line up in a
// monospaced view. Wide runes count as two columns.
func AlignTables(content string) string {
	lines := strings.Split(content, "\n")

	var (
		out    []string
		buffer []string
	)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") {
			buffer = append(buffer, line)

			continue
		}

		if len(buffer) > 0 {
			out = append(out, alignTable(buffer)...)
			buffer = nil
		}

		out = append(out, line)
	}

	if len(buffer) > 0 {
		out = append(out, alignTable(buffer)...)
	}

	return strings.Join(out, "\n")
}

func alignTable(rows []string) []string {
	if len(rows) < 2 {
		return rows
	}

	table := make([][]string, 0, len(rows))
	colCount := 0

	for _, row := range rows {
		cells := splitCells(row)
		table = append(table, cells)
		colCount = max(colCount, len(cells))
	}

	separatorIdx := -1
	if isSeparator(table[1]) {
		separatorIdx = 1
	}

	widths := make([]int, colCount)
	for i := range widths {
		widths[i] = 3
	}

	for r, row := range table {
		if r == separatorIdx {
			continue
		}

		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	result := make([]string, 0, len(table))

	for r, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for i := range colCount {
			sb.WriteString(" ")

			if r == separatorIdx {
				sb.WriteString(strings.Repeat("-", widths[i]))
			} else {
				cell := ""
				if i < len(row) {
					cell = row[i]
				}

				sb.WriteString(runewidth.FillRight(cell, widths[i]))
			}

			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}

// splitCells splits a table row on unescaped pipes.
func splitCells(row string) []string {
	row = strings.TrimSpace(row)
	row = strings.TrimPrefix(row, "|")
	row = strings.TrimSuffix(row, "|")

	var (
		cells   []string
		current strings.Builder
	)

	for i := 0; i < len(row); i++ {
		switch {
		case row[i] == '\\' && i+1 < len(row) && row[i+1] == '|':
			current.WriteString(`\|`)
			i++
		case row[i] == '|':
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(row[i])
		}
	}

	return append(cells, strings.TrimSpace(current.String()))
}

func isSeparator(cells []string) bool {
	for _, cell := range cells {
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}

	return true
}
