package formatter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"steamscraper/internal/crawler"
	"steamscraper/internal/migrate"
	"steamscraper/internal/validator"
)

// Table is a titled grid of cells.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// maxMissingRows bounds the missing-fields table of a crawl summary.
const maxMissingRows = 5

// CrawlTables summarizes a crawl run and, when any record was trashed, the
// fields trashed records lacked most often.
func CrawlTables(stats crawler.Stats, validity validator.Snapshot) []Table {
	tables := []Table{crawlTotals(stats)}

	fields := validity.MissingFields()
	if len(fields) == 0 {
		return tables
	}

	missing := Table{
		Title:  fmt.Sprintf("Most Missed Fields (%d of %d classified records trashed)", validity.Trash, validity.Total),
		Header: []string{"Field", "Records"},
	}

	for _, field := range fields[:min(len(fields), maxMissingRows)] {
		missing.Rows = append(missing.Rows, []string{field, strconv.Itoa(validity.Missing[field])})
	}

	return append(tables, missing)
}

func crawlTotals(stats crawler.Stats) Table {
	return Table{
		Title:  "Scraping Summary",
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Requested", strconv.Itoa(stats.Requested)},
			{"Succeeded", strconv.Itoa(stats.Succeeded)},
			{"Skipped", strconv.Itoa(stats.Skipped)},
			{"Trash", strconv.Itoa(stats.Trash)},
			{"Failed", strconv.Itoa(stats.Failed)},
		},
	}
}

// MigrationTables summarizes a migration run: totals, step statistics and,
// when any file failed, the failures.
func MigrationTables(s migrate.Summary) []Table {
	totals := Table{
		Title:  fmt.Sprintf("Upgrade %s → %s", s.From, s.To),
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Total files found", strconv.Itoa(s.Total)},
			{"Successfully upgraded", strconv.Itoa(s.Succeeded)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Skipped (already exist)", strconv.Itoa(s.Skipped)},
		},
	}

	stats := Table{
		Title:  "Step Statistics",
		Header: []string{"Statistic", "Count"},
	}

	for _, name := range s.StatNames {
		stats.Rows = append(stats.Rows, []string{name, strconv.Itoa(s.Counters[name])})
	}

	tables := []Table{totals, stats}

	if len(s.Failures) > 0 {
		failures := Table{Title: "Failures", Header: []string{"File", "Error"}}
		for _, f := range s.Failures {
			failures.Rows = append(failures.Rows, []string{f.Name, errString(f.Err)})
		}

		tables = append(tables, failures)
	}

	return tables
}

// RenderTable writes t to w as a rounded console table.
func RenderTable(w io.Writer, t Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(t.Title)
	tw.AppendHeader(toRow(t.Header))

	for _, row := range t.Rows {
		tw.AppendRow(toRow(row))
	}

	tw.SetStyle(table.StyleRounded)
	tw.Render()
}

// CrawlProgress formats the periodic crawl progress line.
func CrawlProgress(processed int, stats crawler.Stats) string {
	return fmt.Sprintf("📊 [%d/%d] succeeded=%d skipped=%d trash=%d failed=%d",
		processed, stats.Requested, stats.Succeeded, stats.Skipped, stats.Trash, stats.Failed)
}

// MigrationProgress formats the periodic migration progress line.
func MigrationProgress(processed int, s migrate.Summary) string {
	return fmt.Sprintf("📊 [%5d/%d] ✓ upgraded %d, ✗ failed %d, skipped %d",
		processed, s.Total, s.Succeeded, s.Failed, s.Skipped)
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}

	return row
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
