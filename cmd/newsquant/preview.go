package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/seenimoa/newsquant/internal/analysis/sentiment"
	"github.com/seenimoa/newsquant/internal/export"
	"github.com/seenimoa/newsquant/internal/normalize"
	"github.com/seenimoa/newsquant/internal/pipeline"
	"github.com/seenimoa/newsquant/pkg/models"
)

const (
	titleWidth  = 60
	sourceWidth = 18
)

// cell pads or truncates s to exactly width terminal columns.
func cell(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

func printNewsReport(w io.Writer, r *pipeline.NewsReport, limit int) {
	fmt.Fprintf(w, "\n  Articles:  %d\n", r.Articles)
	if r.FullTextFailed > 0 {
		fmt.Fprintf(w, "  Full text: %d of %d unavailable\n", r.FullTextFailed, r.Articles)
	}
	if r.RawPath != "" {
		fmt.Fprintf(w, "  Raw:       %s\n", r.RawPath)
	}
	printExports(w, "Articles", r.Exports)
	printExports(w, "Sentiment", r.SentimentExport)
	printExports(w, "Daily", r.DailyExport)

	table := r.Table
	if r.Scored != nil {
		table = r.Scored
	}
	if table != nil && limit > 0 && table.Len() > 0 {
		fmt.Fprintln(w)
		header := "  " + cell("TITLE", titleWidth) + "  " + cell("SOURCE", sourceWidth) + "  " + cell("PUBLISHED", 20)
		if r.Scored != nil {
			header += "  SENTIMENT"
		}
		fmt.Fprintln(w, header)
		for i, row := range table.Rows {
			if i >= limit {
				fmt.Fprintf(w, "  … %d more\n", table.Len()-limit)
				break
			}
			line := "  " + cell(models.FormatCell(row[models.ColTitle]), titleWidth) +
				"  " + cell(models.FormatCell(row[models.ColSourceName]), sourceWidth) +
				"  " + cell(models.FormatCell(row[models.ColPublishedAt]), 20)
			if r.Scored != nil {
				if v, ok := row[models.ColSentiment].(float64); ok {
					line += fmt.Sprintf("  %+.3f", v)
				}
			}
			fmt.Fprintln(w, line)
		}
	}

	if len(r.Daily) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  "+cell("DATE", 12)+"  "+cell("ARTICLES", 9)+"  SENTIMENT")
		for _, d := range r.Daily {
			fmt.Fprintf(w, "  %s  %s  %+.3f  %s\n", cell(d.Date, 12), cell(fmt.Sprint(d.Articles), 9), d.Sentiment, sentiment.Label(d.Sentiment))
		}
	}
}

func printMarketReport(w io.Writer, r *pipeline.MarketReport, limit int) {
	fmt.Fprintf(w, "\n  Rows:      %d\n", r.Rows)
	if r.RawPath != "" {
		fmt.Fprintf(w, "  Raw:       %s\n", r.RawPath)
	}
	printExports(w, "Prices", r.Exports)

	if r.Table == nil || limit <= 0 || r.Table.Len() == 0 {
		return
	}
	fmt.Fprintln(w)
	widths := make([]int, len(r.Table.Columns))
	for i, c := range r.Table.Columns {
		widths[i] = 12
		if c == normalize.ColDatetime {
			widths[i] = 19
		}
	}
	var b strings.Builder
	for i, c := range r.Table.Columns {
		b.WriteString("  " + cell(c, widths[i]))
	}
	fmt.Fprintln(w, b.String())

	// Show the most recent rows.
	start := r.Table.Len() - limit
	if start < 0 {
		start = 0
	}
	for _, row := range r.Table.Rows[start:] {
		b.Reset()
		for i, c := range r.Table.Columns {
			b.WriteString("  " + cell(models.FormatCell(row[c]), widths[i]))
		}
		fmt.Fprintln(w, b.String())
	}
}

func printExports(w io.Writer, label string, res export.Result) {
	if len(res) == 0 {
		return
	}
	formats := make([]string, 0, len(res))
	for f := range res {
		formats = append(formats, string(f))
	}
	sort.Strings(formats)

	parts := make([]string, 0, len(formats))
	for _, f := range formats {
		mark := "✅"
		if !res[export.Format(f)] {
			mark = "❌"
		}
		parts = append(parts, mark+" "+f)
	}
	fmt.Fprintf(w, "  %-10s %s\n", label+":", strings.Join(parts, "  "))
}

// checkExports returns an export_io error when any requested format was not
// written. The per-format outcome has already been printed by then.
func checkExports(results ...export.Result) error {
	var failed []string
	for _, res := range results {
		if res.OK() {
			continue
		}
		for f, ok := range res {
			if !ok {
				failed = append(failed, string(f))
			}
		}
	}
	if len(failed) == 0 {
		return nil
	}
	sort.Strings(failed)
	return models.Errorf(models.KindExportIO, "export", "%d export(s) failed: %s", len(failed), strings.Join(failed, ", "))
}
