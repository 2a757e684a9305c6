// Package export persists tables to disk. Each requested format is written
// independently; one format failing does not stop the others.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/newsquant/internal/infra"
	"github.com/seenimoa/newsquant/pkg/models"
)

// Format is an on-disk table format.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatSpreadsheet Format = "spreadsheet"
)

// SheetName is the worksheet that spreadsheet exports write to.
const SheetName = "data"

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatSpreadsheet}

// Ext returns the file extension of f, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatSpreadsheet:
		return ".xlsx"
	default:
		return ""
	}
}

// Result records per-format success.
type Result map[Format]bool

// OK reports whether every format succeeded.
func (r Result) OK() bool {
	for _, ok := range r {
		if !ok {
			return false
		}
	}
	return true
}

// ParseFormats converts format names, as given on the command line or in
// config, into a validated format set.
func ParseFormats(names []string) ([]Format, error) {
	fs := make([]Format, len(names))
	for i, n := range names {
		fs[i] = Format(strings.ToLower(strings.TrimSpace(n)))
	}
	return validFormats(fs)
}

// CheckFormats reports an unsupported_format error if any of fs is unknown.
func CheckFormats(fs []Format) error {
	_, err := validFormats(fs)
	return err
}

// validFormats drops duplicates and sorts fs. An unknown format fails the
// whole set.
func validFormats(fs []Format) ([]Format, error) {
	seen := map[Format]bool{}
	var out []Format
	for _, f := range fs {
		if f.Ext() == "" {
			return nil, models.Errorf(models.KindUnsupportedFormat, "export",
				"unsupported format %q (supported: %s)", string(f), supportedNames())
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func supportedNames() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Sink writes tables under per-format directories.
type Sink struct {
	CSVDir         string
	SpreadsheetDir string
	Logger         *slog.Logger
}

// NewSink returns a sink writing both formats into dir.
func NewSink(dir string, logger *slog.Logger) *Sink {
	return &Sink{CSVDir: dir, SpreadsheetDir: dir, Logger: logger}
}

// Path returns the file the sink writes for baseName in format f.
func (s *Sink) Path(baseName string, f Format) string {
	dir := s.CSVDir
	if f == FormatSpreadsheet {
		dir = s.SpreadsheetDir
	}
	return filepath.Join(dir, baseName+f.Ext())
}

// Export writes t in each requested format. The format set is validated
// before anything is written; an unsupported format returns an error and
// no files. Write failures are logged and reported as false in the result.
func (s *Sink) Export(t *models.Table, baseName string, formats []Format) (Result, error) {
	fs, err := validFormats(formats)
	if err != nil {
		return nil, err
	}
	logger := infra.OrDefault(s.Logger)

	result := make(Result, len(fs))
	for _, f := range fs {
		path := s.Path(baseName, f)
		if err := s.write(t, f, path); err != nil {
			_ = os.Remove(path)
			logger.Error("export failed", "format", f, "path", path, "error", err)
			result[f] = false
			continue
		}
		logger.Info("exported table", "format", f, "path", path, "rows", t.Len())
		result[f] = true
	}
	return result, nil
}

func (s *Sink) write(t *models.Table, f Format, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return models.Wrap(models.KindExportIO, "export "+string(f), err)
	}
	var err error
	switch f {
	case FormatCSV:
		err = writeCSV(t, path)
	case FormatSpreadsheet:
		err = writeSpreadsheet(t, path)
	}
	return models.Wrap(models.KindExportIO, "export "+string(f), err)
}

func writeCSV(t *models.Table, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if err := w.WriteAll(t.Records()); err != nil {
		file.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	return file.Close()
}

func writeSpreadsheet(t *models.Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	for i, r := range t.Rows {
		cells := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			cells[j] = spreadsheetValue(r[c])
			if s, ok := cells[j].(string); ok && utf8.RuneCountInString(s) > excelize.TotalCellChars {
				return fmt.Errorf("row %d column %s: %d characters exceeds the %d-character cell limit",
					i, c, utf8.RuneCountInString(s), excelize.TotalCellChars)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	return f.SaveAs(path)
}

// spreadsheetValue keeps numbers, booleans and times native and renders
// everything else as text.
func spreadsheetValue(v any) any {
	switch v.(type) {
	case nil:
		return nil
	case float64, float32, int, int64, bool, string, time.Time:
		return v
	default:
		return models.FormatCell(v)
	}
}

// WriteRawJSON persists a raw provider response as indented JSON at
// dir/name. Bodies that are not valid JSON are written unchanged.
func WriteRawJSON(dir, name string, raw []byte) (string, error) {
	const op = "save raw"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.Wrap(models.KindExportIO, op, err)
	}

	out := raw
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err == nil {
		out = buf.Bytes()
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", models.Wrap(models.KindExportIO, op, err)
	}
	return path, nil
}
