package export

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/newsquant/pkg/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleTable() *models.Table {
	t := models.NewTable(models.KindMarket, "Datetime", "Close", "Volume", "Note")
	t.Append(models.Row{
		"Datetime": time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		"Close":    185.64,
		"Volume":   int64(82488700),
		"Note":     "first, with comma",
	})
	t.Append(models.Row{
		"Datetime": time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC),
		"Close":    nil,
		"Volume":   nil,
	})
	return t
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportBothFormats(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(filepath.Join(dir, "out"), quietLogger())

	res, err := sink.Export(sampleTable(), "AAPL_1mo_1d", []Format{FormatCSV, FormatSpreadsheet, FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, Result{FormatCSV: true, FormatSpreadsheet: true}, res)
	assert.True(t, res.OK())

	records := readCSV(t, filepath.Join(dir, "out", "AAPL_1mo_1d.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Datetime", "Close", "Volume", "Note"}, records[0])
	assert.Equal(t, []string{"2024-01-02 09:30:00", "185.64", "82488700", "first, with comma"}, records[1])
	assert.Equal(t, []string{"2024-01-03 09:30:00", "", "", ""}, records[2])

	xf, err := excelize.OpenFile(filepath.Join(dir, "out", "AAPL_1mo_1d.xlsx"))
	require.NoError(t, err)
	defer xf.Close()
	rows, err := xf.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Datetime", "Close", "Volume", "Note"}, rows[0])
	assert.Equal(t, "185.64", rows[1][1])
	assert.Equal(t, "first, with comma", rows[1][3])
}

func TestExportUnsupportedFormatWritesNothing(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, quietLogger())

	res, err := sink.Export(sampleTable(), "news", []Format{FormatCSV, "xml"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "supported: csv, spreadsheet")
	assert.Nil(t, res)

	_, statErr := os.Stat(filepath.Join(dir, "news.csv"))
	assert.True(t, os.IsNotExist(statErr), "csv file must not be created")
}

func TestExportUnwritableSpreadsheetDir(t *testing.T) {
	dir := t.TempDir()
	// A regular file where a directory is expected makes the spreadsheet
	// target unwritable regardless of the user running the test.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	sink := &Sink{
		CSVDir:         filepath.Join(dir, "csv"),
		SpreadsheetDir: filepath.Join(blocker, "xlsx"),
		Logger:         quietLogger(),
	}

	res, err := sink.Export(sampleTable(), "AAPL", []Format{FormatCSV, FormatSpreadsheet})
	require.NoError(t, err)
	assert.Equal(t, Result{FormatCSV: true, FormatSpreadsheet: false}, res)
	assert.False(t, res.OK())

	records := readCSV(t, filepath.Join(dir, "csv", "AAPL.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, "185.64", records[1][1])
}

// A text cell longer than a spreadsheet cell can hold fails that format
// instead of being cut short; the csv file keeps the full text.
func TestExportOversizedCellFailsSpreadsheet(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, quietLogger())

	long := strings.Repeat("a", excelize.TotalCellChars+1)
	tbl := models.NewTable(models.KindNews, models.ColTitle, models.ColFullText)
	tbl.Append(models.Row{models.ColTitle: "long read", models.ColFullText: long})

	res, err := sink.Export(tbl, "long", []Format{FormatCSV, FormatSpreadsheet})
	require.NoError(t, err)
	assert.Equal(t, Result{FormatCSV: true, FormatSpreadsheet: false}, res)
	assert.NoFileExists(t, filepath.Join(dir, "long.xlsx"))

	records := readCSV(t, filepath.Join(dir, "long.csv"))
	require.Len(t, records, 2)
	assert.Len(t, records[1][1], excelize.TotalCellChars+1)
}

func TestExportCellAtLimit(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, quietLogger())

	tbl := models.NewTable(models.KindNews, models.ColFullText)
	tbl.Append(models.Row{models.ColFullText: strings.Repeat("é", excelize.TotalCellChars)})

	res, err := sink.Export(tbl, "limit", []Format{FormatSpreadsheet})
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestExportEmptyTable(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, quietLogger())

	res, err := sink.Export(models.NewTable(models.KindNews, "title", "url"), "empty", []Format{FormatCSV})
	require.NoError(t, err)
	assert.True(t, res[FormatCSV])
	assert.Equal(t, [][]string{{"title", "url"}}, readCSV(t, filepath.Join(dir, "empty.csv")))
}

func TestParseFormats(t *testing.T) {
	fs, err := ParseFormats([]string{" Spreadsheet", "csv", "CSV"})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatCSV, FormatSpreadsheet}, fs)

	_, err = ParseFormats([]string{"csv", "parquet"})
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), `"parquet"`)
}

func TestWriteRawJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw", "news")

	path, err := WriteRawJSON(dir, "resp.json", []byte(`{"status":"ok","articles":[]}`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "resp.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"status\": \"ok\",\n  \"articles\": []\n}", string(data))

	path, err = WriteRawJSON(dir, "bad.json", []byte("not json"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not json", string(data))
}

func TestWriteRawJSONUnwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := WriteRawJSON(filepath.Join(blocker, "raw"), "x.json", []byte("{}"))
	assert.ErrorIs(t, err, models.ErrExportIO)
}
