package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// ── Error Tests ──

func TestErrorIsMatchesKind(t *testing.T) {
	err := Errorf(KindRateLimit, "newsapi fetch", "quota exceeded")
	wrapped := fmt.Errorf("run news: %w", err)

	if !errors.Is(wrapped, ErrRateLimit) {
		t.Error("expected wrapped error to match ErrRateLimit")
	}
	if errors.Is(wrapped, ErrAuthentication) {
		t.Error("rate limit error must not match ErrAuthentication")
	}
	if KindOf(wrapped) != KindRateLimit {
		t.Errorf("KindOf = %q, want %q", KindOf(wrapped), KindRateLimit)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindSchema}, "schema"},
		{&Error{Kind: KindSchema, Msg: "missing columns"}, "missing columns"},
		{&Error{Kind: KindProvider, Op: "yfinance fetch", Msg: "bad symbol"}, "yfinance fetch: bad symbol"},
		{&Error{Kind: KindTransientNetwork, Op: "get", Err: errors.New("timeout")}, "get: transient_network: timeout"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	if Wrap(KindExportIO, "csv", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
	cause := errors.New("disk full")
	err := Wrap(KindExportIO, "csv", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	if !errors.Is(err, ErrExportIO) {
		t.Error("expected export_io kind")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if k := KindOf(errors.New("plain")); k != "" {
		t.Errorf("KindOf(plain) = %q, want empty", k)
	}
}

// ── Table Tests ──

func TestTableAppendFillsNulls(t *testing.T) {
	tbl := NewTable(KindNews, "title", "url")
	tbl.Append(Row{"title": "Hello"})
	if tbl.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tbl.Len())
	}
	v, ok := tbl.Rows[0]["url"]
	if !ok || v != nil {
		t.Errorf("url = %v (present %v), want null", v, ok)
	}
}

func TestTableAddColumn(t *testing.T) {
	tbl := NewTable(KindNews, "title")
	tbl.Append(Row{"title": "a"})
	tbl.AddColumn("full_text")
	tbl.AddColumn("full_text")

	if len(tbl.Columns) != 2 {
		t.Fatalf("columns = %v, want 2 entries", tbl.Columns)
	}
	if _, ok := tbl.Rows[0]["full_text"]; !ok {
		t.Error("expected full_text key on existing row")
	}
}

func TestTableCloneIsIndependent(t *testing.T) {
	tbl := NewTable(KindNews, "title")
	tbl.Append(Row{"title": "original"})

	cp := tbl.Clone()
	cp.Rows[0]["title"] = "changed"
	cp.AddColumn("extra")

	if tbl.Rows[0]["title"] != "original" {
		t.Error("clone modified source row")
	}
	if tbl.HasColumn("extra") {
		t.Error("clone modified source columns")
	}
}

func TestTableRecords(t *testing.T) {
	tbl := NewTable(KindMarket, "Datetime", "Close", "Volume", "Note")
	tbl.Append(Row{
		"Datetime": time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		"Close":    185.5,
		"Volume":   int64(1200),
	})

	recs := tbl.Records()
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	want := []string{"2024-01-02 09:30:00", "185.5", "1200", ""}
	for i, w := range want {
		if recs[1][i] != w {
			t.Errorf("cell %d = %q, want %q", i, recs[1][i], w)
		}
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{0.25, "0.25"},
		{3, "3"},
		{true, "true"},
		{map[string]any{"name": "Reuters"}, `{"name":"Reuters"}`},
		{[]any{"a", 1.0}, `["a",1]`},
	}
	for _, tt := range tests {
		if got := FormatCell(tt.in); got != tt.want {
			t.Errorf("FormatCell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMarketSeriesLenNil(t *testing.T) {
	var s *MarketSeries
	if s.Len() != 0 {
		t.Error("nil series should have length 0")
	}
}
