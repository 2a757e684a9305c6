package sentiment

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/seenimoa/newsquant/pkg/models"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer()
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return s
}

func TestEnsureReadyLoadsOnce(t *testing.T) {
	if err := EnsureReady(); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	mu.Lock()
	lexicon["zzlexicon-sentinel"] = 9
	mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := EnsureReady(); err != nil {
				t.Errorf("EnsureReady: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	defer delete(lexicon, "zzlexicon-sentinel")
	if lexicon["zzlexicon-sentinel"] != 9 {
		t.Error("lexicon was reloaded by a later call")
	}
	if len(lexicon) < 100 {
		t.Errorf("lexicon has %d entries", len(lexicon))
	}
}

func TestParseLexicon(t *testing.T) {
	lex, err := parseLexicon([]byte("# comment\n\nGood\t1.9\t0.9\t[2, 1]\nbad\t-2.5\n"))
	if err != nil {
		t.Fatalf("parseLexicon: %v", err)
	}
	if lex["good"] != 1.9 || lex["bad"] != -2.5 {
		t.Errorf("lexicon = %v", lex)
	}

	for _, bad := range []string{"word\n", "word\tnotanumber\n"} {
		if _, err := parseLexicon([]byte(bad)); err == nil {
			t.Errorf("parseLexicon(%q) should fail", bad)
		}
	}
}

func TestPolarity(t *testing.T) {
	s := newTestScorer(t)

	if got := s.Polarity("good"); math.Abs(got-0.4404) > 1e-4 {
		t.Errorf("Polarity(good) = %.4f, want 0.4404", got)
	}

	tests := []struct {
		name string
		text string
		sign int
	}{
		{"positive", "Shares surge on strong profit growth", 1},
		{"negative", "Company faces fraud lawsuit and bankruptcy fears", -1},
		{"neutral", "The meeting is scheduled for Tuesday", 0},
		{"negated", "The quarter was not good", -1},
		{"contrast", "Results were good but the outlook is terrible", -1},
		{"empty", "", 0},
		{"sentinel", "[full text unavailable] fulltext: HTTP 404", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Polarity(tt.text)
			switch {
			case tt.sign > 0 && got <= 0,
				tt.sign < 0 && got >= 0,
				tt.sign == 0 && got != 0:
				t.Errorf("Polarity(%q) = %.4f, want sign %d", tt.text, got, tt.sign)
			}
		})
	}
}

func TestPolarityModifiers(t *testing.T) {
	s := newTestScorer(t)
	base := s.Polarity("a good day")

	if got := s.Polarity("a very good day"); got <= base {
		t.Errorf("booster: %.4f <= %.4f", got, base)
	}
	if got := s.Polarity("a slightly good day"); got >= base {
		t.Errorf("dampener: %.4f >= %.4f", got, base)
	}
	if got := s.Polarity("a GOOD day"); got <= base {
		t.Errorf("caps emphasis: %.4f <= %.4f", got, base)
	}
	if got := s.Polarity("a good day!!"); got <= base {
		t.Errorf("exclamation: %.4f <= %.4f", got, base)
	}
}

func TestPolarityBoundedAndDeterministic(t *testing.T) {
	s := newTestScorer(t)
	texts := []string{
		strings.Repeat("great excellent awesome love ", 50),
		strings.Repeat("terrible worst disaster crisis ", 50),
		"!!!!!!!!!!",
		"αβγ 日本語 ???",
	}
	for _, text := range texts {
		a, b := s.Polarity(text), s.Polarity(text)
		if a != b {
			t.Errorf("Polarity not deterministic: %v != %v", a, b)
		}
		if a < -1 || a > 1 {
			t.Errorf("Polarity = %v, out of range", a)
		}
	}
}

func newsTable(rows ...models.Row) *models.Table {
	t := models.NewTable(models.KindNews, models.ColTitle, models.ColPublishedAt, models.ColFullText)
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func TestScore(t *testing.T) {
	s := newTestScorer(t)
	in := newsTable(
		models.Row{models.ColPublishedAt: "2024-01-01T23:30:00-05:00", models.ColFullText: "great gains"},
		models.Row{models.ColPublishedAt: "2024-01-02T08:00:00Z", models.ColFullText: "terrible losses"},
		models.Row{models.ColPublishedAt: nil, models.ColFullText: nil},
		models.Row{models.ColPublishedAt: time.Date(2024, 1, 3, 1, 0, 0, 0, time.FixedZone("IST", 19800)), models.ColFullText: "ok"},
	)

	out, err := s.Score(in)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if in.HasColumn(models.ColSentiment) {
		t.Error("Score modified its input")
	}
	if !out.HasColumn(models.ColSentiment) || !out.HasColumn(models.ColDate) {
		t.Fatalf("columns = %v", out.Columns)
	}

	wantDates := []any{"2024-01-01", "2024-01-02", nil, "2024-01-03"}
	for i, want := range wantDates {
		if got := out.Rows[i][models.ColDate]; got != want {
			t.Errorf("row %d date = %v, want %v", i, got, want)
		}
	}
	if v := out.Rows[0][models.ColSentiment].(float64); v <= 0 {
		t.Errorf("row 0 sentiment = %v, want positive", v)
	}
	if v := out.Rows[1][models.ColSentiment].(float64); v >= 0 {
		t.Errorf("row 1 sentiment = %v, want negative", v)
	}
	if v := out.Rows[2][models.ColSentiment].(float64); v != 0 {
		t.Errorf("null text sentiment = %v, want 0", v)
	}
}

func TestScoreMissingColumns(t *testing.T) {
	s := newTestScorer(t)
	tests := []struct {
		cols []string
		want string
	}{
		{[]string{models.ColTitle, models.ColFullText}, "missing required columns: publishedAt"},
		{[]string{models.ColTitle, models.ColPublishedAt}, "missing required columns: full_text"},
		{[]string{models.ColTitle}, "missing required columns: full_text, publishedAt"},
	}
	for _, tt := range tests {
		_, err := s.Score(models.NewTable(models.KindNews, tt.cols...))
		if !errors.Is(err, models.ErrSchema) {
			t.Errorf("cols %v: err = %v, want schema", tt.cols, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("cols %v: err = %q, want %q", tt.cols, err, tt.want)
		}
	}
}

func TestScoreInvalidTimestamp(t *testing.T) {
	s := newTestScorer(t)
	_, err := s.Score(newsTable(models.Row{models.ColPublishedAt: "yesterday", models.ColFullText: "x"}))
	if !errors.Is(err, models.ErrSchema) {
		t.Errorf("err = %v, want schema", err)
	}
}

func TestAggregate(t *testing.T) {
	rows := []models.Row{
		{models.ColDate: "2024-01-01", models.ColSentiment: 0.5},
		{models.ColDate: "2024-01-02", models.ColSentiment: 0.2},
		{models.ColDate: "2024-01-01", models.ColSentiment: -0.1},
		{models.ColDate: nil, models.ColSentiment: 0.9},
	}

	agg := Aggregate(rows)
	if len(agg) != 2 {
		t.Fatalf("got %d dates, want 2: %+v", len(agg), agg)
	}
	if agg[0].Date != "2024-01-01" || math.Abs(agg[0].Sentiment-0.2) > 1e-12 || agg[0].Articles != 2 {
		t.Errorf("agg[0] = %+v, want 2024-01-01 mean 0.2 over 2", agg[0])
	}
	// A single-row date carries that row's exact value.
	if agg[1].Date != "2024-01-02" || agg[1].Sentiment != 0.2 || agg[1].Articles != 1 {
		t.Errorf("agg[1] = %+v, want exactly 0.2", agg[1])
	}

	tbl := DailyTable(agg)
	if strings.Join(tbl.Columns, ",") != "date,sentiment" || tbl.Len() != 2 {
		t.Errorf("daily table = %v with %d rows", tbl.Columns, tbl.Len())
	}
}

func TestAggregateEmpty(t *testing.T) {
	if agg := Aggregate(nil); len(agg) != 0 {
		t.Errorf("Aggregate(nil) = %v", agg)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.5, "Bullish"},
		{0.2, "Slightly Bullish"},
		{0.0, "Neutral"},
		{-0.2, "Slightly Bearish"},
		{-0.5, "Bearish"},
	}
	for _, tt := range tests {
		if got := Label(tt.score); got != tt.want {
			t.Errorf("Label(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
