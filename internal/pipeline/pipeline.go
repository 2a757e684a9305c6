// Package pipeline wires the fetch, normalize, enrich, score and export
// stages together. Each stage receives only the previous stage's output.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/seenimoa/newsquant/internal/analysis/sentiment"
	"github.com/seenimoa/newsquant/internal/datasource"
	"github.com/seenimoa/newsquant/internal/export"
	"github.com/seenimoa/newsquant/internal/infra"
	"github.com/seenimoa/newsquant/internal/normalize"
	"github.com/seenimoa/newsquant/pkg/models"
	"github.com/seenimoa/newsquant/pkg/utils"
)

// NewsFetcher retrieves a raw news payload.
type NewsFetcher interface {
	Name() string
	Fetch(ctx context.Context, q datasource.NewsQuery) (models.RawPayload, error)
}

// MarketFetcher retrieves a raw price series payload.
type MarketFetcher interface {
	Name() string
	Fetch(ctx context.Context, q datasource.MarketQuery) (models.RawPayload, error)
}

// Enricher adds a full_text column to a news table and reports how many
// rows could not be enriched.
type Enricher interface {
	Enrich(ctx context.Context, t *models.Table) int
}

// Pipeline holds the stage implementations. Nil stages are only an error
// when a run needs them.
type Pipeline struct {
	News      NewsFetcher
	Market    MarketFetcher
	Extractor Enricher
	Scorer    *sentiment.Scorer
	NewsSink  *export.Sink
	StockSink *export.Sink
	RawDir    string
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewsOptions selects the optional news stages.
type NewsOptions struct {
	FullText  bool
	Sentiment bool
	Formats   []export.Format
}

// NewsReport summarizes a news run.
type NewsReport struct {
	Source          string
	Query           datasource.NewsQuery
	RawPath         string
	Articles        int
	FullTextFailed  int
	Table           *models.Table
	Scored          *models.Table
	Daily           []models.DailySentiment
	Exports         export.Result
	SentimentExport export.Result
	DailyExport     export.Result
}

// MarketReport summarizes a market run.
type MarketReport struct {
	Source  string
	Query   datasource.MarketQuery
	RawPath string
	Rows    int
	Table   *models.Table
	Exports export.Result
}

func (p *Pipeline) logger() *slog.Logger { return infra.OrDefault(p.Logger) }

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// RunNews fetches, normalizes and exports news for q, with optional
// full-text enrichment and sentiment scoring.
func (p *Pipeline) RunNews(ctx context.Context, q datasource.NewsQuery, opts NewsOptions) (*NewsReport, error) {
	if p.News == nil {
		return nil, fmt.Errorf("pipeline: no news source configured")
	}
	if opts.FullText && p.Extractor == nil {
		return nil, fmt.Errorf("pipeline: full text requested without an extractor")
	}
	if opts.Sentiment && p.Scorer == nil {
		return nil, fmt.Errorf("pipeline: sentiment requested without a scorer")
	}
	if err := export.CheckFormats(opts.Formats); err != nil {
		return nil, err
	}
	log := p.logger().With("pipeline", "news", "query", q.Query)

	payload, err := p.News.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	report := &NewsReport{Source: p.News.Name(), Query: q}

	rawName := fmt.Sprintf("news_response_%s_%s_%s.json",
		utils.FormatDate(q.From), utils.FormatDate(q.To), utils.FormatStamp(p.now()))
	if report.RawPath, err = p.saveRaw("news", rawName, payload); err != nil {
		log.Warn("raw payload not saved", "error", err)
	}

	table, err := normalize.Normalize(payload)
	if err != nil {
		return nil, err
	}
	report.Articles = table.Len()
	log.Info("normalized news", "articles", table.Len(), "columns", len(table.Columns))

	if opts.FullText {
		report.FullTextFailed = p.Extractor.Enrich(ctx, table)
	}
	report.Table = table

	base := "news_" + q.Identity()
	if report.Exports, err = p.export(p.NewsSink, table, base, opts.Formats); err != nil {
		return nil, err
	}

	if opts.Sentiment {
		if err := p.scoreNews(report, base, opts.Formats); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// ScoreNews runs the sentiment and export stages over an already
// normalized news table.
func (p *Pipeline) ScoreNews(table *models.Table, baseName string, formats []export.Format) (*NewsReport, error) {
	if p.Scorer == nil {
		return nil, fmt.Errorf("pipeline: no scorer configured")
	}
	if err := export.CheckFormats(formats); err != nil {
		return nil, err
	}
	report := &NewsReport{Articles: table.Len(), Table: table}
	if err := p.scoreNews(report, baseName, formats); err != nil {
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) scoreNews(report *NewsReport, base string, formats []export.Format) error {
	scored, err := p.Scorer.Score(report.Table)
	if err != nil {
		return err
	}
	report.Scored = scored
	report.Daily = sentiment.Aggregate(scored.Rows)
	p.logger().Info("scored news", "articles", scored.Len(), "days", len(report.Daily))

	if report.SentimentExport, err = p.export(p.NewsSink, scored, base+"_sentiment", formats); err != nil {
		return err
	}
	report.DailyExport, err = p.export(p.NewsSink, sentiment.DailyTable(report.Daily), base+"_daily_sentiment", formats)
	return err
}

// RunMarket fetches, normalizes and exports the price series for q.
func (p *Pipeline) RunMarket(ctx context.Context, q datasource.MarketQuery, formats []export.Format) (*MarketReport, error) {
	if p.Market == nil {
		return nil, fmt.Errorf("pipeline: no market source configured")
	}
	if err := export.CheckFormats(formats); err != nil {
		return nil, err
	}

	payload, err := p.Market.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	now := p.now()
	report := &MarketReport{Source: p.Market.Name(), Query: q}

	rawName := fmt.Sprintf("%s_%s.json", q.Identity(), utils.FormatStamp(now))
	if report.RawPath, err = p.saveRaw("stock", rawName, payload); err != nil {
		p.logger().Warn("raw payload not saved", "symbol", q.Symbol, "error", err)
	}

	table, err := normalize.Normalize(payload)
	if err != nil {
		return nil, err
	}
	report.Rows = table.Len()
	report.Table = table

	base := fmt.Sprintf("%s_%s", q.Identity(), utils.FormatDate(now))
	if report.Exports, err = p.export(p.StockSink, table, base, formats); err != nil {
		return nil, err
	}
	return report, nil
}

// saveRaw persists the payload bytes under RawDir/sub. It is skipped when
// RawDir is empty.
func (p *Pipeline) saveRaw(sub, name string, payload models.RawPayload) (string, error) {
	if p.RawDir == "" || len(payload.Raw) == 0 {
		return "", nil
	}
	return export.WriteRawJSON(filepath.Join(p.RawDir, sub), name, payload.Raw)
}

// export is a no-op returning an empty result when no formats or no sink
// are given.
func (p *Pipeline) export(sink *export.Sink, t *models.Table, base string, formats []export.Format) (export.Result, error) {
	if sink == nil || len(formats) == 0 {
		return export.Result{}, nil
	}
	return sink.Export(t, base, formats)
}
