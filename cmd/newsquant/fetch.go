package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/newsquant/internal/analysis/sentiment"
	"github.com/seenimoa/newsquant/internal/datasource"
	"github.com/seenimoa/newsquant/internal/export"
	"github.com/seenimoa/newsquant/internal/infra"
	"github.com/seenimoa/newsquant/internal/normalize"
	"github.com/seenimoa/newsquant/internal/pipeline"
	"github.com/seenimoa/newsquant/pkg/models"
	"github.com/seenimoa/newsquant/pkg/utils"
)

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [query]",
	Short: "Fetch, normalize and export news articles",
	Long: `Fetch news articles matching a query, save the raw response, and export
the article table. With --sentiment, article bodies are downloaded and
scored, and per-article and per-day sentiment tables are exported too.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := newsQueryFromFlags(cmd, args[0])
		if err != nil {
			return err
		}
		formats, err := formatsFromFlags(cmd)
		if err != nil {
			return err
		}

		fullText, _ := cmd.Flags().GetBool("full-text")
		withSentiment, _ := cmd.Flags().GetBool("sentiment")
		opts := pipeline.NewsOptions{
			FullText:  fullText || withSentiment || cfg.News.FullText.Enabled,
			Sentiment: withSentiment,
			Formats:   formats,
		}

		source, _ := cmd.Flags().GetString("source")
		fetcher, err := newsSource(coalesce(source, cfg.News.Source))
		if err != nil {
			return err
		}

		p, err := newPipeline(opts.Sentiment)
		if err != nil {
			return err
		}
		p.News = fetcher

		fmt.Printf("📰 %s: %q from %s to %s\n", fetcher.Name(), q.Query, utils.FormatDate(q.From), utils.FormatDate(q.To))
		report, err := p.RunNews(cmd.Context(), q, opts)
		if err != nil {
			return err
		}

		rows, _ := cmd.Flags().GetInt("preview")
		printNewsReport(cmd.OutOrStdout(), report, rows)
		return checkExports(report.Exports, report.SentimentExport, report.DailyExport)
	},
}

func init() {
	newsCmd.Flags().Int("days", 0, "look back this many days (default: news.days from config)")
	newsCmd.Flags().String("from", "", "start date YYYY-MM-DD (inclusive)")
	newsCmd.Flags().String("to", "", "end date YYYY-MM-DD (inclusive, default: today)")
	newsCmd.Flags().StringSlice("category", nil, "category filter (repeatable)")
	newsCmd.Flags().String("source", "", "news source: newsapi or rss (default: news.source from config)")
	newsCmd.Flags().Bool("full-text", false, "download and extract full article text")
	newsCmd.Flags().Bool("sentiment", false, "score sentiment (implies --full-text)")
	newsCmd.Flags().StringSlice("format", nil, "export format: csv, spreadsheet (repeatable)")
	newsCmd.Flags().Int("preview", 10, "number of articles to print")
}

// --- Stock Command ---

var stockCmd = &cobra.Command{
	Use:   "stock [symbol]",
	Short: "Fetch, normalize and export a stock price series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		period, _ := cmd.Flags().GetString("period")
		interval, _ := cmd.Flags().GetString("interval")
		q, err := datasource.NewMarketQuery(args[0], coalesce(period, cfg.Market.Period), coalesce(interval, cfg.Market.Interval))
		if err != nil {
			return err
		}
		formats, err := formatsFromFlags(cmd)
		if err != nil {
			return err
		}

		p, err := newPipeline(false)
		if err != nil {
			return err
		}
		p.Market = datasource.NewYFinance(clientOptions(cfg.Market.Endpoint)...)

		fmt.Printf("📈 %s: %s (period %s, interval %s)\n", p.Market.Name(), q.Symbol, q.Period, q.Interval)
		report, err := p.RunMarket(cmd.Context(), q, formats)
		if err != nil {
			return err
		}

		rows, _ := cmd.Flags().GetInt("preview")
		printMarketReport(cmd.OutOrStdout(), report, rows)
		return checkExports(report.Exports)
	},
}

func init() {
	stockCmd.Flags().String("period", "", "data period, e.g., 1mo (default: market.period from config)")
	stockCmd.Flags().String("interval", "", "sampling interval, e.g., 1d (default: market.interval from config)")
	stockCmd.Flags().StringSlice("format", nil, "export format: csv, spreadsheet (repeatable)")
	stockCmd.Flags().Int("preview", 5, "number of rows to print")
}

// --- Sentiment Command ---

var sentimentCmd = &cobra.Command{
	Use:   "sentiment [file.json]",
	Short: "Score sentiment for a saved raw news response",
	Long: `Normalize a raw news response saved by the news command, then score and
export per-article and per-day sentiment. Article text comes from
--full-text (download each article) or --text-from COLUMN (reuse a column
such as content or description).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formats, err := formatsFromFlags(cmd)
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var data any
		if err := json.Unmarshal(raw, &data); err != nil {
			return models.Wrap(models.KindMalformedPayload, "read "+filepath.Base(args[0]), err)
		}
		table, err := normalize.News(data)
		if err != nil {
			return err
		}

		p, err := newPipeline(true)
		if err != nil {
			return err
		}

		fullText, _ := cmd.Flags().GetBool("full-text")
		textFrom, _ := cmd.Flags().GetString("text-from")
		switch {
		case fullText:
			p.Extractor.Enrich(cmd.Context(), table)
		case textFrom != "":
			if !table.HasColumn(textFrom) {
				return models.Errorf(models.KindSchema, "sentiment", "column %q not found", textFrom)
			}
			table.AddColumn(models.ColFullText)
			for _, r := range table.Rows {
				r[models.ColFullText] = r[textFrom]
			}
		}

		base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		report, err := p.ScoreNews(table, base, formats)
		if err != nil {
			return err
		}

		rows, _ := cmd.Flags().GetInt("preview")
		printNewsReport(cmd.OutOrStdout(), report, rows)
		return checkExports(report.Exports, report.SentimentExport, report.DailyExport)
	},
}

func init() {
	sentimentCmd.Flags().Bool("full-text", false, "download article text before scoring")
	sentimentCmd.Flags().String("text-from", "", "score the text of this column instead of downloading articles")
	sentimentCmd.Flags().StringSlice("format", nil, "export format: csv, spreadsheet (repeatable)")
	sentimentCmd.Flags().Int("preview", 10, "number of articles to print")
}

// --- Helpers ---

// newPipeline builds a pipeline from the loaded config. The scorer is only
// created when sentiment is requested.
func newPipeline(withScorer bool) (*pipeline.Pipeline, error) {
	p := &pipeline.Pipeline{
		Extractor: datasource.NewExtractor(
			cfg.News.FullText.Concurrency,
			cfg.News.FullText.RatePerSec,
			clientOptions("")...,
		),
		NewsSink:  export.NewSink(filepath.Join(cfg.Data.ProcessedDir, "news"), logger),
		StockSink: export.NewSink(filepath.Join(cfg.Data.ProcessedDir, "stock"), logger),
		RawDir:    cfg.Data.RawDir,
		Logger:    logger,
	}
	if withScorer {
		scorer, err := sentiment.NewScorer()
		if err != nil {
			return nil, err
		}
		p.Scorer = scorer
	}
	return p, nil
}

func newsSource(name string) (pipeline.NewsFetcher, error) {
	switch strings.ToLower(name) {
	case "newsapi", "":
		n, err := datasource.NewNewsAPI(cfg.News.APIKey, clientOptions(cfg.News.Endpoint)...)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "rss":
		return datasource.NewRSS(cfg.News.RSSFeeds, clientOptions("")...), nil
	default:
		return nil, fmt.Errorf("unknown news source %q (use newsapi or rss)", name)
	}
}

func clientOptions(endpoint string) []datasource.Option {
	opts := []datasource.Option{
		datasource.WithHTTPClient(infra.NewHTTPClient(cfg.HTTP.Timeout())),
		datasource.WithLogger(logger),
	}
	if endpoint != "" {
		opts = append(opts, datasource.WithEndpoint(endpoint))
	}
	return opts
}

func newsQueryFromFlags(cmd *cobra.Command, query string) (datasource.NewsQuery, error) {
	categories, _ := cmd.Flags().GetStringSlice("category")
	if len(categories) == 0 {
		categories = cfg.News.Categories
	}
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	var (
		q   datasource.NewsQuery
		err error
	)
	if fromStr != "" || toStr != "" {
		from, to, perr := parseRange(fromStr, toStr)
		if perr != nil {
			return q, perr
		}
		q, err = datasource.NewNewsQuery(query, categories, from, to)
	} else {
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = cfg.News.Days
		}
		q, err = datasource.NewsQueryForLastDays(query, categories, days, time.Now())
	}
	if err != nil {
		return q, err
	}

	q.Language = coalesce(cfg.News.Language, q.Language)
	q.PageSize = cfg.News.PageSize
	return q, q.Validate()
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if toStr != "" {
		t, err := utils.ParseDate(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, models.Errorf(models.KindInvalidQuery, "news query", "bad --to date %q", toStr)
		}
		to = t
	}
	if fromStr == "" {
		return to, to, nil
	}
	from, err := utils.ParseDate(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, models.Errorf(models.KindInvalidQuery, "news query", "bad --from date %q", fromStr)
	}
	return from, to, nil
}

func formatsFromFlags(cmd *cobra.Command) ([]export.Format, error) {
	names, _ := cmd.Flags().GetStringSlice("format")
	if len(names) == 0 {
		names = cfg.Export.Formats
	}
	return export.ParseFormats(names)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
