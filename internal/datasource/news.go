package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/newsquant/pkg/models"
)

// RSS fetches articles from RSS/Atom feeds and filters them by query and
// date range. Its payload is a bare list of NewsAPI-shaped records.
type RSS struct {
	base
	feeds  []string
	parser *gofeed.Parser
}

// NewRSS creates a news data source reading the given feed URLs.
func NewRSS(feeds []string, opts ...Option) *RSS {
	b := newBase("", opts)
	parser := gofeed.NewParser()
	parser.Client = b.client
	parser.UserAgent = DefaultUserAgent
	return &RSS{
		base:   b,
		feeds:  feeds,
		parser: parser,
	}
}

// Name returns the data source name.
func (r *RSS) Name() string { return "RSS" }

// Fetch reads every configured feed once. A feed that cannot be read fails
// the whole fetch.
func (r *RSS) Fetch(ctx context.Context, q NewsQuery) (models.RawPayload, error) {
	if err := q.Validate(); err != nil {
		return models.RawPayload{}, err
	}
	if len(r.feeds) == 0 {
		return models.RawPayload{}, models.Errorf(models.KindProvider, "rss fetch", "no feeds configured")
	}

	keywords := queryKeywords(q.Query)
	from := q.From
	until := q.To.AddDate(0, 0, 1)

	var items []rssItem
	for _, feedURL := range r.feeds {
		r.logger.Info("fetching feed", "source", r.Name(), "url", feedURL)
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			r.logger.Warn("feed fetch failed", "url", feedURL, "error", err)
			return models.RawPayload{}, classifyFeedError(feedURL, err)
		}

		sourceName := coalesce(feed.Title, hostOf(feedURL))
		for _, item := range feed.Items {
			if !matchesAll(item.Title+" "+item.Description, keywords) {
				continue
			}
			published := item.PublishedParsed
			if published == nil {
				published = item.UpdatedParsed
			}
			if published != nil && (published.Before(from) || !published.Before(until)) {
				continue
			}
			items = append(items, rssItem{item: item, source: sourceName, published: published})
		}
	}

	sortItemsByDate(items)

	records := make([]any, 0, len(items))
	for _, it := range items {
		records = append(records, it.record())
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return models.RawPayload{}, &models.Error{Kind: models.KindProvider, Op: "rss fetch", Msg: "encode records", Err: err}
	}

	r.logger.Info("fetched news", "source", r.Name(), "feeds", len(r.feeds), "articles", len(records))
	return models.RawPayload{
		Kind:      models.KindNews,
		Data:      records,
		Raw:       raw,
		FetchedAt: time.Now(),
	}, nil
}

// --- Internal helpers ---

type rssItem struct {
	item      *gofeed.Item
	source    string
	published *time.Time
}

// record renders the item with the same keys a NewsAPI article carries.
func (it rssItem) record() map[string]any {
	rec := map[string]any{
		"source":      map[string]any{"id": nil, "name": it.source},
		"author":      nil,
		"title":       nullIfEmpty(it.item.Title),
		"description": nullIfEmpty(cleanHTML(it.item.Description)),
		"url":         nullIfEmpty(it.item.Link),
		"urlToImage":  nil,
		"publishedAt": nil,
		"content":     nullIfEmpty(cleanHTML(it.item.Content)),
	}
	if len(it.item.Authors) > 0 && it.item.Authors[0] != nil {
		rec["author"] = nullIfEmpty(it.item.Authors[0].Name)
	}
	if it.item.Image != nil {
		rec["urlToImage"] = nullIfEmpty(it.item.Image.URL)
	}
	if it.published != nil {
		rec["publishedAt"] = it.published.Format(time.RFC3339)
	}
	return rec
}

// classifyFeedError maps a gofeed failure to an error kind.
func classifyFeedError(feedURL string, err error) error {
	const op = "rss fetch"
	var herr gofeed.HTTPError
	if errors.As(err, &herr) {
		return classifyStatus(op, herr.StatusCode, &ErrHTTP{StatusCode: herr.StatusCode, Status: herr.Status})
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &models.Error{Kind: models.KindTransientNetwork, Op: op, Err: err}
	}
	return &models.Error{Kind: models.KindProvider, Op: op, Msg: "parse feed " + feedURL, Err: err}
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// queryKeywords splits a free-text query into lowercase search terms.
func queryKeywords(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// matchesAll checks if text contains every keyword (case-insensitive).
func matchesAll(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

// sortItemsByDate sorts items newest first; undated items go last.
func sortItemsByDate(items []rssItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].published, items[j].published
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
