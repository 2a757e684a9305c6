package datasource

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/seenimoa/newsquant/pkg/models"
)

// FullTextUnavailable prefixes the full_text value of an article whose
// page could not be fetched or yielded no readable text.
const FullTextUnavailable = "[full text unavailable]"

// contentSelectors are tried in order; the first match wins.
var contentSelectors = []string{
	"article",
	"[role='main']",
	"main",
	".post-content",
	".article-content",
	".entry-content",
}

// Extractor downloads article pages and extracts their main text block.
type Extractor struct {
	base
	limiter     *rate.Limiter
	concurrency int
}

// NewExtractor creates an extractor running up to concurrency requests at
// once, paced to ratePerSec requests per second (0 = unpaced).
func NewExtractor(concurrency int, ratePerSec float64, opts ...Option) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Extractor{
		base:        newBase("", opts),
		limiter:     rate.NewLimiter(limit, 1),
		concurrency: concurrency,
	}
}

// Extract fetches pageURL and returns its readable text.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	const op = "fulltext"
	if strings.TrimSpace(pageURL) == "" {
		return "", models.Errorf(models.KindProvider, op, "article has no url")
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return "", &models.Error{Kind: models.KindTransientNetwork, Op: op, Err: err}
	}

	body, err := doGet(ctx, e.client, op, pageURL, map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		return "", err
	}

	text, err := extractText(body)
	if err != nil {
		return "", &models.Error{Kind: models.KindProvider, Op: op, Msg: "parse html", Err: err}
	}
	if text == "" {
		return "", models.Errorf(models.KindProvider, op, "no readable text at %s", pageURL)
	}
	return text, nil
}

// Enrich sets the full_text column of every row from the row's url. A row
// whose extraction fails gets a FullTextUnavailable sentinel instead; the
// batch always completes. Row order is preserved. It returns the number of
// rows that failed.
func (e *Extractor) Enrich(ctx context.Context, t *models.Table) int {
	t.AddColumn(models.ColFullText)

	texts := make([]string, len(t.Rows))
	failed := make([]bool, len(t.Rows))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for i, row := range t.Rows {
		pageURL, _ := row[models.ColURL].(string)
		g.Go(func() error {
			text, err := e.Extract(ctx, pageURL)
			if err != nil {
				e.logger.Warn("full text extraction failed", "url", pageURL, "error", err)
				texts[i] = fmt.Sprintf("%s %v", FullTextUnavailable, err)
				failed[i] = true
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	nFailed := 0
	for i, row := range t.Rows {
		row[models.ColFullText] = texts[i]
		if failed[i] {
			nFailed++
		}
	}
	e.logger.Info("full text extraction done", "articles", len(t.Rows), "failed", nFailed)
	return nFailed
}

// extractText pulls paragraph text out of an HTML document.
func extractText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header, aside, .sidebar, .advertisement, .ads").Remove()

	var parts []string
	for _, selector := range contentSelectors {
		selection := doc.Find(selector)
		if selection.Length() == 0 {
			continue
		}
		selection.First().Find("p, h1, h2, h3, li").Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		break
	}

	// Fallback: all paragraphs
	if len(parts) == 0 {
		doc.Find("body p").Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
	}

	return strings.Join(parts, "\n\n"), nil
}
