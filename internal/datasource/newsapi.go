package datasource

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/newsquant/pkg/models"
	"github.com/seenimoa/newsquant/pkg/utils"
)

// DefaultNewsAPIEndpoint is the NewsAPI "everything" search endpoint.
const DefaultNewsAPIEndpoint = "https://newsapi.org/v2/everything"

// NewsAPI fetches article search results from newsapi.org.
type NewsAPI struct {
	base
	apiKey string
}

// NewNewsAPI creates a NewsAPI client. An empty key is a fatal
// configuration error and no client is returned.
func NewNewsAPI(apiKey string, opts ...Option) (*NewsAPI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, models.Errorf(models.KindCredentialMissing, "newsapi",
			"API key not provided; set NEWS_API_KEY or news.api_key")
	}
	return &NewsAPI{
		base:   newBase(DefaultNewsAPIEndpoint, opts),
		apiKey: apiKey,
	}, nil
}

// Name returns the data source name.
func (n *NewsAPI) Name() string { return "NewsAPI" }

// RequestURL returns the request URL for q. The credential is sent as a
// header, so this URL is safe to log.
func (n *NewsAPI) RequestURL(q NewsQuery) string {
	params := url.Values{}
	params.Set("q", q.Query)
	if len(q.Categories) > 0 {
		params.Set("categories", strings.Join(q.Categories, ","))
	}
	params.Set("language", coalesce(q.Language, DefaultLanguage))
	params.Set("from", utils.FormatDate(q.From))
	params.Set("to", utils.FormatDate(q.To))
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return n.endpoint + "?" + params.Encode()
}

// newsAPIStatus is the envelope every NewsAPI response carries.
type newsAPIStatus struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
}

// Fetch performs the search and returns the decoded response unchanged.
func (n *NewsAPI) Fetch(ctx context.Context, q NewsQuery) (models.RawPayload, error) {
	const op = "newsapi fetch"
	if err := q.Validate(); err != nil {
		return models.RawPayload{}, err
	}

	reqURL := n.RequestURL(q)
	n.logger.Info("fetching news", "source", n.Name(), "url", reqURL)

	body, err := doGet(ctx, n.client, op, reqURL, map[string]string{
		"Accept":    "application/json",
		"X-Api-Key": n.apiKey,
	})
	if err != nil {
		n.logger.Warn("news fetch failed", "source", n.Name(), "kind", models.KindOf(err), "error", err)
		return models.RawPayload{}, err
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return models.RawPayload{}, &models.Error{Kind: models.KindProvider, Op: op, Msg: "response is not valid JSON", Err: err}
	}

	var status newsAPIStatus
	if err := json.Unmarshal(body, &status); err == nil && status.Status == "error" {
		return models.RawPayload{}, classifyNewsAPICode(op, status.Code, status.Message)
	}

	n.logger.Info("fetched news", "source", n.Name(), "total_results", status.TotalResults, "bytes", len(body))
	return models.RawPayload{
		Kind:      models.KindNews,
		Data:      data,
		Raw:       body,
		FetchedAt: time.Now(),
	}, nil
}

// classifyNewsAPICode maps a NewsAPI error code to an error kind.
func classifyNewsAPICode(op, code, message string) error {
	kind := models.KindProvider
	switch {
	case strings.HasPrefix(code, "apiKey"):
		kind = models.KindAuthentication
	case code == "rateLimited":
		kind = models.KindRateLimit
	}
	msg := coalesce(message, code, "provider reported an error")
	return &models.Error{Kind: kind, Op: op, Msg: msg}
}
