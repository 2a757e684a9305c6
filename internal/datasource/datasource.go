// Package datasource provides the remote data clients of the pipeline:
// NewsAPI and RSS news sources, the Yahoo Finance chart client and the
// article full-text extractor. Every client performs a single attempt per
// call and reports failures as a classified *models.Error.
package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/seenimoa/newsquant/internal/infra"
	"github.com/seenimoa/newsquant/pkg/models"
)

// ErrHTTP carries the details of a non-2xx response.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 << 20

// base holds the settings shared by every client.
type base struct {
	client   *http.Client
	endpoint string
	logger   *slog.Logger
}

// Option configures a client.
type Option func(*base)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(b *base) { b.client = c }
}

// WithEndpoint overrides the provider endpoint.
func WithEndpoint(endpoint string) Option {
	return func(b *base) { b.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) { b.logger = l }
}

func newBase(endpoint string, opts []Option) base {
	b := base{endpoint: endpoint}
	for _, opt := range opts {
		opt(&b)
	}
	if b.client == nil {
		b.client = infra.NewHTTPClient(0)
	}
	b.logger = infra.OrDefault(b.logger)
	return b
}

// doGet performs a single GET and returns the body of a 2xx response.
// Any other outcome is returned as a classified *models.Error. The URL
// appears in errors and logs, so it must never carry a credential.
func doGet(ctx context.Context, client *http.Client, op, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &models.Error{Kind: models.KindProvider, Op: op, Msg: "create request", Err: err}
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &models.Error{Kind: models.KindTransientNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, classifyStatus(op, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		})
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &models.Error{Kind: models.KindTransientNetwork, Op: op, Msg: "read response", Err: err}
	}
	return data, nil
}

// classifyStatus maps a non-2xx status to an error kind.
func classifyStatus(op string, code int, herr *ErrHTTP) *models.Error {
	e := &models.Error{Op: op, Msg: providerMessage([]byte(herr.Body)), Err: herr}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		e.Kind = models.KindAuthentication
	case code == http.StatusTooManyRequests:
		e.Kind = models.KindRateLimit
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		e.Kind = models.KindTransientNetwork
	default:
		e.Kind = models.KindProvider
	}
	if e.Msg == "" {
		e.Msg = fmt.Sprintf("HTTP %d", code)
	}
	return e
}

// providerMessage extracts a human-readable message from a provider error
// body. It understands NewsAPI ({"message": ...}) and Yahoo
// ({"chart": {"error": {"description": ...}}}) shapes.
func providerMessage(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"message", "description"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	for _, v := range m {
		inner, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if e, ok := inner["error"].(map[string]any); ok {
			if s, ok := e["description"].(string); ok && s != "" {
				return s
			}
		}
	}
	if s, ok := m["error"].(string); ok {
		return s
	}
	return ""
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
