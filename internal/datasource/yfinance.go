package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/newsquant/pkg/models"
)

// DefaultYFinanceEndpoint is the Yahoo Finance v8 chart endpoint.
const DefaultYFinanceEndpoint = "https://query1.finance.yahoo.com/v8/finance/chart"

// YFinance fetches price series from the Yahoo Finance chart API.
type YFinance struct {
	base
}

// NewYFinance creates a new Yahoo Finance data source.
func NewYFinance(opts ...Option) *YFinance {
	return &YFinance{base: newBase(DefaultYFinanceEndpoint, opts)}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v8 API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol               string `json:"symbol"`
	Currency             string `json:"currency"`
	Timezone             string `json:"timezone"` // abbreviation, e.g., "EST"
	ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	GMTOffset            int    `json:"gmtoffset"` // seconds east of UTC
}

type yfIndicators struct {
	Quote    []yfOHLCV    `json:"quote"`
	AdjClose []yfAdjClose `json:"adjclose"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// RequestURL returns the chart URL for q.
func (y *YFinance) RequestURL(q MarketQuery) string {
	params := url.Values{}
	params.Set("range", q.Period)
	params.Set("interval", q.Interval)
	params.Set("includeAdjustedClose", "true")
	return fmt.Sprintf("%s/%s?%s", y.endpoint, url.PathEscape(q.Symbol), params.Encode())
}

// Fetch returns the candle series for q. A successful response without any
// rows is reported as empty_result.
func (y *YFinance) Fetch(ctx context.Context, q MarketQuery) (models.RawPayload, error) {
	const op = "yfinance fetch"
	if err := q.Validate(); err != nil {
		return models.RawPayload{}, err
	}

	reqURL := y.RequestURL(q)
	y.logger.Info("fetching market data", "source", y.Name(), "url", reqURL)

	body, err := doGet(ctx, y.client, op, reqURL, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		y.logger.Warn("market fetch failed", "symbol", q.Symbol, "kind", models.KindOf(err), "error", err)
		return models.RawPayload{}, err
	}

	var resp yfChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.RawPayload{}, &models.Error{Kind: models.KindProvider, Op: op, Msg: "response is not valid JSON", Err: err}
	}

	if resp.Chart.Error != nil {
		return models.RawPayload{}, models.Errorf(models.KindProvider, op, "%s",
			coalesce(resp.Chart.Error.Description, resp.Chart.Error.Code))
	}
	if len(resp.Chart.Result) == 0 {
		return models.RawPayload{}, models.Errorf(models.KindEmptyResult, op, "no data found for symbol %s", q.Symbol)
	}

	series := parseYFSeries(resp.Chart.Result[0], q.Interval)
	series.Period = q.Period
	series.Interval = q.Interval
	if series.Symbol == "" {
		series.Symbol = q.Symbol
	}
	if series.Len() == 0 {
		return models.RawPayload{}, models.Errorf(models.KindEmptyResult, op,
			"no rows for symbol %s (period=%s, interval=%s)", q.Symbol, q.Period, q.Interval)
	}

	y.logger.Info("fetched market data", "symbol", series.Symbol, "rows", series.Len())
	return models.RawPayload{
		Kind:      models.KindMarket,
		Data:      series,
		Raw:       body,
		FetchedAt: time.Now(),
	}, nil
}

// --- Helpers ---

// dailyIntervals are sampled once per session or less often. Their
// timestamps are reported as the session date at midnight.
var dailyIntervals = map[string]bool{"1d": true, "5d": true, "1wk": true, "1mo": true, "3mo": true}

// parseYFSeries converts a chart result into a series whose timestamps
// carry the exchange's local time. Missing values stay null.
func parseYFSeries(result yfChartResult, interval string) *models.MarketSeries {
	meta := result.Meta
	zoneName := coalesce(meta.ExchangeTimezoneName, meta.Timezone, "UTC")
	loc := exchangeLocation(meta)
	daily := dailyIntervals[interval]

	series := &models.MarketSeries{
		Symbol:   meta.Symbol,
		Currency: meta.Currency,
		Timezone: zoneName,
	}
	if len(result.Indicators.Quote) == 0 {
		return series
	}

	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
		series.HasAdjClose = true
	}

	series.Candles = make([]models.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		t := time.Unix(ts, 0).In(loc)
		if daily {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		}
		series.Candles = append(series.Candles, models.Candle{
			Timestamp: t,
			Open:      floatAt(q.Open, i),
			High:      floatAt(q.High, i),
			Low:       floatAt(q.Low, i),
			Close:     floatAt(q.Close, i),
			AdjClose:  floatAt(adjCloses, i),
			Volume:    intAt(q.Volume, i),
		})
	}
	return series
}

// exchangeLocation resolves the exchange's IANA zone so that daylight-saving
// changes inside the range are honoured. gmtoffset is the offset at request
// time and is only used when the zone name is unknown.
func exchangeLocation(meta yfChartMeta) *time.Location {
	if meta.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(meta.ExchangeTimezoneName); err == nil {
			return loc
		}
	}
	return time.FixedZone(coalesce(meta.ExchangeTimezoneName, meta.Timezone, "UTC"), meta.GMTOffset)
}

func floatAt(vals []*float64, i int) null.Float {
	if i >= len(vals) {
		return null.Float{}
	}
	return null.FloatFromPtr(vals[i])
}

func intAt(vals []*int64, i int) null.Int {
	if i >= len(vals) {
		return null.Int{}
	}
	return null.IntFromPtr(vals[i])
}
