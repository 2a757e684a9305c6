package datasource

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/seenimoa/newsquant/pkg/models"
	"github.com/seenimoa/newsquant/pkg/utils"
)

// Periods and intervals accepted by the market-data provider.
var (
	ValidPeriods   = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}
	ValidIntervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}
)

// DefaultLanguage is the news language tag used when none is given.
const DefaultLanguage = "en"

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewsQuery describes one news search. Build it with NewNewsQuery or
// NewsQueryForLastDays; the zero value is not valid.
type NewsQuery struct {
	Query      string    `validate:"required"`
	Categories []string  `validate:"omitempty,dive,required"`
	Language   string    `validate:"required,len=2"`
	From       time.Time `validate:"required,ltefield=To"`
	To         time.Time `validate:"required"`
	PageSize   int       `validate:"min=0,max=100"`
}

// NewNewsQuery builds a validated query over the inclusive calendar range
// [from, to]. Only the date part of from and to is used.
func NewNewsQuery(query string, categories []string, from, to time.Time) (NewsQuery, error) {
	q := NewsQuery{
		Query:      strings.TrimSpace(query),
		Categories: trimAll(categories),
		Language:   DefaultLanguage,
		From:       utils.TruncateToDay(from),
		To:         utils.TruncateToDay(to),
	}
	if err := q.Validate(); err != nil {
		return NewsQuery{}, err
	}
	return q, nil
}

// NewsQueryForLastDays builds a query covering the last days days up to now.
func NewsQueryForLastDays(query string, categories []string, days int, now time.Time) (NewsQuery, error) {
	from, to := utils.LookbackRange(days, now)
	return NewNewsQuery(query, categories, from, to)
}

// Validate checks the query invariants.
func (q NewsQuery) Validate() error {
	return validationError("news query", validate.Struct(q))
}

// Identity returns a short file-name-safe description of the query.
func (q NewsQuery) Identity() string {
	return fmt.Sprintf("%s_%s_%s", utils.SafeFileName(q.Query), utils.FormatDate(q.From), utils.FormatDate(q.To))
}

// MarketQuery describes one price-series request.
type MarketQuery struct {
	Symbol   string `validate:"required"`
	Period   string `validate:"required,oneof=1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max"`
	Interval string `validate:"required,oneof=1m 2m 5m 15m 30m 60m 90m 1h 1d 5d 1wk 1mo 3mo"`
}

// NewMarketQuery builds a validated market query.
func NewMarketQuery(symbol, period, interval string) (MarketQuery, error) {
	q := MarketQuery{
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Period:   strings.TrimSpace(period),
		Interval: strings.TrimSpace(interval),
	}
	if err := q.Validate(); err != nil {
		return MarketQuery{}, err
	}
	return q, nil
}

// Validate checks the query invariants.
func (q MarketQuery) Validate() error {
	return validationError("market query", validate.Struct(q))
}

// Identity returns a short file-name-safe description of the query.
func (q MarketQuery) Identity() string {
	return fmt.Sprintf("%s_%s_%s", utils.SafeFileName(q.Symbol), q.Period, q.Interval)
}

// validationError converts validator output into an invalid_query error.
func validationError(op string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &models.Error{Kind: models.KindInvalidQuery, Op: op, Err: err}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return models.Errorf(models.KindInvalidQuery, op, "%s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s %q must be one of [%s]", fe.Field(), fe.Value(), fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not be after %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
